package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/account-service/backend/internal/domain"
	"github.com/sysu-ecnc-dev/account-service/backend/internal/utils"
)

type tokenResponse struct {
	Token string `json:"token"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 验证邮箱和密码，用户不存在和密码错误的响应完全一致
	user, err := h.repository.GetUserByEmail(req.Email)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.authenticationFailed(w, r)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if !h.hasher.Verify(req.Password, user.PasswordHash) {
		h.authenticationFailed(w, r)
		return
	}

	// 更新登录统计是尽力而为的操作，失败不影响登录结果
	if err := h.repository.RecordLogin(user.ID); err != nil {
		slog.Warn("无法更新登录统计", "userID", user.ID, "error", err)
	}

	ss, err := h.tokens.Issue(user)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, http.StatusOK, "登录成功", tokenResponse{Token: ss})
}

type registerProfile struct {
	FirstName   string `json:"firstName" validate:"required"`
	LastName    string `json:"lastName" validate:"required"`
	PhoneNumber string `json:"phoneNumber" validate:"omitempty,min=10,max=25"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email           string           `json:"email" validate:"required,email"`
		Password        string           `json:"password" validate:"required"`
		ConfirmPassword string           `json:"confirmPassword" validate:"required"`
		Profile         *registerProfile `json:"profile" validate:"omitempty"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 先检查密码组成规则，再检查两次输入是否一致
	if violations := h.policy.Check(req.Password); len(violations) > 0 {
		h.policyViolations(w, r, violations)
		return
	}

	if req.Password != req.ConfirmPassword {
		h.errorResponse(w, r, http.StatusBadRequest, "两次输入的密码不一致")
		return
	}

	// 注册的用户角色固定为 customer
	user := &domain.User{
		Email: req.Email,
		Role:  domain.RoleCustomer,
	}
	if req.Profile != nil {
		user.FirstName = req.Profile.FirstName
		user.LastName = req.Profile.LastName
		user.PhoneNumber = req.Profile.PhoneNumber
	}

	passwordHash, err := h.hasher.Hash(req.Password)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	user.PasswordHash = passwordHash

	if err := h.repository.CreateUser(user); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.ConstraintName == "users_email_key":
			h.errorResponse(w, r, http.StatusConflict, "邮箱已被注册")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, http.StatusCreated, "注册成功", user)
}

// RefreshToken 为已认证的用户签发新令牌。
// 用户信息从数据库重新读取，令牌中的角色可能已经过期，只有身份是可信的。
func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(UserIDCtxKey).(int64)

	user, err := h.repository.GetUserByID(userID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.authenticationFailed(w, r)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	ss, err := h.tokens.Issue(user)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, http.StatusOK, "刷新令牌成功", tokenResponse{Token: ss})
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(CurrentUserCtxKey).(*domain.User)

	var req struct {
		OldPassword     string `json:"oldPassword" validate:"required"`
		NewPassword     string `json:"newPassword" validate:"required"`
		ConfirmPassword string `json:"confirmPassword" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if violations := h.policy.Check(req.NewPassword); len(violations) > 0 {
		h.policyViolations(w, r, violations)
		return
	}

	if req.NewPassword != req.ConfirmPassword {
		h.errorResponse(w, r, http.StatusBadRequest, "两次输入的密码不一致")
		return
	}

	// 旧密码错误的响应和登录失败一样是笼统的
	if !h.hasher.Verify(req.OldPassword, user.PasswordHash) {
		h.authenticationFailed(w, r)
		return
	}

	passwordHash, err := h.hasher.Hash(req.NewPassword)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	user.PasswordHash = passwordHash
	if err := h.repository.UpdateUser(user); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, http.StatusConflict, "更新密码失败，请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.noContent(w)
}

func (h *Handler) RequireResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email" validate:"required,email"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	user, err := h.repository.GetUserByEmail(req.Email)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// 这里虽然已经知道了用户不存在，但是为了安全起见，还是告诉客户端邮件已发送，以防止接口被滥用
			h.successResponse(w, r, http.StatusOK, "重置密码所需验证码已通过邮件发送", nil)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	// 生成 OTP 并将 OTP 存到 redis
	otp := utils.GenerateRandomOTP()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(h.config.Redis.OperationExpiration)*time.Minute)
	defer cancel()

	if err := h.redisClient.Set(ctx, fmt.Sprintf("otp_%s_reset_password", user.Email), otp, time.Duration(h.config.OTP.Expiration)*time.Second).Err(); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	mailMessage := domain.MailMessage{
		Type: "reset_password",
		To:   user.Email,
		Data: domain.ResetPasswordMailData{
			FullName:   user.LastName + user.FirstName,
			OTP:        otp,
			Expiration: h.config.OTP.Expiration / 60, // 邮件中显示的过期时间以分钟为单位，而配置中以秒为单位
		},
	}

	mailData, err := json.Marshal(mailMessage)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 发送邮件到消息队列中
	ctx, cancel = context.WithTimeout(context.Background(), time.Duration(h.config.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	if err := h.mailChannel.PublishWithContext(
		ctx,
		"",
		"email_queue",
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        mailData,
		},
	); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, http.StatusOK, "重置密码所需验证码已通过邮件发送", nil)
}

func (h *Handler) ConfirmResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required,email"`
		OTP      string `json:"otp" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if violations := h.policy.Check(req.Password); len(violations) > 0 {
		h.policyViolations(w, r, violations)
		return
	}

	// 检验 OTP
	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.config.Redis.OperationExpiration)*time.Minute)
	defer cancel()

	otp, err := h.redisClient.Get(ctx, fmt.Sprintf("otp_%s_reset_password", req.Email)).Result()
	if err != nil {
		h.errorResponse(w, r, http.StatusUnauthorized, "验证码错误")
		return
	}

	if otp != req.OTP {
		h.errorResponse(w, r, http.StatusUnauthorized, "验证码错误")
		return
	}

	passwordHash, err := h.hasher.Hash(req.Password)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	user, err := h.repository.GetUserByEmail(req.Email)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	user.PasswordHash = passwordHash
	if err := h.repository.UpdateUser(user); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, http.StatusConflict, "请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	// 删除 OTP
	if err := h.redisClient.Del(ctx, fmt.Sprintf("otp_%s_reset_password", req.Email)).Err(); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, http.StatusOK, "重置密码成功", nil)
}
