package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/account-service/backend/internal/domain"
)

type ResponseWriter struct {
	http.ResponseWriter
	StatusCode int
}

func (rw *ResponseWriter) WriteHeader(statusCode int) {
	rw.StatusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (h *Handler) logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &ResponseWriter{ResponseWriter: w}
		next.ServeHTTP(rw, r)
		duration := time.Since(start)
		slog.Info("已处理请求", "status", rw.StatusCode, "ip", r.RemoteAddr, "method", r.Method, "path", r.URL.Path, "duration", duration)
	})
}

func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				h.internalServerError(w, r, fmt.Errorf("panic: %v", err))
				stackTrace := string(debug.Stack())
				fmt.Print(stackTrace) // 这里如果用 slog 的话会很乱
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authenticate 从 Authorization 头中提取并验证 Bearer 令牌。
// 缺少或格式错误的头返回 400，验证失败返回 401，验证成功后把 claims 和用户 ID 附在 context 中。
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			h.errorResponse(w, r, http.StatusBadRequest, "缺少或格式错误的 Authorization 头")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := h.tokens.Verify(tokenString)
		if err != nil {
			h.errorResponse(w, r, http.StatusUnauthorized, "无效的令牌")
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			// claims 格式错误同样视为认证失败
			h.errorResponse(w, r, http.StatusUnauthorized, "无效的令牌")
			return
		}

		ctx := r.Context()
		ctx = context.WithValue(ctx, ClaimsCtxKey, claims)
		ctx = context.WithValue(ctx, UserIDCtxKey, userID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// currentUser 根据已认证的用户 ID 从数据库中加载用户并附在 context 中
func (h *Handler) currentUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
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

		ctx := context.WithValue(r.Context(), CurrentUserCtxKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole 检查当前用户的角色是否在允许的角色列表中。
// 角色从数据库重新读取而不信任令牌中的 role claim，管理员改动角色后立即生效，
// 不需要等待旧令牌过期。任何错误都会拒绝请求，不存在静默放行。
func (h *Handler) requireRole(roles []domain.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
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

			if !slices.Contains(roles, user.Role) {
				h.errorResponse(w, r, http.StatusUnauthorized, "权限不足")
				return
			}

			ctx := context.WithValue(r.Context(), CurrentUserCtxKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
