package handler

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/account-service/backend/internal/config"
	"github.com/sysu-ecnc-dev/account-service/backend/internal/domain"
	"github.com/sysu-ecnc-dev/account-service/backend/internal/password"
	"github.com/sysu-ecnc-dev/account-service/backend/internal/repository"
	"github.com/sysu-ecnc-dev/account-service/backend/internal/token"
)

// MailPublisher 抽象邮件队列的发布操作，*amqp.Channel 满足这个接口
type MailPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Handler struct {
	validate    *validator.Validate
	config      *config.Config
	repository  repository.UserRepository
	tokens      *token.Service
	policy      *password.Policy
	hasher      *password.Hasher
	translator  ut.Translator
	mailChannel MailPublisher
	redisClient *redis.Client

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo repository.UserRepository, tokens *token.Service, policy *password.Policy, hasher *password.Hasher, mailCh MailPublisher, rdb *redis.Client) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:    validate,
		config:      cfg,
		repository:  repo,
		tokens:      tokens,
		policy:      policy,
		hasher:      hasher,
		translator:  trans,
		mailChannel: mailCh,
		redisClient: rdb,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/register", h.Register)
		r.With(h.authenticate).Get("/refresh", h.RefreshToken)
		r.With(h.authenticate, h.currentUser).Post("/change-password", h.ChangePassword)
		r.Route("/reset-password", func(r chi.Router) {
			r.Post("/require", h.RequireResetPassword)
			r.Post("/confirm", h.ConfirmResetPassword)
		})
	})

	// 以下 API 必须要在认证后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.authenticate)

		r.Route("/users", func(r chi.Router) {
			r.With(h.currentUser).Get("/me", h.GetMyInfo)

			// 用户管理只有管理员有权限
			r.Group(func(r chi.Router) {
				r.Use(h.requireRole([]domain.Role{domain.RoleAdmin}))
				r.Get("/", h.GetAllUserInfo)
				r.Post("/", h.CreateUser)
				r.Route("/{id}", func(r chi.Router) {
					r.Use(h.userInfo)
					r.Get("/", h.GetUserInfo)
					r.Patch("/", h.UpdateUser)
					r.Delete("/", h.DeleteUser)
					r.Patch("/password", h.UpdateUserPassword)
				})
			})
		})
	})
}
