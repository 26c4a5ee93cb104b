package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/account-service/backend/internal/config"
	"github.com/sysu-ecnc-dev/account-service/backend/internal/domain"
	"github.com/sysu-ecnc-dev/account-service/backend/internal/handler"
	"github.com/sysu-ecnc-dev/account-service/backend/internal/password"
	"github.com/sysu-ecnc-dev/account-service/backend/internal/repository"
	"github.com/sysu-ecnc-dev/account-service/backend/internal/token"
)

// fakeRepository 是 repository.UserRepository 的内存实现
type fakeRepository struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*domain.User

	// 设置后对应方法返回该错误
	failGetByID error
}

var _ repository.UserRepository = (*fakeRepository)(nil)

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		nextID: 1,
		users:  make(map[int64]*domain.User),
	}
}

func (f *fakeRepository) clone(u *domain.User) *domain.User {
	cp := *u
	return &cp
}

func (f *fakeRepository) GetUserByID(id int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failGetByID != nil {
		return nil, f.failGetByID
	}

	user, ok := f.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return f.clone(user), nil
}

func (f *fakeRepository) GetUserByEmail(email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, user := range f.users {
		if user.Email == email {
			return f.clone(user), nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRepository) GetAllUsers() ([]*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	users := make([]*domain.User, 0, len(f.users))
	for _, user := range f.users {
		users = append(users, f.clone(user))
	}
	return users, nil
}

func (f *fakeRepository) CreateUser(user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.users {
		if existing.Email == user.Email {
			return &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
		}
	}

	user.ID = f.nextID
	f.nextID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	user.Version = 1
	f.users[user.ID] = f.clone(user)
	return nil
}

func (f *fakeRepository) UpdateUser(user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	existing, ok := f.users[user.ID]
	if !ok || existing.Version != user.Version {
		return sql.ErrNoRows
	}

	for id, other := range f.users {
		if id != user.ID && other.Email == user.Email {
			return &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
		}
	}

	user.UpdatedAt = time.Now()
	user.Version++
	f.users[user.ID] = f.clone(user)
	return nil
}

func (f *fakeRepository) DeleteUser(id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.users, id)
	return nil
}

func (f *fakeRepository) RecordLogin(id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	now := time.Now()
	user.LastLogin = &now
	user.LoginCount++
	return nil
}

// fakeMailPublisher 记录发布到邮件队列的消息
type fakeMailPublisher struct {
	mu       sync.Mutex
	messages []amqp.Publishing
}

func (f *fakeMailPublisher) PublishWithContext(_ context.Context, _, _ string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.messages = append(f.messages, msg)
	return nil
}

type testEnv struct {
	handler *handler.Handler
	repo    *fakeRepository
	mail    *fakeMailPublisher
	tokens  *token.Service
	hasher  *password.Hasher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.Expiration = 3600
	cfg.PasswordPolicy.MinLength = 8
	cfg.PasswordPolicy.MaxLength = 64
	cfg.PasswordPolicy.RequireUppercase = true
	cfg.PasswordPolicy.RequireLowercase = true
	cfg.PasswordPolicy.RequireDigits = true
	cfg.PasswordPolicy.ForbidSpaces = true
	cfg.Bcrypt.Cost = 4 // 测试中用最小 cost 加快速度
	cfg.NewUser.PasswordLength = 12
	cfg.RabbitMQ.PublishTimeout = 1
	cfg.Redis.OperationExpiration = 1
	cfg.OTP.Expiration = 900

	policy, err := password.NewPolicy(cfg)
	require.NoError(t, err)
	hasher := password.NewHasher(cfg.Bcrypt.Cost)
	tokens := token.NewService(cfg.JWT.Secret, time.Duration(cfg.JWT.Expiration)*time.Second)

	repo := newFakeRepository()
	mailPublisher := &fakeMailPublisher{}

	h, err := handler.NewHandler(cfg, repo, tokens, policy, hasher, mailPublisher, nil)
	require.NoError(t, err)
	h.RegisterRoutes()

	return &testEnv{
		handler: h,
		repo:    repo,
		mail:    mailPublisher,
		tokens:  tokens,
		hasher:  hasher,
	}
}

// mustCreateUser 直接往内存存储中塞一个用户，绕过注册流程
func (env *testEnv) mustCreateUser(t *testing.T, email, plainPassword string, role domain.Role) *domain.User {
	t.Helper()

	passwordHash, err := env.hasher.Hash(plainPassword)
	require.NoError(t, err)

	user := &domain.User{
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		FirstName:    "测试",
		LastName:     "用户",
	}
	require.NoError(t, env.repo.CreateUser(user))
	return user
}

func (env *testEnv) mustIssueToken(t *testing.T, user *domain.User) string {
	t.Helper()

	ss, err := env.tokens.Issue(user)
	require.NoError(t, err)
	return ss
}

func (env *testEnv) do(t *testing.T, method, path string, body any, bearer string) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	w := httptest.NewRecorder()
	env.handler.Mux.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) handler.Response {
	t.Helper()

	var resp handler.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func tokenFromResponse(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	resp := decodeResponse(t, w)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data 不是对象")
	ss, ok := data["token"].(string)
	require.True(t, ok, "data 中没有 token")
	return ss
}
