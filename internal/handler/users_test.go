package handler_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/account-service/backend/internal/domain"
)

func TestCreateUser(t *testing.T) {
	validBody := func() map[string]any {
		return map[string]any{
			"email":     "staff@app.com",
			"role":      "staff",
			"firstName": "四",
			"lastName":  "李",
		}
	}

	t.Run("创建成功并把随机密码通过邮件发送", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.mustCreateUser(t, "admin@app.com", "adminPASS123", domain.RoleAdmin)
		ss := env.mustIssueToken(t, admin)

		w := env.do(t, http.MethodPost, "/users/", validBody(), ss)
		require.Equal(t, http.StatusCreated, w.Code)

		created, err := env.repo.GetUserByEmail("staff@app.com")
		require.NoError(t, err)
		assert.Equal(t, domain.RoleStaff, created.Role)

		require.Len(t, env.mail.messages, 1)
		var mailMessage domain.MailMessage
		require.NoError(t, json.Unmarshal(env.mail.messages[0].Body, &mailMessage))
		assert.Equal(t, "create_user", mailMessage.Type)
		assert.Equal(t, "staff@app.com", mailMessage.To)
	})

	t.Run("角色不在枚举中返回 400", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.mustCreateUser(t, "admin@app.com", "adminPASS123", domain.RoleAdmin)
		ss := env.mustIssueToken(t, admin)

		body := validBody()
		body["role"] = "superuser"
		w := env.do(t, http.MethodPost, "/users/", body, ss)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("邮箱已存在返回 409", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.mustCreateUser(t, "admin@app.com", "adminPASS123", domain.RoleAdmin)
		env.mustCreateUser(t, "staff@app.com", "staffPASS123", domain.RoleStaff)
		ss := env.mustIssueToken(t, admin)

		w := env.do(t, http.MethodPost, "/users/", validBody(), ss)
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestGetUserInfo(t *testing.T) {
	t.Run("获取存在的用户", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.mustCreateUser(t, "admin@app.com", "adminPASS123", domain.RoleAdmin)
		target := env.mustCreateUser(t, "target@app.com", "userPASS123", domain.RoleEditor)
		ss := env.mustIssueToken(t, admin)

		w := env.do(t, http.MethodGet, fmt.Sprintf("/users/%d", target.ID), nil, ss)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "target@app.com")
	})

	t.Run("用户不存在返回 404", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.mustCreateUser(t, "admin@app.com", "adminPASS123", domain.RoleAdmin)
		ss := env.mustIssueToken(t, admin)

		w := env.do(t, http.MethodGet, "/users/12345", nil, ss)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("用户 ID 无效返回 400", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.mustCreateUser(t, "admin@app.com", "adminPASS123", domain.RoleAdmin)
		ss := env.mustIssueToken(t, admin)

		w := env.do(t, http.MethodGet, "/users/abc", nil, ss)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUpdateUser(t *testing.T) {
	t.Run("更新角色立即生效", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.mustCreateUser(t, "admin@app.com", "adminPASS123", domain.RoleAdmin)
		target := env.mustCreateUser(t, "target@app.com", "userPASS123", domain.RoleCustomer)
		ss := env.mustIssueToken(t, admin)

		w := env.do(t, http.MethodPatch, fmt.Sprintf("/users/%d", target.ID), map[string]any{
			"role": "editor",
		}, ss)
		require.Equal(t, http.StatusOK, w.Code)

		stored, err := env.repo.GetUserByID(target.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleEditor, stored.Role)
	})

	t.Run("更新为已被占用的邮箱返回 409", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.mustCreateUser(t, "admin@app.com", "adminPASS123", domain.RoleAdmin)
		target := env.mustCreateUser(t, "target@app.com", "userPASS123", domain.RoleCustomer)
		ss := env.mustIssueToken(t, admin)

		w := env.do(t, http.MethodPatch, fmt.Sprintf("/users/%d", target.ID), map[string]any{
			"email": "admin@app.com",
		}, ss)
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestDeleteUser(t *testing.T) {
	env := newTestEnv(t)
	admin := env.mustCreateUser(t, "admin@app.com", "adminPASS123", domain.RoleAdmin)
	target := env.mustCreateUser(t, "target@app.com", "userPASS123", domain.RoleCustomer)
	ss := env.mustIssueToken(t, admin)

	w := env.do(t, http.MethodDelete, fmt.Sprintf("/users/%d", target.ID), nil, ss)
	require.Equal(t, http.StatusNoContent, w.Code)

	_, err := env.repo.GetUserByID(target.ID)
	assert.Error(t, err)
}

func TestUpdateUserPassword(t *testing.T) {
	env := newTestEnv(t)
	admin := env.mustCreateUser(t, "admin@app.com", "adminPASS123", domain.RoleAdmin)
	target := env.mustCreateUser(t, "target@app.com", "userPASS123", domain.RoleCustomer)
	ss := env.mustIssueToken(t, admin)

	w := env.do(t, http.MethodPatch, fmt.Sprintf("/users/%d/password", target.ID), nil, ss)
	require.Equal(t, http.StatusOK, w.Code)

	// 旧密码不再可用
	login := env.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "target@app.com",
		"password": "userPASS123",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, login.Code)

	// 新密码通过邮件发送
	require.Len(t, env.mail.messages, 1)
	var mailMessage domain.MailMessage
	require.NoError(t, json.Unmarshal(env.mail.messages[0].Body, &mailMessage))
	assert.Equal(t, "target@app.com", mailMessage.To)
}
