package token_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/account-service/backend/internal/domain"
	"github.com/sysu-ecnc-dev/account-service/backend/internal/token"
)

func TestIssueAndVerify(t *testing.T) {
	service := token.NewService("test-secret", time.Hour)
	user := &domain.User{ID: 42, Role: domain.RoleEditor}

	ss, err := service.Issue(user)
	require.NoError(t, err)
	require.NotEmpty(t, ss)

	claims, err := service.Verify(ss)
	require.NoError(t, err)

	userID, err := claims.UserID()
	require.NoError(t, err)
	assert.EqualValues(t, 42, userID)
	assert.Equal(t, string(domain.RoleEditor), claims.Role)
}

func TestVerifyExpired(t *testing.T) {
	service := token.NewService("test-secret", -time.Second)

	ss, err := service.Issue(&domain.User{ID: 1, Role: domain.RoleCustomer})
	require.NoError(t, err)

	_, err = service.Verify(ss)
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := token.NewService("right-secret", time.Hour)
	verifier := token.NewService("wrong-secret", time.Hour)

	ss, err := issuer.Issue(&domain.User{ID: 1, Role: domain.RoleCustomer})
	require.NoError(t, err)

	_, err = verifier.Verify(ss)
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestVerifyMalformed(t *testing.T) {
	service := token.NewService("test-secret", time.Hour)

	for _, tokenString := range []string{"", "not.a.jwt", "garbage"} {
		_, err := service.Verify(tokenString)
		// 格式错误、签名错误和过期返回同一个错误
		assert.ErrorIs(t, err, token.ErrInvalidToken)
	}
}
