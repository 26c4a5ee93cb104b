package password_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/account-service/backend/internal/password"
)

func TestHasher(t *testing.T) {
	hasher := password.NewHasher(4)

	t.Run("哈希后可以验证原始密码", func(t *testing.T) {
		hash, err := hasher.Hash("userPASS123")
		require.NoError(t, err)

		assert.NotEqual(t, "userPASS123", hash)
		assert.True(t, hasher.Verify("userPASS123", hash))
	})

	t.Run("错误的密码无法通过验证", func(t *testing.T) {
		hash, err := hasher.Hash("userPASS123")
		require.NoError(t, err)

		assert.False(t, hasher.Verify("otherPASS123", hash))
	})

	t.Run("相同密码每次哈希的结果不同", func(t *testing.T) {
		first, err := hasher.Hash("userPASS123")
		require.NoError(t, err)
		second, err := hasher.Hash("userPASS123")
		require.NoError(t, err)

		// 盐是每次随机生成的
		assert.NotEqual(t, first, second)
		assert.True(t, hasher.Verify("userPASS123", first))
		assert.True(t, hasher.Verify("userPASS123", second))
	})

	t.Run("超出范围的 cost 回退到默认值", func(t *testing.T) {
		fallback := password.NewHasher(1000)

		hash, err := fallback.Hash("userPASS123")
		require.NoError(t, err)
		assert.True(t, fallback.Verify("userPASS123", hash))
	})
}
