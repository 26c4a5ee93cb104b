package password

import (
	"golang.org/x/crypto/bcrypt"
)

// Hasher 封装 bcrypt，盐由 bcrypt 每次生成并嵌入哈希结果中
type Hasher struct {
	cost int
}

func NewHasher(cost int) *Hasher {
	// cost 超出 bcrypt 支持的范围时回退到默认值
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

func (h *Hasher) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify 的时间特性由 bcrypt 内部的恒定时间比较保证
func (h *Hasher) Verify(plaintext string, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
