// Package password 实现密码组成规则校验和密码哈希
package password

import (
	"fmt"
	"unicode"

	"github.com/sysu-ecnc-dev/account-service/backend/internal/config"
)

// Policy 在启动时根据配置构建一次，之后无状态可复用
type Policy struct {
	minLength        int
	maxLength        int
	requireUppercase bool
	requireLowercase bool
	requireDigits    bool
	requireSymbols   bool
	forbidSpaces     bool
}

func NewPolicy(cfg *config.Config) (*Policy, error) {
	pc := cfg.PasswordPolicy
	if pc.MinLength > pc.MaxLength {
		// 配置错误，启动时直接失败，而不是在每个请求中报错
		return nil, fmt.Errorf("密码策略配置错误：最小长度 %d 大于最大长度 %d", pc.MinLength, pc.MaxLength)
	}

	return &Policy{
		minLength:        pc.MinLength,
		maxLength:        pc.MaxLength,
		requireUppercase: pc.RequireUppercase,
		requireLowercase: pc.RequireLowercase,
		requireDigits:    pc.RequireDigits,
		requireSymbols:   pc.RequireSymbols,
		forbidSpaces:     pc.ForbidSpaces,
	}, nil
}

// Check 校验候选密码，返回所有不满足的规则。
// 所有规则都会被检查，而不是遇到第一个失败就返回，方便客户端一次性展示全部问题。
func (p *Policy) Check(candidate string) []string {
	violations := make([]string, 0)

	runes := []rune(candidate)
	if len(runes) < p.minLength {
		violations = append(violations, fmt.Sprintf("密码长度不能小于 %d 位", p.minLength))
	}
	if len(runes) > p.maxLength {
		violations = append(violations, fmt.Sprintf("密码长度不能大于 %d 位", p.maxLength))
	}

	var hasUppercase, hasLowercase, hasDigit, hasSymbol, hasSpace bool
	for _, r := range runes {
		switch {
		case unicode.IsUpper(r):
			hasUppercase = true
		case unicode.IsLower(r):
			hasLowercase = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsSpace(r):
			hasSpace = true
		default:
			hasSymbol = true
		}
	}

	if p.requireUppercase && !hasUppercase {
		violations = append(violations, "密码必须包含大写字母")
	}
	if p.requireLowercase && !hasLowercase {
		violations = append(violations, "密码必须包含小写字母")
	}
	if p.requireDigits && !hasDigit {
		violations = append(violations, "密码必须包含数字")
	}
	if p.requireSymbols && !hasSymbol {
		violations = append(violations, "密码必须包含特殊字符")
	}
	if p.forbidSpaces && hasSpace {
		violations = append(violations, "密码不能包含空格")
	}

	return violations
}
