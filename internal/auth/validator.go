// Package auth 实现前端的登录态判断：token 过期检查、路由守卫与角色判断。
//
// 注意：这里不校验签名，只是避免把明显过期或损坏的 token 带进受保护页面。
// 真正的鉴权由后端完成，不能把 IsValid 当作安全边界。
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoExpiry token 中没有 exp
var ErrNoExpiry = errors.New("auth: token has no exp claim")

// Validator token 过期检查
type Validator struct {
	now    func() time.Time
	parser *jwt.Parser
}

// NewValidator 创建校验器，now 为空时使用 time.Now
func NewValidator(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{
		now:    now,
		parser: jwt.NewParser(),
	}
}

// Expiry 解码 token 并返回 exp
func (v *Validator) Expiry(token string) (time.Time, error) {
	if token == "" {
		return time.Time{}, jwt.ErrTokenMalformed
	}

	claims := jwt.MapClaims{}
	// 不验签，未知 alg 仍可读取 claims
	if _, _, err := v.parser.ParseUnverified(token, claims); err != nil && !errors.Is(err, jwt.ErrTokenUnverifiable) {
		return time.Time{}, err
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if exp == nil {
		return time.Time{}, ErrNoExpiry
	}
	return exp.Time, nil
}

// IsValid token 可解码且 exp 晚于当前时间
func (v *Validator) IsValid(token string) (valid bool) {
	defer func() {
		// 解码失败一律收敛为 false
		if recover() != nil {
			valid = false
		}
	}()

	exp, err := v.Expiry(token)
	if err != nil {
		return false
	}
	return exp.After(v.now())
}
