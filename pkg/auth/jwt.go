package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims JWT 载荷，扩展标准声明以携带角色与权限
type Claims struct {
	jwt.RegisteredClaims
	Name        string   `json:"name,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// ParseToken 校验 HMAC 签名的 JWT 并转换为 Principal
// 过期、签名错误、算法不匹配均返回错误
func ParseToken(tokenString string, secret []byte) (*Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}

	return &Principal{
		Subject:     claims.Subject,
		Name:        claims.Name,
		Roles:       claims.Roles,
		Permissions: claims.Permissions,
	}, nil
}

// TokenVerifier 持有签名密钥的校验器，便于在中间件中注入
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret []byte) *TokenVerifier {
	return &TokenVerifier{secret: secret}
}

func (v *TokenVerifier) Verify(tokenString string) (*Principal, error) {
	return ParseToken(tokenString, v.secret)
}

// NewToken 为 Principal 签发 HMAC JWT（主要用于测试与示例服务）
func NewToken(p *Principal, secret []byte) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: p.Subject},
		Name:             p.Name,
		Roles:            p.Roles,
		Permissions:      p.Permissions,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
