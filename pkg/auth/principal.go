// Package auth 提供调用主体(Principal)抽象及其上下文传递
// API 层负责认证并把 Principal 放入请求上下文；授权行为从上下文取出并检查权限
package auth

import (
	"context"
)

// Principal 已认证的调用主体
type Principal struct {
	Subject     string   `json:"subject"`
	Name        string   `json:"name,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// HasRole 是否具备指定角色
func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasPermission 是否具备指定权限
func (p *Principal) HasPermission(permission string) bool {
	for _, perm := range p.Permissions {
		if perm == permission {
			return true
		}
	}
	return false
}

// HasAllPermissions 是否具备全部指定权限
func (p *Principal) HasAllPermissions(permissions []string) bool {
	for _, perm := range permissions {
		if !p.HasPermission(perm) {
			return false
		}
	}
	return true
}

type principalKey struct{}

// WithPrincipal 将 Principal 附加到上下文
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext 从上下文取出 Principal
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	if !ok || p == nil {
		return nil, false
	}
	return p, true
}
