package usecase

import (
	"context"

	"archkit/pkg/auth"
	"archkit/pkg/result"
)

// AuthorizationBehavior 授权行为
// 请求实现 Authorizable 时检查上下文中的 Principal:
// 无 Principal → Unauthorized；权限不足 → Forbidden
type AuthorizationBehavior struct{}

func NewAuthorizationBehavior() AuthorizationBehavior { return AuthorizationBehavior{} }

func (AuthorizationBehavior) Name() string { return BehaviorAuthorization }

func (AuthorizationBehavior) Handle(ctx context.Context, req Request, next Next) (interface{}, error) {
	authorizable, ok := req.(Authorizable)
	if !ok {
		return next(ctx, req)
	}

	required := authorizable.RequiredPermissions()
	if len(required) == 0 {
		return next(ctx, req)
	}

	principal, ok := auth.FromContext(ctx)
	if !ok {
		return result.FailWith(result.StatusUnauthorized,
			result.NewError(result.CodeUnauthorized, "authentication required")), nil
	}

	for _, permission := range required {
		if !principal.HasPermission(permission) {
			return result.FailWith(result.StatusForbidden,
				result.NewError(result.CodeForbidden, "missing permission: "+permission)), nil
		}
	}

	return next(ctx, req)
}
