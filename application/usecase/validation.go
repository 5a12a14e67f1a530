package usecase

import (
	"context"

	"archkit/pkg/result"
)

// ValidationBehavior 校验行为
// 请求实现 Validatable 时收集其全部校验错误；
// 存在错误则以 StatusInvalid 短路，处理器不会看到非法请求
type ValidationBehavior struct{}

func NewValidationBehavior() ValidationBehavior { return ValidationBehavior{} }

func (ValidationBehavior) Name() string { return BehaviorValidation }

func (ValidationBehavior) Handle(ctx context.Context, req Request, next Next) (interface{}, error) {
	validatable, ok := req.(Validatable)
	if !ok {
		return next(ctx, req)
	}

	notification := validatable.Validate(ctx)
	if notification != nil && notification.HasErrors() {
		return result.FailWith(result.StatusInvalid, notification.Errors()...), nil
	}

	return next(ctx, req)
}
