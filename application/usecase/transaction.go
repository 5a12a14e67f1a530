package usecase

import (
	"context"
	"errors"

	"archkit/domain/shared"
	"archkit/pkg/result"
)

// errRollbackOnFailure 处理器返回业务失败结果时用于触发回滚的内部哨兵
var errRollbackOnFailure = errors.New("use case returned a failure result")

type uowKey struct{}

// WithUnitOfWork 将工作单元附加到上下文，供处理器注册聚合
func WithUnitOfWork(ctx context.Context, uow shared.UnitOfWork) context.Context {
	return context.WithValue(ctx, uowKey{}, uow)
}

// UnitOfWorkFromContext 从上下文取出当前事务的工作单元
// 处理器通过它调用 RegisterNew/RegisterDirty/RegisterRemoved
func UnitOfWorkFromContext(ctx context.Context) (shared.UnitOfWork, bool) {
	uow, ok := ctx.Value(uowKey{}).(shared.UnitOfWork)
	return uow, ok
}

// TransactionBehavior 事务行为
// 语义:
//  1. 仅 Command 进入事务；Query 与未标记的请求直接放行
//  2. 处理器返回成功结果 → 提交，聚合事件随事务落入 outbox
//  3. 处理器返回失败结果或 error → 回滚，失败结果原样向外传递
type TransactionBehavior struct {
	factory shared.UnitOfWorkFactory
}

func NewTransactionBehavior(factory shared.UnitOfWorkFactory) *TransactionBehavior {
	return &TransactionBehavior{factory: factory}
}

func (*TransactionBehavior) Name() string { return BehaviorTransaction }

func (b *TransactionBehavior) Handle(ctx context.Context, req Request, next Next) (interface{}, error) {
	if _, ok := req.(Command); !ok {
		return next(ctx, req)
	}
	if b.factory == nil {
		return next(ctx, req)
	}

	uow := b.factory.New()

	var res interface{}
	err := uow.Execute(ctx, func(txCtx context.Context) error {
		txCtx = WithUnitOfWork(txCtx, uow)

		r, handlerErr := next(txCtx, req)
		if handlerErr != nil {
			return handlerErr
		}
		res = r

		if outcome, ok := r.(result.Outcome); ok && !outcome.IsSuccess() {
			return errRollbackOnFailure
		}
		return nil
	})

	if errors.Is(err, errRollbackOnFailure) {
		// Rolled back; the business failure result still flows to the caller.
		return res, nil
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}
