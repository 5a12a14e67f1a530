package usecase

import (
	"context"
	"runtime/debug"

	"archkit/pkg/logger"
	"archkit/pkg/result"

	"go.uber.org/zap"
)

// RecoveryBehavior 异常恢复行为
// 捕获下游行为与处理器的 panic，转换为 StatusCriticalError 结果
// panic 永远不会穿透管道；真实原因与堆栈只记日志，不外泄给调用方
type RecoveryBehavior struct{}

func NewRecoveryBehavior() RecoveryBehavior { return RecoveryBehavior{} }

func (RecoveryBehavior) Name() string { return BehaviorRecovery }

func (RecoveryBehavior) Handle(ctx context.Context, req Request, next Next) (res interface{}, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error("Use case panic recovered",
				zap.String("request", req.RequestName()),
				zap.Any("panic", recovered),
				zap.String("stack", string(debug.Stack())),
			)
			res = result.FailWith(result.StatusCriticalError,
				result.NewError(result.CodeInternal, "internal error"))
			err = nil
		}
	}()

	return next(ctx, req)
}
