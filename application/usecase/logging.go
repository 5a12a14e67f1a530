package usecase

import (
	"context"
	"time"

	"archkit/pkg/logger"
	"archkit/pkg/result"

	"go.uber.org/zap"
)

// LoggingBehavior 日志行为
// 记录每次用例执行的请求名、结果状态与耗时
// 级别约定：基础设施错误/严重错误 → Error；业务失败 → Warn；成功 → Info
type LoggingBehavior struct{}

func NewLoggingBehavior() LoggingBehavior { return LoggingBehavior{} }

func (LoggingBehavior) Name() string { return BehaviorLogging }

func (LoggingBehavior) Handle(ctx context.Context, req Request, next Next) (interface{}, error) {
	start := time.Now()

	res, err := next(ctx, req)

	elapsed := time.Since(start)
	fields := []zap.Field{
		zap.String("request", req.RequestName()),
		zap.Duration("elapsed", elapsed),
	}

	if err != nil {
		logger.Error("Use case failed", append(fields, zap.Error(err))...)
		return res, err
	}

	outcome, ok := res.(result.Outcome)
	if !ok {
		logger.Info("Use case executed", fields...)
		return res, nil
	}

	status := outcome.ResultStatus()
	fields = append(fields, zap.String("status", status.String()))

	switch {
	case status == result.StatusCriticalError || status == result.StatusError:
		if errs := outcome.ResultErrors(); len(errs) > 0 {
			fields = append(fields, zap.String("error_code", string(errs[0].Code)))
		}
		logger.Error("Use case failed", fields...)
	case !outcome.IsSuccess():
		logger.Warn("Use case rejected", fields...)
	default:
		logger.Info("Use case executed", fields...)
	}

	return res, nil
}
