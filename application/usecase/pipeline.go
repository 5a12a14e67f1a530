package usecase

import (
	"fmt"
	"time"

	"archkit/config"
	"archkit/domain/shared"

	"go.opentelemetry.io/otel/metric"
)

// 行为名称常量
// 配置文件中的 pipeline.order / pipeline.disabled 引用这些名字
const (
	BehaviorValidation    = "validation"
	BehaviorAuthorization = "authorization"
	BehaviorLogging       = "logging"
	BehaviorMetrics       = "metrics"
	BehaviorRecovery      = "recovery"
	BehaviorIdempotency   = "idempotency"
	BehaviorTransaction   = "transaction"
)

// DefaultOrder 默认行为顺序（外层到内层）
// 校验与授权最先执行以尽早拒绝非法请求；
// 恢复行为位于日志/指标之内，保证 panic 被转换后仍可观测；
// 幂等在事务之外，重放命中时完全不开启事务
var DefaultOrder = []string{
	BehaviorValidation,
	BehaviorAuthorization,
	BehaviorLogging,
	BehaviorMetrics,
	BehaviorRecovery,
	BehaviorIdempotency,
	BehaviorTransaction,
}

// PipelineDeps 行为链装配依赖
// 任一依赖为空时对应行为降级：幂等/事务行为直接放行
type PipelineDeps struct {
	Meter            metric.Meter
	IdempotencyStore IdempotencyStore
	IdempotencyTTL   time.Duration
	UnitOfWork       shared.UnitOfWorkFactory
}

// BuildPipeline 按配置组装行为链
// cfg 为 nil 或 Order 为空时使用 DefaultOrder；Disabled 中的行为被剔除
// Order 中出现未知行为名是装配错误
func BuildPipeline(cfg *config.PipelineConfig, deps PipelineDeps) ([]Behavior, error) {
	metricsBehavior, err := NewMetricsBehavior(deps.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics behavior: %w", err)
	}

	available := map[string]Behavior{
		BehaviorValidation:    NewValidationBehavior(),
		BehaviorAuthorization: NewAuthorizationBehavior(),
		BehaviorLogging:       NewLoggingBehavior(),
		BehaviorMetrics:       metricsBehavior,
		BehaviorRecovery:      NewRecoveryBehavior(),
		BehaviorIdempotency:   NewIdempotencyBehavior(deps.IdempotencyStore, deps.IdempotencyTTL),
		BehaviorTransaction:   NewTransactionBehavior(deps.UnitOfWork),
	}

	order := DefaultOrder
	disabled := map[string]bool{}
	if cfg != nil {
		if len(cfg.Order) > 0 {
			order = cfg.Order
		}
		for _, name := range cfg.Disabled {
			disabled[name] = true
		}
	}

	seen := map[string]bool{}
	behaviors := make([]Behavior, 0, len(order))
	for _, name := range order {
		behavior, ok := available[name]
		if !ok {
			return nil, fmt.Errorf("unknown pipeline behavior %q", name)
		}
		if seen[name] {
			return nil, fmt.Errorf("pipeline behavior %q listed twice", name)
		}
		seen[name] = true
		if disabled[name] {
			continue
		}
		behaviors = append(behaviors, behavior)
	}

	return behaviors, nil
}
