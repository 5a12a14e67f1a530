package usecase

import (
	"context"
	"encoding/json"
	"time"

	"archkit/pkg/logger"
	"archkit/pkg/result"

	"go.uber.org/zap"
)

// IdempotencyRecord 幂等键记录
type IdempotencyRecord struct {
	Key       string
	Completed bool
	Status    result.Status
	Payload   []byte
	ExpiresAt time.Time
}

// IdempotencyStore 幂等存储端口
// 应用层定义接口，基础设施层提供实现（memory / gormdb）
type IdempotencyStore interface {
	// Begin 认领幂等键
	// 键已被认领时返回 (已有记录, true, nil)；本次认领成功返回 (nil, false, nil)
	// 过期的记录视为未认领
	Begin(ctx context.Context, key string, ttl time.Duration) (*IdempotencyRecord, bool, error)

	// Complete 记录成功结果，供后续重复请求重放
	Complete(ctx context.Context, key string, status result.Status, payload []byte) error

	// Release 释放认领（执行失败时调用，允许调用方重试）
	Release(ctx context.Context, key string) error
}

// IdempotencyBehavior 幂等行为
// 语义:
//  1. 已完成的键在 TTL 内重放当初的结果，处理器不再执行
//  2. 执行中的键收到重复请求 → Conflict 短路
//  3. 仅成功结果被记录；失败会释放键，允许重试
type IdempotencyBehavior struct {
	store IdempotencyStore
	ttl   time.Duration
}

func NewIdempotencyBehavior(store IdempotencyStore, ttl time.Duration) *IdempotencyBehavior {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyBehavior{store: store, ttl: ttl}
}

func (*IdempotencyBehavior) Name() string { return BehaviorIdempotency }

func (b *IdempotencyBehavior) Handle(ctx context.Context, req Request, next Next) (interface{}, error) {
	idempotent, ok := req.(Idempotent)
	if !ok || b.store == nil {
		return next(ctx, req)
	}

	key := idempotent.IdempotencyKey()
	if key == "" {
		return next(ctx, req)
	}

	record, claimed, err := b.store.Begin(ctx, key, b.ttl)
	if err != nil {
		return nil, err
	}

	if claimed {
		if record != nil && record.Completed {
			return result.Replayed{Status: record.Status, Payload: record.Payload}, nil
		}
		// Claimed but not completed: a concurrent execution is in flight.
		return result.FailWith(result.StatusConflict,
			result.NewError(result.CodeConflict, "request with this idempotency key is already in progress")), nil
	}

	res, err := next(ctx, req)

	outcome, isOutcome := res.(result.Outcome)
	if err != nil || !isOutcome || !outcome.IsSuccess() {
		if releaseErr := b.store.Release(ctx, key); releaseErr != nil {
			logger.Warn("Failed to release idempotency key",
				zap.String("key", key), zap.Error(releaseErr))
		}
		return res, err
	}

	payload, marshalErr := json.Marshal(res)
	if marshalErr != nil {
		// Result is not replayable; release the key rather than store garbage.
		if releaseErr := b.store.Release(ctx, key); releaseErr != nil {
			logger.Warn("Failed to release idempotency key",
				zap.String("key", key), zap.Error(releaseErr))
		}
		return res, nil
	}

	if completeErr := b.store.Complete(ctx, key, outcome.ResultStatus(), payload); completeErr != nil {
		logger.Warn("Failed to record idempotency key",
			zap.String("key", key), zap.Error(completeErr))
	}

	return res, nil
}
