package gormdb

import (
	"context"
	"errors"
	"strings"
	"time"

	"archkit/application/usecase"
	"archkit/infrastructure/persistence"
	"archkit/pkg/result"

	"gorm.io/gorm"
)

// IdempotencyKeyPO 幂等键持久化对象
// 主键冲突即认领失败，依赖数据库唯一约束保证并发安全
type IdempotencyKeyPO struct {
	Key       string    `gorm:"primaryKey;size:128;column:idem_key"`
	Completed bool      `gorm:"not null"`
	Status    int       `gorm:"not null"`
	Payload   string    `gorm:"type:json"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (IdempotencyKeyPO) TableName() string {
	return "idempotency_keys"
}

// IdempotencyStore GORM 实现的幂等存储
type IdempotencyStore struct {
	db *gorm.DB
}

func NewIdempotencyStore(db *gorm.DB) *IdempotencyStore {
	return &IdempotencyStore{db: db}
}

func (s *IdempotencyStore) getDB(ctx context.Context) *gorm.DB {
	if tx := persistence.TxFromContext(ctx); tx != nil {
		return tx
	}
	return s.db.WithContext(ctx)
}

func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "Duplicate entry") ||
		strings.Contains(errStr, "1062")
}

// Begin 认领幂等键
// 先尝试插入；唯一约束冲突时读取已有记录：
// 未过期 → 返回已有记录；已过期 → 接管该键重新执行
func (s *IdempotencyStore) Begin(ctx context.Context, key string, ttl time.Duration) (*usecase.IdempotencyRecord, bool, error) {
	db := s.getDB(ctx)
	now := time.Now()

	po := IdempotencyKeyPO{
		Key:       key,
		Completed: false,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.Create(&po).Error; err == nil {
		return nil, false, nil
	} else if !isDuplicateKeyError(err) {
		return nil, false, err
	}

	var existing IdempotencyKeyPO
	if err := db.First(&existing, "idem_key = ?", key).Error; err != nil {
		return nil, false, err
	}

	if existing.ExpiresAt.Before(now) {
		// Expired claim: take it over for a fresh execution.
		res := db.Model(&IdempotencyKeyPO{}).
			Where("idem_key = ? AND expires_at < ?", key, now).
			Updates(map[string]interface{}{
				"completed":  false,
				"status":     0,
				"payload":    "",
				"expires_at": now.Add(ttl),
			})
		if res.Error != nil {
			return nil, false, res.Error
		}
		if res.RowsAffected == 0 {
			// Someone else took it over first.
			return &usecase.IdempotencyRecord{Key: key, Completed: false}, true, nil
		}
		return nil, false, nil
	}

	return &usecase.IdempotencyRecord{
		Key:       existing.Key,
		Completed: existing.Completed,
		Status:    result.Status(existing.Status),
		Payload:   []byte(existing.Payload),
		ExpiresAt: existing.ExpiresAt,
	}, true, nil
}

// Complete 记录成功结果
func (s *IdempotencyStore) Complete(ctx context.Context, key string, status result.Status, payload []byte) error {
	res := s.getDB(ctx).Model(&IdempotencyKeyPO{}).
		Where("idem_key = ?", key).
		Updates(map[string]interface{}{
			"completed": true,
			"status":    int(status),
			"payload":   string(payload),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("idempotency key not found: " + key)
	}
	return nil
}

// Release 释放未完成的认领
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.getDB(ctx).
		Where("idem_key = ? AND completed = ?", key, false).
		Delete(&IdempotencyKeyPO{}).Error
}

// PurgeExpired 清理过期键，供后台定期调用
func (s *IdempotencyStore) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.getDB(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&IdempotencyKeyPO{})
	return res.RowsAffected, res.Error
}

var _ usecase.IdempotencyStore = (*IdempotencyStore)(nil)
