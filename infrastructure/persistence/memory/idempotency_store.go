package memory

import (
	"context"
	"sync"
	"time"

	"archkit/application/usecase"
	"archkit/pkg/result"
)

// IdempotencyStore 内存幂等存储
// 单进程内有效；跨进程幂等使用 gormdb.IdempotencyStore
type IdempotencyStore struct {
	mu      sync.Mutex
	records map[string]*usecase.IdempotencyRecord
}

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{
		records: make(map[string]*usecase.IdempotencyRecord),
	}
}

func (s *IdempotencyStore) Begin(ctx context.Context, key string, ttl time.Duration) (*usecase.IdempotencyRecord, bool, error) {
	if ctx.Err() != nil {
		return nil, false, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if existing, ok := s.records[key]; ok && existing.ExpiresAt.After(now) {
		copied := *existing
		return &copied, true, nil
	}

	s.records[key] = &usecase.IdempotencyRecord{
		Key:       key,
		Completed: false,
		ExpiresAt: now.Add(ttl),
	}
	return nil, false, nil
}

func (s *IdempotencyStore) Complete(ctx context.Context, key string, status result.Status, payload []byte) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[key]
	if !ok {
		return nil
	}
	record.Completed = true
	record.Status = status
	record.Payload = payload
	return nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record, ok := s.records[key]; ok && !record.Completed {
		delete(s.records, key)
	}
	return nil
}

// PurgeExpired 清理过期键
func (s *IdempotencyStore) PurgeExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	purged := 0
	for key, record := range s.records {
		if record.ExpiresAt.Before(now) {
			delete(s.records, key)
			purged++
		}
	}
	return purged
}

var _ usecase.IdempotencyStore = (*IdempotencyStore)(nil)
