// Package memory 内存持久化实现
// 服务于测试与示例；接口语义与真实仓储一致（含乐观锁与 ErrNotFound）
package memory

import (
	"context"
	"sort"
	"sync"

	"archkit/domain/shared"
)

// persistable 仓储关心的聚合根生命周期标记
// shared.BaseAggregate 天然满足
type persistable interface {
	IsNew() bool
	MarkPersisted()
}

// Repository 泛型内存仓储
// fields 将命名字段解析为值，供 Query 条件求值与排序使用
type Repository[T shared.AggregateRoot] struct {
	mu       sync.RWMutex
	items    map[string]T
	versions map[string]int
	fields   func(entity T, name string) (interface{}, bool)
}

// NewRepository 创建内存仓储
// fields 为 nil 时 Query 条件永不匹配（仅 FindByID/Save/Remove 可用）
func NewRepository[T shared.AggregateRoot](fields func(entity T, name string) (interface{}, bool)) *Repository[T] {
	return &Repository[T]{
		items:    make(map[string]T),
		versions: make(map[string]int),
		fields:   fields,
	}
}

func (r *Repository[T]) FindByID(ctx context.Context, id string) (T, error) {
	var zero T
	if ctx.Err() != nil {
		return zero, ctx.Err()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return zero, shared.NewNotFoundError("aggregate")
	}
	return item, nil
}

func (r *Repository[T]) FindOne(ctx context.Context, query *shared.Query) (T, error) {
	var zero T
	matches, err := r.FindAll(ctx, query)
	if err != nil {
		return zero, err
	}
	if len(matches) == 0 {
		return zero, shared.NewNotFoundError("aggregate")
	}
	return matches[0], nil
}

func (r *Repository[T]) FindAll(ctx context.Context, query *shared.Query) ([]T, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if query == nil {
		query = shared.NewQuery()
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}

	matches := r.collect(query)

	shared.SortSlice(query, matches, r.fields)
	return shared.ApplyPaging(query, matches), nil
}

func (r *Repository[T]) Count(ctx context.Context, query *shared.Query) (int64, error) {
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	if query == nil {
		query = shared.NewQuery()
	}
	if err := query.Validate(); err != nil {
		return 0, err
	}
	return int64(len(r.collect(query))), nil
}

// collect 返回匹配条件的聚合，按 ID 排序保证无排序指令时结果稳定
func (r *Repository[T]) collect(query *shared.Query) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.items))
	for id := range r.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	matches := make([]T, 0)
	for _, id := range ids {
		item := r.items[id]
		if len(query.Conditions) > 0 {
			if r.fields == nil {
				continue
			}
			if !query.Matches(func(name string) (interface{}, bool) {
				return r.fields(item, name)
			}) {
				continue
			}
		}
		matches = append(matches, item)
	}
	return matches
}

// FindBySpecification 按谓词规约过滤
func (r *Repository[T]) FindBySpecification(ctx context.Context, spec shared.Specification[T]) ([]T, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	all := r.collect(shared.NewQuery())

	matches := make([]T, 0)
	for _, item := range all {
		if spec == nil || spec.IsSatisfiedBy(ctx, item) {
			matches = append(matches, item)
		}
	}
	return matches, nil
}

// Save 保存聚合根，与 SQL 仓储相同的乐观锁语义：
// 新建时 ID 冲突 → ErrConflict；更新时版本不匹配 → ErrConcurrentModification
func (r *Repository[T]) Save(ctx context.Context, aggregate T) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := aggregate.ID()
	lifecycle, tracked := any(aggregate).(persistable)

	if tracked && lifecycle.IsNew() {
		if _, exists := r.items[id]; exists {
			return shared.NewConflictError("aggregate", "aggregate already exists: "+id)
		}
		r.items[id] = aggregate
		r.versions[id] = aggregate.Version()
		lifecycle.MarkPersisted()
		return nil
	}

	storedVersion, exists := r.versions[id]
	if !exists {
		return shared.NewNotFoundError("aggregate")
	}
	// 更新必须携带比已存储版本更高的版本号（行为方法已 Touch 过）
	if aggregate.Version() <= storedVersion {
		return shared.NewConcurrentModificationError("aggregate", id)
	}

	r.items[id] = aggregate
	r.versions[id] = aggregate.Version()
	return nil
}

func (r *Repository[T]) Remove(ctx context.Context, id string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return shared.NewNotFoundError("aggregate")
	}
	delete(r.items, id)
	delete(r.versions, id)
	return nil
}

var _ shared.Repository[shared.AggregateRoot] = (*Repository[shared.AggregateRoot])(nil)
