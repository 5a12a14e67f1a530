package shared

import "context"

// ReadRepository 聚合根只读仓储接口
// DDD principles:
// 1. Repository only responsible for aggregate root persistence
// 2. Flexible querying goes through Query specifications instead of
//    one repository method per filter combination
// 3. Include context.Context to support timeout, cancellation and transaction
type ReadRepository[T AggregateRoot] interface {
	// FindByID Find aggregate root by ID
	FindByID(ctx context.Context, id string) (T, error)

	// FindOne Find a single aggregate root matching the query
	// Returns ErrNotFound when nothing matches
	FindOne(ctx context.Context, query *Query) (T, error)

	// FindAll Find all aggregate roots matching the query,
	// honoring its ordering and paging
	FindAll(ctx context.Context, query *Query) ([]T, error)

	// Count Count aggregate roots matching the query (paging ignored)
	Count(ctx context.Context, query *Query) (int64, error)
}

// WriteRepository 聚合根写仓储接口
type WriteRepository[T AggregateRoot] interface {
	// Save Save or update the aggregate root (including all entities
	// within the aggregate). IsNew() decides create vs update; updates
	// must enforce optimistic locking on Version()
	Save(ctx context.Context, aggregate T) error

	// Remove Delete the aggregate root by ID
	Remove(ctx context.Context, id string) error
}

// Repository 聚合根完整仓储接口
type Repository[T AggregateRoot] interface {
	ReadRepository[T]
	WriteRepository[T]
}
