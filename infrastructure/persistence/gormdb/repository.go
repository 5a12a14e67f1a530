package gormdb

import (
	"context"
	"errors"
	"fmt"

	"archkit/domain/shared"
	"archkit/infrastructure/persistence"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// Mapper 聚合根与持久化对象(PO)之间的双向转换
// PO 必须包含 id 与 version 列，乐观锁依赖后者
type Mapper[T shared.AggregateRoot, P any] interface {
	ToPO(aggregate T) P
	ToAggregate(po P) (T, error)
}

// persistable 仓储关心的聚合根生命周期标记
type persistable interface {
	IsNew() bool
	MarkPersisted()
}

// Repository 泛型 GORM 仓储
// Query 条件经 Translator 翻译为 SQL；与内存仓储保持相同的
// 乐观锁与 ErrNotFound 语义，用例层无需关心背后是哪种实现
type Repository[T shared.AggregateRoot, P any] struct {
	db         *gorm.DB
	entity     string
	mapper     Mapper[T, P]
	translator *Translator
}

// NewRepository 创建 GORM 仓储。entity 用于错误消息中的聚合名称。
func NewRepository[T shared.AggregateRoot, P any](db *gorm.DB, entity string, mapper Mapper[T, P]) *Repository[T, P] {
	return &Repository[T, P]{
		db:         db,
		entity:     entity,
		mapper:     mapper,
		translator: NewTranslator(),
	}
}

// session 优先使用工作单元注入的事务连接
func (r *Repository[T, P]) session(ctx context.Context) *gorm.DB {
	if tx := persistence.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.db.WithContext(ctx)
}

func (r *Repository[T, P]) FindByID(ctx context.Context, id string) (T, error) {
	var zero T
	var po P

	if err := r.session(ctx).Where("id = ?", id).First(&po).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return zero, shared.NewNotFoundError(r.entity)
		}
		return zero, fmt.Errorf("failed to find %s: %w", r.entity, err)
	}
	return r.mapper.ToAggregate(po)
}

func (r *Repository[T, P]) FindOne(ctx context.Context, query *shared.Query) (T, error) {
	var zero T
	matches, err := r.FindAll(ctx, query)
	if err != nil {
		return zero, err
	}
	if len(matches) == 0 {
		return zero, shared.NewNotFoundError(r.entity)
	}
	return matches[0], nil
}

func (r *Repository[T, P]) FindAll(ctx context.Context, query *shared.Query) ([]T, error) {
	scope, err := r.translator.Scope(query)
	if err != nil {
		return nil, err
	}

	var pos []P
	if err := r.session(ctx).Scopes(scope).Find(&pos).Error; err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", r.entity, err)
	}

	aggregates := make([]T, 0, len(pos))
	for _, po := range pos {
		aggregate, err := r.mapper.ToAggregate(po)
		if err != nil {
			return nil, fmt.Errorf("failed to map %s row: %w", r.entity, err)
		}
		aggregates = append(aggregates, aggregate)
	}
	return aggregates, nil
}

func (r *Repository[T, P]) Count(ctx context.Context, query *shared.Query) (int64, error) {
	scope, err := r.translator.CountScope(query)
	if err != nil {
		return 0, err
	}

	var total int64
	if err := r.session(ctx).Model(new(P)).Scopes(scope).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", r.entity, err)
	}
	return total, nil
}

// Save 保存聚合根
// 新建时 ID 冲突 → ErrConflict；更新时版本不匹配 → ErrConcurrentModification
func (r *Repository[T, P]) Save(ctx context.Context, aggregate T) error {
	session := r.session(ctx)
	po := r.mapper.ToPO(aggregate)
	lifecycle, tracked := any(aggregate).(persistable)

	if tracked && lifecycle.IsNew() {
		if err := session.Create(&po).Error; err != nil {
			if isDuplicateKey(err) {
				return shared.NewConflictError(r.entity, fmt.Sprintf("%s already exists: %s", r.entity, aggregate.ID()))
			}
			return fmt.Errorf("failed to create %s: %w", r.entity, err)
		}
		lifecycle.MarkPersisted()
		return nil
	}

	// 行为方法已 Touch 过版本号，只更新版本号更低的行
	res := session.Model(new(P)).
		Where("id = ? AND version < ?", aggregate.ID(), aggregate.Version()).
		Select("*").
		Updates(po)
	if res.Error != nil {
		return fmt.Errorf("failed to update %s: %w", r.entity, res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := session.Model(new(P)).Where("id = ?", aggregate.ID()).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to update %s: %w", r.entity, err)
		}
		if count == 0 {
			return shared.NewNotFoundError(r.entity)
		}
		return shared.NewConcurrentModificationError(r.entity, aggregate.ID())
	}
	return nil
}

func (r *Repository[T, P]) Remove(ctx context.Context, id string) error {
	res := r.session(ctx).Where("id = ?", id).Delete(new(P))
	if res.Error != nil {
		return fmt.Errorf("failed to delete %s: %w", r.entity, res.Error)
	}
	if res.RowsAffected == 0 {
		return shared.NewNotFoundError(r.entity)
	}
	return nil
}

func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

var _ shared.Repository[shared.AggregateRoot] = (*Repository[shared.AggregateRoot, struct{}])(nil)
