package shared

import (
	"time"

	"github.com/google/uuid"
)

// AggregateRoot 聚合根接口
// 聚合根是聚合的入口点，维护聚合的一致性边界
// 特性：
// 1. 有全局唯一标识
// 2. 维护聚合内部的不变量
// 3. 所有修改必须通过聚合根进行
// 4. 负责记录领域事件，由基础设施层在持久化后发布
type AggregateRoot interface {
	// ID 返回聚合根的全局唯一标识
	ID() string

	// Version 返回当前版本号，用于乐观锁并发控制
	Version() int

	// PullEvents 获取并清空聚合根记录的领域事件
	// 标准领域事件模式：聚合根记录事件，仓储在保存后发布事件
	PullEvents() []DomainEvent
}

// IsAggregateRoot 类型标记函数
// 用于编译时检查某个类型是否实现了AggregateRoot接口
// 使用方法：var _ = IsAggregateRoot(&Invoice{})
func IsAggregateRoot(agg AggregateRoot) AggregateRoot {
	return agg
}

// Entity 实体接口
// 实体与值对象的区别：
// 1. 实体有唯一标识（ID）
// 2. 实体的生命周期较长
// 3. 通过标识判断相等性（即使属性相同，ID不同就是不同的实体）
type Entity interface {
	ID() string
}

// ValueObject 值对象接口
// 值对象的特征：没有唯一标识、不可变、通过属性值判断相等性
// 注意：Go语言中没有完美的方式强制不可变性，需要通过约定保证
type ValueObject interface {
	// Equals 比较两个值对象是否相等
	Equals(other interface{}) bool
}

// BaseAggregate 可嵌入的聚合根基类
// 承载所有聚合根共有的状态：标识、版本号、新建标记、事件列表
//
// 使用方式：业务聚合根以值方式嵌入 BaseAggregate，
// 并在行为方法中调用 Touch() / Record() 维护版本号与事件
type BaseAggregate struct {
	id        string
	version   int
	isNew     bool
	createdAt time.Time
	updatedAt time.Time
	events    []DomainEvent
}

// NewBaseAggregate 创建新聚合根基类
// id 为空时自动生成 UUID
func NewBaseAggregate(id string) BaseAggregate {
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now()
	return BaseAggregate{
		id:        id,
		version:   0,
		isNew:     true,
		createdAt: now,
		updatedAt: now,
		events:    make([]DomainEvent, 0),
	}
}

// RehydrateBaseAggregate 从持久化状态重建聚合根基类
// 仅限仓储实现使用，不应在应用层调用
func RehydrateBaseAggregate(id string, version int, createdAt, updatedAt time.Time) BaseAggregate {
	return BaseAggregate{
		id:        id,
		version:   version,
		isNew:     false,
		createdAt: createdAt,
		updatedAt: updatedAt,
		events:    make([]DomainEvent, 0),
	}
}

func (b *BaseAggregate) ID() string           { return b.id }
func (b *BaseAggregate) Version() int         { return b.version }
func (b *BaseAggregate) CreatedAt() time.Time { return b.createdAt }
func (b *BaseAggregate) UpdatedAt() time.Time { return b.updatedAt }

// IsNew 是否为尚未持久化的新聚合根
// 仓储据此判断 INSERT / UPDATE
func (b *BaseAggregate) IsNew() bool { return b.isNew }

// Touch 记录一次状态变更：版本号自增并更新修改时间
// 每个行为方法在修改状态后必须调用
func (b *BaseAggregate) Touch() {
	b.version++
	b.updatedAt = time.Now()
}

// Record 记录领域事件，等待仓储保存后统一发布
func (b *BaseAggregate) Record(event DomainEvent) {
	b.events = append(b.events, event)
}

// PullEvents 获取并清空事件列表
func (b *BaseAggregate) PullEvents() []DomainEvent {
	events := make([]DomainEvent, len(b.events))
	copy(events, b.events)
	b.events = b.events[:0]
	return events
}

// MarkPersisted 持久化完成后由仓储调用，清除新建标记
func (b *BaseAggregate) MarkPersisted() { b.isNew = false }

// IncrementVersion 乐观锁更新成功后由仓储调用，同步内存版本号
func (b *BaseAggregate) IncrementVersion() { b.version++ }
