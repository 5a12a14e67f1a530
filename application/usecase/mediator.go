/*
Package usecase - 用例执行管道

一次用例调用的完整路径:

	Send[T](ctx, mediator, request)
	  → 行为链（校验 → 授权 → 日志 → 指标 → 异常恢复 → 幂等 → 事务）
	  → 唯一的业务处理器
	  → result.Result[T]

设计原则:
1. 一个请求类型对应且仅对应一个处理器；重复注册与缺失处理器都是装配错误
2. 行为链是类型无关的：行为通过 result.Outcome 观察结果，
   通过 result.Failure 短路，永远不需要知道载荷类型
3. 短路语义：任一行为不调用 next 即终止执行，下游行为与处理器均不运行
4. 预期内的业务失败走 Result 状态；error 只表达基础设施故障
*/
package usecase

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"archkit/pkg/result"
)

// Next 调用链中的下一环（后续行为或最终处理器）
type Next func(ctx context.Context, req Request) (interface{}, error)

// Behavior 管道行为 - 包裹在处理器外的横切关注点
// Handle 可以在调用 next 前后加工，也可以不调用 next 直接短路
type Behavior interface {
	Name() string
	Handle(ctx context.Context, req Request, next Next) (interface{}, error)
}

// Handler 类型化的用例处理器
type Handler[R Request, T any] interface {
	Handle(ctx context.Context, req R) result.Result[T]
}

// HandlerFunc 将普通函数适配为 Handler
type HandlerFunc[R Request, T any] func(ctx context.Context, req R) result.Result[T]

func (f HandlerFunc[R, T]) Handle(ctx context.Context, req R) result.Result[T] {
	return f(ctx, req)
}

// Mediator 请求/响应中介者
// 维护请求类型到处理器的注册表，并以固定顺序的行为链包裹每次分发
type Mediator struct {
	mu        sync.RWMutex
	handlers  map[reflect.Type]Next
	behaviors []Behavior
}

// Option 中介者装配选项
type Option func(*Mediator)

// WithBehaviors 设置行为链（按外层到内层的顺序）
func WithBehaviors(behaviors ...Behavior) Option {
	return func(m *Mediator) {
		m.behaviors = behaviors
	}
}

// NewMediator 创建中介者
func NewMediator(opts ...Option) *Mediator {
	m := &Mediator{
		handlers: make(map[reflect.Type]Next),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Use 在行为链末尾追加一个行为（最内层）
func (m *Mediator) Use(b Behavior) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.behaviors = append(m.behaviors, b)
}

// Register 注册请求处理器
// 一个请求类型只允许一个处理器，重复注册返回错误
func Register[R Request, T any](m *Mediator, handler Handler[R, T]) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	var zero R
	reqType := reflect.TypeOf(zero)
	if reqType == nil {
		return fmt.Errorf("cannot register handler for untyped request")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.handlers[reqType]; exists {
		return fmt.Errorf("handler already registered for request type %s", reqType)
	}

	m.handlers[reqType] = func(ctx context.Context, req Request) (interface{}, error) {
		typed, ok := req.(R)
		if !ok {
			return nil, fmt.Errorf("request type mismatch: want %s, got %T", reqType, req)
		}
		return handler.Handle(ctx, typed), nil
	}
	return nil
}

// MustRegister 注册处理器，失败即 panic（用于启动期装配）
func MustRegister[R Request, T any](m *Mediator, handler Handler[R, T]) {
	if err := Register[R, T](m, handler); err != nil {
		panic(err)
	}
}

// dispatch 查找处理器并构建调用链
// 行为链从右到左折叠：behaviors[0] 位于最外层
func (m *Mediator) dispatch(ctx context.Context, req Request) (interface{}, error) {
	if req == nil {
		return nil, fmt.Errorf("request cannot be nil")
	}

	m.mu.RLock()
	handler, ok := m.handlers[reflect.TypeOf(req)]
	behaviors := m.behaviors
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no handler registered for request %s (%T)", req.RequestName(), req)
	}

	chain := handler
	for i := len(behaviors) - 1; i >= 0; i-- {
		behavior := behaviors[i]
		next := chain
		chain = func(ctx context.Context, req Request) (interface{}, error) {
			return behavior.Handle(ctx, req, next)
		}
	}

	return chain(ctx, req)
}

// Send 分发请求并将管道结果转换为类型化结果
// 所有失败路径（短路、处理器失败、基础设施错误）都折叠进 Result
func Send[T any](ctx context.Context, m *Mediator, req Request) result.Result[T] {
	return result.From[T](m.dispatch(ctx, req))
}
