package usecase

import (
	"context"

	"archkit/pkg/validation"
)

// Request 用例请求标记接口
// 一个请求对象代表一次业务操作，经由中介者分发到唯一的处理器
type Request interface {
	// RequestName 请求的稳定名称，用于日志、指标与处理器注册诊断
	RequestName() string
}

// Command 写用例标记：事务行为会将其处理器包裹在工作单元中执行
type Command interface {
	Request
	isCommand()
}

// Query 读用例标记：不进入事务
type Query interface {
	Request
	isQuery()
}

// CommandBase 嵌入业务命令以获得 Command 标记
type CommandBase struct{}

func (CommandBase) isCommand() {}

// QueryBase 嵌入业务查询以获得 Query 标记
type QueryBase struct{}

func (QueryBase) isQuery() {}

// ============================================================================
// 请求可选契约
// 请求实现以下接口即可接入对应的管道行为；未实现则该行为直接放行
// ============================================================================

// Validatable 请求自校验契约，由校验行为调用
type Validatable interface {
	// Validate 收集本请求的全部校验错误
	// 返回 nil 或空 Notification 表示通过
	Validate(ctx context.Context) *validation.Notification
}

// Authorizable 请求授权契约，由授权行为调用
// 返回的权限列表必须全部被当前 Principal 持有
type Authorizable interface {
	RequiredPermissions() []string
}

// Idempotent 幂等请求契约，由幂等行为调用
// 返回空字符串表示本次调用不启用幂等保护
type Idempotent interface {
	IdempotencyKey() string
}
