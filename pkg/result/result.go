/*
Package result - 统一业务结果模型

设计原则:
1. 预期内的业务失败（校验、权限、未找到、冲突）通过 Result 状态表达，
   不使用 error 控制业务流程；error 仅用于基础设施故障
2. 成功状态的 Result 不携带错误；失败状态至少携带一条结构化错误
3. Result 不包含 HTTP 状态码，传输层映射在 api/response 完成
4. 管道行为不关心处理器的载荷类型，通过 Outcome 接口与 Failure
   载体实现类型无关的短路
*/
package result

import (
	"encoding/json"
	"fmt"
)

// Status 业务结果状态枚举
type Status int

const (
	StatusOk Status = iota
	StatusCreated
	StatusNoContent
	StatusInvalid
	StatusUnauthorized
	StatusForbidden
	StatusNotFound
	StatusConflict
	StatusError
	StatusCriticalError
	StatusUnavailable
)

var statusNames = map[Status]string{
	StatusOk:            "ok",
	StatusCreated:       "created",
	StatusNoContent:     "no_content",
	StatusInvalid:       "invalid",
	StatusUnauthorized:  "unauthorized",
	StatusForbidden:     "forbidden",
	StatusNotFound:      "not_found",
	StatusConflict:      "conflict",
	StatusError:         "error",
	StatusCriticalError: "critical_error",
	StatusUnavailable:   "unavailable",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// IsSuccess 是否为成功状态
func (s Status) IsSuccess() bool {
	switch s {
	case StatusOk, StatusCreated, StatusNoContent:
		return true
	}
	return false
}

// Code 结构化错误码
type Code string

const (
	CodeInternal       Code = "INTERNAL_ERROR"
	CodeBadRequest     Code = "BAD_REQUEST"
	CodeUnauthorized   Code = "UNAUTHORIZED"
	CodeForbidden      Code = "FORBIDDEN"
	CodeNotFound       Code = "NOT_FOUND"
	CodeConflict       Code = "CONFLICT"
	CodeTooManyRequest Code = "TOO_MANY_REQUESTS"
	CodeValidation     Code = "VALIDATION_ERROR"
	CodeUnavailable    Code = "SERVICE_UNAVAILABLE"
)

// Severity 错误严重级别
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Error 结构化业务错误
type Error struct {
	Code     Code     `json:"code"`
	Message  string   `json:"message"`
	Field    string   `json:"field,omitempty"`
	Severity Severity `json:"severity,omitempty"`
}

// NewError 创建结构化错误，默认 error 级别
func NewError(code Code, message string) Error {
	return Error{Code: code, Message: message, Severity: SeverityError}
}

// FieldError 创建携带字段名的校验错误
func FieldError(field, message string) Error {
	return Error{Code: CodeValidation, Message: message, Field: field, Severity: SeverityError}
}

// Outcome 类型无关的结果视图
// 管道行为（日志、指标、事务）通过它观察处理结果，而无需知道载荷类型
type Outcome interface {
	ResultStatus() Status
	ResultErrors() []Error
	IsSuccess() bool
}

// Result 带载荷的业务结果
// 字段导出以支持 JSON 序列化（幂等重放需要完整往返）
type Result[T any] struct {
	Status Status  `json:"status"`
	Value  T       `json:"value"`
	Errors []Error `json:"errors,omitempty"`
}

func (r Result[T]) ResultStatus() Status  { return r.Status }
func (r Result[T]) ResultErrors() []Error { return r.Errors }
func (r Result[T]) IsSuccess() bool       { return r.Status.IsSuccess() }

// FirstError 返回第一个错误；无错误时返回零值
func (r Result[T]) FirstError() Error {
	if len(r.Errors) == 0 {
		return Error{}
	}
	return r.Errors[0]
}

// ============================================================================
// 成功构造函数
// ============================================================================

func Ok[T any](value T) Result[T] {
	return Result[T]{Status: StatusOk, Value: value}
}

func Created[T any](value T) Result[T] {
	return Result[T]{Status: StatusCreated, Value: value}
}

func NoContent[T any]() Result[T] {
	return Result[T]{Status: StatusNoContent}
}

// ============================================================================
// 失败构造函数
// 每个失败状态携带至少一条结构化错误
// ============================================================================

func Invalid[T any](errs ...Error) Result[T] {
	if len(errs) == 0 {
		errs = []Error{NewError(CodeValidation, "validation failed")}
	}
	return Result[T]{Status: StatusInvalid, Errors: errs}
}

func Unauthorized[T any](message string) Result[T] {
	return Result[T]{Status: StatusUnauthorized, Errors: []Error{NewError(CodeUnauthorized, message)}}
}

func Forbidden[T any](message string) Result[T] {
	return Result[T]{Status: StatusForbidden, Errors: []Error{NewError(CodeForbidden, message)}}
}

func NotFound[T any](message string) Result[T] {
	return Result[T]{Status: StatusNotFound, Errors: []Error{NewError(CodeNotFound, message)}}
}

func Conflict[T any](message string) Result[T] {
	return Result[T]{Status: StatusConflict, Errors: []Error{NewError(CodeConflict, message)}}
}

func Fail[T any](message string) Result[T] {
	return Result[T]{Status: StatusError, Errors: []Error{NewError(CodeInternal, message)}}
}

func Critical[T any](message string) Result[T] {
	return Result[T]{Status: StatusCriticalError, Errors: []Error{NewError(CodeInternal, message)}}
}

func Unavailable[T any](message string) Result[T] {
	return Result[T]{Status: StatusUnavailable, Errors: []Error{NewError(CodeUnavailable, message)}}
}

// ============================================================================
// 类型无关的失败载体与重放载体
// ============================================================================

// Failure 类型无关的失败结果
// 管道行为短路时返回 Failure，由 From[T] 转换为对应的 Result[T]
type Failure struct {
	Status Status  `json:"status"`
	Errors []Error `json:"errors"`
}

func (f Failure) ResultStatus() Status  { return f.Status }
func (f Failure) ResultErrors() []Error { return f.Errors }
func (f Failure) IsSuccess() bool       { return f.Status.IsSuccess() }

// FailWith 创建类型无关的失败结果
func FailWith(status Status, errs ...Error) Failure {
	if len(errs) == 0 {
		errs = []Error{NewError(CodeInternal, status.String())}
	}
	return Failure{Status: status, Errors: errs}
}

// Replayed 从幂等存储重放的序列化结果
// Payload 为当初成功结果的完整 JSON，由 From[T] 还原为 Result[T]
type Replayed struct {
	Status  Status
	Payload []byte
}

func (r Replayed) ResultStatus() Status  { return r.Status }
func (r Replayed) ResultErrors() []Error { return nil }
func (r Replayed) IsSuccess() bool       { return r.Status.IsSuccess() }

// ============================================================================
// 类型转换
// ============================================================================

// From 将类型无关的管道结果转换为 Result[T]
// 约定:
//   - Result[T] 原样返回
//   - Failure 转为同状态、同错误的 Result[T]
//   - Replayed 反序列化出当初的 Result[T]
//   - 非空 error 转为 StatusError
//   - 其余情况视为管道装配缺陷，返回 StatusCriticalError
func From[T any](v interface{}, err error) Result[T] {
	if err != nil {
		return Result[T]{Status: StatusError, Errors: []Error{NewError(CodeInternal, err.Error())}}
	}

	switch out := v.(type) {
	case Result[T]:
		return out
	case Failure:
		return Result[T]{Status: out.Status, Errors: out.Errors}
	case Replayed:
		var restored Result[T]
		if unmarshalErr := json.Unmarshal(out.Payload, &restored); unmarshalErr != nil {
			return Critical[T]("failed to restore replayed result: " + unmarshalErr.Error())
		}
		return restored
	}

	return Critical[T](fmt.Sprintf("unexpected pipeline response type %T", v))
}
