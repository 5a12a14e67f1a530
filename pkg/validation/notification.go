// Package validation 提供校验错误收集器（Notification 模式）
// 一次请求的所有校验错误先收集再统一上报，而不是遇到第一个错误就返回
package validation

import (
	"fmt"
	"strings"

	"archkit/pkg/result"
)

// Notification 校验错误收集器
// 非并发安全：一个 Notification 服务于一次请求的校验过程
type Notification struct {
	errors []result.Error
}

func New() *Notification {
	return &Notification{}
}

// Add 记录一条字段校验错误
func (n *Notification) Add(field, message string) *Notification {
	n.errors = append(n.errors, result.FieldError(field, message))
	return n
}

// Addf 记录一条带格式化消息的字段校验错误
func (n *Notification) Addf(field, format string, args ...interface{}) *Notification {
	return n.Add(field, fmt.Sprintf(format, args...))
}

// AddIf 条件为真时记录错误，便于串联写法
func (n *Notification) AddIf(cond bool, field, message string) *Notification {
	if cond {
		n.Add(field, message)
	}
	return n
}

// AddError 记录一条已构造好的结构化错误
func (n *Notification) AddError(err result.Error) *Notification {
	n.errors = append(n.errors, err)
	return n
}

// Append 合并另一个收集器的全部错误（如嵌套值对象的校验结果）
func (n *Notification) Append(other *Notification) *Notification {
	if other != nil {
		n.errors = append(n.errors, other.errors...)
	}
	return n
}

// HasErrors 是否收集到错误
func (n *Notification) HasErrors() bool {
	return len(n.errors) > 0
}

// Errors 返回收集到的错误副本
func (n *Notification) Errors() []result.Error {
	errs := make([]result.Error, len(n.errors))
	copy(errs, n.errors)
	return errs
}

// Error 实现 error 接口，汇总所有错误消息
func (n *Notification) Error() string {
	if !n.HasErrors() {
		return ""
	}
	parts := make([]string, 0, len(n.errors))
	for _, e := range n.errors {
		if e.Field != "" {
			parts = append(parts, e.Field+": "+e.Message)
			continue
		}
		parts = append(parts, e.Message)
	}
	return strings.Join(parts, "; ")
}
