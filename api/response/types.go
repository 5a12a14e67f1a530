package response

import "archkit/pkg/result"

// RequestIDKey 是 gin context 中保存请求 ID 的键。
const RequestIDKey = "request_id"

// Envelope 是统一响应结构，status 字段与用例结果状态一一对应。
type Envelope struct {
	Success   bool           `json:"success"`
	Status    string         `json:"status"`
	Data      interface{}    `json:"data,omitempty"`
	Errors    []result.Error `json:"errors,omitempty"`
	Message   string         `json:"message,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// PaginatedEnvelope 是分页响应结构。
type PaginatedEnvelope struct {
	Success    bool        `json:"success"`
	Status     string      `json:"status"`
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
	RequestID  string      `json:"request_id,omitempty"`
}

// Pagination 表示分页信息。
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// NewPagination 由总数和页参数计算分页信息。
func NewPagination(page, pageSize int, totalItems int64) Pagination {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((totalItems + int64(pageSize) - 1) / int64(pageSize))
	}
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
	}
}
