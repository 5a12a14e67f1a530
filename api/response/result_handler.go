/*
Package response - HTTP 响应包装

设计原则:
1. 用例返回 Result，HTTP 层只负责把结果状态翻译成状态码与统一信封
2. 业务失败（校验、权限、冲突）记 Warn，基础设施故障记 Error 并带堆栈
3. 内部错误细节不下发给调用方，只返回通用提示
*/
package response

import (
	stdErrors "errors"
	"net/http"
	"runtime"

	"archkit/domain/shared"
	"archkit/pkg/logger"
	"archkit/pkg/result"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var httpStatusMap = map[result.Status]int{
	result.StatusOk:            http.StatusOK,
	result.StatusCreated:       http.StatusCreated,
	result.StatusNoContent:     http.StatusNoContent,
	result.StatusInvalid:       http.StatusBadRequest,
	result.StatusUnauthorized:  http.StatusUnauthorized,
	result.StatusForbidden:     http.StatusForbidden,
	result.StatusNotFound:      http.StatusNotFound,
	result.StatusConflict:      http.StatusConflict,
	result.StatusError:         http.StatusInternalServerError,
	result.StatusCriticalError: http.StatusInternalServerError,
	result.StatusUnavailable:   http.StatusServiceUnavailable,
}

// HTTPStatus 将结果状态映射为 HTTP 状态码。
func HTTPStatus(status result.Status) int {
	if code, ok := httpStatusMap[status]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// WriteResult 写出用例结果。成功时 data 为结果值，失败时带错误明细。
func WriteResult[T any](c *gin.Context, res result.Result[T]) {
	requestID := GetRequestID(c)
	httpStatus := HTTPStatus(res.Status)

	if res.IsSuccess() {
		if res.Status == result.StatusNoContent {
			c.Status(http.StatusNoContent)
			return
		}
		c.JSON(httpStatus, &Envelope{
			Success:   true,
			Status:    res.Status.String(),
			Data:      res.Value,
			RequestID: requestID,
		})
		return
	}

	errs := res.Errors
	if res.Status == result.StatusCriticalError || res.Status == result.StatusError {
		logFailure(c, requestID, res.Status, errs)
		// 内部错误不向外暴露细节
		errs = []result.Error{result.NewError(result.CodeInternal, "internal server error")}
	}

	c.JSON(httpStatus, &Envelope{
		Success:   false,
		Status:    res.Status.String(),
		Errors:    errs,
		RequestID: requestID,
	})
}

// WritePaginated 写出分页查询结果。
func WritePaginated(c *gin.Context, data interface{}, pagination Pagination) {
	c.JSON(http.StatusOK, &PaginatedEnvelope{
		Success:    true,
		Status:     result.StatusOk.String(),
		Data:       data,
		Pagination: pagination,
		RequestID:  GetRequestID(c),
	})
}

// HandleBindingError 处理参数绑定等框架层错误。
func HandleBindingError(c *gin.Context, err error) {
	requestID := GetRequestID(c)

	logger.Warn("request binding failed",
		zap.String("request_id", requestID),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
		zap.Error(err))

	c.JSON(http.StatusBadRequest, &Envelope{
		Success:   false,
		Status:    result.StatusInvalid.String(),
		Errors:    []result.Error{result.NewError(result.CodeBadRequest, "malformed request body")},
		RequestID: requestID,
	})
}

// HandleDomainError 将领域错误按哨兵错误映射为 HTTP 响应。
// 用例管道之外直接触碰领域层的端点使用。
func HandleDomainError(c *gin.Context, err error) {
	WriteResult(c, domainErrorResult(err))
}

func domainErrorResult(err error) result.Result[struct{}] {
	switch {
	case stdErrors.Is(err, shared.ErrNotFound):
		return result.NotFound[struct{}](err.Error())
	case stdErrors.Is(err, shared.ErrInvalidInput):
		return result.Invalid[struct{}](result.NewError(result.CodeValidation, err.Error()))
	case stdErrors.Is(err, shared.ErrUnauthorized):
		return result.Unauthorized[struct{}](err.Error())
	case stdErrors.Is(err, shared.ErrForbidden):
		return result.Forbidden[struct{}](err.Error())
	case stdErrors.Is(err, shared.ErrConflict), stdErrors.Is(err, shared.ErrConcurrentModification):
		return result.Conflict[struct{}](err.Error())
	case stdErrors.Is(err, shared.ErrUnavailable):
		return result.Unavailable[struct{}](err.Error())
	}
	return result.Fail[struct{}](err.Error())
}

// GetRequestID 读取 gin context 中的请求 ID，不存在时返回空串。
func GetRequestID(c *gin.Context) string {
	if requestID, exists := c.Get(RequestIDKey); exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return ""
}

func logFailure(c *gin.Context, requestID string, status result.Status, errs []result.Error) {
	fields := []zap.Field{
		zap.String("request_id", requestID),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
		zap.String("status", status.String()),
		zap.Strings("stack", captureStack(4)),
	}
	if len(errs) > 0 {
		fields = append(fields, zap.String("error_code", string(errs[0].Code)))
	}
	logger.Error("request failed", fields...)
}

func captureStack(skip int) []string {
	var pcs [16]uintptr
	n := runtime.Callers(skip, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	stack := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		frame, more := frames.Next()
		if frame.Function != "" {
			stack = append(stack, frame.Function)
		}
		if !more {
			break
		}
	}
	return stack
}
