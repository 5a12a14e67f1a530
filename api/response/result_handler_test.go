package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"archkit/domain/shared"
	"archkit/pkg/result"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)
	c.Set(RequestIDKey, "req-123")
	return c, recorder
}

func decodeEnvelope(t *testing.T, recorder *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(recorder.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	return env
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		status result.Status
		want   int
	}{
		{result.StatusOk, http.StatusOK},
		{result.StatusCreated, http.StatusCreated},
		{result.StatusNoContent, http.StatusNoContent},
		{result.StatusInvalid, http.StatusBadRequest},
		{result.StatusUnauthorized, http.StatusUnauthorized},
		{result.StatusForbidden, http.StatusForbidden},
		{result.StatusNotFound, http.StatusNotFound},
		{result.StatusConflict, http.StatusConflict},
		{result.StatusError, http.StatusInternalServerError},
		{result.StatusCriticalError, http.StatusInternalServerError},
		{result.StatusUnavailable, http.StatusServiceUnavailable},
		{result.Status(99), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := HTTPStatus(tt.status); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.status, got, tt.want)
		}
	}

	t.Log("✓ HTTP status mapping tests passed")
}

func TestWriteResultSuccess(t *testing.T) {
	c, recorder := newTestContext(t)

	WriteResult(c, result.Ok(map[string]string{"name": "demo"}))

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	env := decodeEnvelope(t, recorder)
	if !env.Success {
		t.Error("envelope Success should be true")
	}
	if env.RequestID != "req-123" {
		t.Errorf("RequestID = %s, want req-123", env.RequestID)
	}
	if env.Status != result.StatusOk.String() {
		t.Errorf("Status = %s, want %s", env.Status, result.StatusOk.String())
	}

	t.Log("✓ WriteResult success tests passed")
}

func TestWriteResultNoContent(t *testing.T) {
	c, recorder := newTestContext(t)

	WriteResult(c, result.NoContent[struct{}]())
	// gin 在 handler 返回后才真正写出状态码，测试环境需手动触发
	c.Writer.WriteHeaderNow()

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", recorder.Code)
	}
	if recorder.Body.Len() != 0 {
		t.Errorf("body should be empty, got %q", recorder.Body.String())
	}

	t.Log("✓ WriteResult no content tests passed")
}

func TestWriteResultValidationFailure(t *testing.T) {
	c, recorder := newTestContext(t)

	WriteResult(c, result.Invalid[struct{}](result.FieldError("title", "title is required")))

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", recorder.Code)
	}
	env := decodeEnvelope(t, recorder)
	if env.Success {
		t.Error("envelope Success should be false")
	}
	if len(env.Errors) != 1 || env.Errors[0].Field != "title" {
		t.Errorf("unexpected errors: %+v", env.Errors)
	}

	t.Log("✓ WriteResult validation failure tests passed")
}

func TestWriteResultMasksInternalErrors(t *testing.T) {
	// 内部错误细节不应出现在响应里
	for _, res := range []result.Result[struct{}]{
		result.Fail[struct{}]("db connection string leaked"),
		result.Critical[struct{}]("panic: secret detail"),
	} {
		c, recorder := newTestContext(t)
		WriteResult(c, res)

		if recorder.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", recorder.Code)
		}
		env := decodeEnvelope(t, recorder)
		if len(env.Errors) != 1 {
			t.Fatalf("expected exactly one masked error, got %d", len(env.Errors))
		}
		if env.Errors[0].Message != "internal server error" {
			t.Errorf("Message = %s, want internal server error", env.Errors[0].Message)
		}
		if strings.Contains(recorder.Body.String(), "leaked") || strings.Contains(recorder.Body.String(), "secret") {
			t.Error("internal error details leaked into the response body")
		}
	}

	t.Log("✓ Internal error masking tests passed")
}

func TestWritePaginated(t *testing.T) {
	c, recorder := newTestContext(t)

	WritePaginated(c, []string{"a", "b"}, NewPagination(2, 10, 25))

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	var env PaginatedEnvelope
	if err := json.Unmarshal(recorder.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode paginated envelope: %v", err)
	}
	if !env.Success {
		t.Error("envelope Success should be true")
	}
	if env.Pagination.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", env.Pagination.TotalPages)
	}
	if env.Pagination.TotalItems != 25 {
		t.Errorf("TotalItems = %d, want 25", env.Pagination.TotalItems)
	}

	t.Log("✓ WritePaginated tests passed")
}

func TestHandleBindingError(t *testing.T) {
	c, recorder := newTestContext(t)

	HandleBindingError(c, fmt.Errorf("invalid character 'x'"))

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", recorder.Code)
	}
	env := decodeEnvelope(t, recorder)
	if env.Success {
		t.Error("envelope Success should be false")
	}
	if len(env.Errors) != 1 || env.Errors[0].Code != result.CodeBadRequest {
		t.Errorf("unexpected errors: %+v", env.Errors)
	}

	t.Log("✓ HandleBindingError tests passed")
}

func TestHandleDomainError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", shared.NewNotFoundError("task"), http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("lookup: %w", shared.ErrNotFound), http.StatusNotFound},
		{"conflict", shared.ErrConflict, http.StatusConflict},
		{"concurrent modification", shared.ErrConcurrentModification, http.StatusConflict},
		{"unauthorized", shared.ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", shared.ErrForbidden, http.StatusForbidden},
		{"invalid input", shared.ErrInvalidInput, http.StatusBadRequest},
		{"unavailable", shared.ErrUnavailable, http.StatusServiceUnavailable},
		{"unknown", fmt.Errorf("something else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, recorder := newTestContext(t)
			HandleDomainError(c, tt.err)
			if recorder.Code != tt.want {
				t.Errorf("status = %d, want %d", recorder.Code, tt.want)
			}
		})
	}

	t.Log("✓ HandleDomainError tests passed")
}

func TestGetRequestIDMissing(t *testing.T) {
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)

	if id := GetRequestID(c); id != "" {
		t.Errorf("GetRequestID = %q, want empty string", id)
	}

	t.Log("✓ GetRequestID fallback tests passed")
}
