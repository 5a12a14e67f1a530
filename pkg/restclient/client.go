/*
Package restclient - 下游 REST 服务调用包装

设计原则:
1. 下游的预期失败（4xx）映射为 Result 状态，与用例管道共用同一结果模型
2. 网络错误与 5xx 视为基础设施故障，交给 resty 的重试机制
3. 调用方拿到的永远是 Result，不需要同时处理 error 与状态码两套分支
*/
package restclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"archkit/pkg/result"

	resty "github.com/go-resty/resty/v2"
)

type Config struct {
	BaseURL          string            `mapstructure:"base_url"`
	Timeout          time.Duration     `mapstructure:"timeout"`
	RetryCount       int               `mapstructure:"retry_count"`
	RetryWaitTime    time.Duration     `mapstructure:"retry_wait_time"`
	RetryMaxWaitTime time.Duration     `mapstructure:"retry_max_wait_time"`
	Headers          map[string]string `mapstructure:"headers"`
}

// Client resty 客户端包装
type Client struct {
	http *resty.Client
}

func New(cfg Config) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL)

	if cfg.Timeout > 0 {
		httpClient.SetTimeout(cfg.Timeout)
	}
	if cfg.RetryCount > 0 {
		httpClient.SetRetryCount(cfg.RetryCount)
		if cfg.RetryWaitTime > 0 {
			httpClient.SetRetryWaitTime(cfg.RetryWaitTime)
		}
		if cfg.RetryMaxWaitTime > 0 {
			httpClient.SetRetryMaxWaitTime(cfg.RetryMaxWaitTime)
		}
		// Retry only on transport errors and 5xx, never on business 4xx.
		httpClient.AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err != nil || resp.StatusCode() >= http.StatusInternalServerError
		})
	}
	for k, v := range cfg.Headers {
		httpClient.SetHeader(k, v)
	}

	return &Client{http: httpClient}
}

// R exposes a raw resty request for cases the typed helpers do not cover
func (c *Client) R(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx)
}

// Get 发起 GET 请求并将响应体解码到 T
func Get[T any](ctx context.Context, c *Client, path string) result.Result[T] {
	var value T
	resp, err := c.http.R().SetContext(ctx).SetResult(&value).Get(path)
	return toResult(resp, err, value)
}

// Post 发起 POST 请求，body 序列化为 JSON，响应体解码到 T
func Post[T any](ctx context.Context, c *Client, path string, body interface{}) result.Result[T] {
	var value T
	resp, err := c.http.R().SetContext(ctx).SetBody(body).SetResult(&value).Post(path)
	return toResult(resp, err, value)
}

// Put 发起 PUT 请求，body 序列化为 JSON，响应体解码到 T
func Put[T any](ctx context.Context, c *Client, path string, body interface{}) result.Result[T] {
	var value T
	resp, err := c.http.R().SetContext(ctx).SetBody(body).SetResult(&value).Put(path)
	return toResult(resp, err, value)
}

// Delete 发起 DELETE 请求
func Delete(ctx context.Context, c *Client, path string) result.Result[struct{}] {
	resp, err := c.http.R().SetContext(ctx).Delete(path)
	return toResult(resp, err, struct{}{})
}

func toResult[T any](resp *resty.Response, err error, value T) result.Result[T] {
	if err != nil {
		return result.Unavailable[T]("downstream request failed: " + err.Error())
	}

	status := StatusFromHTTP(resp.StatusCode())
	if status.IsSuccess() {
		return result.Result[T]{Status: status, Value: value}
	}

	message := fmt.Sprintf("downstream returned %d", resp.StatusCode())
	if body := resp.String(); body != "" && len(body) <= 512 {
		message = message + ": " + body
	}
	return result.Result[T]{
		Status: status,
		Errors: []result.Error{result.NewError(codeFromStatus(status), message)},
	}
}

// StatusFromHTTP 将 HTTP 状态码映射为业务结果状态
// api/response 中的反向映射与此保持对称
func StatusFromHTTP(code int) result.Status {
	switch code {
	case http.StatusOK:
		return result.StatusOk
	case http.StatusCreated:
		return result.StatusCreated
	case http.StatusNoContent:
		return result.StatusNoContent
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return result.StatusInvalid
	case http.StatusUnauthorized:
		return result.StatusUnauthorized
	case http.StatusForbidden:
		return result.StatusForbidden
	case http.StatusNotFound:
		return result.StatusNotFound
	case http.StatusConflict:
		return result.StatusConflict
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return result.StatusUnavailable
	}
	if code >= 200 && code < 300 {
		return result.StatusOk
	}
	return result.StatusError
}

func codeFromStatus(status result.Status) result.Code {
	switch status {
	case result.StatusInvalid:
		return result.CodeValidation
	case result.StatusUnauthorized:
		return result.CodeUnauthorized
	case result.StatusForbidden:
		return result.CodeForbidden
	case result.StatusNotFound:
		return result.CodeNotFound
	case result.StatusConflict:
		return result.CodeConflict
	case result.StatusUnavailable:
		return result.CodeUnavailable
	}
	return result.CodeInternal
}
