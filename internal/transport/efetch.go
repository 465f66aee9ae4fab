// Package transport 封装对后端 REST API 的 HTTP 调用
// 负责拼接地址、校验状态码、解析 { data, message } 信封，不做任何重试
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"contact_book/pkg/constants"
	"contact_book/pkg/errorx"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config 单次请求的配置
// Method 为空时使用 GET
type Config struct {
	Method string
	Header http.Header
	Body   io.Reader
}

// Observer 请求观测接口，由 metrics 包实现
type Observer interface {
	ObserveRequest(method string, status int, cost time.Duration)
}

// Options 创建 Client 的参数
type Options struct {
	BaseURL    string        // 后端地址，如 http://localhost:4000
	Timeout    time.Duration // 单次请求超时，0 表示 30s
	HTTPClient *http.Client  // 可选，覆盖默认 http.Client
	Observer   Observer      // 可选
}

// Client 请求执行器，无可变状态，可并发使用
type Client struct {
	httpClient *http.Client
	baseURL    string
	observer   Observer
}

// New 创建请求执行器
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		observer:   opts.Observer,
	}
}

// Execute 执行请求并返回信封中的 data 字段
// 状态码在 [200, 300) 之外或网络失败时返回 *errorx.RequestError
// data 缺失或响应不是合法信封时返回 nil，由调用方按"空数据"处理
func (c *Client) Execute(ctx context.Context, rawURL string, cfg Config) (json.RawMessage, error) {
	target, err := c.resolve(rawURL)
	if err != nil {
		return nil, errorx.WrapRequestError(err, "request failed")
	}
	method := cfg.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, target, cfg.Body)
	if err != nil {
		return nil, errorx.WrapRequestError(err, "request failed")
	}
	for key, values := range cfg.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	requestID := RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set(constants.REQUEST_ID_HEADER, requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, 0, time.Since(start))
		zap.L().Error("efetch network error",
			zap.String("method", method),
			zap.String("url", target),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return nil, errorx.WrapRequestError(err, "request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, constants.MAX_RESPONSE_SIZE))
	cost := time.Since(start)
	c.observe(method, resp.StatusCode, cost)
	if err != nil {
		zap.L().Error("efetch read body error",
			zap.String("method", method),
			zap.String("url", target),
			zap.Int("status", resp.StatusCode),
			zap.Error(err),
		)
		return nil, errorx.WrapRequestError(err, fmt.Sprintf("read response with status %d", resp.StatusCode))
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		reqErr := errorx.NewRequestError(resp.StatusCode, ErrorMessage(body))
		zap.L().Error("efetch failed",
			zap.String("method", method),
			zap.String("url", target),
			zap.Int("status", resp.StatusCode),
			zap.String("request_id", requestID),
			zap.Duration("cost", cost),
			zap.String("error", reqErr.Msg),
		)
		return nil, reqErr
	}

	zap.L().Debug("efetch ok",
		zap.String("method", method),
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID),
		zap.Duration("cost", cost),
	)
	return DecodeEnvelope(body).Data, nil
}

// resolve 相对路径拼接 baseURL，绝对地址原样使用
func (c *Client) resolve(rawURL string) (string, error) {
	if strings.TrimSpace(rawURL) == "" {
		return "", fmt.Errorf("empty url")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	if u.IsAbs() {
		return rawURL, nil
	}
	if !strings.HasPrefix(rawURL, "/") {
		rawURL = "/" + rawURL
	}
	return c.baseURL + rawURL, nil
}

func (c *Client) observe(method string, status int, cost time.Duration) {
	if c.observer != nil {
		c.observer.ObserveRequest(method, status, cost)
	}
}
