package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// listColumns 列表查询需要的列，markdown用于计算幻灯片数量
const listColumns = "id,title,markdown,created_at,updated_at"

// RESTGateway 基于PostgREST风格托管后端的网关实现
type RESTGateway struct {
	client  *http.Client
	config  *RESTConfig
	headers map[string]string
	logger  *logrus.Logger
}

// apiError PostgREST返回的错误体
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

// NewRESTGateway 创建REST网关
func NewRESTGateway(config *RESTConfig, logger *logrus.Logger) *RESTGateway {
	if config == nil {
		config = DefaultRESTConfig()
	}
	if config.Table == "" {
		config.Table = "presentations"
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	client := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        50,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	headers := map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
		"User-Agent":   "SlideAI-Go-Client/1.0",
	}
	if config.APIKey != "" {
		headers["apikey"] = config.APIKey
		headers["Authorization"] = "Bearer " + config.APIKey
	}

	return &RESTGateway{
		client:  client,
		config:  config,
		headers: headers,
		logger:  logger,
	}
}

// List 列出用户的文稿
func (g *RESTGateway) List(ctx context.Context, userID string) ([]Summary, error) {
	query := url.Values{}
	query.Set("select", listColumns)
	query.Set("user_id", "eq."+userID)
	query.Set("order", "updated_at.desc")

	var records []Presentation
	if err := g.do(ctx, "list", http.MethodGet, query, nil, false, &records); err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(records))
	for i := range records {
		summaries = append(summaries, Summarize(&records[i]))
	}
	return summaries, nil
}

// Get 获取单个文稿
func (g *RESTGateway) Get(ctx context.Context, userID, id string) (*Presentation, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("id", "eq."+id)
	query.Set("user_id", "eq."+userID)

	var records []Presentation
	if err := g.do(ctx, "get", http.MethodGet, query, nil, false, &records); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return &records[0], nil
}

// Create 创建文稿，ID和时间戳由后端分配
func (g *RESTGateway) Create(ctx context.Context, userID string, p NewPresentation) (*Presentation, error) {
	body := map[string]interface{}{
		"title":    p.Title,
		"markdown": p.Markdown,
		"user_id":  userID,
	}
	if p.Settings != nil {
		body["settings"] = p.Settings
	}

	var records []Presentation
	if err := g.do(ctx, "create", http.MethodPost, nil, body, true, &records); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, newError("create", "create presentation failed: empty response")
	}
	return &records[0], nil
}

// Update 部分更新文稿
// 后端不支持原子自增，未携带版本号时先读取当前版本再做条件更新
func (g *RESTGateway) Update(ctx context.Context, userID, id string, patch Patch) (*Presentation, error) {
	var expected int64
	if patch.Version != nil {
		expected = *patch.Version
	} else {
		current, err := g.Get(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		expected = current.Version
	}

	body := map[string]interface{}{
		"version":    expected + 1,
		"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
	}
	if patch.Title != nil {
		body["title"] = *patch.Title
	}
	if patch.Markdown != nil {
		body["markdown"] = *patch.Markdown
	}
	if patch.Settings != nil {
		body["settings"] = patch.Settings
	}

	query := url.Values{}
	query.Set("id", "eq."+id)
	query.Set("user_id", "eq."+userID)
	query.Set("version", fmt.Sprintf("eq.%d", expected))

	var records []Presentation
	if err := g.do(ctx, "update", http.MethodPatch, query, body, true, &records); err != nil {
		return nil, err
	}
	if len(records) > 0 {
		return &records[0], nil
	}

	// 没有行被更新：区分不存在和版本冲突
	if _, err := g.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	return nil, ErrConflict
}

// Delete 删除文稿
func (g *RESTGateway) Delete(ctx context.Context, userID, id string) error {
	query := url.Values{}
	query.Set("id", "eq."+id)
	query.Set("user_id", "eq."+userID)

	var records []Presentation
	if err := g.do(ctx, "delete", http.MethodDelete, query, nil, true, &records); err != nil {
		return err
	}
	if len(records) == 0 {
		return ErrNotFound
	}
	return nil
}

// endpoint 拼接表的请求地址
func (g *RESTGateway) endpoint(query url.Values) string {
	u := strings.TrimRight(g.config.BaseURL, "/") + "/" + g.config.Table
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// do 执行请求并解析响应，失败时统一包装为*Error
func (g *RESTGateway) do(ctx context.Context, op, method string, query url.Values, data interface{}, representation bool, result interface{}) error {
	var payload []byte
	if data != nil {
		var err error
		payload, err = json.Marshal(data)
		if err != nil {
			return newError(op, "failed to marshal request data: %v", err)
		}
	}

	// 非幂等的POST不重试，避免重复创建
	retries := g.config.MaxRetries
	if method == http.MethodPost {
		retries = 0
	}

	newRequest := func() (*http.Request, error) {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, g.endpoint(query), body)
		if err != nil {
			return nil, err
		}
		for key, value := range g.headers {
			req.Header.Set(key, value)
		}
		if representation {
			req.Header.Set("Prefer", "return=representation")
		}
		return req, nil
	}

	resp, err := g.doWithRetry(ctx, op, retries, newRequest)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return newError(op, "failed to read response body: %v", err)
	}

	if resp.StatusCode >= 400 {
		return g.decodeError(op, resp.StatusCode, body)
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return newError(op, "failed to unmarshal response JSON: %v", err)
		}
	}
	return nil
}

// doWithRetry 发送请求，传输层失败时按递增间隔重试
func (g *RESTGateway) doWithRetry(ctx context.Context, op string, retries int, newRequest func() (*http.Request, error)) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, newError(op, "request context canceled: %v", ctx.Err())
			case <-time.After(g.config.RetryDelay * time.Duration(attempt)):
			}
		}

		req, err := newRequest()
		if err != nil {
			return nil, newError(op, "failed to create request: %v", err)
		}

		resp, err := g.client.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		g.logger.WithFields(logrus.Fields{
			"op":      op,
			"attempt": attempt + 1,
		}).Warnf("Gateway request failed: %v", err)
	}

	return nil, newError(op, "HTTP request failed: %v", lastErr)
}

// decodeError 将错误响应转换为网关错误
func (g *RESTGateway) decodeError(op string, status int, body []byte) error {
	if status == http.StatusNotFound {
		return ErrNotFound
	}

	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		msg := apiErr.Message
		if apiErr.Details != "" {
			msg += ": " + apiErr.Details
		}
		return newError(op, "%s", msg)
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		text = http.StatusText(status)
	}
	return newError(op, "API error (status code: %d): %s", status, text)
}
