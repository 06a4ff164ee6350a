package gateway

import (
	"time"
)

// RESTConfig 托管REST后端的连接配置
type RESTConfig struct {
	BaseURL    string        // REST接口基础URL，例如 https://xxx.supabase.co/rest/v1
	APIKey     string        // 服务端密钥，同时作为apikey和Bearer令牌发送
	Table      string        // 文稿表名
	Timeout    time.Duration // 请求超时时间
	MaxRetries int           // 最大重试次数，只对幂等请求生效
	RetryDelay time.Duration // 重试间隔
}

// DefaultRESTConfig 返回默认配置
func DefaultRESTConfig() *RESTConfig {
	return &RESTConfig{
		BaseURL:    "http://localhost:3000",
		Table:      "presentations",
		Timeout:    15 * time.Second,
		MaxRetries: 2,
		RetryDelay: 500 * time.Millisecond,
	}
}

// WithBaseURL 设置基础URL
func (c *RESTConfig) WithBaseURL(url string) *RESTConfig {
	c.BaseURL = url
	return c
}

// WithAPIKey 设置服务端密钥
func (c *RESTConfig) WithAPIKey(key string) *RESTConfig {
	c.APIKey = key
	return c
}

// WithRetry 设置重试参数
func (c *RESTConfig) WithRetry(maxRetries int, retryDelay time.Duration) *RESTConfig {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
	return c
}
