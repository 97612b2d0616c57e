package providers

import (
	"context"
	"time"
)

// 消息角色
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// BaseConfig 基础配置
type BaseConfig struct {
	// API配置
	APIKey      string `json:"api_key,omitempty"`
	APIEndpoint string `json:"api_endpoint,omitempty"`

	// 超时和重试，0 表示不限制或不重试
	Timeout    time.Duration `json:"timeout"`
	MaxRetries int           `json:"max_retries"`

	// 自定义头部
	Headers map[string]string `json:"headers,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() BaseConfig {
	return BaseConfig{
		APIEndpoint: "https://api.openai.com/v1",
		Headers:     make(map[string]string),
	}
}

// Message 对话消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest 一次对话补全请求
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	N           int       `json:"n"`
}

// Backend 对话补全后端
// 返回第一个候选的文本内容，不做任何裁剪
type Backend interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// ModelLister 可以列出远端模型的后端
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}
