package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/nerdneilsfield/epub-translator/pkg/providers"
	"github.com/nerdneilsfield/epub-translator/pkg/providers/retry"
	goopenai "github.com/sashabaranov/go-openai"
)

// Config OpenAI配置
type Config struct {
	providers.BaseConfig
	RetryConfig retry.RetryConfig `json:"retry_config"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		BaseConfig:  providers.DefaultConfig(),
		RetryConfig: retry.DefaultRetryConfig(),
	}
}

// Client 基于 go-openai 的对话补全客户端
type Client struct {
	config Config
	client *goopenai.Client
}

var (
	_ providers.Backend     = (*Client)(nil)
	_ providers.ModelLister = (*Client)(nil)
)

// New 创建新的 go-openai 客户端
func New(config Config) *Client {
	config.RetryConfig.MaxRetries = config.MaxRetries

	httpClient := &http.Client{
		Timeout:   config.Timeout,
		Transport: &headerTransport{base: retry.NewTransport(nil, config.RetryConfig), headers: config.Headers},
	}

	clientConfig := goopenai.DefaultConfig(config.APIKey)
	clientConfig.HTTPClient = httpClient
	if config.APIEndpoint != "" {
		// go-openai 的路径以斜杠开头，避免出现双斜杠
		clientConfig.BaseURL = strings.TrimSuffix(config.APIEndpoint, "/")
	}

	return &Client{
		config: config,
		client: goopenai.NewClientWithConfig(clientConfig),
	}
}

// Complete 执行对话补全
func (c *Client) Complete(ctx context.Context, req providers.ChatRequest) (string, error) {
	messages := make([]goopenai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		N:           req.N,
	})
	if err != nil {
		return "", wrapError(err)
	}

	if len(resp.Choices) == 0 {
		return "", providers.NewError(providers.KindMalformed, providers.ErrEmptyResponse)
	}

	return resp.Choices[0].Message.Content, nil
}

// ListModels 列出远端可用模型
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	list, err := c.client.ListModels(ctx)
	if err != nil {
		return nil, wrapError(err)
	}

	models := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		models = append(models, m.ID)
	}
	return models, nil
}

// wrapError 将 go-openai 的错误转换为 providers.Error
func wrapError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return providers.NewStatusError(apiErr.HTTPStatusCode, err)
	}

	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode >= 200 && reqErr.HTTPStatusCode < 300 {
			return providers.NewError(providers.KindMalformed, err)
		}
		return providers.NewStatusError(reqErr.HTTPStatusCode, err)
	}

	kind := providers.Classify(err)
	if kind == providers.KindOther && strings.Contains(err.Error(), "invalid character") {
		// 响应体不是合法 JSON
		kind = providers.KindMalformed
	}
	return providers.NewError(kind, fmt.Errorf("openai chat completion failed: %w", err))
}

// headerTransport 为每个请求附加自定义头部
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (h *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(h.headers) == 0 {
		return h.base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}
	return h.base.RoundTrip(req)
}
