package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerdneilsfield/epub-translator/pkg/providers"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OfficialClient 基于官方 SDK 的对话补全客户端
type OfficialClient struct {
	config providers.BaseConfig
	client openai.Client
}

var (
	_ providers.Backend     = (*OfficialClient)(nil)
	_ providers.ModelLister = (*OfficialClient)(nil)
)

// NewOfficial 创建新的官方 SDK 客户端
func NewOfficial(config providers.BaseConfig) *OfficialClient {
	// 构建客户端选项
	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(config.MaxRetries),
	}

	// 添加自定义端点（如果有）
	if config.APIEndpoint != "" {
		opts = append(opts, option.WithBaseURL(config.APIEndpoint))
	}

	// 添加自定义头部
	for k, v := range config.Headers {
		opts = append(opts, option.WithHeader(k, v))
	}

	// 设置超时
	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(config.Timeout))
	}

	return &OfficialClient{
		config: config,
		client: openai.NewClient(opts...),
	}
}

// Complete 执行对话补全
func (c *OfficialClient) Complete(ctx context.Context, req providers.ChatRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case providers.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case providers.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Messages:    messages,
		Model:       openai.ChatModel(req.Model),
		Temperature: openai.Float(float64(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.N > 0 {
		params.N = openai.Int(int64(req.N))
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", wrapOfficialError(err)
	}

	// 检查响应
	if len(completion.Choices) == 0 {
		return "", providers.NewError(providers.KindMalformed, providers.ErrEmptyResponse)
	}

	return completion.Choices[0].Message.Content, nil
}

// ListModels 列出远端可用模型
func (c *OfficialClient) ListModels(ctx context.Context) ([]string, error) {
	var models []string
	iter := c.client.Models.ListAutoPaging(ctx)
	for iter.Next() {
		models = append(models, iter.Current().ID)
	}
	if err := iter.Err(); err != nil {
		return nil, wrapOfficialError(err)
	}
	return models, nil
}

// wrapOfficialError 将官方 SDK 的错误转换为 providers.Error
func wrapOfficialError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return providers.NewStatusError(apiErr.StatusCode, err)
	}
	return providers.NewError(providers.Classify(err), fmt.Errorf("openai chat completion failed: %w", err))
}
