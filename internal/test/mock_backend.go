package test

import (
	"context"

	"github.com/nerdneilsfield/epub-translator/pkg/providers"
	"github.com/stretchr/testify/mock"
)

// MockBackend 是一个模拟的补全后端
type MockBackend struct {
	mock.Mock
}

// Complete 执行完成请求
func (m *MockBackend) Complete(ctx context.Context, req providers.ChatRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// FuncBackend 用函数实现的补全后端
type FuncBackend func(ctx context.Context, req providers.ChatRequest) (string, error)

// Complete 调用函数本身
func (f FuncBackend) Complete(ctx context.Context, req providers.ChatRequest) (string, error) {
	return f(ctx, req)
}

// UserText 返回请求中的用户消息
func UserText(req providers.ChatRequest) string {
	for _, m := range req.Messages {
		if m.Role == providers.RoleUser {
			return m.Content
		}
	}
	return ""
}
