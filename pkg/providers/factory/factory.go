package factory

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/nerdneilsfield/epub-translator/pkg/providers"
	"github.com/nerdneilsfield/epub-translator/pkg/providers/openai"
)

// ErrUnsupportedProvider 没有注册的客户端类型
var ErrUnsupportedProvider = errors.New("unsupported provider type")

// Client 同时支持对话补全和列出模型的客户端
type Client interface {
	providers.Backend
	providers.ModelLister
}

// Constructor 根据基础配置创建客户端
type Constructor func(config providers.BaseConfig) Client

// ProviderFactory 按类型名创建客户端
type ProviderFactory struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// New 创建新的提供商工厂，已注册 openai 和 openai-official
func New() *ProviderFactory {
	f := &ProviderFactory{
		constructors: make(map[string]Constructor),
	}
	_ = f.Register("openai", createOpenAIProvider)
	_ = f.Register("openai-official", createOfficialProvider)
	return f
}

// Register 注册客户端类型
func (f *ProviderFactory) Register(name string, c Constructor) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.constructors[name]; exists {
		return fmt.Errorf("provider %s already registered", name)
	}
	f.constructors[name] = c
	return nil
}

// CreateProvider 根据类型名创建客户端
func (f *ProviderFactory) CreateProvider(providerType string, config providers.BaseConfig) (Client, error) {
	f.mu.RLock()
	c, ok := f.constructors[providerType]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, providerType)
	}

	// 如果没有设置地址，使用默认值
	if config.APIEndpoint == "" {
		config.APIEndpoint = providers.DefaultConfig().APIEndpoint
	}
	return c(config), nil
}

// List 列出已注册的类型（排序后）
func (f *ProviderFactory) List() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.constructors))
	for name := range f.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// createOpenAIProvider 基于 go-openai 的客户端
func createOpenAIProvider(base providers.BaseConfig) Client {
	config := openai.DefaultConfig()
	config.BaseConfig = base
	return openai.New(config)
}

// createOfficialProvider 基于官方 SDK 的客户端
func createOfficialProvider(base providers.BaseConfig) Client {
	return openai.NewOfficial(base)
}
