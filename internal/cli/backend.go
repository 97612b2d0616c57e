package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/nerdneilsfield/epub-translator/internal/config"
	"github.com/nerdneilsfield/epub-translator/pkg/providers"
	"github.com/nerdneilsfield/epub-translator/pkg/providers/factory"
)

// newBackend 按 api_type 创建客户端
func newBackend(cfg *config.Config) (factory.Client, error) {
	base := providers.DefaultConfig()
	base.APIKey = cfg.APIKey
	if cfg.APIBase != "" {
		base.APIEndpoint = cfg.APIBase
	}
	base.Timeout = time.Duration(cfg.RequestTimeout) * time.Second
	base.MaxRetries = cfg.MaxRetries

	apiType := cfg.APIType
	if apiType == "" {
		apiType = config.APITypeOpenAI
	}

	client, err := factory.New().CreateProvider(apiType, base)
	if errors.Is(err, factory.ErrUnsupportedProvider) {
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownAPIType, cfg.APIType)
	}
	return client, err
}
