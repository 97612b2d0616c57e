package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	// DefaultAPIBase OpenAI 兼容接口的默认地址
	DefaultAPIBase = "https://api.openai.com/v1"
	// DefaultModel 默认使用的模型
	DefaultModel = "gpt-3.5-turbo"
	// DefaultTemperature 翻译时使用的采样温度
	DefaultTemperature = 0.3
	// DefaultMaxTokens 单次补全的最大输出长度
	DefaultMaxTokens = 2000

	// APITypeOpenAI 使用 go-openai 客户端
	APITypeOpenAI = "openai"
	// APITypeOpenAIOfficial 使用官方 openai-go SDK
	APITypeOpenAIOfficial = "openai-official"

	// TargetLanguagePlaceholder 自定义提示词中的目标语言占位符
	TargetLanguagePlaceholder = "{target_language}"

	// DefaultSystemPrompt 默认系统提示词模板
	DefaultSystemPrompt = "You are a professional translator. " +
		"Translate the following text to " + TargetLanguagePlaceholder + ". " +
		"Only return the translated text without any additional explanation or notes."

	envPrefix      = "EPUB_TRANSLATOR"
	configFileName = ".epub-translator"
)

// SupportedModels 内置的可选模型列表
var SupportedModels = []string{
	"gpt-3.5-turbo",
	"gpt-4",
	"gpt-4-turbo",
	"gpt-4o",
	"gpt-4o-mini",
}

// Config 保存一次翻译运行的全部配置
type Config struct {
	APIKey          string  `mapstructure:"api_key"`
	APIBase         string  `mapstructure:"api_base"`
	APIType         string  `mapstructure:"api_type"` // openai 或 openai-official
	Model           string  `mapstructure:"model"`
	SourceLang      string  `mapstructure:"source_lang"`
	TargetLang      string  `mapstructure:"target_lang"`
	Prompt          string  `mapstructure:"prompt"`      // 自定义系统提示词，可包含 {target_language}
	PromptFile      string  `mapstructure:"prompt_file"` // TOML 格式的提示词文件
	Temperature     float64 `mapstructure:"temperature"` // 0 表示使用 DefaultTemperature
	MaxTokens       int     `mapstructure:"max_tokens"`
	RequestTimeout  int     `mapstructure:"request_timeout"` // 请求超时时间（秒），0 表示不限制
	MaxRetries      int     `mapstructure:"max_retries"`
	FilterReasoning bool    `mapstructure:"filter_reasoning"` // 过滤推理模型的思考过程
	Debug           bool    `mapstructure:"debug"`
	LogFile         string  `mapstructure:"log_file"`
}

// NewDefaultConfig 创建默认配置
func NewDefaultConfig() *Config {
	return &Config{
		APIBase:         DefaultAPIBase,
		APIType:         APITypeOpenAI,
		Model:           DefaultModel,
		SourceLang:      AutoLanguage,
		TargetLang:      "zh",
		Temperature:     DefaultTemperature,
		MaxTokens:       DefaultMaxTokens,
		RequestTimeout:  0,
		MaxRetries:      0,
		FilterReasoning: true,
	}
}

// LoadConfig 从文件和环境变量加载配置
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(configFileName)
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	// 兼容 OpenAI 官方环境变量
	if err := v.BindEnv("api_key", envPrefix+"_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind api key env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		// 找不到配置文件时使用默认值
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.PromptFile != "" && cfg.Prompt == "" {
		prompt, err := LoadPromptFile(cfg.PromptFile)
		if err != nil {
			return nil, err
		}
		cfg.Prompt = prompt
	}

	return &cfg, nil
}

// SaveConfig 将配置写入文件，API 密钥不落盘
func SaveConfig(cfg *Config, configPath string) error {
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		configPath = filepath.Join(home, configFileName+".yaml")
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.MergeConfigMap(structToMap(cfg)); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return err
	}

	return v.WriteConfig()
}

// setDefaults 设置默认值，同时让 AutomaticEnv 能识别所有键
func setDefaults(v *viper.Viper) {
	d := NewDefaultConfig()
	v.SetDefault("api_key", "")
	v.SetDefault("api_base", d.APIBase)
	v.SetDefault("api_type", d.APIType)
	v.SetDefault("model", d.Model)
	v.SetDefault("source_lang", d.SourceLang)
	v.SetDefault("target_lang", d.TargetLang)
	v.SetDefault("prompt", "")
	v.SetDefault("prompt_file", "")
	v.SetDefault("temperature", d.Temperature)
	v.SetDefault("max_tokens", d.MaxTokens)
	v.SetDefault("request_timeout", d.RequestTimeout)
	v.SetDefault("max_retries", d.MaxRetries)
	v.SetDefault("filter_reasoning", d.FilterReasoning)
	v.SetDefault("debug", false)
	v.SetDefault("log_file", "")
}

// structToMap 将配置转换为 map
func structToMap(cfg *Config) map[string]interface{} {
	return map[string]interface{}{
		"api_base":         cfg.APIBase,
		"api_type":         cfg.APIType,
		"model":            cfg.Model,
		"source_lang":      cfg.SourceLang,
		"target_lang":      cfg.TargetLang,
		"prompt":           cfg.Prompt,
		"prompt_file":      cfg.PromptFile,
		"temperature":      cfg.Temperature,
		"max_tokens":       cfg.MaxTokens,
		"request_timeout":  cfg.RequestTimeout,
		"max_retries":      cfg.MaxRetries,
		"filter_reasoning": cfg.FilterReasoning,
		"debug":            cfg.Debug,
		"log_file":         cfg.LogFile,
	}
}

// MaskedAPIKey 遮蔽 API 密钥，只显示前4位和后4位
func (c *Config) MaskedAPIKey() string {
	if c.APIKey == "" {
		return ""
	}
	if len(c.APIKey) <= 8 {
		return "***"
	}
	return c.APIKey[:4] + "..." + c.APIKey[len(c.APIKey)-4:]
}
