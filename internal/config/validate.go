package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

var (
	// ErrMissingAPIKey 未配置 API 密钥
	ErrMissingAPIKey = errors.New("missing API key")
	// ErrInvalidLanguage 语言代码无效
	ErrInvalidLanguage = errors.New("invalid language code")
	// ErrUnknownAPIType 不支持的接口类型
	ErrUnknownAPIType = errors.New("unknown api type")
	// ErrInvalidModel 模型为空
	ErrInvalidModel = errors.New("model must not be empty")
)

// Validate 在任何翻译开始前检查配置，返回的错误属于配置错误
func (c *Config) Validate(langs *Languages, log *zap.Logger) error {
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingAPIKey
	}

	switch c.APIType {
	case APITypeOpenAI, APITypeOpenAIOfficial:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAPIType, c.APIType)
	}

	if err := ValidateTargetLanguage(c.TargetLang); err != nil {
		return err
	}
	if err := ValidateSourceLanguage(c.SourceLang); err != nil {
		return err
	}

	if strings.TrimSpace(c.Model) == "" {
		return ErrInvalidModel
	}

	if log != nil {
		if !langs.IsKnownTarget(c.TargetLang) {
			log.Warn("目标语言不在内置列表中，将直接使用语言代码",
				zap.String("target_lang", c.TargetLang))
		}
		if !IsSupportedModel(c.Model) {
			log.Warn("模型不在内置列表中",
				zap.String("model", c.Model),
				zap.Strings("suggestions", SuggestModels(c.Model)))
		}
	}

	return nil
}

// ValidateTargetLanguage 目标语言必须是合法的 BCP 47 标签，且不能是 auto
func ValidateTargetLanguage(code string) error {
	if code == "" || strings.EqualFold(code, AutoLanguage) {
		return fmt.Errorf("%w: target %q", ErrInvalidLanguage, code)
	}
	if _, err := language.Parse(code); err != nil {
		return fmt.Errorf("%w: target %q: %v", ErrInvalidLanguage, code, err)
	}
	return nil
}

// ValidateSourceLanguage 源语言可以是 auto 或合法的 BCP 47 标签
func ValidateSourceLanguage(code string) error {
	if code == "" || strings.EqualFold(code, AutoLanguage) {
		return nil
	}
	if _, err := language.Parse(code); err != nil {
		return fmt.Errorf("%w: source %q: %v", ErrInvalidLanguage, code, err)
	}
	return nil
}

// IsSupportedModel 判断模型是否在内置列表中
func IsSupportedModel(model string) bool {
	for _, m := range SupportedModels {
		if m == model {
			return true
		}
	}
	return false
}

// SuggestModels 返回与输入相近的内置模型名称
func SuggestModels(model string) []string {
	ranks := fuzzy.RankFindNormalizedFold(model, SupportedModels)
	if len(ranks) == 0 {
		// 反向匹配，例如输入 gpt-4o-2024-08-06
		var out []string
		for _, m := range SupportedModels {
			if fuzzy.MatchNormalizedFold(m, model) {
				out = append(out, m)
			}
		}
		return out
	}
	sort.Sort(ranks)
	out := make([]string, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, r.Target)
	}
	return out
}
