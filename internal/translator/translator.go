package translator

import (
	"context"
	"errors"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/nerdneilsfield/epub-translator/internal/config"
	"github.com/nerdneilsfield/epub-translator/pkg/providers"
	"go.uber.org/zap"
)

// snippetWidth 日志中原文片段的最大显示宽度
const snippetWidth = 60

// ErrEmptyCompletion 模型返回空文本
var ErrEmptyCompletion = errors.New("empty completion")

// Options 翻译器配置
type Options struct {
	Model           string
	TargetLang      string // 目标语言代码
	Prompt          string // 自定义系统提示词，为空时使用默认模板
	Temperature     float32
	MaxTokens       int
	FilterReasoning bool
}

// OptionsFromConfig 从运行配置构建翻译器配置
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Model:           cfg.Model,
		TargetLang:      cfg.TargetLang,
		Prompt:          cfg.Prompt,
		Temperature:     float32(cfg.Temperature),
		MaxTokens:       cfg.MaxTokens,
		FilterReasoning: cfg.FilterReasoning,
	}
}

// Outcome 一个片段的最终译文
// 失败时 Text 为原文，Translated 为 false
type Outcome struct {
	Text       string
	Translated bool
	Failure    providers.ErrorKind
	Err        error
}

// Translator 逐段调用模型翻译
// 任何后端错误都不会向上传播，而是回退为原文
type Translator struct {
	backend      providers.Backend
	opts         Options
	systemPrompt string
	log          *zap.Logger
}

// New 创建翻译器
// Temperature 和 MaxTokens 为 0 时使用默认值，go-openai 也会省略为 0 的温度
func New(backend providers.Backend, langs *config.Languages, opts Options, log *zap.Logger) *Translator {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Temperature == 0 {
		opts.Temperature = config.DefaultTemperature
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = config.DefaultMaxTokens
	}

	return &Translator{
		backend:      backend,
		opts:         opts,
		systemPrompt: config.BuildSystemPrompt(langs.Name(opts.TargetLang), opts.Prompt),
		log:          log,
	}
}

// With 返回日志带有附加字段的翻译器副本
func (t *Translator) With(fields ...zap.Field) *Translator {
	c := *t
	c.log = t.log.With(fields...)
	return &c
}

// SystemPrompt 返回实际使用的系统提示词
func (t *Translator) SystemPrompt() string {
	return t.systemPrompt
}

// Translate 翻译一段文本
// 原文去掉首尾空白后为空时直接返回，不调用后端也不触发 tick；
// 否则无论成功与否都恰好调用一次 tick
func (t *Translator) Translate(ctx context.Context, text string, tick func()) Outcome {
	if strings.TrimSpace(text) == "" {
		return Outcome{Text: text}
	}

	outcome := t.complete(ctx, text)
	if tick != nil {
		tick()
	}
	return outcome
}

func (t *Translator) complete(ctx context.Context, text string) Outcome {
	req := providers.ChatRequest{
		Model: t.opts.Model,
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: t.systemPrompt},
			{Role: providers.RoleUser, Content: text},
		},
		Temperature: t.opts.Temperature,
		MaxTokens:   t.opts.MaxTokens,
		N:           1,
	}

	content, err := t.backend.Complete(ctx, req)
	if err != nil {
		return t.fallback(text, providers.Classify(err), err)
	}

	if t.opts.FilterReasoning {
		content = RemoveReasoning(content)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return t.fallback(text, providers.KindMalformed, ErrEmptyCompletion)
	}

	t.log.Debug("片段翻译完成",
		zap.String("原文", snippet(text)),
		zap.String("译文", snippet(content)),
	)
	return Outcome{Text: content, Translated: true}
}

func (t *Translator) fallback(text string, kind providers.ErrorKind, err error) Outcome {
	t.log.Warn("翻译失败，保留原文",
		zap.String("类型", kind.String()),
		zap.String("原文", snippet(text)),
		zap.Error(err),
	)
	return Outcome{Text: text, Failure: kind, Err: err}
}

// snippet 截断过长的文本用于日志
func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	return runewidth.Truncate(text, snippetWidth, "...")
}
