package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadConfig(t *testing.T) {
	t.Run("missing explicit file", func(t *testing.T) {
		t.Setenv("EPUB_TRANSLATOR_API_KEY", "")
		t.Setenv("OPENAI_API_KEY", "")

		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		// 显式指定的文件不存在时返回错误
		require.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("from yaml file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")
		content := "api_key: sk-file\nmodel: gpt-4o\ntarget_lang: ja\nmax_tokens: 1000\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		t.Setenv("EPUB_TRANSLATOR_API_KEY", "")
		t.Setenv("OPENAI_API_KEY", "")

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "sk-file", cfg.APIKey)
		assert.Equal(t, "gpt-4o", cfg.Model)
		assert.Equal(t, "ja", cfg.TargetLang)
		assert.Equal(t, 1000, cfg.MaxTokens)
		assert.Equal(t, DefaultAPIBase, cfg.APIBase)
		assert.InDelta(t, DefaultTemperature, cfg.Temperature, 1e-9)
		assert.True(t, cfg.FilterReasoning)
	})

	t.Run("openai env fallback", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("model: gpt-4\n"), 0o644))

		t.Setenv("EPUB_TRANSLATOR_API_KEY", "")
		t.Setenv("OPENAI_API_KEY", "sk-env")

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "sk-env", cfg.APIKey)
	})

	t.Run("prompt file", func(t *testing.T) {
		dir := t.TempDir()
		promptPath := filepath.Join(dir, "prompt.toml")
		require.NoError(t, os.WriteFile(promptPath, []byte(`prompt = "Render in {target_language}."`), 0o644))

		path := filepath.Join(dir, "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("prompt_file: "+promptPath+"\n"), 0o644))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "Render in {target_language}.", cfg.Prompt)
	})
}

func TestValidate(t *testing.T) {
	langs := DefaultLanguages()
	log := zap.NewNop()

	valid := func() *Config {
		cfg := NewDefaultConfig()
		cfg.APIKey = "sk-test"
		return cfg
	}

	assert.NoError(t, valid().Validate(langs, log))

	cfg := valid()
	cfg.APIKey = "  "
	assert.True(t, errors.Is(cfg.Validate(langs, log), ErrMissingAPIKey))

	cfg = valid()
	cfg.TargetLang = "auto"
	assert.True(t, errors.Is(cfg.Validate(langs, log), ErrInvalidLanguage))

	cfg = valid()
	cfg.TargetLang = "not a language"
	assert.True(t, errors.Is(cfg.Validate(langs, log), ErrInvalidLanguage))

	cfg = valid()
	cfg.SourceLang = "en"
	cfg.TargetLang = "pt-BR"
	assert.NoError(t, cfg.Validate(langs, log))

	cfg = valid()
	cfg.APIType = "anthropic"
	assert.True(t, errors.Is(cfg.Validate(langs, log), ErrUnknownAPIType))

	cfg = valid()
	cfg.Model = ""
	assert.True(t, errors.Is(cfg.Validate(langs, log), ErrInvalidModel))
}

func TestSuggestModels(t *testing.T) {
	assert.Contains(t, SuggestModels("4o"), "gpt-4o")
	// 按距离排序，完全匹配排在最前
	suggestions := SuggestModels("gpt-4o")
	require.NotEmpty(t, suggestions)
	assert.Equal(t, "gpt-4o", suggestions[0])
	assert.Contains(t, SuggestModels("gpt-4o-mini-2024-07-18"), "gpt-4o-mini")
	assert.Empty(t, SuggestModels("claude"))
}

func TestLanguages(t *testing.T) {
	langs := DefaultLanguages()

	assert.Equal(t, "Chinese", langs.Name("zh"))
	assert.Equal(t, "xx", langs.Name("xx"))

	assert.Equal(t, "rtl", langs.Direction("ar"))
	assert.Equal(t, "rtl", langs.Direction("fa"))
	assert.Equal(t, "ltr", langs.Direction("zh"))

	assert.Contains(t, langs.Font("zh"), "Noto Sans SC")
	assert.Equal(t, langs.Font(DefaultFontKey), langs.Font("fr"))

	assert.Equal(t, AutoLanguage, langs.SourceLanguages()[0])
	assert.True(t, langs.IsKnownTarget("ar"))
	assert.False(t, langs.IsKnownTarget("fa"))
	assert.Len(t, langs.Codes(), 12)
}

func TestBuildSystemPrompt(t *testing.T) {
	assert.Equal(t,
		"You are a professional translator. Translate the following text to Chinese. "+
			"Only return the translated text without any additional explanation or notes.",
		BuildSystemPrompt("Chinese", ""))
	assert.Equal(t, "Into French, twice: French", BuildSystemPrompt("French", "Into {target_language}, twice: {target_language}"))
	assert.Equal(t, "Be literal.", BuildSystemPrompt("French", "Be literal."))
}

func TestMaskedAPIKey(t *testing.T) {
	cfg := &Config{APIKey: "sk-1234567890abcd"}
	assert.Equal(t, "sk-1...abcd", cfg.MaskedAPIKey())
	cfg.APIKey = "short"
	assert.Equal(t, "***", cfg.MaskedAPIKey())
}
