package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// PromptFile 提示词文件结构
//
//	prompt = "Translate into {target_language}. Keep names untranslated."
type PromptFile struct {
	Prompt string `toml:"prompt"`
}

// LoadPromptFile 从 TOML 文件读取自定义提示词
func LoadPromptFile(path string) (string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", fmt.Errorf("prompt file not found: %s", path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt file: %w", err)
	}

	var pf PromptFile
	if err := toml.Unmarshal(content, &pf); err != nil {
		return "", fmt.Errorf("failed to unmarshal prompt file: %w", err)
	}
	if strings.TrimSpace(pf.Prompt) == "" {
		return "", fmt.Errorf("prompt file %s has an empty prompt", path)
	}
	return pf.Prompt, nil
}

// BuildSystemPrompt 构建系统提示词
// 自定义提示词中的 {target_language} 会被替换为语言名称，否则使用默认模板
func BuildSystemPrompt(targetLanguageName, override string) string {
	if override != "" {
		if strings.Contains(override, TargetLanguagePlaceholder) {
			return strings.ReplaceAll(override, TargetLanguagePlaceholder, targetLanguageName)
		}
		return override
	}
	return strings.ReplaceAll(DefaultSystemPrompt, TargetLanguagePlaceholder, targetLanguageName)
}
