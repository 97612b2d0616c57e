package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nerdneilsfield/epub-translator/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCommand(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "显示当前配置（合并配置文件、环境变量和命令行参数）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return fmt.Errorf("加载配置失败: %w", err)
			}
			renderConfig(cmd.OutOrStdout(), cfg)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "save [path]",
		Short: "将当前配置写入配置文件（不保存 API 密钥）",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return fmt.Errorf("加载配置失败: %w", err)
			}
			path := flags.cfgFile
			if len(args) > 0 {
				path = args[0]
			}
			if err := config.SaveConfig(cfg, path); err != nil {
				return fmt.Errorf("保存配置失败: %w", err)
			}
			color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "✓ 配置已保存")
			return nil
		},
	})

	return cmd
}

func renderConfig(w io.Writer, cfg *config.Config) {
	apiKey := cfg.MaskedAPIKey()
	if apiKey == "" {
		apiKey = color.New(color.FgRed).Sprint("未设置")
	}
	prompt := "默认"
	if cfg.Prompt != "" {
		prompt = "自定义"
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("当前配置")
	t.AppendRows([]table.Row{
		{"api_key", apiKey},
		{"api_base", cfg.APIBase},
		{"api_type", cfg.APIType},
		{"model", cfg.Model},
		{"source_lang", cfg.SourceLang},
		{"target_lang", cfg.TargetLang},
		{"prompt", prompt},
		{"temperature", cfg.Temperature},
		{"max_tokens", cfg.MaxTokens},
		{"request_timeout", cfg.RequestTimeout},
		{"max_retries", cfg.MaxRetries},
		{"filter_reasoning", cfg.FilterReasoning},
		{"debug", cfg.Debug},
		{"log_file", cfg.LogFile},
	})
	t.Render()
}
