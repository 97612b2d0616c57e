package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nerdneilsfield/epub-translator/internal/config"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newModelsCommand(flags *rootFlags) *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "列出可用的模型",
		Long: `列出内置的模型列表。

使用 --remote 从当前配置的 API 地址获取实际可用的模型。`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return fmt.Errorf("加载配置失败: %w", err)
			}

			models := append([]string(nil), config.SupportedModels...)
			if remote {
				if models, err = fetchModels(cmd, cfg); err != nil {
					return err
				}
			}

			renderModels(cmd.OutOrStdout(), models, cfg.Model)
			return nil
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "从 API 获取模型列表")
	return cmd
}

// fetchModels 从远端获取模型列表
func fetchModels(cmd *cobra.Command, cfg *config.Config) ([]string, error) {
	if cfg.APIKey == "" {
		return nil, config.ErrMissingAPIKey
	}
	client, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}

	spinner, _ := pterm.DefaultSpinner.
		WithWriter(cmd.ErrOrStderr()).
		WithRemoveWhenDone(false).
		Start("正在从 " + cfg.APIBase + " 获取模型列表...")

	models, err := client.ListModels(cmd.Context())
	if err != nil {
		spinner.Fail("获取模型列表失败: " + err.Error())
		return nil, fmt.Errorf("获取模型列表失败: %w", err)
	}
	spinner.Success(fmt.Sprintf("获取到 %d 个模型", len(models)))

	sort.Strings(models)
	return models, nil
}

func renderModels(w io.Writer, models []string, current string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "模型", ""})

	mark := color.New(color.FgGreen, color.Bold).Sprint("✓ 当前")
	for i, m := range models {
		row := table.Row{i + 1, m, ""}
		if m == current {
			row[2] = mark
		}
		t.AppendRow(row)
	}
	t.Render()
}
