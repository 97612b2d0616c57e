package cli

import (
	"io"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/nerdneilsfield/epub-translator/internal/config"
	"github.com/spf13/cobra"
)

func newLanguagesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "列出支持的语言、字体和文字方向",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			renderLanguages(cmd.OutOrStdout(), config.DefaultLanguages())
		},
	}
}

func renderLanguages(w io.Writer, langs *config.Languages) {
	source := make(map[string]bool)
	for _, c := range langs.SourceLanguages() {
		source[c] = true
	}
	target := make(map[string]bool)
	for _, c := range langs.TargetLanguages() {
		target[c] = true
	}

	rtl := color.New(color.FgMagenta, color.Bold)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Footer = text.FormatDefault
	t.AppendHeader(table.Row{"代码", "名称", "源", "目标", "方向", "字体"})

	yes := func(ok bool) string {
		if ok {
			return "✓"
		}
		return ""
	}

	for _, code := range langs.Codes() {
		direction := langs.Direction(code)
		if langs.IsRTL(code) {
			direction = rtl.Sprint(direction)
		}
		t.AppendRow(table.Row{
			code,
			langs.Name(code),
			yes(source[code]),
			yes(target[code]),
			direction,
			langs.Font(code),
		})
	}
	t.AppendFooter(table.Row{config.AutoLanguage, "自动检测", "✓", "", "", ""})
	t.Render()
}
