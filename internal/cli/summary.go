package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nerdneilsfield/epub-translator/internal/pipeline"
	"github.com/nerdneilsfield/epub-translator/pkg/providers"
	"github.com/nerdneilsfield/epub-translator/pkg/providers/stats"
)

// renderSummary 输出运行统计表
func renderSummary(w io.Writer, s pipeline.Summary, dryRun bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)

	if dryRun {
		t.SetTitle("预演结果")
		t.AppendRows([]table.Row{
			{"文档数", s.Parts},
			{"待翻译片段", s.Segments},
			{"耗时", formatDuration(s.Duration)},
		})
		t.Render()
		return
	}

	t.SetTitle("翻译完成")
	t.AppendRows([]table.Row{
		{"运行 ID", s.RunID},
		{"文档数", s.Parts},
		{"片段数", s.Segments},
		{"已翻译", s.Translated},
		{"保留原文", s.Fallbacks},
		{"新增目录 id", s.TOCLinks},
		{"耗时", formatDuration(s.Duration)},
		{"输出文件", s.Output},
		{"文件大小", formatBytes(s.Size)},
		{"BLAKE3", s.Digest},
	})
	t.Render()

	if s.Fallbacks > 0 {
		color.New(color.FgYellow).Fprintf(w, "⚠ %d 个片段翻译失败，已保留原文\n", s.Fallbacks)
	}
}

// renderRequestStats 输出后端请求统计
func renderRequestStats(w io.Writer, s stats.Snapshot) {
	if s.Requests == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("API 请求")
	t.AppendRows([]table.Row{
		{"请求数", s.Requests},
		{"成功率", fmt.Sprintf("%.1f%%", s.SuccessRate()*100)},
		{"平均延迟", formatDuration(s.AverageLatency())},
		{"最大延迟", formatDuration(s.MaxLatency)},
		{"输入字符", s.InputChars},
		{"输出字符", s.OutputChars},
	})

	kinds := make([]providers.ErrorKind, 0, len(s.Failures))
	for k := range s.Failures {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	for _, k := range kinds {
		t.AppendRow(table.Row{"失败 (" + k.String() + ")", s.Failures[k]})
	}
	t.Render()
}

// printFailure 输出失败原因
func printFailure(w io.Writer, err error) {
	title := color.New(color.FgRed, color.Bold)
	if errors.Is(err, pipeline.ErrCancelled) {
		title.Fprintln(w, "✗ 翻译已取消")
		return
	}
	title.Fprintf(w, "✗ 翻译失败: %v\n", err)
}

// formatBytes 格式化字节数
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	units := []string{"KB", "MB", "GB", "TB"}
	return fmt.Sprintf("%.1f %s", float64(bytes)/float64(div), units[exp])
}

// formatDuration 格式化耗时
func formatDuration(d time.Duration) string {
	switch {
	case d == 0:
		return "0s"
	case d < time.Second:
		return fmt.Sprintf("%.0fms", float64(d.Nanoseconds())/1e6)
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%.1fm", d.Minutes())
	default:
		return fmt.Sprintf("%.1fh", d.Hours())
	}
}
