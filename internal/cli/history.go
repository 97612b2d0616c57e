package cli

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nerdneilsfield/epub-translator/internal/config"
	"github.com/nerdneilsfield/epub-translator/internal/history"
	"github.com/nerdneilsfield/epub-translator/internal/pipeline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// historyPath 返回历史文件路径，未指定时使用默认位置
func historyPath(flags *rootFlags) (string, error) {
	if flags.historyFile != "" {
		return flags.historyFile, nil
	}
	return history.DefaultPath()
}

// recordRun 将本次运行写入历史，失败只记录警告
func recordRun(flags *rootFlags, cfg *config.Config, input, output string, result pipeline.Result, log *zap.Logger) {
	path, err := historyPath(flags)
	if err != nil {
		log.Warn("无法确定历史文件位置", zap.Error(err))
		return
	}
	db, err := history.Open(path, log)
	if err != nil {
		log.Warn("无法打开历史文件", zap.String("path", path), zap.Error(err))
		return
	}

	s := result.Summary
	rec := history.Record{
		ID:             s.RunID,
		Timestamp:      time.Now(),
		InputFile:      input,
		OutputFile:     output,
		SourceLanguage: cfg.SourceLang,
		TargetLanguage: cfg.TargetLang,
		Model:          cfg.Model,
		Parts:          s.Parts,
		Segments:       s.Segments,
		Translated:     s.Translated,
		Fallbacks:      s.Fallbacks,
		Duration:       s.Duration,
		Status:         history.StatusSuccess,
	}
	switch {
	case errors.Is(result.Err, pipeline.ErrCancelled):
		rec.Status = history.StatusCancelled
	case result.Err != nil:
		rec.Status = history.StatusFailed
		rec.ErrorMessage = result.Err.Error()
	}

	if err := db.Add(rec); err != nil {
		log.Warn("写入历史失败", zap.String("path", path), zap.Error(err))
	}
}

func newHistoryCommand(flags *rootFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "显示最近的翻译记录",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := historyPath(flags)
			if err != nil {
				return err
			}
			db, err := history.Open(path, zap.NewNop())
			if err != nil {
				return fmt.Errorf("读取历史失败: %w", err)
			}
			renderHistory(cmd.OutOrStdout(), db.Recent(limit), db.Totals())
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "显示的记录条数")
	return cmd
}

func renderHistory(w io.Writer, records []history.Record, totals history.Totals) {
	if len(records) == 0 {
		fmt.Fprintln(w, "暂无翻译记录")
		return
	}

	failed := color.New(color.FgRed)
	cancelled := color.New(color.FgYellow)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(fmt.Sprintf("最近 %d 次翻译", len(records)))
	t.AppendHeader(table.Row{"时间", "文件", "语言", "片段", "保留原文", "耗时", "状态"})

	for _, r := range records {
		status := r.Status
		switch r.Status {
		case history.StatusFailed:
			status = failed.Sprint(status)
		case history.StatusCancelled:
			status = cancelled.Sprint(status)
		}
		t.AppendRow(table.Row{
			r.Timestamp.Local().Format("2006-01-02 15:04"),
			filepath.Base(r.InputFile),
			r.SourceLanguage + " → " + r.TargetLanguage,
			r.Segments,
			r.Fallbacks,
			formatDuration(r.Duration),
			status,
		})
	}

	pairs := make([]string, 0, len(totals.LanguagePairs))
	for p := range totals.LanguagePairs {
		pairs = append(pairs, p)
	}
	sort.Strings(pairs)

	t.AppendFooter(table.Row{
		"累计",
		fmt.Sprintf("%d 次 (失败 %d)", totals.Runs, totals.Failures),
		fmt.Sprintf("%d 种语言对", len(pairs)),
		totals.Segments,
		totals.Fallbacks,
		formatDuration(totals.Duration),
		"",
	})
	t.Render()
}
