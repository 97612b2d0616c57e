package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/nerdneilsfield/epub-translator/internal/config"
	"github.com/nerdneilsfield/epub-translator/internal/formats/epub"
	"github.com/nerdneilsfield/epub-translator/internal/logger"
	"github.com/nerdneilsfield/epub-translator/internal/pipeline"
	"github.com/nerdneilsfield/epub-translator/internal/progress"
	"github.com/nerdneilsfield/epub-translator/internal/translator"
	"github.com/nerdneilsfield/epub-translator/pkg/providers"
	"github.com/nerdneilsfield/epub-translator/pkg/providers/stats"
	"github.com/spf13/cobra"
)

// rootFlags 命令行标志
type rootFlags struct {
	cfgFile    string
	sourceLang string
	targetLang string
	model      string
	apiKey     string
	apiBase    string
	apiType    string
	prompt     string
	promptFile string
	debug      bool
	logFile    string
	dryRun     bool // 只统计片段，不调用模型也不写出
	noProgress bool
	noHistory  bool

	historyFile string
}

// NewRootCommand 创建根命令
func NewRootCommand(version, commit, buildDate string) *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "epub-translator [flags] input.epub [output.epub]",
		Short: "使用大语言模型翻译 EPUB 电子书",
		Long: `使用 OpenAI 兼容的大语言模型翻译 EPUB 电子书。

逐个章节提取段落、标题、列表和表格中的文本，逐段调用模型翻译后写回原位置，
保留原有的标记结构。翻译完成后更新书籍语言、书名和文字方向样式。
单个片段翻译失败时保留原文，不会中断整本书的翻译。

未指定输出文件时写到 <input>_translated.epub。`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, flags, args)
		},
	}

	addGlobalFlags(rootCmd, flags)

	rootCmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "预演模式，只统计待翻译片段，不调用模型也不写出文件")
	rootCmd.Flags().BoolVar(&flags.noProgress, "no-progress", false, "不显示进度条")
	rootCmd.Flags().BoolVar(&flags.noHistory, "no-history", false, "不记录本次运行")
	rootCmd.PersistentFlags().StringVar(&flags.historyFile, "history-file", "", "历史记录文件路径（默认 $HOME/.epub-translator-history.json）")

	rootCmd.AddCommand(newModelsCommand(flags))
	rootCmd.AddCommand(newLanguagesCommand())
	rootCmd.AddCommand(newConfigCommand(flags))
	rootCmd.AddCommand(newHistoryCommand(flags))

	return rootCmd
}

func addGlobalFlags(rootCmd *cobra.Command, flags *rootFlags) {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.cfgFile, "config", "", "配置文件路径（默认 $HOME/.epub-translator.yaml）")
	pf.StringVarP(&flags.sourceLang, "source", "s", "", "源语言（auto 表示自动检测）")
	pf.StringVarP(&flags.targetLang, "target", "t", "", "目标语言")
	pf.StringVarP(&flags.model, "model", "m", "", "模型名称")
	pf.StringVar(&flags.apiKey, "api-key", "", "API 密钥")
	pf.StringVar(&flags.apiBase, "api-base", "", "API 地址")
	pf.StringVar(&flags.apiType, "api-type", "", "API 客户端 (openai, openai-official)")
	pf.StringVar(&flags.prompt, "prompt", "", "自定义系统提示词，可包含 {target_language}")
	pf.StringVar(&flags.promptFile, "prompt-file", "", "TOML 格式的提示词文件")
	pf.BoolVar(&flags.debug, "debug", false, "启用调试模式")
	pf.StringVar(&flags.logFile, "log-file", "", "同时写入日志的文件")
}

// loadConfig 加载配置并用命令行参数覆盖
func loadConfig(cmd *cobra.Command, flags *rootFlags) (*config.Config, error) {
	cfg, err := config.LoadConfig(flags.cfgFile)
	if err != nil {
		return nil, err
	}
	if err := updateConfigFromFlags(cmd, flags, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// updateConfigFromFlags 只覆盖用户显式设置的标志
func updateConfigFromFlags(cmd *cobra.Command, flags *rootFlags, cfg *config.Config) error {
	changed := cmd.Flags().Changed
	if changed("source") {
		cfg.SourceLang = flags.sourceLang
	}
	if changed("target") {
		cfg.TargetLang = flags.targetLang
	}
	if changed("model") {
		cfg.Model = flags.model
	}
	if changed("api-key") {
		cfg.APIKey = flags.apiKey
	}
	if changed("api-base") {
		cfg.APIBase = flags.apiBase
	}
	if changed("api-type") {
		cfg.APIType = flags.apiType
	}
	if changed("debug") {
		cfg.Debug = flags.debug
	}
	if changed("log-file") {
		cfg.LogFile = flags.logFile
	}
	if changed("prompt") {
		cfg.Prompt = flags.prompt
	}
	if changed("prompt-file") {
		cfg.PromptFile = flags.promptFile
		// 命令行的 --prompt 优先
		if !changed("prompt") {
			prompt, err := config.LoadPromptFile(flags.promptFile)
			if err != nil {
				return err
			}
			cfg.Prompt = prompt
		}
	}
	return nil
}

func runTranslate(cmd *cobra.Command, flags *rootFlags, args []string) error {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	log := logger.NewLogger(cfg.Debug, cfg.LogFile)
	defer func() {
		_ = log.Sync()
	}()

	langs := config.DefaultLanguages()

	var backend providers.Backend
	var counted *stats.Middleware
	if flags.dryRun {
		if err := config.ValidateTargetLanguage(cfg.TargetLang); err != nil {
			return err
		}
		if err := config.ValidateSourceLanguage(cfg.SourceLang); err != nil {
			return err
		}
	} else {
		if err := cfg.Validate(langs, log); err != nil {
			return fmt.Errorf("配置无效: %w", err)
		}
		client, err := newBackend(cfg)
		if err != nil {
			return err
		}
		counted = stats.Wrap(client)
		backend = counted
	}

	inputPath := args[0]
	outputPath := generateDefaultOutputFile(inputPath)
	if len(args) > 1 {
		outputPath = args[1]
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sink progress.Sink = progress.Nop{}
	var terminal *progress.Terminal
	if !flags.noProgress && !flags.dryRun {
		terminal = progress.NewTerminal(cmd.ErrOrStderr())
		sink = terminal
	}

	p := pipeline.New(epub.NewCodec(), backend, langs, translator.OptionsFromConfig(cfg), logger.Named(log, "pipeline"))
	result := p.Run(ctx, pipeline.Options{
		Input:      inputPath,
		Output:     outputPath,
		TargetLang: cfg.TargetLang,
		SourceLang: cfg.SourceLang,
		DryRun:     flags.dryRun,
	}, sink)

	if terminal != nil {
		terminal.Finish(result.Success)
	}

	if !flags.dryRun && !flags.noHistory {
		recordRun(flags, cfg, inputPath, outputPath, result, logger.Named(log, "history"))
	}

	out := cmd.OutOrStdout()
	if !result.Success {
		printFailure(out, result.Err)
		return result.Err
	}

	renderSummary(out, result.Summary, flags.dryRun)
	if counted != nil {
		renderRequestStats(out, counted.Snapshot())
	}
	return nil
}

// generateDefaultOutputFile 生成默认输出文件名
func generateDefaultOutputFile(inputFile string) string {
	ext := filepath.Ext(inputFile)
	base := strings.TrimSuffix(inputFile, ext)
	return base + "_translated" + ext
}
