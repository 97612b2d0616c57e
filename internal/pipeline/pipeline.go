package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nerdneilsfield/epub-translator/internal/config"
	"github.com/nerdneilsfield/epub-translator/internal/formats/epub"
	"github.com/nerdneilsfield/epub-translator/internal/formats/html"
	"github.com/nerdneilsfield/epub-translator/internal/progress"
	"github.com/nerdneilsfield/epub-translator/internal/translator"
	"github.com/nerdneilsfield/epub-translator/pkg/providers"
	"go.uber.org/zap"
)

// ErrCancelled 运行被外部取消
var ErrCancelled = errors.New("translation cancelled")

// Stage 流水线步骤
type Stage string

const (
	StageOpen      Stage = "open"
	StageParse     Stage = "parse"
	StageTranslate Stage = "translate"
	StageRewrite   Stage = "rewrite"
	StageSerialize Stage = "serialize"
)

// StageError 记录失败的步骤
type StageError struct {
	Stage Stage
	Part  string // 出错的文档 id，包级步骤为空
	Err   error
}

func (e *StageError) Error() string {
	if e.Part != "" {
		return fmt.Sprintf("%s %s: %v", e.Stage, e.Part, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Codec 包的读写
type Codec interface {
	Open(filename string) (*epub.Package, error)
	Write(pkg *epub.Package, filename string) (*epub.WriteResult, error)
}

// Options 一次运行的参数
type Options struct {
	Input      string
	Output     string
	TargetLang string
	SourceLang string // 仅用于日志
	DryRun     bool   // 只统计片段，不调用后端也不写出
}

// Summary 运行统计
type Summary struct {
	RunID      string
	Parts      int
	Segments   int
	Translated int
	Fallbacks  int
	TOCLinks   int // 新分配 id 的目录链接
	Duration   time.Duration
	Output     string
	Size       int64
	Digest     string
}

// Result 运行结果，失败时 Err 为原因
type Result struct {
	Success bool
	Err     error
	Summary Summary
}

// Pipeline 将整个包逐文档翻译并写出
type Pipeline struct {
	codec   Codec
	backend providers.Backend
	langs   *config.Languages
	trOpts  translator.Options
	log     *zap.Logger
}

// New 创建流水线
// trOpts 的目标语言会被每次运行的 Options.TargetLang 覆盖
func New(codec Codec, backend providers.Backend, langs *config.Languages, trOpts translator.Options, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		codec:   codec,
		backend: backend,
		langs:   langs,
		trOpts:  trOpts,
		log:     log,
	}
}

// Run 执行一次完整的翻译
// OPEN → 逐文档 PARSE/EXTRACT/TRANSLATE/REWRITE/STORE → ADJUST-METADATA → REPAIR-TOC → SERIALIZE
// 任何步骤出错都会结束运行并返回失败，不会留下不完整的输出
func (p *Pipeline) Run(ctx context.Context, opts Options, sink progress.Sink) (result Result) {
	if sink == nil {
		sink = progress.Nop{}
	}

	start := time.Now()
	result.Summary.RunID = uuid.NewString()
	log := p.log.With(zap.String("run", result.Summary.RunID))

	defer func() {
		if r := recover(); r != nil {
			result.Success = false
			result.Err = fmt.Errorf("panic: %v", r)
		}
		result.Summary.Duration = time.Since(start)
		if result.Err != nil {
			log.Error("翻译失败", zap.Error(result.Err), zap.Duration("耗时", result.Summary.Duration))
			return
		}
		log.Info("翻译完成",
			zap.Int("文档数", result.Summary.Parts),
			zap.Int("片段数", result.Summary.Segments),
			zap.Int("回退数", result.Summary.Fallbacks),
			zap.Duration("耗时", result.Summary.Duration),
		)
	}()

	log.Info("开始翻译",
		zap.String("输入", opts.Input),
		zap.String("输出", opts.Output),
		zap.String("源语言", opts.SourceLang),
		zap.String("目标语言", opts.TargetLang),
		zap.Bool("dry_run", opts.DryRun),
	)

	if err := p.run(ctx, opts, sink, &result.Summary, log); err != nil {
		result.Err = err
		return result
	}
	result.Success = true
	return result
}

func (p *Pipeline) run(ctx context.Context, opts Options, sink progress.Sink, summary *Summary, log *zap.Logger) error {
	if err := checkCancelled(ctx); err != nil {
		return &StageError{Stage: StageOpen, Err: err}
	}

	pkg, err := p.codec.Open(opts.Input)
	if err != nil {
		return &StageError{Stage: StageOpen, Err: err}
	}
	summary.Parts = len(pkg.Parts)
	sink.SetTotal(len(pkg.Parts))

	trOpts := p.trOpts
	trOpts.TargetLang = opts.TargetLang
	tr := translator.New(p.backend, p.langs, trOpts, log)

	for i, part := range pkg.Parts {
		if err := p.translatePart(ctx, tr, i, part, opts.DryRun, sink, summary); err != nil {
			return err
		}
	}

	if opts.DryRun {
		return nil
	}

	AdjustMetadata(pkg, opts.TargetLang, p.langs)
	summary.TOCLinks = RepairTOC(pkg.TOC)
	log.Debug("目录已修复", zap.Int("新增 id", summary.TOCLinks))

	if err := checkCancelled(ctx); err != nil {
		return &StageError{Stage: StageSerialize, Err: err}
	}
	written, err := p.codec.Write(pkg, opts.Output)
	if err != nil {
		return &StageError{Stage: StageSerialize, Err: err}
	}
	summary.Output = written.Path
	summary.Size = written.Size
	summary.Digest = written.Digest
	return nil
}

// translatePart 处理单个文档，片段失败只回退为原文
func (p *Pipeline) translatePart(ctx context.Context, tr *translator.Translator, index int, part *epub.Part, dryRun bool, sink progress.Sink, summary *Summary) error {
	if err := checkCancelled(ctx); err != nil {
		return &StageError{Stage: StageParse, Part: part.ID, Err: err}
	}

	tree, err := html.ParseBytes(part.Content())
	if err != nil {
		return &StageError{Stage: StageParse, Part: part.ID, Err: err}
	}

	segments := html.Extract(tree)
	summary.Segments += len(segments)
	if obs, ok := sink.(progress.PartObserver); ok {
		obs.PartStarted(index, part.ID, len(segments))
	}
	if dryRun {
		return nil
	}

	for _, seg := range segments {
		if err := checkCancelled(ctx); err != nil {
			return &StageError{Stage: StageTranslate, Part: part.ID, Err: err}
		}

		out := tr.With(zap.String("文档", part.ID), zap.Int("片段", seg.Index)).
			Translate(ctx, seg.Source, sink.Tick)
		if !out.Translated {
			summary.Fallbacks++
			continue
		}
		html.Apply(seg, out.Text)
		summary.Translated++
	}

	data, err := tree.Bytes()
	if err != nil {
		return &StageError{Stage: StageRewrite, Part: part.ID, Err: err}
	}
	part.SetContent(data)
	return nil
}

func checkCancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return nil
}
