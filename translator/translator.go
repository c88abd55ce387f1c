package translator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"layout-translator/logger"
	"layout-translator/models"
	"layout-translator/pdf"
)

// Options 一次 PDF 翻译的参数
type Options struct {
	InputPath      string
	OutputPath     string
	SourceLanguage string
	TargetLanguage string
	// PageRange 页码范围表达式，为空时等同于 ALL
	PageRange string
	Progress  ProgressReporter
}

// Result 翻译结果统计
type Result struct {
	Output         string
	TotalPages     int
	Pages          []int // 已处理的页码，从 1 开始
	PagesProcessed int
	BlocksTotal    int
	// BlocksTranslated 已重新绘制的块，包括缩小字号和截断的块
	BlocksTranslated int
	BlocksSkipped    int
	BlocksFailed     int
	Shrunk           int
	Truncated        int
	// Lossy 译文含内置字体无法表示的字符的块
	Lossy    int
	Duration time.Duration
}

// Summary 转换为任务状态中使用的统计
func (r *Result) Summary() *models.Summary {
	return &models.Summary{
		PagesProcessed:   r.PagesProcessed,
		BlocksTotal:      r.BlocksTotal,
		BlocksTranslated: r.BlocksTranslated,
		BlocksSkipped:    r.BlocksSkipped,
		BlocksFailed:     r.BlocksFailed,
		Shrunk:           r.Shrunk,
		Truncated:        r.Truncated,
		Lossy:            r.Lossy,
	}
}

func (r *Result) record(res BlockResult) {
	r.BlocksTotal++
	if res.Lossy {
		r.Lossy++
	}
	switch res.Outcome {
	case OutcomeSkipped:
		r.BlocksSkipped++
	case OutcomeFailed:
		r.BlocksFailed++
	case OutcomeShrunk:
		r.BlocksTranslated++
		r.Shrunk++
	case OutcomeTruncated:
		r.BlocksTranslated++
		r.Truncated++
	default:
		r.BlocksTranslated++
	}
}

// Pipeline 逐页逐块翻译 PDF 并保存到新文件
type Pipeline struct {
	engine *ReplacementEngine
	log    *logger.Logger
	layout pdf.LayoutConfig

	openDocument func(path string) (Document, error)
	openContent  func(path string) (ContentSource, error)
}

// NewPipeline 创建翻译流水线
func NewPipeline(tr TextTranslator, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Default()
	}
	p := &Pipeline{
		engine: NewReplacementEngine(tr, log),
		log:    log,
		layout: pdf.DefaultLayoutConfig(),
		openDocument: func(path string) (Document, error) {
			return OpenPDFDocument(path, log)
		},
	}
	p.openContent = func(path string) (ContentSource, error) {
		return OpenPDFContent(path, p.layout, log)
	}
	return p
}

// SetLayoutConfig 设置片段成行、行成块的阈值
func (p *Pipeline) SetLayoutConfig(cfg pdf.LayoutConfig) {
	p.layout = cfg
}

// SetMinFontSize 设置缩小字号的下限
func (p *Pipeline) SetMinFontSize(size int) {
	p.engine.SetMinFontSize(size)
}

// TranslatePDF 翻译选中的页面，页码范围无效时在修改任何页面之前返回错误
// ctx 取消时中止且不写输出文件
func (p *Pipeline) TranslatePDF(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	if opts.OutputPath == "" {
		return nil, fmt.Errorf("%w: 未指定输出路径", ErrDocumentIO)
	}
	if sameFile(opts.InputPath, opts.OutputPath) {
		return nil, fmt.Errorf("%w: 输出路径不能与输入文件相同", ErrDocumentIO)
	}
	progress := opts.Progress
	if progress == nil {
		progress = nopProgress{}
	}
	expr := opts.PageRange
	if expr == "" {
		expr = RangeAll
	}

	doc, err := p.openDocument(opts.InputPath)
	if err != nil {
		return nil, wrapDocumentIO("打开文档失败", err)
	}
	defer doc.Close()

	total := doc.PageCount()
	pages, err := ResolvePageRange(expr, total)
	if err != nil {
		return nil, err
	}
	p.log.Info("开始翻译PDF", logger.Fields{
		"文件":   opts.InputPath,
		"总页数":  total,
		"选中页码": OneBased(pages),
		"源语言":  opts.SourceLanguage,
		"目标语言": opts.TargetLanguage,
	})

	content, err := p.openContent(opts.InputPath)
	if err != nil {
		return nil, wrapDocumentIO("解析文档内容失败", err)
	}
	defer content.Close()

	result := &Result{Output: opts.OutputPath, TotalPages: total}
	for _, idx := range pages {
		if err := ctx.Err(); err != nil {
			p.log.Warn("翻译已取消", logger.Fields{"页码": idx + 1})
			return nil, err
		}
		progress.Report(idx+1, total)

		if err := p.translatePage(ctx, doc, content, idx, opts, result); err != nil {
			return nil, err
		}
		result.PagesProcessed++
		result.Pages = append(result.Pages, idx+1)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := doc.SaveAs(opts.OutputPath); err != nil {
		return nil, wrapDocumentIO("保存文档失败", err)
	}

	result.Duration = time.Since(start)
	if result.Lossy > 0 {
		p.log.Warn("部分译文含内置字体无法显示的字符，已替换为 '?'", logger.Fields{
			"目标语言": opts.TargetLanguage,
			"块数":   result.Lossy,
		})
	}
	p.log.Timing("翻译PDF", result.Duration, logger.Fields{
		"输出":   opts.OutputPath,
		"处理页数": result.PagesProcessed,
		"文本块":  result.BlocksTotal,
		"已翻译":  result.BlocksTranslated,
		"缩小字号": result.Shrunk,
		"截断":   result.Truncated,
		"失败":   result.BlocksFailed,
	})
	return result, nil
}

func (p *Pipeline) translatePage(ctx context.Context, doc Document, content ContentSource, idx int, opts Options, result *Result) error {
	page, err := content.Page(idx)
	if err != nil {
		// 内容流部分损坏时仍处理已识别的块
		p.log.Warn("页面解析不完整", logger.Fields{"页码": idx + 1, "错误": err.Error(), "已识别块": len(page.Blocks)})
	}

	canvas, err := doc.Canvas(idx)
	if err != nil {
		return wrapDocumentIO(fmt.Sprintf("获取第 %d 页失败", idx+1), err)
	}

	blocks := ExtractTextBlocks(page)
	p.log.Debug("处理页面", logger.Fields{"页码": idx + 1, "文本块": len(blocks)})
	for _, block := range blocks {
		if err := ctx.Err(); err != nil {
			return err
		}
		res := p.engine.Process(ctx, canvas, block, opts.SourceLanguage, opts.TargetLanguage)
		result.record(res)
	}
	return nil
}

func wrapDocumentIO(message string, err error) error {
	if errors.Is(err, ErrDocumentIO) {
		return fmt.Errorf("%s: %w", message, err)
	}
	return fmt.Errorf("%s: %w: %w", message, ErrDocumentIO, err)
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}
