package translator

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/color"

	"layout-translator/logger"
	"layout-translator/pdf"
)

// DefaultMinFontSize 缩小字号时的下限
const DefaultMinFontSize = 7

// PageCanvas 页面绘制接口
type PageCanvas interface {
	// Erase 用白色填充矩形
	Erase(r pdf.Rect) error
	// InsertTextbox 左对齐折行绘制文本，返回剩余高度，负数表示溢出
	InsertTextbox(r pdf.Rect, text string, opts pdf.TextOptions) (float64, error)
}

// RevertibleCanvas 可以撤销绘制的页面，缩小字号时只保留最后一次尝试
type RevertibleCanvas interface {
	PageCanvas
	Mark() int
	Rollback(mark int)
}

// BlockOutcome 单个块的处理结果
type BlockOutcome int

const (
	// OutcomeSkipped 空文本块，未做任何修改
	OutcomeSkipped BlockOutcome = iota
	// OutcomeRendered 以原字号放入
	OutcomeRendered
	// OutcomeShrunk 缩小字号后放入
	OutcomeShrunk
	// OutcomeTruncated 缩到下限仍溢出，保留最后一次绘制
	OutcomeTruncated
	// OutcomeFailed 渲染失败，块被跳过
	OutcomeFailed
)

func (o BlockOutcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeRendered:
		return "rendered"
	case OutcomeShrunk:
		return "shrunk"
	case OutcomeTruncated:
		return "truncated"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// BlockResult 块处理详情
type BlockResult struct {
	Outcome    BlockOutcome
	Translated string
	FontSize   float64
	// Retries 缩小字号的重试次数
	Retries int
	// Lossy 译文含内置字体无法表示的字符
	Lossy bool
	Err   error
}

// ReplacementEngine 擦除原文并在同一区域绘制译文，必要时缩小字号
type ReplacementEngine struct {
	translator  TextTranslator
	minFontSize int
	log         *logger.Logger
}

// NewReplacementEngine 创建替换引擎
func NewReplacementEngine(tr TextTranslator, log *logger.Logger) *ReplacementEngine {
	if log == nil {
		log = logger.Default()
	}
	return &ReplacementEngine{translator: tr, minFontSize: DefaultMinFontSize, log: log}
}

// SetMinFontSize 设置字号下限，小于 1 时忽略
func (e *ReplacementEngine) SetMinFontSize(size int) {
	if size >= 1 {
		e.minFontSize = size
	}
}

// Process 翻译并替换一个文本块，所有错误都在内部处理
func (e *ReplacementEngine) Process(ctx context.Context, canvas PageCanvas, block pdf.Block, sourceLanguage, targetLanguage string) (res BlockResult) {
	defer func() {
		if r := recover(); r != nil {
			res.Outcome = OutcomeFailed
			res.Err = fmt.Errorf("%w: %v", ErrBlockRender, r)
			e.log.Error("处理文本块时发生panic，跳过", res.Err, logger.Fields{"块": block.Index})
		}
	}()

	merged := block.MergedText()
	if merged == "" {
		return BlockResult{Outcome: OutcomeSkipped}
	}

	translated := e.translator.Translate(ctx, merged, sourceLanguage, targetLanguage)
	if strings.TrimSpace(translated) == "" {
		e.log.Warn("译文为空，保留原文", logger.Fields{"块": block.Index})
		translated = merged
	}
	res.Translated = translated
	res.Lossy = !pdf.CanEncodeWinAnsi(translated)

	style := block.RepresentativeStyle()
	family := pdf.ResolveFontFamily(style.FontName)
	col, err := pdf.RendererColor(style.Color)
	if err != nil {
		e.log.Warn("颜色无效，使用黑色", logger.Fields{"块": block.Index, "颜色": style.Color})
		col = color.Black
	}
	size := style.FontSize
	if size <= 0 {
		size = pdf.DefaultFontSize
	}

	if err := canvas.Erase(block.BBox); err != nil {
		res.Outcome = OutcomeFailed
		res.Err = fmt.Errorf("%w: 擦除失败: %w", ErrBlockRender, err)
		e.log.Error("擦除文本块失败，跳过", res.Err, logger.Fields{"块": block.Index})
		return res
	}
	revertible, canRevert := canvas.(RevertibleCanvas)
	mark := 0
	if canRevert {
		mark = revertible.Mark()
	}

	remaining, usedSize, err := e.render(canvas, block, translated, family, size, col, pdf.DefaultFontSize)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Err = err
		e.log.Error("绘制译文失败，跳过", err, logger.Fields{"块": block.Index})
		return res
	}
	res.FontSize = usedSize
	if remaining >= 0 {
		res.Outcome = OutcomeRendered
		return res
	}

	// 放不下时逐级缩小字号
	res.Outcome = OutcomeTruncated
	for s := int(size) - 1; s >= e.minFontSize; s-- {
		res.Retries++
		if canRevert {
			// 撤销上一次尝试，保留擦除
			revertible.Rollback(mark)
		} else if err := canvas.Erase(block.BBox); err != nil {
			e.log.Warn("重新擦除失败", logger.Fields{"块": block.Index, "错误": err.Error()})
			break
		}
		remaining, usedSize, err = e.render(canvas, block, translated, family, float64(s), col, float64(s))
		if err != nil {
			e.log.Warn("缩小字号后绘制失败", logger.Fields{"块": block.Index, "字号": s, "错误": err.Error()})
			continue
		}
		res.FontSize = usedSize
		if remaining >= 0 {
			res.Outcome = OutcomeShrunk
			break
		}
	}
	if canRevert && revertible.Mark() == mark {
		// 最后几次尝试都失败时恢复最近一次成功的绘制
		if _, _, err := e.render(canvas, block, translated, family, res.FontSize, col, res.FontSize); err != nil {
			e.log.Warn("恢复绘制失败", logger.Fields{"块": block.Index, "错误": err.Error()})
		}
	}

	if res.Outcome == OutcomeTruncated {
		e.log.Warn("缩小到最小字号仍无法完全放入", logger.Fields{
			"块":  block.Index,
			"字号": res.FontSize,
			"文本": logger.Truncate(translated, 40),
		})
	} else {
		e.log.Debug("缩小字号后放入", logger.Fields{"块": block.Index, "原字号": size, "字号": res.FontSize})
	}
	return res
}

// render 按指定样式绘制一次，字体或颜色出错时改用 helv 黑色和 fallbackSize 再试
func (e *ReplacementEngine) render(canvas PageCanvas, block pdf.Block, text string, family pdf.FontFamily, size float64, col color.SimpleColor, fallbackSize float64) (float64, float64, error) {
	remaining, err := canvas.InsertTextbox(block.BBox, text, pdf.TextOptions{Family: family, Size: size, Color: col})
	if err == nil {
		return remaining, size, nil
	}

	e.log.Warn("绘制失败，改用默认字体和黑色", logger.Fields{
		"块":  block.Index,
		"字体": family,
		"字号": size,
		"错误": err.Error(),
	})
	remaining, err = canvas.InsertTextbox(block.BBox, text, pdf.TextOptions{Family: pdf.FontHelvetica, Size: fallbackSize, Color: color.Black})
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrBlockRender, err)
	}
	return remaining, fallbackSize, nil
}
