package pdf

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// LayoutConfig 片段成行、行成块的阈值，均以字号为单位
type LayoutConfig struct {
	// LineTolerance 基线差小于该比例时视为同一行
	LineTolerance float64 `yaml:"lineTolerance"`
	// WordGap 片段间距超过该比例时插入空格
	WordGap float64 `yaml:"wordGap"`
	// MaxHorizontalGap 片段间距超过该比例时断开为新行
	MaxHorizontalGap float64 `yaml:"maxHorizontalGap"`
	// MaxLineSpacing 相邻行基线距离超过该比例时断开为新块
	MaxLineSpacing float64 `yaml:"maxLineSpacing"`
	// MaxSizeRatio 相邻行字号比例超过该值时断开为新块
	MaxSizeRatio float64 `yaml:"maxSizeRatio"`
}

// DefaultLayoutConfig 默认阈值
func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		LineTolerance:    0.5,
		WordGap:          0.15,
		MaxHorizontalGap: 3.0,
		MaxLineSpacing:   1.5,
		MaxSizeRatio:     1.3,
	}
}

type pendingLine struct {
	line     Line
	baseline float64
	size     float64
}

// blockBuilder 按内容流顺序把文本片段聚合为行和块，不做几何排序
type blockBuilder struct {
	cfg    LayoutConfig
	blocks []Block
	line   *pendingLine
	lines  []pendingLine
}

func newBlockBuilder(cfg LayoutConfig) *blockBuilder {
	return &blockBuilder{cfg: cfg}
}

// addRun 追加一个文本片段，baseline 为片段基线的 y 坐标
func (b *blockBuilder) addRun(run Run, baseline float64) {
	if strings.TrimSpace(run.Text) == "" {
		return
	}
	size := run.Style.FontSize
	if size <= 0 {
		size = DefaultFontSize
	}

	if b.line != nil && b.sameLine(run, baseline, size) {
		b.appendToLine(run, size)
		return
	}

	b.finishLine()
	b.line = &pendingLine{
		line:     Line{Runs: []Run{run}, BBox: run.BBox},
		baseline: baseline,
		size:     size,
	}
}

func (b *blockBuilder) sameLine(run Run, baseline, size float64) bool {
	ref := math.Max(size, b.line.size)
	if math.Abs(baseline-b.line.baseline) > b.cfg.LineTolerance*ref {
		return false
	}
	gap := run.BBox.X0 - b.line.line.BBox.X1
	if gap < -0.5*ref {
		return false
	}
	return gap <= b.cfg.MaxHorizontalGap*ref
}

func (b *blockBuilder) appendToLine(run Run, size float64) {
	l := &b.line.line
	gap := run.BBox.X0 - l.BBox.X1
	last := &l.Runs[len(l.Runs)-1]

	if gap > b.cfg.WordGap*math.Max(size, b.line.size) && !endsWithSpace(last.Text) && !startsWithSpace(run.Text) {
		run.Text = " " + run.Text
	}
	if last.Style == run.Style {
		last.Text += run.Text
		last.BBox = last.BBox.Union(run.BBox)
	} else {
		l.Runs = append(l.Runs, run)
	}
	l.BBox = l.BBox.Union(run.BBox)
	b.line.size = math.Max(b.line.size, size)
}

func (b *blockBuilder) finishLine() {
	if b.line == nil {
		return
	}
	current := *b.line
	b.line = nil

	if len(b.lines) > 0 && !b.continuesBlock(current) {
		b.finishBlock()
	}
	b.lines = append(b.lines, current)
}

// continuesBlock 新行是否紧接在当前块的最后一行下方
func (b *blockBuilder) continuesBlock(next pendingLine) bool {
	prev := b.lines[len(b.lines)-1]
	ref := math.Max(prev.size, next.size)

	drop := prev.baseline - next.baseline
	if drop <= b.cfg.LineTolerance*ref || drop > b.cfg.MaxLineSpacing*ref {
		return false
	}
	small, large := math.Min(prev.size, next.size), math.Max(prev.size, next.size)
	if small > 0 && large/small > b.cfg.MaxSizeRatio {
		return false
	}
	return b.blockBBox().OverlapsX(next.line.BBox)
}

func (b *blockBuilder) blockBBox() Rect {
	r := b.lines[0].line.BBox
	for _, l := range b.lines[1:] {
		r = r.Union(l.line.BBox)
	}
	return r
}

func (b *blockBuilder) finishBlock() {
	if len(b.lines) == 0 {
		return
	}
	block := Block{Kind: BlockText, BBox: b.blockBBox()}
	for _, l := range b.lines {
		block.Lines = append(block.Lines, l.line)
	}
	b.lines = nil
	b.push(block)
}

// addNonText 记录图像或矢量图形区域
func (b *blockBuilder) addNonText(r Rect) {
	if r.Width() <= 0 && r.Height() <= 0 {
		return
	}
	b.push(Block{Kind: BlockNonText, BBox: r})
}

func (b *blockBuilder) push(block Block) {
	block.Index = len(b.blocks)
	b.blocks = append(b.blocks, block)
}

// finish 结束所有未完成的行和块
func (b *blockBuilder) finish() []Block {
	b.finishLine()
	b.finishBlock()
	return b.blocks
}

func endsWithSpace(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return unicode.IsSpace(r)
}

func startsWithSpace(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsSpace(r)
}
