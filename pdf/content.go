package pdf

import (
	"math"
	"strings"
)

// 未读到样式时使用的默认值
const (
	DefaultFontSize = 11.0
	DefaultColor    = 0
)

// Rect 页面坐标系中的矩形，原点在左下角，满足 X0 <= X1、Y0 <= Y1
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// NewRect 创建矩形并规范化坐标顺序
func NewRect(x0, y0, x1, y1 float64) Rect {
	return Rect{
		X0: math.Min(x0, x1),
		Y0: math.Min(y0, y1),
		X1: math.Max(x0, x1),
		Y1: math.Max(y0, y1),
	}
}

// Width 宽度
func (r Rect) Width() float64 { return r.X1 - r.X0 }

// Height 高度
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// Union 两个矩形的外接矩形
func (r Rect) Union(o Rect) Rect {
	return Rect{
		X0: math.Min(r.X0, o.X0),
		Y0: math.Min(r.Y0, o.Y0),
		X1: math.Max(r.X1, o.X1),
		Y1: math.Max(r.Y1, o.Y1),
	}
}

// IncludePoint 扩展矩形以包含点
func (r Rect) IncludePoint(x, y float64) Rect {
	return Rect{
		X0: math.Min(r.X0, x),
		Y0: math.Min(r.Y0, y),
		X1: math.Max(r.X1, x),
		Y1: math.Max(r.Y1, y),
	}
}

// OverlapsX 水平方向是否有交集
func (r Rect) OverlapsX(o Rect) bool {
	return r.X0 <= o.X1 && o.X0 <= r.X1
}

// BlockKind 内容块类型
type BlockKind int

const (
	// BlockText 文本块
	BlockText BlockKind = iota
	// BlockNonText 图像或矢量图形
	BlockNonText
)

func (k BlockKind) String() string {
	if k == BlockText {
		return "text"
	}
	return "non-text"
}

// Style 文本样式
type Style struct {
	FontName string
	FontSize float64
	// Color 打包的 24 位 RGB 值 0xRRGGBB
	Color int
}

// DefaultStyle 默认样式: 11pt 黑色
func DefaultStyle() Style {
	return Style{FontSize: DefaultFontSize, Color: DefaultColor}
}

// Run 同一样式的一段文本
type Run struct {
	Text  string
	Style Style
	BBox  Rect
}

// Line 一行文本
type Line struct {
	Runs []Run
	BBox Rect
}

// Text 行内所有片段的拼接
func (l Line) Text() string {
	var sb strings.Builder
	for _, r := range l.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// Block 页面内容块
type Block struct {
	// Index 块在页面内的顺序号（包括非文本块）
	Index int
	Kind  BlockKind
	BBox  Rect
	Lines []Line
}

// IsText 是否为文本块
func (b Block) IsText() bool { return b.Kind == BlockText }

// MergedText 按行拼接文本，行间以换行分隔，去掉首尾空白
func (b Block) MergedText() string {
	var sb strings.Builder
	for _, line := range b.Lines {
		for _, run := range line.Runs {
			sb.WriteString(run.Text)
		}
		sb.WriteByte('\n')
	}
	return strings.TrimSpace(sb.String())
}

// RepresentativeStyle 取第一行第一个片段的样式，缺失时返回默认样式
func (b Block) RepresentativeStyle() Style {
	if len(b.Lines) == 0 || len(b.Lines[0].Runs) == 0 {
		return DefaultStyle()
	}
	style := b.Lines[0].Runs[0].Style
	if style.FontSize <= 0 {
		style.FontSize = DefaultFontSize
	}
	return style
}

// Page 一页的内容模型
type Page struct {
	// Index 页码，从 0 开始
	Index    int
	MediaBox Rect
	Blocks   []Block
}

// TextBlocks 按原始顺序返回文本块
func (p Page) TextBlocks() []Block {
	blocks := make([]Block, 0, len(p.Blocks))
	for _, b := range p.Blocks {
		if b.IsText() {
			blocks = append(blocks, b)
		}
	}
	return blocks
}
