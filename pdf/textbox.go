package pdf

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/color"
)

// fitEpsilon 浮点误差容差
const fitEpsilon = 1e-6

// TextOptions 文本框绘制参数
type TextOptions struct {
	Family FontFamily
	Size   float64
	Color  color.SimpleColor
}

// PlacedLine 已定位的一行文本（WinAnsi 编码）
type PlacedLine struct {
	Text     []byte
	X        float64
	Baseline float64
}

// TextLayout 文本框排版结果
type TextLayout struct {
	Lines []PlacedLine
	// Remaining 剩余高度，负数表示溢出的高度
	Remaining float64
	// Wrapped 折行后的总行数，可能多于 Lines
	Wrapped int
}

// Fits 排版结果是否完全放入文本框
func (l TextLayout) Fits() bool {
	return l.Remaining >= -fitEpsilon
}

// LayoutTextbox 左对齐折行排版，返回能放入矩形的行以及剩余高度
// 一行都放不下时仍保留第一行，保证擦除区域不会留空
func (m *Metrics) LayoutTextbox(r Rect, text string, opts TextOptions) (TextLayout, error) {
	if opts.Size <= 0 {
		return TextLayout{}, fmt.Errorf("无效的字号: %.2f", opts.Size)
	}
	if !validColor(opts.Color) {
		return TextLayout{}, fmt.Errorf("%w: %v", ErrInvalidColor, opts.Color)
	}
	if _, err := lookupCoreFont(opts.Family); err != nil {
		return TextLayout{}, err
	}

	encoded := EncodeWinAnsi(text)
	wrapped, err := m.WrapLines(opts.Family, opts.Size, encoded, r.Width())
	if err != nil {
		return TextLayout{}, err
	}

	lineHeight := LineHeight(opts.Size)
	layout := TextLayout{
		Wrapped:   len(wrapped),
		Remaining: r.Height() - float64(len(wrapped))*lineHeight,
	}

	for i, line := range wrapped {
		bottom := float64(i+1) * lineHeight
		if bottom > r.Height()+fitEpsilon && i > 0 {
			break
		}
		layout.Lines = append(layout.Lines, PlacedLine{
			Text:     line,
			X:        r.X0,
			Baseline: r.Y1 - fontAscent*opts.Size - float64(i)*lineHeight,
		})
	}
	return layout, nil
}
