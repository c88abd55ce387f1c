package pdf

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// 内置字体的纵向度量（以字号为单位）
const (
	fontAscent       = 0.9
	fontDescent      = 0.25
	lineHeightFactor = fontAscent + fontDescent
)

// coreFont 内置字体描述
type coreFont struct {
	// gofpdf 中的字体族名
	metricsFamily string
	// PDF 标准 14 字体名
	baseFont string
	// 页面资源名
	resourceName string
}

var coreFonts = map[FontFamily]coreFont{
	FontHelvetica: {metricsFamily: "Helvetica", baseFont: "Helvetica", resourceName: "TRHelv"},
	FontTimes:     {metricsFamily: "Times", baseFont: "Times-Roman", resourceName: "TRTimes"},
	FontCourier:   {metricsFamily: "Courier", baseFont: "Courier", resourceName: "TRCour"},
}

func lookupCoreFont(family FontFamily) (coreFont, error) {
	f, ok := coreFonts[family]
	if !ok {
		return coreFont{}, fmt.Errorf("%w: %q", ErrFontUnavailable, string(family))
	}
	return f, nil
}

// standardFontPrefixes 标准 14 字体中按 WinAnsi 编码的字体名前缀，Arial 按 Helvetica 处理
var standardFontPrefixes = []string{"helvetica", "arial", "times", "courier"}

var (
	glyphWidthMu    sync.Mutex
	glyphWidthCache = make(map[string][]int)
)

// CoreGlyphWidths 返回标准字体（含粗体、斜体变体）按单字节编码的字形宽度，单位为千分之一字号
// 非标准字体返回 false
func CoreGlyphWidths(baseFont string) ([]int, bool) {
	name := strings.ToLower(strings.ReplaceAll(baseFont, " ", ""))
	standard := false
	for _, prefix := range standardFontPrefixes {
		if strings.HasPrefix(name, prefix) {
			standard = true
			break
		}
	}
	if !standard {
		return nil, false
	}
	font, err := lookupCoreFont(ResolveFontFamily(name))
	if err != nil {
		return nil, false
	}
	style := ""
	if strings.Contains(name, "bold") {
		style += "B"
	}
	if strings.Contains(name, "italic") || strings.Contains(name, "oblique") {
		style += "I"
	}

	key := font.metricsFamily + style
	glyphWidthMu.Lock()
	defer glyphWidthMu.Unlock()
	if widths, ok := glyphWidthCache[key]; ok {
		return widths, true
	}

	f := gofpdf.New("P", "pt", "A4", "")
	f.SetFont(font.metricsFamily, style, 1000)
	if f.Error() != nil {
		return nil, false
	}
	widths := make([]int, 256)
	for code := 1; code < 256; code++ {
		widths[code] = f.GetStringSymbolWidth(string([]byte{byte(code)}))
	}
	glyphWidthCache[key] = widths
	return widths, true
}

// Metrics 基于 gofpdf 内置字体宽度表的文本度量
type Metrics struct {
	mutex sync.Mutex
	fpdf  *gofpdf.Fpdf
}

// NewMetrics 创建文本度量器
func NewMetrics() *Metrics {
	f := gofpdf.New("P", "pt", "A4", "")
	f.SetCellMargin(0)
	return &Metrics{fpdf: f}
}

func (m *Metrics) use(family FontFamily, size float64) error {
	font, err := lookupCoreFont(family)
	if err != nil {
		return err
	}
	m.fpdf.SetFont(font.metricsFamily, "", size)
	if err := m.fpdf.Error(); err != nil {
		m.fpdf.ClearError()
		return fmt.Errorf("%w: %v", ErrFontUnavailable, err)
	}
	return nil
}

// StringWidth 计算已编码文本在指定字体字号下的宽度
func (m *Metrics) StringWidth(family FontFamily, size float64, encoded []byte) (float64, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if err := m.use(family, size); err != nil {
		return 0, err
	}
	return m.fpdf.GetStringWidth(string(encoded)), nil
}

// WrapLines 按宽度折行，优先在空格处断开，单词过长时按字符断开
func (m *Metrics) WrapLines(family FontFamily, size float64, encoded []byte, width float64) ([][]byte, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if err := m.use(family, size); err != nil {
		return nil, err
	}
	if width <= 0 {
		return nil, fmt.Errorf("文本框宽度无效: %.2f", width)
	}
	return m.fpdf.SplitLines(encoded, width), nil
}

// LineHeight 指定字号的行高
func LineHeight(size float64) float64 {
	return size * lineHeightFactor
}

// EncodeWinAnsi 把文本编码为内置字体使用的 WinAnsi 字节
// 无法编码的字符先尝试兼容分解（如连字 ﬁ -> fi、é -> e），仍失败则替换为 '?'
func EncodeWinAnsi(text string) []byte {
	out := make([]byte, 0, len(text))
	for _, r := range text {
		if b, ok := charmap.Windows1252.EncodeRune(r); ok {
			out = append(out, b)
			continue
		}
		out = appendDecomposed(out, r)
	}
	return out
}

func appendDecomposed(out []byte, r rune) []byte {
	var buf [utf8.UTFMax]byte
	n := utf8.EncodeRune(buf[:], r)
	decomposed := norm.NFKD.String(string(buf[:n]))
	appended := false
	for _, dr := range decomposed {
		if b, ok := charmap.Windows1252.EncodeRune(dr); ok {
			out = append(out, b)
			appended = true
		}
	}
	if !appended {
		out = append(out, '?')
	}
	return out
}

// CanEncodeWinAnsi 文本是否可以直接用内置字体表示
func CanEncodeWinAnsi(text string) bool {
	for _, r := range text {
		if _, ok := charmap.Windows1252.EncodeRune(r); !ok {
			return false
		}
	}
	return true
}
