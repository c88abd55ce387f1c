package pdf

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
)

// Canvas 单页绘制缓冲区，累积擦除和文本操作符，保存文档时追加到页面内容流末尾
type Canvas struct {
	pageIndex int
	metrics   *Metrics
	ops       bytes.Buffer
	fonts     map[FontFamily]bool
}

func newCanvas(pageIndex int, metrics *Metrics) *Canvas {
	return &Canvas{
		pageIndex: pageIndex,
		metrics:   metrics,
		fonts:     make(map[FontFamily]bool),
	}
}

// PageIndex 页码，从 0 开始
func (c *Canvas) PageIndex() int { return c.pageIndex }

// Dirty 是否有待写入的操作
func (c *Canvas) Dirty() bool { return c.ops.Len() > 0 }

// Erase 用白色填充矩形
func (c *Canvas) Erase(r Rect) error {
	if r.Width() < 0 || r.Height() < 0 {
		return fmt.Errorf("%w: 无效的擦除区域 %v", ErrBlockRender, r)
	}
	fmt.Fprintf(&c.ops, "q 1 1 1 rg %s %s %s %s re f Q\n",
		num(r.X0), num(r.Y0), num(r.Width()), num(r.Height()))
	return nil
}

// InsertTextbox 在矩形内绘制左对齐折行文本，返回剩余高度（负数表示溢出）
func (c *Canvas) InsertTextbox(r Rect, text string, opts TextOptions) (float64, error) {
	layout, err := c.metrics.LayoutTextbox(r, text, opts)
	if err != nil {
		return 0, err
	}
	if len(layout.Lines) == 0 {
		return layout.Remaining, nil
	}

	font := coreFonts[opts.Family]
	c.fonts[opts.Family] = true

	c.ops.WriteString("q\nBT\n")
	fmt.Fprintf(&c.ops, "/%s %s Tf\n", font.resourceName, num(opts.Size))
	fmt.Fprintf(&c.ops, "%s %s %s rg\n",
		num(float64(opts.Color.R)), num(float64(opts.Color.G)), num(float64(opts.Color.B)))
	for _, line := range layout.Lines {
		fmt.Fprintf(&c.ops, "1 0 0 1 %s %s Tm\n", num(line.X), num(line.Baseline))
		c.ops.WriteString(escapeString(line.Text))
		c.ops.WriteString(" Tj\n")
	}
	c.ops.WriteString("ET\nQ\n")
	return layout.Remaining, nil
}

// Mark 返回当前缓冲区位置，配合 Rollback 撤销之后的绘制
func (c *Canvas) Mark() int { return c.ops.Len() }

// Rollback 丢弃 mark 之后写入的操作符
func (c *Canvas) Rollback(mark int) {
	if mark >= 0 && mark <= c.ops.Len() {
		c.ops.Truncate(mark)
	}
}

// Bytes 已累积的内容流
func (c *Canvas) Bytes() []byte { return c.ops.Bytes() }

// Families 已使用的字体
func (c *Canvas) Families() []FontFamily {
	out := make([]FontFamily, 0, len(c.fonts))
	for _, f := range []FontFamily{FontHelvetica, FontTimes, FontCourier} {
		if c.fonts[f] {
			out = append(out, f)
		}
	}
	return out
}

// num 格式化操作数，最多保留 4 位小数
func num(v float64) string {
	v = math.Round(v*1e4) / 1e4
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// escapeString 生成 PDF 字面量字符串
func escapeString(b []byte) string {
	var sb bytes.Buffer
	sb.WriteByte('(')
	for _, c := range b {
		switch {
		case c == '(' || c == ')' || c == '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case c < 0x20 || c > 0x7E:
			fmt.Fprintf(&sb, "\\%03o", c)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte(')')
	return sb.String()
}
