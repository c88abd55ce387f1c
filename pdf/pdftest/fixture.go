// Package pdftest 使用 gofpdf 在测试中生成 PDF 样本文件
package pdftest

import (
	"path/filepath"
	"testing"

	"github.com/jung-kurt/gofpdf"
)

// A4 页面高度（pt），gofpdf 以左上角为原点
const PageHeight = 841.89

// Text 一段要写入的文本，X/Y 为 gofpdf 坐标（Y 为从页面顶端到基线的距离）
type Text struct {
	X, Y  float64
	Size  float64
	Font  string // 默认 Helvetica
	Style string // gofpdf 样式，如 "B"、"I"
	Value string
	RGB   [3]int
}

// FillRect 一个填充矩形（gofpdf 坐标）
type FillRect struct {
	X, Y, W, H float64
}

// Page 单页内容
type Page struct {
	Texts []Text
	Rects []FillRect
}

// BaselineY 把 gofpdf 的 Y 转换为 PDF 坐标中的基线位置
func BaselineY(y float64) float64 {
	return PageHeight - y
}

// Write 生成 PDF 并返回路径
func Write(t testing.TB, name string, pages ...Page) string {
	t.Helper()

	f := gofpdf.New("P", "pt", "A4", "")
	f.SetCompression(false)
	for _, p := range pages {
		f.AddPage()
		for _, r := range p.Rects {
			f.SetFillColor(200, 200, 200)
			f.Rect(r.X, r.Y, r.W, r.H, "F")
		}
		for _, txt := range p.Texts {
			font := txt.Font
			if font == "" {
				font = "Helvetica"
			}
			size := txt.Size
			if size == 0 {
				size = 11
			}
			f.SetFont(font, txt.Style, size)
			f.SetTextColor(txt.RGB[0], txt.RGB[1], txt.RGB[2])
			f.Text(txt.X, txt.Y, txt.Value)
		}
	}

	path := filepath.Join(t.TempDir(), name)
	if err := f.OutputFileAndClose(path); err != nil {
		t.Fatalf("生成PDF样本失败: %v", err)
	}
	return path
}

// Hello 生成每页一行 "Hello" 的多页文档
func Hello(t testing.TB, pages int) string {
	t.Helper()
	content := make([]Page, pages)
	for i := range content {
		content[i] = Page{Texts: []Text{{X: 72, Y: 100, Size: 11, Value: "Hello"}}}
	}
	return Write(t, "hello.pdf", content...)
}
