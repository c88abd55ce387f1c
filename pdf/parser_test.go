package pdf_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"layout-translator/logger"
	"layout-translator/pdf"
	"layout-translator/pdf/pdftest"
)

func allText(page pdf.Page) string {
	var parts []string
	for _, b := range page.TextBlocks() {
		parts = append(parts, b.MergedText())
	}
	return strings.Join(parts, "\n")
}

func TestContentReaderBuildsBlocks(t *testing.T) {
	path := pdftest.Write(t, "blocks.pdf", pdftest.Page{
		Texts: []pdftest.Text{
			{X: 72, Y: 100, Size: 12, Value: "Hello"},
			{X: 72, Y: 114, Size: 12, Value: "World"},
			{X: 72, Y: 400, Size: 12, Value: "Blue", RGB: [3]int{0, 0, 255}},
		},
		Rects: []pdftest.FillRect{{X: 300, Y: 600, W: 100, H: 50}},
	})

	content, err := pdf.OpenContent(path, logger.Discard())
	require.NoError(t, err)
	defer content.Close()
	require.Equal(t, 1, content.NumPage())

	page, err := content.Page(0)
	require.NoError(t, err)

	texts := page.TextBlocks()
	require.Len(t, texts, 2)
	assert.Equal(t, "Hello\nWorld", texts[0].MergedText())
	assert.Equal(t, "Blue", texts[1].MergedText())

	style := texts[0].RepresentativeStyle()
	assert.InDelta(t, 12, style.FontSize, 0.01)
	assert.Equal(t, "Helvetica", style.FontName)
	assert.Equal(t, 0, style.Color)
	assert.Equal(t, 0x0000FF, texts[1].RepresentativeStyle().Color)

	// 基线位置与生成时一致
	bbox := texts[0].BBox
	assert.InDelta(t, 72, bbox.X0, 0.5)
	assert.Greater(t, bbox.Y1, pdftest.BaselineY(100))
	assert.Less(t, bbox.Y0, pdftest.BaselineY(114))

	var nonText int
	for _, b := range page.Blocks {
		if !b.IsText() {
			nonText++
		}
	}
	assert.Equal(t, 1, nonText)
}

func TestContentReaderPageOutOfRange(t *testing.T) {
	content, err := pdf.OpenContent(pdftest.Hello(t, 1), logger.Discard())
	require.NoError(t, err)
	defer content.Close()

	_, err = content.Page(3)
	assert.True(t, errors.Is(err, pdf.ErrDocumentIO))
}

func TestOpenRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf at all"), 0644))

	_, err := pdf.OpenContent(path, logger.Discard())
	assert.True(t, errors.Is(err, pdf.ErrDocumentIO))

	_, err = pdf.OpenDocument(path, logger.Discard())
	assert.True(t, errors.Is(err, pdf.ErrDocumentIO))

	_, err = pdf.OpenDocument(filepath.Join(t.TempDir(), "missing.pdf"), logger.Discard())
	assert.True(t, errors.Is(err, pdf.ErrDocumentIO))

	_, err = pdf.Inspect(path, logger.Discard())
	assert.Error(t, err)
}

func TestDocumentRoundTrip(t *testing.T) {
	input := pdftest.Hello(t, 2)
	before, err := os.ReadFile(input)
	require.NoError(t, err)

	doc, err := pdf.OpenDocument(input, logger.Discard())
	require.NoError(t, err)
	require.Equal(t, 2, doc.PageCount())

	canvas, err := doc.Canvas(1)
	require.NoError(t, err)
	box := pdf.NewRect(72, 700, 300, 760)
	require.NoError(t, canvas.Erase(box))
	remaining, err := canvas.InsertTextbox(box, "Bonjour", pdf.TextOptions{Family: pdf.FontHelvetica, Size: 11, Color: color.Black})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, remaining, 0.0)

	output := filepath.Join(t.TempDir(), "out", "translated.pdf")
	require.NoError(t, doc.SaveAs(output))
	require.NoError(t, doc.Close())

	// 输入文件不变
	after, err := os.ReadFile(input)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	n, err := pdf.PageCountFile(output)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	content, err := pdf.OpenContent(output, logger.Discard())
	require.NoError(t, err)
	defer content.Close()

	first, err := content.Page(0)
	require.NoError(t, err)
	assert.NotContains(t, allText(first), "Bonjour")

	second, err := content.Page(1)
	require.NoError(t, err)
	assert.Contains(t, allText(second), "Bonjour")
	assert.Contains(t, allText(second), "Hello")

	// 临时文件已清理
	entries, err := os.ReadDir(filepath.Dir(output))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "translated.pdf", entries[0].Name())
}

func TestDocumentSaveFailureLeavesNoFile(t *testing.T) {
	doc, err := pdf.OpenDocument(pdftest.Hello(t, 1), logger.Discard())
	require.NoError(t, err)

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	err = doc.SaveAs(filepath.Join(blocker, "out.pdf"))
	assert.True(t, errors.Is(err, pdf.ErrDocumentIO))
}

func TestDocumentCanvasOutOfRange(t *testing.T) {
	doc, err := pdf.OpenDocument(pdftest.Hello(t, 1), logger.Discard())
	require.NoError(t, err)
	_, err = doc.Canvas(1)
	assert.True(t, errors.Is(err, pdf.ErrDocumentIO))
}

func TestInspect(t *testing.T) {
	info, err := pdf.Inspect(pdftest.Hello(t, 3), logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, 3, info.Pages)
	assert.Equal(t, pdf.ParserContentModel, info.Parser)
	require.Len(t, info.Summary, 3)
	for i, s := range info.Summary {
		assert.Equal(t, i+1, s.Page)
		assert.Equal(t, 1, s.TextBlocks)
		assert.Equal(t, "Hello", s.Preview)
	}
}

// TestContentReaderStandardFontWidths 没有宽度表的标准字体按真实字形宽度计算块边界
func TestContentReaderStandardFontWidths(t *testing.T) {
	const headline = "WWW MMM HEADLINE"
	path := pdftest.Write(t, "headline.pdf", pdftest.Page{
		Texts: []pdftest.Text{
			{X: 72, Y: 100, Size: 20, Value: headline},
			{X: 72, Y: 400, Size: 20, Style: "B", Value: "WIDE"},
		},
	})

	content, err := pdf.OpenContent(path, logger.Discard())
	require.NoError(t, err)
	defer content.Close()
	page, err := content.Page(0)
	require.NoError(t, err)
	texts := page.TextBlocks()
	require.Len(t, texts, 2)

	want, err := pdf.NewMetrics().StringWidth(pdf.FontHelvetica, 20, pdf.EncodeWinAnsi(headline))
	require.NoError(t, err)
	assert.Equal(t, headline, texts[0].MergedText())
	assert.InDelta(t, 72, texts[0].BBox.X0, 0.5)
	assert.InDelta(t, want, texts[0].BBox.Width(), 0.5)

	bold, ok := pdf.CoreGlyphWidths("Helvetica-Bold")
	require.True(t, ok)
	var boldWidth float64
	for _, b := range []byte("WIDE") {
		boldWidth += float64(bold[b]) / 1000 * 20
	}
	assert.Equal(t, "Helvetica-Bold", texts[1].RepresentativeStyle().FontName)
	assert.InDelta(t, boldWidth, texts[1].BBox.Width(), 0.5)
}

func TestCoreGlyphWidths(t *testing.T) {
	regular, ok := pdf.CoreGlyphWidths("Helvetica")
	require.True(t, ok)
	assert.Equal(t, 944, regular['W'])
	assert.Equal(t, 278, regular[' '])

	bold, ok := pdf.CoreGlyphWidths("Helvetica-BoldOblique")
	require.True(t, ok)
	assert.Equal(t, 611, bold['n'])

	courier, ok := pdf.CoreGlyphWidths("Courier-Oblique")
	require.True(t, ok)
	assert.Equal(t, 600, courier['W'])
	assert.Equal(t, 600, courier['i'])

	times, ok := pdf.CoreGlyphWidths("Times-Roman")
	require.True(t, ok)
	assert.Equal(t, 250, times[' '])

	_, ok = pdf.CoreGlyphWidths("MinionPro-Regular")
	assert.False(t, ok)
}
