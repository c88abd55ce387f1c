package translator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"layout-translator/logger"
	"layout-translator/pdf"
	"layout-translator/pdf/pdftest"
)

type fakeDocument struct {
	pages    int
	canvases map[int]*recordingCanvas
	saved    string
	closed   bool
}

func newFakeDocument(pages int) *fakeDocument {
	return &fakeDocument{pages: pages, canvases: make(map[int]*recordingCanvas)}
}

func (d *fakeDocument) PageCount() int { return d.pages }

func (d *fakeDocument) Canvas(index int) (PageCanvas, error) {
	if index < 0 || index >= d.pages {
		return nil, pdf.NewError(pdf.ErrDocumentIO, "页码超出范围", nil).AtPage(index)
	}
	c, ok := d.canvases[index]
	if !ok {
		c = &recordingCanvas{}
		d.canvases[index] = c
	}
	return c, nil
}

func (d *fakeDocument) SaveAs(outputPath string) error {
	d.saved = outputPath
	return nil
}

func (d *fakeDocument) Close() error {
	d.closed = true
	return nil
}

type fakeContent struct {
	requested []int
}

func (c *fakeContent) Page(index int) (pdf.Page, error) {
	c.requested = append(c.requested, index)
	return pdf.Page{
		Index: index,
		Blocks: []pdf.Block{
			textBlock("Hello", "Helvetica", 11, 0, pdf.NewRect(0, 0, 100, 20)),
			{Index: 1, Kind: pdf.BlockNonText, BBox: pdf.NewRect(0, 50, 100, 150)},
			textBlock(" ", "Helvetica", 11, 0, pdf.NewRect(0, 200, 100, 220)),
		},
	}, nil
}

func (c *fakeContent) Close() error { return nil }

type progressCall struct{ current, total int }

func newFakePipeline(tr TextTranslator, doc *fakeDocument, content *fakeContent) (*Pipeline, *bool) {
	p := NewPipeline(tr, logger.Discard())
	contentOpened := false
	p.openDocument = func(string) (Document, error) { return doc, nil }
	p.openContent = func(string) (ContentSource, error) {
		contentOpened = true
		return content, nil
	}
	return p, &contentOpened
}

func recordProgress(calls *[]progressCall) ProgressReporter {
	return ProgressFunc(func(current, total int) {
		*calls = append(*calls, progressCall{current, total})
	})
}

// TestTranslatePDFSelectedPageOnly 只处理范围内的页面
func TestTranslatePDFSelectedPageOnly(t *testing.T) {
	tr, calls := stubTranslator("Bonjour")
	doc := newFakeDocument(3)
	content := &fakeContent{}
	p, _ := newFakePipeline(tr, doc, content)

	var progress []progressCall
	res, err := p.TranslatePDF(context.Background(), Options{
		InputPath:      "in.pdf",
		OutputPath:     "out.pdf",
		TargetLanguage: "French",
		PageRange:      "2",
		Progress:       recordProgress(&progress),
	})
	require.NoError(t, err)

	assert.Equal(t, []progressCall{{2, 3}}, progress)
	assert.Equal(t, []int{1}, content.requested)
	require.Len(t, doc.canvases, 1)
	require.Contains(t, doc.canvases, 1)
	assert.Equal(t, "Bonjour", doc.canvases[1].inserts()[0].text)
	assert.Equal(t, 1, *calls)
	assert.Equal(t, "out.pdf", doc.saved)
	assert.True(t, doc.closed)

	assert.Equal(t, []int{2}, res.Pages)
	assert.Equal(t, 1, res.PagesProcessed)
	assert.Equal(t, 3, res.TotalPages)
	assert.Equal(t, 2, res.BlocksTotal)
	assert.Equal(t, 1, res.BlocksTranslated)
	assert.Equal(t, 1, res.BlocksSkipped)

	summary := res.Summary()
	assert.Equal(t, 1, summary.PagesProcessed)
	assert.Equal(t, 1, summary.BlocksTranslated)
}

// TestTranslatePDFProgressIncreasing 进度按页递增
func TestTranslatePDFProgressIncreasing(t *testing.T) {
	tr, _ := stubTranslator("Bonjour")
	doc := newFakeDocument(5)
	p, _ := newFakePipeline(tr, doc, &fakeContent{})

	var progress []progressCall
	_, err := p.TranslatePDF(context.Background(), Options{
		InputPath:  "in.pdf",
		OutputPath: "out.pdf",
		PageRange:  "2-4",
		Progress:   recordProgress(&progress),
	})
	require.NoError(t, err)
	assert.Equal(t, []progressCall{{2, 5}, {3, 5}, {4, 5}}, progress)
}

// TestTranslatePDFRangeErrorBeforeWork 范围无效时不处理任何页面
func TestTranslatePDFRangeErrorBeforeWork(t *testing.T) {
	tr, calls := stubTranslator("Bonjour")
	doc := newFakeDocument(3)
	p, contentOpened := newFakePipeline(tr, doc, &fakeContent{})

	var progress []progressCall
	for _, expr := range []string{"abc", "4", "1-x"} {
		_, err := p.TranslatePDF(context.Background(), Options{
			InputPath:  "in.pdf",
			OutputPath: "out.pdf",
			PageRange:  expr,
			Progress:   recordProgress(&progress),
		})
		require.Error(t, err, expr)
		assert.True(t, IsRangeError(err), expr)
	}
	assert.False(t, *contentOpened)
	assert.Empty(t, progress)
	assert.Empty(t, doc.canvases)
	assert.Empty(t, doc.saved)
	assert.Zero(t, *calls)
}

// TestTranslatePDFCancelled 取消后不写输出文件
func TestTranslatePDFCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tr := TextTranslatorFunc(func(_ context.Context, text, _, _ string) string {
		cancel()
		return text
	})
	doc := newFakeDocument(3)
	p, _ := newFakePipeline(tr, doc, &fakeContent{})

	var progress []progressCall
	_, err := p.TranslatePDF(ctx, Options{
		InputPath:  "in.pdf",
		OutputPath: "out.pdf",
		Progress:   recordProgress(&progress),
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, doc.saved)
	assert.Len(t, progress, 1)
	assert.True(t, doc.closed)
}

func TestTranslatePDFOpenFailure(t *testing.T) {
	tr, _ := stubTranslator("x")
	p := NewPipeline(tr, logger.Discard())
	p.openDocument = func(string) (Document, error) { return nil, errors.New("permission denied") }

	_, err := p.TranslatePDF(context.Background(), Options{InputPath: "in.pdf", OutputPath: "out.pdf"})
	assert.ErrorIs(t, err, ErrDocumentIO)
}

func TestTranslatePDFRejectsInPlaceOutput(t *testing.T) {
	tr, _ := stubTranslator("x")
	p, _ := newFakePipeline(tr, newFakeDocument(1), &fakeContent{})

	_, err := p.TranslatePDF(context.Background(), Options{InputPath: "doc.pdf", OutputPath: "./doc.pdf"})
	assert.ErrorIs(t, err, ErrDocumentIO)
}

// TestTranslatePDFRoundTrip 使用真实 PDF 文件完成一次翻译
func TestTranslatePDFRoundTrip(t *testing.T) {
	input := pdftest.Hello(t, 3)
	before, err := os.ReadFile(input)
	require.NoError(t, err)

	tr, calls := stubTranslator("Bonjour")
	p := NewPipeline(tr, logger.Discard())
	output := filepath.Join(t.TempDir(), "translated_hello.pdf")

	res, err := p.TranslatePDF(context.Background(), Options{
		InputPath:      input,
		OutputPath:     output,
		SourceLanguage: "English",
		TargetLanguage: "French",
		PageRange:      "2",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, *calls)
	assert.Equal(t, 1, res.BlocksTranslated)

	after, err := os.ReadFile(input)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	n, err := pdf.PageCountFile(output)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	content, err := pdf.OpenContent(output, logger.Discard())
	require.NoError(t, err)
	defer content.Close()
	for i := 0; i < 3; i++ {
		page, err := content.Page(i)
		require.NoError(t, err)
		var texts []string
		for _, b := range page.TextBlocks() {
			texts = append(texts, b.MergedText())
		}
		joined := strings.Join(texts, "\n")
		if i == 1 {
			assert.Contains(t, joined, "Bonjour")
		} else {
			assert.NotContains(t, joined, "Bonjour")
		}
	}
}

// TestTranslatePDFLayoutConfig 行距阈值决定相邻行是否合并为一个块
func TestTranslatePDFLayoutConfig(t *testing.T) {
	input := pdftest.Write(t, "lines.pdf", pdftest.Page{Texts: []pdftest.Text{
		{X: 72, Y: 100, Size: 12, Value: "Hello"},
		{X: 72, Y: 114, Size: 12, Value: "World"},
	}})

	run := func(layout *pdf.LayoutConfig) int {
		tr, calls := stubTranslator("Bonjour")
		p := NewPipeline(tr, logger.Discard())
		if layout != nil {
			p.SetLayoutConfig(*layout)
		}
		_, err := p.TranslatePDF(context.Background(), Options{
			InputPath:  input,
			OutputPath: filepath.Join(t.TempDir(), "out.pdf"),
		})
		require.NoError(t, err)
		return *calls
	}

	assert.Equal(t, 1, run(nil))
	tight := pdf.DefaultLayoutConfig()
	tight.MaxLineSpacing = 1.0
	assert.Equal(t, 2, run(&tight))
}

func TestTranslatePDFCountsLossyBlocks(t *testing.T) {
	tr, _ := stubTranslator("안녕하세요")
	doc := newFakeDocument(2)
	p, _ := newFakePipeline(tr, doc, &fakeContent{})

	res, err := p.TranslatePDF(context.Background(), Options{InputPath: "in.pdf", OutputPath: "out.pdf"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Lossy)
	assert.Equal(t, 2, res.Summary().Lossy)
}
