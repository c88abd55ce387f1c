package translator

import (
	"fmt"
	"path/filepath"
	"strings"

	"layout-translator/logger"
	"layout-translator/pdf"
)

// Document 可修改的文档，一次运行内独占使用
type Document interface {
	PageCount() int
	// Canvas 返回页面绘制接口，index 从 0 开始
	Canvas(index int) (PageCanvas, error)
	SaveAs(outputPath string) error
	Close() error
}

// ContentSource 页面内容模型来源
type ContentSource interface {
	// Page 解析指定页，index 从 0 开始
	Page(index int) (pdf.Page, error)
	Close() error
}

type pdfDocument struct {
	*pdf.Document
}

func (d pdfDocument) Canvas(index int) (PageCanvas, error) {
	c, err := d.Document.Canvas(index)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// OpenPDFDocument 用 pdfcpu 打开可修改的 PDF 文档
func OpenPDFDocument(path string, log *logger.Logger) (Document, error) {
	doc, err := pdf.OpenDocument(path, log)
	if err != nil {
		return nil, err
	}
	return pdfDocument{doc}, nil
}

// OpenPDFContent 用 ledongthuc/pdf 打开内容模型，按 layout 的阈值成行成块
func OpenPDFContent(path string, layout pdf.LayoutConfig, log *logger.Logger) (ContentSource, error) {
	content, err := pdf.OpenContent(path, log)
	if err != nil {
		return nil, err
	}
	content.SetLayoutConfig(layout)
	return content, nil
}

// ValidateDocument 检查文件扩展名并确认 pdfcpu 能读出页数，返回总页数
func ValidateDocument(filePath string) (int, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	if ext != ".pdf" {
		return 0, fmt.Errorf("不支持的文件格式: %s，仅支持 .pdf 文件", ext)
	}
	n, err := pdf.PageCountFile(filePath)
	if err != nil {
		return 0, fmt.Errorf("文档验证失败: %w", err)
	}
	return n, nil
}
