package pdf

import (
	"fmt"
	"strings"

	dslipakpdf "github.com/dslipak/pdf"

	"layout-translator/logger"
)

// 解析器名称
const (
	ParserContentModel = "ledongthuc/pdf"
	ParserPlainText    = "dslipak/pdf"
)

// PageSummary 单页概要
type PageSummary struct {
	Page          int    `json:"page"` // 从 1 开始
	TextBlocks    int    `json:"textBlocks"`
	NonTextBlocks int    `json:"nonTextBlocks"`
	Preview       string `json:"preview"`
	Error         string `json:"error,omitempty"`
}

// DocumentInfo 文档概要，用于上传前预览页数和文本块
type DocumentInfo struct {
	Pages   int           `json:"pages"`
	Parser  string        `json:"parser"`
	Summary []PageSummary `json:"summary"`
	// Valid pdfcpu 严格校验结果，未通过的文档通常仍可处理
	Valid           bool   `json:"valid"`
	ValidationError string `json:"validationError,omitempty"`
}

// Inspect 读取文档概要，内容模型无法打开时退回 dslipak/pdf 纯文本解析
func Inspect(path string, log *logger.Logger) (*DocumentInfo, error) {
	if log == nil {
		log = logger.Default()
	}

	content, err := OpenContent(path, log)
	if err == nil {
		defer content.Close()
		info := inspectContent(content)
		info.validate(path)
		return info, nil
	}
	log.Warn("内容模型解析失败，尝试纯文本解析", logger.Fields{"文件": path, "错误": err.Error()})

	info, fallbackErr := inspectPlainText(path)
	if fallbackErr != nil {
		return nil, NewError(ErrDocumentIO, "所有解析方法都失败了", fmt.Errorf("%v; %v", err, fallbackErr))
	}
	info.validate(path)
	return info, nil
}

func (info *DocumentInfo) validate(path string) {
	if err := ValidateFile(path); err != nil {
		info.ValidationError = err.Error()
		return
	}
	info.Valid = true
}

func inspectContent(content *ContentReader) *DocumentInfo {
	info := &DocumentInfo{Pages: content.NumPage(), Parser: ParserContentModel}
	for i := 0; i < info.Pages; i++ {
		page, err := content.Page(i)
		summary := PageSummary{Page: i + 1}
		for _, b := range page.Blocks {
			if b.IsText() {
				summary.TextBlocks++
				if summary.Preview == "" {
					summary.Preview = logger.Truncate(b.MergedText(), 80)
				}
			} else {
				summary.NonTextBlocks++
			}
		}
		if err != nil {
			summary.Error = err.Error()
		}
		info.Summary = append(info.Summary, summary)
	}
	return info
}

func inspectPlainText(path string) (info *DocumentInfo, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dslipak/pdf 解析时发生panic: %v", r)
		}
	}()

	reader, err := dslipakpdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dslipak/pdf打开失败: %w", err)
	}

	info = &DocumentInfo{Pages: reader.NumPage(), Parser: ParserPlainText}
	for i := 1; i <= info.Pages; i++ {
		summary := PageSummary{Page: i}
		page := reader.Page(i)
		if page.V.IsNull() {
			info.Summary = append(info.Summary, summary)
			continue
		}
		text, textErr := page.GetPlainText(nil)
		if textErr != nil {
			summary.Error = textErr.Error()
		}
		text = strings.TrimSpace(text)
		if text != "" {
			summary.TextBlocks = 1
			summary.Preview = logger.Truncate(text, 80)
		}
		info.Summary = append(info.Summary, summary)
	}
	return info, nil
}
