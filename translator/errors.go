package translator

import (
	"errors"
	"fmt"

	"layout-translator/pdf"
)

var (
	// ErrInvalidRangeFormat 范围表达式格式错误，例如 "a-b" 或 "1-2-3"
	ErrInvalidRangeFormat = errors.New("无效的页码范围格式")
	// ErrInvalidPageNumber 单页表达式不是整数
	ErrInvalidPageNumber = errors.New("无效的页码")
	// ErrPageOutOfRange 单页页码超出文档页数
	ErrPageOutOfRange = errors.New("页码超出范围")
	// ErrTranslationUnavailable 翻译服务不可用，调用方会退回原文
	ErrTranslationUnavailable = errors.New("翻译服务不可用")

	// ErrBlockRender 和 ErrDocumentIO 与 pdf 包共用
	ErrBlockRender = pdf.ErrBlockRender
	ErrDocumentIO  = pdf.ErrDocumentIO
)

// RangeError 页码范围解析错误
type RangeError struct {
	Kind       error
	Expression string
	TotalPages int
	Err        error
}

func (e *RangeError) Error() string {
	msg := fmt.Sprintf("%v: %q (共 %d 页)", e.Kind, e.Expression, e.TotalPages)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RangeError) Unwrap() error { return e.Err }

// Is 按错误类型匹配
func (e *RangeError) Is(target error) bool {
	return target == e.Kind
}

// IsRangeError 是否为页码范围相关错误，HTTP 层据此返回 400
func IsRangeError(err error) bool {
	return errors.Is(err, ErrInvalidRangeFormat) ||
		errors.Is(err, ErrInvalidPageNumber) ||
		errors.Is(err, ErrPageOutOfRange)
}
