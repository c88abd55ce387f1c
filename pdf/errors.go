package pdf

import (
	"errors"
	"fmt"
)

var (
	// ErrDocumentIO 文档无法打开、解析或保存
	ErrDocumentIO = errors.New("文档读写失败")
	// ErrBlockRender 单个块的擦除或绘制失败
	ErrBlockRender = errors.New("块渲染失败")
	// ErrFontUnavailable 绘制器不支持的字体
	ErrFontUnavailable = errors.New("字体不可用")
	// ErrInvalidColor 颜色值超出 24 位 RGB 范围
	ErrInvalidColor = errors.New("无效的颜色值")
)

// Error 带页码和块序号的 PDF 处理错误
type Error struct {
	Kind    error
	Page    int // 从 1 开始，0 表示与页面无关
	Block   int // -1 表示与块无关
	Message string
	Err     error
}

// NewError 创建 PDF 处理错误
func NewError(kind error, message string, err error) *Error {
	return &Error{Kind: kind, Block: -1, Message: message, Err: err}
}

// AtPage 附加页码（从 0 开始的索引会转换为从 1 开始）
func (e *Error) AtPage(index int) *Error {
	e.Page = index + 1
	return e
}

// AtBlock 附加块序号
func (e *Error) AtBlock(index int) *Error {
	e.Block = index
	return e
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Page > 0 {
		msg = fmt.Sprintf("第 %d 页: %s", e.Page, msg)
	}
	if e.Block >= 0 {
		msg = fmt.Sprintf("%s (块 %d)", msg, e.Block)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Kind != nil {
		msg = fmt.Sprintf("%v: %s", e.Kind, msg)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is 按错误类型匹配
func (e *Error) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}
