package translator

// ProgressReporter 进度回调，每个选中的页面在处理前调用一次
// current 为当前页码，total 为文档总页数，均从 1 开始
type ProgressReporter interface {
	Report(current, total int)
}

// ProgressFunc 函数适配器
type ProgressFunc func(current, total int)

func (f ProgressFunc) Report(current, total int) { f(current, total) }

type nopProgress struct{}

func (nopProgress) Report(int, int) {}
