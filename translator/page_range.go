package translator

import (
	"errors"
	"strconv"
	"strings"
)

// RangeAll 选择所有页
const RangeAll = "ALL"

// ResolvePageRange 把页码范围表达式转换为从 0 开始的页索引列表
//
//	"ALL"        所有页
//	"n"          第 n 页，超出范围返回 ErrPageOutOfRange
//	"start-end"  闭区间，两端各自截断到文档范围内，起止颠倒时交换
func ResolvePageRange(expression string, totalPages int) ([]int, error) {
	expr := strings.ToUpper(strings.TrimSpace(expression))

	if expr == RangeAll {
		return sequence(0, totalPages-1), nil
	}

	if strings.Contains(expr, "-") {
		parts := strings.Split(expr, "-")
		if len(parts) != 2 {
			return nil, &RangeError{Kind: ErrInvalidRangeFormat, Expression: expression, TotalPages: totalPages}
		}
		start, err := parsePageNumber(parts[0])
		if err != nil {
			return nil, &RangeError{Kind: ErrInvalidRangeFormat, Expression: expression, TotalPages: totalPages, Err: err}
		}
		end, err := parsePageNumber(parts[1])
		if err != nil {
			return nil, &RangeError{Kind: ErrInvalidRangeFormat, Expression: expression, TotalPages: totalPages, Err: err}
		}
		if totalPages <= 0 {
			return []int{}, nil
		}

		startIdx := clamp(start-1, 0, totalPages-1)
		endIdx := clamp(end-1, 0, totalPages-1)
		if startIdx > endIdx {
			startIdx, endIdx = endIdx, startIdx
		}
		return sequence(startIdx, endIdx), nil
	}

	page, err := parsePageNumber(expr)
	if err != nil {
		return nil, &RangeError{Kind: ErrInvalidPageNumber, Expression: expression, TotalPages: totalPages, Err: err}
	}
	idx := page - 1
	if idx < 0 || idx >= totalPages {
		return nil, &RangeError{Kind: ErrPageOutOfRange, Expression: expression, TotalPages: totalPages}
	}
	return []int{idx}, nil
}

// parsePageNumber 解析页码，超出 int 范围的数字饱和到对应边界，交给后续截断或越界检查
func parsePageNumber(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if errors.Is(err, strconv.ErrRange) {
		return n, nil
	}
	return n, err
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func sequence(from, to int) []int {
	if to < from {
		return []int{}
	}
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

// OneBased 把页索引转换为从 1 开始的页码，用于日志和接口输出
func OneBased(indices []int) []int {
	out := make([]int, len(indices))
	for i, idx := range indices {
		out[i] = idx + 1
	}
	return out
}
