package pdf

import "math"

// Matrix PDF 仿射变换矩阵 [A B 0; C D 0; E F 1]，按行向量约定相乘
type Matrix struct {
	A, B, C, D, E, F float64
}

// Identity 返回单位矩阵
func Identity() Matrix {
	return Matrix{A: 1, D: 1}
}

// Translation 返回平移矩阵
func Translation(tx, ty float64) Matrix {
	return Matrix{A: 1, D: 1, E: tx, F: ty}
}

// Multiply 返回 m × n，即先应用 m 再应用 n
func (m Matrix) Multiply(n Matrix) Matrix {
	return Matrix{
		A: m.A*n.A + m.B*n.C,
		B: m.A*n.B + m.B*n.D,
		C: m.C*n.A + m.D*n.C,
		D: m.C*n.B + m.D*n.D,
		E: m.E*n.A + m.F*n.C + n.E,
		F: m.E*n.B + m.F*n.D + n.F,
	}
}

// Apply 变换一个点
func (m Matrix) Apply(x, y float64) (float64, float64) {
	return m.A*x + m.C*y + m.E, m.B*x + m.D*y + m.F
}

// VerticalScale y 方向单位长度变换后的长度，用于计算实际字号
func (m Matrix) VerticalScale() float64 {
	return math.Hypot(m.C, m.D)
}

// ApplyRect 变换矩形四个角并返回外接矩形
func (m Matrix) ApplyRect(r Rect) Rect {
	x0, y0 := m.Apply(r.X0, r.Y0)
	out := Rect{X0: x0, Y0: y0, X1: x0, Y1: y0}
	for _, p := range [][2]float64{{r.X1, r.Y0}, {r.X0, r.Y1}, {r.X1, r.Y1}} {
		x, y := m.Apply(p[0], p[1])
		out = out.IncludePoint(x, y)
	}
	return out
}
