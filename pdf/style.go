package pdf

import (
	"fmt"
	"math"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/color"
)

// FontFamily 绘制器内置的可移植字体
type FontFamily string

const (
	FontHelvetica FontFamily = "helv"
	FontTimes     FontFamily = "times"
	FontCourier   FontFamily = "cour"
)

// ResolveFontFamily 将原文字体名映射为内置字体，不嵌入原字体
func ResolveFontFamily(fontName string) FontFamily {
	name := strings.ToLower(fontName)
	switch {
	case strings.Contains(name, "courier"), strings.Contains(name, "mono"):
		return FontCourier
	case strings.Contains(name, "times"), strings.Contains(name, "serif") && !strings.Contains(name, "sans"):
		return FontTimes
	default:
		return FontHelvetica
	}
}

// PackedColorToUnitRGB 把 0xRRGGBB 转换为 [0,1] 区间的 RGB 分量
func PackedColorToUnitRGB(value int) (r, g, b float64) {
	if value == 0 {
		return 0, 0, 0
	}
	r = float64((value>>16)&0xFF) / 255.0
	g = float64((value>>8)&0xFF) / 255.0
	b = float64(value&0xFF) / 255.0
	return r, g, b
}

// RendererColor 返回绘制器使用的颜色，超出 24 位的值返回错误
func RendererColor(value int) (color.SimpleColor, error) {
	if value < 0 || value > 0xFFFFFF {
		return color.Black, fmt.Errorf("%w: %#x", ErrInvalidColor, value)
	}
	r, g, b := PackedColorToUnitRGB(value)
	return color.SimpleColor{R: float32(r), G: float32(g), B: float32(b)}, nil
}

// UnitRGBToPacked 把 [0,1] 区间的 RGB 分量打包为 0xRRGGBB
func UnitRGBToPacked(r, g, b float64) int {
	return channel(r)<<16 | channel(g)<<8 | channel(b)
}

// GrayToPacked 灰度转打包颜色
func GrayToPacked(gray float64) int {
	return UnitRGBToPacked(gray, gray, gray)
}

// CMYKToPacked CMYK 转打包颜色
func CMYKToPacked(c, m, y, k float64) int {
	return UnitRGBToPacked((1-c)*(1-k), (1-m)*(1-k), (1-y)*(1-k))
}

func channel(v float64) int {
	v = math.Max(0, math.Min(1, v))
	return int(math.Round(v * 255))
}

func validColor(c color.SimpleColor) bool {
	for _, v := range []float32{c.R, c.G, c.B} {
		if v < 0 || v > 1 || math.IsNaN(float64(v)) {
			return false
		}
	}
	return true
}
