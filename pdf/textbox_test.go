package pdf

import (
	"errors"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutTextboxSingleLineFits(t *testing.T) {
	m := NewMetrics()
	box := NewRect(0, 0, 100, 20)

	layout, err := m.LayoutTextbox(box, "Bonjour", TextOptions{Family: FontHelvetica, Size: 11, Color: color.Black})
	require.NoError(t, err)
	require.Len(t, layout.Lines, 1)
	assert.True(t, layout.Fits())
	assert.Equal(t, "Bonjour", string(layout.Lines[0].Text))
	assert.InDelta(t, 20-LineHeight(11), layout.Remaining, 1e-9)
	assert.InDelta(t, 0, layout.Lines[0].X, 1e-9)
	assert.InDelta(t, 20-fontAscent*11, layout.Lines[0].Baseline, 1e-9)
}

func TestLayoutTextboxWrapsAndOverflows(t *testing.T) {
	m := NewMetrics()
	box := NewRect(10, 100, 60, 120)
	text := strings.Repeat("word ", 20)

	layout, err := m.LayoutTextbox(box, text, TextOptions{Family: FontHelvetica, Size: 11, Color: color.Black})
	require.NoError(t, err)
	assert.Greater(t, layout.Wrapped, 1)
	assert.False(t, layout.Fits())
	assert.Less(t, layout.Remaining, 0.0)
	// 只绘制能放下的行
	assert.Len(t, layout.Lines, 1)
	for _, line := range layout.Lines {
		assert.LessOrEqual(t, len(line.Text), len(text))
		assert.Equal(t, 10.0, line.X)
	}
}

func TestLayoutTextboxSmallerSizeFitsMore(t *testing.T) {
	m := NewMetrics()
	box := NewRect(0, 0, 120, 40)
	text := "The quick brown fox jumps over the lazy dog"

	big, err := m.LayoutTextbox(box, text, TextOptions{Family: FontTimes, Size: 14, Color: color.Black})
	require.NoError(t, err)
	small, err := m.LayoutTextbox(box, text, TextOptions{Family: FontTimes, Size: 7, Color: color.Black})
	require.NoError(t, err)
	assert.Greater(t, small.Remaining, big.Remaining)
	assert.True(t, small.Fits())
}

func TestLayoutTextboxKeepsFirstLineWhenNothingFits(t *testing.T) {
	m := NewMetrics()
	layout, err := m.LayoutTextbox(NewRect(0, 0, 100, 5), "Hi", TextOptions{Family: FontCourier, Size: 11, Color: color.Black})
	require.NoError(t, err)
	assert.False(t, layout.Fits())
	require.Len(t, layout.Lines, 1)
}

func TestLayoutTextboxRejectsBadOptions(t *testing.T) {
	m := NewMetrics()
	box := NewRect(0, 0, 100, 20)

	_, err := m.LayoutTextbox(box, "x", TextOptions{Family: "comic", Size: 11})
	assert.True(t, errors.Is(err, ErrFontUnavailable))

	_, err = m.LayoutTextbox(box, "x", TextOptions{Family: FontHelvetica, Size: 11, Color: color.SimpleColor{R: 2}})
	assert.True(t, errors.Is(err, ErrInvalidColor))

	_, err = m.LayoutTextbox(box, "x", TextOptions{Family: FontHelvetica, Size: 0})
	assert.Error(t, err)
}

func TestEncodeWinAnsi(t *testing.T) {
	assert.Equal(t, []byte("Bonjour"), EncodeWinAnsi("Bonjour"))
	assert.Equal(t, []byte{'c', 'a', 'f', 0xE9}, EncodeWinAnsi("café"))
	assert.Equal(t, []byte("fi"), EncodeWinAnsi("ﬁ"))
	assert.Equal(t, []byte("??"), EncodeWinAnsi("你好"))
	assert.True(t, CanEncodeWinAnsi("Grüße"))
	assert.False(t, CanEncodeWinAnsi("안녕"))
}

func TestMetricsStringWidth(t *testing.T) {
	m := NewMetrics()
	w11, err := m.StringWidth(FontHelvetica, 11, []byte("Bonjour"))
	require.NoError(t, err)
	w22, err := m.StringWidth(FontHelvetica, 22, []byte("Bonjour"))
	require.NoError(t, err)
	assert.Greater(t, w11, 0.0)
	assert.InDelta(t, 2*w11, w22, 1e-6)

	// 等宽字体每个字符 600/1000 em
	wc, err := m.StringWidth(FontCourier, 10, []byte("abcd"))
	require.NoError(t, err)
	assert.InDelta(t, 24.0, wc, 1e-6)
}
