package pdf

import (
	"errors"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackedColorToUnitRGB(t *testing.T) {
	tests := []struct {
		name    string
		value   int
		r, g, b float64
	}{
		{"black", 0, 0, 0, 0},
		{"blue", 0x0000FF, 0, 0, 1},
		{"red", 0xFF0000, 1, 0, 0},
		{"white", 0xFFFFFF, 1, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, g, b := PackedColorToUnitRGB(tt.value)
			assert.InDelta(t, tt.r, r, 1e-9)
			assert.InDelta(t, tt.g, g, 1e-9)
			assert.InDelta(t, tt.b, b, 1e-9)
		})
	}

	r, g, b := PackedColorToUnitRGB(0x336699)
	assert.InDelta(t, 0x33/255.0, r, 1e-9)
	assert.InDelta(t, 0x66/255.0, g, 1e-9)
	assert.InDelta(t, 0x99/255.0, b, 1e-9)
}

func TestRendererColor(t *testing.T) {
	c, err := RendererColor(0x0000FF)
	require.NoError(t, err)
	assert.Equal(t, color.SimpleColor{R: 0, G: 0, B: 1}, c)

	_, err = RendererColor(0x1000000)
	assert.True(t, errors.Is(err, ErrInvalidColor))

	_, err = RendererColor(-1)
	assert.True(t, errors.Is(err, ErrInvalidColor))
}

func TestUnitRGBToPackedRoundTrip(t *testing.T) {
	for _, v := range []int{0, 0x0000FF, 0x123456, 0xFFFFFF} {
		r, g, b := PackedColorToUnitRGB(v)
		assert.Equal(t, v, UnitRGBToPacked(r, g, b))
	}
	assert.Equal(t, 0xFFFFFF, UnitRGBToPacked(2, 1.5, 1))
	assert.Equal(t, 0x808080, GrayToPacked(0.5))
	assert.Equal(t, 0x000000, CMYKToPacked(0, 0, 0, 1))
	assert.Equal(t, 0xFF0000, CMYKToPacked(0, 1, 1, 0))
}

func TestResolveFontFamily(t *testing.T) {
	assert.Equal(t, FontTimes, ResolveFontFamily("ABCDEF+TimesNewRomanPSMT"))
	assert.Equal(t, FontTimes, ResolveFontFamily("NotoSerif-Bold"))
	assert.Equal(t, FontHelvetica, ResolveFontFamily("NotoSansSerif"))
	assert.Equal(t, FontCourier, ResolveFontFamily("Courier-Oblique"))
	assert.Equal(t, FontCourier, ResolveFontFamily("DejaVuSansMono"))
	assert.Equal(t, FontHelvetica, ResolveFontFamily("Arial"))
	assert.Equal(t, FontHelvetica, ResolveFontFamily(""))
}

func TestBlockMergedTextAndStyle(t *testing.T) {
	block := Block{
		Kind: BlockText,
		Lines: []Line{
			{Runs: []Run{
				{Text: "  Hello ", Style: Style{FontName: "Helvetica", FontSize: 14, Color: 0xFF0000}},
				{Text: "big", Style: Style{FontSize: 20}},
			}},
			{Runs: []Run{{Text: "world  ", Style: Style{FontSize: 9}}}},
		},
	}
	assert.Equal(t, "Hello big\nworld", block.MergedText())
	style := block.RepresentativeStyle()
	assert.Equal(t, 14.0, style.FontSize)
	assert.Equal(t, 0xFF0000, style.Color)

	empty := Block{Kind: BlockText, Lines: []Line{{Runs: []Run{{Text: " \n "}}}}}
	assert.Equal(t, "", empty.MergedText())

	noRuns := Block{Kind: BlockText, Lines: []Line{{}}}
	assert.Equal(t, DefaultStyle(), noRuns.RepresentativeStyle())
	assert.Equal(t, DefaultStyle(), Block{}.RepresentativeStyle())
}

func TestPageTextBlocksKeepsNativeOrder(t *testing.T) {
	page := Page{Blocks: []Block{
		{Index: 0, Kind: BlockText, BBox: NewRect(0, 500, 10, 510)},
		{Index: 1, Kind: BlockNonText},
		{Index: 2, Kind: BlockText, BBox: NewRect(0, 700, 10, 710)},
	}}
	blocks := page.TextBlocks()
	require.Len(t, blocks, 2)
	assert.Equal(t, 0, blocks[0].Index)
	assert.Equal(t, 2, blocks[1].Index)
}

func TestErrorKinds(t *testing.T) {
	err := NewError(ErrBlockRender, "绘制失败", errors.New("boom")).AtPage(1).AtBlock(3)
	assert.True(t, errors.Is(err, ErrBlockRender))
	assert.False(t, errors.Is(err, ErrDocumentIO))
	assert.Equal(t, 2, err.Page)
	assert.Contains(t, err.Error(), "boom")
}
