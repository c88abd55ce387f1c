package pdf

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	ledongthucpdf "github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"

	"layout-translator/logger"
)

// maxFormDepth 表单 XObject 的最大嵌套层数
const maxFormDepth = 8

// ContentReader 解析页面内容流，生成页面内容模型
type ContentReader struct {
	file   *os.File
	reader *ledongthucpdf.Reader
	cfg    LayoutConfig
	log    *logger.Logger
}

// OpenContent 打开 PDF 用于读取内容模型
func OpenContent(path string, log *logger.Logger) (*ContentReader, error) {
	if log == nil {
		log = logger.Default()
	}
	var (
		file   *os.File
		reader *ledongthucpdf.Reader
		err    error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("解析PDF结构时发生panic: %v", r)
			}
		}()
		file, reader, err = ledongthucpdf.Open(path)
	}()
	if err != nil {
		if file != nil {
			file.Close()
		}
		return nil, NewError(ErrDocumentIO, "打开PDF内容失败", err)
	}
	return &ContentReader{file: file, reader: reader, cfg: DefaultLayoutConfig(), log: log}, nil
}

// SetLayoutConfig 调整成行成块的阈值
func (c *ContentReader) SetLayoutConfig(cfg LayoutConfig) {
	c.cfg = cfg
}

// NumPage 总页数
func (c *ContentReader) NumPage() int {
	return c.reader.NumPage()
}

// Page 解析指定页（从 0 开始）的内容模型
// 内容流中途解析失败时返回已识别的块和错误
func (c *ContentReader) Page(index int) (page Page, err error) {
	page.Index = index
	if index < 0 || index >= c.NumPage() {
		return page, NewError(ErrDocumentIO, fmt.Sprintf("页码超出范围 (共 %d 页)", c.NumPage()), nil).AtPage(index)
	}

	p := c.reader.Page(index + 1)
	if p.V.IsNull() {
		return page, NewError(ErrDocumentIO, "页面不存在", nil).AtPage(index)
	}
	page.MediaBox = mediaBox(p.V)

	in := newInterpreter(p, c.cfg)
	defer func() {
		if r := recover(); r != nil {
			page.Blocks = in.builder.finish()
			err = NewError(ErrDocumentIO, "内容流解析中断", fmt.Errorf("%v", r)).AtPage(index)
		}
	}()

	in.run(p.V.Key("Contents"), p.Resources(), Identity(), 0)
	page.Blocks = in.builder.finish()

	c.log.Debug("页面内容解析完成", logger.Fields{
		"页码":  index + 1,
		"块数":  len(page.Blocks),
		"文本块": len(page.TextBlocks()),
	})
	return page, nil
}

// Close 关闭文件
func (c *ContentReader) Close() error {
	if c.file == nil {
		return nil
	}
	err := c.file.Close()
	c.file = nil
	return err
}

func mediaBox(v ledongthucpdf.Value) Rect {
	for node := v; !node.IsNull(); node = node.Key("Parent") {
		box := node.Key("MediaBox")
		if box.Kind() == ledongthucpdf.Array && box.Len() == 4 {
			return NewRect(box.Index(0).Float64(), box.Index(1).Float64(), box.Index(2).Float64(), box.Index(3).Float64())
		}
	}
	return NewRect(0, 0, 612, 792)
}

// graphicsState q/Q 保存和恢复的状态
type graphicsState struct {
	ctm       Matrix
	fill      int
	charSpace float64
	wordSpace float64
	scale     float64
	leading   float64
	rise      float64
	font      *fontInfo
	fontSize  float64
}

type fontInfo struct {
	font      ledongthucpdf.Font
	name      string
	enc       ledongthucpdf.TextEncoding
	twoByte   bool
	hasWidths bool
	// coreWidths 没有宽度表的标准字体使用内置宽度
	coreWidths []int
}

func newFontInfo(v ledongthucpdf.Value) *fontInfo {
	f := ledongthucpdf.Font{V: v}
	fi := &fontInfo{
		font:      f,
		name:      stripSubsetPrefix(f.BaseFont()),
		twoByte:   v.Key("Subtype").Name() == "Type0",
		hasWidths: v.Key("Widths").Kind() == ledongthucpdf.Array,
	}
	if !v.IsNull() {
		fi.enc = f.Encoder()
	}
	if !fi.hasWidths && !fi.twoByte {
		if widths, ok := CoreGlyphWidths(fi.name); ok {
			fi.coreWidths = widths
		}
	}
	return fi
}

func (fi *fontInfo) decode(raw string) string {
	if fi.enc == nil {
		return raw
	}
	return foldLigatures(fi.enc.Decode(raw))
}

func (fi *fontInfo) codes(raw string) []int {
	if fi.twoByte {
		codes := make([]int, 0, len(raw)/2)
		for i := 0; i+1 < len(raw); i += 2 {
			codes = append(codes, int(raw[i])<<8|int(raw[i+1]))
		}
		return codes
	}
	codes := make([]int, len(raw))
	for i := 0; i < len(raw); i++ {
		codes[i] = int(raw[i])
	}
	return codes
}

// interpreter 页面内容流解释器
type interpreter struct {
	page    ledongthucpdf.Page
	builder *blockBuilder

	gs    graphicsState
	stack []graphicsState

	tm, tlm Matrix

	resources ledongthucpdf.Value
	fonts     map[string]*fontInfo

	path    Rect
	hasPath bool
}

func newInterpreter(page ledongthucpdf.Page, cfg LayoutConfig) *interpreter {
	return &interpreter{
		page:    page,
		builder: newBlockBuilder(cfg),
		gs:      graphicsState{ctm: Identity(), scale: 1},
		tm:      Identity(),
		tlm:     Identity(),
	}
}

// run 解释内容流，Contents 可以是单个流或流数组
func (in *interpreter) run(contents, resources ledongthucpdf.Value, ctm Matrix, depth int) {
	savedRes, savedFonts := in.resources, in.fonts
	in.resources = resources
	in.fonts = make(map[string]*fontInfo)
	in.gs.ctm = ctm
	defer func() {
		in.resources, in.fonts = savedRes, savedFonts
	}()

	interpret := func(strm ledongthucpdf.Value) {
		ledongthucpdf.Interpret(strm, func(stk *ledongthucpdf.Stack, op string) {
			n := stk.Len()
			args := make([]ledongthucpdf.Value, n)
			for i := n - 1; i >= 0; i-- {
				args[i] = stk.Pop()
			}
			in.do(op, args, depth)
		})
	}

	switch contents.Kind() {
	case ledongthucpdf.Array:
		for i := 0; i < contents.Len(); i++ {
			interpret(contents.Index(i))
		}
	case ledongthucpdf.Stream:
		interpret(contents)
	}
}

func (in *interpreter) do(op string, args []ledongthucpdf.Value, depth int) {
	switch op {
	case "q":
		in.stack = append(in.stack, in.gs)
	case "Q":
		if n := len(in.stack); n > 0 {
			in.gs = in.stack[n-1]
			in.stack = in.stack[:n-1]
		}
	case "cm":
		if len(args) == 6 {
			in.gs.ctm = matrixArgs(args).Multiply(in.gs.ctm)
		}

	case "BT":
		in.tm, in.tlm = Identity(), Identity()
	case "ET":
	case "Tm":
		if len(args) == 6 {
			in.tm = matrixArgs(args)
			in.tlm = in.tm
		}
	case "Td":
		if len(args) == 2 {
			in.moveLine(args[0].Float64(), args[1].Float64())
		}
	case "TD":
		if len(args) == 2 {
			in.gs.leading = -args[1].Float64()
			in.moveLine(args[0].Float64(), args[1].Float64())
		}
	case "T*":
		in.moveLine(0, -in.gs.leading)
	case "Tc":
		if len(args) == 1 {
			in.gs.charSpace = args[0].Float64()
		}
	case "Tw":
		if len(args) == 1 {
			in.gs.wordSpace = args[0].Float64()
		}
	case "Tz":
		if len(args) == 1 {
			in.gs.scale = args[0].Float64() / 100
		}
	case "TL":
		if len(args) == 1 {
			in.gs.leading = args[0].Float64()
		}
	case "Ts":
		if len(args) == 1 {
			in.gs.rise = args[0].Float64()
		}
	case "Tf":
		if len(args) == 2 {
			in.gs.font = in.lookupFont(args[0].Name())
			in.gs.fontSize = args[1].Float64()
		}
	case "Tj":
		if len(args) == 1 {
			in.showText(args[0].RawString())
		}
	case "'":
		if len(args) == 1 {
			in.moveLine(0, -in.gs.leading)
			in.showText(args[0].RawString())
		}
	case "\"":
		if len(args) == 3 {
			in.gs.wordSpace = args[0].Float64()
			in.gs.charSpace = args[1].Float64()
			in.moveLine(0, -in.gs.leading)
			in.showText(args[2].RawString())
		}
	case "TJ":
		if len(args) == 1 {
			in.showArray(args[0])
		}

	case "rg":
		if len(args) == 3 {
			in.gs.fill = UnitRGBToPacked(args[0].Float64(), args[1].Float64(), args[2].Float64())
		}
	case "g":
		if len(args) == 1 {
			in.gs.fill = GrayToPacked(args[0].Float64())
		}
	case "k":
		if len(args) == 4 {
			in.gs.fill = CMYKToPacked(args[0].Float64(), args[1].Float64(), args[2].Float64(), args[3].Float64())
		}
	case "cs":
		in.gs.fill = 0
	case "sc", "scn":
		in.setFillComponents(args)

	case "m", "l":
		if len(args) == 2 {
			in.addPathPoint(args[0].Float64(), args[1].Float64())
		}
	case "c":
		if len(args) == 6 {
			for i := 0; i < 6; i += 2 {
				in.addPathPoint(args[i].Float64(), args[i+1].Float64())
			}
		}
	case "v", "y":
		if len(args) == 4 {
			in.addPathPoint(args[0].Float64(), args[1].Float64())
			in.addPathPoint(args[2].Float64(), args[3].Float64())
		}
	case "re":
		if len(args) == 4 {
			x, y, w, h := args[0].Float64(), args[1].Float64(), args[2].Float64(), args[3].Float64()
			in.addPathPoint(x, y)
			in.addPathPoint(x+w, y+h)
			in.addPathPoint(x+w, y)
			in.addPathPoint(x, y+h)
		}
	case "S", "s", "f", "F", "f*", "B", "B*", "b", "b*":
		if in.hasPath {
			in.builder.addNonText(in.path)
		}
		in.hasPath = false
	case "n":
		in.hasPath = false

	case "Do":
		if len(args) == 1 {
			in.drawXObject(args[0].Name(), depth)
		}
	}
}

func (in *interpreter) moveLine(tx, ty float64) {
	in.tlm = Translation(tx, ty).Multiply(in.tlm)
	in.tm = in.tlm
}

func (in *interpreter) lookupFont(name string) *fontInfo {
	if fi, ok := in.fonts[name]; ok {
		return fi
	}
	fi := newFontInfo(in.resources.Key("Font").Key(name))
	in.fonts[name] = fi
	return fi
}

func (in *interpreter) setFillComponents(args []ledongthucpdf.Value) {
	var comps []float64
	for _, a := range args {
		if a.Kind() == ledongthucpdf.Integer || a.Kind() == ledongthucpdf.Real {
			comps = append(comps, a.Float64())
		}
	}
	switch len(comps) {
	case 1:
		in.gs.fill = GrayToPacked(comps[0])
	case 3:
		in.gs.fill = UnitRGBToPacked(comps[0], comps[1], comps[2])
	case 4:
		in.gs.fill = CMYKToPacked(comps[0], comps[1], comps[2], comps[3])
	}
}

func (in *interpreter) addPathPoint(x, y float64) {
	px, py := in.gs.ctm.Apply(x, y)
	if !in.hasPath {
		in.path = Rect{X0: px, Y0: py, X1: px, Y1: py}
		in.hasPath = true
		return
	}
	in.path = in.path.IncludePoint(px, py)
}

func (in *interpreter) showArray(arr ledongthucpdf.Value) {
	for i := 0; i < arr.Len(); i++ {
		item := arr.Index(i)
		switch item.Kind() {
		case ledongthucpdf.String:
			in.showText(item.RawString())
		case ledongthucpdf.Integer, ledongthucpdf.Real:
			tx := -item.Float64() / 1000 * in.gs.fontSize * in.gs.scale
			in.tm = Translation(tx, 0).Multiply(in.tm)
		}
	}
}

// showText 记录一个文本片段并推进文本矩阵
func (in *interpreter) showText(raw string) {
	fi := in.gs.font
	if fi == nil {
		fi = newFontInfo(ledongthucpdf.Value{})
	}
	text := fi.decode(raw)
	advance := in.textAdvance(fi, raw, text)

	m := in.tm.Multiply(in.gs.ctm)
	x0, y0 := m.Apply(0, in.gs.rise)
	x1, _ := m.Apply(advance, in.gs.rise)
	in.tm = Translation(advance, 0).Multiply(in.tm)

	size := in.gs.fontSize * m.VerticalScale()
	if size <= 0 {
		return
	}
	size = float64(int(size*100+0.5)) / 100

	run := Run{
		Text: text,
		Style: Style{
			FontName: fi.name,
			FontSize: size,
			Color:    in.gs.fill,
		},
		BBox: NewRect(x0, y0-fontDescent*size, x1, y0+fontAscent*size),
	}
	in.builder.addRun(run, y0)
}

// textAdvance 文本空间中的水平位移
func (in *interpreter) textAdvance(fi *fontInfo, raw, decoded string) float64 {
	var advance float64
	if fi.hasWidths || fi.coreWidths != nil {
		for _, code := range fi.codes(raw) {
			var w float64
			if fi.hasWidths {
				w = fi.font.Width(code)
			} else {
				w = float64(fi.coreWidths[code&0xFF])
			}
			tx := w/1000*in.gs.fontSize + in.gs.charSpace
			if code == 32 && !fi.twoByte {
				tx += in.gs.wordSpace
			}
			advance += tx
		}
		return advance * in.gs.scale
	}

	// 未知字体且没有宽度表（如 CID 字体）时按字符类别估算
	for _, r := range decoded {
		var w float64
		switch {
		case r == ' ':
			w = 250
		case unicode.Is(unicode.Han, r), unicode.Is(unicode.Hangul, r), unicode.Is(unicode.Hiragana, r), unicode.Is(unicode.Katakana, r):
			w = 1000
		default:
			w = 500
		}
		tx := w/1000*in.gs.fontSize + in.gs.charSpace
		if r == ' ' {
			tx += in.gs.wordSpace
		}
		advance += tx
	}
	return advance * in.gs.scale
}

func (in *interpreter) drawXObject(name string, depth int) {
	xobj := in.resources.Key("XObject").Key(name)
	if xobj.IsNull() {
		return
	}
	switch xobj.Key("Subtype").Name() {
	case "Image":
		in.builder.addNonText(in.gs.ctm.ApplyRect(NewRect(0, 0, 1, 1)))
	case "Form":
		formMatrix := Identity()
		if m := xobj.Key("Matrix"); m.Kind() == ledongthucpdf.Array && m.Len() == 6 {
			formMatrix = Matrix{
				A: m.Index(0).Float64(), B: m.Index(1).Float64(),
				C: m.Index(2).Float64(), D: m.Index(3).Float64(),
				E: m.Index(4).Float64(), F: m.Index(5).Float64(),
			}
		}
		ctm := formMatrix.Multiply(in.gs.ctm)
		if depth >= maxFormDepth {
			return
		}
		res := xobj.Key("Resources")
		if res.IsNull() {
			res = in.resources
		}

		saved := in.gs
		savedStack := in.stack
		savedTm, savedTlm := in.tm, in.tlm
		in.stack = nil
		in.run(xobj, res, ctm, depth+1)
		in.gs, in.stack = saved, savedStack
		in.tm, in.tlm = savedTm, savedTlm
	}
}

func matrixArgs(args []ledongthucpdf.Value) Matrix {
	return Matrix{
		A: args[0].Float64(), B: args[1].Float64(),
		C: args[2].Float64(), D: args[3].Float64(),
		E: args[4].Float64(), F: args[5].Float64(),
	}
}

// stripSubsetPrefix 去掉子集字体前缀，例如 ABCDEF+Times-Roman
func stripSubsetPrefix(name string) string {
	if i := strings.IndexByte(name, '+'); i == 6 {
		return name[i+1:]
	}
	return name
}

// foldLigatures 把连字等兼容字符展开为普通字符
func foldLigatures(s string) string {
	for _, r := range s {
		if r >= 0xFB00 && r <= 0xFB06 {
			return norm.NFKC.String(s)
		}
	}
	return s
}
