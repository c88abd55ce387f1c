package pdf

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"layout-translator/logger"
)

// Document 可修改的 PDF 文档句柄，一次运行独占使用
type Document struct {
	path     string
	ctx      *model.Context
	metrics  *Metrics
	canvases map[int]*Canvas
	fontRefs map[FontFamily]*types.IndirectRef
	log      *logger.Logger
}

// OpenDocument 读取 PDF 文档，输入文件本身不会被修改
func OpenDocument(path string, log *logger.Logger) (*Document, error) {
	if log == nil {
		log = logger.Default()
	}
	if _, err := os.Stat(path); err != nil {
		return nil, NewError(ErrDocumentIO, "无法访问文件", err)
	}

	ctx, err := api.ReadContextFile(path)
	if err != nil {
		return nil, NewError(ErrDocumentIO, "读取PDF失败", err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		// 宽松处理: 校验失败的文档仍可尝试处理
		log.Warn("PDF校验未通过，继续处理", logger.Fields{"文件": path, "错误": err.Error()})
	}

	return &Document{
		path:     path,
		ctx:      ctx,
		metrics:  NewMetrics(),
		canvases: make(map[int]*Canvas),
		fontRefs: make(map[FontFamily]*types.IndirectRef),
		log:      log,
	}, nil
}

// PageCount 总页数
func (d *Document) PageCount() int {
	return d.ctx.PageCount
}

// Canvas 返回页面绘制缓冲区，index 从 0 开始
func (d *Document) Canvas(index int) (*Canvas, error) {
	if index < 0 || index >= d.PageCount() {
		return nil, NewError(ErrDocumentIO, fmt.Sprintf("页码超出范围 (共 %d 页)", d.PageCount()), nil).AtPage(index)
	}
	if c, ok := d.canvases[index]; ok {
		return c, nil
	}
	c := newCanvas(index, d.metrics)
	d.canvases[index] = c
	return c, nil
}

// SaveAs 把所有页面修改写入新文件，先写临时文件再重命名
func (d *Document) SaveAs(outputPath string) error {
	for index, c := range d.canvases {
		if !c.Dirty() {
			continue
		}
		if err := d.applyCanvas(c); err != nil {
			return NewError(ErrDocumentIO, "写入页面内容失败", err).AtPage(index)
		}
	}

	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return NewError(ErrDocumentIO, "创建输出目录失败", err)
	}
	tmpPath := filepath.Join(dir, ".pdftrans-"+uuid.NewString()+".tmp")
	if err := api.WriteContextFile(d.ctx, tmpPath); err != nil {
		os.Remove(tmpPath)
		return NewError(ErrDocumentIO, "写入临时文件失败", err)
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		os.Remove(tmpPath)
		return NewError(ErrDocumentIO, "重命名输出文件失败", err)
	}

	d.log.Info("PDF已保存", logger.Fields{"输出": outputPath, "修改页数": d.dirtyPages()})
	return nil
}

// Close 释放文档
func (d *Document) Close() error {
	d.canvases = nil
	d.ctx = nil
	return nil
}

func (d *Document) dirtyPages() int {
	n := 0
	for _, c := range d.canvases {
		if c.Dirty() {
			n++
		}
	}
	return n
}

// applyCanvas 把页面原内容包在 q/Q 中，再追加新的绘制操作
func (d *Document) applyCanvas(c *Canvas) error {
	pageNr := c.PageIndex() + 1
	pageDict, _, inh, err := d.ctx.PageDict(pageNr, true)
	if err != nil {
		return fmt.Errorf("获取页面字典失败: %w", err)
	}
	if pageDict == nil {
		return fmt.Errorf("页面 %d 不存在", pageNr)
	}

	fontDict, err := d.pageFontDict(pageDict, inh)
	if err != nil {
		return err
	}
	for _, family := range c.Families() {
		ref, err := d.fontRef(family)
		if err != nil {
			return err
		}
		fontDict.Update(coreFonts[family].resourceName, *ref)
	}

	prefix, err := d.newContentStream([]byte("q\n"))
	if err != nil {
		return err
	}
	suffix, err := d.newContentStream(append([]byte("Q\n"), c.Bytes()...))
	if err != nil {
		return err
	}

	contents := types.Array{*prefix}
	if obj, found := pageDict.Find("Contents"); found {
		existing, err := d.contentArray(obj)
		if err != nil {
			return err
		}
		contents = append(contents, existing...)
	}
	contents = append(contents, *suffix)
	pageDict.Update("Contents", contents)
	return nil
}

func (d *Document) contentArray(obj types.Object) (types.Array, error) {
	switch o := obj.(type) {
	case types.Array:
		return o, nil
	case types.IndirectRef:
		resolved, err := d.ctx.Dereference(o)
		if err != nil {
			return nil, fmt.Errorf("解析内容流引用失败: %w", err)
		}
		if arr, ok := resolved.(types.Array); ok {
			return arr, nil
		}
		return types.Array{o}, nil
	case nil:
		return nil, nil
	default:
		return types.Array{o}, nil
	}
}

func (d *Document) newContentStream(content []byte) (*types.IndirectRef, error) {
	sd, err := d.ctx.NewStreamDictForBuf(content)
	if err != nil {
		return nil, fmt.Errorf("创建内容流失败: %w", err)
	}
	if err := sd.Encode(); err != nil {
		return nil, fmt.Errorf("编码内容流失败: %w", err)
	}
	return d.ctx.IndRefForNewObject(*sd)
}

// pageFontDict 返回页面可写的字体资源字典，继承的资源会先复制到页面上
func (d *Document) pageFontDict(pageDict types.Dict, inh *model.InheritedPageAttrs) (types.Dict, error) {
	var res types.Dict
	if obj, found := pageDict.Find("Resources"); found && obj != nil {
		r, err := d.ctx.DereferenceDict(obj)
		if err != nil {
			return nil, fmt.Errorf("解析页面资源失败: %w", err)
		}
		res = r
	}
	if res == nil {
		res = types.NewDict()
		pageDict.Update("Resources", res)
	}
	if inh != nil && inh.Resources != nil {
		for k, v := range inh.Resources {
			if _, found := res.Find(k); !found {
				res.Insert(k, v)
			}
		}
	}

	var fonts types.Dict
	if obj, found := res.Find("Font"); found && obj != nil {
		f, err := d.ctx.DereferenceDict(obj)
		if err != nil {
			return nil, fmt.Errorf("解析字体资源失败: %w", err)
		}
		fonts = f
	}
	if fonts == nil {
		fonts = types.NewDict()
		res.Update("Font", fonts)
	}
	return fonts, nil
}

func (d *Document) fontRef(family FontFamily) (*types.IndirectRef, error) {
	if ref, ok := d.fontRefs[family]; ok {
		return ref, nil
	}
	font, err := lookupCoreFont(family)
	if err != nil {
		return nil, err
	}
	fd := types.NewDict()
	fd.InsertName("Type", "Font")
	fd.InsertName("Subtype", "Type1")
	fd.InsertName("BaseFont", font.baseFont)
	fd.InsertName("Encoding", "WinAnsiEncoding")
	ref, err := d.ctx.IndRefForNewObject(fd)
	if err != nil {
		return nil, fmt.Errorf("创建字体对象失败: %w", err)
	}
	d.fontRefs[family] = ref
	return ref, nil
}

// ValidateFile 使用 pdfcpu 校验文件
func ValidateFile(path string) error {
	if err := api.ValidateFile(path, model.NewDefaultConfiguration()); err != nil {
		return NewError(ErrDocumentIO, "PDF校验失败", err)
	}
	return nil
}

// PageCountFile 读取文件页数
func PageCountFile(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, NewError(ErrDocumentIO, "读取页数失败", err)
	}
	return n, nil
}
