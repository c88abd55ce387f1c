package translator

import "layout-translator/pdf"

// ExtractTextBlocks 按内容流顺序返回页面中的文本块，图片和矢量图形块不参与替换
func ExtractTextBlocks(page pdf.Page) []pdf.Block {
	return page.TextBlocks()
}
