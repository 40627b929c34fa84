package extractor

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"

	"chatpdf-go/internal/model"
	"chatpdf-go/pkg/log"
)

// extractPDF 按页序拼接 PDF 每一页的文本。
// 无法提取文本的页面（例如扫描件）贡献空字符串，而不是让整份文档失败。
func extractPDF(data []byte) (text string, err error) {
	// pdf 库在个别畸形文件上会 panic，这里统一兜底为损坏文档错误
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: %v", model.ErrCorruptDocument, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrCorruptDocument, err)
	}

	var buf bytes.Buffer
	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, pageErr := pagePlainText(page)
		if pageErr != nil {
			// 单页提取失败按空页处理
			log.Warnf("[Extractor] PDF 第 %d/%d 页无法提取文本: %v", i, total, pageErr)
			continue
		}
		buf.WriteString(pageText)
	}
	return buf.String(), nil
}

// pagePlainText 提取单页文本，并把页内 panic 转换为错误。
func pagePlainText(page pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("页面解析异常: %v", r)
		}
	}()
	return page.GetPlainText(nil)
}
