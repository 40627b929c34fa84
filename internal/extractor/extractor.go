// Package extractor 负责把 PDF / DOCX 的原始字节解析为纯文本。
package extractor

import (
	"fmt"
	"strings"

	"chatpdf-go/internal/model"
	"chatpdf-go/pkg/log"
)

// 多文档拼接时插入的边界分隔符，避免跨文档的语义串联。
const documentSeparator = "\n\n"

// Extractor 把上传的文档解析为纯文本。
type Extractor struct{}

// New 创建一个新的 Extractor 实例。
func New() *Extractor {
	return &Extractor{}
}

// Extract 根据文档声明的格式分发到对应的解析器，返回提取出的全部文本。
func (e *Extractor) Extract(doc model.Document) (string, error) {
	log.Infof("[Extractor] 开始提取文本, 文件: %s, 格式: %s, 大小: %d 字节", doc.FileName, doc.Format, len(doc.Data))
	var (
		text string
		err  error
	)
	switch doc.Format {
	case model.FormatPDF:
		text, err = extractPDF(doc.Data)
	case model.FormatDOCX:
		text, err = extractDOCX(doc.Data)
	default:
		return "", fmt.Errorf("%w: %s", model.ErrUnsupportedFormat, doc.FileName)
	}
	if err != nil {
		log.Errorf("[Extractor] 提取失败, 文件: %s, error: %v", doc.FileName, err)
		return "", fmt.Errorf("解析 %s 失败: %w", doc.FileName, err)
	}
	log.Infof("[Extractor] 提取成功, 文件: %s, 文本长度: %d", doc.FileName, len(text))
	return text, nil
}

// ExtractAll 按上传顺序提取并拼接多份文档的文本。
// 任何一份文档解析失败都会使整次上传失败，不产出部分结果。
func (e *Extractor) ExtractAll(docs []model.Document) (string, error) {
	texts := make([]string, 0, len(docs))
	for _, doc := range docs {
		text, err := e.Extract(doc)
		if err != nil {
			return "", err
		}
		texts = append(texts, text)
	}
	return strings.Join(texts, documentSeparator), nil
}
