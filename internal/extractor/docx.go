package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"chatpdf-go/internal/model"
)

// documentXML 对应 word/document.xml 的正文结构。
// 只取段落中的文本 run，图片等非文本元素被自然跳过；
// 表格单元格里的文本 run 同样以段落形式出现，因此也会被保留。
type documentXML struct {
	Body struct {
		Paragraphs []docxParagraph `xml:"p"`
	} `xml:"body"`
}

type docxParagraph struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Text []docxText `xml:"t"`
}

type docxText struct {
	Content string `xml:",chardata"`
}

// extractDOCX 把 DOCX（zip 包裹的 OOXML）解析为按文档顺序拼接的段落文本。
func extractDOCX(data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrCorruptDocument, err)
	}

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("%w: %v", model.ErrCorruptDocument, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("%w: %v", model.ErrCorruptDocument, err)
		}
		return parseDocumentXML(content)
	}
	// 缺少正文部件的 zip 不是合法的 DOCX
	return "", fmt.Errorf("%w: 缺少 word/document.xml", model.ErrCorruptDocument)
}

// parseDocumentXML 按文档顺序拼接段落文本，段落之间用换行分隔。
func parseDocumentXML(content []byte) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrCorruptDocument, err)
	}

	var result strings.Builder
	for i, para := range doc.Body.Paragraphs {
		if i > 0 {
			result.WriteString("\n")
		}
		for _, run := range para.Runs {
			for _, t := range run.Text {
				result.WriteString(t.Content)
			}
		}
	}
	return result.String(), nil
}
