// Package model 包含了应用的数据模型定义。
package model

import (
	"path/filepath"
	"strings"
)

// DocumentFormat 表示上传文档的声明格式。
type DocumentFormat string

const (
	FormatPDF  DocumentFormat = "pdf"
	FormatDOCX DocumentFormat = "docx"
)

// Document 代表一份待解析的上传文档：原始字节加上声明格式。
// 上传后不可变，被解析消费一次后即丢弃，不做持久化。
type Document struct {
	FileName string
	Format   DocumentFormat
	Data     []byte
}

// FormatFromFileName 根据文件扩展名判定文档格式。
// 扩展名不是 .pdf / .docx 时返回 ErrUnsupportedFormat。
func FormatFromFileName(fileName string) (DocumentFormat, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return FormatPDF, nil
	case ".docx":
		return FormatDOCX, nil
	default:
		return "", ErrUnsupportedFormat
	}
}
