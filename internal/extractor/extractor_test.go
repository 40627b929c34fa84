package extractor

import (
	"archive/zip"
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatpdf-go/internal/model"
)

// createTestDOCX 在内存中构造一个最小的 DOCX 包。
func createTestDOCX(t *testing.T, paragraphs []string) []byte {
	t.Helper()
	var body bytes.Buffer
	body.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	body.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		fmt.Fprintf(&body, `<w:p><w:r><w:t>%s</w:t></w:r></w:p>`, p)
	}
	body.WriteString(`</w:body></w:document>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = f.Write(body.Bytes())
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestFormatFromFileName(t *testing.T) {
	format, err := model.FormatFromFileName("report.pdf")
	require.NoError(t, err)
	assert.Equal(t, model.FormatPDF, format)

	format, err = model.FormatFromFileName("Notes.DOCX")
	require.NoError(t, err)
	assert.Equal(t, model.FormatDOCX, format)

	_, err = model.FormatFromFileName("slides.pptx")
	assert.ErrorIs(t, err, model.ErrUnsupportedFormat)

	_, err = model.FormatFromFileName("noextension")
	assert.ErrorIs(t, err, model.ErrUnsupportedFormat)
}

func TestExtractUnsupportedFormat(t *testing.T) {
	e := New()
	_, err := e.Extract(model.Document{FileName: "a.txt", Format: "txt", Data: []byte("hello")})
	assert.ErrorIs(t, err, model.ErrUnsupportedFormat)
}

func TestExtractCorruptPDF(t *testing.T) {
	e := New()
	_, err := e.Extract(model.Document{
		FileName: "broken.pdf",
		Format:   model.FormatPDF,
		Data:     []byte("this is definitely not a pdf"),
	})
	assert.ErrorIs(t, err, model.ErrCorruptDocument)
}

func TestExtractDOCX(t *testing.T) {
	e := New()
	data := createTestDOCX(t, []string{"第一段内容", "second paragraph"})
	text, err := e.Extract(model.Document{FileName: "doc.docx", Format: model.FormatDOCX, Data: data})
	require.NoError(t, err)
	assert.Equal(t, "第一段内容\nsecond paragraph", text)
}

func TestExtractDOCXNotAZip(t *testing.T) {
	e := New()
	_, err := e.Extract(model.Document{
		FileName: "broken.docx",
		Format:   model.FormatDOCX,
		Data:     []byte("garbage bytes"),
	})
	assert.ErrorIs(t, err, model.ErrCorruptDocument)
}

func TestExtractDOCXMissingDocumentXML(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/styles.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte("<styles/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	e := New()
	_, err = e.Extract(model.Document{FileName: "empty.docx", Format: model.FormatDOCX, Data: buf.Bytes()})
	assert.ErrorIs(t, err, model.ErrCorruptDocument)
}

func TestExtractAllJoinsWithSeparator(t *testing.T) {
	e := New()
	docs := []model.Document{
		{FileName: "a.docx", Format: model.FormatDOCX, Data: createTestDOCX(t, []string{"alpha"})},
		{FileName: "b.docx", Format: model.FormatDOCX, Data: createTestDOCX(t, []string{"beta"})},
	}
	text, err := e.ExtractAll(docs)
	require.NoError(t, err)
	assert.Equal(t, "alpha\n\nbeta", text)
}

func TestExtractAllFailsAtomically(t *testing.T) {
	e := New()
	docs := []model.Document{
		{FileName: "a.docx", Format: model.FormatDOCX, Data: createTestDOCX(t, []string{"alpha"})},
		{FileName: "broken.docx", Format: model.FormatDOCX, Data: []byte("not a zip")},
	}
	_, err := e.ExtractAll(docs)
	assert.ErrorIs(t, err, model.ErrCorruptDocument)
}
