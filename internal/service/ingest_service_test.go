package service

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatpdf-go/internal/chunker"
	"chatpdf-go/internal/extractor"
	"chatpdf-go/internal/index"
	"chatpdf-go/internal/model"
	"chatpdf-go/internal/session"
)

// docxFixture 在内存中构造一个单段落的最小 DOCX 包。
func docxFixture(t *testing.T, paragraph string) model.Document {
	t.Helper()
	body := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`+
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">`+
		`<w:body><w:p><w:r><w:t>%s</w:t></w:r></w:p></w:body></w:document>`, paragraph)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	return model.Document{FileName: "fixture.docx", Format: model.FormatDOCX, Data: buf.Bytes()}
}

// trackingIndexFactory 记录创建过的索引，便于断言关闭行为。
type trackingIndexFactory struct {
	created []*trackingIndex
}

func (f *trackingIndexFactory) New(string) index.Index {
	idx := &trackingIndex{Index: index.NewMemoryIndex()}
	f.created = append(f.created, idx)
	return idx
}

type trackingIndex struct {
	index.Index
	closed bool
}

func (x *trackingIndex) Close() error {
	x.closed = true
	return x.Index.Close()
}

func newIngestFixture(embedder *fakeEmbedder) (IngestService, *trackingIndexFactory, session.HistoryStore) {
	factory := &trackingIndexFactory{}
	store := session.NewMemoryHistoryStore(20)
	svc := NewIngestService(
		extractor.New(),
		chunker.New(50, 10, 5),
		embedder,
		factory.New,
		store,
	)
	return svc, factory, store
}

func TestIngestDocumentsBuildsIndexAndResetsHistory(t *testing.T) {
	ctx := context.Background()
	embedder := &fakeEmbedder{vec: []float32{1, 0, 0}}
	svc, _, store := newIngestFixture(embedder)

	sess := &session.Session{ID: "s1", CreatedAt: time.Now()}
	require.NoError(t, store.Append(ctx, sess.ID, model.ConversationTurn{Question: "old", Answer: "old"}))

	docs := []model.Document{docxFixture(t, "机器学习是人工智能的分支。它研究让计算机从数据中学习的算法。")}
	result, err := svc.IngestDocuments(ctx, sess, docs)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DocumentCount)
	assert.True(t, result.ChunkCount > 0)

	require.NotNil(t, sess.Index())
	assert.Equal(t, result.ChunkCount, sess.Index().Size())

	// 新上传清空既有历史
	turns, err := store.Load(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestIngestReplacesAndClosesOldIndex(t *testing.T) {
	ctx := context.Background()
	embedder := &fakeEmbedder{vec: []float32{1, 0, 0}}
	svc, factory, _ := newIngestFixture(embedder)
	sess := &session.Session{ID: "s1", CreatedAt: time.Now()}

	_, err := svc.IngestDocuments(ctx, sess, []model.Document{docxFixture(t, "first upload content")})
	require.NoError(t, err)
	_, err = svc.IngestDocuments(ctx, sess, []model.Document{docxFixture(t, "second upload content")})
	require.NoError(t, err)

	require.Len(t, factory.created, 2)
	assert.True(t, factory.created[0].closed)
	assert.False(t, factory.created[1].closed)
	assert.Same(t, index.Index(factory.created[1]), sess.Index())
}

func TestIngestExtractionFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	embedder := &fakeEmbedder{vec: []float32{1, 0, 0}}
	svc, _, store := newIngestFixture(embedder)
	sess := &session.Session{ID: "s1", CreatedAt: time.Now()}

	// 先成功构建一次
	_, err := svc.IngestDocuments(ctx, sess, []model.Document{docxFixture(t, "good content")})
	require.NoError(t, err)
	oldIdx := sess.Index()
	require.NoError(t, store.Append(ctx, sess.ID, model.ConversationTurn{Question: "q", Answer: "a"}))

	// 损坏文档导致整批失败
	corrupt := model.Document{FileName: "bad.docx", Format: model.FormatDOCX, Data: []byte("not a zip")}
	_, err = svc.IngestDocuments(ctx, sess, []model.Document{corrupt})
	require.ErrorIs(t, err, model.ErrCorruptDocument)

	// 旧索引与历史保持原状
	assert.Same(t, oldIdx, sess.Index())
	turns, err := store.Load(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, turns, 1)
}

func TestIngestEmbeddingFailureDiscardsBuild(t *testing.T) {
	ctx := context.Background()
	embedder := &fakeEmbedder{err: fmt.Errorf("%w: timeout", model.ErrEmbeddingService)}
	svc, factory, _ := newIngestFixture(embedder)
	sess := &session.Session{ID: "s1", CreatedAt: time.Now()}

	_, err := svc.IngestDocuments(ctx, sess, []model.Document{docxFixture(t, "some content to embed")})
	require.ErrorIs(t, err, model.ErrEmbeddingService)

	// 部分构建被丢弃，会话保持未索引状态
	assert.Nil(t, sess.Index())
	require.Len(t, factory.created, 1)
	assert.True(t, factory.created[0].closed)
}

func TestIngestEmptyDocumentYieldsEmptyReadyIndex(t *testing.T) {
	ctx := context.Background()
	embedder := &fakeEmbedder{vec: []float32{1, 0, 0}}
	svc, _, _ := newIngestFixture(embedder)
	sess := &session.Session{ID: "s1", CreatedAt: time.Now()}

	result, err := svc.IngestDocuments(ctx, sess, []model.Document{docxFixture(t, "")})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ChunkCount)

	// 空文档集让会话进入持有空索引的就绪状态
	require.NotNil(t, sess.Index())
	assert.Equal(t, 0, sess.Index().Size())
	assert.Zero(t, embedder.calls)
}

func TestIngestUnsupportedFormat(t *testing.T) {
	ctx := context.Background()
	embedder := &fakeEmbedder{vec: []float32{1, 0, 0}}
	svc, _, _ := newIngestFixture(embedder)
	sess := &session.Session{ID: "s1", CreatedAt: time.Now()}

	doc := model.Document{FileName: "a.txt", Format: "txt", Data: []byte("plain text")}
	_, err := svc.IngestDocuments(ctx, sess, []model.Document{doc})
	assert.ErrorIs(t, err, model.ErrUnsupportedFormat)
	assert.Nil(t, sess.Index())
}
