package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatpdf-go/internal/index"
	"chatpdf-go/internal/model"
)

func newTurn(i int) model.ConversationTurn {
	return model.ConversationTurn{
		Question: fmt.Sprintf("question %d", i),
		Answer:   fmt.Sprintf("answer %d", i),
		AskedAt:  time.Now(),
	}
}

func TestManagerCreateAndGet(t *testing.T) {
	m := NewManager(NewMemoryHistoryStore(20))

	sess := m.Create()
	require.NotEmpty(t, sess.ID)
	assert.Nil(t, sess.Index())

	got, err := m.Get(sess.ID)
	require.NoError(t, err)
	assert.Same(t, sess, got)

	_, err = m.Get("no-such-session")
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
}

func TestManagerDestroy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryHistoryStore(20)
	m := NewManager(store)

	sess := m.Create()
	sess.Lock()
	sess.ReplaceIndex(index.NewMemoryIndex())
	sess.Unlock()
	require.NoError(t, store.Append(ctx, sess.ID, newTurn(1)))

	require.NoError(t, m.Destroy(ctx, sess.ID))

	_, err := m.Get(sess.ID)
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
	assert.Nil(t, sess.Index())
	turns, err := store.Load(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, turns)

	// 再次销毁同一会话
	assert.ErrorIs(t, m.Destroy(ctx, sess.ID), model.ErrSessionNotFound)
}

func TestReplaceIndexClosesOld(t *testing.T) {
	sess := &Session{ID: "s1", CreatedAt: time.Now()}
	old := &closeTrackingIndex{Index: index.NewMemoryIndex()}

	sess.Lock()
	sess.ReplaceIndex(old)
	sess.ReplaceIndex(index.NewMemoryIndex())
	sess.Unlock()

	assert.True(t, old.closed)
	assert.NotNil(t, sess.Index())
}

type closeTrackingIndex struct {
	index.Index
	closed bool
}

func (c *closeTrackingIndex) Close() error {
	c.closed = true
	return c.Index.Close()
}

func TestMemoryHistoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryHistoryStore(20)

	turns, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, turns)

	require.NoError(t, store.Append(ctx, "s1", newTurn(1)))
	require.NoError(t, store.Append(ctx, "s1", newTurn(2)))

	turns, err = store.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "question 1", turns[0].Question)

	// 其他会话互不可见
	other, err := store.Load(ctx, "s2")
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, store.Reset(ctx, "s1"))
	turns, err = store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestHistorySlidingWindow(t *testing.T) {
	ctx := context.Background()
	// 窗口 6 条消息 = 3 轮问答
	store := NewMemoryHistoryStore(6)

	for i := 1; i <= 5; i++ {
		require.NoError(t, store.Append(ctx, "s1", newTurn(i)))
	}

	turns, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 3)
	// 保留的是最近三轮
	assert.Equal(t, "question 3", turns[0].Question)
	assert.Equal(t, "question 5", turns[2].Question)
}

func TestTrimWindow(t *testing.T) {
	turns := make([]model.ConversationTurn, 0, 10)
	for i := 0; i < 10; i++ {
		turns = append(turns, newTurn(i))
	}

	assert.Len(t, trimWindow(turns, 0), 10)
	assert.Len(t, trimWindow(turns, 20), 10)
	assert.Len(t, trimWindow(turns, 10), 5)
	// 窗口不足两条消息时至少保留一轮
	assert.Len(t, trimWindow(turns, 1), 1)
}
