package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIndexEmptySearch(t *testing.T) {
	idx := NewMemoryIndex()
	hits, err := idx.Search([]float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Equal(t, 0, idx.Size())
}

func TestMemoryIndexSelfRetrieval(t *testing.T) {
	idx := NewMemoryIndex()
	chunks := []string{"apples", "bridges", "thunder"}
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
	require.NoError(t, idx.Add(chunks, vectors))
	require.Equal(t, 3, idx.Size())

	// 以某个分块自身的向量查询，该分块必须排在首位
	for i, v := range vectors {
		hits, err := idx.Search(v, 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, i, hits[0].Position)
		assert.Equal(t, chunks[i], hits[0].TextContent)
		assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
	}
}

func TestMemoryIndexScoreOrdering(t *testing.T) {
	idx := NewMemoryIndex()
	require.NoError(t, idx.Add(
		[]string{"far", "near", "middle"},
		[][]float32{
			{0, 1},
			{1, 0},
			{1, 1},
		},
	))

	hits, err := idx.Search([]float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "near", hits[0].TextContent)
	assert.Equal(t, "middle", hits[1].TextContent)
	assert.Equal(t, "far", hits[2].TextContent)
	assert.True(t, hits[0].Score >= hits[1].Score && hits[1].Score >= hits[2].Score)
}

func TestMemoryIndexTieBreakByPosition(t *testing.T) {
	idx := NewMemoryIndex()
	// 两个相同向量：同分时低位置在前
	require.NoError(t, idx.Add(
		[]string{"first", "second"},
		[][]float32{
			{1, 1},
			{1, 1},
		},
	))
	hits, err := idx.Search([]float32{1, 1}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 0, hits[0].Position)
	assert.Equal(t, 1, hits[1].Position)
}

func TestMemoryIndexKClamp(t *testing.T) {
	idx := NewMemoryIndex()
	require.NoError(t, idx.Add([]string{"only"}, [][]float32{{1, 2, 3}}))

	hits, err := idx.Search([]float32{1, 2, 3}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	_, err = idx.Search([]float32{1, 2, 3}, 0)
	assert.Error(t, err)
}

func TestMemoryIndexDimensionMismatch(t *testing.T) {
	idx := NewMemoryIndex()
	require.NoError(t, idx.Add([]string{"a"}, [][]float32{{1, 0}}))

	err := idx.Add([]string{"b"}, [][]float32{{1, 0, 0}})
	assert.Error(t, err)

	_, err = idx.Search([]float32{1}, 1)
	assert.Error(t, err)
}

func TestMemoryIndexZeroVectorScoresZero(t *testing.T) {
	idx := NewMemoryIndex()
	require.NoError(t, idx.Add(
		[]string{"zero", "unit"},
		[][]float32{
			{0, 0},
			{1, 0},
		},
	))
	hits, err := idx.Search([]float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "unit", hits[0].TextContent)
	assert.Equal(t, 0.0, hits[1].Score)
}
