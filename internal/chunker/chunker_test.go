package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reconstruct 把第一块与后续每块去掉重叠前缀后拼接。
func reconstruct(chunks []string, overlap int) string {
	if len(chunks) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(chunks[0])
	for _, c := range chunks[1:] {
		b.WriteString(string([]rune(c)[overlap:]))
	}
	return b.String()
}

func TestSplitEmptyText(t *testing.T) {
	s := New(10, 2, 5)
	assert.Empty(t, s.Split(""))
}

func TestSplitShortTextSingleChunk(t *testing.T) {
	s := New(100, 20, 10)
	chunks := s.Split("hello world")
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world", chunks[0])
}

func TestSplitWhitespaceBoundary(t *testing.T) {
	s := New(10, 2, 100)
	chunks := s.Split("Page1. Page2. Page3.")

	require.Equal(t, []string{"Page1. ", ". Page2. ", ". Page3."}, chunks)
	assert.Equal(t, "Page1. Page2. Page3.", reconstruct(chunks, 2))
}

func TestSplitHardCutWithoutBoundary(t *testing.T) {
	// 没有空白可回退时在窗口末端硬切
	s := New(5, 1, 3)
	chunks := s.Split("abcdefghij")
	require.True(t, len(chunks) > 1)
	for _, c := range chunks[:len(chunks)-1] {
		assert.Len(t, []rune(c), 5)
	}
	assert.Equal(t, "abcdefghij", reconstruct(chunks, 1))
}

func TestSplitReconstruction(t *testing.T) {
	long := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 200)
	cases := []struct {
		size, overlap, lookback int
	}{
		{1000, 200, 100},
		{100, 20, 10},
		{50, 0, 10},
		{37, 11, 5},
	}
	for _, tc := range cases {
		s := New(tc.size, tc.overlap, tc.lookback)
		chunks := s.Split(long)
		require.NotEmpty(t, chunks)
		assert.Equal(t, long, reconstruct(chunks, tc.overlap),
			"size=%d overlap=%d lookback=%d", tc.size, tc.overlap, tc.lookback)
	}
}

func TestSplitMultibyteRunes(t *testing.T) {
	text := strings.Repeat("机器学习是人工智能的一个分支领域。", 30)
	s := New(40, 8, 10)
	chunks := s.Split(text)
	require.True(t, len(chunks) > 1)
	for _, c := range chunks {
		// 任何分块都不能落在多字节字符中间
		assert.True(t, strings.HasSuffix(text, c) || strings.Contains(text, c))
	}
	assert.Equal(t, text, reconstruct(chunks, 8))
}

func TestSplitDeterministic(t *testing.T) {
	text := strings.Repeat("alpha beta gamma delta epsilon ", 100)
	s := New(120, 30, 20)
	first := s.Split(text)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, s.Split(text))
	}
}

func TestNewSanitizesParams(t *testing.T) {
	// 非法重叠被归零，分块之间无共享内容
	s := New(10, 10, -1)
	chunks := s.Split("aaaaaaaaaabbbbbbbbbb")
	require.Len(t, chunks, 2)
	assert.Equal(t, "aaaaaaaaaabbbbbbbbbb", chunks[0]+chunks[1])
}
