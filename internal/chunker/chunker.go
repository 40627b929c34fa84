// Package chunker 将长文本切分为带重叠的检索分块。
package chunker

import "unicode"

// Splitter 按固定窗口大小和重叠量切分文本。
// 切分按 rune 计数进行，保证多字节文本不会被从字符中间截断。
type Splitter struct {
	chunkSize        int
	chunkOverlap     int
	boundaryLookback int
}

// New 创建一个 Splitter。重叠量必须满足 0 ≤ overlap < size，
// 非法参数会被修正（负值归零，过大重叠退化为无重叠）。
func New(chunkSize, chunkOverlap, boundaryLookback int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 0
	}
	if boundaryLookback < 0 {
		boundaryLookback = 0
	}
	return &Splitter{
		chunkSize:        chunkSize,
		chunkOverlap:     chunkOverlap,
		boundaryLookback: boundaryLookback,
	}
}

// Split 将文本切分为有序分块序列。
//
// 窗口每次前进 chunkSize − chunkOverlap；窗口尾部若在 boundaryLookback
// 范围内存在空白字符，则优先在空白后切分，否则硬切。相邻分块共享恰好
// chunkOverlap 个 rune：下一块总是从上一块结束位置回退 chunkOverlap 处开始，
// 因此把第一块与后续每块去掉前 chunkOverlap 个 rune 后拼接，可以无损还原输入。
// 纯函数：相同输入与参数永远得到相同的输出。空文本返回空序列。
func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= s.chunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for {
		end := start + s.chunkSize
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		cut := end
		// 切点不能回退到重叠区之内，否则窗口无法前进
		limit := end - s.boundaryLookback
		if min := start + s.chunkOverlap + 1; limit < min {
			limit = min
		}
		for j := end - 1; j >= limit; j-- {
			if unicode.IsSpace(runes[j]) {
				// 空白归入当前块，下一块从文字开始
				cut = j + 1
				break
			}
		}

		chunks = append(chunks, string(runes[start:cut]))
		start = cut - s.chunkOverlap
	}
	return chunks
}
