package session

import (
	"sync"
	"time"

	"chatpdf-go/internal/index"
)

// Session 是一次文档问答会话的全部状态：向量索引与对话历史的归属者。
// 索引为 nil 表示尚未索引任何文档（Idle）；构建成功后进入 Ready，
// 第一轮问答之后历史非空（Conversing）。
//
// 同一会话上的操作必须串行：调用方通过内嵌的互斥锁保护
// 索引替换与历史追加；不同会话之间没有共享可变状态。
type Session struct {
	sync.Mutex

	ID        string
	CreatedAt time.Time

	idx index.Index
}

// Index 返回当前的向量索引，尚未构建时为 nil。
func (s *Session) Index() index.Index {
	return s.idx
}

// ReplaceIndex 用新构建的索引替换旧索引并释放旧索引资源。
// 只应在持有会话锁时调用。
func (s *Session) ReplaceIndex(idx index.Index) {
	if s.idx != nil {
		_ = s.idx.Close()
	}
	s.idx = idx
}
