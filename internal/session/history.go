// Package session 管理会话的生命周期、向量索引归属与对话历史。
package session

import (
	"context"
	"sync"

	"chatpdf-go/internal/model"
)

// HistoryStore 定义了对话历史记录的操作接口。
// 历史在一次会话内只追加；新的文档索引构建会整体重置。
type HistoryStore interface {
	Load(ctx context.Context, sessionID string) ([]model.ConversationTurn, error)
	// Append 追加一轮问答并应用滑动窗口裁剪。
	Append(ctx context.Context, sessionID string, turn model.ConversationTurn) error
	// Reset 清空指定会话的全部历史。
	Reset(ctx context.Context, sessionID string) error
}

// memoryHistoryStore 把历史保存在进程内存中，进程退出即消失。
type memoryHistoryStore struct {
	mu     sync.RWMutex
	window int
	turns  map[string][]model.ConversationTurn
}

// NewMemoryHistoryStore 创建一个内存历史存储。
// window 为保留的最近消息条数（一问一答算两条）。
func NewMemoryHistoryStore(window int) HistoryStore {
	return &memoryHistoryStore{
		window: window,
		turns:  make(map[string][]model.ConversationTurn),
	}
}

func (s *memoryHistoryStore) Load(_ context.Context, sessionID string) ([]model.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.turns[sessionID]
	out := make([]model.ConversationTurn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *memoryHistoryStore) Append(_ context.Context, sessionID string, turn model.ConversationTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := append(s.turns[sessionID], turn)
	s.turns[sessionID] = trimWindow(turns, s.window)
	return nil
}

func (s *memoryHistoryStore) Reset(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.turns, sessionID)
	return nil
}

// trimWindow 应用滑动窗口：window 为消息条数，每轮问答两条。
func trimWindow(turns []model.ConversationTurn, window int) []model.ConversationTurn {
	if window <= 0 {
		return turns
	}
	maxTurns := window / 2
	if maxTurns < 1 {
		maxTurns = 1
	}
	if len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}
	return turns
}
