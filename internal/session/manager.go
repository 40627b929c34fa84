package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"chatpdf-go/internal/model"
	"chatpdf-go/pkg/log"
)

// Manager 维护所有活跃会话。会话只存在于进程内存中，
// 销毁会话会释放其向量索引并清空历史。
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	history  HistoryStore
}

// NewManager 创建一个会话管理器。
func NewManager(history HistoryStore) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		history:  history,
	}
}

// History 返回历史存储。
func (m *Manager) History() HistoryStore {
	return m.history
}

// Create 创建一个新的空会话。
func (m *Manager) Create() *Session {
	sess := &Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
	}
	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()
	log.Infof("[SessionManager] 创建会话: %s", sess.ID)
	return sess
}

// Get 按 ID 查找会话，不存在时返回 ErrSessionNotFound。
func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	sess, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	return sess, nil
}

// Destroy 销毁会话：释放索引、清空历史、从管理器移除。
func (m *Manager) Destroy(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	sess, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()
	if !ok {
		return model.ErrSessionNotFound
	}

	sess.Lock()
	defer sess.Unlock()
	sess.ReplaceIndex(nil)
	if err := m.history.Reset(ctx, sessionID); err != nil {
		log.Warnf("[SessionManager] 清理会话 %s 的历史失败: %v", sessionID, err)
	}
	log.Infof("[SessionManager] 销毁会话: %s", sessionID)
	return nil
}
