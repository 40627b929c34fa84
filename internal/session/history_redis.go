package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"chatpdf-go/internal/model"
)

// 历史记录在 Redis 中的保留时长，到期自动清理遗留会话。
const historyTTL = 7 * 24 * time.Hour

// redisHistoryStore 把对话历史以 JSON 列表的形式保存在 Redis 中，
// 用于希望历史在进程重启后仍然可用的部署。
type redisHistoryStore struct {
	redisClient *redis.Client
	window      int
}

// NewRedisHistoryStore 创建一个基于 Redis 的历史存储。
func NewRedisHistoryStore(redisClient *redis.Client, window int) HistoryStore {
	return &redisHistoryStore{redisClient: redisClient, window: window}
}

func historyKey(sessionID string) string {
	return fmt.Sprintf("chatpdf:history:%s", sessionID)
}

func (r *redisHistoryStore) Load(ctx context.Context, sessionID string) ([]model.ConversationTurn, error) {
	jsonData, err := r.redisClient.Get(ctx, historyKey(sessionID)).Result()
	if err == redis.Nil {
		return []model.ConversationTurn{}, nil // 还没有历史
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation history: %w", err)
	}
	var turns []model.ConversationTurn
	if err := json.Unmarshal([]byte(jsonData), &turns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation history: %w", err)
	}
	return turns, nil
}

func (r *redisHistoryStore) Append(ctx context.Context, sessionID string, turn model.ConversationTurn) error {
	turns, err := r.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	turns = trimWindow(append(turns, turn), r.window)

	jsonData, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation history: %w", err)
	}
	if err := r.redisClient.Set(ctx, historyKey(sessionID), jsonData, historyTTL).Err(); err != nil {
		return fmt.Errorf("failed to set conversation history: %w", err)
	}
	return nil
}

func (r *redisHistoryStore) Reset(ctx context.Context, sessionID string) error {
	if err := r.redisClient.Del(ctx, historyKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete conversation history: %w", err)
	}
	return nil
}
