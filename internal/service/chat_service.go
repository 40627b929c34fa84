package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"chatpdf-go/internal/config"
	"chatpdf-go/internal/index"
	"chatpdf-go/internal/model"
	"chatpdf-go/internal/session"
	"chatpdf-go/pkg/embedding"
	"chatpdf-go/pkg/llm"
	"chatpdf-go/pkg/log"
)

// ChatService 定义了检索增强的对话操作。
type ChatService interface {
	// Ask 处理一轮问答：检索相关分块、组装提示词、调用生成服务，
	// 成功后把本轮问答追加到历史并返回回答与最新轮数。
	// 生成失败不会改动历史，同一问题可以幂等重试。
	Ask(ctx context.Context, sess *session.Session, question string) (string, int, error)
	// AskStream 与 Ask 语义一致，但把回答以分块形式流式写入 WebSocket。
	AskStream(ctx context.Context, sess *session.Session, question string, ws *websocket.Conn, shouldStop func() bool) error
	// Retrieve 只做检索，返回与查询最相关的分块，供调试与检索接口使用。
	Retrieve(ctx context.Context, sess *session.Session, query string, topK int) ([]model.ChunkHit, error)
	// History 返回会话的全部对话轮次。
	History(ctx context.Context, sess *session.Session) ([]model.ConversationTurn, error)
}

type chatService struct {
	embeddingClient embedding.Client
	llmClient       llm.Client
	history         session.HistoryStore
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(embeddingClient embedding.Client, llmClient llm.Client, history session.HistoryStore) ChatService {
	return &chatService{
		embeddingClient: embeddingClient,
		llmClient:       llmClient,
		history:         history,
	}
}

// Ask 协调一轮完整的 RAG 问答。
func (s *chatService) Ask(ctx context.Context, sess *session.Session, question string) (string, int, error) {
	sess.Lock()
	defer sess.Unlock()

	messages, err := s.prepareMessages(ctx, sess, question)
	if err != nil {
		return "", 0, err
	}

	answer, err := s.llmClient.Chat(ctx, messages, nil)
	if err != nil {
		// 历史保持原样，调用方可以直接重试同一问题
		return "", 0, err
	}

	turnCount := s.recordTurn(ctx, sess.ID, question, answer)
	return answer, turnCount, nil
}

// AskStream 协调 RAG 流程并流式传输 LLM 响应。
func (s *chatService) AskStream(ctx context.Context, sess *session.Session, question string, ws *websocket.Conn, shouldStop func() bool) error {
	sess.Lock()
	defer sess.Unlock()

	messages, err := s.prepareMessages(ctx, sess, question)
	if err != nil {
		return err
	}

	// 拦截 websocket writer 以捕获完整答案，并包装为 JSON 分块
	answerBuilder := &strings.Builder{}
	interceptor := &wsWriterInterceptor{conn: ws, writer: answerBuilder, shouldStop: shouldStop}

	if err := s.llmClient.StreamChatMessages(ctx, messages, nil, interceptor); err != nil {
		return err
	}

	sendCompletion(ws)
	fullAnswer := answerBuilder.String()
	if len(fullAnswer) > 0 {
		// 使用后台上下文：即使原始请求被取消，成功生成的答案也应入档
		s.recordTurn(context.Background(), sess.ID, question, fullAnswer)
	}
	return nil
}

// Retrieve 在会话索引上执行一次纯检索。
func (s *chatService) Retrieve(ctx context.Context, sess *session.Session, query string, topK int) ([]model.ChunkHit, error) {
	sess.Lock()
	defer sess.Unlock()

	idx := sess.Index()
	if idx == nil {
		return nil, model.ErrNoDocumentIndexed
	}
	if topK < 1 {
		topK = config.Conf.Pipeline.TopK
	}
	return s.searchIndex(ctx, idx, query, topK)
}

// History 返回会话的全部对话轮次。
func (s *chatService) History(ctx context.Context, sess *session.Session) ([]model.ConversationTurn, error) {
	return s.history.Load(ctx, sess.ID)
}

// prepareMessages 执行检索并组装发给生成服务的完整消息列表。
// 调用方必须已持有会话锁。
func (s *chatService) prepareMessages(ctx context.Context, sess *session.Session, question string) ([]llm.Message, error) {
	idx := sess.Index()
	if idx == nil {
		// 生成服务不会被调用
		return nil, model.ErrNoDocumentIndexed
	}

	hits, err := s.searchIndex(ctx, idx, question, config.Conf.Pipeline.TopK)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve context: %w", err)
	}
	log.Infof("[ChatService] 检索完成, 会话: %s, 命中 %d 个分块", sess.ID, len(hits))

	history, err := s.history.Load(ctx, sess.ID)
	if err != nil {
		log.Errorf("[ChatService] 加载会话历史失败: %v", err)
		history = []model.ConversationTurn{}
	}

	systemMsg := buildSystemMessage(buildContextText(hits))
	return composeMessages(systemMsg, history, question), nil
}

// searchIndex 向量化查询并在索引中检索 topK 个分块。
// 空索引直接返回空结果，此时仍会尝试生成（没有可检索的内容不是错误）。
func (s *chatService) searchIndex(ctx context.Context, idx index.Index, query string, topK int) ([]model.ChunkHit, error) {
	size := idx.Size()
	if size == 0 {
		return []model.ChunkHit{}, nil
	}
	if topK < 1 {
		topK = config.DefaultTopK
	}
	queryVector, err := s.embeddingClient.CreateEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}
	if topK > size {
		topK = size
	}
	return idx.Search(queryVector, topK)
}

// recordTurn 追加一轮问答并返回最新的历史轮数。
func (s *chatService) recordTurn(ctx context.Context, sessionID, question, answer string) int {
	turn := model.ConversationTurn{
		Question: question,
		Answer:   answer,
		AskedAt:  time.Now(),
	}
	if err := s.history.Append(ctx, sessionID, turn); err != nil {
		// 只记录错误：回答已经产生，不应因为历史写入失败而让本轮失败
		log.Errorf("[ChatService] 保存会话历史失败: %v", err)
	}
	turns, err := s.history.Load(ctx, sessionID)
	if err != nil {
		return 0
	}
	return len(turns)
}

// buildContextText 把检索命中拼装为编号引用文本。
func buildContextText(hits []model.ChunkHit) string {
	if len(hits) == 0 {
		return ""
	}
	var contextBuilder strings.Builder
	for i, h := range hits {
		contextBuilder.WriteString(fmt.Sprintf("[%d] %s\n", i+1, h.TextContent))
	}
	return contextBuilder.String()
}

// buildSystemMessage 用配置的规则与包裹符组装 system 消息。
func buildSystemMessage(contextText string) string {
	prompt := config.Conf.LLM.Prompt
	refStart := prompt.RefStart
	if refStart == "" {
		refStart = "<<REF>>"
	}
	refEnd := prompt.RefEnd
	if refEnd == "" {
		refEnd = "<<END>>"
	}

	var sys strings.Builder
	if prompt.Rules != "" {
		sys.WriteString(prompt.Rules)
		sys.WriteString("\n\n")
	}
	sys.WriteString(refStart)
	sys.WriteString("\n")
	if contextText != "" {
		sys.WriteString(contextText)
	} else {
		noRes := prompt.NoResultText
		if noRes == "" {
			noRes = "（本轮无检索结果）"
		}
		sys.WriteString(noRes)
		sys.WriteString("\n")
	}
	sys.WriteString(refEnd)
	return sys.String()
}

// composeMessages 组装 system + 历史 + 当前问题的消息序列。
func composeMessages(systemMsg string, history []model.ConversationTurn, question string) []llm.Message {
	msgs := make([]llm.Message, 0, len(history)*2+2)
	msgs = append(msgs, llm.Message{Role: "system", Content: systemMsg})
	for _, turn := range history {
		msgs = append(msgs, llm.Message{Role: "user", Content: turn.Question})
		msgs = append(msgs, llm.Message{Role: "assistant", Content: turn.Answer})
	}
	msgs = append(msgs, llm.Message{Role: "user", Content: question})
	return msgs
}

// wsWriterInterceptor 是对 websocket.Conn 的封装，用于捕获写入的消息。
type wsWriterInterceptor struct {
	conn       *websocket.Conn
	writer     *strings.Builder
	shouldStop func() bool
}

// WriteMessage 满足 llm.MessageWriter 接口。
func (w *wsWriterInterceptor) WriteMessage(messageType int, data []byte) error {
	if w.shouldStop != nil && w.shouldStop() {
		// 停止标志生效：跳过下发
		return nil
	}
	w.writer.Write(data)
	// 将原始分块包装成 {"chunk":"..."}
	payload := map[string]string{"chunk": string(data)}
	b, _ := json.Marshal(payload)
	return w.conn.WriteMessage(messageType, b)
}

// sendCompletion 发送完成通知 JSON
func sendCompletion(ws *websocket.Conn) {
	notif := map[string]interface{}{
		"type":      "completion",
		"status":    "finished",
		"message":   "响应已完成",
		"timestamp": time.Now().UnixMilli(),
		"date":      time.Now().Format("2006-01-02T15:04:05"),
	}
	b, _ := json.Marshal(notif)
	_ = ws.WriteMessage(websocket.TextMessage, b)
}
