// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chatpdf-go/internal/model"
	"chatpdf-go/internal/service"
	"chatpdf-go/internal/session"
	"chatpdf-go/pkg/log"
)

// statusFromError 把领域错误映射为 HTTP 状态码。
func statusFromError(err error) int {
	switch {
	case errors.Is(err, model.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, model.ErrCorruptDocument):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrNoDocumentIndexed):
		return http.StatusConflict
	case errors.Is(err, model.ErrEmbeddingService), errors.Is(err, model.ErrGenerationService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// SessionHandler 负责会话的创建、销毁与历史查询。
type SessionHandler struct {
	manager     *session.Manager
	chatService service.ChatService
}

// NewSessionHandler 创建一个新的 SessionHandler 实例。
func NewSessionHandler(manager *session.Manager, chatService service.ChatService) *SessionHandler {
	return &SessionHandler{
		manager:     manager,
		chatService: chatService,
	}
}

// Create 创建一个新的会话并返回其 ID。
func (h *SessionHandler) Create(c *gin.Context) {
	sess := h.manager.Create()
	log.Infof("[SessionHandler] 会话已创建, sessionId: %s", sess.ID)
	c.JSON(http.StatusCreated, gin.H{"code": http.StatusCreated, "message": "success", "data": gin.H{
		"sessionId": sess.ID,
		"createdAt": sess.CreatedAt,
	}})
}

// Destroy 销毁一个会话并释放其索引与历史。
func (h *SessionHandler) Destroy(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if err := h.manager.Destroy(c.Request.Context(), sessionID); err != nil {
		log.Warnf("[SessionHandler] 销毁会话失败, sessionId: %s, error: %v", sessionID, err)
		c.JSON(statusFromError(err), gin.H{"error": "会话不存在"})
		return
	}
	log.Infof("[SessionHandler] 会话已销毁, sessionId: %s", sessionID)
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success"})
}

// GetHistory 返回一个会话的全部对话轮次。
func (h *SessionHandler) GetHistory(c *gin.Context) {
	sessionID := c.Param("sessionId")
	sess, err := h.manager.Get(sessionID)
	if err != nil {
		c.JSON(statusFromError(err), gin.H{"error": "会话不存在"})
		return
	}

	turns, err := h.chatService.History(c.Request.Context(), sess)
	if err != nil {
		log.Errorf("[SessionHandler] 加载会话历史失败, sessionId: %s, error: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法加载会话历史"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": gin.H{
		"sessionId": sessionID,
		"turns":     turns,
		"turnCount": len(turns),
	}})
}
