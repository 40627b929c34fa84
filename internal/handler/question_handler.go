package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"chatpdf-go/internal/service"
	"chatpdf-go/internal/session"
	"chatpdf-go/pkg/log"
)

// QuestionHandler 负责同步问答与检索调试接口。
type QuestionHandler struct {
	manager     *session.Manager
	chatService service.ChatService
}

// NewQuestionHandler 创建一个新的 QuestionHandler 实例。
func NewQuestionHandler(manager *session.Manager, chatService service.ChatService) *QuestionHandler {
	return &QuestionHandler{
		manager:     manager,
		chatService: chatService,
	}
}

type askRequest struct {
	Question string `json:"question" binding:"required"`
}

// Ask 处理一轮同步问答请求。
func (h *QuestionHandler) Ask(c *gin.Context) {
	sessionID := c.Param("sessionId")
	sess, err := h.manager.Get(sessionID)
	if err != nil {
		c.JSON(statusFromError(err), gin.H{"error": "会话不存在"})
		return
	}

	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的问题参数"})
		return
	}
	log.Infof("[QuestionHandler] 收到问答请求, sessionId: %s", sessionID)

	answer, turnCount, err := h.chatService.Ask(c.Request.Context(), sess, req.Question)
	if err != nil {
		log.Errorf("[QuestionHandler] 问答失败, sessionId: %s, error: %v", sessionID, err)
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": gin.H{
		"answer":    answer,
		"turnCount": turnCount,
	}})
}

// Search 是处理向量检索请求的 Gin 处理函数，用于调试与检索接口。
func (h *QuestionHandler) Search(c *gin.Context) {
	sessionID := c.Param("sessionId")
	sess, err := h.manager.Get(sessionID)
	if err != nil {
		c.JSON(statusFromError(err), gin.H{"error": "会话不存在"})
		return
	}

	query := c.Query("query")
	if query == "" {
		log.Warnf("[QuestionHandler] 搜索请求失败: query 参数为空")
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的查询参数"})
		return
	}
	topKStr := c.DefaultQuery("topK", "0")
	topK, err := strconv.Atoi(topKStr)
	if err != nil || topK < 0 {
		topK = 0
	}

	hits, err := h.chatService.Retrieve(c.Request.Context(), sess, query, topK)
	if err != nil {
		log.Errorf("[QuestionHandler] 检索服务返回错误, error: %v", err)
		c.JSON(statusFromError(err), gin.H{"error": "搜索失败"})
		return
	}

	log.Infof("[QuestionHandler] 检索成功, query: '%s', 返回 %d 条结果", query, len(hits))
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": hits})
}
