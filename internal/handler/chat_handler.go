package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"chatpdf-go/internal/service"
	"chatpdf-go/internal/session"
	"chatpdf-go/pkg/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// ChatHandler 负责处理 WebSocket 聊天连接。
type ChatHandler struct {
	manager     *session.Manager
	chatService service.ChatService
	// 每连接停止标志
	stopFlags sync.Map // key: conn pointer string, value: bool
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(manager *session.Manager, chatService service.ChatService) *ChatHandler {
	return &ChatHandler{
		manager:     manager,
		chatService: chatService,
	}
}

// Handle 处理一个传入的 WebSocket 连接。
// 每条文本消息被当作一个问题触发一轮流式问答；
// JSON 停止指令 {"type":"stop"} 会中断当前的流式下发。
func (h *ChatHandler) Handle(c *gin.Context) {
	sessionID := c.Param("sessionId")
	sess, err := h.manager.Get(sessionID)
	if err != nil {
		c.JSON(statusFromError(err), gin.H{"error": "会话不存在"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("WebSocket 连接已建立, sessionId: %s", sessionID)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warnf("从 WebSocket 读取消息失败: %v", err)
			break
		}

		// JSON 停止指令: {"type":"stop"}
		if len(message) > 0 && message[0] == '{' {
			var ctrl map[string]interface{}
			if err := json.Unmarshal(message, &ctrl); err == nil {
				if t, ok := ctrl["type"].(string); ok && t == "stop" {
					key := connKey(conn)
					h.stopFlags.Store(key, true)
					// 回发停止确认
					resp := map[string]interface{}{
						"type":      "stop",
						"message":   "响应已停止",
						"timestamp": time.Now().UnixMilli(),
						"date":      time.Now().Format("2006-01-02T15:04:05"),
					}
					b, _ := json.Marshal(resp)
					_ = conn.WriteMessage(websocket.TextMessage, b)
					continue
				}
			}
		}

		shouldStop := func() bool {
			v, ok := h.stopFlags.Load(connKey(conn))
			return ok && v.(bool)
		}
		// 清除旧标志
		h.stopFlags.Delete(connKey(conn))

		err = h.chatService.AskStream(c.Request.Context(), sess, string(message), conn, shouldStop)
		if err != nil {
			log.Errorf("处理流式响应失败: %v", err)
			// 统一 JSON 错误
			errResp := map[string]string{"error": err.Error()}
			b, _ := json.Marshal(errResp)
			_ = conn.WriteMessage(websocket.TextMessage, b)
			// 错误时也发送 completion 通知，便于前端收尾
			resp := map[string]interface{}{
				"type":      "completion",
				"status":    "finished",
				"message":   "响应已完成",
				"timestamp": time.Now().UnixMilli(),
				"date":      time.Now().Format("2006-01-02T15:04:05"),
			}
			cb, _ := json.Marshal(resp)
			_ = conn.WriteMessage(websocket.TextMessage, cb)
			continue
		}
	}

	h.stopFlags.Delete(connKey(conn))
}

func connKey(conn *websocket.Conn) string {
	return fmt.Sprintf("%p", conn)
}
