package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"chatpdf-go/internal/model"
	"chatpdf-go/internal/service"
	"chatpdf-go/internal/session"
	"chatpdf-go/pkg/log"
)

// DocumentHandler 负责处理文档上传与索引构建。
type DocumentHandler struct {
	manager       *session.Manager
	ingestService service.IngestService
}

// NewDocumentHandler 创建一个新的 DocumentHandler 实例。
func NewDocumentHandler(manager *session.Manager, ingestService service.IngestService) *DocumentHandler {
	return &DocumentHandler{
		manager:       manager,
		ingestService: ingestService,
	}
}

// Upload 接收 multipart 上传的文档，构建会话索引并清空历史。
// 任一文件失败时整批失败，会话保持原有状态。
func (h *DocumentHandler) Upload(c *gin.Context) {
	sessionID := c.Param("sessionId")
	sess, err := h.manager.Get(sessionID)
	if err != nil {
		c.JSON(statusFromError(err), gin.H{"error": "会话不存在"})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		log.Warnf("[DocumentHandler] 解析 multipart 表单失败: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的上传请求"})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "未提供任何文件"})
		return
	}

	docs := make([]model.Document, 0, len(files))
	for _, fh := range files {
		format, err := model.FormatFromFileName(fh.Filename)
		if err != nil {
			log.Warnf("[DocumentHandler] 不支持的文件格式: %s", fh.Filename)
			c.JSON(statusFromError(err), gin.H{"error": "不支持的文件格式: " + fh.Filename})
			return
		}

		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无法读取上传文件: " + fh.Filename})
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无法读取上传文件: " + fh.Filename})
			return
		}

		docs = append(docs, model.Document{
			FileName: fh.Filename,
			Format:   format,
			Data:     data,
		})
	}

	result, err := h.ingestService.IngestDocuments(c.Request.Context(), sess, docs)
	if err != nil {
		log.Errorf("[DocumentHandler] 文档入库失败, sessionId: %s, error: %v", sessionID, err)
		c.JSON(statusFromError(err), gin.H{"error": err.Error()})
		return
	}

	log.Infof("[DocumentHandler] 文档入库成功, sessionId: %s, 文档数: %d, 分块数: %d",
		sessionID, result.DocumentCount, result.ChunkCount)
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": gin.H{
		"sessionId":     sessionID,
		"documentCount": result.DocumentCount,
		"chunkCount":    result.ChunkCount,
	}})
}
