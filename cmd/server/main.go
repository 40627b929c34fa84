// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"chatpdf-go/internal/chunker"
	"chatpdf-go/internal/config"
	"chatpdf-go/internal/extractor"
	"chatpdf-go/internal/handler"
	"chatpdf-go/internal/index"
	"chatpdf-go/internal/middleware"
	"chatpdf-go/internal/service"
	"chatpdf-go/internal/session"
	"chatpdf-go/pkg/database"
	"chatpdf-go/pkg/embedding"
	"chatpdf-go/pkg/es"
	"chatpdf-go/pkg/llm"
	"chatpdf-go/pkg/log"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 按配置初始化可选的外部存储后端
	var historyStore session.HistoryStore
	switch cfg.History.Backend {
	case "redis":
		database.InitRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		historyStore = session.NewRedisHistoryStore(database.RDB, cfg.History.Window)
	default:
		historyStore = session.NewMemoryHistoryStore(cfg.History.Window)
	}

	var indexFactory service.IndexFactory
	switch cfg.Index.Backend {
	case "elasticsearch":
		if err := es.InitES(cfg.Elasticsearch); err != nil {
			log.Errorf("es 初始化失败 %s", err)
			return
		}
		prefix := cfg.Elasticsearch.IndexPrefix
		if prefix == "" {
			prefix = "chatpdf"
		}
		indexFactory = func(sessionID string) index.Index {
			// 每次构建使用独立的物理索引，销毁时一并删除
			name := fmt.Sprintf("%s-%s-%d", prefix, sessionID, time.Now().UnixNano())
			return index.NewElasticIndex(name)
		}
	default:
		indexFactory = func(sessionID string) index.Index {
			return index.NewMemoryIndex()
		}
	}

	// 4. 初始化外部服务客户端
	embeddingClient := embedding.NewClient(cfg.Embedding)
	llmClient := llm.NewClient(cfg.LLM)

	// 5. 初始化 Service (依赖注入)
	manager := session.NewManager(historyStore)
	splitter := chunker.New(cfg.Pipeline.ChunkSize, cfg.Pipeline.ChunkOverlap, cfg.Pipeline.BoundaryLookback)
	ingestService := service.NewIngestService(
		extractor.New(),
		splitter,
		embeddingClient,
		indexFactory,
		historyStore,
	)
	chatService := service.NewChatService(embeddingClient, llmClient, historyStore)

	// 6. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	// 添加我们自定义的日志中间件和 Gin 的 Recovery 中间件
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 7. 注册路由
	sessionHandler := handler.NewSessionHandler(manager, chatService)
	documentHandler := handler.NewDocumentHandler(manager, ingestService)
	questionHandler := handler.NewQuestionHandler(manager, chatService)
	chatHandler := handler.NewChatHandler(manager, chatService)

	apiV1 := r.Group("/api/v1")
	{
		sessions := apiV1.Group("/sessions")
		{
			sessions.POST("", sessionHandler.Create)
			sessions.DELETE("/:sessionId", sessionHandler.Destroy)
			sessions.GET("/:sessionId/history", sessionHandler.GetHistory)
			sessions.POST("/:sessionId/documents", documentHandler.Upload)
			sessions.POST("/:sessionId/questions", questionHandler.Ask)
			sessions.GET("/:sessionId/search", questionHandler.Search)
		}
	}

	// Chat 路由 (WebSocket)
	r.GET("/chat/:sessionId", chatHandler.Handle)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	log.Info("服务已优雅关闭")
}
