// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"resume-chat-go/internal/config"
	"resume-chat-go/internal/handler"
	"resume-chat-go/internal/limiter"
	"resume-chat-go/internal/middleware"
	"resume-chat-go/internal/model"
	"resume-chat-go/internal/pipeline"
	"resume-chat-go/internal/repository"
	"resume-chat-go/internal/service"
	"resume-chat-go/pkg/database"
	"resume-chat-go/pkg/kafka"
	"resume-chat-go/pkg/llm"
	"resume-chat-go/pkg/log"
	"resume-chat-go/pkg/tasks"
	"resume-chat-go/pkg/token"
	"resume-chat-go/pkg/webpage"
	"resume-chat-go/pkg/websearch"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 按配置初始化外部存储：会话用 Redis 或进程内存，审计链路用 Kafka + MySQL
	idleTimeout := time.Duration(cfg.Session.IdleTimeoutSeconds) * time.Second
	if cfg.Session.Store == "redis" || cfg.Audit.Enabled {
		database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	}

	var sessionRepo repository.SessionRepository
	if cfg.Session.Store == "redis" {
		sessionRepo = repository.NewRedisSessionRepository(database.RDB, cfg.Session.MaxTurns, idleTimeout)
		log.Info("会话存储使用 Redis")
	} else {
		sessionRepo = repository.NewMemorySessionRepository(cfg.Session.MaxTurns, idleTimeout)
		log.Info("会话存储使用进程内存")
	}

	// 审计链路可选：关闭时对话处理完全不依赖 Kafka 和 MySQL
	var publish func(tasks.ChatEventTask) error
	var chatLogRepo repository.ChatLogRepository
	if cfg.Audit.Enabled {
		database.InitMySQL(cfg.Database.MySQL.DSN)
		if err := database.DB.AutoMigrate(&model.ChatLog{}); err != nil {
			log.Fatalf("审计表结构迁移失败: %v", err)
		}
		kafka.InitProducer(cfg.Kafka)
		publish = kafka.ProduceChatEvent
		chatLogRepo = repository.NewChatLogRepository(database.DB)
		go kafka.StartConsumer(cfg.Kafka, pipeline.NewProcessor(chatLogRepo))
	}

	// 4. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.ClientTokenExpireDays, cfg.JWT.ChatTokenExpireMins)
	llmClient := llm.NewClient(cfg.LLM)
	lim := limiter.New(limiter.Limits{
		RequestsPerMinute: cfg.RateLimits.RequestsPerMinute,
		RequestsPerHour:   cfg.RateLimits.RequestsPerHour,
		SearchesPerHour:   cfg.RateLimits.SearchesPerHour,
	})

	searchProvider := websearch.NewClient(cfg.Search)
	pageExtractor := webpage.NewExtractor(cfg.Search.UserAgent, cfg.Search.MaxContentLength)
	searchService := service.NewSearchService(searchProvider, pageExtractor, lim, cfg.Search)
	guardrail := service.NewKeywordGuardrail(cfg.Guardrails, cfg.Search, cfg.Chatbot.ShortMessageRunes)
	languageService := service.NewLanguageService(service.NewWhatlangDetector(), sessionRepo, cfg.Chatbot)
	sessionService := service.NewSessionService(sessionRepo)
	chatService := service.NewChatService(llmClient, sessionRepo, guardrail, languageService, searchService, publish)

	// 5. 后台任务：过期会话清扫与审计记录保留期清理
	stopCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	go sweepSessions(stopCtx, sessionRepo, time.Duration(cfg.Session.SweepIntervalSeconds)*time.Second)
	if cfg.Audit.Enabled && cfg.Audit.RetentionDays > 0 {
		go purgeChatLogs(stopCtx, chatLogRepo, cfg.Audit)
	}

	// 6. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 7. 注册路由
	healthHandler := handler.NewHealthHandler(llmClient)
	r.GET("/", healthHandler.Root)
	r.GET("/health", healthHandler.Health)

	apiV1 := r.Group("/api/v1")
	apiV1.Use(middleware.ClientContext(jwtManager))
	{
		chatbot := apiV1.Group("/chatbot")
		chatbot.Use(middleware.RateLimit(lim, sessionRepo))
		{
			chatbot.POST("", handler.NewChatbotHandler(chatService).Chat)
			chatbot.POST("/session/summary", handler.NewSessionHandler(sessionService).Summary)
			chatbot.POST("/session/clear", handler.NewSessionHandler(sessionService).Clear)
			chatbot.GET("/quick-actions", handler.NewChatbotHandler(chatService).QuickActions)
			if cfg.Audit.Enabled {
				chatbot.GET("/session/history", handler.NewAuditHandler(chatLogRepo).History)
			}
		}

		// Chat 路由 (WebSocket)
		chatHandler := handler.NewChatHandler(chatService, jwtManager, lim, sessionRepo)
		chatGroup := apiV1.Group("/chat")
		{
			chatGroup.GET("/client-token", chatHandler.GetClientToken)
			chatGroup.GET("/websocket-token", chatHandler.GetWebsocketToken)
		}
		r.GET("/chat/:token", chatHandler.Handle)
	}

	// 8. 启动 HTTP 服务器并实现优雅停机
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

	stopBackground()

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}
	log.Info("服务已优雅关闭")
}

// sweepSessions 周期性清理过期会话，控制进程内存占用。
func sweepSessions(ctx context.Context, repo repository.SessionRepository, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if evicted := repo.EvictExpired(ctx); evicted > 0 {
				log.Infof("清理过期会话: %d 个", evicted)
			}
		}
	}
}

// purgeChatLogs 周期性删除超过保留期的审计记录。
func purgeChatLogs(ctx context.Context, repo repository.ChatLogRepository, cfg config.AuditConfig) {
	interval := time.Duration(cfg.PurgeIntervalHours) * time.Hour
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().AddDate(0, 0, -cfg.RetentionDays)
			deleted, err := repo.PurgeOlderThan(ctx, cutoff)
			if err != nil {
				log.Errorf("清理审计记录失败: %v", err)
				continue
			}
			if deleted > 0 {
				log.Infof("清理过期审计记录: %d 条", deleted)
			}
		}
	}
}
