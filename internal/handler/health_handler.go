package handler

import (
	"context"
	"net/http"
	"resume-chat-go/internal/config"
	"resume-chat-go/pkg/llm"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthHandler 提供服务信息与健康检查接口。
type HealthHandler struct {
	llmClient llm.Client
}

// NewHealthHandler 创建一个新的 HealthHandler。
func NewHealthHandler(llmClient llm.Client) *HealthHandler {
	return &HealthHandler{llmClient: llmClient}
}

// Root 返回服务的基本信息。
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "resume-chat-go",
		"status":  "running",
		"model":   config.Conf.LLM.Model,
	})
}

// Health 做一次浅探活：用极小的生成请求验证上游可用。
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	maxTokens := 1
	_, err := h.llmClient.Complete(ctx, []llm.Message{{Role: "user", Content: "ping"}}, &llm.GenerationParams{MaxTokens: &maxTokens})
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "llm": "unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "llm": "reachable"})
}
