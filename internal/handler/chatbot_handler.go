// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"
	"resume-chat-go/internal/middleware"
	"resume-chat-go/internal/model"
	"resume-chat-go/internal/service"

	"github.com/gin-gonic/gin"
)

// ChatbotHandler 负责处理聊天相关的 HTTP 请求。
type ChatbotHandler struct {
	chatService service.ChatService
}

// NewChatbotHandler 创建一个新的 ChatbotHandler。
func NewChatbotHandler(chatService service.ChatService) *ChatbotHandler {
	return &ChatbotHandler{chatService: chatService}
}

// Chat 处理一条聊天消息并同步返回完整回复。
func (h *ChatbotHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	resp := h.chatService.ProcessMessage(c.Request.Context(), &req, middleware.ClientID(c))
	c.JSON(http.StatusOK, resp)
}

// QuickActions 返回前端可直接展示的预置提问分组。
func (h *ChatbotHandler) QuickActions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": service.QuickActions})
}
