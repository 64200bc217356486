package handler

import (
	"net/http"
	"resume-chat-go/internal/repository"
	"strconv"

	"github.com/gin-gonic/gin"
)

// AuditHandler 负责查询已持久化的对话审计记录。
type AuditHandler struct {
	chatLogRepo repository.ChatLogRepository
}

// NewAuditHandler 创建一个新的 AuditHandler。
func NewAuditHandler(chatLogRepo repository.ChatLogRepository) *AuditHandler {
	return &AuditHandler{chatLogRepo: chatLogRepo}
}

// History 按时间倒序返回某会话最近的审计记录。
func (h *AuditHandler) History(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	logs, err := h.chatLogRepo.ListBySession(c.Request.Context(), sessionID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list chat history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": logs})
}
