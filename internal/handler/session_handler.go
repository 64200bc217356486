package handler

import (
	"net/http"
	"resume-chat-go/internal/service"

	"github.com/gin-gonic/gin"
)

// SessionHandler 负责处理会话管理相关的 HTTP 请求。
type SessionHandler struct {
	sessionService service.SessionService
}

// NewSessionHandler 创建一个新的 SessionHandler。
func NewSessionHandler(sessionService service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

type sessionRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// Summary 返回会话的只读摘要，不会刷新会话的活跃时间。
func (h *SessionHandler) Summary(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	summary, err := h.sessionService.Summarize(c.Request.Context(), req.SessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to summarize session"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Clear 清空会话历史，保留会话标识。
func (h *SessionHandler) Clear(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	cleared, err := h.sessionService.Clear(c.Request.Context(), req.SessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": req.SessionID, "cleared": cleared})
}
