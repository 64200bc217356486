package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"resume-chat-go/internal/limiter"
	"resume-chat-go/internal/middleware"
	"resume-chat-go/internal/model"
	"resume-chat-go/internal/repository"
	"resume-chat-go/internal/service"
	"resume-chat-go/pkg/llm"
	"resume-chat-go/pkg/log"
	"resume-chat-go/pkg/token"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// wsInbound 是 WebSocket 聊天连接上的入站消息。
// type 为 "stop" 表示停止当前流；其余情况按聊天消息处理。
type wsInbound struct {
	Type      string            `json:"type"`
	Message   string            `json:"message"`
	SessionID string            `json:"session_id"`
	Context   model.ChatContext `json:"context"`
}

// wsWriter 串行化对同一连接的并发写入。
// 流式回复在独立 goroutine 中产出分块，读循环同时可能写停止确认。
type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsWriter) WriteMessage(messageType int, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(messageType, data)
}

// ChatHandler 负责处理 WebSocket 流式聊天连接与客户端身份签发。
type ChatHandler struct {
	chatService service.ChatService
	jwtManager  *token.JWTManager
	limiter     *limiter.Limiter
	sessionRepo repository.SessionRepository
	// 每连接停止标志
	stopFlags sync.Map // key: connection pointer string, value: bool
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService, jwtManager *token.JWTManager, lim *limiter.Limiter, sessionRepo repository.SessionRepository) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		jwtManager:  jwtManager,
		limiter:     lim,
		sessionRepo: sessionRepo,
	}
}

// GetClientToken 为匿名调用方签发一个长效客户端标识 token。
// 后续请求携带该 token 时，配额按稳定的客户端标识统计而不是来源 IP。
func (h *ChatHandler) GetClientToken(c *gin.Context) {
	clientID := "client-" + token.GenerateRandomString(16)
	clientToken, err := h.jwtManager.GenerateClientToken(clientID)
	if err != nil {
		log.Error("签发客户端 token 失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "failed to issue client token", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": gin.H{"clientToken": clientToken, "clientId": clientID}})
}

// GetWebsocketToken 为当前客户端签发一个短效聊天 token。
// 持有者凭它建立 WebSocket 连接，连接建立后不再重复鉴权。
func (h *ChatHandler) GetWebsocketToken(c *gin.Context) {
	clientID := middleware.ClientID(c)
	sessionID := c.Query("session_id")

	chatToken, err := h.jwtManager.GenerateChatToken(clientID, sessionID)
	if err != nil {
		log.Error("签发聊天 token 失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "failed to issue chat token", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": gin.H{"chatToken": chatToken}})
}

// Handle 处理一个传入的 WebSocket 连接。
// 每条聊天消息在独立 goroutine 中流式作答，读循环保持可用，
// 因此停止指令在回复进行中也能即时生效。
func (h *ChatHandler) Handle(c *gin.Context) {
	tokenString := c.Param("token")
	claims, err := h.jwtManager.VerifyToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "invalid chat token", "data": nil})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("WebSocket 连接已建立: client=%s", claims.ClientID)

	writer := &wsWriter{conn: conn}
	h.writeWelcome(c.Request.Context(), writer, claims.SessionID)

	var busy atomic.Bool
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warnf("从 WebSocket 读取消息失败: %v", err)
			break
		}

		var inbound wsInbound
		if err := json.Unmarshal(message, &inbound); err != nil {
			h.writeError(writer, "invalid message format")
			continue
		}

		// 停止指令：置位标志让在途的流式回复中断
		if inbound.Type == "stop" {
			h.stopFlags.Store(connKey(conn), true)
			ack := map[string]interface{}{
				"type":      "stop",
				"message":   "stream stopped",
				"timestamp": time.Now().UnixMilli(),
			}
			b, _ := json.Marshal(ack)
			_ = writer.WriteMessage(websocket.TextMessage, b)
			continue
		}

		if inbound.Message == "" {
			h.writeError(writer, "message is required")
			continue
		}

		req := &model.ChatRequest{
			Message:   inbound.Message,
			SessionID: inbound.SessionID,
			Context:   inbound.Context,
		}
		if req.SessionID == "" {
			req.SessionID = claims.SessionID
		}

		// 流式连接不走 HTTP 限流中间件，在这里逐消息检查配额
		if h.limiter != nil && !h.limiter.Allow(claims.ClientID, limiter.KindRequest) {
			lang := h.sessionLanguage(c.Request.Context(), req.SessionID)
			h.writeError(writer, service.Template(service.TemplateThrottled, lang))
			continue
		}

		// 同一连接同一时刻只处理一条在途回复
		if !busy.CompareAndSwap(false, true) {
			h.writeError(writer, "a response is already in progress")
			continue
		}

		// 清除上一轮残留的停止标志
		h.stopFlags.Delete(connKey(conn))
		shouldStop := func() bool {
			v, ok := h.stopFlags.Load(connKey(conn))
			return ok && v.(bool)
		}

		go func(req *model.ChatRequest) {
			defer busy.Store(false)
			if err := h.chatService.StreamResponse(c.Request.Context(), req, claims.ClientID, writer, shouldStop); err != nil {
				log.Errorf("处理流式响应失败: %v", err)
				lang := h.sessionLanguage(c.Request.Context(), req.SessionID)
				h.writeError(writer, service.Template(service.TemplateError, lang))
			}
		}(req)
	}
}

// writeWelcome 在连接建立时发送欢迎话术，按会话既定语言本地化。
func (h *ChatHandler) writeWelcome(ctx context.Context, writer llm.MessageWriter, sessionID string) {
	lang := h.sessionLanguage(ctx, sessionID)
	b, _ := json.Marshal(map[string]string{
		"type":    "welcome",
		"message": service.Template(service.TemplateWelcome, lang),
	})
	if err := writer.WriteMessage(websocket.TextMessage, b); err != nil {
		log.Warnf("写入 WebSocket 欢迎消息失败: %v", err)
	}
}

// sessionLanguage 返回会话缓存的语言，查不到时退回英语。
func (h *ChatHandler) sessionLanguage(ctx context.Context, sessionID string) string {
	if sessionID == "" || h.sessionRepo == nil {
		return "en"
	}
	sess, err := h.sessionRepo.Get(ctx, sessionID)
	if err != nil || sess == nil || sess.Language == "" {
		return "en"
	}
	return sess.Language
}

func (h *ChatHandler) writeError(writer llm.MessageWriter, message string) {
	b, _ := json.Marshal(map[string]string{"type": "error", "error": message})
	if err := writer.WriteMessage(websocket.TextMessage, b); err != nil {
		log.Warnf("写入 WebSocket 错误消息失败: %v", err)
	}
}

func connKey(conn *websocket.Conn) string {
	return fmt.Sprintf("%p", conn)
}
