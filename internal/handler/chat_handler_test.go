package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"resume-chat-go/internal/limiter"
	"resume-chat-go/internal/model"
	"resume-chat-go/internal/repository"
	"resume-chat-go/internal/service"
	"resume-chat-go/pkg/llm"
	"resume-chat-go/pkg/token"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChatService struct {
	stream func(ctx context.Context, req *model.ChatRequest, clientID string, conn llm.MessageWriter, shouldStop func() bool) error
}

func (s *stubChatService) ProcessMessage(context.Context, *model.ChatRequest, string) *model.ChatResponse {
	return nil
}

func (s *stubChatService) StreamResponse(ctx context.Context, req *model.ChatRequest, clientID string, conn llm.MessageWriter, shouldStop func() bool) error {
	return s.stream(ctx, req, clientID, conn, shouldStop)
}

func writeChunk(conn llm.MessageWriter, content string) error {
	b, _ := json.Marshal(map[string]string{"type": "chunk", "content": content})
	return conn.WriteMessage(websocket.TextMessage, b)
}

// dialChat 建立一条经过 token 鉴权的测试 WebSocket 连接。
func dialChat(t *testing.T, h *ChatHandler, jwtManager *token.JWTManager, sessionID string) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/chat/:token", h.Handle)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	chatToken, err := jwtManager.GenerateChatToken("c1", sessionID)
	require.NoError(t, err)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/" + chatToken
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var env map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestHandleSendsLocalizedWelcomeOnConnect(t *testing.T) {
	sessions := repository.NewMemorySessionRepository(50, time.Hour)
	ctx := context.Background()
	_, err := sessions.GetOrCreate(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, sessions.SetLanguage(ctx, "s1", "ur"))

	jwtManager := token.NewJWTManager("test-secret", 30, 5)
	svc := &stubChatService{stream: func(context.Context, *model.ChatRequest, string, llm.MessageWriter, func() bool) error {
		return nil
	}}
	conn := dialChat(t, NewChatHandler(svc, jwtManager, nil, sessions), jwtManager, "s1")

	env := readEnvelope(t, conn)
	assert.Equal(t, "welcome", env["type"])
	assert.Equal(t, service.Template(service.TemplateWelcome, "ur"), env["message"])
}

func TestHandleStopInterruptsStreamMidResponse(t *testing.T) {
	sessions := repository.NewMemorySessionRepository(50, time.Hour)
	jwtManager := token.NewJWTManager("test-secret", 30, 5)

	stopped := make(chan struct{})
	svc := &stubChatService{stream: func(_ context.Context, _ *model.ChatRequest, _ string, conn llm.MessageWriter, shouldStop func() bool) error {
		for i := 0; i < 500; i++ {
			if shouldStop() {
				close(stopped)
				return nil
			}
			if err := writeChunk(conn, "token "); err != nil {
				return err
			}
			time.Sleep(10 * time.Millisecond)
		}
		return nil
	}}
	conn := dialChat(t, NewChatHandler(svc, jwtManager, nil, sessions), jwtManager, "s1")

	env := readEnvelope(t, conn)
	require.Equal(t, "welcome", env["type"])

	require.NoError(t, conn.WriteJSON(map[string]string{"message": "tell me everything", "session_id": "s1"}))

	// 等到分块开始流动再下停止指令，证明指令在回复进行中生效
	for {
		env = readEnvelope(t, conn)
		if env["type"] == "chunk" {
			break
		}
	}
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "stop"}))

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("stream kept producing chunks after the stop command")
	}
}

func TestHandleThrottleReplyUsesSessionLanguage(t *testing.T) {
	sessions := repository.NewMemorySessionRepository(50, time.Hour)
	ctx := context.Background()
	_, err := sessions.GetOrCreate(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, sessions.SetLanguage(ctx, "s1", "ur"))

	jwtManager := token.NewJWTManager("test-secret", 30, 5)
	lim := limiter.New(limiter.Limits{RequestsPerMinute: 1})
	svc := &stubChatService{stream: func(_ context.Context, _ *model.ChatRequest, _ string, conn llm.MessageWriter, _ func() bool) error {
		return writeChunk(conn, "short answer")
	}}
	conn := dialChat(t, NewChatHandler(svc, jwtManager, lim, sessions), jwtManager, "s1")

	env := readEnvelope(t, conn)
	require.Equal(t, "welcome", env["type"])

	require.NoError(t, conn.WriteJSON(map[string]string{"message": "first", "session_id": "s1"}))
	env = readEnvelope(t, conn)
	require.Equal(t, "chunk", env["type"])

	require.NoError(t, conn.WriteJSON(map[string]string{"message": "second", "session_id": "s1"}))
	env = readEnvelope(t, conn)
	require.Equal(t, "error", env["type"])
	assert.Equal(t, service.Template(service.TemplateThrottled, "ur"), env["error"])
}

func TestGetClientTokenIssuesVerifiableIdentity(t *testing.T) {
	jwtManager := token.NewJWTManager("test-secret", 30, 5)
	h := NewChatHandler(&stubChatService{}, jwtManager, nil, nil)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/client-token", h.GetClientToken)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/client-token", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code int `json:"code"`
		Data struct {
			ClientToken string `json:"clientToken"`
			ClientID    string `json:"clientId"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, strings.HasPrefix(resp.Data.ClientID, "client-"))

	claims, err := jwtManager.VerifyToken(resp.Data.ClientToken)
	require.NoError(t, err)
	assert.Equal(t, resp.Data.ClientID, claims.ClientID)
}
