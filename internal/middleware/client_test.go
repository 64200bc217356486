package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"resume-chat-go/internal/limiter"
	"resume-chat-go/internal/model"
	"resume-chat-go/internal/repository"
	"resume-chat-go/internal/service"
	"resume-chat-go/pkg/token"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimitedRouter(lim *limiter.Limiter, sessions repository.SessionRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/chatbot", RateLimit(lim, sessions), func(c *gin.Context) {
		var req model.ChatRequest
		// 放行后下游仍需能完整读取请求体
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"session_id": req.SessionID})
	})
	return r
}

func postChat(r *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chatbot", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitRejectsWithSessionLanguage(t *testing.T) {
	sessions := repository.NewMemorySessionRepository(50, time.Hour)
	ctx := context.Background()
	_, err := sessions.GetOrCreate(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, sessions.SetLanguage(ctx, "s1", "ur"))

	lim := limiter.New(limiter.Limits{RequestsPerMinute: 1})
	r := newLimitedRouter(lim, sessions)

	first := postChat(r, `{"message":"hi","session_id":"s1"}`)
	assert.Equal(t, http.StatusOK, first.Code)

	second := postChat(r, `{"message":"hi again","session_id":"s1"}`)
	require.Equal(t, http.StatusTooManyRequests, second.Code)

	var resp model.ChatResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.Equal(t, service.Template(service.TemplateThrottled, "ur"), resp.Response)
	assert.Equal(t, model.ResponseTypeDirectAnswer, resp.Type)
	assert.NotNil(t, resp.Sources)
	assert.NotNil(t, resp.Suggestions)
}

func TestRateLimitFallsBackToEnglishForUnknownSession(t *testing.T) {
	sessions := repository.NewMemorySessionRepository(50, time.Hour)
	lim := limiter.New(limiter.Limits{RequestsPerMinute: 1})
	r := newLimitedRouter(lim, sessions)

	postChat(r, `{"message":"hi","session_id":"nope"}`)
	second := postChat(r, `{"message":"hi again","session_id":"nope"}`)
	require.Equal(t, http.StatusTooManyRequests, second.Code)

	var resp model.ChatResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.Equal(t, service.Template(service.TemplateThrottled, "en"), resp.Response)
}

func TestRateLimitAllowsWithinQuota(t *testing.T) {
	sessions := repository.NewMemorySessionRepository(50, time.Hour)
	lim := limiter.New(limiter.Limits{RequestsPerMinute: 10})
	r := newLimitedRouter(lim, sessions)

	for i := 0; i < 5; i++ {
		w := postChat(r, `{"message":"hi","session_id":"s1"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "s1")
	}
}

func TestClientContextPrefersTokenIdentity(t *testing.T) {
	jwtManager := token.NewJWTManager("test-secret", 30, 5)
	clientToken, err := jwtManager.GenerateClientToken("client-abc")
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ClientContext(jwtManager))
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, ClientID(c))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+clientToken)
	r.ServeHTTP(w, req)
	assert.Equal(t, "client-abc", w.Body.String())

	// 无效 token 退回来源 IP 计数，请求不被拒绝
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	req.RemoteAddr = "203.0.113.9:1234"
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "203.0.113.9", w.Body.String())
}
