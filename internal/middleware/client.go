// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"resume-chat-go/internal/limiter"
	"resume-chat-go/internal/model"
	"resume-chat-go/internal/repository"
	"resume-chat-go/internal/service"
	"resume-chat-go/pkg/log"
	"resume-chat-go/pkg/token"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// ClientIDKey 是客户端标识在 Gin 上下文中的键名。
const ClientIDKey = "clientID"

// ClientContext 解析请求的客户端身份并存入上下文，供配额统计使用。
// 携带有效 Bearer token 的请求按 token 中的 ClientID 计数，
// 匿名请求退化为按来源 IP 计数。身份解析失败不拒绝请求。
func ClientContext(jwtManager *token.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := c.ClientIP()

		authHeader := c.GetHeader("Authorization")
		const bearerPrefix = "Bearer "
		if strings.HasPrefix(authHeader, bearerPrefix) {
			tokenString := strings.TrimPrefix(authHeader, bearerPrefix)
			if claims, err := jwtManager.VerifyToken(tokenString); err == nil && claims.ClientID != "" {
				clientID = claims.ClientID
			} else if err != nil {
				log.Warnf("客户端 token 无效，按来源 IP 计数: %v", err)
			}
		}

		c.Set(ClientIDKey, clientID)
		c.Next()
	}
}

// ClientID 从上下文中取出客户端标识，缺失时退回来源 IP。
func ClientID(c *gin.Context) string {
	if id, ok := c.Get(ClientIDKey); ok {
		if s, ok := id.(string); ok && s != "" {
			return s
		}
	}
	return c.ClientIP()
}

// RateLimit 按客户端执行请求配额检查。
// 超限时返回 429，响应体仍是一个合法的聊天回复实例（限流话术），
// 并按请求所指会话的既定语言本地化。
func RateLimit(lim *limiter.Limiter, sessions repository.SessionRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := ClientID(c)
		if lim.Allow(clientID, limiter.KindRequest) {
			c.Next()
			return
		}

		log.Warnf("客户端请求超限: client=%s, path=%s", clientID, c.Request.URL.Path)
		lang := throttleLanguage(c, sessions)
		c.AbortWithStatusJSON(http.StatusTooManyRequests, model.ChatResponse{
			Response:    service.Template(service.TemplateThrottled, lang),
			Type:        model.ResponseTypeDirectAnswer,
			Sources:     []model.SourceRef{},
			Suggestions: []string{},
			Timestamp:   model.ISOTime(time.Now()),
		})
	}
}

// throttleLanguage 从请求体中提取 session_id 并查出会话缓存语言。
// 只在已决定拒绝时调用，读取后的请求体会被还原。
func throttleLanguage(c *gin.Context, sessions repository.SessionRepository) string {
	if sessions == nil || c.Request.Body == nil {
		return "en"
	}

	body, err := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	if err != nil {
		return "en"
	}

	var ref struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(body, &ref); err != nil || ref.SessionID == "" {
		return "en"
	}

	sess, err := sessions.Get(c.Request.Context(), ref.SessionID)
	if err != nil || sess == nil || sess.Language == "" {
		return "en"
	}
	return sess.Language
}
