// Package token 提供了用于生成和验证 JSON Web Tokens (JWT) 的功能。
package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTManager 负责管理 JWT 的生成和验证。
type JWTManager struct {
	secretKey      []byte        // secretKey 用于签名和验证 token 的密钥
	clientTokenDur time.Duration // clientTokenDur 定义了客户端标识 token 的有效期
	chatTokenDur   time.Duration // chatTokenDur 定义了 WebSocket 聊天 token 的有效期
}

// ClientClaims 定义了我们想要在 JWT 中存储的自定义数据。
// 它嵌入了 jwt.RegisteredClaims 以包含标准的 JWT 声明（如过期时间）。
type ClientClaims struct {
	ClientID  string `json:"clientId"`
	SessionID string `json:"sessionId,omitempty"`
	jwt.RegisteredClaims
}

// NewJWTManager 创建一个新的 JWTManager 实例。
// secret: 用于签名的密钥字符串。
// clientTokenExpireDays: 客户端标识 token 的过期时间（天）。
// chatTokenExpireMins: WebSocket 聊天 token 的过期时间（分钟）。
func NewJWTManager(secret string, clientTokenExpireDays, chatTokenExpireMins int) *JWTManager {
	return &JWTManager{
		secretKey:      []byte(secret),
		clientTokenDur: time.Duration(clientTokenExpireDays) * 24 * time.Hour,
		chatTokenDur:   time.Duration(chatTokenExpireMins) * time.Minute,
	}
}

// GenerateClientToken 为指定客户端签发一个长效标识 token，
// 其 ClientID 用于配额统计。
func (m *JWTManager) GenerateClientToken(clientID string) (string, error) {
	return m.generate(clientID, "", m.clientTokenDur)
}

// GenerateChatToken 签发一个短效 token，持有者可凭它建立 WebSocket 聊天连接。
// token 中绑定了客户端与会话标识，连接建立后不再重复鉴权。
func (m *JWTManager) GenerateChatToken(clientID, sessionID string) (string, error) {
	return m.generate(clientID, sessionID, m.chatTokenDur)
}

func (m *JWTManager) generate(clientID, sessionID string, dur time.Duration) (string, error) {
	claims := ClientClaims{
		ClientID:  clientID,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(dur)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// VerifyToken 验证给定的 token 字符串。
// 如果 token 有效，它会返回 ClientClaims 对象。
// 如果 token 无效（例如，签名不匹配或已过期），则返回错误。
func (m *JWTManager) VerifyToken(tokenString string) (*ClientClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ClientClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 检查签名方法是否为 HMAC
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secretKey, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*ClientClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// GenerateRandomString generates a random hex string of a given length.
func GenerateRandomString(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to a less random string on error
		return fmt.Sprintf("fallback%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
