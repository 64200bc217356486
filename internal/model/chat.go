// Package model 包含了应用的数据模型定义。
package model

import "time"

// 对话回复的类型标签。
const (
	ResponseTypeDirectAnswer    = "direct_answer"
	ResponseTypeSearchAugmented = "search_augmented"
	ResponseTypeRedirect        = "redirect"
)

// ChatTurn 代表会话中的单条消息。
type ChatTurn struct {
	Role      string    `json:"role"` // "user" 或 "assistant"
	Content   string    `json:"content"`
	Intent    string    `json:"intent,omitempty"` // 产生该消息的回复类型
	Timestamp time.Time `json:"timestamp"`
}

// Session 代表一个有界的、带过期时间的会话上下文。
type Session struct {
	ID           string     `json:"id"`
	Turns        []ChatTurn `json:"turns"`
	Language     string     `json:"language,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastActivity time.Time  `json:"lastActivity"`
}

// SessionSummary 是会话历史的浓缩表示，用于外部展示，不修改会话本身。
type SessionSummary struct {
	SessionID         string     `json:"sessionId"`
	TotalTurns        int        `json:"totalTurns"`
	ConversationStart *ISOTime   `json:"conversationStart,omitempty"`
	LastActivity      *ISOTime   `json:"lastActivity,omitempty"`
	Language          string     `json:"language,omitempty"`
	TopicsDiscussed   []string   `json:"topicsDiscussed"`
	RecentTurns       []ChatTurn `json:"recentTurns"`
}

// SearchResult 是一次网页搜索命中的抽取结果，仅在单个请求内存在。
type SearchResult struct {
	URL        string  `json:"url"`
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	TrustScore float64 `json:"trustScore"`
}

// Verdict 是话题守卫对单条消息的分类结论。
type Verdict string

const (
	VerdictOnTopic    Verdict = "on_topic"
	VerdictRestricted Verdict = "restricted"
	VerdictOffTopic   Verdict = "off_topic_redirectable"
)

// GuardrailVerdict 携带分类结论与可选的重定向话术。
type GuardrailVerdict struct {
	Verdict  Verdict
	Redirect string
}

// ChatRequest 是聊天接口的入站请求体。
type ChatRequest struct {
	Message   string      `json:"message" binding:"required"`
	Context   ChatContext `json:"context"`
	SessionID string      `json:"session_id"`
}

// ChatContext 携带调用方提供的简历上下文，内容对本服务不透明。
type ChatContext struct {
	ResumeData map[string]interface{} `json:"resume_data"`
}

// SourceRef 是回复中引用的单个来源。
type SourceRef struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ChatResponse 是聊天接口的出站响应体。所有失败路径也必须产出一个合法实例。
type ChatResponse struct {
	Response    string      `json:"response"`
	Type        string      `json:"type"`
	Sources     []SourceRef `json:"sources"`
	Suggestions []string    `json:"suggestions"`
	SessionID   string      `json:"sessionId"`
	Timestamp   ISOTime     `json:"timestamp"`
}
