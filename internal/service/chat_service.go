// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"resume-chat-go/internal/config"
	"resume-chat-go/internal/model"
	"resume-chat-go/internal/repository"
	"resume-chat-go/pkg/llm"
	"resume-chat-go/pkg/log"
	"resume-chat-go/pkg/tasks"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// 回复中最多附带的建议条数。
const maxSuggestions = 3

// errStreamStopped 标记流式回复被客户端主动停止，不是真正的失败。
var errStreamStopped = errors.New("stream stopped by client")

// ChatService 是对话编排的核心：串联会话、语言、守卫、搜索与生成。
type ChatService interface {
	// ProcessMessage 处理一条消息并返回完整回复。
	// 任何内部失败都会降级为合法的回复实例，绝不返回半成品。
	ProcessMessage(ctx context.Context, req *model.ChatRequest, clientID string) *model.ChatResponse
	// StreamResponse 以 WebSocket 流式返回回复分块，支持客户端随时停止。
	StreamResponse(ctx context.Context, req *model.ChatRequest, clientID string, conn llm.MessageWriter, shouldStop func() bool) error
}

type chatService struct {
	llmClient   llm.Client
	sessionRepo repository.SessionRepository
	guardrail   GuardrailClassifier
	language    LanguageService
	search      SearchService
	// publish 为 nil 时跳过审计事件投递
	publish      func(tasks.ChatEventTask) error
	maxResults   int
	historyTurns int
	gen          *llm.GenerationParams
}

// NewChatService 创建一个新的 ChatService 实例。publish 可为 nil 表示不开启审计。
func NewChatService(
	llmClient llm.Client,
	sessionRepo repository.SessionRepository,
	guardrail GuardrailClassifier,
	language LanguageService,
	search SearchService,
	publish func(tasks.ChatEventTask) error,
) ChatService {
	maxResults := config.Conf.Search.MaxResults
	if maxResults <= 0 {
		maxResults = 3
	}
	historyTurns := config.Conf.Chatbot.HistoryTurns
	if historyTurns <= 0 {
		historyTurns = 6
	}

	genCfg := config.Conf.LLM.Generation
	temperature := genCfg.Temperature
	if temperature == 0 {
		temperature = 0.7
	}
	maxTokens := genCfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 800
	}

	return &chatService{
		llmClient:    llmClient,
		sessionRepo:  sessionRepo,
		guardrail:    guardrail,
		language:     language,
		search:       search,
		publish:      publish,
		maxResults:   maxResults,
		historyTurns: historyTurns,
		gen:          &llm.GenerationParams{Temperature: &temperature, MaxTokens: &maxTokens},
	}
}

func (s *chatService) ProcessMessage(ctx context.Context, req *model.ChatRequest, clientID string) *model.ChatResponse {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	sess, err := s.sessionRepo.GetOrCreate(ctx, sessionID)
	if err != nil {
		log.Errorf("加载会话失败: session=%s, err=%v", sessionID, err)
		return s.errorResponse(sessionID, "en")
	}

	lang := s.language.Resolve(ctx, req.Message, sess)

	// 守卫：越界消息只返回模板重定向，绝不送入生成服务
	verdict := s.guardrail.Classify(req.Message, sess)
	if verdict.Verdict != model.VerdictOnTopic {
		resp := &model.ChatResponse{
			Response:    verdict.Redirect,
			Type:        model.ResponseTypeRedirect,
			Sources:     []model.SourceRef{},
			Suggestions: []string{},
			SessionID:   sessionID,
			Timestamp:   model.ISOTime(time.Now()),
		}
		s.recordExchange(ctx, sessionID, clientID, req.Message, resp, lang, false)
		return resp
	}

	searched := s.search.NeedsSearch(req.Message, sess)
	var results []model.SearchResult
	if searched {
		results = s.search.Search(ctx, s.search.BuildQuery(req.Message), s.maxResults, clientID)
		// 明确要求搜索却一无所获：直接回模板话术，不再调用生成服务
		if len(results) == 0 {
			resp := s.searchFailedResponse(sessionID, lang)
			s.recordExchange(ctx, sessionID, clientID, req.Message, resp, lang, searched)
			return resp
		}
	}

	messages := s.buildMessages(sess, req, results, lang)
	answer, err := s.llmClient.Complete(ctx, messages, s.gen)
	if err != nil {
		log.Errorf("生成回复失败: session=%s, err=%v", sessionID, err)
		resp := s.errorResponse(sessionID, lang)
		s.recordExchange(ctx, sessionID, clientID, req.Message, resp, lang, searched)
		return resp
	}

	resp := &model.ChatResponse{
		Response:    answer,
		Type:        model.ResponseTypeDirectAnswer,
		Sources:     []model.SourceRef{},
		Suggestions: extractSuggestions(answer),
		SessionID:   sessionID,
		Timestamp:   model.ISOTime(time.Now()),
	}
	// 只有真正附带来源时才标记为搜索增强
	if searched && len(results) > 0 {
		resp.Type = model.ResponseTypeSearchAugmented
		for _, r := range results {
			resp.Sources = append(resp.Sources, model.SourceRef{Title: r.Title, URL: r.URL})
		}
	}

	s.recordExchange(ctx, sessionID, clientID, req.Message, resp, lang, searched)
	return resp
}

// streamEnvelope 是 WebSocket 流式回复的外层封装。
type streamEnvelope struct {
	Type     string              `json:"type"` // "chunk" 或 "done"
	Content  string              `json:"content,omitempty"`
	Response *model.ChatResponse `json:"response,omitempty"`
}

// wsChunkInterceptor 把原始生成分块包装成 JSON 信封写入连接，
// 同时累积完整文本并在客户端请求停止时中断流。
type wsChunkInterceptor struct {
	conn       llm.MessageWriter
	full       strings.Builder
	shouldStop func() bool
}

func (w *wsChunkInterceptor) WriteMessage(messageType int, data []byte) error {
	if w.shouldStop != nil && w.shouldStop() {
		return errStreamStopped
	}
	w.full.Write(data)

	envelope, err := json.Marshal(streamEnvelope{Type: "chunk", Content: string(data)})
	if err != nil {
		return fmt.Errorf("failed to marshal stream chunk: %w", err)
	}
	return w.conn.WriteMessage(messageType, envelope)
}

func (s *chatService) StreamResponse(ctx context.Context, req *model.ChatRequest, clientID string, conn llm.MessageWriter, shouldStop func() bool) error {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	sess, err := s.sessionRepo.GetOrCreate(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	lang := s.language.Resolve(ctx, req.Message, sess)

	verdict := s.guardrail.Classify(req.Message, sess)
	if verdict.Verdict != model.VerdictOnTopic {
		resp := &model.ChatResponse{
			Response:    verdict.Redirect,
			Type:        model.ResponseTypeRedirect,
			Sources:     []model.SourceRef{},
			Suggestions: []string{},
			SessionID:   sessionID,
			Timestamp:   model.ISOTime(time.Now()),
		}
		s.recordExchange(ctx, sessionID, clientID, req.Message, resp, lang, false)
		return s.writeDone(conn, resp)
	}

	searched := s.search.NeedsSearch(req.Message, sess)
	var results []model.SearchResult
	if searched {
		results = s.search.Search(ctx, s.search.BuildQuery(req.Message), s.maxResults, clientID)
		if len(results) == 0 {
			resp := s.searchFailedResponse(sessionID, lang)
			s.recordExchange(ctx, sessionID, clientID, req.Message, resp, lang, searched)
			return s.writeDone(conn, resp)
		}
	}

	interceptor := &wsChunkInterceptor{conn: conn, shouldStop: shouldStop}
	messages := s.buildMessages(sess, req, results, lang)
	streamErr := s.llmClient.StreamChatMessages(ctx, messages, s.gen, interceptor)
	stopped := errors.Is(streamErr, errStreamStopped)
	if streamErr != nil && !stopped {
		return fmt.Errorf("failed to stream response: %w", streamErr)
	}

	resp := &model.ChatResponse{
		Response:    interceptor.full.String(),
		Type:        model.ResponseTypeDirectAnswer,
		Sources:     []model.SourceRef{},
		Suggestions: extractSuggestions(interceptor.full.String()),
		SessionID:   sessionID,
		Timestamp:   model.ISOTime(time.Now()),
	}
	if searched && len(results) > 0 {
		resp.Type = model.ResponseTypeSearchAugmented
		for _, r := range results {
			resp.Sources = append(resp.Sources, model.SourceRef{Title: r.Title, URL: r.URL})
		}
	}

	// 被停止的流也记录已产出的部分回答
	s.recordExchange(ctx, sessionID, clientID, req.Message, resp, lang, searched)
	if stopped {
		return nil
	}
	return s.writeDone(conn, resp)
}

// writeDone 发送收尾信封，携带完整回复元数据（来源、建议等）。
func (s *chatService) writeDone(conn llm.MessageWriter, resp *model.ChatResponse) error {
	envelope, err := json.Marshal(streamEnvelope{Type: "done", Response: resp})
	if err != nil {
		return fmt.Errorf("failed to marshal done envelope: %w", err)
	}
	return conn.WriteMessage(websocket.TextMessage, envelope)
}

// recordExchange 把一轮完整交互落入会话历史，并投递审计事件。
// 请求已取消时跳过写入，避免记下客户端从未收到的回复。
func (s *chatService) recordExchange(ctx context.Context, sessionID, clientID, question string, resp *model.ChatResponse, lang string, searched bool) {
	if ctx.Err() != nil {
		return
	}

	now := time.Now()
	err := s.sessionRepo.AppendTurns(ctx, sessionID,
		model.ChatTurn{Role: "user", Content: question, Timestamp: now},
		model.ChatTurn{Role: "assistant", Content: resp.Response, Intent: resp.Type, Timestamp: now},
	)
	if err != nil {
		log.Errorf("写入会话历史失败: session=%s, err=%v", sessionID, err)
	}

	if s.publish == nil {
		return
	}
	event := tasks.ChatEventTask{
		EventID:      uuid.NewString(),
		SessionID:    sessionID,
		ClientID:     clientID,
		Question:     question,
		Answer:       resp.Response,
		ResponseType: resp.Type,
		Language:     lang,
		Searched:     searched,
		SourceCount:  len(resp.Sources),
		CreatedAt:    now,
	}
	if err := s.publish(event); err != nil {
		log.Errorf("投递对话审计事件失败: session=%s, err=%v", sessionID, err)
	}
}

// searchFailedResponse 构造搜索无结果时的降级回复。
func (s *chatService) searchFailedResponse(sessionID, lang string) *model.ChatResponse {
	return &model.ChatResponse{
		Response:    Template(TemplateSearchFailed, lang),
		Type:        model.ResponseTypeDirectAnswer,
		Sources:     []model.SourceRef{},
		Suggestions: []string{},
		SessionID:   sessionID,
		Timestamp:   model.ISOTime(time.Now()),
	}
}

// errorResponse 构造生成失败时的降级回复。
func (s *chatService) errorResponse(sessionID, lang string) *model.ChatResponse {
	return &model.ChatResponse{
		Response:    Template(TemplateError, lang),
		Type:        model.ResponseTypeDirectAnswer,
		Sources:     []model.SourceRef{},
		Suggestions: []string{},
		SessionID:   sessionID,
		Timestamp:   model.ISOTime(time.Now()),
	}
}

// buildMessages 组装发给生成服务的消息序列：系统提示 + 近期历史 + 当前消息。
func (s *chatService) buildMessages(sess *model.Session, req *model.ChatRequest, results []model.SearchResult, lang string) []llm.Message {
	var sb strings.Builder
	sb.WriteString("You are a professional career advisor and resume expert. ")
	sb.WriteString("Help the user improve their resume and answer career-related questions. ")
	sb.WriteString("Be specific, practical, and encouraging. Keep answers focused and concise.")

	if len(req.Context.ResumeData) > 0 {
		if data, err := json.Marshal(req.Context.ResumeData); err == nil {
			sb.WriteString("\n\nThe user's current resume data:\n")
			sb.Write(data)
		}
	}

	if len(results) > 0 {
		sb.WriteString("\n\nCurrent information from trusted web sources. Ground your answer in it and mention the sources where relevant:\n")
		for i, r := range results {
			sb.WriteString(fmt.Sprintf("[%d] %s (%s)\n%s\n", i+1, r.Title, r.URL, r.Content))
		}
	}

	if lang != "" && lang != "en" {
		sb.WriteString(fmt.Sprintf("\n\nRespond in the language with ISO 639-1 code %q.", lang))
	}

	messages := []llm.Message{{Role: "system", Content: sb.String()}}

	// 只携带最近几轮历史，控制上下文长度
	turns := sess.Turns
	if len(turns) > s.historyTurns {
		turns = turns[len(turns)-s.historyTurns:]
	}
	for _, turn := range turns {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}

	return append(messages, llm.Message{Role: "user", Content: req.Message})
}

// 建议提取的备选信号：包含行动词的较长句子。
var suggestionActionWords = []string{"should", "consider", "try", "recommend", "improve", "add"}

// extractSuggestions 从回复文本中提取至多三条可操作建议。
// 优先取列表项（-、•、* 或数字编号），找不到时退回含行动词的句子。
func extractSuggestions(answer string) []string {
	suggestions := []string{}
	for _, line := range strings.Split(answer, "\n") {
		line = strings.TrimSpace(line)
		item := listItem(line)
		if item != "" && len([]rune(item)) > 10 {
			suggestions = append(suggestions, item)
			if len(suggestions) >= maxSuggestions {
				return suggestions
			}
		}
	}
	if len(suggestions) > 0 {
		return suggestions
	}

	for _, sentence := range strings.Split(answer, ".") {
		sentence = strings.TrimSpace(sentence)
		if len([]rune(sentence)) <= 20 {
			continue
		}
		lower := strings.ToLower(sentence)
		for _, word := range suggestionActionWords {
			if strings.Contains(lower, word) {
				suggestions = append(suggestions, sentence)
				break
			}
		}
		if len(suggestions) >= maxSuggestions {
			break
		}
	}
	return suggestions
}

// listItem 剥离列表项前缀，非列表行返回空串。
func listItem(line string) string {
	for _, prefix := range []string{"- ", "• ", "* "} {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix))
		}
	}
	// 数字编号："1. xxx"、"12) xxx"
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		return strings.TrimSpace(line[i+1:])
	}
	return ""
}
