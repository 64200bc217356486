package service

import (
	"context"
	"fmt"
	"resume-chat-go/internal/model"
	"resume-chat-go/internal/repository"
)

// 会话摘要中返回的最近轮次数量。
const summaryRecentTurns = 5

// SessionService 提供会话摘要与清空操作。
type SessionService interface {
	// Summarize 返回会话的只读摘要，不会刷新会话活跃时间。
	// 会话不存在或已过期时返回零值摘要而非错误。
	Summarize(ctx context.Context, sessionID string) (*model.SessionSummary, error)
	// Clear 清空会话历史，保留会话标识。
	Clear(ctx context.Context, sessionID string) (bool, error)
}

type sessionService struct {
	sessionRepo repository.SessionRepository
}

// NewSessionService 创建一个新的 SessionService 实例。
func NewSessionService(sessionRepo repository.SessionRepository) SessionService {
	return &sessionService{sessionRepo: sessionRepo}
}

func (s *sessionService) Summarize(ctx context.Context, sessionID string) (*model.SessionSummary, error) {
	sess, err := s.sessionRepo.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if sess == nil {
		return &model.SessionSummary{SessionID: sessionID}, nil
	}

	summary := &model.SessionSummary{
		SessionID:         sess.ID,
		TotalTurns:        len(sess.Turns),
		Language:          sess.Language,
		ConversationStart: model.NewISOTime(sess.CreatedAt),
		LastActivity:      model.NewISOTime(sess.LastActivity),
		TopicsDiscussed:   distinctIntents(sess.Turns),
	}

	start := len(sess.Turns) - summaryRecentTurns
	if start < 0 {
		start = 0
	}
	summary.RecentTurns = append(summary.RecentTurns, sess.Turns[start:]...)
	return summary, nil
}

func (s *sessionService) Clear(ctx context.Context, sessionID string) (bool, error) {
	sess, err := s.sessionRepo.Get(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to load session: %w", err)
	}
	if err := s.sessionRepo.Clear(ctx, sessionID); err != nil {
		return false, fmt.Errorf("failed to clear session: %w", err)
	}
	return sess != nil && len(sess.Turns) > 0, nil
}

// distinctIntents 按出现顺序去重提取轮次意图。
func distinctIntents(turns []model.ChatTurn) []string {
	seen := make(map[string]bool)
	var topics []string
	for _, turn := range turns {
		if turn.Intent == "" || seen[turn.Intent] {
			continue
		}
		seen[turn.Intent] = true
		topics = append(topics, turn.Intent)
	}
	return topics
}
