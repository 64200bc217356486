// Package pipeline 实现了对话审计事件的异步处理流程。
package pipeline

import (
	"context"
	"fmt"
	"resume-chat-go/internal/model"
	"resume-chat-go/internal/repository"
	"resume-chat-go/pkg/log"
	"resume-chat-go/pkg/tasks"
)

// Processor 消费对话审计事件并持久化为审计记录。
type Processor struct {
	chatLogRepo repository.ChatLogRepository
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(chatLogRepo repository.ChatLogRepository) *Processor {
	return &Processor{chatLogRepo: chatLogRepo}
}

// Process 将一条审计事件落库。返回错误时消息会由消费端按重试策略处理。
func (p *Processor) Process(ctx context.Context, event tasks.ChatEventTask) error {
	chatLog := &model.ChatLog{
		SessionID:    event.SessionID,
		ClientID:     event.ClientID,
		Question:     event.Question,
		Answer:       event.Answer,
		ResponseType: event.ResponseType,
		Language:     event.Language,
		Searched:     event.Searched,
		SourceCount:  event.SourceCount,
		CreatedAt:    event.CreatedAt,
	}

	if err := p.chatLogRepo.Save(ctx, chatLog); err != nil {
		return fmt.Errorf("failed to persist chat event %s: %w", event.EventID, err)
	}

	log.Infof("对话审计记录已落库: event=%s, session=%s", event.EventID, event.SessionID)
	return nil
}
