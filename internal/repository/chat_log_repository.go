package repository

import (
	"context"
	"fmt"
	"resume-chat-go/internal/model"
	"time"

	"gorm.io/gorm"
)

// ChatLogRepository 定义了对话审计记录的操作接口。
type ChatLogRepository interface {
	Save(ctx context.Context, chatLog *model.ChatLog) error
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	ListBySession(ctx context.Context, sessionID string, limit int) ([]model.ChatLog, error)
}

type chatLogRepository struct {
	db *gorm.DB
}

// NewChatLogRepository 创建一个新的 ChatLogRepository 实例。
func NewChatLogRepository(db *gorm.DB) ChatLogRepository {
	return &chatLogRepository{db: db}
}

// Save 持久化一条对话审计记录。
func (r *chatLogRepository) Save(ctx context.Context, chatLog *model.ChatLog) error {
	if err := r.db.WithContext(ctx).Create(chatLog).Error; err != nil {
		return fmt.Errorf("failed to save chat log: %w", err)
	}
	return nil
}

// PurgeOlderThan 删除 cutoff 之前的记录，返回删除数量。用于保留期清理。
func (r *chatLogRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&model.ChatLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge chat logs: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ListBySession 按时间倒序返回某会话最近的审计记录。
func (r *chatLogRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]model.ChatLog, error) {
	var logs []model.ChatLog
	query := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to list chat logs: %w", err)
	}
	return logs, nil
}
