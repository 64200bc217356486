package model

import "time"

// ChatLog 代表持久化到 MySQL 的单条对话审计记录。
type ChatLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SessionID    string    `gorm:"index;size:64;not null" json:"sessionId"`
	ClientID     string    `gorm:"index;size:64" json:"clientId"`
	Question     string    `gorm:"type:text;not null" json:"question"`
	Answer       string    `gorm:"type:text;not null" json:"answer"`
	ResponseType string    `gorm:"size:32" json:"responseType"`
	Language     string    `gorm:"size:8" json:"language"`
	Searched     bool      `json:"searched"`
	SourceCount  int       `json:"sourceCount"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}

func (ChatLog) TableName() string {
	return "chat_logs"
}
