// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

import "time"

// ChatEventTask represents one answered chat exchange queued for audit logging.
type ChatEventTask struct {
	EventID      string    `json:"event_id"`
	SessionID    string    `json:"session_id"`
	ClientID     string    `json:"client_id"`
	Question     string    `json:"question"`
	Answer       string    `json:"answer"`
	ResponseType string    `json:"response_type"`
	Language     string    `json:"language"`
	Searched     bool      `json:"searched"`
	SourceCount  int       `json:"source_count"`
	CreatedAt    time.Time `json:"created_at"`
}
