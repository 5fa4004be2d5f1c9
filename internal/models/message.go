package models

import (
	"bytes"
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

type MessageType string

const (
	MessageText     MessageType = "text"
	MessageImage    MessageType = "image"
	MessageEvent    MessageType = "event"
	MessageLocation MessageType = "location"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageImage, MessageEvent, MessageLocation:
		return true
	}
	return false
}

// ChatMessage неизменяемо после создания, кроме флага IsRead.
type ChatMessage struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	GroupID       uint            `gorm:"not null;index" json:"group_id"`
	UserID        uint            `gorm:"not null" json:"user_id"`
	Message       string          `gorm:"not null" json:"message"`
	SentAt        time.Time       `gorm:"not null;index" json:"sent_at"`
	IsRead        bool            `gorm:"default:false" json:"is_read"`
	MessageType   MessageType     `gorm:"default:'text'" json:"message_type"`
	AttachmentURL *string         `json:"attachment_url,omitempty"`
	ReferenceData json.RawMessage `gorm:"type:jsonb;serializer:json" json:"reference_data,omitempty"`
}

// AfterFind приводит jsonb null к отсутствию данных, как у сообщений в памяти.
func (m *ChatMessage) AfterFind(*gorm.DB) error {
	if bytes.Equal(bytes.TrimSpace(m.ReferenceData), []byte("null")) {
		m.ReferenceData = nil
	}
	return nil
}
