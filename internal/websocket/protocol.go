package websocket

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/thereayou/link/internal/models"
)

// MessageType определяет типы сообщений
type MessageType string

const (
	// Системные типы
	TypePing  MessageType = "ping"
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"

	// Входящие
	TypeAuth        MessageType = "auth"
	TypeJoinGroup   MessageType = "join_group"
	TypeLeaveGroup  MessageType = "leave_group"
	TypeChatMessage MessageType = "chat_message"
	TypeEventVote   MessageType = "event_vote"

	// Исходящие
	TypeAuthSuccess      MessageType = "auth_success"
	TypeAuthError        MessageType = "auth_error"
	TypeUnreadCount      MessageType = "unread_count"
	TypeRecentMessages   MessageType = "recent_messages"
	TypeLeftGroup        MessageType = "left_group"
	TypeNewMessage       MessageType = "new_message"
	TypeVoteUpdate       MessageType = "vote_update"
	TypeGroupMemberAdded MessageType = "group_member_added"
)

// Message - конверт для обоих направлений.
type Message struct {
	Type      MessageType     `json:"type"`
	GroupID   *uint           `json:"group_id,omitempty"`
	UserID    *uint           `json:"user_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Inbound - закрытое множество входящих сообщений.
type Inbound interface {
	inbound()
}

type AuthRequest struct {
	UserID uint   `json:"user_id"`
	Token  string `json:"token,omitempty"`
}

type JoinGroupRequest struct {
	GroupID uint
}

type LeaveGroupRequest struct {
	GroupID uint
}

type ChatRequest struct {
	GroupID       uint               `json:"-"`
	Message       string             `json:"message"`
	MessageType   models.MessageType `json:"message_type,omitempty"`
	AttachmentURL *string            `json:"attachment_url,omitempty"`
	ReferenceData json.RawMessage    `json:"reference_data,omitempty"`
}

type VoteRequest struct {
	GroupID uint             `json:"-"`
	EventID uint             `json:"event_id"`
	Vote    models.VoteValue `json:"vote"`
}

type PongMessage struct{}

func (AuthRequest) inbound()       {}
func (JoinGroupRequest) inbound()  {}
func (LeaveGroupRequest) inbound() {}
func (ChatRequest) inbound()       {}
func (VoteRequest) inbound()       {}
func (PongMessage) inbound()       {}

// DecodeInbound разбирает кадр клиента в один из вариантов Inbound.
func DecodeInbound(raw []byte) (Inbound, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	groupID := func() (uint, error) {
		if msg.GroupID == nil || *msg.GroupID == 0 {
			return 0, fmt.Errorf("%w: group_id is required for %s", ErrInvalidMessage, msg.Type)
		}
		return *msg.GroupID, nil
	}
	decodeData := func(v any) error {
		if len(msg.Data) == 0 {
			return fmt.Errorf("%w: data is required for %s", ErrInvalidMessage, msg.Type)
		}
		if err := json.Unmarshal(msg.Data, v); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		return nil
	}

	switch msg.Type {
	case TypeAuth:
		var req AuthRequest
		if err := decodeData(&req); err != nil {
			return nil, err
		}
		if req.UserID == 0 {
			return nil, fmt.Errorf("%w: user_id is required", ErrInvalidMessage)
		}
		return req, nil

	case TypeJoinGroup:
		gid, err := groupID()
		if err != nil {
			return nil, err
		}
		return JoinGroupRequest{GroupID: gid}, nil

	case TypeLeaveGroup:
		gid, err := groupID()
		if err != nil {
			return nil, err
		}
		return LeaveGroupRequest{GroupID: gid}, nil

	case TypeChatMessage:
		gid, err := groupID()
		if err != nil {
			return nil, err
		}
		var req ChatRequest
		if err := decodeData(&req); err != nil {
			return nil, err
		}
		if strings.TrimSpace(req.Message) == "" {
			return nil, fmt.Errorf("%w: message is required", ErrInvalidMessage)
		}
		req.GroupID = gid
		return req, nil

	case TypeEventVote:
		gid, err := groupID()
		if err != nil {
			return nil, err
		}
		var req VoteRequest
		if err := decodeData(&req); err != nil {
			return nil, err
		}
		if req.EventID == 0 {
			return nil, fmt.Errorf("%w: event_id is required", ErrInvalidMessage)
		}
		req.GroupID = gid
		return req, nil

	case TypePong:
		return PongMessage{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, msg.Type)
}

// Event - исходящее событие; тип задает поле type конверта.
type Event interface {
	Type() MessageType
}

type GroupSummary struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type AuthSuccess struct {
	UserID uint           `json:"user_id"`
	Groups []GroupSummary `json:"groups"`
}

type AuthError struct {
	Message string `json:"message"`
}

type UnreadCount struct {
	Count int64 `json:"count"`
}

type RecentMessages struct {
	Messages []models.ChatMessage `json:"messages"`
}

type LeftGroup struct{}

type NewMessage struct {
	Message models.ChatMessage `json:"message"`
}

type VoteInfo struct {
	UserID uint             `json:"user_id"`
	Vote   models.VoteValue `json:"vote"`
}

type VoteUpdate struct {
	EventID    uint              `json:"event_id"`
	VoteCounts models.VoteCounts `json:"vote_counts"`
	Vote       VoteInfo          `json:"vote"`
}

type GroupMemberAdded struct {
	Group models.Group `json:"group"`
}

type ErrorEvent struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type Ping struct{}

func (AuthSuccess) Type() MessageType      { return TypeAuthSuccess }
func (AuthError) Type() MessageType        { return TypeAuthError }
func (UnreadCount) Type() MessageType      { return TypeUnreadCount }
func (RecentMessages) Type() MessageType   { return TypeRecentMessages }
func (LeftGroup) Type() MessageType        { return TypeLeftGroup }
func (NewMessage) Type() MessageType       { return TypeNewMessage }
func (VoteUpdate) Type() MessageType       { return TypeVoteUpdate }
func (GroupMemberAdded) Type() MessageType { return TypeGroupMemberAdded }
func (ErrorEvent) Type() MessageType       { return TypeError }
func (Ping) Type() MessageType             { return TypePing }

// Encode упаковывает событие в конверт. groupID и userID равные 0 не выводятся.
func Encode(ev Event, groupID, userID uint) ([]byte, error) {
	msg := Message{
		Type:      ev.Type(),
		Timestamp: time.Now().UTC(),
	}
	if groupID != 0 {
		msg.GroupID = &groupID
	}
	if userID != 0 {
		msg.UserID = &userID
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	msg.Data = data
	return json.Marshal(msg)
}
