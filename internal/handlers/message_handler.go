package handlers

import (
	"context"
	"errors"

	"github.com/thereayou/link/internal/coordination"
	"github.com/thereayou/link/internal/groups"
	"github.com/thereayou/link/internal/services"
	"github.com/thereayou/link/internal/websocket"
	"go.uber.org/zap"
)

// TokenVerifier возвращает id пользователя из токена.
type TokenVerifier interface {
	UserID(token string) (uint, error)
}

// MessageHandler разбирает входящие сообщения соединения и вызывает фасад.
// Сообщения одного соединения обрабатываются по очереди в ReadPump.
type MessageHandler struct {
	svc    *coordination.Service
	hub    *websocket.Hub
	tokens TokenVerifier
	log    *zap.Logger
}

// NewMessageHandler: tokens == nil означает, что auth принимает только user_id.
func NewMessageHandler(svc *coordination.Service, hub *websocket.Hub, tokens TokenVerifier, log *zap.Logger) *MessageHandler {
	return &MessageHandler{svc: svc, hub: hub, tokens: tokens, log: log}
}

func (h *MessageHandler) HandleMessage(ctx context.Context, client *websocket.Client, raw []byte) error {
	in, err := websocket.DecodeInbound(raw)
	if err != nil {
		return err
	}

	switch msg := in.(type) {
	case websocket.AuthRequest:
		return h.handleAuth(ctx, client, msg)
	case websocket.PongMessage:
		return nil
	}

	if !client.Authenticated() {
		return websocket.ErrNotAuthenticated
	}

	switch msg := in.(type) {
	case websocket.JoinGroupRequest:
		return h.handleJoin(ctx, client, msg)
	case websocket.LeaveGroupRequest:
		h.hub.LeaveGroup(client, msg.GroupID)
		return client.SendEvent(websocket.LeftGroup{}, msg.GroupID)
	case websocket.ChatRequest:
		_, err := h.svc.PostMessage(ctx, groups.PostMessageInput{
			GroupID:       msg.GroupID,
			SenderID:      client.UserID(),
			Text:          msg.Message,
			Type:          msg.MessageType,
			AttachmentURL: msg.AttachmentURL,
			ReferenceData: msg.ReferenceData,
		})
		return err
	case websocket.VoteRequest:
		_, _, err := h.svc.CastVote(ctx, msg.GroupID, client.UserID(), msg.EventID, msg.Vote)
		return err
	}
	return websocket.ErrUnknownType
}

func (h *MessageHandler) handleAuth(ctx context.Context, client *websocket.Client, req websocket.AuthRequest) error {
	if h.tokens != nil {
		uid, err := h.tokens.UserID(req.Token)
		if err != nil || uid != req.UserID {
			return h.authFailed(client, "invalid token")
		}
	}
	return h.Authenticate(ctx, client, req.UserID)
}

// Authenticate привязывает соединение к пользователю и отправляет auth_success
// и unread_count по каждой группе.
func (h *MessageHandler) Authenticate(ctx context.Context, client *websocket.Client, userID uint) error {
	user, userGroups, err := h.svc.Authenticate(ctx, userID)
	if errors.Is(err, services.ErrAuth) {
		return h.authFailed(client, "user not found")
	}
	if err != nil {
		return err
	}

	ids := make([]uint, 0, len(userGroups))
	summaries := make([]websocket.GroupSummary, 0, len(userGroups))
	for _, g := range userGroups {
		ids = append(ids, g.ID)
		summaries = append(summaries, websocket.GroupSummary{ID: g.ID, Name: g.Name})
	}
	h.hub.BindUser(client, user.ID)

	if err := client.SendEvent(websocket.AuthSuccess{UserID: user.ID, Groups: summaries}, 0); err != nil {
		return err
	}
	for _, gid := range ids {
		count, err := h.svc.UnreadCount(ctx, user.ID, gid)
		if err != nil {
			h.log.Warn("unread count failed", zap.Uint("group_id", gid), zap.Error(err))
			continue
		}
		_ = client.SendEvent(websocket.UnreadCount{Count: count}, gid)
	}

	h.log.Debug("client authenticated",
		zap.String("client_id", client.ID.String()),
		zap.Uint("user_id", user.ID),
	)
	return nil
}

// authFailed отправляет auth_error; соединение остается открытым без пользователя.
func (h *MessageHandler) authFailed(client *websocket.Client, reason string) error {
	h.hub.UnbindUser(client)
	_ = client.SendEvent(websocket.AuthError{Message: reason}, 0)
	return nil
}

func (h *MessageHandler) handleJoin(ctx context.Context, client *websocket.Client, req websocket.JoinGroupRequest) error {
	messages, err := h.svc.JoinGroup(ctx, client.UserID(), req.GroupID)
	if err != nil {
		return err
	}
	h.hub.JoinGroup(client, req.GroupID)
	return client.SendEvent(websocket.RecentMessages{Messages: messages}, req.GroupID)
}
