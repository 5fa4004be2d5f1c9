// Package groups управляет членством, сообщениями и голосованием внутри групп.
// Членство проверяется заново при каждом действии.
package groups

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/thereayou/link/internal/models"
	"github.com/thereayou/link/internal/services"
)

const DefaultMessageLimit = 50

type Store interface {
	services.UserRepository
	services.EventRepository
	services.GroupRepository
	services.MessageRepository
	services.VoteRepository
}

type Coordinator struct {
	store Store
	now   func() time.Time
}

func NewCoordinator(store Store) *Coordinator {
	return &Coordinator{store: store, now: time.Now}
}

// WithClock подменяет часы, используется в тестах.
func (c *Coordinator) WithClock(now func() time.Time) *Coordinator {
	c.now = now
	return c
}

func (c *Coordinator) getGroup(ctx context.Context, groupID uint) (*models.Group, error) {
	g, err := c.store.GetGroup(ctx, groupID)
	if errors.Is(err, services.ErrNotFound) {
		return nil, fmt.Errorf("group %d: %w", groupID, services.ErrNotFound)
	}
	return g, err
}

func (c *Coordinator) requireUser(ctx context.Context, userID uint) error {
	_, err := c.store.GetUser(ctx, userID)
	if errors.Is(err, services.ErrNotFound) {
		return fmt.Errorf("user %d: %w", userID, services.ErrNotFound)
	}
	return err
}

// membership возвращает активное членство или ErrForbidden. Несуществующая группа - ErrNotFound.
func (c *Coordinator) membership(ctx context.Context, groupID, userID uint) (*models.GroupMember, error) {
	if _, err := c.getGroup(ctx, groupID); err != nil {
		return nil, err
	}
	m, err := c.store.GetActiveMembership(ctx, groupID, userID)
	if errors.Is(err, services.ErrNotFound) {
		return nil, fmt.Errorf("user %d is not a member of group %d: %w", userID, groupID, services.ErrForbidden)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

type CreateGroupInput struct {
	CreatorID   uint
	Name        string
	Description *string
	Type        models.GroupType
	ImageURL    string
}

// CreateGroup создает группу, создатель становится администратором.
func (c *Coordinator) CreateGroup(ctx context.Context, in CreateGroupInput) (*models.Group, error) {
	vErr := &services.ValidationError{}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		vErr.Add("name", "is required")
	}
	if in.Type == "" {
		in.Type = models.GroupSocial
	}
	if !in.Type.Valid() {
		vErr.Add("type", fmt.Sprintf("unknown group type %q", in.Type))
	}
	if vErr.HasErrors() {
		return nil, vErr
	}
	if err := c.requireUser(ctx, in.CreatorID); err != nil {
		return nil, err
	}

	now := c.now()
	group := &models.Group{
		Name:        name,
		Description: in.Description,
		CreatedBy:   in.CreatorID,
		ImageURL:    in.ImageURL,
		Type:        in.Type,
		IsActive:    true,
		CreatedAt:   now,
	}
	admin := &models.GroupMember{
		UserID:   in.CreatorID,
		Role:     models.RoleAdmin,
		IsActive: true,
		JoinedAt: now,
	}
	if err := c.store.CreateGroup(ctx, group, admin); err != nil {
		return nil, err
	}
	return group, nil
}

// AddMember добавляет пользователя. Добавлять может только активный администратор.
func (c *Coordinator) AddMember(ctx context.Context, groupID, actorID, userID uint, role models.GroupRole) (*models.GroupMember, error) {
	if role == "" {
		role = models.RoleMember
	}
	if !role.Valid() {
		return nil, services.Invalid("role", fmt.Sprintf("unknown role %q", role))
	}

	actor, err := c.membership(ctx, groupID, actorID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin {
		return nil, fmt.Errorf("user %d is not an admin of group %d: %w", actorID, groupID, services.ErrForbidden)
	}
	if err := c.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	member := &models.GroupMember{
		GroupID:  groupID,
		UserID:   userID,
		Role:     role,
		IsActive: true,
		JoinedAt: c.now(),
	}
	if err := c.store.AddMember(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

// RemoveMember деактивирует членство. Пользователь может выйти сам, удалить другого может администратор.
func (c *Coordinator) RemoveMember(ctx context.Context, groupID, actorID, userID uint) error {
	actor, err := c.membership(ctx, groupID, actorID)
	if err != nil {
		return err
	}
	if actorID != userID && actor.Role != models.RoleAdmin {
		return fmt.Errorf("user %d may not remove members of group %d: %w", actorID, groupID, services.ErrForbidden)
	}
	err = c.store.DeactivateMember(ctx, groupID, userID, c.now())
	if errors.Is(err, services.ErrNotFound) {
		return fmt.Errorf("membership of user %d in group %d: %w", userID, groupID, services.ErrNotFound)
	}
	return err
}

// RequireMember - ErrNotFound для неизвестной группы, ErrForbidden для неучастника.
func (c *Coordinator) RequireMember(ctx context.Context, groupID, userID uint) error {
	_, err := c.membership(ctx, groupID, userID)
	return err
}

func (c *Coordinator) IsMember(ctx context.Context, groupID, userID uint) (bool, error) {
	_, err := c.store.GetActiveMembership(ctx, groupID, userID)
	if errors.Is(err, services.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *Coordinator) Group(ctx context.Context, groupID uint) (*models.Group, error) {
	return c.getGroup(ctx, groupID)
}

// Members возвращает активных участников; список видят только участники.
func (c *Coordinator) Members(ctx context.Context, groupID, actorID uint) ([]models.GroupMember, error) {
	if _, err := c.membership(ctx, groupID, actorID); err != nil {
		return nil, err
	}
	return c.store.ListActiveMembers(ctx, groupID)
}

// MemberIDs - id активных участников без проверки прав.
func (c *Coordinator) MemberIDs(ctx context.Context, groupID uint) ([]uint, error) {
	members, err := c.store.ListActiveMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	return ids, nil
}

func (c *Coordinator) UserGroups(ctx context.Context, userID uint) ([]models.Group, error) {
	return c.store.ListUserGroups(ctx, userID)
}

type PostMessageInput struct {
	GroupID       uint
	SenderID      uint
	Text          string
	Type          models.MessageType
	AttachmentURL *string
	ReferenceData json.RawMessage
}

// PostMessage сохраняет сообщение от активного участника. Повторная отправка создает новое сообщение.
func (c *Coordinator) PostMessage(ctx context.Context, in PostMessageInput) (*models.ChatMessage, error) {
	vErr := &services.ValidationError{}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		vErr.Add("message", "is required")
	}
	if in.Type == "" {
		in.Type = models.MessageText
	}
	if !in.Type.Valid() {
		vErr.Add("message_type", fmt.Sprintf("unknown message type %q", in.Type))
	}
	// JSON null хранится как отсутствие данных, иначе он переживает только хранилище в памяти.
	if raw := bytes.TrimSpace(in.ReferenceData); len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		in.ReferenceData = nil
	}
	if len(in.ReferenceData) > 0 && !json.Valid(in.ReferenceData) {
		vErr.Add("reference_data", "must be valid JSON")
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	if _, err := c.membership(ctx, in.GroupID, in.SenderID); err != nil {
		return nil, err
	}

	msg := &models.ChatMessage{
		GroupID:       in.GroupID,
		UserID:        in.SenderID,
		Message:       text,
		SentAt:        c.now(),
		IsRead:        false,
		MessageType:   in.Type,
		AttachmentURL: in.AttachmentURL,
		ReferenceData: in.ReferenceData,
	}
	if err := c.store.SaveMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// ListMessages - сообщения от новых к старым. limit <= 0 означает DefaultMessageLimit.
func (c *Coordinator) ListMessages(ctx context.Context, groupID uint, limit, offset int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	if offset < 0 {
		offset = 0
	}
	if _, err := c.getGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return c.store.ListGroupMessages(ctx, groupID, limit, offset)
}

// MarkRead помечает прочитанными все непрочитанные сообщения группы.
func (c *Coordinator) MarkRead(ctx context.Context, userID, groupID uint) (int64, error) {
	if _, err := c.membership(ctx, groupID, userID); err != nil {
		return 0, err
	}
	return c.store.MarkGroupMessagesRead(ctx, groupID)
}

// UnreadCount - непрочитанные сообщения группы, написанные не самим пользователем.
func (c *Coordinator) UnreadCount(ctx context.Context, userID, groupID uint) (int64, error) {
	return c.store.CountUnread(ctx, groupID, userID)
}

// CastVote сохраняет голос. Более поздний голос того же пользователя заменяет прежний при подсчете.
func (c *Coordinator) CastVote(ctx context.Context, groupID, voterID, eventID uint, vote models.VoteValue) (*models.EventVote, error) {
	if !vote.Valid() {
		return nil, services.Invalid("vote", fmt.Sprintf("vote must be yes, no or maybe, got %q", vote))
	}
	if _, err := c.membership(ctx, groupID, voterID); err != nil {
		return nil, err
	}
	if _, err := c.store.GetEvent(ctx, eventID); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return nil, fmt.Errorf("event %d: %w", eventID, services.ErrNotFound)
		}
		return nil, err
	}

	v := &models.EventVote{
		GroupID: groupID,
		UserID:  voterID,
		EventID: eventID,
		Vote:    vote,
		VotedAt: c.now(),
	}
	if err := c.store.SaveVote(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Votes - история голосов в порядке подачи.
func (c *Coordinator) Votes(ctx context.Context, groupID, eventID uint) ([]models.EventVote, error) {
	votes, err := c.store.ListVotes(ctx, groupID, eventID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(votes, func(i, j int) bool {
		if !votes[i].VotedAt.Equal(votes[j].VotedAt) {
			return votes[i].VotedAt.Before(votes[j].VotedAt)
		}
		return votes[i].ID < votes[j].ID
	})
	return votes, nil
}

// Tally считает только последний голос каждого пользователя.
func (c *Coordinator) Tally(ctx context.Context, groupID, eventID uint) (models.VoteCounts, error) {
	votes, err := c.Votes(ctx, groupID, eventID)
	if err != nil {
		return models.VoteCounts{}, err
	}
	return Tally(votes), nil
}

// Tally сводит историю, упорядоченную по времени подачи.
func Tally(history []models.EventVote) models.VoteCounts {
	latest := make(map[uint]models.VoteValue, len(history))
	for _, v := range history {
		latest[v.UserID] = v.Vote
	}
	var counts models.VoteCounts
	for _, v := range latest {
		switch v {
		case models.VoteYes:
			counts.Yes++
		case models.VoteNo:
			counts.No++
		case models.VoteMaybe:
			counts.Maybe++
		}
	}
	return counts
}
