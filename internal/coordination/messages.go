package coordination

import (
	"context"
	"errors"
	"fmt"

	"github.com/thereayou/link/internal/groups"
	"github.com/thereayou/link/internal/models"
	"github.com/thereayou/link/internal/services"
	"github.com/thereayou/link/internal/websocket"
	"go.uber.org/zap"
)

// Authenticate проверяет пользователя realtime-соединения и возвращает его активные группы.
func (s *Service) Authenticate(ctx context.Context, userID uint) (*models.User, []models.Group, error) {
	user, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, services.ErrNotFound) {
		return nil, nil, fmt.Errorf("unknown user %d: %w", userID, services.ErrAuth)
	}
	if err != nil {
		return nil, nil, err
	}
	userGroups, err := s.groups.UserGroups(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.store.UpdateLastSeen(ctx, userID); err != nil {
		s.log.Warn("failed to update last seen", zap.Uint("user_id", userID), zap.Error(err))
	}
	return user, userGroups, nil
}

// JoinGroup перепроверяет членство, помечает сообщения группы прочитанными
// и возвращает последние из них (от новых к старым).
func (s *Service) JoinGroup(ctx context.Context, userID, groupID uint) ([]models.ChatMessage, error) {
	return s.readMessages(ctx, groupID, userID, RecentMessagesLimit, 0)
}

func (s *Service) UnreadCount(ctx context.Context, userID, groupID uint) (int64, error) {
	return s.groups.UnreadCount(ctx, userID, groupID)
}

// PostMessage сохраняет сообщение и рассылает new_message подключенным к группе соединениям.
func (s *Service) PostMessage(ctx context.Context, in groups.PostMessageInput) (*models.ChatMessage, error) {
	msg, err := s.groups.PostMessage(ctx, in)
	if err != nil {
		return nil, err
	}
	if s.hub != nil {
		s.hub.BroadcastToGroup(msg.GroupID, websocket.NewMessage{Message: *msg})
	}
	return msg, nil
}

// ListMessages доступен только активным участникам. Как и join, опрос истории
// помечает сообщения группы прочитанными.
func (s *Service) ListMessages(ctx context.Context, groupID, actorID uint, limit, offset int) ([]models.ChatMessage, error) {
	return s.readMessages(ctx, groupID, actorID, limit, offset)
}

// readMessages помечает сообщения прочитанными до выборки, чтобы ответ совпадал с хранилищем.
func (s *Service) readMessages(ctx context.Context, groupID, userID uint, limit, offset int) ([]models.ChatMessage, error) {
	if _, err := s.groups.MarkRead(ctx, userID, groupID); err != nil {
		return nil, err
	}
	messages, err := s.groups.ListMessages(ctx, groupID, limit, offset)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	return messages, nil
}

// CastVote сохраняет голос, пересчитывает итог и рассылает vote_update.
func (s *Service) CastVote(ctx context.Context, groupID, voterID, eventID uint, vote models.VoteValue) (*models.EventVote, models.VoteCounts, error) {
	v, err := s.groups.CastVote(ctx, groupID, voterID, eventID, vote)
	if err != nil {
		return nil, models.VoteCounts{}, err
	}
	counts, err := s.groups.Tally(ctx, groupID, eventID)
	if err != nil {
		return nil, models.VoteCounts{}, err
	}
	if s.hub != nil {
		s.hub.BroadcastToGroup(groupID, websocket.VoteUpdate{
			EventID:    eventID,
			VoteCounts: counts,
			Vote:       websocket.VoteInfo{UserID: voterID, Vote: v.Vote},
		})
	}
	return v, counts, nil
}

func (s *Service) Tally(ctx context.Context, groupID, actorID, eventID uint) (models.VoteCounts, error) {
	if err := s.groups.RequireMember(ctx, groupID, actorID); err != nil {
		return models.VoteCounts{}, err
	}
	return s.groups.Tally(ctx, groupID, eventID)
}

func (s *Service) Votes(ctx context.Context, groupID, actorID, eventID uint) ([]models.EventVote, error) {
	if err := s.groups.RequireMember(ctx, groupID, actorID); err != nil {
		return nil, err
	}
	return s.groups.Votes(ctx, groupID, eventID)
}
