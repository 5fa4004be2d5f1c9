package coordination

import (
	"context"

	"github.com/thereayou/link/internal/groups"
	"github.com/thereayou/link/internal/models"
	"github.com/thereayou/link/internal/websocket"
	"go.uber.org/zap"
)

func (s *Service) CreateGroup(ctx context.Context, in groups.CreateGroupInput) (*models.Group, error) {
	return s.groups.CreateGroup(ctx, in)
}

func (s *Service) GetGroup(ctx context.Context, groupID, actorID uint) (*models.Group, error) {
	if err := s.groups.RequireMember(ctx, groupID, actorID); err != nil {
		return nil, err
	}
	return s.groups.Group(ctx, groupID)
}

// AddMember добавляет участника и уведомляет его живые соединения.
func (s *Service) AddMember(ctx context.Context, groupID, actorID, userID uint, role models.GroupRole) (*models.GroupMember, error) {
	member, err := s.groups.AddMember(ctx, groupID, actorID, userID, role)
	if err != nil {
		return nil, err
	}
	if s.hub == nil {
		return member, nil
	}
	group, err := s.groups.Group(ctx, groupID)
	if err != nil {
		s.log.Warn("member added but group reload failed", zap.Uint("group_id", groupID), zap.Error(err))
		return member, nil
	}
	s.hub.NotifyUser(userID, websocket.GroupMemberAdded{Group: *group})
	return member, nil
}

// RemoveMember деактивирует членство и выводит соединения пользователя из группы,
// чтобы бывший участник перестал получать ее события.
func (s *Service) RemoveMember(ctx context.Context, groupID, actorID, userID uint) error {
	if err := s.groups.RemoveMember(ctx, groupID, actorID, userID); err != nil {
		return err
	}
	evicted := 0
	if s.hub != nil {
		evicted = s.hub.EvictFromGroup(userID, groupID)
	}
	s.log.Debug("member removed",
		zap.Uint("group_id", groupID),
		zap.Uint("user_id", userID),
		zap.Uint("actor_id", actorID),
		zap.Int("evicted_connections", evicted),
	)
	return nil
}

// GroupPresence - кто из участников подключен и чьи соединения открыли чат группы.
type GroupPresence struct {
	Online []uint `json:"online"`
	InChat []uint `json:"in_chat"`
}

func (s *Service) Presence(ctx context.Context, groupID, actorID uint) (GroupPresence, error) {
	if err := s.groups.RequireMember(ctx, groupID, actorID); err != nil {
		return GroupPresence{}, err
	}
	presence := GroupPresence{Online: []uint{}, InChat: []uint{}}
	if s.hub == nil {
		return presence, nil
	}
	ids, err := s.groups.MemberIDs(ctx, groupID)
	if err != nil {
		return GroupPresence{}, err
	}
	members := make(map[uint]bool, len(ids))
	for _, id := range ids {
		members[id] = true
	}
	for _, uid := range s.hub.OnlineUsers() {
		if members[uid] {
			presence.Online = append(presence.Online, uid)
		}
	}
	for _, uid := range s.hub.GroupUsers(groupID) {
		if members[uid] {
			presence.InChat = append(presence.InChat, uid)
		}
	}
	return presence, nil
}

func (s *Service) Members(ctx context.Context, groupID, actorID uint) ([]models.GroupMember, error) {
	return s.groups.Members(ctx, groupID, actorID)
}

func (s *Service) UserGroups(ctx context.Context, userID uint) ([]models.Group, error) {
	return s.groups.UserGroups(ctx, userID)
}
