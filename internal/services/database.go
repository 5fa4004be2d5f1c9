package services

import (
	"context"
	"time"

	"github.com/thereayou/link/internal/models"
)

// Все методы возвращают копии записей; ErrNotFound, если записи нет.

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uint) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateLastSeen(ctx context.Context, id uint) error
}

type EventRepository interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	GetEvent(ctx context.Context, id uint) (*models.Event, error)
	// ListEvents фильтрует по типу, пустой тип - все события.
	ListEvents(ctx context.Context, eventType models.EventType) ([]models.Event, error)
	UpdateEvent(ctx context.Context, event *models.Event) error
}

type ParticipantRepository interface {
	// CreateParticipant - ошибка валидации, если пользователь уже ответил на событие.
	CreateParticipant(ctx context.Context, participant *models.EventParticipant) error
	GetParticipant(ctx context.Context, id uint) (*models.EventParticipant, error)
	ListParticipants(ctx context.Context, eventID uint) ([]models.EventParticipant, error)
	ListUserParticipations(ctx context.Context, userID uint) ([]models.EventParticipant, error)
	UpdateParticipantStatus(ctx context.Context, id uint, status models.ParticipantStatus, at time.Time) (*models.EventParticipant, error)
}

type AvailabilityRepository interface {
	// ReplaceAvailability заменяет запись (user, date) целиком.
	ReplaceAvailability(ctx context.Context, a *models.Availability) error
	ListUserAvailability(ctx context.Context, userID uint) ([]models.Availability, error)
	ListAvailabilityOn(ctx context.Context, date time.Time) ([]models.Availability, error)
}

type GroupRepository interface {
	// CreateGroup атомарно создает группу и членство администратора.
	CreateGroup(ctx context.Context, group *models.Group, admin *models.GroupMember) error
	GetGroup(ctx context.Context, id uint) (*models.Group, error)
	// AddMember создает активное членство и увеличивает MemberCount группы.
	AddMember(ctx context.Context, member *models.GroupMember) error
	// DeactivateMember переводит активное членство в неактивное и уменьшает MemberCount.
	DeactivateMember(ctx context.Context, groupID, userID uint, at time.Time) error
	GetActiveMembership(ctx context.Context, groupID, userID uint) (*models.GroupMember, error)
	ListActiveMembers(ctx context.Context, groupID uint) ([]models.GroupMember, error)
	ListUserGroups(ctx context.Context, userID uint) ([]models.Group, error)
}

type MessageRepository interface {
	SaveMessage(ctx context.Context, message *models.ChatMessage) error
	// ListGroupMessages возвращает сообщения от новых к старым.
	ListGroupMessages(ctx context.Context, groupID uint, limit, offset int) ([]models.ChatMessage, error)
	MarkGroupMessagesRead(ctx context.Context, groupID uint) (int64, error)
	CountUnread(ctx context.Context, groupID, excludeUserID uint) (int64, error)
}

type VoteRepository interface {
	SaveVote(ctx context.Context, vote *models.EventVote) error
	// ListVotes возвращает историю голосов в порядке подачи.
	ListVotes(ctx context.Context, groupID, eventID uint) ([]models.EventVote, error)
}

// DatabaseService - хранилище, которое нужно ядру координации.
type DatabaseService interface {
	UserRepository
	EventRepository
	ParticipantRepository
	AvailabilityRepository
	GroupRepository
	MessageRepository
	VoteRepository
}
