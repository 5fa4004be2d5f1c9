package matching

import (
	"context"

	"github.com/thereayou/link/internal/models"
)

type RankKind string

const (
	RankUsersForUser  RankKind = "users_for_user"
	RankUsersForEvent RankKind = "users_for_event"
	RankEventsForUser RankKind = "events_for_user"
)

// RankRequest - контекст для внешнего ранжирования. Заполнены User или Event
// и соответствующий список кандидатов.
type RankRequest struct {
	Kind   RankKind
	User   *models.User
	Event  *models.Event
	Users  []models.User
	Events []models.Event
}

// RankedCandidate - id кандидата и оценка оракула в [0,1].
type RankedCandidate struct {
	ID    uint
	Score float64
}

type TagRequest struct {
	Title       string
	Description string
	Type        models.EventType
}

// UserAvailability - даты и слоты одного пользователя (декартово произведение).
type UserAvailability struct {
	UserID    uint     `json:"userId"`
	Dates     []string `json:"dates"`
	TimeSlots []string `json:"timeSlots"`
}

// Oracle - внешний семантический ранжировщик. Любой вызов может завершиться ошибкой,
// движок в этом случае использует детерминированный результат.
type Oracle interface {
	Rank(ctx context.Context, req RankRequest) ([]RankedCandidate, error)
	SuggestTags(ctx context.Context, req TagRequest) ([]string, error)
	SuggestMutualSlot(ctx context.Context, availabilities []UserAvailability) (models.SlotSuggestion, error)
}

// FromRecords превращает записи доступности в вход для MutualTimeSlotAcrossUsers,
// по одному элементу на запись.
func FromRecords(records []models.Availability) []UserAvailability {
	out := make([]UserAvailability, 0, len(records))
	for _, r := range records {
		slots := make([]string, 0, len(r.Timeslots))
		for _, s := range r.Timeslots {
			slots = append(slots, string(s))
		}
		out = append(out, UserAvailability{
			UserID:    r.UserID,
			Dates:     []string{r.DateKey()},
			TimeSlots: slots,
		})
	}
	return out
}
