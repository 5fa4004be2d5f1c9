package coordination

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/thereayou/link/internal/geo"
	"github.com/thereayou/link/internal/matching"
	"github.com/thereayou/link/internal/models"
	"github.com/thereayou/link/internal/services"
)

// CreateEvent проверяет и сохраняет событие. Без тегов теги запрашиваются у оракула.
// Групповое событие требует членства хоста и получает общий слот, если он не задан.
func (s *Service) CreateEvent(ctx context.Context, hostID uint, event models.Event) (*models.Event, error) {
	event.ID = 0
	event.HostID = hostID
	event.Title = strings.TrimSpace(event.Title)
	if event.Tags != nil {
		event.Tags = cleanList(event.Tags)
	}

	if err := validateEvent(&event); err != nil {
		return nil, err
	}
	if _, err := s.getUser(ctx, hostID); err != nil {
		return nil, err
	}

	event.Normalize()

	if event.IsGroupEvent {
		if err := s.groups.RequireMember(ctx, *event.GroupID, hostID); err != nil {
			return nil, err
		}
		if event.MutualTimeSlot == nil {
			slot, err := s.SuggestGroupTime(ctx, *event.GroupID, hostID, s.now(), DefaultSuggestDays)
			if err != nil {
				return nil, err
			}
			event.MutualTimeSlot = &slot
		}
	}

	if len(event.Tags) == 0 {
		event.Tags = s.engine.SuggestTags(ctx, matching.TagRequest{
			Title:       event.Title,
			Description: event.Description,
			Type:        event.Type,
		})
	}
	event.CreatedAt = s.now()

	if err := s.store.CreateEvent(ctx, &event); err != nil {
		return nil, err
	}
	host := &models.EventParticipant{EventID: event.ID, UserID: hostID, Status: models.ParticipantGoing, ResponseDate: s.now()}
	if err := s.store.CreateParticipant(ctx, host); err != nil {
		return nil, fmt.Errorf("add host to event %d: %w", event.ID, err)
	}
	return &event, nil
}

// validateEvent проверяет событие целиком, одинаково при создании и изменении.
func validateEvent(event *models.Event) error {
	vErr := &services.ValidationError{}
	if event.Title == "" {
		vErr.Add("title", "is required")
	}
	if !event.Type.Valid() {
		vErr.Add("type", "must be social or networking")
	}
	if event.Date.IsZero() {
		vErr.Add("date", "is required")
	}
	if event.MaxAttendees != nil && *event.MaxAttendees <= 0 {
		vErr.Add("max_attendees", "must be positive")
	}
	if event.RadiusMeters != nil && *event.RadiusMeters < 0 {
		vErr.Add("radius", "must not be negative")
	}
	if (event.Latitude == nil) != (event.Longitude == nil) {
		vErr.Add("location", "latitude and longitude must be set together")
	}
	if event.IsGroupEvent && (event.GroupID == nil || *event.GroupID == 0) {
		vErr.Add("group_id", "is required for group events")
	}
	if event.MutualTimeSlot != nil {
		if _, err := time.Parse(models.DateLayout, event.MutualTimeSlot.Date); err != nil {
			vErr.Add("mutual_time_slot", "date must be YYYY-MM-DD")
		} else if !models.Timeslot(event.MutualTimeSlot.TimeSlot).Valid() {
			vErr.Add("mutual_time_slot", fmt.Sprintf("unknown timeslot %q", event.MutualTimeSlot.TimeSlot))
		}
	}
	return vErr.OrNil()
}

// EventPatch - изменяемые поля события. Тип, хост и привязка к группе не меняются.
type EventPatch struct {
	Title              *string
	Description        *string
	Date               *time.Time
	Location           *string
	ImageURL           *string
	Category           *string
	MaxAttendees       *int
	FriendGroupID      *string
	Tags               *[]string
	InterestCategories *[]string
	RequiredSkills     *[]string
	CareerFocus        *string
	Latitude           *float64
	Longitude          *float64
	RadiusMeters       *int
	MutualTimeSlot     *models.SlotSuggestion
}

// UpdateEvent меняет переданные поля. Изменять событие может только его хост.
func (s *Service) UpdateEvent(ctx context.Context, actorID, eventID uint, patch EventPatch) (*models.Event, error) {
	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.HostID != actorID {
		return nil, fmt.Errorf("user %d is not the host of event %d: %w", actorID, eventID, services.ErrForbidden)
	}

	if patch.Title != nil {
		event.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		event.Description = *patch.Description
	}
	if patch.Date != nil {
		event.Date = *patch.Date
	}
	if patch.Location != nil {
		event.Location = *patch.Location
	}
	if patch.ImageURL != nil {
		event.ImageURL = *patch.ImageURL
	}
	if patch.Category != nil {
		event.Category = *patch.Category
	}
	if patch.MaxAttendees != nil {
		event.MaxAttendees = patch.MaxAttendees
	}
	if patch.FriendGroupID != nil {
		event.FriendGroupID = patch.FriendGroupID
	}
	if patch.Tags != nil {
		event.Tags = cleanList(*patch.Tags)
	}
	if patch.InterestCategories != nil {
		event.InterestCategories = cleanList(*patch.InterestCategories)
	}
	if patch.RequiredSkills != nil {
		event.RequiredSkills = cleanList(*patch.RequiredSkills)
	}
	if patch.CareerFocus != nil {
		event.CareerFocus = patch.CareerFocus
	}
	if patch.Latitude != nil {
		event.Latitude = patch.Latitude
	}
	if patch.Longitude != nil {
		event.Longitude = patch.Longitude
	}
	if patch.RadiusMeters != nil {
		event.RadiusMeters = patch.RadiusMeters
	}
	if patch.MutualTimeSlot != nil {
		event.MutualTimeSlot = patch.MutualTimeSlot
	}

	if err := validateEvent(event); err != nil {
		return nil, err
	}
	event.Normalize()

	if err := s.store.UpdateEvent(ctx, event); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return nil, fmt.Errorf("event %d: %w", eventID, services.ErrNotFound)
		}
		return nil, err
	}
	return event, nil
}

func (s *Service) GetEvent(ctx context.Context, id uint) (*models.Event, error) {
	ev, err := s.store.GetEvent(ctx, id)
	if errors.Is(err, services.ErrNotFound) {
		return nil, fmt.Errorf("event %d: %w", id, services.ErrNotFound)
	}
	return ev, err
}

// ListEvents фильтрует по типу, пустой тип - все события.
func (s *Service) ListEvents(ctx context.Context, eventType models.EventType) ([]models.Event, error) {
	if eventType != "" && !eventType.Valid() {
		return nil, services.Invalid("type", "must be social or networking")
	}
	return s.store.ListEvents(ctx, eventType)
}

func (s *Service) EventsNearby(ctx context.Context, lat, lon, radiusKm float64) ([]models.Event, error) {
	if err := checkCenter(lat, lon); err != nil {
		return nil, err
	}
	km, err := radiusOrDefault(radiusKm)
	if err != nil {
		return nil, err
	}
	events, err := s.store.ListEvents(ctx, "")
	if err != nil {
		return nil, err
	}
	return geo.WithinRadius(lat, lon, km, events), nil
}

// EventMatches - пользователи, подходящие событию; хост исключается.
func (s *Service) EventMatches(ctx context.Context, eventID uint) ([]models.User, error) {
	ev, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	all, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	candidates := make([]models.User, 0, len(all))
	for _, u := range all {
		if u.ID != ev.HostID {
			candidates = append(candidates, u)
		}
	}
	return s.engine.RankUsersForEvent(ctx, *ev, candidates), nil
}

// RecommendEvents - события для пользователя, кроме тех, что он проводит сам.
func (s *Service) RecommendEvents(ctx context.Context, userID uint) ([]models.Event, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	all, err := s.store.ListEvents(ctx, "")
	if err != nil {
		return nil, err
	}
	candidates := make([]models.Event, 0, len(all))
	for _, ev := range all {
		if ev.HostID != userID {
			candidates = append(candidates, ev)
		}
	}
	return s.engine.RankEventsForUser(ctx, *user, candidates), nil
}

func (s *Service) SuggestTags(ctx context.Context, req matching.TagRequest) ([]string, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, services.Invalid("title", "is required")
	}
	return s.engine.SuggestTags(ctx, req), nil
}
