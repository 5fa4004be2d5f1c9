package coordination

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/thereayou/link/internal/models"
	"github.com/thereayou/link/internal/services"
)

func checkStatus(status models.ParticipantStatus) error {
	if !status.Valid() {
		return services.Invalid("status", fmt.Sprintf("status must be going, pending or declined, got %q", status))
	}
	return nil
}

// RespondToEvent записывает ответ пользователя на событие. Пустой статус означает going.
func (s *Service) RespondToEvent(ctx context.Context, userID, eventID uint, status models.ParticipantStatus) (*models.EventParticipant, error) {
	if status == "" {
		status = models.ParticipantGoing
	}
	if err := checkStatus(status); err != nil {
		return nil, err
	}
	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	if _, err := s.getUser(ctx, userID); err != nil {
		return nil, err
	}

	p := &models.EventParticipant{EventID: eventID, UserID: userID, Status: status, ResponseDate: s.now()}
	if err := s.store.CreateParticipant(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) EventParticipants(ctx context.Context, eventID uint) ([]models.EventParticipant, error) {
	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.store.ListParticipants(ctx, eventID)
}

// UpdateParticipation меняет статус ответа. Менять можно только свой ответ.
func (s *Service) UpdateParticipation(ctx context.Context, actorID, participantID uint, status models.ParticipantStatus) (*models.EventParticipant, error) {
	if err := checkStatus(status); err != nil {
		return nil, err
	}
	p, err := s.store.GetParticipant(ctx, participantID)
	if errors.Is(err, services.ErrNotFound) {
		return nil, fmt.Errorf("participant %d: %w", participantID, services.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if p.UserID != actorID {
		return nil, fmt.Errorf("participant %d belongs to another user: %w", participantID, services.ErrForbidden)
	}
	return s.store.UpdateParticipantStatus(ctx, participantID, status, s.now())
}

// UserEvents - события, которые пользователь проводит или на которые идет.
func (s *Service) UserEvents(ctx context.Context, userID uint) ([]models.Event, error) {
	if _, err := s.getUser(ctx, userID); err != nil {
		return nil, err
	}
	going, err := s.store.ListUserParticipations(ctx, userID)
	if err != nil {
		return nil, err
	}
	attending := make(map[uint]bool, len(going))
	for _, p := range going {
		if p.Status == models.ParticipantGoing {
			attending[p.EventID] = true
		}
	}

	all, err := s.store.ListEvents(ctx, "")
	if err != nil {
		return nil, err
	}
	out := make([]models.Event, 0)
	for _, ev := range all {
		if ev.HostID == userID || attending[ev.ID] {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
