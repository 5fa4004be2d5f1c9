package coordination

import (
	"context"
	"time"

	"github.com/thereayou/link/internal/availability"
	"github.com/thereayou/link/internal/matching"
	"github.com/thereayou/link/internal/models"
	"github.com/thereayou/link/internal/services"
)

func (s *Service) SetAvailability(ctx context.Context, userID uint, rawDate string, timeslots []string) (*models.Availability, error) {
	date, err := availability.ParseDate(rawDate)
	if err != nil {
		return nil, err
	}
	return s.availability.SetAvailability(ctx, userID, date, timeslots)
}

func (s *Service) GetAvailability(ctx context.Context, userID uint) ([]models.Availability, error) {
	if _, err := s.getUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.availability.GetAvailability(ctx, userID)
}

func (s *Service) UsersAvailableOn(ctx context.Context, rawDate string) ([]uint, error) {
	date, err := availability.ParseDate(rawDate)
	if err != nil {
		return nil, err
	}
	return s.availability.UsersAvailableOn(ctx, date)
}

func (s *Service) MutualSlots(ctx context.Context, userIDs []uint, rawDate string) ([]models.Timeslot, error) {
	date, err := availability.ParseDate(rawDate)
	if err != nil {
		return nil, err
	}
	return s.availability.MutualSlots(ctx, userIDs, date)
}

// MutualTime предлагает дату и слот по явно переданной доступности.
func (s *Service) MutualTime(ctx context.Context, in []matching.UserAvailability) models.SlotSuggestion {
	return s.engine.MutualTimeSlotAcrossUsers(ctx, in)
}

// SuggestGroupTime собирает доступность активных участников за days дней начиная с from.
func (s *Service) SuggestGroupTime(ctx context.Context, groupID, actorID uint, from time.Time, days int) (models.SlotSuggestion, error) {
	if days < 0 {
		return models.SlotSuggestion{}, services.Invalid("days", "must not be negative")
	}
	if days == 0 {
		days = DefaultSuggestDays
	}
	if err := s.groups.RequireMember(ctx, groupID, actorID); err != nil {
		return models.SlotSuggestion{}, err
	}
	memberIDs, err := s.groups.MemberIDs(ctx, groupID)
	if err != nil {
		return models.SlotSuggestion{}, err
	}

	start := models.NormalizeDate(from)
	end := start.AddDate(0, 0, days)

	var window []models.Availability
	for _, uid := range memberIDs {
		records, err := s.availability.GetAvailability(ctx, uid)
		if err != nil {
			return models.SlotSuggestion{}, err
		}
		for _, r := range records {
			if !r.Date.Before(start) && r.Date.Before(end) {
				window = append(window, r)
			}
		}
	}
	return s.engine.MutualTimeSlotAcrossUsers(ctx, matching.FromRecords(window)), nil
}
