package availability

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/thereayou/link/internal/models"
	"github.com/thereayou/link/internal/services"
)

type Service struct {
	repo services.AvailabilityRepository
	now  func() time.Time
}

func NewService(repo services.AvailabilityRepository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// ParseDate принимает YYYY-MM-DD или RFC3339 и возвращает нормализованную дату.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, services.Invalid("date", "is required")
	}
	if t, err := time.Parse(models.DateLayout, raw); err == nil {
		return models.NormalizeDate(t), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return models.NormalizeDate(t), nil
	}
	return time.Time{}, services.Invalid("date", fmt.Sprintf("%q is not a valid date", raw))
}

// ParseTimeslots проверяет метки, убирает дубликаты и сортирует в каноническом порядке.
func ParseTimeslots(raw []string) ([]models.Timeslot, error) {
	if len(raw) == 0 {
		return nil, services.Invalid("timeslots", "at least one timeslot is required")
	}
	seen := make(map[models.Timeslot]bool, len(raw))
	out := make([]models.Timeslot, 0, len(raw))
	for _, r := range raw {
		slot := models.Timeslot(strings.TrimSpace(r))
		if !slot.Valid() {
			return nil, services.Invalid("timeslots", fmt.Sprintf("unknown timeslot %q", r))
		}
		if seen[slot] {
			continue
		}
		seen[slot] = true
		out = append(out, slot)
	}
	sortCanonical(out)
	return out, nil
}

// SetAvailability заменяет слоты пользователя на дату.
func (s *Service) SetAvailability(ctx context.Context, userID uint, date time.Time, timeslots []string) (*models.Availability, error) {
	if userID == 0 {
		return nil, services.Invalid("user_id", "is required")
	}
	if date.IsZero() {
		return nil, services.Invalid("date", "is required")
	}
	slots, err := ParseTimeslots(timeslots)
	if err != nil {
		return nil, err
	}

	record := &models.Availability{
		UserID:    userID,
		Date:      models.NormalizeDate(date),
		Timeslots: slots,
		UpdatedAt: s.now(),
	}
	if err := s.repo.ReplaceAvailability(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// GetAvailability возвращает все записи пользователя по возрастанию даты.
func (s *Service) GetAvailability(ctx context.Context, userID uint) ([]models.Availability, error) {
	records, err := s.repo.ListUserAvailability(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})
	return records, nil
}

// UsersAvailableOn - пользователи с непустой записью на дату, без повторов, по возрастанию id.
func (s *Service) UsersAvailableOn(ctx context.Context, date time.Time) ([]uint, error) {
	records, err := s.repo.ListAvailabilityOn(ctx, models.NormalizeDate(date))
	if err != nil {
		return nil, err
	}
	seen := make(map[uint]bool, len(records))
	ids := make([]uint, 0, len(records))
	for _, r := range records {
		if len(r.Timeslots) == 0 || seen[r.UserID] {
			continue
		}
		seen[r.UserID] = true
		ids = append(ids, r.UserID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// MutualSlots ищет слоты на дату, общие для всех ответивших пользователей.
// Пользователи без записи не ограничивают пересечение. Если пересечение пустое,
// возвращаются слоты, которые есть хотя бы у ceil(n/2) из n запрошенных.
func (s *Service) MutualSlots(ctx context.Context, userIDs []uint, date time.Time) ([]models.Timeslot, error) {
	queried := dedupe(userIDs)
	if len(queried) == 0 {
		return nil, services.Invalid("user_ids", "at least one user is required")
	}

	records, err := s.repo.ListAvailabilityOn(ctx, models.NormalizeDate(date))
	if err != nil {
		return nil, err
	}

	wanted := make(map[uint]bool, len(queried))
	for _, id := range queried {
		wanted[id] = true
	}
	bySlot := make(map[models.Timeslot]map[uint]bool)
	respondents := make(map[uint]bool)
	for _, r := range records {
		if !wanted[r.UserID] || len(r.Timeslots) == 0 {
			continue
		}
		respondents[r.UserID] = true
		for _, slot := range r.Timeslots {
			if bySlot[slot] == nil {
				bySlot[slot] = make(map[uint]bool)
			}
			bySlot[slot][r.UserID] = true
		}
	}
	if len(respondents) == 0 {
		return []models.Timeslot{}, nil
	}

	mutual := slotsWithAtLeast(bySlot, len(respondents))
	if len(mutual) > 0 {
		return mutual, nil
	}
	threshold := (len(queried) + 1) / 2
	return slotsWithAtLeast(bySlot, threshold), nil
}

func slotsWithAtLeast(bySlot map[models.Timeslot]map[uint]bool, n int) []models.Timeslot {
	out := make([]models.Timeslot, 0, len(bySlot))
	for slot, users := range bySlot {
		if len(users) >= n {
			out = append(out, slot)
		}
	}
	sortCanonical(out)
	return out
}

func sortCanonical(slots []models.Timeslot) {
	sort.Slice(slots, func(i, j int) bool { return slots[i].Rank() < slots[j].Rank() })
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
