package matching

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/thereayou/link/internal/geo"
	"github.com/thereayou/link/internal/models"
	"github.com/thereayou/link/internal/services"
	"go.uber.org/zap"
)

const (
	DefaultOracleTimeout = 8 * time.Second

	userOracleThreshold  = 0.4
	eventOracleThreshold = 0.5
	maxTags              = 7
)

// Engine ранжирует пользователей и события. Оракул необязателен.
type Engine struct {
	oracle  Oracle
	timeout time.Duration
	log     *zap.Logger
	now     func() time.Time
}

type Option func(*Engine)

func WithOracle(o Oracle) Option {
	return func(e *Engine) { e.oracle = o }
}

func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(log *zap.Logger, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		timeout: DefaultOracleTimeout,
		log:     log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type scoredUser struct {
	user  models.User
	score int
}

func sortUsers(list []scoredUser) []models.User {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].score != list[j].score {
			return list[i].score > list[j].score
		}
		return list[i].user.ID < list[j].user.ID
	})
	out := make([]models.User, 0, len(list))
	for _, s := range list {
		out = append(out, s.user)
	}
	return out
}

func uniqueUsers(users []models.User, skip uint) []models.User {
	seen := make(map[uint]bool, len(users))
	out := make([]models.User, 0, len(users))
	for _, u := range users {
		if u.ID == skip || seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		out = append(out, u)
	}
	return out
}

// RankUsersForEvent фильтрует кандидатов по навыкам, интересам и радиусу события
// и сортирует по убыванию оценки.
func (e *Engine) RankUsersForEvent(ctx context.Context, event models.Event, candidates []models.User) []models.User {
	users := uniqueUsers(candidates, 0)
	if lat, lon, ok := event.Coordinates(); ok {
		if km, ok := event.RadiusKm(); ok {
			users = geo.WithinRadius(lat, lon, km, users)
		}
	}

	scored := make([]scoredUser, 0, len(users))
	for _, u := range users {
		if !qualifies(u, event) {
			continue
		}
		scored = append(scored, scoredUser{user: u, score: EventScore(u, event)})
	}
	fallback := sortUsers(scored)
	if len(fallback) == 0 {
		return fallback
	}

	ranked, ok := e.rank(ctx, RankRequest{Kind: RankUsersForEvent, Event: &event, Users: fallback})
	if !ok {
		return fallback
	}
	if out := pickByID(ranked, fallback, userOracleThreshold, func(u models.User) uint { return u.ID }); len(out) > 0 {
		return out
	}
	return fallback
}

// RankUsersForUser упорядочивает остальных пользователей по совместимости с user.
func (e *Engine) RankUsersForUser(ctx context.Context, user models.User, candidates []models.User) []models.User {
	users := uniqueUsers(candidates, user.ID)
	scored := make([]scoredUser, 0, len(users))
	for _, u := range users {
		scored = append(scored, scoredUser{user: u, score: CompatibilityScore(user, u)})
	}
	fallback := sortUsers(scored)
	if len(fallback) == 0 {
		return fallback
	}

	ranked, ok := e.rank(ctx, RankRequest{Kind: RankUsersForUser, User: &user, Users: fallback})
	if !ok {
		return fallback
	}
	if out := pickByID(ranked, fallback, userOracleThreshold, func(u models.User) uint { return u.ID }); len(out) > 0 {
		return out
	}
	return fallback
}

// RankEventsForUser - зеркальное ранжирование событий для пользователя.
func (e *Engine) RankEventsForUser(ctx context.Context, user models.User, candidates []models.Event) []models.Event {
	type scoredEvent struct {
		event models.Event
		score int
	}

	seen := make(map[uint]bool, len(candidates))
	scored := make([]scoredEvent, 0, len(candidates))
	for _, ev := range candidates {
		if seen[ev.ID] || !qualifies(user, ev) {
			continue
		}
		seen[ev.ID] = true
		scored = append(scored, scoredEvent{event: ev, score: EventScore(user, ev)})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].event.ID < scored[j].event.ID
	})
	fallback := make([]models.Event, 0, len(scored))
	for _, s := range scored {
		fallback = append(fallback, s.event)
	}
	if len(fallback) == 0 {
		return fallback
	}

	ranked, ok := e.rank(ctx, RankRequest{Kind: RankEventsForUser, User: &user, Events: fallback})
	if !ok {
		return fallback
	}
	if out := pickByID(ranked, fallback, eventOracleThreshold, func(ev models.Event) uint { return ev.ID }); len(out) > 0 {
		return out
	}
	return fallback
}

// rank вызывает оракул с ограничением по времени. ok=false, если оракула нет или он не ответил.
func (e *Engine) rank(ctx context.Context, req RankRequest) ([]RankedCandidate, bool) {
	if e.oracle == nil {
		return nil, false
	}
	ranked, err := bounded(ctx, e.timeout, func(ctx context.Context) ([]RankedCandidate, error) {
		return e.oracle.Rank(ctx, req)
	})
	if err != nil {
		e.oracleFailed("rank", err, zap.String("kind", string(req.Kind)))
		return nil, false
	}
	return ranked, true
}

// bounded ждет ответа оракула не дольше timeout, даже если оракул не слушает ctx.
// Опоздавший ответ выбрасывается.
func bounded[T any](ctx context.Context, timeout time.Duration, call func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := call(ctx)
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("%w: %v", services.ErrOracleUnavailable, ctx.Err())
	}
}

func (e *Engine) oracleFailed(op string, err error, fields ...zap.Field) {
	fields = append(fields,
		zap.String("op", op),
		zap.String("error_kind", services.ErrorKind(services.ErrOracleUnavailable)),
		zap.Error(err),
	)
	e.log.Warn("oracle unavailable, using deterministic fallback", fields...)
}

// pickByID возвращает кандидатов в порядке убывания оценки оракула, оставляя
// только оценки выше порога. Неизвестные и повторные id пропускаются.
func pickByID[T any](ranked []RankedCandidate, candidates []T, threshold float64, id func(T) uint) []T {
	byID := make(map[uint]T, len(candidates))
	for _, c := range candidates {
		byID[id(c)] = c
	}
	sorted := make([]RankedCandidate, len(ranked))
	copy(sorted, ranked)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	seen := make(map[uint]bool, len(sorted))
	out := make([]T, 0, len(sorted))
	for _, r := range sorted {
		if r.Score <= threshold || seen[r.ID] {
			continue
		}
		c, ok := byID[r.ID]
		if !ok {
			continue
		}
		seen[r.ID] = true
		out = append(out, c)
	}
	return out
}

// SuggestTags просит оракул подобрать теги. При ошибке возвращается пустой список.
func (e *Engine) SuggestTags(ctx context.Context, req TagRequest) []string {
	if e.oracle == nil {
		return []string{}
	}
	tags, err := bounded(ctx, e.timeout, func(ctx context.Context) ([]string, error) {
		return e.oracle.SuggestTags(ctx, req)
	})
	if err != nil {
		e.oracleFailed("suggest_tags", err)
		return []string{}
	}

	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if len(out) == maxTags {
			break
		}
	}
	return out
}

// MutualTimeSlotAcrossUsers предлагает дату и слот для группы. Сначала спрашивается оракул,
// при любой ошибке или некорректном ответе используется частотный подсчет.
func (e *Engine) MutualTimeSlotAcrossUsers(ctx context.Context, availabilities []UserAvailability) models.SlotSuggestion {
	if e.oracle != nil && len(availabilities) > 0 {
		slot, err := bounded(ctx, e.timeout, func(ctx context.Context) (models.SlotSuggestion, error) {
			return e.oracle.SuggestMutualSlot(ctx, availabilities)
		})
		if err == nil {
			err = validSuggestion(slot)
		}
		if err == nil {
			return slot
		}
		e.oracleFailed("suggest_mutual_slot", err)
	}
	return MutualTimeSlotFallback(availabilities, e.now())
}

func validSuggestion(s models.SlotSuggestion) error {
	if _, err := time.Parse(models.DateLayout, s.Date); err != nil {
		return fmt.Errorf("malformed date %q: %w", s.Date, err)
	}
	if !models.Timeslot(s.TimeSlot).Valid() {
		return fmt.Errorf("unknown timeslot %q", s.TimeSlot)
	}
	return nil
}

// MutualTimeSlotFallback выбирает пару (дата, слот), встречающуюся чаще всего.
// При равенстве побеждает пара, встреченная раньше.
func MutualTimeSlotFallback(availabilities []UserAvailability, now time.Time) models.SlotSuggestion {
	counts := make(map[models.SlotSuggestion]int)
	order := make([]models.SlotSuggestion, 0)
	for _, ua := range availabilities {
		for _, d := range ua.Dates {
			for _, s := range ua.TimeSlots {
				key := models.SlotSuggestion{Date: d, TimeSlot: s}
				if _, ok := counts[key]; !ok {
					order = append(order, key)
				}
				counts[key]++
			}
		}
	}

	best, bestCount := models.SlotSuggestion{}, 0
	for _, key := range order {
		if counts[key] > bestCount {
			best, bestCount = key, counts[key]
		}
	}
	if bestCount > 0 {
		return best
	}

	if len(availabilities) > 0 && len(availabilities[0].Dates) > 0 {
		first := availabilities[0]
		slot := string(models.SlotEvening)
		if len(first.TimeSlots) > 0 {
			slot = first.TimeSlots[0]
		}
		return models.SlotSuggestion{Date: first.Dates[0], TimeSlot: slot}
	}

	return models.SlotSuggestion{
		Date:     now.UTC().Format(models.DateLayout),
		TimeSlot: string(models.SlotEvening),
	}
}
