// Package coordination - точка входа для HTTP и realtime слоев. Собирает доступность,
// сопоставление, группы и рассылку событий.
package coordination

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/thereayou/link/internal/availability"
	"github.com/thereayou/link/internal/geo"
	"github.com/thereayou/link/internal/groups"
	"github.com/thereayou/link/internal/matching"
	"github.com/thereayou/link/internal/models"
	"github.com/thereayou/link/internal/services"
	"github.com/thereayou/link/internal/websocket"
	"go.uber.org/zap"
)

const (
	DefaultNearbyRadiusKm = 10.0
	RecentMessagesLimit   = 50
	DefaultSuggestDays    = 14
)

// Broadcaster доставляет события живым соединениям и знает, кто сейчас подключен.
type Broadcaster interface {
	BroadcastToGroup(groupID uint, ev websocket.Event) int
	NotifyUser(userID uint, ev websocket.Event) int
	EvictFromGroup(userID, groupID uint) int
	OnlineUsers() []uint
	GroupUsers(groupID uint) []uint
}

type Service struct {
	store        services.DatabaseService
	availability *availability.Service
	engine       *matching.Engine
	groups       *groups.Coordinator
	hub          Broadcaster
	log          *zap.Logger
	now          func() time.Time
}

func New(store services.DatabaseService, engine *matching.Engine, hub Broadcaster, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:        store,
		availability: availability.NewService(store),
		engine:       engine,
		groups:       groups.NewCoordinator(store),
		hub:          hub,
		log:          log,
		now:          time.Now,
	}
}

// WithClock подменяет часы фасада и координатора групп.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	s.groups.WithClock(now)
	return s
}

func (s *Service) Groups() *groups.Coordinator {
	return s.groups
}

func (s *Service) getUser(ctx context.Context, id uint) (*models.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if errors.Is(err, services.ErrNotFound) {
		return nil, fmt.Errorf("user %d: %w", id, services.ErrNotFound)
	}
	return u, err
}

// Пользователи

func (s *Service) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.getUser(ctx, id)
}

type ProfileUpdate struct {
	FullName   *string
	Bio        *string
	Profession *string
	AvatarURL  *string
	Interests  *[]string
	Skills     *[]string
	CareerPath *string
	Latitude   *float64
	Longitude  *float64
	Timezone   *string
}

// UpdateProfile меняет только переданные поля. Пустой careerPath сбрасывает его.
func (s *Service) UpdateProfile(ctx context.Context, userID uint, in ProfileUpdate) (*models.User, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.FullName != nil {
		user.FullName = strings.TrimSpace(*in.FullName)
	}
	if in.Bio != nil {
		user.Bio = *in.Bio
	}
	if in.Profession != nil {
		user.Profession = strings.TrimSpace(*in.Profession)
	}
	if in.AvatarURL != nil {
		user.AvatarURL = *in.AvatarURL
	}
	if in.Interests != nil {
		user.Interests = cleanList(*in.Interests)
	}
	if in.Skills != nil {
		user.Skills = cleanList(*in.Skills)
	}
	if in.CareerPath != nil {
		if cp := strings.TrimSpace(*in.CareerPath); cp != "" {
			user.CareerPath = &cp
		} else {
			user.CareerPath = nil
		}
	}
	if in.Timezone != nil {
		if _, err := time.LoadLocation(*in.Timezone); err != nil {
			return nil, services.Invalid("timezone", fmt.Sprintf("unknown timezone %q", *in.Timezone))
		}
		user.Timezone = *in.Timezone
	}
	if (in.Latitude == nil) != (in.Longitude == nil) {
		return nil, services.Invalid("location", "latitude and longitude must be set together")
	}
	if in.Latitude != nil {
		if *in.Latitude < -90 || *in.Latitude > 90 || *in.Longitude < -180 || *in.Longitude > 180 {
			return nil, services.Invalid("location", "coordinates out of range")
		}
		lat, lon := *in.Latitude, *in.Longitude
		user.Latitude, user.Longitude = &lat, &lon
	}

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func cleanList(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}

func radiusOrDefault(km float64) (float64, error) {
	if km < 0 {
		return 0, services.Invalid("radius", "must not be negative")
	}
	if km == 0 {
		return DefaultNearbyRadiusKm, nil
	}
	return km, nil
}

func checkCenter(lat, lon float64) error {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return services.Invalid("location", "coordinates out of range")
	}
	return nil
}

// UsersNearby - пользователи в радиусе, по умолчанию 10 км.
func (s *Service) UsersNearby(ctx context.Context, lat, lon, radiusKm float64) ([]models.User, error) {
	if err := checkCenter(lat, lon); err != nil {
		return nil, err
	}
	km, err := radiusOrDefault(radiusKm)
	if err != nil {
		return nil, err
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	return geo.WithinRadius(lat, lon, km, users), nil
}

// Compatibility - детерминированная оценка двух пользователей.
func (s *Service) Compatibility(ctx context.Context, userID, otherID uint) (int, error) {
	a, err := s.getUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	b, err := s.getUser(ctx, otherID)
	if err != nil {
		return 0, err
	}
	return matching.CompatibilityScore(*a, *b), nil
}

// MatchUsers ранжирует остальных пользователей для userID.
func (s *Service) MatchUsers(ctx context.Context, userID uint) ([]models.User, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	all, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine.RankUsersForUser(ctx, *user, all), nil
}
