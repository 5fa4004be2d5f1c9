// Package memstore - хранилище в памяти с атомарными генераторами id.
// Наружу отдаются только копии записей.
package memstore

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/thereayou/link/internal/models"
	"github.com/thereayou/link/internal/services"
)

type idGen struct {
	n atomic.Uint64
}

func (g *idGen) next() uint {
	return uint(g.n.Add(1))
}

type Store struct {
	mu sync.RWMutex

	users        map[uint]models.User
	events       map[uint]models.Event
	participants map[uint]models.EventParticipant
	availability map[uint]models.Availability
	groups       map[uint]models.Group
	members      map[uint]models.GroupMember
	messages     map[uint]models.ChatMessage
	votes        map[uint]models.EventVote

	userIDs, eventIDs, participantIDs, availabilityIDs, groupIDs, memberIDs, messageIDs, voteIDs idGen

	now func() time.Time
}

var _ services.DatabaseService = (*Store)(nil)

func New() *Store {
	return &Store{
		users:        make(map[uint]models.User),
		events:       make(map[uint]models.Event),
		participants: make(map[uint]models.EventParticipant),
		availability: make(map[uint]models.Availability),
		groups:       make(map[uint]models.Group),
		members:      make(map[uint]models.GroupMember),
		messages:     make(map[uint]models.ChatMessage),
		votes:        make(map[uint]models.EventVote),
		now:          time.Now,
	}
}

// Users

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return services.Invalid("email", "is already registered")
		}
		if u.Username == user.Username {
			return services.Invalid("username", "is already taken")
		}
	}
	user.ID = s.userIDs.next()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	s.users[user.ID] = cloneUser(*user)
	return nil
}

func (s *Store) GetUser(_ context.Context, id uint) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	c := cloneUser(u)
	return &c, nil
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			c := cloneUser(u)
			return &c, nil
		}
	}
	return nil, services.ErrNotFound
}

func (s *Store) UpdateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return services.ErrNotFound
	}
	s.users[user.ID] = cloneUser(*user)
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateLastSeen(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return services.ErrNotFound
	}
	u.LastSeenAt = s.now()
	s.users[id] = u
	return nil
}

// Events

func (s *Store) CreateEvent(_ context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event.ID = s.eventIDs.next()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}
	s.events[event.ID] = cloneEvent(*event)
	return nil
}

func (s *Store) GetEvent(_ context.Context, id uint) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	c := cloneEvent(e)
	return &c, nil
}

func (s *Store) ListEvents(_ context.Context, eventType models.EventType) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Event, 0, len(s.events))
	for _, e := range s.events {
		if eventType != "" && e.Type != eventType {
			continue
		}
		out = append(out, cloneEvent(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateEvent(_ context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[event.ID]; !ok {
		return services.ErrNotFound
	}
	s.events[event.ID] = cloneEvent(*event)
	return nil
}

// Participants

func (s *Store) CreateParticipant(_ context.Context, participant *models.EventParticipant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.participants {
		if p.EventID == participant.EventID && p.UserID == participant.UserID {
			return services.Invalid("event_id", "user has already responded to this event")
		}
	}
	participant.ID = s.participantIDs.next()
	if participant.ResponseDate.IsZero() {
		participant.ResponseDate = s.now()
	}
	s.participants[participant.ID] = *participant
	return nil
}

func (s *Store) GetParticipant(_ context.Context, id uint) (*models.EventParticipant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.participants[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	return &p, nil
}

func (s *Store) ListParticipants(_ context.Context, eventID uint) ([]models.EventParticipant, error) {
	return s.filterParticipants(func(p models.EventParticipant) bool { return p.EventID == eventID }), nil
}

func (s *Store) ListUserParticipations(_ context.Context, userID uint) ([]models.EventParticipant, error) {
	return s.filterParticipants(func(p models.EventParticipant) bool { return p.UserID == userID }), nil
}

func (s *Store) filterParticipants(keep func(models.EventParticipant) bool) []models.EventParticipant {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.EventParticipant, 0)
	for _, p := range s.participants {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) UpdateParticipantStatus(_ context.Context, id uint, status models.ParticipantStatus, at time.Time) (*models.EventParticipant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	p.Status = status
	p.ResponseDate = at
	s.participants[id] = p
	return &p, nil
}

// Availability

func (s *Store) ReplaceAvailability(_ context.Context, a *models.Availability) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.availability {
		if existing.UserID == a.UserID && existing.Date.Equal(a.Date) {
			a.ID = id
			s.availability[id] = cloneAvailability(*a)
			return nil
		}
	}
	a.ID = s.availabilityIDs.next()
	s.availability[a.ID] = cloneAvailability(*a)
	return nil
}

func (s *Store) ListUserAvailability(_ context.Context, userID uint) ([]models.Availability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Availability, 0)
	for _, a := range s.availability {
		if a.UserID == userID {
			out = append(out, cloneAvailability(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) ListAvailabilityOn(_ context.Context, date time.Time) ([]models.Availability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Availability, 0)
	for _, a := range s.availability {
		if a.Date.Equal(date) {
			out = append(out, cloneAvailability(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Groups

func (s *Store) CreateGroup(_ context.Context, group *models.Group, admin *models.GroupMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	group.ID = s.groupIDs.next()
	if group.CreatedAt.IsZero() {
		group.CreatedAt = s.now()
	}
	group.MemberCount = 1
	s.groups[group.ID] = cloneGroup(*group)

	admin.ID = s.memberIDs.next()
	admin.GroupID = group.ID
	s.members[admin.ID] = *admin
	return nil
}

func (s *Store) GetGroup(_ context.Context, id uint) (*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	c := cloneGroup(g)
	return &c, nil
}

func (s *Store) AddMember(_ context.Context, member *models.GroupMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[member.GroupID]
	if !ok {
		return services.ErrNotFound
	}
	if _, active := s.activeMembershipLocked(member.GroupID, member.UserID); active {
		return services.Invalid("user_id", "is already an active member")
	}
	member.ID = s.memberIDs.next()
	s.members[member.ID] = *member

	g.MemberCount++
	s.groups[g.ID] = g
	return nil
}

func (s *Store) DeactivateMember(_ context.Context, groupID, userID uint, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.activeMembershipLocked(groupID, userID)
	if !ok {
		return services.ErrNotFound
	}
	m.IsActive = false
	left := at
	m.LeftAt = &left
	s.members[m.ID] = m

	if g, ok := s.groups[groupID]; ok && g.MemberCount > 0 {
		g.MemberCount--
		s.groups[groupID] = g
	}
	return nil
}

func (s *Store) GetActiveMembership(_ context.Context, groupID, userID uint) (*models.GroupMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.activeMembershipLocked(groupID, userID)
	if !ok {
		return nil, services.ErrNotFound
	}
	return &m, nil
}

func (s *Store) activeMembershipLocked(groupID, userID uint) (models.GroupMember, bool) {
	for _, m := range s.members {
		if m.GroupID == groupID && m.UserID == userID && m.IsActive {
			return m, true
		}
	}
	return models.GroupMember{}, false
}

func (s *Store) ListActiveMembers(_ context.Context, groupID uint) ([]models.GroupMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.GroupMember, 0)
	for _, m := range s.members {
		if m.GroupID == groupID && m.IsActive {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListUserGroups(_ context.Context, userID uint) ([]models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Group, 0)
	for _, m := range s.members {
		if m.UserID != userID || !m.IsActive {
			continue
		}
		if g, ok := s.groups[m.GroupID]; ok {
			out = append(out, cloneGroup(g))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Messages

func (s *Store) SaveMessage(_ context.Context, message *models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	message.ID = s.messageIDs.next()
	if message.SentAt.IsZero() {
		message.SentAt = s.now()
	}
	s.messages[message.ID] = cloneMessage(*message)
	return nil
}

func (s *Store) ListGroupMessages(_ context.Context, groupID uint, limit, offset int) ([]models.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]models.ChatMessage, 0)
	for _, m := range s.messages {
		if m.GroupID == groupID {
			all = append(all, m)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].SentAt.Equal(all[j].SentAt) {
			return all[i].SentAt.After(all[j].SentAt)
		}
		return all[i].ID > all[j].ID
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []models.ChatMessage{}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]models.ChatMessage, 0, end-offset)
	for _, m := range all[offset:end] {
		out = append(out, cloneMessage(m))
	}
	return out, nil
}

func (s *Store) MarkGroupMessagesRead(_ context.Context, groupID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, m := range s.messages {
		if m.GroupID == groupID && !m.IsRead {
			m.IsRead = true
			s.messages[id] = m
			n++
		}
	}
	return n, nil
}

func (s *Store) CountUnread(_ context.Context, groupID, excludeUserID uint) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, m := range s.messages {
		if m.GroupID == groupID && !m.IsRead && m.UserID != excludeUserID {
			n++
		}
	}
	return n, nil
}

// Votes

func (s *Store) SaveVote(_ context.Context, vote *models.EventVote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	vote.ID = s.voteIDs.next()
	if vote.VotedAt.IsZero() {
		vote.VotedAt = s.now()
	}
	s.votes[vote.ID] = *vote
	return nil
}

func (s *Store) ListVotes(_ context.Context, groupID, eventID uint) ([]models.EventVote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.EventVote, 0)
	for _, v := range s.votes {
		if v.GroupID == groupID && v.EventID == eventID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneUser(u models.User) models.User {
	u.Interests = cloneStrings(u.Interests)
	u.Skills = cloneStrings(u.Skills)
	u.CareerPath = clonePtr(u.CareerPath)
	u.Latitude = clonePtr(u.Latitude)
	u.Longitude = clonePtr(u.Longitude)
	return u
}

func cloneEvent(e models.Event) models.Event {
	e.Tags = cloneStrings(e.Tags)
	e.InterestCategories = cloneStrings(e.InterestCategories)
	e.RequiredSkills = cloneStrings(e.RequiredSkills)
	e.MaxAttendees = clonePtr(e.MaxAttendees)
	e.FriendGroupID = clonePtr(e.FriendGroupID)
	e.CareerFocus = clonePtr(e.CareerFocus)
	e.Latitude = clonePtr(e.Latitude)
	e.Longitude = clonePtr(e.Longitude)
	e.RadiusMeters = clonePtr(e.RadiusMeters)
	e.GroupID = clonePtr(e.GroupID)
	e.MutualTimeSlot = clonePtr(e.MutualTimeSlot)
	return e
}

func cloneAvailability(a models.Availability) models.Availability {
	slots := make([]models.Timeslot, len(a.Timeslots))
	copy(slots, a.Timeslots)
	a.Timeslots = slots
	return a
}

func cloneGroup(g models.Group) models.Group {
	g.Description = clonePtr(g.Description)
	return g
}

func cloneMessage(m models.ChatMessage) models.ChatMessage {
	m.AttachmentURL = clonePtr(m.AttachmentURL)
	if m.ReferenceData != nil {
		m.ReferenceData = append(json.RawMessage(nil), m.ReferenceData...)
	}
	return m
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
