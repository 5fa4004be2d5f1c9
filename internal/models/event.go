package models

import "time"

type EventType string

const (
	EventSocial     EventType = "social"
	EventNetworking EventType = "networking"
)

func (t EventType) Valid() bool {
	return t == EventSocial || t == EventNetworking
}

// Event - одна структура для обоих типов событий. Поля, специфичные для типа,
// остаются пустыми у другого типа (см. Normalize).
type Event struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	Title              string          `gorm:"not null" json:"title"`
	Description        string          `gorm:"not null" json:"description"`
	Date               time.Time       `gorm:"not null" json:"date"`
	Location           string          `json:"location,omitempty"`
	ImageURL           string          `json:"image_url,omitempty"`
	HostID             uint            `gorm:"not null;index" json:"host_id"`
	Type               EventType       `gorm:"not null;check:type IN ('social','networking')" json:"type"`
	Category           string          `json:"category,omitempty"`
	MaxAttendees       *int            `json:"max_attendees,omitempty"`
	FriendGroupID      *string         `json:"friend_group_id,omitempty"`
	Tags               []string        `gorm:"type:jsonb;serializer:json" json:"tags"`
	InterestCategories []string        `gorm:"type:jsonb;serializer:json" json:"interest_categories"`
	RequiredSkills     []string        `gorm:"type:jsonb;serializer:json" json:"required_skills"`
	CareerFocus        *string         `json:"career_focus,omitempty"`
	Latitude           *float64        `json:"latitude,omitempty"`
	Longitude          *float64        `json:"longitude,omitempty"`
	RadiusMeters       *int            `json:"radius,omitempty"`
	IsGroupEvent       bool            `gorm:"default:false" json:"is_group_event"`
	GroupID            *uint           `gorm:"index" json:"group_id,omitempty"`
	MutualTimeSlot     *SlotSuggestion `gorm:"type:jsonb;serializer:json" json:"mutual_time_slot,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}

// Normalize убирает поля, которые не относятся к типу события.
func (e *Event) Normalize() {
	switch e.Type {
	case EventSocial:
		e.MaxAttendees = nil
		e.Category = ""
	case EventNetworking:
		e.FriendGroupID = nil
	}
	if !e.IsGroupEvent {
		e.GroupID = nil
	}
}

func (e Event) Coordinates() (float64, float64, bool) {
	return coordinates(e.Latitude, e.Longitude)
}

// RadiusKm возвращает радиус поиска события в километрах.
func (e Event) RadiusKm() (float64, bool) {
	if e.RadiusMeters == nil || *e.RadiusMeters <= 0 {
		return 0, false
	}
	return float64(*e.RadiusMeters) / 1000, true
}

// SlotSuggestion - предложенная дата (YYYY-MM-DD) и временной слот.
type SlotSuggestion struct {
	Date     string `json:"date"`
	TimeSlot string `json:"timeSlot"`
}

type ParticipantStatus string

const (
	ParticipantGoing    ParticipantStatus = "going"
	ParticipantPending  ParticipantStatus = "pending"
	ParticipantDeclined ParticipantStatus = "declined"
)

func (s ParticipantStatus) Valid() bool {
	switch s {
	case ParticipantGoing, ParticipantPending, ParticipantDeclined:
		return true
	}
	return false
}

// EventParticipant - ответ пользователя на событие, не больше одного на пару (событие, пользователь).
type EventParticipant struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	EventID      uint              `gorm:"not null;uniqueIndex:idx_event_participant" json:"event_id"`
	UserID       uint              `gorm:"not null;uniqueIndex:idx_event_participant;index" json:"user_id"`
	Status       ParticipantStatus `gorm:"type:varchar(20);not null" json:"status"`
	ResponseDate time.Time         `json:"response_date"`
}
