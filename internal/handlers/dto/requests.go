package dto

import (
	"encoding/json"
	"time"

	"github.com/thereayou/link/internal/coordination"
	"github.com/thereayou/link/internal/matching"
	"github.com/thereayou/link/internal/models"
)

// UpdateProfileRequest - отсутствующее поле не меняется.
type UpdateProfileRequest struct {
	FullName   *string   `json:"full_name"`
	Bio        *string   `json:"bio"`
	Profession *string   `json:"profession"`
	AvatarURL  *string   `json:"avatar_url"`
	Interests  *[]string `json:"interests"`
	Skills     *[]string `json:"skills"`
	CareerPath *string   `json:"career_path"`
	Latitude   *float64  `json:"latitude"`
	Longitude  *float64  `json:"longitude"`
	Timezone   *string   `json:"timezone"`
}

type CreateEventRequest struct {
	Title              string                 `json:"title" binding:"required"`
	Description        string                 `json:"description"`
	Date               time.Time              `json:"date" binding:"required"`
	Location           string                 `json:"location"`
	ImageURL           string                 `json:"image_url"`
	Type               models.EventType       `json:"type" binding:"required"`
	Category           string                 `json:"category"`
	MaxAttendees       *int                   `json:"max_attendees"`
	FriendGroupID      *string                `json:"friend_group_id"`
	Tags               []string               `json:"tags"`
	InterestCategories []string               `json:"interest_categories"`
	RequiredSkills     []string               `json:"required_skills"`
	CareerFocus        *string                `json:"career_focus"`
	Latitude           *float64               `json:"latitude"`
	Longitude          *float64               `json:"longitude"`
	Radius             *int                   `json:"radius"`
	IsGroupEvent       bool                   `json:"is_group_event"`
	GroupID            *uint                  `json:"group_id"`
	MutualTimeSlot     *models.SlotSuggestion `json:"mutual_time_slot"`
}

func (r CreateEventRequest) Event() models.Event {
	return models.Event{
		Title:              r.Title,
		Description:        r.Description,
		Date:               r.Date,
		Location:           r.Location,
		ImageURL:           r.ImageURL,
		Type:               r.Type,
		Category:           r.Category,
		MaxAttendees:       r.MaxAttendees,
		FriendGroupID:      r.FriendGroupID,
		Tags:               r.Tags,
		InterestCategories: r.InterestCategories,
		RequiredSkills:     r.RequiredSkills,
		CareerFocus:        r.CareerFocus,
		Latitude:           r.Latitude,
		Longitude:          r.Longitude,
		RadiusMeters:       r.Radius,
		IsGroupEvent:       r.IsGroupEvent,
		GroupID:            r.GroupID,
		MutualTimeSlot:     r.MutualTimeSlot,
	}
}

// UpdateEventRequest - отсутствующее поле не меняется.
type UpdateEventRequest struct {
	Title              *string                `json:"title"`
	Description        *string                `json:"description"`
	Date               *time.Time             `json:"date"`
	Location           *string                `json:"location"`
	ImageURL           *string                `json:"image_url"`
	Category           *string                `json:"category"`
	MaxAttendees       *int                   `json:"max_attendees"`
	FriendGroupID      *string                `json:"friend_group_id"`
	Tags               *[]string              `json:"tags"`
	InterestCategories *[]string              `json:"interest_categories"`
	RequiredSkills     *[]string              `json:"required_skills"`
	CareerFocus        *string                `json:"career_focus"`
	Latitude           *float64               `json:"latitude"`
	Longitude          *float64               `json:"longitude"`
	Radius             *int                   `json:"radius"`
	MutualTimeSlot     *models.SlotSuggestion `json:"mutual_time_slot"`
}

func (r UpdateEventRequest) Patch() coordination.EventPatch {
	return coordination.EventPatch{
		Title:              r.Title,
		Description:        r.Description,
		Date:               r.Date,
		Location:           r.Location,
		ImageURL:           r.ImageURL,
		Category:           r.Category,
		MaxAttendees:       r.MaxAttendees,
		FriendGroupID:      r.FriendGroupID,
		Tags:               r.Tags,
		InterestCategories: r.InterestCategories,
		RequiredSkills:     r.RequiredSkills,
		CareerFocus:        r.CareerFocus,
		Latitude:           r.Latitude,
		Longitude:          r.Longitude,
		RadiusMeters:       r.Radius,
		MutualTimeSlot:     r.MutualTimeSlot,
	}
}

type RespondToEventRequest struct {
	EventID uint                     `json:"event_id" binding:"required"`
	Status  models.ParticipantStatus `json:"status"`
}

type UpdateParticipationRequest struct {
	Status models.ParticipantStatus `json:"status" binding:"required"`
}

type SetAvailabilityRequest struct {
	Date      string   `json:"date" binding:"required"`
	Timeslots []string `json:"timeslots" binding:"required"`
}

type MutualSlotsRequest struct {
	UserIDs []uint `json:"user_ids" binding:"required"`
	Date    string `json:"date" binding:"required"`
}

type CreateGroupRequest struct {
	Name        string           `json:"name" binding:"required"`
	Description *string          `json:"description"`
	Type        models.GroupType `json:"type"`
	ImageURL    string           `json:"image_url"`
}

type AddMemberRequest struct {
	UserID uint             `json:"user_id" binding:"required"`
	Role   models.GroupRole `json:"role"`
}

type PostMessageRequest struct {
	Message       string             `json:"message" binding:"required"`
	MessageType   models.MessageType `json:"message_type"`
	AttachmentURL *string            `json:"attachment_url"`
	ReferenceData json.RawMessage    `json:"reference_data"`
}

type VoteRequest struct {
	EventID uint             `json:"event_id" binding:"required"`
	Vote    models.VoteValue `json:"vote" binding:"required"`
}

type MutualTimeRequest struct {
	Availabilities []matching.UserAvailability `json:"availabilities"`
}

type GenerateTagsRequest struct {
	Title       string           `json:"title" binding:"required"`
	Description string           `json:"description"`
	Type        models.EventType `json:"type"`
}
