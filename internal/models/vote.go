package models

import "time"

type VoteValue string

const (
	VoteYes   VoteValue = "yes"
	VoteNo    VoteValue = "no"
	VoteMaybe VoteValue = "maybe"
)

func (v VoteValue) Valid() bool {
	return v == VoteYes || v == VoteNo || v == VoteMaybe
}

// EventVote хранится как история; при подсчете учитывается только последний голос пользователя.
type EventVote struct {
	ID      uint      `gorm:"primaryKey" json:"id"`
	GroupID uint      `gorm:"not null;index:idx_group_event" json:"group_id"`
	UserID  uint      `gorm:"not null" json:"user_id"`
	EventID uint      `gorm:"not null;index:idx_group_event" json:"event_id"`
	Vote    VoteValue `gorm:"not null" json:"vote"`
	VotedAt time.Time `json:"voted_at"`
}

type VoteCounts struct {
	Yes   int `json:"yes"`
	No    int `json:"no"`
	Maybe int `json:"maybe"`
}
