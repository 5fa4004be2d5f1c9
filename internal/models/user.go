package models

import "time"

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	FullName     string    `json:"full_name"`
	Bio          string    `json:"bio,omitempty"`
	Profession   string    `json:"profession,omitempty"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	Interests    []string  `gorm:"type:jsonb;serializer:json" json:"interests"`
	Skills       []string  `gorm:"type:jsonb;serializer:json" json:"skills"`
	CareerPath   *string   `json:"career_path,omitempty"`
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
	Timezone     string    `gorm:"default:'America/New_York'" json:"timezone"`
	LastSeenAt   time.Time `json:"last_seen_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// Coordinates возвращает координаты пользователя, если они заданы.
func (u User) Coordinates() (float64, float64, bool) {
	return coordinates(u.Latitude, u.Longitude)
}
