package models

import "time"

// Timeslot - метка временного окна дня.
type Timeslot string

// Канонический (хронологический) порядок слотов: сутки начинаются в 6 утра.
const (
	SlotEarlyMorning1  Timeslot = "early_morning_1"
	SlotMorning        Timeslot = "morning"
	SlotEarlyAfternoon Timeslot = "early_afternoon"
	SlotLateAfternoon  Timeslot = "late_afternoon"
	SlotEvening        Timeslot = "evening"
	SlotNight          Timeslot = "night"
	SlotLateNight      Timeslot = "late_night"
	SlotEarlyMorning2  Timeslot = "early_morning_2"
)

var canonicalSlots = []Timeslot{
	SlotEarlyMorning1,
	SlotMorning,
	SlotEarlyAfternoon,
	SlotLateAfternoon,
	SlotEvening,
	SlotNight,
	SlotLateNight,
	SlotEarlyMorning2,
}

var slotRank = func() map[Timeslot]int {
	m := make(map[Timeslot]int, len(canonicalSlots))
	for i, s := range canonicalSlots {
		m[s] = i
	}
	return m
}()

// Timeslots возвращает копию всех слотов в каноническом порядке.
func Timeslots() []Timeslot {
	out := make([]Timeslot, len(canonicalSlots))
	copy(out, canonicalSlots)
	return out
}

func (t Timeslot) Valid() bool {
	_, ok := slotRank[t]
	return ok
}

// Rank - позиция слота в каноническом порядке, -1 для неизвестной метки.
func (t Timeslot) Rank() int {
	if r, ok := slotRank[t]; ok {
		return r
	}
	return -1
}

// Availability - набор слотов пользователя на одну календарную дату.
// Date всегда полночь UTC.
type Availability struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;uniqueIndex:idx_user_date" json:"user_id"`
	Date      time.Time  `gorm:"not null;uniqueIndex:idx_user_date" json:"date"`
	Timeslots []Timeslot `gorm:"type:jsonb;serializer:json;not null" json:"timeslots"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// DateKey - дата записи в виде YYYY-MM-DD.
func (a Availability) DateKey() string {
	return a.Date.Format(DateLayout)
}

const DateLayout = "2006-01-02"

// NormalizeDate отбрасывает время суток. Берется календарная дата в той зоне,
// в которой значение было передано, поэтому 2024-01-01T23:30-05:00 остается 1 января.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
