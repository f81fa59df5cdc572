package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

type Difficulty string

const (
	DifficultyEasy        Difficulty = "easy"
	DifficultyModerate    Difficulty = "moderate"
	DifficultyChallenging Difficulty = "challenging"
	DifficultyExtreme     Difficulty = "extreme"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyModerate, DifficultyChallenging, DifficultyExtreme:
		return true
	}
	return false
}

// Event is a bookable adventure listing. Price is in whole rupees per person.
type Event struct {
	ID          snowflake.ID   `gorm:"primaryKey" json:"id"`
	Slug        string         `gorm:"not null;uniqueIndex" json:"slug"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `json:"description,omitempty"`
	Category    string         `gorm:"not null;index" json:"category"`
	Location    string         `json:"location"`
	Duration    string         `json:"duration"`
	Difficulty  Difficulty     `json:"difficulty"`
	Price       int64          `gorm:"not null" json:"price"`
	Capacity    int            `gorm:"not null" json:"capacity"`
	NextDate    time.Time      `gorm:"not null" json:"next_date"`
	Media       datatypes.JSON `json:"media,omitempty"`
	Itinerary   datatypes.JSON `json:"itinerary,omitempty"`
	Inclusions  datatypes.JSON `json:"inclusions,omitempty"`
	Exclusions  datatypes.JSON `json:"exclusions,omitempty"`
	Status      Status         `gorm:"not null" json:"status"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (Event) TableName() string { return "events" }

func (e Event) Bookable() bool {
	return e.Status == StatusActive
}

type Availability struct {
	EventID   snowflake.ID `json:"event_id"`
	Capacity  int          `json:"capacity"`
	Reserved  int          `json:"reserved"`
	Available int          `json:"available"`
}
