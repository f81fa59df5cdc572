package domain

import (
	"context"
	"errors"
	"time"
)

type ListEventRequest struct {
	Category string
}

type ItineraryDay struct {
	Day         int    `json:"day"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type UpsertEventRequest struct {
	Title       string         `json:"title" validate:"required,max=200"`
	Description string         `json:"description"`
	Category    string         `json:"category" validate:"required"`
	Location    string         `json:"location" validate:"required"`
	Duration    string         `json:"duration"`
	Difficulty  string         `json:"difficulty" validate:"omitempty,oneof=easy moderate challenging extreme"`
	Price       int64          `json:"price" validate:"required,gt=0"`
	Capacity    int            `json:"capacity" validate:"required,gt=0"`
	NextDate    time.Time      `json:"nextDate" validate:"required"`
	Media       []string       `json:"media" validate:"omitempty,dive,url"`
	Itinerary   []ItineraryDay `json:"itinerary"`
	Inclusions  []string       `json:"inclusions"`
	Exclusions  []string       `json:"exclusions"`
}

type Service interface {
	List(ctx context.Context, req ListEventRequest) ([]Event, error)
	// Get resolves either a numeric id or a slug.
	Get(ctx context.Context, idOrSlug string) (Event, error)
	Create(ctx context.Context, req UpsertEventRequest) (Event, error)
	Update(ctx context.Context, idOrSlug string, req UpsertEventRequest) (Event, error)
	Archive(ctx context.Context, idOrSlug string) (Event, error)
	Availability(ctx context.Context, idOrSlug string) (Availability, error)
}

var (
	ErrNotFound        = errors.New("event_not_found")
	ErrInvalidTitle    = errors.New("invalid_title")
	ErrInvalidPrice    = errors.New("invalid_price")
	ErrInvalidCapacity = errors.New("invalid_capacity")
	ErrInvalidDate     = errors.New("invalid_next_date")
	ErrInvalidCategory = errors.New("invalid_category")
	ErrInvalidLevel    = errors.New("invalid_difficulty")
	ErrNotBookable     = errors.New("event_not_bookable")
)
