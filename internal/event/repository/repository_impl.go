package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/trailbook/internal/event/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, event *domain.Event) error {
	return db.WithContext(ctx).Create(event).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, event *domain.Event) error {
	return db.WithContext(ctx).Save(event).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Event, error) {
	return first(db.WithContext(ctx).Where("id = ?", id))
}

func (r *repo) FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Event, error) {
	return first(db.WithContext(ctx).Where("slug = ?", slug))
}

func first(stmt *gorm.DB) (*domain.Event, error) {
	var event domain.Event
	if err := stmt.Take(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB, category string) ([]*domain.Event, error) {
	var events []*domain.Event
	stmt := db.WithContext(ctx).Where("status = ?", domain.StatusActive)
	if category != "" {
		stmt = stmt.Where("category = ?", category)
	}
	if err := stmt.Order("next_date asc, id asc").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repo) SlugExists(ctx context.Context, db *gorm.DB, slug string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.Event{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}
