package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	auditdomain "github.com/smallbiznis/trailbook/internal/audit/domain"
	bookingdomain "github.com/smallbiznis/trailbook/internal/booking/domain"
	"github.com/smallbiznis/trailbook/internal/cache"
	"github.com/smallbiznis/trailbook/internal/clock"
	"github.com/smallbiznis/trailbook/internal/event/domain"
	"github.com/smallbiznis/trailbook/internal/validation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const maxSlugAttempts = 50

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Bookings bookingdomain.Repository
	Cache    cache.EventCache
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	bookings bookingdomain.Repository
	cache    cache.EventCache
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	eventCache := p.Cache
	if eventCache == nil {
		eventCache = cache.NewEventCache(nil, 0, nil)
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("event.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		bookings: p.Bookings,
		cache:    eventCache,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) List(ctx context.Context, req domain.ListEventRequest) ([]domain.Event, error) {
	category := strings.ToLower(strings.TrimSpace(req.Category))
	if events, ok := s.cache.GetList(ctx, category); ok {
		return events, nil
	}

	items, err := s.repo.ListActive(ctx, s.db, category)
	if err != nil {
		return nil, err
	}
	events := make([]domain.Event, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		events = append(events, *item)
	}
	s.cache.SetList(ctx, category, events)
	return events, nil
}

func (s *Service) Get(ctx context.Context, idOrSlug string) (domain.Event, error) {
	event, err := s.find(ctx, s.db, idOrSlug)
	if err != nil {
		return domain.Event{}, err
	}
	return *event, nil
}

func (s *Service) find(ctx context.Context, db *gorm.DB, idOrSlug string) (*domain.Event, error) {
	idOrSlug = strings.TrimSpace(idOrSlug)
	if idOrSlug == "" {
		return nil, domain.ErrNotFound
	}

	var (
		event *domain.Event
		err   error
	)
	if id, parseErr := strconv.ParseInt(idOrSlug, 10, 64); parseErr == nil {
		event, err = s.repo.FindByID(ctx, db, snowflake.ID(id))
	} else {
		event, err = s.repo.FindBySlug(ctx, db, strings.ToLower(idOrSlug))
	}
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, domain.ErrNotFound
	}
	return event, nil
}

func (s *Service) Create(ctx context.Context, req domain.UpsertEventRequest) (domain.Event, error) {
	if err := validateUpsert(&req); err != nil {
		return domain.Event{}, err
	}

	now := s.clock.Now()
	event := domain.Event{
		ID:        s.genID.Generate(),
		Status:    domain.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := applyUpsert(&event, req); err != nil {
		return domain.Event{}, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		eventSlug, err := s.uniqueSlug(ctx, tx, req.Title)
		if err != nil {
			return err
		}
		event.Slug = eventSlug
		return s.repo.Insert(ctx, tx, &event)
	})
	if err != nil {
		return domain.Event{}, err
	}

	s.cache.Invalidate(ctx)
	s.audit(ctx, "event.create", event)
	return event, nil
}

func (s *Service) Update(ctx context.Context, idOrSlug string, req domain.UpsertEventRequest) (domain.Event, error) {
	if err := validateUpsert(&req); err != nil {
		return domain.Event{}, err
	}

	var updated domain.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		event, err := s.find(ctx, tx, idOrSlug)
		if err != nil {
			return err
		}
		if err := applyUpsert(event, req); err != nil {
			return err
		}
		event.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, event); err != nil {
			return err
		}
		updated = *event
		return nil
	})
	if err != nil {
		return domain.Event{}, err
	}

	s.cache.Invalidate(ctx)
	s.audit(ctx, "event.update", updated)
	return updated, nil
}

// Archive hides the event from the catalog. Rows are kept because bookings
// reference them.
func (s *Service) Archive(ctx context.Context, idOrSlug string) (domain.Event, error) {
	var archived domain.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		event, err := s.find(ctx, tx, idOrSlug)
		if err != nil {
			return err
		}
		if event.Status == domain.StatusArchived {
			archived = *event
			return nil
		}
		event.Status = domain.StatusArchived
		event.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, event); err != nil {
			return err
		}
		archived = *event
		return nil
	})
	if err != nil {
		return domain.Event{}, err
	}

	s.cache.Invalidate(ctx)
	s.audit(ctx, "event.archive", archived)
	return archived, nil
}

func (s *Service) Availability(ctx context.Context, idOrSlug string) (domain.Availability, error) {
	event, err := s.find(ctx, s.db, idOrSlug)
	if err != nil {
		return domain.Availability{}, err
	}
	reserved, err := s.bookings.ReservedSeats(ctx, s.db, event.ID, s.clock.Now())
	if err != nil {
		return domain.Availability{}, err
	}
	return NewAvailability(*event, reserved), nil
}

// NewAvailability clamps the available count at zero.
func NewAvailability(event domain.Event, reserved int) domain.Availability {
	available := event.Capacity - reserved
	if available < 0 {
		available = 0
	}
	return domain.Availability{
		EventID:   event.ID,
		Capacity:  event.Capacity,
		Reserved:  reserved,
		Available: available,
	}
}

func (s *Service) uniqueSlug(ctx context.Context, db *gorm.DB, title string) (string, error) {
	base := slug.Make(title)
	if base == "" {
		base = "event"
	}
	candidate := base
	for i := 2; i <= maxSlugAttempts+1; i++ {
		exists, err := s.repo.SlugExists(ctx, db, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return fmt.Sprintf("%s-%s", base, s.genID.Generate().Base36()), nil
}

func (s *Service) audit(ctx context.Context, action string, event domain.Event) {
	if s.auditSvc == nil {
		return
	}
	err := s.auditSvc.AuditLog(ctx, action, "event", event.ID.String(), map[string]any{
		"slug":     event.Slug,
		"title":    event.Title,
		"status":   string(event.Status),
		"price":    event.Price,
		"capacity": event.Capacity,
	})
	if err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}

func validateUpsert(req *domain.UpsertEventRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	req.Category = strings.ToLower(strings.TrimSpace(req.Category))
	req.Location = strings.TrimSpace(req.Location)
	req.Difficulty = strings.ToLower(strings.TrimSpace(req.Difficulty))
	if err := validation.Struct(req); err != nil {
		return err
	}
	if req.Title == "" {
		return domain.ErrInvalidTitle
	}
	if req.Price <= 0 {
		return domain.ErrInvalidPrice
	}
	if req.Capacity <= 0 {
		return domain.ErrInvalidCapacity
	}
	if req.NextDate.IsZero() {
		return domain.ErrInvalidDate
	}
	if req.Category == "" {
		return domain.ErrInvalidCategory
	}
	if req.Difficulty != "" && !domain.Difficulty(req.Difficulty).Valid() {
		return domain.ErrInvalidLevel
	}
	return nil
}

func applyUpsert(event *domain.Event, req domain.UpsertEventRequest) error {
	media, err := jsonList(req.Media)
	if err != nil {
		return err
	}
	itinerary, err := jsonList(req.Itinerary)
	if err != nil {
		return err
	}
	inclusions, err := jsonList(req.Inclusions)
	if err != nil {
		return err
	}
	exclusions, err := jsonList(req.Exclusions)
	if err != nil {
		return err
	}

	event.Title = req.Title
	event.Description = strings.TrimSpace(req.Description)
	event.Category = req.Category
	event.Location = req.Location
	event.Duration = strings.TrimSpace(req.Duration)
	event.Difficulty = domain.Difficulty(req.Difficulty)
	event.Price = req.Price
	event.Capacity = req.Capacity
	event.NextDate = req.NextDate.UTC()
	event.Media = media
	event.Itinerary = itinerary
	event.Inclusions = inclusions
	event.Exclusions = exclusions
	return nil
}

func jsonList[T any](items []T) (datatypes.JSON, error) {
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
