package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/trailbook/internal/booking/domain"
	"github.com/smallbiznis/trailbook/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Repo    domain.Repository
	Pricing *config.PricingConfigHolder
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    domain.Repository
	pricing *config.PricingConfigHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("booking.service"),
		repo:    p.Repo,
		pricing: p.Pricing,
	}
}

// RatesFromConfig maps the hot-reloadable pricing file onto quote rates.
func RatesFromConfig(cfg config.PricingConfig) domain.Rates {
	return domain.Rates{
		GroupDiscountBps:       cfg.GroupDiscountBps,
		GroupDiscountThreshold: cfg.GroupDiscountThreshold,
		BookingFeeBps:          cfg.BookingFeeBps,
		ProcessingFeeBps:       cfg.ProcessingFeeBps,
		TaxBps:                 cfg.TaxBps,
	}
}

func (s *Service) GetByRef(ctx context.Context, ref string) (domain.Booking, error) {
	ref = strings.ToUpper(strings.TrimSpace(ref))
	if ref == "" {
		return domain.Booking{}, domain.ErrInvalidRef
	}
	booking, err := s.repo.FindByRef(ctx, s.db, ref)
	if err != nil {
		return domain.Booking{}, err
	}
	if booking == nil {
		return domain.Booking{}, domain.ErrNotFound
	}
	return *booking, nil
}

func (s *Service) ListByEmail(ctx context.Context, email string) ([]domain.Booking, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidEmail
	}
	items, err := s.repo.ListByEmail(ctx, s.db, email)
	if err != nil {
		return nil, err
	}
	bookings := make([]domain.Booking, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		bookings = append(bookings, *item)
	}
	return bookings, nil
}

func (s *Service) Communications(ctx context.Context, ref string) ([]domain.Communication, error) {
	booking, err := s.GetByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListCommunications(ctx, s.db, booking.ID)
	if err != nil {
		return nil, err
	}
	comms := make([]domain.Communication, 0, len(items))
	for _, item := range items {
		comms = append(comms, *item)
	}
	return comms, nil
}

func (s *Service) Quote(_ context.Context, priceRupees int64, participants int) (domain.Quote, error) {
	cfg := s.pricing.Get()
	if participants < 1 || participants > cfg.MaxParticipants {
		return domain.Quote{}, domain.ErrInvalidParticipants
	}
	return domain.NewQuote(priceRupees, participants, RatesFromConfig(cfg)), nil
}

func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	return s.repo.Stats(ctx, s.db)
}
