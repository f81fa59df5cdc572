package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/smallbiznis/trailbook/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo paymentdomain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo paymentdomain.Repository
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("payment.service"),
		repo: p.Repo,
	}
}

func (s *Service) GetByID(ctx context.Context, id string) (paymentdomain.Payment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return paymentdomain.Payment{}, paymentdomain.ErrInvalidID
	}

	var (
		payment *paymentdomain.Payment
		err     error
	)
	if parsed, parseErr := snowflake.ParseString(id); parseErr == nil {
		payment, err = s.repo.FindByID(ctx, s.db, parsed)
	} else {
		payment, err = s.repo.FindByGatewayPaymentID(ctx, s.db, id)
	}
	if err != nil {
		return paymentdomain.Payment{}, err
	}
	if payment == nil {
		return paymentdomain.Payment{}, paymentdomain.ErrNotFound
	}
	return *payment, nil
}

func (s *Service) FindByBookingID(ctx context.Context, bookingID snowflake.ID) (*paymentdomain.Payment, error) {
	if bookingID == 0 {
		return nil, paymentdomain.ErrInvalidID
	}
	return s.repo.FindByBookingID(ctx, s.db, bookingID)
}

func (s *Service) FindByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*paymentdomain.Payment, error) {
	gatewayPaymentID = strings.TrimSpace(gatewayPaymentID)
	if gatewayPaymentID == "" {
		return nil, paymentdomain.ErrInvalidID
	}
	return s.repo.FindByGatewayPaymentID(ctx, s.db, gatewayPaymentID)
}
