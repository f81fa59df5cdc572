package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/trailbook/internal/audit/domain"
	bookingdomain "github.com/smallbiznis/trailbook/internal/booking/domain"
	"github.com/smallbiznis/trailbook/internal/checkout/domain"
	"github.com/smallbiznis/trailbook/internal/clock"
	"github.com/smallbiznis/trailbook/internal/config"
	eventdomain "github.com/smallbiznis/trailbook/internal/event/domain"
	"github.com/smallbiznis/trailbook/internal/notification"
	obsmetrics "github.com/smallbiznis/trailbook/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/trailbook/internal/payment/domain"
	"github.com/smallbiznis/trailbook/internal/providers/pdf"
	"github.com/smallbiznis/trailbook/internal/ratelimit"
	"github.com/smallbiznis/trailbook/internal/validation"
	dbpkg "github.com/smallbiznis/trailbook/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	lockTTL  = 15 * time.Second
	lockWait = 5 * time.Second

	defaultHoldTTL = 15 * time.Minute
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	GenID      *snowflake.Node
	Cfg        config.Config
	Pricing    *config.PricingConfigHolder
	BookingSvc bookingdomain.Service
	Bookings   bookingdomain.Repository
	EventSvc   eventdomain.Service
	PaymentSvc paymentdomain.Service
	Payments   paymentdomain.Repository
	Gateway    paymentdomain.Gateway
	Notifier   notification.Notifier
	PDF        pdf.Provider
	Locker     *ratelimit.Locker   `optional:"true"`
	AuditSvc   auditdomain.Service `optional:"true"`
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	genID      *snowflake.Node
	holdTTL    time.Duration
	pricing    *config.PricingConfigHolder
	bookingSvc bookingdomain.Service
	bookings   bookingdomain.Repository
	eventSvc   eventdomain.Service
	paymentSvc paymentdomain.Service
	payments   paymentdomain.Repository
	gateway    paymentdomain.Gateway
	notifier   notification.Notifier
	pdf        pdf.Provider
	locker     *ratelimit.Locker
	auditSvc   auditdomain.Service
	metrics    *obsmetrics.Metrics

	// holds serialises capacity checks per event inside this process. The
	// Redis lock extends that across replicas when configured.
	holds eventLocks
}

func New(p Params) domain.Service {
	holdTTL := p.Cfg.Checkout.HoldTTL
	if holdTTL <= 0 {
		holdTTL = defaultHoldTTL
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("checkout.service"),
		clock:      p.Clock,
		genID:      p.GenID,
		holdTTL:    holdTTL,
		pricing:    p.Pricing,
		bookingSvc: p.BookingSvc,
		bookings:   p.Bookings,
		eventSvc:   p.EventSvc,
		paymentSvc: p.PaymentSvc,
		payments:   p.Payments,
		gateway:    p.Gateway,
		notifier:   p.Notifier,
		pdf:        p.PDF,
		locker:     p.Locker,
		auditSvc:   p.AuditSvc,
		metrics:    p.Metrics,
	}
}

func (s *Service) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (domain.CreateOrderResponse, error) {
	req.EventID = strings.TrimSpace(req.EventID)
	req.Customer.Name = strings.TrimSpace(req.Customer.Name)
	req.Customer.Email = strings.ToLower(strings.TrimSpace(req.Customer.Email))
	req.Customer.Phone = strings.TrimSpace(req.Customer.Phone)
	req.SpecialRequirements = strings.TrimSpace(req.SpecialRequirements)
	req.IdempotencyKey = strings.TrimSpace(req.IdempotencyKey)
	if req.Participants == 0 {
		req.Participants = 1
	}
	if err := validation.Struct(req); err != nil {
		return domain.CreateOrderResponse{}, err
	}

	if req.IdempotencyKey != "" {
		existing, err := s.bookings.FindByIdempotencyKey(ctx, s.db, req.IdempotencyKey)
		if err != nil {
			return domain.CreateOrderResponse{}, err
		}
		if existing != nil {
			return s.replayOrder(*existing)
		}
	}

	event, err := s.eventSvc.Get(ctx, req.EventID)
	if err != nil {
		return domain.CreateOrderResponse{}, err
	}
	if !event.Bookable() {
		return domain.CreateOrderResponse{}, eventdomain.ErrNotFound
	}
	if !event.NextDate.After(s.clock.Now()) {
		return domain.CreateOrderResponse{}, eventdomain.ErrNotBookable
	}

	quote, err := s.bookingSvc.Quote(ctx, event.Price, req.Participants)
	if err != nil {
		return domain.CreateOrderResponse{}, err
	}
	tolerance := s.pricing.Get().AmountToleranceRupees
	if !quote.WithinTolerance(req.Amount, tolerance) {
		s.log.Info("client amount does not match quote",
			zap.String("event_id", event.ID.String()),
			zap.Float64("client_amount", req.Amount),
			zap.Int64("server_total", quote.TotalAmount),
		)
		return domain.CreateOrderResponse{}, &domain.AmountMismatchError{Quote: quote}
	}

	var (
		booking  bookingdomain.Booking
		replayed bool
	)
	lockKey := "checkout:event:" + event.ID.String()
	err = s.locker.WithLock(ctx, lockKey, lockTTL, lockWait, func() error {
		unlock := s.holds.lock(lockKey)
		defer unlock()

		held, dup, err := s.holdSeats(ctx, event, quote, req)
		booking, replayed = held, dup
		return err
	})
	if err != nil {
		return domain.CreateOrderResponse{}, err
	}
	if replayed {
		return s.replayOrder(booking)
	}

	// the seats are already held, so the gateway round trip runs unlocked
	booking, err = s.openGatewayOrder(ctx, booking, event, quote)
	if err != nil {
		return domain.CreateOrderResponse{}, err
	}

	s.notifier.Notify(ctx, notification.Notice{Kind: bookingdomain.CommOrderCreated, Booking: booking})
	s.metrics.RecordOrderCreated(ctx, event.Category)
	s.log.Info("order created",
		zap.String("booking_ref", booking.BookingRef),
		zap.String("gateway_order_id", booking.GatewayOrderID),
		zap.Int64("total_amount", booking.TotalAmount),
	)
	return s.orderResponse(booking), nil
}

// holdSeats checks availability and persists the pending booking that holds
// the seats. It has no gateway order yet. dup is true when the idempotency key
// matched a booking inserted concurrently. Callers must hold the event lock.
func (s *Service) holdSeats(
	ctx context.Context,
	event eventdomain.Event,
	quote bookingdomain.Quote,
	req domain.CreateOrderRequest,
) (booking bookingdomain.Booking, dup bool, err error) {
	now := s.clock.Now()
	reserved, err := s.bookings.ReservedSeats(ctx, s.db, event.ID, now)
	if err != nil {
		return bookingdomain.Booking{}, false, err
	}
	if event.Capacity-reserved < req.Participants {
		return bookingdomain.Booking{}, false, domain.ErrSoldOut
	}

	ref, err := bookingdomain.NewBookingRef(now)
	if err != nil {
		return bookingdomain.Booking{}, false, err
	}

	holdExpiresAt := now.Add(s.holdTTL)
	booking = bookingdomain.Booking{
		ID:                  s.genID.Generate(),
		BookingRef:          ref,
		Status:              bookingdomain.StatusPending,
		CustomerName:        req.Customer.Name,
		CustomerEmail:       req.Customer.Email,
		CustomerPhone:       req.Customer.Phone,
		EventID:             event.ID,
		EventTitle:          event.Title,
		EventDate:           event.NextDate,
		EventLocation:       event.Location,
		EventDuration:       event.Duration,
		EventPrice:          event.Price,
		Participants:        req.Participants,
		SpecialRequirements: req.SpecialRequirements,
		PaymentStatus:       bookingdomain.PaymentStatusCreated,
		HoldExpiresAt:       &holdExpiresAt,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	quote.Apply(&booking)
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		booking.IdempotencyKey = &key
	}

	if err := s.bookings.Insert(ctx, s.db, &booking); err != nil {
		if dbpkg.IsDuplicateKeyErr(err) && req.IdempotencyKey != "" {
			existing, findErr := s.bookings.FindByIdempotencyKey(ctx, s.db, req.IdempotencyKey)
			if findErr == nil && existing != nil {
				return *existing, true, nil
			}
		}
		return bookingdomain.Booking{}, false, err
	}
	return booking, false, nil
}

// openGatewayOrder creates the Razorpay order for a held booking and stores
// its id. When the gateway fails the hold is released straight away.
func (s *Service) openGatewayOrder(
	ctx context.Context,
	booking bookingdomain.Booking,
	event eventdomain.Event,
	quote bookingdomain.Quote,
) (bookingdomain.Booking, error) {
	order, err := s.gateway.CreateOrder(ctx, paymentdomain.OrderRequest{
		Amount:   quote.TotalAmount,
		Currency: quote.Currency,
		Receipt:  booking.BookingRef,
		Notes: map[string]string{
			"booking_ref":  booking.BookingRef,
			"event_id":     event.ID.String(),
			"participants": fmt.Sprintf("%d", booking.Participants),
		},
	})
	if err != nil {
		s.releaseHold(context.WithoutCancel(ctx), booking)
		return bookingdomain.Booking{}, err
	}

	booking.GatewayOrderID = order.ID
	booking.UpdatedAt = s.clock.Now()
	if err := s.bookings.Update(ctx, s.db, &booking); err != nil {
		return bookingdomain.Booking{}, err
	}
	return booking, nil
}

func (s *Service) releaseHold(ctx context.Context, booking bookingdomain.Booking) {
	now := s.clock.Now()
	if err := booking.Transition(bookingdomain.StatusCancelled); err != nil {
		s.log.Error("failed to release seat hold", zap.String("booking_ref", booking.BookingRef), zap.Error(err))
		return
	}
	booking.CancelledAt = &now
	booking.CancellationReason = domain.ReasonGatewayOrderFailed
	booking.PaymentStatus = bookingdomain.PaymentStatusFailed
	booking.HoldExpiresAt = nil
	booking.UpdatedAt = now
	if err := s.bookings.Update(ctx, s.db, &booking); err != nil {
		s.log.Error("failed to release seat hold", zap.String("booking_ref", booking.BookingRef), zap.Error(err))
		return
	}
	s.log.Warn("gateway order failed, seat hold released", zap.String("booking_ref", booking.BookingRef))
}

// replayOrder answers a repeated idempotency key. A booking whose gateway
// order is still being opened by the first request asks the client to retry.
func (s *Service) replayOrder(existing bookingdomain.Booking) (domain.CreateOrderResponse, error) {
	if existing.GatewayOrderID == "" {
		if existing.Status == bookingdomain.StatusPending {
			return domain.CreateOrderResponse{}, ratelimit.ErrLockBusy
		}
		return domain.CreateOrderResponse{}, fmt.Errorf("%w: booking is %s", bookingdomain.ErrInvalidTransition, existing.Status)
	}
	return s.orderResponse(existing), nil
}

func (s *Service) VerifyPayment(ctx context.Context, req domain.VerifyPaymentRequest) (domain.VerifyPaymentResponse, error) {
	req.OrderID = strings.TrimSpace(req.OrderID)
	req.PaymentID = strings.TrimSpace(req.PaymentID)
	req.Signature = strings.TrimSpace(req.Signature)
	req.BookingID = normalizeRef(req.BookingID)
	if err := validation.Struct(req); err != nil {
		return domain.VerifyPaymentResponse{}, err
	}

	var resp domain.VerifyPaymentResponse
	err := s.withBookingLock(ctx, req.BookingID, func() error {
		out, err := s.verify(ctx, req)
		resp = out
		return err
	})
	return resp, err
}

func (s *Service) verify(ctx context.Context, req domain.VerifyPaymentRequest) (domain.VerifyPaymentResponse, error) {
	booking, err := s.bookings.FindByRef(ctx, s.db, req.BookingID)
	if err != nil {
		return domain.VerifyPaymentResponse{}, err
	}
	if booking == nil {
		return domain.VerifyPaymentResponse{}, bookingdomain.ErrNotFound
	}

	log := s.log.With(
		zap.String("booking_ref", booking.BookingRef),
		zap.String("gateway_payment_id", req.PaymentID),
	)

	if booking.Status == bookingdomain.StatusConfirmed && booking.GatewayPaymentID == req.PaymentID {
		// a replay still has to prove it holds the gateway signature
		if req.OrderID != booking.GatewayOrderID {
			return domain.VerifyPaymentResponse{}, paymentdomain.ErrSignatureMismatch
		}
		if err := s.gateway.VerifySignature(req.OrderID, req.PaymentID, req.Signature); err != nil {
			log.Warn("replayed verification with a bad signature")
			return domain.VerifyPaymentResponse{}, err
		}
		payment, err := s.payments.FindByBookingID(ctx, s.db, booking.ID)
		if err != nil {
			return domain.VerifyPaymentResponse{}, err
		}
		if payment == nil {
			return domain.VerifyPaymentResponse{}, domain.ErrPaymentMissing
		}
		s.metrics.RecordPaymentVerification(ctx, s.gateway.Name(), "duplicate")
		log.Info("payment already verified")
		return verifyResponse(*booking, *payment), nil
	}
	if booking.Status != bookingdomain.StatusPending {
		return domain.VerifyPaymentResponse{}, fmt.Errorf("%w: booking is %s", bookingdomain.ErrInvalidTransition, booking.Status)
	}

	if req.OrderID != booking.GatewayOrderID {
		s.failPayment(ctx, *booking, "order id does not match booking")
		return domain.VerifyPaymentResponse{}, paymentdomain.ErrSignatureMismatch
	}
	if err := s.gateway.VerifySignature(req.OrderID, req.PaymentID, req.Signature); err != nil {
		if errors.Is(err, paymentdomain.ErrSignatureMismatch) {
			s.failPayment(ctx, *booking, "signature mismatch")
		}
		return domain.VerifyPaymentResponse{}, err
	}

	now := s.clock.Now()
	if booking.HoldExpiresAt != nil && booking.HoldExpiresAt.Before(now) {
		log.Warn("payment verified after seat hold expired", zap.Time("hold_expires_at", *booking.HoldExpiresAt))
	}

	var (
		confirmed bookingdomain.Booking
		payment   paymentdomain.Payment
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.bookings.FindByRefForUpdate(ctx, tx, req.BookingID)
		if err != nil {
			return err
		}
		if locked == nil {
			return bookingdomain.ErrNotFound
		}
		existing, err := s.payments.FindByGatewayPaymentID(ctx, tx, req.PaymentID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrPaymentAlreadyUsed
		}
		if err := locked.Transition(bookingdomain.StatusConfirmed); err != nil {
			return err
		}

		payment = paymentdomain.Payment{
			ID:               s.genID.Generate(),
			BookingID:        locked.ID,
			BookingRef:       locked.BookingRef,
			Gateway:          s.gateway.Name(),
			GatewayOrderID:   req.OrderID,
			GatewayPaymentID: req.PaymentID,
			GatewaySignature: req.Signature,
			Amount:           locked.TotalAmount,
			Currency:         locked.Currency,
			Status:           paymentdomain.StatusCompleted,
			CustomerName:     locked.CustomerName,
			CustomerEmail:    locked.CustomerEmail,
			CustomerPhone:    locked.CustomerPhone,
			EventID:          locked.EventID,
			EventTitle:       locked.EventTitle,
			EventDate:        locked.EventDate,
			Participants:     locked.Participants,
			PaidAt:           now,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := s.payments.Insert(ctx, tx, &payment); err != nil {
			if dbpkg.IsDuplicateKeyErr(err) {
				return domain.ErrPaymentAlreadyUsed
			}
			return err
		}

		locked.GatewayPaymentID = req.PaymentID
		locked.PaymentStatus = bookingdomain.PaymentStatusCompleted
		locked.PaidAt = &now
		locked.HoldExpiresAt = nil
		locked.UpdatedAt = now
		if err := s.bookings.Update(ctx, tx, locked); err != nil {
			return err
		}
		confirmed = *locked
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrPaymentAlreadyUsed) {
			log.Warn("gateway payment already recorded against another booking")
		}
		return domain.VerifyPaymentResponse{}, err
	}

	s.notifier.Notify(ctx, notification.Notice{
		Kind:    bookingdomain.CommPaymentConfirmed,
		Booking: confirmed,
		Payment: &payment,
	})
	s.metrics.RecordPaymentVerification(ctx, s.gateway.Name(), "confirmed")
	log.Info("payment verified", zap.Int64("amount", payment.Amount))
	return verifyResponse(confirmed, payment), nil
}

func (s *Service) failPayment(ctx context.Context, booking bookingdomain.Booking, reason string) {
	booking.PaymentStatus = bookingdomain.PaymentStatusFailed
	booking.UpdatedAt = s.clock.Now()
	if err := s.bookings.Update(ctx, s.db, &booking); err != nil {
		s.log.Error("failed to mark payment failed", zap.String("booking_ref", booking.BookingRef), zap.Error(err))
	}
	s.notifier.Notify(ctx, notification.Notice{
		Kind:    bookingdomain.CommPaymentFailed,
		Booking: booking,
		Reason:  reason,
	})
	s.metrics.RecordPaymentVerification(ctx, s.gateway.Name(), "failed")
	s.log.Warn("payment verification failed",
		zap.String("booking_ref", booking.BookingRef),
		zap.String("reason", reason),
	)
}

func (s *Service) CancelBooking(ctx context.Context, req domain.CancelBookingRequest) (domain.CancelBookingResponse, error) {
	req.BookingID = normalizeRef(req.BookingID)
	req.Reason = strings.TrimSpace(req.Reason)
	if err := validation.Struct(req); err != nil {
		return domain.CancelBookingResponse{}, err
	}
	if req.Reason == "" {
		req.Reason = domain.ReasonCustomerRequest
	}

	var cancelled bookingdomain.Booking
	err := s.withBookingLock(ctx, req.BookingID, func() error {
		var (
			payment *paymentdomain.Payment
			err     error
		)
		cancelled, payment, err = s.cancel(ctx, req)
		if err != nil {
			return err
		}

		s.notifier.Notify(ctx, notification.Notice{
			Kind:    bookingdomain.CommCancellation,
			Booking: cancelled,
			Payment: payment,
			Reason:  req.Reason,
		})
		s.audit(ctx, "booking.cancel", cancelled, map[string]any{
			"reason":        req.Reason,
			"refund_amount": cancelled.RefundAmount,
		})
		s.metrics.RecordCancellation(ctx, domain.ReasonCustomerRequest)

		if cancelled.RefundStatus != bookingdomain.RefundStatusPending {
			return nil
		}
		settled, err := s.settle(ctx, cancelled.BookingRef)
		if err != nil {
			s.log.Warn("immediate refund failed, leaving it for the scheduler",
				zap.String("booking_ref", cancelled.BookingRef),
				zap.Error(err),
			)
			return nil
		}
		cancelled = settled
		return nil
	})
	if err != nil {
		return domain.CancelBookingResponse{}, err
	}

	return domain.CancelBookingResponse{
		BookingID:    cancelled.BookingRef,
		Status:       cancelled.Status,
		RefundAmount: cancelled.RefundAmount,
		RefundStatus: cancelled.RefundStatus,
	}, nil
}

func (s *Service) cancel(
	ctx context.Context,
	req domain.CancelBookingRequest,
) (bookingdomain.Booking, *paymentdomain.Payment, error) {
	var (
		cancelled bookingdomain.Booking
		payment   *paymentdomain.Payment
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.bookings.FindByRefForUpdate(ctx, tx, req.BookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return bookingdomain.ErrNotFound
		}

		now := s.clock.Now()
		if !bookingdomain.CanCancel(*booking, now) {
			return bookingdomain.ErrCancellationNotAllowed
		}
		refund := bookingdomain.RefundAmount(booking.TotalAmount, bookingdomain.DaysUntil(booking.EventDate, now))

		if err := booking.Transition(bookingdomain.StatusCancelled); err != nil {
			return err
		}
		booking.CancelledAt = &now
		booking.CancellationReason = req.Reason
		booking.RefundAmount = refund
		booking.RefundStatus = bookingdomain.RefundStatusCompleted
		if refund > 0 {
			booking.RefundStatus = bookingdomain.RefundStatusPending
		}
		booking.UpdatedAt = now
		if err := s.bookings.Update(ctx, tx, booking); err != nil {
			return err
		}

		payment, err = s.payments.FindByBookingID(ctx, tx, booking.ID)
		if err != nil {
			return err
		}
		if payment != nil {
			payment.RefundAmount = refund
			payment.RefundStatus = string(booking.RefundStatus)
			payment.RefundReason = req.Reason
			payment.RefundRequestedAt = &now
			payment.UpdatedAt = now
			if err := s.payments.Update(ctx, tx, payment); err != nil {
				return err
			}
		}
		cancelled = *booking
		return nil
	})
	if err != nil {
		return bookingdomain.Booking{}, nil, err
	}
	return cancelled, payment, nil
}

func (s *Service) SettleRefund(ctx context.Context, ref string) (bookingdomain.Booking, error) {
	ref = normalizeRef(ref)
	var settled bookingdomain.Booking
	err := s.withBookingLock(ctx, ref, func() error {
		out, err := s.settle(ctx, ref)
		settled = out
		return err
	})
	return settled, err
}

// settle issues the gateway refund for a cancelled booking and marks both
// records refunded. Callers must hold the booking lock.
func (s *Service) settle(ctx context.Context, ref string) (bookingdomain.Booking, error) {
	booking, err := s.bookings.FindByRef(ctx, s.db, ref)
	if err != nil {
		return bookingdomain.Booking{}, err
	}
	if booking == nil {
		return bookingdomain.Booking{}, bookingdomain.ErrNotFound
	}
	if booking.Status != bookingdomain.StatusCancelled || booking.RefundStatus != bookingdomain.RefundStatusPending {
		return *booking, fmt.Errorf("%w: no pending refund on %s booking", bookingdomain.ErrInvalidTransition, booking.Status)
	}

	payment, err := s.payments.FindByBookingID(ctx, s.db, booking.ID)
	if err != nil {
		return *booking, err
	}
	if payment == nil {
		return *booking, domain.ErrPaymentMissing
	}

	refund, err := s.gateway.Refund(ctx, paymentdomain.RefundRequest{
		PaymentID:      payment.GatewayPaymentID,
		Amount:         booking.RefundAmount,
		IdempotencyKey: "refund-" + booking.BookingRef,
		Notes: map[string]string{
			"booking_ref": booking.BookingRef,
			"reason":      booking.CancellationReason,
		},
	})
	if err != nil {
		s.metrics.RecordRefund(ctx, "failed", booking.RefundAmount)
		return *booking, err
	}

	var refunded bookingdomain.Booking
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.bookings.FindByRefForUpdate(ctx, tx, ref)
		if err != nil {
			return err
		}
		if locked == nil {
			return bookingdomain.ErrNotFound
		}
		now := s.clock.Now()
		if err := locked.Transition(bookingdomain.StatusRefunded); err != nil {
			return err
		}
		locked.RefundStatus = bookingdomain.RefundStatusCompleted
		locked.RefundedAt = &now
		locked.UpdatedAt = now
		if err := s.bookings.Update(ctx, tx, locked); err != nil {
			return err
		}

		payment.Status = paymentdomain.StatusRefunded
		payment.RefundStatus = string(bookingdomain.RefundStatusCompleted)
		payment.GatewayRefundID = refund.ID
		payment.RefundedAt = &now
		payment.UpdatedAt = now
		if err := s.payments.Update(ctx, tx, payment); err != nil {
			return err
		}
		refunded = *locked
		return nil
	})
	if err != nil {
		return *booking, err
	}

	s.notifier.Notify(ctx, notification.Notice{
		Kind:    bookingdomain.CommRefund,
		Booking: refunded,
		Payment: payment,
	})
	s.metrics.RecordRefund(ctx, "completed", refunded.RefundAmount)
	s.log.Info("refund settled",
		zap.String("booking_ref", refunded.BookingRef),
		zap.String("gateway_refund_id", refund.ID),
		zap.Int64("refund_amount", refunded.RefundAmount),
	)
	return refunded, nil
}

func (s *Service) Abandon(ctx context.Context, ref string) (bookingdomain.Booking, error) {
	ref = normalizeRef(ref)
	var abandoned bookingdomain.Booking
	err := s.withBookingLock(ctx, ref, func() error {
		out, err := s.transition(ctx, ref, func(b *bookingdomain.Booking, now time.Time) error {
			if b.Status != bookingdomain.StatusPending || b.HoldsSeats(now) {
				return fmt.Errorf("%w: checkout still active", bookingdomain.ErrInvalidTransition)
			}
			if err := b.Transition(bookingdomain.StatusCancelled); err != nil {
				return err
			}
			b.CancelledAt = &now
			b.CancellationReason = domain.ReasonCheckoutAbandoned
			return nil
		})
		abandoned = out
		return err
	})
	if err != nil {
		return bookingdomain.Booking{}, err
	}

	s.notifier.Notify(ctx, notification.Notice{
		Kind:    bookingdomain.CommCancellation,
		Booking: abandoned,
		Reason:  domain.ReasonCheckoutAbandoned,
	})
	s.audit(ctx, "booking.abandon", abandoned, nil)
	s.metrics.RecordCancellation(ctx, domain.ReasonCheckoutAbandoned)
	return abandoned, nil
}

func (s *Service) Complete(ctx context.Context, ref string) (bookingdomain.Booking, error) {
	ref = normalizeRef(ref)
	var completed bookingdomain.Booking
	err := s.withBookingLock(ctx, ref, func() error {
		out, err := s.transition(ctx, ref, func(b *bookingdomain.Booking, now time.Time) error {
			if b.EventDate.After(now) {
				return fmt.Errorf("%w: event has not happened yet", bookingdomain.ErrInvalidTransition)
			}
			return b.Transition(bookingdomain.StatusCompleted)
		})
		completed = out
		return err
	})
	if err != nil {
		return bookingdomain.Booking{}, err
	}

	s.notifier.Notify(ctx, notification.Notice{Kind: bookingdomain.CommCompleted, Booking: completed})
	return completed, nil
}

func (s *Service) SendReminder(ctx context.Context, ref string) (bookingdomain.Booking, error) {
	ref = normalizeRef(ref)
	var reminded bookingdomain.Booking
	err := s.withBookingLock(ctx, ref, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			booking, err := s.bookings.FindByRefForUpdate(ctx, tx, ref)
			if err != nil {
				return err
			}
			if booking == nil {
				return bookingdomain.ErrNotFound
			}
			if booking.Status != bookingdomain.StatusConfirmed || booking.ReminderSentAt != nil {
				return fmt.Errorf("%w: reminder not due for %s booking", bookingdomain.ErrInvalidTransition, booking.Status)
			}
			now := s.clock.Now()
			booking.ReminderSentAt = &now
			booking.UpdatedAt = now
			if err := s.bookings.Update(ctx, tx, booking); err != nil {
				return err
			}
			reminded = *booking
			return nil
		})
	})
	if err != nil {
		return bookingdomain.Booking{}, err
	}

	s.notifier.Notify(ctx, notification.Notice{Kind: bookingdomain.CommReminder, Booking: reminded})
	return reminded, nil
}

// transition applies a status change to a booking inside a row-locked
// transaction.
func (s *Service) transition(
	ctx context.Context,
	ref string,
	apply func(b *bookingdomain.Booking, now time.Time) error,
) (bookingdomain.Booking, error) {
	var out bookingdomain.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.bookings.FindByRefForUpdate(ctx, tx, ref)
		if err != nil {
			return err
		}
		if booking == nil {
			return bookingdomain.ErrNotFound
		}
		now := s.clock.Now()
		if err := apply(booking, now); err != nil {
			return err
		}
		booking.UpdatedAt = now
		if err := s.bookings.Update(ctx, tx, booking); err != nil {
			return err
		}
		out = *booking
		return nil
	})
	return out, err
}

func (s *Service) GetBooking(ctx context.Context, ref string) (domain.BookingDetails, error) {
	booking, err := s.bookingSvc.GetByRef(ctx, ref)
	if err != nil {
		return domain.BookingDetails{}, err
	}
	payment, err := s.paymentSvc.FindByBookingID(ctx, booking.ID)
	if err != nil {
		return domain.BookingDetails{}, err
	}
	return domain.BookingDetails{Booking: booking, Payment: payment}, nil
}

func (s *Service) ListBookings(ctx context.Context, email string) ([]bookingdomain.Booking, error) {
	return s.bookingSvc.ListByEmail(ctx, email)
}

func (s *Service) GetPayment(ctx context.Context, id string) (paymentdomain.Payment, error) {
	return s.paymentSvc.GetByID(ctx, id)
}

func (s *Service) Receipt(ctx context.Context, ref string) ([]byte, error) {
	details, err := s.GetBooking(ctx, ref)
	if err != nil {
		return nil, err
	}
	if details.Booking.Status == bookingdomain.StatusPending || details.Payment == nil {
		return nil, domain.ErrReceiptUnavailable
	}

	reader, err := s.pdf.GenerateReceipt(ctx, notification.ReceiptData(details.Booking, details.Payment))
	if errors.Is(err, pdf.ErrDisabled) {
		return nil, domain.ErrReceiptUnavailable
	}
	if err != nil {
		return nil, err
	}
	return io.ReadAll(reader)
}

func (s *Service) withBookingLock(ctx context.Context, ref string, fn func() error) error {
	return s.locker.WithLock(ctx, "checkout:booking:"+ref, lockTTL, lockWait, fn)
}

func (s *Service) audit(ctx context.Context, action string, booking bookingdomain.Booking, extra map[string]any) {
	if s.auditSvc == nil {
		return
	}
	metadata := map[string]any{
		"booking_id": booking.ID.String(),
		"status":     string(booking.Status),
	}
	for k, v := range extra {
		metadata[k] = v
	}
	if err := s.auditSvc.AuditLog(ctx, action, "booking", booking.BookingRef, metadata); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}

func (s *Service) orderResponse(b bookingdomain.Booking) domain.CreateOrderResponse {
	return domain.CreateOrderResponse{
		Order: domain.Order{
			ID:       b.GatewayOrderID,
			Amount:   b.TotalAmount,
			Currency: b.Currency,
			Receipt:  b.BookingRef,
			Key:      s.gateway.KeyID(),
		},
		BookingID: b.BookingRef,
		Quote:     quoteOf(b),
		Event:     eventSummary(b),
	}
}

func verifyResponse(b bookingdomain.Booking, p paymentdomain.Payment) domain.VerifyPaymentResponse {
	return domain.VerifyPaymentResponse{
		BookingID: b.BookingRef,
		PaymentID: p.ID.String(),
		Status:    string(b.Status),
		Amount:    p.Amount,
		Currency:  p.Currency,
		Event:     eventSummary(b),
	}
}

func eventSummary(b bookingdomain.Booking) domain.EventSummary {
	return domain.EventSummary{
		ID:       b.EventID.String(),
		Title:    b.EventTitle,
		Date:     b.EventDate,
		Location: b.EventLocation,
		Duration: b.EventDuration,
	}
}

func quoteOf(b bookingdomain.Booking) bookingdomain.Quote {
	return bookingdomain.Quote{
		PricePerPerson: b.EventPrice * bookingdomain.PaisePerRupee,
		Participants:   b.Participants,
		BaseAmount:     b.BaseAmount,
		DiscountAmount: b.DiscountAmount,
		Subtotal:       b.BaseAmount - b.DiscountAmount,
		BookingFee:     b.BookingFee,
		ProcessingFee:  b.ProcessingFee,
		TaxAmount:      b.TaxAmount,
		TotalAmount:    b.TotalAmount,
		Currency:       b.Currency,
	}
}

func normalizeRef(ref string) string {
	return strings.ToUpper(strings.TrimSpace(ref))
}
