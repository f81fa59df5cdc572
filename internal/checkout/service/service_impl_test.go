package service_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	auditrepo "github.com/smallbiznis/trailbook/internal/audit/repository"
	auditservice "github.com/smallbiznis/trailbook/internal/audit/service"
	bookingdomain "github.com/smallbiznis/trailbook/internal/booking/domain"
	bookingrepo "github.com/smallbiznis/trailbook/internal/booking/repository"
	bookingservice "github.com/smallbiznis/trailbook/internal/booking/service"
	"github.com/smallbiznis/trailbook/internal/cache"
	"github.com/smallbiznis/trailbook/internal/checkout/domain"
	"github.com/smallbiznis/trailbook/internal/checkout/service"
	"github.com/smallbiznis/trailbook/internal/clock"
	"github.com/smallbiznis/trailbook/internal/config"
	eventdomain "github.com/smallbiznis/trailbook/internal/event/domain"
	eventrepo "github.com/smallbiznis/trailbook/internal/event/repository"
	eventservice "github.com/smallbiznis/trailbook/internal/event/service"
	"github.com/smallbiznis/trailbook/internal/notification"
	paymentdomain "github.com/smallbiznis/trailbook/internal/payment/domain"
	"github.com/smallbiznis/trailbook/internal/payment/gateway/mock"
	"github.com/smallbiznis/trailbook/internal/payment/gateway/razorpay"
	paymentrepo "github.com/smallbiznis/trailbook/internal/payment/repository"
	paymentservice "github.com/smallbiznis/trailbook/internal/payment/service"
	"github.com/smallbiznis/trailbook/internal/providers/broker"
	"github.com/smallbiznis/trailbook/internal/providers/email"
	"github.com/smallbiznis/trailbook/internal/providers/pdf"
	"github.com/smallbiznis/trailbook/internal/testutil"
	"github.com/smallbiznis/trailbook/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const gatewaySecret = "rzp_test_secret"

type fakeGateway struct {
	orders    int
	refunds   []paymentdomain.RefundRequest
	refundErr error
}

func (g *fakeGateway) Name() string  { return "razorpay" }
func (g *fakeGateway) KeyID() string { return "rzp_test_key" }

func (g *fakeGateway) CreateOrder(_ context.Context, req paymentdomain.OrderRequest) (paymentdomain.Order, error) {
	g.orders++
	return paymentdomain.Order{
		ID:       fmt.Sprintf("order_%d", g.orders),
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
	}, nil
}

func (g *fakeGateway) VerifySignature(orderID, paymentID, signature string) error {
	if razorpay.Sign(gatewaySecret, orderID, paymentID) != signature {
		return paymentdomain.ErrSignatureMismatch
	}
	return nil
}

func (g *fakeGateway) Refund(_ context.Context, req paymentdomain.RefundRequest) (paymentdomain.Refund, error) {
	if g.refundErr != nil {
		return paymentdomain.Refund{}, g.refundErr
	}
	g.refunds = append(g.refunds, req)
	return paymentdomain.Refund{
		ID:        fmt.Sprintf("rfnd_%d", len(g.refunds)),
		PaymentID: req.PaymentID,
		Amount:    req.Amount,
		Status:    "processed",
	}, nil
}

type fixture struct {
	db       *gorm.DB
	clock    *clock.FakeClock
	svc      domain.Service
	bookings bookingdomain.Repository
	payments paymentdomain.Repository
}

func newFixture(t *testing.T, gateway paymentdomain.Gateway) fixture {
	t.Helper()
	db := testutil.OpenDB(t)
	log := zap.NewNop()
	clk := clock.NewFakeClock(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC))
	bookings := bookingrepo.Provide()
	payments := paymentrepo.Provide()
	pricing := config.NewStaticPricingHolder(config.DefaultPricingConfig())
	pdfProvider := pdf.New()

	cfg := config.Config{Checkout: config.CheckoutConfig{HoldTTL: 15 * time.Minute, AbandonAfter: 24 * time.Hour}}
	auditSvc := auditservice.NewService(auditservice.Params{
		DB: db, Log: log, GenID: testutil.Node(), Clock: clk, Repo: auditrepo.Provide(),
	})

	svc := service.New(service.Params{
		DB:         db,
		Log:        log,
		Clock:      clk,
		GenID:      testutil.Node(),
		Cfg:        cfg,
		Pricing:    pricing,
		BookingSvc: bookingservice.New(bookingservice.Params{DB: db, Log: log, Repo: bookings, Pricing: pricing}),
		Bookings:   bookings,
		EventSvc: eventservice.New(eventservice.Params{
			DB: db, Log: log, GenID: testutil.Node(), Clock: clk,
			Repo: eventrepo.Provide(), Bookings: bookings, Cache: cache.NewEventCache(nil, 0, nil),
		}),
		PaymentSvc: paymentservice.NewService(paymentservice.Params{DB: db, Log: log, Repo: payments}),
		Payments:   payments,
		Gateway:    gateway,
		Notifier: notification.New(notification.Params{
			DB: db, Log: log, GenID: testutil.Node(), Clock: clk, Bookings: bookings,
			Email: &email.NoOpProvider{}, PDF: pdfProvider, Publisher: broker.NoopPublisher{},
		}),
		PDF:      pdfProvider,
		AuditSvc: auditSvc,
	})
	return fixture{db: db, clock: clk, svc: svc, bookings: bookings, payments: payments}
}

func (f fixture) seedEvent(t *testing.T, event eventdomain.Event) eventdomain.Event {
	t.Helper()
	if event.NextDate.IsZero() {
		event.NextDate = f.clock.Now().AddDate(0, 0, 30)
	}
	return testutil.SeedEvent(t, f.db, event)
}

// seedPaid inserts a confirmed booking with its payment record.
func (f fixture) seedPaid(t *testing.T, event eventdomain.Event) bookingdomain.Booking {
	t.Helper()
	paidAt := f.clock.Now().Add(-time.Hour)
	booking := testutil.SeedBooking(t, f.db, event, bookingdomain.Booking{
		Status:           bookingdomain.StatusConfirmed,
		GatewayOrderID:   "order_seed",
		GatewayPaymentID: "pay_seed_" + event.ID.String(),
		PaidAt:           &paidAt,
	})
	require.NoError(t, f.payments.Insert(context.Background(), f.db, &paymentdomain.Payment{
		ID:               testutil.Node().Generate(),
		BookingID:        booking.ID,
		BookingRef:       booking.BookingRef,
		Gateway:          "razorpay",
		GatewayOrderID:   booking.GatewayOrderID,
		GatewayPaymentID: booking.GatewayPaymentID,
		GatewaySignature: "sig",
		Amount:           booking.TotalAmount,
		Currency:         booking.Currency,
		Status:           paymentdomain.StatusCompleted,
		CustomerName:     booking.CustomerName,
		CustomerEmail:    booking.CustomerEmail,
		CustomerPhone:    booking.CustomerPhone,
		EventID:          booking.EventID,
		EventTitle:       booking.EventTitle,
		EventDate:        booking.EventDate,
		Participants:     booking.Participants,
		PaidAt:           paidAt,
		CreatedAt:        paidAt,
		UpdatedAt:        paidAt,
	}))
	return booking
}

func orderRequest(event eventdomain.Event, amount float64, participants int) domain.CreateOrderRequest {
	return domain.CreateOrderRequest{
		Amount:       amount,
		EventID:      event.ID.String(),
		Participants: participants,
		Customer: domain.Customer{
			Name:  "Asha Rao",
			Email: " Asha@Example.com ",
			Phone: "+919800000000",
		},
	}
}

func TestCreateOrderChargesServerTotal(t *testing.T) {
	ctx := context.Background()
	gateway := &fakeGateway{}
	f := newFixture(t, gateway)
	event := f.seedEvent(t, eventdomain.Event{Price: 1199})

	resp, err := f.svc.CreateOrder(ctx, orderRequest(event, 1287.25, 0))
	require.NoError(t, err)

	assert.Equal(t, "order_1", resp.Order.ID)
	assert.Equal(t, int64(128725), resp.Order.Amount)
	assert.Equal(t, "INR", resp.Order.Currency)
	assert.Equal(t, "rzp_test_key", resp.Order.Key)
	assert.Equal(t, resp.BookingID, resp.Order.Receipt)
	assert.Equal(t, event.Title, resp.Event.Title)
	assert.Equal(t, 1, resp.Quote.Participants)

	booking, err := f.bookings.FindByRef(ctx, f.db, resp.BookingID)
	require.NoError(t, err)
	require.NotNil(t, booking)
	assert.Equal(t, bookingdomain.StatusPending, booking.Status)
	assert.Equal(t, bookingdomain.PaymentStatusCreated, booking.PaymentStatus)
	assert.Equal(t, "asha@example.com", booking.CustomerEmail)
	require.NotNil(t, booking.HoldExpiresAt)
	assert.True(t, booking.HoldExpiresAt.Equal(f.clock.Now().Add(15*time.Minute)))

	comms, err := f.bookings.ListCommunications(ctx, f.db, booking.ID)
	require.NoError(t, err)
	require.Len(t, comms, 1)
	assert.Equal(t, bookingdomain.CommOrderCreated, comms[0].Kind)
}

func TestCreateOrderGroupDiscount(t *testing.T) {
	f := newFixture(t, &fakeGateway{})
	event := f.seedEvent(t, eventdomain.Event{Price: 1199})

	resp, err := f.svc.CreateOrder(context.Background(), orderRequest(event, 5822.58, 5))
	require.NoError(t, err)
	assert.Equal(t, int64(582258), resp.Order.Amount)
	assert.Equal(t, int64(59950), resp.Quote.DiscountAmount)
}

func TestCreateOrderRejectsAmountMismatch(t *testing.T) {
	gateway := &fakeGateway{}
	f := newFixture(t, gateway)
	event := f.seedEvent(t, eventdomain.Event{Price: 1199})

	_, err := f.svc.CreateOrder(context.Background(), orderRequest(event, 1199, 1))
	assert.ErrorIs(t, err, domain.ErrAmountMismatch)
	assert.Zero(t, gateway.orders)

	var mismatch *domain.AmountMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, int64(128725), mismatch.Quote.TotalAmount)

	// totals computed with the group discount applied after fees are rejected too
	_, err = f.svc.CreateOrder(context.Background(), orderRequest(event, 6436.74, 5))
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, int64(582258), mismatch.Quote.TotalAmount)
}

func TestCreateOrderIsIdempotent(t *testing.T) {
	ctx := context.Background()
	gateway := &fakeGateway{}
	f := newFixture(t, gateway)
	event := f.seedEvent(t, eventdomain.Event{Price: 1199})

	req := orderRequest(event, 1287.25, 1)
	req.IdempotencyKey = "idem-1"
	first, err := f.svc.CreateOrder(ctx, req)
	require.NoError(t, err)
	second, err := f.svc.CreateOrder(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.BookingID, second.BookingID)
	assert.Equal(t, first.Order.ID, second.Order.ID)
	assert.Equal(t, 1, gateway.orders)
}

func TestCreateOrderHoldsCapacity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &fakeGateway{})
	event := f.seedEvent(t, eventdomain.Event{Price: 1000, Capacity: 2})

	total := bookingdomain.NewQuote(1000, 2, bookingdomain.DefaultRates()).TotalAmount
	_, err := f.svc.CreateOrder(ctx, orderRequest(event, float64(total)/100, 2))
	require.NoError(t, err)

	single := bookingdomain.NewQuote(1000, 1, bookingdomain.DefaultRates()).TotalAmount
	_, err = f.svc.CreateOrder(ctx, orderRequest(event, float64(single)/100, 1))
	assert.ErrorIs(t, err, domain.ErrSoldOut)

	f.clock.Advance(16 * time.Minute)
	_, err = f.svc.CreateOrder(ctx, orderRequest(event, float64(single)/100, 1))
	assert.NoError(t, err)
}

func TestCreateOrderRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &fakeGateway{})
	event := f.seedEvent(t, eventdomain.Event{Price: 1199})
	archived := f.seedEvent(t, eventdomain.Event{Price: 1199, Status: eventdomain.StatusArchived})
	past := f.seedEvent(t, eventdomain.Event{Price: 1199, NextDate: f.clock.Now().AddDate(0, 0, -1)})

	req := orderRequest(event, 1287.25, 1)
	req.Customer.Email = "not-an-email"
	_, err := f.svc.CreateOrder(ctx, req)
	assert.ErrorIs(t, err, validation.ErrValidation)

	_, err = f.svc.CreateOrder(ctx, orderRequest(event, 1287.25, 21))
	assert.ErrorIs(t, err, bookingdomain.ErrInvalidParticipants)

	_, err = f.svc.CreateOrder(ctx, orderRequest(eventdomain.Event{ID: 42}, 1287.25, 1))
	assert.ErrorIs(t, err, eventdomain.ErrNotFound)

	_, err = f.svc.CreateOrder(ctx, orderRequest(archived, 1287.25, 1))
	assert.ErrorIs(t, err, eventdomain.ErrNotFound)

	_, err = f.svc.CreateOrder(ctx, orderRequest(past, 1287.25, 1))
	assert.ErrorIs(t, err, eventdomain.ErrNotBookable)
}

// blockingGateway holds CreateOrder for one event until release is closed.
type blockingGateway struct {
	fakeGateway

	mu      sync.Mutex
	blockOn string
	entered chan struct{}
	release chan struct{}
	err     error
}

func (g *blockingGateway) CreateOrder(ctx context.Context, req paymentdomain.OrderRequest) (paymentdomain.Order, error) {
	if req.Notes["event_id"] == g.blockOn {
		close(g.entered)
		<-g.release
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return paymentdomain.Order{}, g.err
	}
	return g.fakeGateway.CreateOrder(ctx, req)
}

func TestCreateOrderDoesNotHoldLockDuringGatewayCall(t *testing.T) {
	ctx := context.Background()
	gateway := &blockingGateway{entered: make(chan struct{}), release: make(chan struct{})}
	f := newFixture(t, gateway)
	slow := f.seedEvent(t, eventdomain.Event{Price: 1000, Capacity: 1})
	other := f.seedEvent(t, eventdomain.Event{Price: 1199})
	gateway.blockOn = slow.ID.String()

	single := bookingdomain.NewQuote(1000, 1, bookingdomain.DefaultRates()).TotalAmount
	slowDone := make(chan error, 1)
	go func() {
		_, err := f.svc.CreateOrder(ctx, orderRequest(slow, float64(single)/100, 1))
		slowDone <- err
	}()
	<-gateway.entered

	otherDone := make(chan error, 1)
	go func() {
		_, err := f.svc.CreateOrder(ctx, orderRequest(other, 1287.25, 1))
		otherDone <- err
	}()
	select {
	case err := <-otherDone:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		close(gateway.release)
		t.Fatal("order on another event waited for a gateway call in flight")
	}

	// the seat is already held while the gateway call is in flight
	_, err := f.svc.CreateOrder(ctx, orderRequest(slow, float64(single)/100, 1))
	assert.ErrorIs(t, err, domain.ErrSoldOut)

	close(gateway.release)
	require.NoError(t, <-slowDone)
}

func TestCreateOrderGatewayFailureReleasesHold(t *testing.T) {
	ctx := context.Background()
	gateway := &blockingGateway{err: fmt.Errorf("%w: 503", paymentdomain.ErrGatewayRequest)}
	f := newFixture(t, gateway)
	event := f.seedEvent(t, eventdomain.Event{Price: 1000, Capacity: 1})
	single := bookingdomain.NewQuote(1000, 1, bookingdomain.DefaultRates()).TotalAmount

	_, err := f.svc.CreateOrder(ctx, orderRequest(event, float64(single)/100, 1))
	require.ErrorIs(t, err, paymentdomain.ErrGatewayRequest)

	var failed bookingdomain.Booking
	require.NoError(t, f.db.Where("event_id = ?", event.ID).Take(&failed).Error)
	assert.Equal(t, bookingdomain.StatusCancelled, failed.Status)
	assert.Equal(t, domain.ReasonGatewayOrderFailed, failed.CancellationReason)
	assert.Nil(t, failed.HoldExpiresAt)

	gateway.mu.Lock()
	gateway.err = nil
	gateway.mu.Unlock()
	resp, err := f.svc.CreateOrder(ctx, orderRequest(event, float64(single)/100, 1))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Order.ID)
}

func verifyRequest(order domain.CreateOrderResponse, paymentID string) domain.VerifyPaymentRequest {
	return domain.VerifyPaymentRequest{
		OrderID:   order.Order.ID,
		PaymentID: paymentID,
		Signature: razorpay.Sign(gatewaySecret, order.Order.ID, paymentID),
		BookingID: order.BookingID,
	}
}

func TestVerifyPaymentConfirmsBooking(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &fakeGateway{})
	event := f.seedEvent(t, eventdomain.Event{Price: 1199})
	order, err := f.svc.CreateOrder(ctx, orderRequest(event, 1287.25, 1))
	require.NoError(t, err)

	resp, err := f.svc.VerifyPayment(ctx, verifyRequest(order, "pay_1"))
	require.NoError(t, err)
	assert.Equal(t, string(bookingdomain.StatusConfirmed), resp.Status)
	assert.Equal(t, int64(128725), resp.Amount)

	details, err := f.svc.GetBooking(ctx, order.BookingID)
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.StatusConfirmed, details.Booking.Status)
	assert.Equal(t, bookingdomain.PaymentStatusCompleted, details.Booking.PaymentStatus)
	assert.Nil(t, details.Booking.HoldExpiresAt)
	require.NotNil(t, details.Payment)
	assert.Equal(t, "pay_1", details.Payment.GatewayPaymentID)
	assert.Equal(t, resp.PaymentID, details.Payment.ID.String())

	again, err := f.svc.VerifyPayment(ctx, verifyRequest(order, "pay_1"))
	require.NoError(t, err)
	assert.Equal(t, resp.PaymentID, again.PaymentID)

	forged := verifyRequest(order, "pay_1")
	forged.Signature = "0000"
	_, err = f.svc.VerifyPayment(ctx, forged)
	assert.ErrorIs(t, err, paymentdomain.ErrSignatureMismatch)
	forged = verifyRequest(order, "pay_1")
	forged.OrderID = "order_other"
	_, err = f.svc.VerifyPayment(ctx, forged)
	assert.ErrorIs(t, err, paymentdomain.ErrSignatureMismatch)

	var count int64
	require.NoError(t, f.db.Model(&paymentdomain.Payment{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	comms, err := f.bookings.ListCommunications(ctx, f.db, details.Booking.ID)
	require.NoError(t, err)
	kinds := make([]bookingdomain.CommunicationKind, 0, len(comms))
	for _, c := range comms {
		if c.Channel == bookingdomain.ChannelSystem {
			kinds = append(kinds, c.Kind)
		}
	}
	assert.Equal(t, []bookingdomain.CommunicationKind{
		bookingdomain.CommOrderCreated,
		bookingdomain.CommPaymentConfirmed,
	}, kinds)
}

func TestVerifyPaymentSignatureMismatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &fakeGateway{})
	event := f.seedEvent(t, eventdomain.Event{Price: 1199})
	order, err := f.svc.CreateOrder(ctx, orderRequest(event, 1287.25, 1))
	require.NoError(t, err)

	req := verifyRequest(order, "pay_1")
	req.Signature = "deadbeef"
	_, err = f.svc.VerifyPayment(ctx, req)
	assert.ErrorIs(t, err, paymentdomain.ErrSignatureMismatch)

	req = verifyRequest(order, "pay_1")
	req.OrderID = "order_other"
	_, err = f.svc.VerifyPayment(ctx, req)
	assert.ErrorIs(t, err, paymentdomain.ErrSignatureMismatch)

	booking, err := f.bookings.FindByRef(ctx, f.db, order.BookingID)
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.StatusPending, booking.Status)
	assert.Equal(t, bookingdomain.PaymentStatusFailed, booking.PaymentStatus)

	var count int64
	require.NoError(t, f.db.Model(&paymentdomain.Payment{}).Count(&count).Error)
	assert.Zero(t, count)

	// The customer may retry while the booking is still pending.
	_, err = f.svc.VerifyPayment(ctx, verifyRequest(order, "pay_2"))
	assert.NoError(t, err)
}

func TestVerifyPaymentRejectsMissingFieldsAndUnknownBooking(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &fakeGateway{})

	_, err := f.svc.VerifyPayment(ctx, domain.VerifyPaymentRequest{BookingID: "TRVX"})
	assert.ErrorIs(t, err, validation.ErrValidation)

	_, err = f.svc.VerifyPayment(ctx, domain.VerifyPaymentRequest{
		OrderID: "order_1", PaymentID: "pay_1", Signature: "sig", BookingID: "TRVMISSING0000",
	})
	assert.ErrorIs(t, err, bookingdomain.ErrNotFound)
}

func TestVerifyPaymentAfterAbandonIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &fakeGateway{})
	event := f.seedEvent(t, eventdomain.Event{Price: 1199})
	order, err := f.svc.CreateOrder(ctx, orderRequest(event, 1287.25, 1))
	require.NoError(t, err)

	_, err = f.svc.Abandon(ctx, order.BookingID)
	assert.ErrorIs(t, err, bookingdomain.ErrInvalidTransition)

	f.clock.Advance(25 * time.Hour)
	abandoned, err := f.svc.Abandon(ctx, order.BookingID)
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.StatusCancelled, abandoned.Status)
	assert.Equal(t, domain.ReasonCheckoutAbandoned, abandoned.CancellationReason)

	_, err = f.svc.VerifyPayment(ctx, verifyRequest(order, "pay_1"))
	assert.ErrorIs(t, err, bookingdomain.ErrInvalidTransition)
}

func TestCancelBookingSettlesRefundImmediately(t *testing.T) {
	ctx := context.Background()
	gateway := &fakeGateway{}
	f := newFixture(t, gateway)
	event := f.seedEvent(t, eventdomain.Event{Price: 1199, NextDate: f.clock.Now().AddDate(0, 0, 10)})
	booking := f.seedPaid(t, event)

	resp, err := f.svc.CancelBooking(ctx, domain.CancelBookingRequest{BookingID: booking.BookingRef, Reason: "change of plans"})
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.StatusRefunded, resp.Status)
	assert.Equal(t, int64(115853), resp.RefundAmount)
	assert.Equal(t, bookingdomain.RefundStatusCompleted, resp.RefundStatus)

	require.Len(t, gateway.refunds, 1)
	assert.Equal(t, int64(115853), gateway.refunds[0].Amount)
	assert.Equal(t, "refund-"+booking.BookingRef, gateway.refunds[0].IdempotencyKey)

	payment, err := f.payments.FindByBookingID(ctx, f.db, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusRefunded, payment.Status)
	assert.Equal(t, "rfnd_1", payment.GatewayRefundID)
	assert.Equal(t, "change of plans", payment.RefundReason)

	var audits int64
	require.NoError(t, f.db.Table("audit_logs").Where("action = ?", "booking.cancel").Count(&audits).Error)
	assert.Equal(t, int64(1), audits)
}

func TestCancelBookingHalfRefundTier(t *testing.T) {
	f := newFixture(t, &fakeGateway{})
	event := f.seedEvent(t, eventdomain.Event{Price: 1199, NextDate: f.clock.Now().AddDate(0, 0, 5)})
	booking := f.seedPaid(t, event)

	resp, err := f.svc.CancelBooking(context.Background(), domain.CancelBookingRequest{BookingID: booking.BookingRef})
	require.NoError(t, err)
	assert.Equal(t, int64(64363), resp.RefundAmount)
}

func TestCancelBookingInsideWindowIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &fakeGateway{})
	event := f.seedEvent(t, eventdomain.Event{Price: 1199, NextDate: f.clock.Now().AddDate(0, 0, 2)})
	booking := f.seedPaid(t, event)

	_, err := f.svc.CancelBooking(ctx, domain.CancelBookingRequest{BookingID: booking.BookingRef})
	assert.ErrorIs(t, err, bookingdomain.ErrCancellationNotAllowed)

	stored, err := f.bookings.FindByRef(ctx, f.db, booking.BookingRef)
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.StatusConfirmed, stored.Status)
}

func TestCancelBookingRefundFailureStaysPending(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	gateway := mock.NewMockGateway(ctrl)
	gateway.EXPECT().Name().Return("razorpay").AnyTimes()

	f := newFixture(t, gateway)
	event := f.seedEvent(t, eventdomain.Event{Price: 1199, NextDate: f.clock.Now().AddDate(0, 0, 10)})
	booking := f.seedPaid(t, event)

	gomock.InOrder(
		gateway.EXPECT().Refund(gomock.Any(), gomock.Any()).
			Return(paymentdomain.Refund{}, paymentdomain.ErrGatewayRequest),
		gateway.EXPECT().Refund(gomock.Any(), gomock.Any()).
			Return(paymentdomain.Refund{ID: "rfnd_late", Status: "processed"}, nil),
	)

	resp, err := f.svc.CancelBooking(ctx, domain.CancelBookingRequest{BookingID: booking.BookingRef})
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.StatusCancelled, resp.Status)
	assert.Equal(t, bookingdomain.RefundStatusPending, resp.RefundStatus)

	pending, err := f.bookings.ListPendingRefunds(ctx, f.db, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	settled, err := f.svc.SettleRefund(ctx, booking.BookingRef)
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.StatusRefunded, settled.Status)
	assert.Equal(t, bookingdomain.RefundStatusCompleted, settled.RefundStatus)

	_, err = f.svc.SettleRefund(ctx, booking.BookingRef)
	assert.ErrorIs(t, err, bookingdomain.ErrInvalidTransition)
}

func TestCompleteAndRemind(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &fakeGateway{})
	event := f.seedEvent(t, eventdomain.Event{Price: 1199, NextDate: f.clock.Now().AddDate(0, 0, 2)})
	booking := f.seedPaid(t, event)

	_, err := f.svc.Complete(ctx, booking.BookingRef)
	assert.ErrorIs(t, err, bookingdomain.ErrInvalidTransition)

	reminded, err := f.svc.SendReminder(ctx, booking.BookingRef)
	require.NoError(t, err)
	require.NotNil(t, reminded.ReminderSentAt)
	_, err = f.svc.SendReminder(ctx, booking.BookingRef)
	assert.ErrorIs(t, err, bookingdomain.ErrInvalidTransition)

	f.clock.Advance(72 * time.Hour)
	completed, err := f.svc.Complete(ctx, booking.BookingRef)
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.StatusCompleted, completed.Status)
}

func TestReceipt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &fakeGateway{})
	event := f.seedEvent(t, eventdomain.Event{Price: 1199})
	order, err := f.svc.CreateOrder(ctx, orderRequest(event, 1287.25, 1))
	require.NoError(t, err)

	_, err = f.svc.Receipt(ctx, order.BookingID)
	assert.ErrorIs(t, err, domain.ErrReceiptUnavailable)

	_, err = f.svc.VerifyPayment(ctx, verifyRequest(order, "pay_1"))
	require.NoError(t, err)

	data, err := f.svc.Receipt(ctx, order.BookingID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestListBookingsAndGetPayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &fakeGateway{})
	event := f.seedEvent(t, eventdomain.Event{Price: 1199})
	order, err := f.svc.CreateOrder(ctx, orderRequest(event, 1287.25, 1))
	require.NoError(t, err)
	verified, err := f.svc.VerifyPayment(ctx, verifyRequest(order, "pay_1"))
	require.NoError(t, err)

	list, err := f.svc.ListBookings(ctx, "ASHA@example.com")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, order.BookingID, list[0].BookingRef)

	payment, err := f.svc.GetPayment(ctx, verified.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, "pay_1", payment.GatewayPaymentID)

	_, err = f.svc.GetPayment(ctx, "pay_unknown")
	assert.True(t, errors.Is(err, paymentdomain.ErrNotFound))
}
