package notification_test

import (
	"context"
	"errors"
	"testing"
	"time"

	bookingdomain "github.com/smallbiznis/trailbook/internal/booking/domain"
	bookingrepo "github.com/smallbiznis/trailbook/internal/booking/repository"
	"github.com/smallbiznis/trailbook/internal/clock"
	eventdomain "github.com/smallbiznis/trailbook/internal/event/domain"
	"github.com/smallbiznis/trailbook/internal/notification"
	paymentdomain "github.com/smallbiznis/trailbook/internal/payment/domain"
	"github.com/smallbiznis/trailbook/internal/providers/broker"
	"github.com/smallbiznis/trailbook/internal/providers/email"
	"github.com/smallbiznis/trailbook/internal/providers/pdf"
	"github.com/smallbiznis/trailbook/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockEmail struct {
	mock.Mock
}

func (m *mockEmail) Send(ctx context.Context, msg email.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type published struct {
	key     string
	payload any
}

type recordingPublisher struct {
	messages []published
}

func (p *recordingPublisher) Publish(ctx context.Context, key string, payload any) error {
	p.messages = append(p.messages, published{key: key, payload: payload})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func TestFormatINR(t *testing.T) {
	assert.Equal(t, "INR 1,287.25", notification.FormatINR(128725))
	assert.Equal(t, "INR 5,822.58", notification.FormatINR(582258))
	assert.Equal(t, "INR 1,000,000.00", notification.FormatINR(100000000))
	assert.Equal(t, "INR 0.05", notification.FormatINR(5))
	assert.Equal(t, "-INR 539.55", notification.FormatINR(-53955))
}

func TestNotifyPaymentConfirmedSendsReceiptAndPublishes(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	repo := bookingrepo.Provide()
	event := testutil.SeedEvent(t, db, eventdomain.Event{})
	booking := testutil.SeedBooking(t, db, event, bookingdomain.Booking{GatewayPaymentID: "pay_1"})

	mailer := &mockEmail{}
	mailer.On("Send", mock.Anything, mock.MatchedBy(func(msg email.Message) bool {
		return len(msg.Attachments) == 1 &&
			msg.Attachments[0].ContentType == "application/pdf" &&
			msg.To[0] == booking.CustomerEmail
	})).Return(nil).Once()
	publisher := &recordingPublisher{}

	svc := notification.New(notification.Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     testutil.Node(),
		Clock:     clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		Bookings:  repo,
		Email:     mailer,
		PDF:       pdf.New(),
		Publisher: publisher,
	})

	svc.Notify(ctx, notification.Notice{
		Kind:    bookingdomain.CommPaymentConfirmed,
		Booking: booking,
		Payment: &paymentdomain.Payment{ID: 9, GatewayPaymentID: "pay_1", PaidAt: time.Now()},
	})

	mailer.AssertExpectations(t)
	require.Len(t, publisher.messages, 1)
	assert.Equal(t, broker.RoutingBookingConfirmed, publisher.messages[0].key)
	msg, ok := publisher.messages[0].payload.(notification.BookingMessage)
	require.True(t, ok)
	assert.Equal(t, booking.BookingRef, msg.BookingRef)

	comms, err := repo.ListCommunications(ctx, db, booking.ID)
	require.NoError(t, err)
	require.Len(t, comms, 2)
	assert.Equal(t, bookingdomain.ChannelSystem, comms[0].Channel)
	assert.Equal(t, bookingdomain.ChannelEmail, comms[1].Channel)
	assert.Equal(t, "pay_1", comms[0].Metadata["gateway_payment_id"])
}

func TestNotifyEmailFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	repo := bookingrepo.Provide()
	event := testutil.SeedEvent(t, db, eventdomain.Event{})
	booking := testutil.SeedBooking(t, db, event, bookingdomain.Booking{
		Status:             bookingdomain.StatusCancelled,
		CancellationReason: "change of plans",
		RefundAmount:       1000,
		RefundStatus:       bookingdomain.RefundStatusPending,
	})

	mailer := &mockEmail{}
	mailer.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()
	publisher := &recordingPublisher{}

	svc := notification.New(notification.Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     testutil.Node(),
		Clock:     clock.SystemClock{},
		Bookings:  repo,
		Email:     mailer,
		PDF:       &pdf.NoOpProvider{},
		Publisher: publisher,
	})
	svc.Notify(ctx, notification.Notice{Kind: bookingdomain.CommCancellation, Booking: booking})
	mailer.AssertExpectations(t)

	comms, err := repo.ListCommunications(ctx, db, booking.ID)
	require.NoError(t, err)
	require.Len(t, comms, 1)
	assert.Equal(t, bookingdomain.CommCancellation, comms[0].Kind)
	require.Len(t, publisher.messages, 1)
	assert.Equal(t, broker.RoutingBookingCancelled, publisher.messages[0].key)
}

func TestNotifyOrderCreatedOnlyRecords(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	repo := bookingrepo.Provide()
	event := testutil.SeedEvent(t, db, eventdomain.Event{})
	booking := testutil.SeedBooking(t, db, event, bookingdomain.Booking{
		Status:         bookingdomain.StatusPending,
		GatewayOrderID: "order_1",
	})

	mailer := &mockEmail{}
	publisher := &recordingPublisher{}
	svc := notification.New(notification.Params{
		DB: db, Log: zap.NewNop(), GenID: testutil.Node(), Clock: clock.SystemClock{},
		Bookings: repo, Email: mailer, PDF: &pdf.NoOpProvider{}, Publisher: publisher,
	})
	svc.Notify(ctx, notification.Notice{Kind: bookingdomain.CommOrderCreated, Booking: booking})

	mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	assert.Empty(t, publisher.messages)
	comms, err := repo.ListCommunications(ctx, db, booking.ID)
	require.NoError(t, err)
	require.Len(t, comms, 1)
	assert.Contains(t, comms[0].Message, "order_1")
}

func TestReceiptDataIncludesDiscountLine(t *testing.T) {
	b := bookingdomain.Booking{BookingRef: "TRV1", Status: bookingdomain.StatusConfirmed, Participants: 5, EventPrice: 1199}
	bookingdomain.NewQuote(1199, 5, bookingdomain.DefaultRates()).Apply(&b)

	data := notification.ReceiptData(b, nil)
	assert.Equal(t, "CONFIRMED", data.Status)
	assert.Equal(t, "INR 5,822.58", data.Total)
	labels := make([]string, 0, len(data.Lines))
	for _, l := range data.Lines {
		labels = append(labels, l.Label)
	}
	assert.Contains(t, labels, "Group discount")
	assert.Equal(t, "", data.RefundAmount)
}
