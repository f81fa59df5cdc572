package notification

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"time"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/smallbiznis/trailbook/internal/booking/domain"
	"github.com/smallbiznis/trailbook/internal/clock"
	paymentdomain "github.com/smallbiznis/trailbook/internal/payment/domain"
	"github.com/smallbiznis/trailbook/internal/providers/broker"
	"github.com/smallbiznis/trailbook/internal/providers/email"
	"github.com/smallbiznis/trailbook/internal/providers/pdf"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var Module = fx.Module("notification.service",
	fx.Provide(New),
)

// Notice describes something that happened to a booking.
type Notice struct {
	Kind    bookingdomain.CommunicationKind
	Booking bookingdomain.Booking
	Payment *paymentdomain.Payment
	Reason  string
}

// Notifier records a booking communication and fans it out to email and the
// message broker. Delivery failures are logged and never returned.
type Notifier interface {
	Notify(ctx context.Context, notice Notice)
}

// BookingMessage is the broker payload for booking lifecycle events.
type BookingMessage struct {
	BookingID    string    `json:"booking_id"`
	BookingRef   string    `json:"booking_ref"`
	Status       string    `json:"status"`
	EventID      string    `json:"event_id"`
	EventTitle   string    `json:"event_title"`
	EventDate    time.Time `json:"event_date"`
	Participants int       `json:"participants"`
	TotalAmount  int64     `json:"total_amount"`
	RefundAmount int64     `json:"refund_amount,omitempty"`
	Currency     string    `json:"currency"`
	OccurredAt   time.Time `json:"occurred_at"`
}

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Bookings  bookingdomain.Repository
	Email     email.Provider
	PDF       pdf.Provider
	Publisher broker.Publisher
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	bookings  bookingdomain.Repository
	email     email.Provider
	pdf       pdf.Provider
	publisher broker.Publisher
}

func New(p Params) Notifier {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("notification.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		bookings:  p.Bookings,
		email:     p.Email,
		pdf:       p.PDF,
		publisher: p.Publisher,
	}
}

func (s *Service) Notify(ctx context.Context, notice Notice) {
	b := notice.Booking
	log := s.log.With(
		zap.String("booking_ref", b.BookingRef),
		zap.String("kind", string(notice.Kind)),
	)

	s.record(ctx, log, b.ID, notice.Kind, bookingdomain.ChannelSystem, describe(notice), metadata(notice))

	if msg, ok := s.composeEmail(ctx, log, notice); ok {
		if err := s.email.Send(ctx, msg); err != nil {
			log.Warn("email delivery failed", zap.Error(err))
		} else {
			s.record(ctx, log, b.ID, notice.Kind, bookingdomain.ChannelEmail, "Email sent: "+msg.Subject, nil)
		}
	}

	if key, ok := routingKey(notice.Kind); ok {
		err := s.publisher.Publish(ctx, key, BookingMessage{
			BookingID:    b.ID.String(),
			BookingRef:   b.BookingRef,
			Status:       string(b.Status),
			EventID:      b.EventID.String(),
			EventTitle:   b.EventTitle,
			EventDate:    b.EventDate,
			Participants: b.Participants,
			TotalAmount:  b.TotalAmount,
			RefundAmount: b.RefundAmount,
			Currency:     b.Currency,
			OccurredAt:   s.clock.Now(),
		})
		if err != nil {
			log.Warn("publish booking message failed", zap.String("routing_key", key), zap.Error(err))
		}
	}
}

func (s *Service) record(
	ctx context.Context,
	log *zap.Logger,
	bookingID snowflake.ID,
	kind bookingdomain.CommunicationKind,
	channel bookingdomain.Channel,
	message string,
	meta datatypes.JSONMap,
) {
	err := s.bookings.InsertCommunication(ctx, s.db, &bookingdomain.Communication{
		ID:        s.genID.Generate(),
		BookingID: bookingID,
		Kind:      kind,
		Channel:   channel,
		Message:   message,
		Metadata:  meta,
		CreatedAt: s.clock.Now(),
	})
	if err != nil {
		log.Error("failed to record communication", zap.String("channel", string(channel)), zap.Error(err))
	}
}

func (s *Service) composeEmail(ctx context.Context, log *zap.Logger, notice Notice) (email.Message, bool) {
	b := notice.Booking
	title := html.EscapeString(b.EventTitle)
	ref := html.EscapeString(b.BookingRef)
	greeting := fmt.Sprintf("<p>Hi %s,</p>", html.EscapeString(b.CustomerName))

	msg := email.Message{To: []string{b.CustomerEmail}}
	switch notice.Kind {
	case bookingdomain.CommPaymentConfirmed:
		msg.Subject = fmt.Sprintf("Booking confirmed: %s [%s]", b.EventTitle, b.BookingRef)
		msg.HTML = greeting + fmt.Sprintf(
			`<p>Your booking <b>%s</b> for <b>%s</b> on %s is confirmed.</p>
<p>Participants: %d<br>Total paid: %s</p>
<p>Your receipt is attached.</p>`,
			ref, title, b.EventDate.Format(dateLayout), b.Participants, FormatINR(b.TotalAmount))
		if attachment, ok := s.receiptAttachment(ctx, log, notice); ok {
			msg.Attachments = append(msg.Attachments, attachment)
		}
	case bookingdomain.CommCancellation:
		// Abandoned checkouts were never paid; there is nothing to tell the customer.
		if b.PaidAt == nil {
			return email.Message{}, false
		}
		msg.Subject = fmt.Sprintf("Booking cancelled [%s]", b.BookingRef)
		msg.HTML = greeting + fmt.Sprintf(
			`<p>Your booking <b>%s</b> for <b>%s</b> has been cancelled.</p>
<p>Refund due: %s</p>`,
			ref, title, FormatINR(b.RefundAmount))
	case bookingdomain.CommRefund:
		msg.Subject = fmt.Sprintf("Refund processed [%s]", b.BookingRef)
		msg.HTML = greeting + fmt.Sprintf(
			`<p>A refund of %s for booking <b>%s</b> has been issued to your original payment method.</p>`,
			FormatINR(b.RefundAmount), ref)
	case bookingdomain.CommReminder:
		msg.Subject = fmt.Sprintf("Your trip is coming up: %s", b.EventTitle)
		msg.HTML = greeting + fmt.Sprintf(
			`<p><b>%s</b> starts on %s at %s.</p><p>Booking reference: <b>%s</b></p>`,
			title, b.EventDate.Format(dateLayout), html.EscapeString(b.EventLocation), ref)
	default:
		return email.Message{}, false
	}
	return msg, true
}

func (s *Service) receiptAttachment(ctx context.Context, log *zap.Logger, notice Notice) (email.Attachment, bool) {
	reader, err := s.pdf.GenerateReceipt(ctx, ReceiptData(notice.Booking, notice.Payment))
	if errors.Is(err, pdf.ErrDisabled) {
		return email.Attachment{}, false
	}
	if err != nil {
		log.Warn("receipt generation failed", zap.Error(err))
		return email.Attachment{}, false
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		log.Warn("receipt read failed", zap.Error(err))
		return email.Attachment{}, false
	}
	return email.Attachment{
		Filename:    fmt.Sprintf("receipt-%s.pdf", notice.Booking.BookingRef),
		ContentType: "application/pdf",
		Data:        data,
	}, true
}

func describe(notice Notice) string {
	b := notice.Booking
	switch notice.Kind {
	case bookingdomain.CommOrderCreated:
		return fmt.Sprintf("Order %s created for %s", b.GatewayOrderID, FormatINR(b.TotalAmount))
	case bookingdomain.CommPaymentConfirmed:
		return fmt.Sprintf("Payment %s confirmed", b.GatewayPaymentID)
	case bookingdomain.CommPaymentFailed:
		if notice.Reason != "" {
			return "Payment verification failed: " + notice.Reason
		}
		return "Payment verification failed"
	case bookingdomain.CommCancellation:
		return fmt.Sprintf("Booking cancelled (%s), refund %s", b.CancellationReason, FormatINR(b.RefundAmount))
	case bookingdomain.CommRefund:
		return fmt.Sprintf("Refund of %s completed", FormatINR(b.RefundAmount))
	case bookingdomain.CommReminder:
		return "Trip reminder sent"
	case bookingdomain.CommCompleted:
		return "Trip completed"
	}
	return string(notice.Kind)
}

func metadata(notice Notice) datatypes.JSONMap {
	b := notice.Booking
	meta := datatypes.JSONMap{"status": string(b.Status)}
	if b.GatewayOrderID != "" {
		meta["gateway_order_id"] = b.GatewayOrderID
	}
	if notice.Payment != nil {
		meta["payment_id"] = notice.Payment.ID.String()
		meta["gateway_payment_id"] = notice.Payment.GatewayPaymentID
	}
	if b.RefundAmount > 0 {
		meta["refund_amount"] = b.RefundAmount
		meta["refund_status"] = string(b.RefundStatus)
	}
	if notice.Reason != "" {
		meta["reason"] = notice.Reason
	}
	return meta
}

func routingKey(kind bookingdomain.CommunicationKind) (string, bool) {
	switch kind {
	case bookingdomain.CommPaymentConfirmed:
		return broker.RoutingBookingConfirmed, true
	case bookingdomain.CommCancellation:
		return broker.RoutingBookingCancelled, true
	case bookingdomain.CommRefund:
		return broker.RoutingBookingRefunded, true
	case bookingdomain.CommCompleted:
		return broker.RoutingBookingCompleted, true
	}
	return "", false
}
