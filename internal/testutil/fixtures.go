package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/smallbiznis/trailbook/internal/booking/domain"
	eventdomain "github.com/smallbiznis/trailbook/internal/event/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	fixtureNode = mustNode(1023)
	refSeq      atomic.Int64
)

func mustNode(id int64) *snowflake.Node {
	node, err := snowflake.NewNode(id)
	if err != nil {
		panic(err)
	}
	return node
}

// Node returns a snowflake node reserved for tests.
func Node() *snowflake.Node { return fixtureNode }

// SeedEvent inserts an active event, filling any zero field with a default.
func SeedEvent(t testing.TB, db *gorm.DB, event eventdomain.Event) eventdomain.Event {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	if event.ID == 0 {
		event.ID = fixtureNode.Generate()
	}
	if event.Title == "" {
		event.Title = "Hampta Pass Trek"
	}
	if event.Slug == "" {
		event.Slug = fmt.Sprintf("event-%d", event.ID)
	}
	if event.Category == "" {
		event.Category = "trekking"
	}
	if event.Price == 0 {
		event.Price = 1199
	}
	if event.Capacity == 0 {
		event.Capacity = 20
	}
	if event.NextDate.IsZero() {
		event.NextDate = now.AddDate(0, 0, 30)
	}
	if event.Status == "" {
		event.Status = eventdomain.StatusActive
	}
	if event.Media == nil {
		event.Media = datatypes.JSON(`[]`)
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	if event.UpdatedAt.IsZero() {
		event.UpdatedAt = now
	}
	if err := db.Create(&event).Error; err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return event
}

// SeedBooking inserts a booking for event, filling any zero field with a default.
func SeedBooking(t testing.TB, db *gorm.DB, event eventdomain.Event, booking bookingdomain.Booking) bookingdomain.Booking {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	if booking.ID == 0 {
		booking.ID = fixtureNode.Generate()
	}
	if booking.BookingRef == "" {
		booking.BookingRef = fmt.Sprintf("TRVTEST%04d", refSeq.Add(1))
	}
	if booking.Status == "" {
		booking.Status = bookingdomain.StatusConfirmed
	}
	if booking.CustomerName == "" {
		booking.CustomerName = "Asha Rao"
	}
	if booking.CustomerEmail == "" {
		booking.CustomerEmail = "asha@example.com"
	}
	if booking.CustomerPhone == "" {
		booking.CustomerPhone = "+919800000000"
	}
	if booking.Participants == 0 {
		booking.Participants = 1
	}
	booking.EventID = event.ID
	booking.EventTitle = event.Title
	if booking.EventDate.IsZero() {
		booking.EventDate = event.NextDate
	}
	booking.EventPrice = event.Price
	if booking.TotalAmount == 0 {
		quote := bookingdomain.NewQuote(event.Price, booking.Participants, bookingdomain.DefaultRates())
		quote.Apply(&booking)
	}
	if booking.Currency == "" {
		booking.Currency = bookingdomain.DefaultCurrency
	}
	if booking.PaymentStatus == "" {
		booking.PaymentStatus = bookingdomain.PaymentStatusCompleted
	}
	if booking.PaidAt == nil && booking.PaymentStatus == bookingdomain.PaymentStatusCompleted {
		paidAt := now
		booking.PaidAt = &paidAt
	}
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	if booking.UpdatedAt.IsZero() {
		booking.UpdatedAt = now
	}
	if err := db.Create(&booking).Error; err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	return booking
}
