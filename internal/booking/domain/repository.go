package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, booking *Booking) error
	Update(ctx context.Context, db *gorm.DB, booking *Booking) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Booking, error)
	FindByRef(ctx context.Context, db *gorm.DB, ref string) (*Booking, error)
	FindByRefForUpdate(ctx context.Context, db *gorm.DB, ref string) (*Booking, error)
	FindByIdempotencyKey(ctx context.Context, db *gorm.DB, key string) (*Booking, error)
	ListByEmail(ctx context.Context, db *gorm.DB, email string) ([]*Booking, error)

	// ReservedSeats sums participants of bookings holding seats on the event at now.
	ReservedSeats(ctx context.Context, db *gorm.DB, eventID snowflake.ID, now time.Time) (int, error)

	ListAbandoned(ctx context.Context, db *gorm.DB, before time.Time, limit int) ([]*Booking, error)
	ListPastEvents(ctx context.Context, db *gorm.DB, before time.Time, limit int) ([]*Booking, error)
	ListPendingRefunds(ctx context.Context, db *gorm.DB, limit int) ([]*Booking, error)
	ListReminderDue(ctx context.Context, db *gorm.DB, from, to time.Time, limit int) ([]*Booking, error)

	InsertCommunication(ctx context.Context, db *gorm.DB, comm *Communication) error
	ListCommunications(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) ([]*Communication, error)

	Stats(ctx context.Context, db *gorm.DB) (Stats, error)
}
