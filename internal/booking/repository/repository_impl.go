package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/trailbook/internal/booking/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, booking *domain.Booking) error {
	return db.WithContext(ctx).Create(booking).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, booking *domain.Booking) error {
	return db.WithContext(ctx).Save(booking).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Booking, error) {
	return r.first(db.WithContext(ctx).Where("id = ?", id))
}

func (r *repo) FindByRef(ctx context.Context, db *gorm.DB, ref string) (*domain.Booking, error) {
	return r.first(db.WithContext(ctx).Where("booking_ref = ?", ref))
}

func (r *repo) FindByRefForUpdate(ctx context.Context, db *gorm.DB, ref string) (*domain.Booking, error) {
	return r.first(forUpdate(db.WithContext(ctx)).Where("booking_ref = ?", ref))
}

// forUpdate adds SELECT ... FOR UPDATE on postgres and mysql. sqlite has no
// row locks; its single writer already serialises the transaction.
func forUpdate(stmt *gorm.DB) *gorm.DB {
	if stmt.Dialector.Name() == "sqlite" {
		return stmt
	}
	return stmt.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
}

func (r *repo) FindByIdempotencyKey(ctx context.Context, db *gorm.DB, key string) (*domain.Booking, error) {
	return r.first(db.WithContext(ctx).Where("idempotency_key = ?", key))
}

func (r *repo) first(stmt *gorm.DB) (*domain.Booking, error) {
	var booking domain.Booking
	err := stmt.Take(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &booking, nil
}

func (r *repo) ListByEmail(ctx context.Context, db *gorm.DB, email string) ([]*domain.Booking, error) {
	var bookings []*domain.Booking
	err := db.WithContext(ctx).
		Where("customer_email = ?", email).
		Order("created_at desc, id desc").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *repo) ReservedSeats(ctx context.Context, db *gorm.DB, eventID snowflake.ID, now time.Time) (int, error) {
	var total int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(participants), 0)
		 FROM bookings
		 WHERE event_id = ?
		   AND (status IN (?, ?) OR (status = ? AND hold_expires_at > ?))`,
		eventID,
		domain.StatusConfirmed,
		domain.StatusCompleted,
		domain.StatusPending,
		now,
	).Row().Scan(&total)
	if err != nil {
		return 0, err
	}
	return int(total), nil
}

func (r *repo) ListAbandoned(ctx context.Context, db *gorm.DB, before time.Time, limit int) ([]*domain.Booking, error) {
	return r.list(db.WithContext(ctx).
		Where("status = ? AND hold_expires_at < ?", domain.StatusPending, before).
		Order("hold_expires_at asc"), limit)
}

func (r *repo) ListPastEvents(ctx context.Context, db *gorm.DB, before time.Time, limit int) ([]*domain.Booking, error) {
	return r.list(db.WithContext(ctx).
		Where("status = ? AND event_date < ?", domain.StatusConfirmed, before).
		Order("event_date asc"), limit)
}

func (r *repo) ListPendingRefunds(ctx context.Context, db *gorm.DB, limit int) ([]*domain.Booking, error) {
	return r.list(db.WithContext(ctx).
		Where("status = ? AND refund_status = ?", domain.StatusCancelled, domain.RefundStatusPending).
		Order("cancelled_at asc"), limit)
}

func (r *repo) ListReminderDue(ctx context.Context, db *gorm.DB, from, to time.Time, limit int) ([]*domain.Booking, error) {
	return r.list(db.WithContext(ctx).
		Where("status = ? AND reminder_sent_at IS NULL AND event_date > ? AND event_date <= ?",
			domain.StatusConfirmed, from, to).
		Order("event_date asc"), limit)
}

func (r *repo) list(stmt *gorm.DB, limit int) ([]*domain.Booking, error) {
	if limit <= 0 {
		limit = 100
	}
	var bookings []*domain.Booking
	if err := stmt.Limit(limit).Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *repo) InsertCommunication(ctx context.Context, db *gorm.DB, comm *domain.Communication) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO booking_communications (id, booking_id, kind, channel, message, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		comm.ID,
		comm.BookingID,
		comm.Kind,
		comm.Channel,
		comm.Message,
		comm.Metadata,
		comm.CreatedAt,
	).Error
}

func (r *repo) ListCommunications(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) ([]*domain.Communication, error) {
	var items []*domain.Communication
	err := db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at asc, id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Stats(ctx context.Context, db *gorm.DB) (domain.Stats, error) {
	type row struct {
		Status       string
		Count        int64
		Participants int64
		Total        int64
		Refunded     int64
	}
	var rows []row
	err := db.WithContext(ctx).Raw(
		`SELECT status,
			COUNT(*) AS count,
			COALESCE(SUM(participants), 0) AS participants,
			COALESCE(SUM(total_amount), 0) AS total,
			COALESCE(SUM(CASE WHEN refund_status = ? THEN refund_amount ELSE 0 END), 0) AS refunded
		 FROM bookings
		 GROUP BY status`,
		domain.RefundStatusCompleted,
	).Scan(&rows).Error
	if err != nil {
		return domain.Stats{}, err
	}

	stats := domain.Stats{ByStatus: map[domain.Status]int64{}}
	for _, item := range rows {
		status := domain.Status(item.Status)
		stats.ByStatus[status] = item.Count
		stats.TotalBookings += item.Count
		stats.RefundedTotal += item.Refunded
		switch status {
		case domain.StatusConfirmed, domain.StatusCompleted:
			stats.ConfirmedRevenue += item.Total
			stats.Participants += item.Participants
		}
	}
	return stats, nil
}
