// Package testutil opens isolated in-memory databases carrying the service schema.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

var schema = []string{
	`CREATE TABLE events (
		id INTEGER PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		description TEXT,
		category TEXT NOT NULL,
		location TEXT,
		duration TEXT,
		difficulty TEXT,
		price INTEGER NOT NULL,
		capacity INTEGER NOT NULL,
		next_date DATETIME NOT NULL,
		media TEXT,
		itinerary TEXT,
		inclusions TEXT,
		exclusions TEXT,
		status TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE bookings (
		id INTEGER PRIMARY KEY,
		booking_ref TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL,
		customer_name TEXT NOT NULL,
		customer_email TEXT NOT NULL,
		customer_phone TEXT NOT NULL,
		event_id INTEGER NOT NULL,
		event_title TEXT NOT NULL,
		event_date DATETIME NOT NULL,
		event_location TEXT,
		event_duration TEXT,
		event_price INTEGER NOT NULL,
		participants INTEGER NOT NULL,
		special_requirements TEXT,
		base_amount INTEGER NOT NULL,
		discount_amount INTEGER NOT NULL,
		booking_fee INTEGER NOT NULL,
		processing_fee INTEGER NOT NULL,
		tax_amount INTEGER NOT NULL,
		total_amount INTEGER NOT NULL,
		currency TEXT NOT NULL,
		gateway_order_id TEXT,
		gateway_payment_id TEXT,
		payment_status TEXT NOT NULL,
		paid_at DATETIME,
		hold_expires_at DATETIME,
		cancelled_at DATETIME,
		cancellation_reason TEXT,
		refund_amount INTEGER NOT NULL DEFAULT 0,
		refund_status TEXT,
		refunded_at DATETIME,
		reminder_sent_at DATETIME,
		idempotency_key TEXT UNIQUE,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE booking_communications (
		id INTEGER PRIMARY KEY,
		booking_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		channel TEXT NOT NULL,
		message TEXT NOT NULL,
		metadata TEXT,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE payments (
		id INTEGER PRIMARY KEY,
		booking_id INTEGER NOT NULL,
		booking_ref TEXT NOT NULL,
		gateway TEXT NOT NULL,
		gateway_order_id TEXT NOT NULL,
		gateway_payment_id TEXT NOT NULL UNIQUE,
		gateway_signature TEXT NOT NULL,
		amount INTEGER NOT NULL,
		currency TEXT NOT NULL,
		status TEXT NOT NULL,
		customer_name TEXT NOT NULL,
		customer_email TEXT NOT NULL,
		customer_phone TEXT NOT NULL,
		event_id INTEGER NOT NULL,
		event_title TEXT NOT NULL,
		event_date DATETIME NOT NULL,
		participants INTEGER NOT NULL,
		refund_amount INTEGER NOT NULL DEFAULT 0,
		refund_status TEXT,
		refund_reason TEXT,
		gateway_refund_id TEXT,
		refund_requested_at DATETIME,
		refunded_at DATETIME,
		paid_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE admin_users (
		id INTEGER PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE audit_logs (
		id INTEGER PRIMARY KEY,
		actor_type TEXT NOT NULL,
		actor_id TEXT,
		action TEXT NOT NULL,
		target_type TEXT NOT NULL,
		target_id TEXT,
		metadata TEXT,
		ip_address TEXT,
		user_agent TEXT,
		created_at DATETIME NOT NULL
	)`,
}

// OpenDB returns a fresh in-memory database with every service table created.
// Each call gets its own database so tests never share rows.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}
