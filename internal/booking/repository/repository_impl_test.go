package repository

import (
	"testing"

	"github.com/smallbiznis/trailbook/internal/booking/domain"
	"github.com/smallbiznis/trailbook/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func lookupSQL(db *gorm.DB) string {
	return db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var booking domain.Booking
		return forUpdate(tx).Where("booking_ref = ?", "TRVAB12CD").Take(&booking)
	})
}

func TestForUpdateLocksRowsOnServerDialects(t *testing.T) {
	cfg := &gorm.Config{DryRun: true, DisableAutomaticPing: true}

	pg, err := gorm.Open(postgres.Open("host=localhost user=trailbook dbname=trailbook sslmode=disable"), cfg)
	require.NoError(t, err)
	assert.Contains(t, lookupSQL(pg), "FOR UPDATE")

	my, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "trailbook:trailbook@tcp(localhost:3306)/trailbook?parseTime=true",
		SkipInitializeWithVersion: true,
	}), cfg)
	require.NoError(t, err)
	assert.Contains(t, lookupSQL(my), "FOR UPDATE")
}

func TestForUpdateSkipsSqlite(t *testing.T) {
	sql := lookupSQL(testutil.OpenDB(t))
	assert.Contains(t, sql, "booking_ref")
	assert.NotContains(t, sql, "FOR UPDATE")
}
