package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperationFromSQL(t *testing.T) {
	assert.Equal(t, "SELECT", operationFromSQL("select * from bookings"))
	assert.Equal(t, "UPDATE", operationFromSQL("UPDATE bookings SET status = 'confirmed'"))
	assert.Equal(t, "INSERT", operationFromSQL("  (INSERT INTO payments VALUES (1))"))
	assert.Equal(t, "UNKNOWN", operationFromSQL(""))
}

func TestParamsFilterDropsValues(t *testing.T) {
	l := NewGormLogger(DefaultGormLoggerConfig())
	sql, params := l.ParamsFilter(context.Background(), "SELECT 1 WHERE email = ?", "a@b.c")
	assert.Equal(t, "SELECT 1 WHERE email = ?", sql)
	assert.Nil(t, params)
}
