package domain

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBookingRef(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ref, err := NewBookingRef(now)
	require.NoError(t, err)

	stamp := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	assert.True(t, strings.HasPrefix(ref, "TRV"+stamp))
	assert.Len(t, ref, 3+len(stamp)+4)
	assert.Equal(t, strings.ToUpper(ref), ref)
	assert.True(t, IsBookingRef(ref))
}

func TestNewBookingRefUnique(t *testing.T) {
	now := time.Now()
	seen := map[string]struct{}{}
	for i := 0; i < 200; i++ {
		ref, err := NewBookingRef(now)
		require.NoError(t, err)
		seen[ref] = struct{}{}
	}
	assert.Greater(t, len(seen), 190)
}

func TestIsBookingRef(t *testing.T) {
	assert.False(t, IsBookingRef(""))
	assert.False(t, IsBookingRef("TRV"))
	assert.False(t, IsBookingRef("ABC12345678"))
	assert.False(t, IsBookingRef("TRVabc12345"))
	assert.True(t, IsBookingRef("TRVM7X2K9QA1B2C"))
}
