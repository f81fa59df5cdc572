package domain

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const (
	refPrefix     = "TRV"
	refRandomLen  = 4
	base36Symbols = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// NewBookingRef renders TRV + base36(ms timestamp) + 4 random base36 chars.
func NewBookingRef(now time.Time) (string, error) {
	var sb strings.Builder
	sb.WriteString(refPrefix)
	sb.WriteString(strconv.FormatInt(now.UnixMilli(), 36))

	limit := big.NewInt(int64(len(base36Symbols)))
	for i := 0; i < refRandomLen; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		sb.WriteByte(base36Symbols[n.Int64()])
	}
	return strings.ToUpper(sb.String()), nil
}

// IsBookingRef performs a cheap shape check before hitting the database.
func IsBookingRef(ref string) bool {
	if len(ref) <= len(refPrefix)+refRandomLen || !strings.HasPrefix(ref, refPrefix) {
		return false
	}
	for _, r := range ref[len(refPrefix):] {
		if !(r >= '0' && r <= '9') && !(r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}
