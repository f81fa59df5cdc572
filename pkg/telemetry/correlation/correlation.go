// Package correlation ties booking events published to the broker back to the
// HTTP request or scheduler run that produced them.
package correlation

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	HeaderCorrelationID = "correlation_id"
	HeaderPublishedAt   = "published_at"
)

type idKey struct{}

// WithID stores id on ctx. Empty ids leave ctx untouched.
func WithID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, idKey{}, id)
}

// ID returns the correlation id on ctx, or "".
func ID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(idKey{}).(string)
	return id
}

// Headers builds message headers for an outgoing booking event. A missing
// correlation id is replaced by a fresh ULID, and the active span is written
// with the global propagator so consumers can continue the trace.
func Headers(ctx context.Context, now time.Time) map[string]string {
	id := ID(ctx)
	if id == "" {
		id = ulid.Make().String()
	}
	headers := propagation.MapCarrier{
		HeaderCorrelationID: id,
		HeaderPublishedAt:   now.UTC().Format(time.RFC3339),
	}
	otel.GetTextMapPropagator().Inject(ctx, headers)
	return headers
}
