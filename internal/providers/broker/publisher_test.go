package broker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/smallbiznis/trailbook/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedPublish struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	published []recordedPublish
	closed    bool
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.published = append(f.published, recordedPublish{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestPublishCarriesCorrelationHeaders(t *testing.T) {
	ch := &fakeChannel{}
	publisher := &AMQPPublisher{
		ch:       ch,
		exchange: "trailbook.bookings",
		now:      func() time.Time { return time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC) },
	}

	ctx := correlation.WithID(context.Background(), "cid-42")
	err := publisher.Publish(ctx, RoutingBookingConfirmed, map[string]any{"booking_ref": "TRV1"})
	require.NoError(t, err)

	require.Len(t, ch.published, 1)
	got := ch.published[0]
	assert.Equal(t, "trailbook.bookings", got.exchange)
	assert.Equal(t, RoutingBookingConfirmed, got.key)
	assert.Equal(t, "cid-42", got.msg.CorrelationId)
	assert.Equal(t, "cid-42", got.msg.Headers[correlation.HeaderCorrelationID])
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	assert.NotEmpty(t, got.msg.MessageId)

	var body map[string]any
	require.NoError(t, json.Unmarshal(got.msg.Body, &body))
	assert.Equal(t, "TRV1", body["booking_ref"])

	require.NoError(t, publisher.Close())
	assert.True(t, ch.closed)
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), RoutingBookingCancelled, nil))
	assert.NoError(t, p.Close())
}
