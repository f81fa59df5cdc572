package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	eventdomain "github.com/smallbiznis/trailbook/internal/event/domain"
	"go.uber.org/zap"
)

const (
	eventListPrefix    = "events:all"
	defaultEventTTL    = time.Hour
	invalidateScanSize = 100
)

// EventCache stores rendered catalog listings. Failures are logged and
// reported as misses so callers always fall back to the database.
type EventCache interface {
	GetList(ctx context.Context, category string) ([]eventdomain.Event, bool)
	SetList(ctx context.Context, category string, events []eventdomain.Event)
	Invalidate(ctx context.Context)
}

type redisEventCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewEventCache returns a no-op cache when client is nil.
func NewEventCache(client *redis.Client, ttl time.Duration, log *zap.Logger) EventCache {
	if client == nil {
		return noopEventCache{}
	}
	if ttl <= 0 {
		ttl = defaultEventTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &redisEventCache{client: client, ttl: ttl, log: log.Named("event.cache")}
}

func (c *redisEventCache) GetList(ctx context.Context, category string) ([]eventdomain.Event, bool) {
	key := EventListKey(category)
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("event cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var events []eventdomain.Event
	if err := json.Unmarshal(raw, &events); err != nil {
		c.log.Warn("event cache entry corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return events, true
}

func (c *redisEventCache) SetList(ctx context.Context, category string, events []eventdomain.Event) {
	key := EventListKey(category)
	raw, err := json.Marshal(events)
	if err != nil {
		c.log.Warn("event cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.Warn("event cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *redisEventCache) Invalidate(ctx context.Context) {
	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := c.client.Scan(ctx, cursor, eventListPrefix+"*", invalidateScanSize).Result()
		if err != nil {
			c.log.Warn("event cache scan failed", zap.Error(err))
			return
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("event cache invalidation failed", zap.Int("keys", len(keys)), zap.Error(err))
	}
}

// EventListKey is events:all for the full catalog and events:all:<category> otherwise.
func EventListKey(category string) string {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return eventListPrefix
	}
	return eventListPrefix + ":" + category
}

type noopEventCache struct{}

func (noopEventCache) GetList(context.Context, string) ([]eventdomain.Event, bool) { return nil, false }
func (noopEventCache) SetList(context.Context, string, []eventdomain.Event)        {}
func (noopEventCache) Invalidate(context.Context)                                  {}
