package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// gcraScript stores the theoretical arrival time (TAT) of the next request in
// milliseconds. A request is admitted while TAT stays within burst emission
// intervals of now. Times come from the redis clock so replicas agree.
const gcraScript = `
local emission = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])

local t = redis.call("TIME")
local now = t[1] * 1000 + math.floor(t[2] / 1000)

local tat = tonumber(redis.call("GET", KEYS[1])) or now
if tat < now then
  tat = now
end

local tolerance = emission * burst
local next_tat = tat + emission
local allow_at = next_tat - tolerance
if allow_at > now then
  return {0, 0, math.ceil(allow_at - now)}
end

redis.call("SET", KEYS[1], next_tat, "PX", math.ceil(next_tat - now))
return {1, math.floor((tolerance - (next_tat - now)) / emission), 0}
`

var errLimiterUnset = errors.New("rate limiter not configured")

// Result describes one admission decision.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// GCRA is a redis-backed generic cell rate limiter. It admits burst requests
// at once and then one request per 1/rate seconds.
type GCRA struct {
	client redis.Scripter
	script *redis.Script
}

func NewGCRA(client redis.Scripter) *GCRA {
	if client == nil {
		return nil
	}
	return &GCRA{client: client, script: redis.NewScript(gcraScript)}
}

// Allow admits or rejects one request against key. rate is requests per second.
func (g *GCRA) Allow(ctx context.Context, key string, rate float64, burst int) (Result, error) {
	switch {
	case g == nil || g.client == nil:
		return Result{}, errLimiterUnset
	case key == "":
		return Result{}, errors.New("rate limiter key is empty")
	case rate <= 0 || burst <= 0:
		return Result{}, fmt.Errorf("rate limiter needs positive rate and burst, got %v/%d", rate, burst)
	}

	reply, err := g.script.Run(ctx, g.client, []string{key}, emissionMillis(rate), burst).Int64Slice()
	if err != nil {
		return Result{}, err
	}
	if len(reply) != 3 {
		return Result{}, fmt.Errorf("rate limiter script returned %d values", len(reply))
	}

	res := Result{
		Allowed:   reply[0] == 1,
		Limit:     burst,
		Remaining: int(reply[1]),
	}
	if !res.Allowed {
		res.RetryAfter = max(time.Duration(reply[2])*time.Millisecond, time.Second)
	}
	return res, nil
}

// emissionMillis is the spacing between admitted requests once the burst is spent.
func emissionMillis(rate float64) float64 {
	return 1000 / rate
}
