// Package analytics keeps daily transition counters in Redis. Counters
// are a best-effort side channel: a Redis outage never blocks or fails a
// transition.
package analytics

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pitchside/pitchside/internal/domain"
)

// DefaultRetention is how long daily counters live without writes.
const DefaultRetention = 30 * 24 * time.Hour

type RedisSink struct {
	client    *redis.Client
	retention time.Duration
}

func NewRedisSink(client *redis.Client) *RedisSink {
	return &RedisSink{client: client, retention: DefaultRetention}
}

// WithRetention overrides the counter TTL.
func (s *RedisSink) WithRetention(d time.Duration) *RedisSink {
	if d > 0 {
		s.retention = d
	}
	return s
}

// Record increments the per-day counter for the transition's target
// status. Errors are logged and swallowed.
func (s *RedisSink) Record(ctx context.Context, event domain.TransitionEvent) {
	key := buildKey(event.To, event.OccurredAt)

	pipe := s.client.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.retention)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("analytics: redis pipeline failed key=%s: %v", key, err)
	}
}

func buildKey(status domain.EventStatus, t time.Time) string {
	return fmt.Sprintf("transitions:%s:%s", status, t.UTC().Format("20060102"))
}
