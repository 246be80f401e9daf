package status

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/einkcast/einkcast/pkg/logging"
	"github.com/einkcast/einkcast/pkg/scheduler"
)

const (
	redisKeyPrefix = "einkcast:job:"
	redisTimeout   = 2 * time.Second
)

// RedisSink publishes each job's latest outcome to Redis so external
// monitors can watch capture health without talking to the service.
type RedisSink struct {
	client *redis.Client
	logger logging.Logger
}

// NewRedisSink connects a sink to the Redis instance at addr.
func NewRedisSink(addr string, logger logging.Logger) *RedisSink {
	return &RedisSink{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		logger: logging.Component(logger, "redis-sink"),
	}
}

// Record writes the outcome under einkcast:job:<name>:status. Publish
// failures are logged, never surfaced: status reporting must not affect the
// capture pipeline.
func (r *RedisSink) Record(ctx context.Context, outcome scheduler.Outcome) {
	data, err := json.Marshal(outcome)
	if err != nil {
		r.logger.Warn().Err(err).Str("job", outcome.Job).Msg("failed to encode outcome")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	key := redisKeyPrefix + outcome.Job + ":status"
	if err := r.client.Set(ctx, key, data, 0).Err(); err != nil {
		r.logger.Warn().Err(err).Str("job", outcome.Job).Msg("failed to publish outcome")
	}
}

// Close releases the Redis connection.
func (r *RedisSink) Close() error {
	return r.client.Close()
}
