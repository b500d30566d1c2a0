package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xeipuuv/gojsonschema"

	"github.com/jonathan/auto-apply/internal/config"
	"github.com/jonathan/auto-apply/internal/types"
)

// requestSchema validates queued payloads before they are accepted. A
// malformed payload is rejected at enqueue time, not discovered by a worker.
const requestSchema = `{
	"type": "object",
	"required": ["user_id", "job"],
	"properties": {
		"user_id": {"type": "string", "minLength": 36, "maxLength": 36},
		"record_id": {"type": "string"},
		"job": {
			"type": "object",
			"required": ["job_id", "url"],
			"properties": {
				"job_id": {"type": "string", "minLength": 36, "maxLength": 36},
				"url": {"type": "string", "pattern": "^https?://"},
				"company": {"type": "string"},
				"title": {"type": "string"},
				"description": {"type": "string"}
			}
		}
	}
}`

// ErrInvalidRequest means a payload failed schema validation.
var ErrInvalidRequest = errors.New("invalid application request payload")

// Queue is the durable request queue backed by a Redis list.
type Queue struct {
	client *redis.Client
	key    string
	schema *gojsonschema.Schema
}

// NewQueue connects to Redis and compiles the payload schema.
func NewQueue(cfg *config.Config) (*Queue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  -1, // blocking pops manage their own deadlines
		WriteTimeout: 3 * time.Second,
	})

	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(requestSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile request schema: %w", err)
	}

	return &Queue{client: client, key: cfg.QueueKey, schema: schema}, nil
}

// newQueueWithClient is the test seam for an injected Redis client.
func newQueueWithClient(client *redis.Client, key string) (*Queue, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(requestSchema))
	if err != nil {
		return nil, err
	}
	return &Queue{client: client, key: key, schema: schema}, nil
}

// Ping verifies the Redis connection.
func (q *Queue) Ping(ctx context.Context) error {
	if err := q.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Enqueue validates and pushes a request onto the queue.
func (q *Queue) Enqueue(ctx context.Context, req types.ApplicationRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	result, err := q.schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return fmt.Errorf("failed to validate request: %w", err)
	}
	if !result.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, result.Errors())
	}

	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue request: %w", err)
	}
	return nil
}

// Dequeue blocks for up to timeout waiting for a request. Returns nil with
// no error when the timeout elapses with an empty queue.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*types.ApplicationRequest, error) {
	values, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue request: %w", err)
	}
	// BRPop returns [key, value].
	if len(values) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply length %d", len(values))
	}

	payload := []byte(values[1])
	result, err := q.schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil || !result.Valid() {
		// A bad payload slipped in outside Enqueue. Drop it rather than
		// poison the worker loop.
		return nil, ErrInvalidRequest
	}

	var req types.ApplicationRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal request: %w", err)
	}
	return &req, nil
}

// Depth returns the current queue length.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read queue depth: %w", err)
	}
	return n, nil
}

// Close releases the Redis connection.
func (q *Queue) Close() error {
	return q.client.Close()
}
