// Package audit keeps a trail of dispatched jobs in redis when a redis
// URL is configured. Recording is fire-and-forget: a recorder failure
// never fails the job it records.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Record is one dispatched job outcome.
type Record struct {
	Time     time.Time `json:"time"`
	Action   string    `json:"action"`
	DataType string    `json:"data_type,omitempty"`
	Port     int       `json:"port,omitempty"`
	Status   string    `json:"status"`
}

type Recorder interface {
	Record(ctx context.Context, rec Record)
}

// Nop is the recorder used when no redis URL is configured.
type Nop struct{}

func (Nop) Record(context.Context, Record) {}

const (
	defaultListKey = "fleethub:jobs"
	defaultMaxLen  = 1000
)

// RedisRecorder LPUSHes JSON records onto a capped list.
type RedisRecorder struct {
	client *redis.Client
	logger *slog.Logger
	key    string
	maxLen int64
}

func NewRedisRecorder(redisURL string, logger *slog.Logger) (*RedisRecorder, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisRecorder{
		client: redis.NewClient(opts),
		logger: logger,
		key:    defaultListKey,
		maxLen: defaultMaxLen,
	}, nil
}

func (r *RedisRecorder) Record(ctx context.Context, rec Record) {
	data, err := json.Marshal(rec)
	if err != nil {
		r.logger.Warn("audit_marshal_failed", "error", err.Error())
		return
	}
	pipe := r.client.Pipeline()
	pipe.LPush(ctx, r.key, data)
	pipe.LTrim(ctx, r.key, 0, r.maxLen-1)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("audit_record_failed", "error", err.Error())
	}
}

func (r *RedisRecorder) Close() error {
	return r.client.Close()
}
