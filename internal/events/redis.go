// Package events delivers call and metrics updates to tenant-scoped
// realtime subscribers over Redis pub/sub.
package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"voicecampaign-platform/internal/calls"

	"github.com/redis/go-redis/v9"
)

// RedisEmitter publishes update notifications to per-organization channels:
//
//	org:{id}:calls   — one message per changed Call
//	org:{id}:metrics — dashboard aggregate after each change
//
// Delivery is fire-and-forget. Publish failures are logged and dropped;
// reconciliation must never stall on the realtime channel.
type RedisEmitter struct {
	rdb *redis.Client
	log *slog.Logger
}

func NewRedisEmitter(rdb *redis.Client, log *slog.Logger) *RedisEmitter {
	if log == nil {
		log = slog.Default()
	}
	return &RedisEmitter{rdb: rdb, log: log}
}

func (e *RedisEmitter) CallUpdated(ctx context.Context, orgID string, call calls.Call) {
	e.publish(ctx, "org:"+orgID+":calls", call)
}

func (e *RedisEmitter) MetricsUpdated(ctx context.Context, orgID string, m calls.DashboardMetrics) {
	e.publish(ctx, "org:"+orgID+":metrics", m)
}

func (e *RedisEmitter) publish(ctx context.Context, channel string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		e.log.Error("event marshal failed", "channel", channel, "err", err)
		return
	}
	if err := e.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		e.log.Warn("event publish failed", "channel", channel, "err", err)
	}
}
