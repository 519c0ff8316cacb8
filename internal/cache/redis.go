// Package cache keeps the current rate snapshot in Redis so replicas do not
// hit SQLite for every price preview.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Simplici0/margingate/internal/errx"
	"github.com/Simplici0/margingate/internal/pricing"
)

const (
	// SnapshotKey prefixes the per-generation snapshot keys.
	SnapshotKey = "margingate:rates:snapshot"
	// GenerationKey counts rate invalidations. Snapshots are stored under the
	// generation that was current before the database read.
	GenerationKey = "margingate:rates:generation"
)

func snapshotKey(gen int64) string {
	return fmt.Sprintf("%s:%d", SnapshotKey, gen)
}

// Entry is the result of a lookup. Generation must be handed back to Put
// when a miss is filled.
type Entry struct {
	Snapshot   pricing.Snapshot
	Generation int64
	Found      bool
}

type Config struct {
	URL          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	DialTimeout  time.Duration
}

// Connect parses cfg.URL, applies the timeouts and pings the server.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.ReadTimeout = durationOr(cfg.ReadTimeout, 3*time.Second)
	opts.WriteTimeout = durationOr(cfg.WriteTimeout, 3*time.Second)
	opts.DialTimeout = durationOr(cfg.DialTimeout, 5*time.Second)

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errx.WrapRedis(err)
	}
	return client, nil
}

func durationOr(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Redis stores the snapshot as JSON with a TTL.
type Redis struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedis returns a snapshot cache on client. A zero ttl keeps entries until
// they are invalidated.
func NewRedis(client redis.Cmdable, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// Get reads the current generation and the snapshot stored under it.
func (r *Redis) Get(ctx context.Context) (Entry, error) {
	gen, err := r.client.Get(ctx, GenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		gen = 0
	} else if err != nil {
		return Entry{}, errx.WrapRedis(err)
	}

	raw, err := r.client.Get(ctx, snapshotKey(gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{Generation: gen}, nil
	}
	if err != nil {
		return Entry{}, errx.WrapRedis(err)
	}

	var snap pricing.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Entry{}, fmt.Errorf("decode cached snapshot: %w", err)
	}
	return Entry{Snapshot: snap, Generation: gen, Found: true}, nil
}

// Put stores snap under gen. A snapshot read before an invalidation lands on
// a generation nobody reads any more.
func (r *Redis) Put(ctx context.Context, gen int64, snap pricing.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := r.client.Set(ctx, snapshotKey(gen), raw, r.ttl).Err(); err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}

// Invalidate advances the generation and drops the snapshot of the previous one.
func (r *Redis) Invalidate(ctx context.Context) error {
	gen, err := r.client.Incr(ctx, GenerationKey).Result()
	if err != nil {
		return errx.WrapRedis(err)
	}
	if err := r.client.Del(ctx, snapshotKey(gen-1)).Err(); err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}

// Noop never caches.
type Noop struct{}

func (Noop) Get(context.Context) (Entry, error) { return Entry{}, nil }

func (Noop) Put(context.Context, int64, pricing.Snapshot) error { return nil }

func (Noop) Invalidate(context.Context) error { return nil }
