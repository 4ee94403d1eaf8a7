// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

// Package redis provides a Redis-backed store.StateStore so that several
// gateway instances share provider counters.
package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/darcy-ai/darcy/internal/store"
	darcyerr "github.com/darcy-ai/darcy/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces provider hashes when no prefix is configured.
const DefaultKeyPrefix = "darcy:provider:"

const connectTimeout = 5 * time.Second

func init() {
	store.RegisterBackend("redis", func(cfg store.Config) (store.StateStore, error) {
		return New(cfg.Redis)
	})
}

// Store persists each provider's state as a Redis hash. Counters are only
// ever incremented, so every instance pointed at the same prefix contributes
// to the same totals.
type Store struct {
	rdb    *goredis.Client
	prefix string
}

var _ store.StateStore = (*Store)(nil)

// New connects to Redis and verifies the connection with PING.
func New(cfg store.RedisConfig) (*Store, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, darcyerr.Wrap(err, darcyerr.CodeStoreConnectFailure, "redis ping failed",
			darcyerr.Field("addr", cfg.Addr))
	}

	return NewWithClient(rdb, cfg.KeyPrefix), nil
}

// NewWithClient wraps an existing client. An empty prefix selects
// DefaultKeyPrefix.
func NewWithClient(rdb *goredis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{rdb: rdb, prefix: prefix}
}

func (s *Store) key(providerID string) string {
	return s.prefix + providerID
}

func (s *Store) Load(ctx context.Context, providerID string) (store.ProviderState, error) {
	fields, err := s.rdb.HGetAll(ctx, s.key(providerID)).Result()
	if err != nil {
		return store.ProviderState{}, darcyerr.Wrap(err, darcyerr.CodeStoreReadFailure, "reading provider state",
			darcyerr.FieldProvider(providerID))
	}
	if len(fields) == 0 {
		return store.ProviderState{}, store.ErrNotFound
	}
	return decode(fields), nil
}

// Apply increments the counter fields with HINCRBY inside a MULTI/EXEC
// transaction and reads the merged hash back in the same round trip.
func (s *Store) Apply(ctx context.Context, providerID string, d store.Delta) (store.ProviderState, error) {
	key := s.key(providerID)

	var all *goredis.MapStringStringCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		if d.Usage != 0 {
			pipe.HIncrBy(ctx, key, "usage_count", d.Usage)
		}
		if d.Success != 0 {
			pipe.HIncrBy(ctx, key, "success_count", d.Success)
		}
		if d.Errors != 0 {
			pipe.HIncrBy(ctx, key, "error_count", d.Errors)
		}
		if fields := encodeDelta(d); len(fields) > 0 {
			pipe.HSet(ctx, key, fields)
		}
		all = pipe.HGetAll(ctx, key)
		return nil
	})
	if err != nil {
		return store.ProviderState{}, darcyerr.Wrap(err, darcyerr.CodeStoreWriteFailure, "updating provider state",
			darcyerr.FieldProvider(providerID))
	}
	return decode(all.Val()), nil
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func encodeDelta(d store.Delta) map[string]any {
	fields := make(map[string]any, 4)
	if !d.LastUsedAt.IsZero() {
		fields["last_response_ms"] = d.LastResponseMs
		fields["last_used_at"] = formatTime(d.LastUsedAt)
	}
	if !d.ProbedAt.IsZero() {
		fields["healthy"] = strconv.FormatBool(d.Healthy)
		fields["last_probe_at"] = formatTime(d.ProbedAt)
	}
	return fields
}

// decode tolerates missing or malformed fields; they decode as zero values.
func decode(fields map[string]string) store.ProviderState {
	healthy, _ := strconv.ParseBool(fields["healthy"])
	return store.ProviderState{
		Healthy:        healthy,
		LastResponseMs: parseInt(fields["last_response_ms"]),
		UsageCount:     parseInt(fields["usage_count"]),
		SuccessCount:   parseInt(fields["success_count"]),
		ErrorCount:     parseInt(fields["error_count"]),
		LastUsedAt:     parseTime(fields["last_used_at"]),
		LastProbeAt:    parseTime(fields["last_probe_at"]),
	}
}

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
