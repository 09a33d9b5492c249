//
// # Licensing
//
// This file is part of the GAuth project and is licensed under the Apache License 2.0.
// It incorporates code and concepts from:
//   - OAuth 2.0 and OpenID Connect (Apache 2.0 License)
//   - Model Context Protocol (MIT License)
// See the LICENSE file in the project root for details.

// Package rediscolumns implements columnstore.Store on top of Redis,
// keying one Redis key per (row, column) pair so each column can carry
// its own TTL via SET ... EX.
package rediscolumns

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/gimelauth/tokensvc/internal/columnstore"
)

// Config holds the Redis connection and keying parameters.
type Config struct {
	// Address of the Redis server (host:port).
	Address string

	// Password for Redis authentication, empty if none.
	Password string

	// DB is the Redis logical database number.
	DB int

	// KeyPrefix namespaces every key this store writes, so one Redis
	// instance can host more than one column family.
	KeyPrefix string

	MaxRetries      int
	MinRetryBackoff time.Duration
	MaxRetryBackoff time.Duration
}

// Store is a Redis-backed columnstore.Store.
type Store struct {
	client    *redis.Client
	keyPrefix string
}

// New creates a Store and verifies connectivity with a Ping.
func New(cfg Config) (*Store, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("rediscolumns: no address configured")
	}

	client := redis.NewClient(&redis.Options{
		Addr:            cfg.Address,
		Password:        cfg.Password,
		DB:              cfg.DB,
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: cfg.MinRetryBackoff,
		MaxRetryBackoff: cfg.MaxRetryBackoff,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("rediscolumns: connect: %w", err)
	}

	return &Store{client: client, keyPrefix: cfg.KeyPrefix}, nil
}

// NewFromClient wraps an already-constructed client, used by tests
// against miniredis.
func NewFromClient(client *redis.Client, keyPrefix string) *Store {
	return &Store{client: client, keyPrefix: keyPrefix}
}

// Close releases the underlying Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(rowKey [16]byte, column string) string {
	return fmt.Sprintf("%s%s:%s", s.keyPrefix, hex.EncodeToString(rowKey[:]), column)
}

// SetColumns implements columnstore.Store: every column is written in
// one pipelined round trip, each with its own SET ... EX.
func (s *Store) SetColumns(ctx context.Context, rowKey [16]byte, columns map[string][]byte, ttl time.Duration) error {
	if len(columns) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for name, value := range columns {
		pipe.Set(ctx, s.key(rowKey, name), value, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rediscolumns: set columns: %w", err)
	}
	return nil
}

// GetColumns implements columnstore.Store: the requested names are read
// with a single MGET. ErrNotFound is returned when none of the
// requested columns exist; a subset of names missing is represented by
// their simple absence from the result map.
func (s *Store) GetColumns(ctx context.Context, rowKey [16]byte, names []string) (map[string][]byte, error) {
	if len(names) == 0 {
		return map[string][]byte{}, nil
	}

	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = s.key(rowKey, name)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("rediscolumns: get columns: %w", err)
	}

	result := make(map[string][]byte, len(names))
	for i, v := range values {
		if v == nil {
			continue
		}
		str, ok := v.(string)
		if !ok {
			continue
		}
		result[names[i]] = []byte(str)
	}

	if len(result) == 0 {
		return nil, columnstore.ErrNotFound
	}
	return result, nil
}
