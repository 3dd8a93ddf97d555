// Package redis keeps request limit records in Redis so that every relayer
// instance counts against the same window.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fd1az/reserve-relayer/business/requestlimit/app"
	"github.com/fd1az/reserve-relayer/business/requestlimit/domain"
	"github.com/fd1az/reserve-relayer/internal/apperror"
	"github.com/fd1az/reserve-relayer/internal/redisclient"
)

var _ app.Store = (*Store)(nil)

const namespace = "limit"

// Store keeps one JSON record per client with native key expiry.
type Store struct {
	rdb    redis.UniversalClient
	prefix string
}

// New creates a Store with keys under prefix.
func New(rdb redis.UniversalClient, prefix string) *Store {
	return &Store{rdb: rdb, prefix: prefix}
}

func (s *Store) key(clientKey string) string {
	return redisclient.Key(s.prefix, namespace, clientKey)
}

// Get implements app.Store.
func (s *Store) Get(ctx context.Context, key string) (domain.Record, bool, error) {
	data, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Record{}, false, nil
	}
	if err != nil {
		return domain.Record{}, false, apperror.External(apperror.CodeCacheError, "redis get", err)
	}

	var r domain.Record
	if err := json.Unmarshal(data, &r); err != nil {
		// a corrupt record starts a new window
		return domain.Record{}, false, nil
	}
	return r, true, nil
}

// Set implements app.Store.
func (s *Store) Set(ctx context.Context, key string, record domain.Record, ttl time.Duration) error {
	data, err := json.Marshal(record)
	if err != nil {
		return apperror.Internal(apperror.CodeCacheError, "marshal record", err)
	}
	if ttl <= 0 {
		ttl = time.Millisecond
	}
	if err := s.rdb.Set(ctx, s.key(key), data, ttl).Err(); err != nil {
		return apperror.External(apperror.CodeCacheError, "redis set", err)
	}
	return nil
}
