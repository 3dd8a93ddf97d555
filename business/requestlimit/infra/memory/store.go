// Package memory keeps request limit records in process.
package memory

import (
	"context"
	"time"

	"github.com/fd1az/reserve-relayer/business/requestlimit/app"
	"github.com/fd1az/reserve-relayer/business/requestlimit/domain"
	"github.com/fd1az/reserve-relayer/internal/cache"
)

var _ app.Store = (*Store)(nil)

// Store is an in-memory Store backed by a TTL cache.
type Store struct {
	records *cache.Cache[string, domain.Record]
}

// New creates a Store sweeping expired records every cleanupInterval.
func New(cleanupInterval time.Duration) *Store {
	return &Store{records: cache.New[string, domain.Record](cleanupInterval)}
}

// Get implements app.Store.
func (s *Store) Get(ctx context.Context, key string) (domain.Record, bool, error) {
	r, ok := s.records.Get(ctx, key)
	return r, ok, nil
}

// Set implements app.Store.
func (s *Store) Set(ctx context.Context, key string, record domain.Record, ttl time.Duration) error {
	s.records.Set(ctx, key, record, ttl)
	return nil
}

// Close drops every record.
func (s *Store) Close() {
	s.records.Close()
}
