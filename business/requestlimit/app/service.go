// Package app counts client calls against a fixed window limit.
package app

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/reserve-relayer/business/requestlimit/domain"
	"github.com/fd1az/reserve-relayer/internal/apperror"
	"github.com/fd1az/reserve-relayer/internal/logger"
)

// DefaultWindow is the length of a counting window.
const DefaultWindow = time.Hour

// Store persists one Record per client key. Records are evicted after ttl.
type Store interface {
	Get(ctx context.Context, key string) (domain.Record, bool, error)
	Set(ctx context.Context, key string, record domain.Record, ttl time.Duration) error
}

// Config holds the limit policy.
type Config struct {
	Window   time.Duration
	MaxCalls int
}

// Service counts calls per client key.
//
// The read and the write of a record are separate store calls, so two first
// calls for the same key that interleave both start a fresh window and one
// call goes uncounted. The undercount is bounded by the number of concurrent
// first calls and is accepted.
type Service struct {
	store  Store
	cfg    Config
	now    func() time.Time
	logger logger.LoggerInterface

	limited metric.Int64Counter
}

// NewService creates a Service. A nil now uses time.Now.
func NewService(store Store, cfg Config, now func() time.Time, log logger.LoggerInterface) (*Service, error) {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.MaxCalls < 1 {
		return nil, fmt.Errorf("request limit: max calls must be >= 1, got %d", cfg.MaxCalls)
	}
	if now == nil {
		now = time.Now
	}

	limited, err := otel.Meter("requestlimit").Int64Counter("request_limit_rejections_total",
		metric.WithDescription("Calls rejected by the request limit"))
	if err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return &Service{store: store, cfg: cfg, now: now, logger: log, limited: limited}, nil
}

// GetLimit counts one call for clientKey and reports what is left of the window.
func (s *Service) GetLimit(ctx context.Context, clientKey string) (domain.Limit, error) {
	if clientKey == "" {
		return domain.Limit{}, apperror.InvalidArgument("client key is required")
	}
	now := s.now()

	record, ok, err := s.store.Get(ctx, clientKey)
	if err != nil {
		return domain.Limit{}, apperror.Wrap(err, apperror.CodeCacheError, "request limit read")
	}

	if !ok || record.Expired(now) {
		record = domain.Record{CallCount: 1, WindowExpiration: now.Add(s.cfg.Window)}
	} else {
		record.CallCount++
	}

	if err := s.store.Set(ctx, clientKey, record, record.WindowExpiration.Sub(now)); err != nil {
		return domain.Limit{}, apperror.Wrap(err, apperror.CodeCacheError, "request limit write")
	}

	if record.CallCount > s.cfg.MaxCalls {
		s.limited.Add(ctx, 1)
		return domain.Limit{IsLimitReached: true}, nil
	}

	return domain.Limit{
		RemainingLimit:         s.cfg.MaxCalls - record.CallCount,
		LimitPerHour:           s.cfg.MaxCalls,
		CurrentLimitExpiration: record.WindowExpiration,
	}, nil
}

// MaxCalls returns the calls allowed per window.
func (s *Service) MaxCalls() int {
	return s.cfg.MaxCalls
}
