package sidecar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"paramkit/internal/metrics"
	"paramkit/internal/paramstore"
)

// ParameterSource abstracts the read side of the parameter client so the
// refresher can be tested without a store.
type ParameterSource interface {
	Get(ctx context.Context, reqs []paramstore.Request) (map[string]string, error)
}

// Refresher periodically re-resolves the manifest through the parameter
// client and swaps the result into the cache. Store calls run behind a
// circuit breaker: repeated failures open it and refresh cycles become
// cheap no-ops while the sidecar keeps serving the stale snapshot.
type Refresher struct {
	source   ParameterSource
	requests []paramstore.Request
	cache    *Cache
	breaker  *gobreaker.CircuitBreaker[map[string]string]
	interval time.Duration
	metrics  *metrics.Recorder
	logger   *slog.Logger
}

// RefresherOption is a functional option for configuring a Refresher.
type RefresherOption func(*Refresher)

// WithMetrics enables refresh failure metrics.
func WithMetrics(rec *metrics.Recorder) RefresherOption {
	return func(r *Refresher) {
		r.metrics = rec
	}
}

// WithBreaker overrides the circuit breaker. This is intended for tests that
// need tighter trip thresholds.
func WithBreaker(cb *gobreaker.CircuitBreaker[map[string]string]) RefresherOption {
	return func(r *Refresher) {
		r.breaker = cb
	}
}

// NewRefresher creates a Refresher for the given manifest requests.
func NewRefresher(
	source ParameterSource,
	requests []paramstore.Request,
	cache *Cache,
	interval time.Duration,
	logger *slog.Logger,
	opts ...RefresherOption,
) *Refresher {
	cb := gobreaker.NewCircuitBreaker[map[string]string](gobreaker.Settings{
		Name:        "paramstore-refresh",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})

	r := &Refresher{
		source:   source,
		requests: requests,
		cache:    cache,
		breaker:  cb,
		interval: interval,
		logger:   logger,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Refresh runs one refresh cycle. On success the cache snapshot is replaced.
// On failure the cache is left untouched and an error is returned; callers
// keep serving the previous snapshot.
func (r *Refresher) Refresh(ctx context.Context) error {
	start := time.Now()
	values, err := r.breaker.Execute(func() (map[string]string, error) {
		return r.source.Get(ctx, r.requests)
	})
	if err != nil {
		if r.metrics != nil {
			r.metrics.RecordOperation(ctx, "refresh", metrics.OutcomeFailure, time.Since(start))
			r.metrics.RecordRefreshFailure(ctx)
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			r.logger.Warn("refresh skipped, breaker open; serving stale values",
				"stale_since", r.cache.RefreshedAt(),
			)
		} else {
			r.logger.Warn("refresh failed; serving stale values",
				"error", err,
				"stale_since", r.cache.RefreshedAt(),
			)
		}
		return fmt.Errorf("sidecar: refresh failed: %w", err)
	}

	r.cache.SetAll(values)
	if r.metrics != nil {
		r.metrics.RecordOperation(ctx, "refresh", metrics.OutcomeSuccess, time.Since(start))
		r.metrics.RecordBatchSize(ctx, "refresh", len(r.requests))
	}
	r.logger.Debug("cache refreshed", "parameters", len(values))
	return nil
}

// Run refreshes immediately, then on every interval tick until ctx is
// cancelled. Refresh failures are already logged; Run never returns them.
func (r *Refresher) Run(ctx context.Context) {
	_ = r.Refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("refresh loop stopped")
			return
		case <-ticker.C:
			_ = r.Refresh(ctx)
		}
	}
}
