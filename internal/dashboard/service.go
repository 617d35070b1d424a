package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/kitchenledger/kitchenledger/internal/events"
	"github.com/kitchenledger/kitchenledger/internal/platform/cache"
)

// CacheNamespace is the Redis namespace of cached dashboard figures.
const CacheNamespace = "kitchenledger:dashboard"

// Service computes dashboard stats, optionally through a versioned cache.
type Service struct {
	repo   Repository
	cache  *cache.Versioned
	logger *slog.Logger
	loc    *time.Location
	now    func() time.Time
	group  singleflight.Group
}

// NewService constructs the dashboard service. A nil cache computes every
// request from the database.
func NewService(repo Repository, c *cache.Versioned, logger *slog.Logger, loc *time.Location) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{repo: repo, cache: c, logger: logger, loc: loc, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Stats returns today's figures. Concurrent callers for the same day share
// one computation.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	w := Today(s.now(), s.loc)
	v, err, _ := s.group.Do(w.Day.String(), func() (any, error) {
		return s.cached(context.WithoutCancel(ctx), w)
	})
	if err != nil {
		return Stats{}, err
	}
	return v.(Stats), nil
}

func (s *Service) cached(ctx context.Context, w Window) (Stats, error) {
	key, err := s.cache.BuildKey(ctx, "stats", w.Day.String())
	if err != nil {
		s.logger.Warn("dashboard cache unavailable", slog.Any("error", err))
		return s.Compute(ctx, w)
	}
	var (
		stats   Stats
		loadErr error
	)
	err = s.cache.FetchJSON(ctx, key, &stats, func(ctx context.Context) (any, error) {
		fresh, err := s.Compute(ctx, w)
		loadErr = err
		return fresh, err
	})
	if loadErr != nil {
		return Stats{}, loadErr
	}
	if err != nil {
		s.logger.Warn("dashboard cache unavailable", slog.Any("error", err))
		return s.Compute(ctx, w)
	}
	return stats, nil
}

// Compute runs the four aggregates for w concurrently, bypassing the cache.
func (s *Service) Compute(ctx context.Context, w Window) (Stats, error) {
	var stats Stats
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := s.repo.OrdersPlaced(ctx, w.Start, w.End)
		stats.OrdersCount = n
		return err
	})
	g.Go(func() error {
		total, err := s.repo.SalesBetween(ctx, w.Start, w.End)
		stats.TodaysSales = total
		return err
	})
	g.Go(func() error {
		total, err := s.repo.PendingTotal(ctx)
		stats.PendingAmount = total
		return err
	})
	g.Go(func() error {
		total, err := s.repo.ExpensesOn(ctx, w.Day)
		stats.TodaysExpenses = total
		return err
	})

	if err := g.Wait(); err != nil {
		return Stats{}, fmt.Errorf("dashboard: stats: %w", err)
	}
	return stats, nil
}

// Warm computes today's figures and stores them under the current cache
// version.
func (s *Service) Warm(ctx context.Context) (Stats, error) {
	w := Today(s.now(), s.loc)
	stats, err := s.Compute(ctx, w)
	if err != nil {
		return Stats{}, err
	}
	key, err := s.cache.BuildKey(ctx, "stats", w.Day.String())
	if err != nil {
		return Stats{}, err
	}
	if err := s.cache.Store(ctx, key, stats); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// Invalidator bumps the dashboard cache version on every committed write.
type Invalidator struct {
	Cache *cache.Versioned
}

// Publish implements events.Publisher.
func (i Invalidator) Publish(ctx context.Context, ev events.Event) error {
	if err := i.Cache.Bump(ctx); err != nil {
		return fmt.Errorf("dashboard: invalidate after %s: %w", ev.Name, err)
	}
	return nil
}
