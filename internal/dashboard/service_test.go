package dashboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitchenledger/kitchenledger/internal/events"
	"github.com/kitchenledger/kitchenledger/internal/money"
	"github.com/kitchenledger/kitchenledger/internal/platform/cache"
	"github.com/kitchenledger/kitchenledger/internal/shared"
)

type memOrder struct {
	placed    time.Time
	total     money.Amount
	advance   money.Amount
	fulfilled bool
}

type memExpense struct {
	day    shared.Date
	amount money.Amount
}

type memoryRepo struct {
	mu       sync.Mutex
	orders   []memOrder
	expenses []memExpense
	calls    atomic.Int64
	gate     chan struct{}
	err      error
}

func (r *memoryRepo) enter() error {
	r.calls.Add(1)
	if r.gate != nil {
		<-r.gate
	}
	return r.err
}

func (r *memoryRepo) inWindow(from, to time.Time) []memOrder {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []memOrder
	for _, o := range r.orders {
		if !o.placed.Before(from) && o.placed.Before(to) {
			out = append(out, o)
		}
	}
	return out
}

func (r *memoryRepo) OrdersPlaced(ctx context.Context, from, to time.Time) (int64, error) {
	if err := r.enter(); err != nil {
		return 0, err
	}
	return int64(len(r.inWindow(from, to))), nil
}

func (r *memoryRepo) SalesBetween(ctx context.Context, from, to time.Time) (money.Amount, error) {
	if err := r.enter(); err != nil {
		return money.Zero, err
	}
	total := money.Zero
	for _, o := range r.inWindow(from, to) {
		total = total.Add(o.total)
	}
	return total, nil
}

func (r *memoryRepo) PendingTotal(ctx context.Context) (money.Amount, error) {
	if err := r.enter(); err != nil {
		return money.Zero, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	total := money.Zero
	for _, o := range r.orders {
		if !o.fulfilled {
			total = total.Add(money.Max(o.total.Sub(o.advance), money.Zero))
		}
	}
	return total, nil
}

func (r *memoryRepo) ExpensesOn(ctx context.Context, day shared.Date) (money.Amount, error) {
	if err := r.enter(); err != nil {
		return money.Zero, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	total := money.Zero
	for _, e := range r.expenses {
		if e.day.Equal(day) {
			total = total.Add(e.amount)
		}
	}
	return total, nil
}

var karachi = time.FixedZone("PKT", 5*60*60)

// 01:30 local on 2026-05-10, still the 9th in UTC.
var testNow = time.Date(2026, 5, 10, 1, 30, 0, 0, karachi)

func newTestService(t *testing.T, c *cache.Versioned) (*Service, *memoryRepo) {
	t.Helper()
	repo := &memoryRepo{}
	svc := NewService(repo, c, slog.New(slog.NewTextHandler(io.Discard, nil)), karachi)
	svc.WithNow(func() time.Time { return testNow })
	return svc, repo
}

func mustDate(t *testing.T, s string) shared.Date {
	t.Helper()
	d, err := shared.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestToday(t *testing.T) {
	w := Today(testNow.UTC(), karachi)
	assert.Equal(t, time.Date(2026, 5, 10, 0, 0, 0, 0, karachi), w.Start)
	assert.Equal(t, 24*time.Hour, w.End.Sub(w.Start))
	assert.Equal(t, "2026-05-10", w.Day.String())
}

func TestStatsWindowing(t *testing.T) {
	svc, repo := newTestService(t, nil)
	repo.orders = []memOrder{
		{placed: time.Date(2026, 5, 10, 0, 0, 0, 0, karachi), total: money.MustParse("1500"), advance: money.MustParse("1500"), fulfilled: true},
		{placed: time.Date(2026, 5, 10, 1, 0, 0, 0, karachi), total: money.MustParse("800"), advance: money.MustParse("300")},
		// Yesterday: not in today's sales but still pending.
		{placed: time.Date(2026, 5, 9, 23, 59, 0, 0, karachi), total: money.MustParse("1000"), advance: money.MustParse("250")},
		{placed: time.Date(2026, 5, 11, 0, 0, 0, 0, karachi), total: money.MustParse("99")},
	}
	repo.expenses = []memExpense{
		{day: mustDate(t, "2026-05-10"), amount: money.MustParse("120.50")},
		{day: mustDate(t, "2026-05-09"), amount: money.MustParse("999")},
	}

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.OrdersCount)
	assert.Equal(t, "2300.00", stats.TodaysSales.String())
	assert.Equal(t, "1349.00", stats.PendingAmount.String())
	assert.Equal(t, "120.50", stats.TodaysExpenses.String())
}

func TestStatsError(t *testing.T) {
	svc, repo := newTestService(t, nil)
	repo.err = errors.New("db down")

	_, err := svc.Stats(context.Background())
	assert.ErrorContains(t, err, "db down")
}

func TestStatsCachedUntilInvalidated(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c := cache.NewVersioned(client, CacheNamespace, time.Minute)

	svc, repo := newTestService(t, c)
	repo.expenses = []memExpense{{day: mustDate(t, "2026-05-10"), amount: money.MustParse("10")}}
	ctx := context.Background()

	first, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), repo.calls.Load())

	repo.expenses = append(repo.expenses, memExpense{day: mustDate(t, "2026-05-10"), amount: money.MustParse("5")})
	cached, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, cached)
	assert.Equal(t, int64(4), repo.calls.Load())

	require.NoError(t, Invalidator{Cache: c}.Publish(ctx, events.New(events.ExpenseRecorded, nil)))
	fresh, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "15.00", fresh.TodaysExpenses.String())
	assert.Equal(t, int64(8), repo.calls.Load())
}

func TestStatsFallsBackWhenCacheDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	svc, _ := newTestService(t, cache.NewVersioned(client, CacheNamespace, time.Minute))
	mr.Close()

	_, err := svc.Stats(context.Background())
	assert.NoError(t, err)
}

func TestStatsCollapsesConcurrentCalls(t *testing.T) {
	svc, repo := newTestService(t, nil)
	repo.gate = make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Stats(context.Background())
			assert.NoError(t, err)
		}()
	}
	// Let the first computation block until every caller has joined it.
	require.Eventually(t, func() bool { return repo.calls.Load() == 4 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(repo.gate)
	wg.Wait()
	assert.Equal(t, int64(4), repo.calls.Load())
}

func TestWarmStoresUnderCurrentVersion(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	svc, repo := newTestService(t, cache.NewVersioned(client, CacheNamespace, time.Minute))

	_, err := svc.Warm(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(4), repo.calls.Load())

	_, err = svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), repo.calls.Load())
}

func TestHandler(t *testing.T) {
	svc, repo := newTestService(t, nil)
	repo.orders = []memOrder{{placed: testNow, total: money.MustParse("100"), advance: money.Zero}}
	r := chi.NewRouter()
	NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ordersCount":1,"todaysSales":100,"pendingAmount":100,"todaysExpenses":0}`, rec.Body.String())
}
