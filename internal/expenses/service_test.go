package expenses

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitchenledger/kitchenledger/internal/events"
	"github.com/kitchenledger/kitchenledger/internal/money"
	"github.com/kitchenledger/kitchenledger/internal/shared"
)

type memoryRepo struct {
	items  []Expense
	nextID int64
}

func (r *memoryRepo) List(ctx context.Context) ([]Expense, error) {
	out := append([]Expense(nil), r.items...)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[j].Date.Before(out[i].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *memoryRepo) Insert(ctx context.Context, e Expense) (Expense, error) {
	r.nextID++
	e.ID = r.nextID
	r.items = append(r.items, e)
	return e, nil
}

type failingPublisher struct{ calls int }

func (p *failingPublisher) Publish(ctx context.Context, ev events.Event) error {
	p.calls++
	return errors.New("broker down")
}

func newTestService(t *testing.T) (*Service, *memoryRepo, *failingPublisher) {
	t.Helper()
	repo := &memoryRepo{}
	pub := &failingPublisher{}
	loc := time.FixedZone("PKT", 5*60*60)
	svc := NewService(repo, pub, slog.New(slog.NewTextHandler(io.Discard, nil)), loc)
	// 20:30 UTC is already the next day in PKT.
	svc.WithNow(func() time.Time { return time.Date(2026, 4, 1, 20, 30, 0, 0, time.UTC) })
	return svc, repo, pub
}

func date(t *testing.T, s string) shared.Date {
	t.Helper()
	d, err := shared.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestAddDefaultsToLocalToday(t *testing.T) {
	svc, _, pub := newTestService(t)

	e, err := svc.Add(context.Background(), Input{Description: " Gas bill ", Amount: money.MustParse("1200"), Category: CategoryUtilities})
	require.NoError(t, err)
	assert.Equal(t, "Gas bill", e.Description)
	assert.Equal(t, "2026-04-02", e.Date.String())
	assert.Equal(t, 1, pub.calls, "publish failures do not fail the write")
}

func TestAddValidation(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	cases := map[string]Input{
		"description": {Description: "  ", Amount: money.FromInt(1), Category: CategoryOther},
		"amount":      {Description: "x", Amount: money.MustParse("-0.01"), Category: CategoryOther},
		"category":    {Description: "x", Amount: money.FromInt(1), Category: "Rent"},
	}
	for field, in := range cases {
		_, err := svc.Add(ctx, in)
		var verr *shared.ValidationError
		require.ErrorAs(t, err, &verr, field)
		assert.Equal(t, field, verr.Field)
	}
	assert.Empty(t, repo.items)

	_, err := svc.Add(ctx, Input{Description: "free sample", Amount: money.Zero, Category: CategoryIngredients})
	assert.NoError(t, err, "zero amount is allowed")
}

func TestListNewestFirstWithTotal(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.items = []Expense{
		{ID: 1, Description: "a", Amount: money.MustParse("100.10"), Category: CategoryOther, Date: date(t, "2026-03-01")},
		{ID: 2, Description: "b", Amount: money.MustParse("50"), Category: CategorySalary, Date: date(t, "2026-03-05")},
		{ID: 3, Description: "c", Amount: money.MustParse("0.90"), Category: CategoryOther, Date: date(t, "2026-03-01")},
	}

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	var ids []int64
	for _, e := range list.Expenses {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []int64{2, 3, 1}, ids)
	assert.Equal(t, "151.00", list.Total.String())
}

func TestHandlerRoundTrip(t *testing.T) {
	svc, _, _ := newTestService(t)
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	router := chi.NewRouter()
	router.Route("/api", h.MountRoutes)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/expenses", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := post(`{"description":"Flour","amount":2500.5,"category":"Ingredients","expense_date":"2026-03-30"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = post(`{"description":"Flour","amount":10,"category":"Rent"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = post(`{"description":"Flour","amount":1.234,"category":"Other"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/expenses", nil)
	listRec := httptest.NewRecorder()
	router.ServeHTTP(listRec, req)
	require.Equal(t, http.StatusOK, listRec.Code)

	var body struct {
		Expenses []struct {
			Date     string `json:"expense_date"`
			Category string `json:"category"`
		} `json:"expenses"`
		Total json.Number `json:"total"`
	}
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &body))
	require.Len(t, body.Expenses, 1)
	assert.Equal(t, "2026-03-30", body.Expenses[0].Date)
	assert.Equal(t, "2500.50", body.Total.String())
}
