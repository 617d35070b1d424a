package expenses

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/kitchenledger/kitchenledger/internal/events"
	"github.com/kitchenledger/kitchenledger/internal/money"
	"github.com/kitchenledger/kitchenledger/internal/shared"
)

// Service records and lists expenses.
type Service struct {
	repo      Repository
	publisher events.Publisher
	logger    *slog.Logger
	loc       *time.Location
	now       func() time.Time
}

// NewService constructs the expense service.
func NewService(repo Repository, publisher events.Publisher, logger *slog.Logger, loc *time.Location) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{repo: repo, publisher: publisher, logger: logger, loc: loc, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// List returns every expense newest first with the listed total.
func (s *Service) List(ctx context.Context) (List, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return List{}, err
	}
	if items == nil {
		items = []Expense{}
	}
	amounts := make([]money.Amount, len(items))
	for i, e := range items {
		amounts[i] = e.Amount
	}
	return List{Expenses: items, Total: money.Sum(amounts...)}, nil
}

// Add records an expense.
func (s *Service) Add(ctx context.Context, in Input) (Expense, error) {
	e := Expense{
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount,
		Category:    in.Category,
		Date:        in.Date,
	}
	if e.Description == "" {
		return Expense{}, shared.Invalid("description", "description is required")
	}
	if err := money.RequireNonNegative(e.Amount); err != nil {
		return Expense{}, shared.InvalidErr("amount", err)
	}
	if !e.Category.Valid() {
		return Expense{}, shared.Invalid("category", "category must be one of Ingredients, Utilities, Salary or Other")
	}
	if e.Date.IsZero() {
		e.Date = shared.NewDate(s.now().In(s.loc))
	}

	saved, err := s.repo.Insert(ctx, e)
	if err != nil {
		return Expense{}, err
	}
	if err := s.publisher.Publish(ctx, events.New(events.ExpenseRecorded, saved)); err != nil {
		s.logger.Warn("publish event", slog.String("event", events.ExpenseRecorded), slog.Any("error", err))
	}
	return saved, nil
}
