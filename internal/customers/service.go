package customers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/kitchenledger/kitchenledger/internal/events"
	"github.com/kitchenledger/kitchenledger/internal/shared"
)

// Service provides customer lookups and history.
type Service struct {
	repo      Repository
	publisher events.Publisher
	logger    *slog.Logger
}

// NewService constructs the customer service.
func NewService(repo Repository, publisher events.Publisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, publisher: publisher, logger: logger}
}

// Lookup finds customers by name or phone for the order form. Terms shorter
// than MinLookupLength return nothing.
func (s *Service) Lookup(ctx context.Context, term string) ([]Customer, error) {
	term = strings.TrimSpace(term)
	if utf8.RuneCountInString(term) < MinLookupLength {
		return []Customer{}, nil
	}
	return s.repo.Search(ctx, term)
}

// Create stores a new customer.
func (s *Service) Create(ctx context.Context, in NewCustomerInput) (Customer, error) {
	if strings.TrimSpace(in.Name) == "" {
		return Customer{}, shared.Invalid("name", "customer name is required")
	}
	if strings.TrimSpace(in.Phone) == "" {
		return Customer{}, shared.Invalid("phone", "customer phone is required")
	}
	c, err := s.repo.Create(ctx, in)
	if err != nil {
		return Customer{}, err
	}
	if err := s.publisher.Publish(ctx, events.New(events.CustomerCreated, c)); err != nil {
		s.logger.Warn("publish event", slog.String("event", events.CustomerCreated), slog.Any("error", err))
	}
	return c, nil
}

// History rolls up every matching customer's orders. It is computed from the
// order rows on each call.
func (s *Service) History(ctx context.Context, term string) ([]HistoryEntry, error) {
	list, byCustomer, err := s.repo.History(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("customers: history: %w", err)
	}
	out := make([]HistoryEntry, 0, len(list))
	for _, c := range list {
		out = append(out, HistoryEntry{Customer: c, Summary: Aggregate(byCustomer[c.ID])})
	}
	return out, nil
}
