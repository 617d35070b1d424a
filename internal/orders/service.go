package orders

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kitchenledger/kitchenledger/internal/events"
	"github.com/kitchenledger/kitchenledger/internal/money"
	"github.com/kitchenledger/kitchenledger/internal/shared"
)

const (
	scopeCreate  = "orders.create"
	scopePayment = "orders.payment"
)

// Service implements the order ledger.
type Service struct {
	repo      Repository
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewService constructs the order service. A nil publisher drops events.
func NewService(repo Repository, publisher events.Publisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, publisher: publisher, logger: logger, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// CreateOrder stores a new order with its lines. A new customer, the order,
// its lines and the advance payment are written in one transaction.
func (s *Service) CreateOrder(ctx context.Context, in NewOrder, idempotencyKey string) (Order, error) {
	// Catalog prices are only known inside the transaction, so the advance
	// is checked against the total there.
	if err := CheckOrderShape(in); err != nil {
		return Order{}, err
	}

	var created Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.ClaimIdempotencyKey(ctx, idempotencyKey, scopeCreate); err != nil {
			return err
		}

		lines, err := snapshotPrices(ctx, tx, in.Lines)
		if err != nil {
			return err
		}
		in.Lines = lines
		planned, err := PlanOrder(in)
		if err != nil {
			return err
		}

		if in.Customer.New != nil {
			id, err := tx.CreateCustomer(ctx, *in.Customer.New)
			if err != nil {
				return err
			}
			planned.CustomerID = id
		} else {
			ok, err := tx.CustomerExists(ctx, planned.CustomerID)
			if err != nil {
				return err
			}
			if !ok {
				return shared.Invalid("customer", "customer not found")
			}
		}

		planned.OrderDate = s.now()
		order, err := tx.InsertOrder(ctx, planned)
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, order.ID, lines); err != nil {
			return err
		}
		if order.AdvancePayment.IsPositive() {
			_, err := tx.InsertPayment(ctx, Payment{
				OrderID:     order.ID,
				Amount:      order.AdvancePayment,
				PaymentDate: order.OrderDate,
				Notes:       AdvancePaymentNote,
			})
			if err != nil {
				return err
			}
		}
		created = order
		return nil
	})
	if err != nil {
		return Order{}, fmt.Errorf("orders: create order: %w", err)
	}

	s.publish(ctx, events.New(events.OrderCreated, map[string]any{
		"order_id":        created.ID,
		"customer_id":     created.CustomerID,
		"total_amount":    created.TotalAmount,
		"advance_payment": created.AdvancePayment,
		"status":          created.Status,
	}))
	return created, nil
}

// snapshotPrices replaces the unit price of catalog lines with the current
// menu price.
func snapshotPrices(ctx context.Context, tx TxRepository, lines []Line) ([]Line, error) {
	var ids []int64
	for _, l := range lines {
		if l.Kind == LineCatalog {
			ids = append(ids, l.ItemID)
		}
	}
	if len(ids) == 0 {
		return lines, nil
	}
	prices, err := tx.MenuPrices(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]Line, len(lines))
	for i, l := range lines {
		if l.Kind == LineCatalog {
			price, ok := prices[l.ItemID]
			if !ok {
				return nil, shared.Invalid("items", fmt.Sprintf("menu item %d not found", l.ItemID))
			}
			l.UnitPrice = price
		}
		out[i] = l
	}
	return out, nil
}

// AddPayment records a payment against an order and returns the order as it
// is afterwards. The order row stays locked from validation to commit.
func (s *Service) AddPayment(ctx context.Context, in PaymentInput) (Order, error) {
	if err := money.RequirePositive(in.Amount); err != nil {
		return Order{}, shared.InvalidErr("amount", err)
	}

	var (
		updated Order
		payment Payment
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.ClaimIdempotencyKey(ctx, in.IdempotencyKey, scopePayment); err != nil {
			return err
		}
		order, err := tx.LockOrder(ctx, in.OrderID)
		if err != nil {
			return err
		}
		advance, status, err := ApplyPayment(order, in.Amount)
		if err != nil {
			return err
		}
		payment, err = tx.InsertPayment(ctx, Payment{
			OrderID:     order.ID,
			Amount:      in.Amount,
			PaymentDate: s.now(),
			Notes:       strings.TrimSpace(in.Notes),
		})
		if err != nil {
			return err
		}
		if err := tx.UpdatePaymentState(ctx, order.ID, advance, status); err != nil {
			return err
		}
		order.AdvancePayment = advance
		order.Status = status
		updated = order
		return nil
	})
	if err != nil {
		return Order{}, fmt.Errorf("orders: add payment: %w", err)
	}

	s.publish(ctx, events.New(events.PaymentRecorded, map[string]any{
		"order_id":         updated.ID,
		"payment_id":       payment.ID,
		"amount":           payment.Amount,
		"advance_payment":  updated.AdvancePayment,
		"remaining_amount": updated.Remaining(),
		"status":           updated.Status,
	}))
	return updated, nil
}

// ListPending returns orders that are not fully paid, newest first.
func (s *Service) ListPending(ctx context.Context, search string) ([]Order, error) {
	return s.repo.ListPending(ctx, search)
}

// ListForCustomer returns a customer's orders, newest first.
func (s *Service) ListForCustomer(ctx context.Context, customerID int64) ([]Order, error) {
	return s.repo.ListByCustomer(ctx, customerID)
}

// Payments returns the payment log of an order.
func (s *Service) Payments(ctx context.Context, orderID int64) ([]Payment, error) {
	if _, err := s.repo.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.repo.ListPayments(ctx, orderID)
}

// Items returns the lines of an order.
func (s *Service) Items(ctx context.Context, orderID int64) ([]ItemView, error) {
	if _, err := s.repo.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.repo.ListItems(ctx, orderID)
}

func (s *Service) publish(ctx context.Context, ev events.Event) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("publish event", slog.String("event", ev.Name), slog.Any("error", err))
	}
}
