package orders

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kitchenledger/kitchenledger/internal/money"
)

// PaymentTotal pairs an order's cached payment fields with the sum of its
// payment log.
type PaymentTotal struct {
	OrderID        int64
	TotalAmount    money.Amount
	AdvancePayment money.Amount
	Status         Status
	Paid           money.Amount
}

// Mismatch is an order whose cached fields disagree with its payment log.
type Mismatch struct {
	OrderID        int64        `json:"order_id"`
	CachedAdvance  money.Amount `json:"cached_advance"`
	LoggedPaid     money.Amount `json:"logged_paid"`
	CachedStatus   Status       `json:"cached_status"`
	ExpectedStatus Status       `json:"expected_status"`
}

// FindMismatches returns every row whose advance or status differs from
// what the payment log implies.
func FindMismatches(rows []PaymentTotal) []Mismatch {
	var out []Mismatch
	for _, row := range rows {
		expected := ComputeStatus(row.TotalAmount, row.Paid)
		if row.AdvancePayment.Equal(row.Paid) && row.Status == expected {
			continue
		}
		out = append(out, Mismatch{
			OrderID:        row.OrderID,
			CachedAdvance:  row.AdvancePayment,
			LoggedPaid:     row.Paid,
			CachedStatus:   row.Status,
			ExpectedStatus: expected,
		})
	}
	return out
}

// IntegrityReader loads payment totals for the integrity check.
type IntegrityReader struct {
	pool *pgxpool.Pool
}

// NewIntegrityReader returns a reader over pool.
func NewIntegrityReader(pool *pgxpool.Pool) *IntegrityReader {
	return &IntegrityReader{pool: pool}
}

// PaymentTotals returns one row per order.
func (r *IntegrityReader) PaymentTotals(ctx context.Context) ([]PaymentTotal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT o.order_id, o.total_amount, o.advance_payment, o.status, COALESCE(SUM(p.amount), 0)
		FROM orders o
		LEFT JOIN payments p ON p.order_id = o.order_id
		GROUP BY o.order_id
		ORDER BY o.order_id`)
	if err != nil {
		return nil, fmt.Errorf("orders: payment totals: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[PaymentTotal])
}
