package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kitchenledger/kitchenledger/internal/money"
	"github.com/kitchenledger/kitchenledger/internal/shared"
)

// Repository runs the dashboard aggregates.
type Repository interface {
	// OrdersPlaced counts orders with order_date in [from, to).
	OrdersPlaced(ctx context.Context, from, to time.Time) (int64, error)
	// SalesBetween sums total_amount of orders with order_date in [from, to).
	SalesBetween(ctx context.Context, from, to time.Time) (money.Amount, error)
	// PendingTotal sums the remaining amount of every unfulfilled order.
	PendingTotal(ctx context.Context) (money.Amount, error)
	// ExpensesOn sums expenses dated day.
	ExpensesOn(ctx context.Context, day shared.Date) (money.Amount, error)
}

var _ Repository = (*pgRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) OrdersPlaced(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM orders WHERE order_date >= $1 AND order_date < $2`, from, to).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("dashboard: orders placed: %w", err)
	}
	return n, nil
}

func (r *pgRepository) sum(ctx context.Context, op, sql string, args ...any) (money.Amount, error) {
	var total money.Amount
	if err := r.pool.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return money.Zero, fmt.Errorf("dashboard: %s: %w", op, err)
	}
	return total, nil
}

func (r *pgRepository) SalesBetween(ctx context.Context, from, to time.Time) (money.Amount, error) {
	return r.sum(ctx, "sales", `
		SELECT COALESCE(SUM(total_amount), 0) FROM orders
		WHERE order_date >= $1 AND order_date < $2`, from, to)
}

func (r *pgRepository) PendingTotal(ctx context.Context) (money.Amount, error) {
	return r.sum(ctx, "pending", `
		SELECT COALESCE(SUM(GREATEST(total_amount - advance_payment, 0)), 0) FROM orders
		WHERE status <> 'Fulfilled'`)
}

func (r *pgRepository) ExpensesOn(ctx context.Context, day shared.Date) (money.Amount, error) {
	return r.sum(ctx, "expenses", `
		SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE expense_date = $1`, day)
}
