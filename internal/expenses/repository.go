package expenses

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines expense data access.
type Repository interface {
	// List returns expenses newest first.
	List(ctx context.Context) ([]Expense, error)
	Insert(ctx context.Context, e Expense) (Expense, error)
}

var _ Repository = (*pgRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) List(ctx context.Context) ([]Expense, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT expense_id, description, amount, category, expense_date
		FROM expenses
		ORDER BY expense_date DESC, expense_id DESC`)
	if err != nil {
		return nil, fmt.Errorf("expenses: list: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Expense])
}

func (r *pgRepository) Insert(ctx context.Context, e Expense) (Expense, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO expenses (description, amount, category, expense_date)
		VALUES ($1, $2, $3, $4) RETURNING expense_id`,
		e.Description, e.Amount, string(e.Category), e.Date,
	).Scan(&e.ID)
	if err != nil {
		return Expense{}, fmt.Errorf("expenses: insert: %w", err)
	}
	return e, nil
}
