package customers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kitchenledger/kitchenledger/internal/money"
	"github.com/kitchenledger/kitchenledger/internal/orders"
)

// Repository defines customer data access.
type Repository interface {
	Search(ctx context.Context, term string) ([]Customer, error)
	Create(ctx context.Context, in NewCustomerInput) (Customer, error)
	// History returns matching customers with every order they placed,
	// keyed by customer id.
	History(ctx context.Context, term string) ([]Customer, map[int64][]orders.Order, error)
}

var _ Repository = (*pgRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func likePattern(term string) string {
	return "%" + strings.TrimSpace(term) + "%"
}

func (r *pgRepository) Search(ctx context.Context, term string) ([]Customer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT customer_id, name, phone, address FROM customers
		WHERE name ILIKE $1 OR phone ILIKE $1
		ORDER BY name, customer_id
		LIMIT 50`, likePattern(term))
	if err != nil {
		return nil, fmt.Errorf("customers: search: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Customer])
}

func (r *pgRepository) Create(ctx context.Context, in NewCustomerInput) (Customer, error) {
	c := Customer{
		Name:    strings.TrimSpace(in.Name),
		Phone:   strings.TrimSpace(in.Phone),
		Address: strings.TrimSpace(in.Address),
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO customers (name, phone, address) VALUES ($1, $2, $3)
		RETURNING customer_id`, c.Name, c.Phone, c.Address).Scan(&c.ID)
	if err != nil {
		return Customer{}, fmt.Errorf("customers: create: %w", err)
	}
	return c, nil
}

func (r *pgRepository) History(ctx context.Context, term string) ([]Customer, map[int64][]orders.Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.customer_id, c.name, c.phone, c.address,
		       o.order_id, o.order_date, o.total_amount, o.advance_payment, o.status
		FROM customers c
		LEFT JOIN orders o ON o.customer_id = c.customer_id
		WHERE c.name ILIKE $1 OR c.phone ILIKE $1
		ORDER BY c.name, c.customer_id, o.order_date`, likePattern(term))
	if err != nil {
		return nil, nil, fmt.Errorf("customers: history: %w", err)
	}
	defer rows.Close()

	var list []Customer
	byCustomer := make(map[int64][]orders.Order)
	for rows.Next() {
		var (
			c         Customer
			orderID   *int64
			orderDate *time.Time
			status    *string
			total     money.NullAmount
			advance   money.NullAmount
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Address,
			&orderID, &orderDate, &total, &advance, &status); err != nil {
			return nil, nil, err
		}
		if len(list) == 0 || list[len(list)-1].ID != c.ID {
			list = append(list, c)
		}
		if orderID == nil {
			continue
		}
		byCustomer[c.ID] = append(byCustomer[c.ID], orders.Order{
			ID:             *orderID,
			CustomerID:     c.ID,
			OrderDate:      *orderDate,
			TotalAmount:    total.Amount,
			AdvancePayment: advance.Amount,
			Status:         orders.Status(*status),
		})
	}
	return list, byCustomer, rows.Err()
}
