package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kitchenledger/kitchenledger/internal/money"
	"github.com/kitchenledger/kitchenledger/internal/platform/db"
	"github.com/kitchenledger/kitchenledger/internal/shared"
)

// ErrOrderNotFound is returned for unknown order ids.
var ErrOrderNotFound = fmt.Errorf("order %w", shared.ErrNotFound)

// Repository defines order data access.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	GetOrder(ctx context.Context, id int64) (Order, error)
	ListPending(ctx context.Context, search string) ([]Order, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]Order, error)
	ListPayments(ctx context.Context, orderID int64) ([]Payment, error)
	ListItems(ctx context.Context, orderID int64) ([]ItemView, error)
}

// TxRepository defines operations within a transaction.
type TxRepository interface {
	ClaimIdempotencyKey(ctx context.Context, key, scope string) error
	CreateCustomer(ctx context.Context, c NewCustomer) (int64, error)
	CustomerExists(ctx context.Context, id int64) (bool, error)
	MenuPrices(ctx context.Context, itemIDs []int64) (map[int64]money.Amount, error)
	InsertOrder(ctx context.Context, o Order) (Order, error)
	InsertLines(ctx context.Context, orderID int64, lines []Line) error
	InsertPayment(ctx context.Context, p Payment) (Payment, error)
	// LockOrder reads the order and holds its row lock until the
	// transaction ends.
	LockOrder(ctx context.Context, id int64) (Order, error)
	UpdatePaymentState(ctx context.Context, id int64, advance money.Amount, status Status) error
}

// Ensure implementation
var _ Repository = (*pgRepository)(nil)
var _ TxRepository = (*pgTxRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

type pgTxRepository struct {
	tx pgx.Tx
}

// NewRepository returns the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxRepository{tx: tx})
	})
}

const orderColumns = `
	o.order_id, o.customer_id, c.name, c.phone, o.order_type, o.order_date,
	o.delivery_date, o.delivery_time, o.total_amount, o.advance_payment,
	o.delivery_address, o.notes, o.status`

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o    Order
		date shared.Date
	)
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.CustomerName, &o.CustomerPhone, &o.OrderType, &o.OrderDate,
		&date, &o.DeliveryTime, &o.TotalAmount, &o.AdvancePayment,
		&o.DeliveryAddress, &o.Notes, &o.Status,
	)
	if err != nil {
		return Order{}, err
	}
	if !date.IsZero() {
		o.DeliveryDate = &date
	}
	return o, nil
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func getOrder(ctx context.Context, q db.DBTX, id int64, lock bool) (Order, error) {
	query := `SELECT` + orderColumns + `
		FROM orders o JOIN customers c ON c.customer_id = o.customer_id
		WHERE o.order_id = $1`
	if lock {
		query += ` FOR UPDATE OF o`
	}
	o, err := scanOrder(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, fmt.Errorf("orders: get order %d: %w", id, err)
	}
	return o, nil
}

func (r *pgRepository) GetOrder(ctx context.Context, id int64) (Order, error) {
	return getOrder(ctx, r.pool, id, false)
}

func (r *pgRepository) ListPending(ctx context.Context, search string) ([]Order, error) {
	query := `SELECT` + orderColumns + `
		FROM orders o JOIN customers c ON c.customer_id = o.customer_id
		WHERE o.status <> 'Fulfilled'`
	var args []any
	if search = strings.TrimSpace(search); search != "" {
		args = append(args, "%"+search+"%")
		clause := ` AND (c.name ILIKE $1 OR c.phone ILIKE $1`
		if id, err := strconv.ParseInt(search, 10, 64); err == nil {
			args = append(args, id)
			clause += ` OR o.order_id = $2`
		}
		query += clause + `)`
	}
	query += ` ORDER BY o.order_date DESC, o.order_id DESC`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("orders: list pending: %w", err)
	}
	return collectOrders(rows)
}

func (r *pgRepository) ListByCustomer(ctx context.Context, customerID int64) ([]Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT`+orderColumns+`
		FROM orders o JOIN customers c ON c.customer_id = o.customer_id
		WHERE o.customer_id = $1
		ORDER BY o.order_date DESC, o.order_id DESC`, customerID)
	if err != nil {
		return nil, fmt.Errorf("orders: list by customer: %w", err)
	}
	return collectOrders(rows)
}

func (r *pgRepository) ListPayments(ctx context.Context, orderID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT payment_id, order_id, amount, payment_date, notes
		FROM payments WHERE order_id = $1
		ORDER BY payment_date, payment_id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("orders: list payments: %w", err)
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.Amount, &p.PaymentDate, &p.Notes); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *pgRepository) ListItems(ctx context.Context, orderID int64) ([]ItemView, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT oi.order_item_id, oi.item_id, oi.quantity, oi.unit_price, oi.custom_item_name, m.name
		FROM order_items oi LEFT JOIN menu_items m ON m.item_id = oi.item_id
		WHERE oi.order_id = $1
		ORDER BY oi.order_item_id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("orders: list items: %w", err)
	}
	defer rows.Close()
	var out []ItemView
	for rows.Next() {
		var v ItemView
		if err := rows.Scan(&v.ID, &v.ItemID, &v.Quantity, &v.UnitPrice, &v.CustomItemName, &v.MenuItemName); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (t *pgTxRepository) ClaimIdempotencyKey(ctx context.Context, key, scope string) error {
	return shared.ClaimIdempotencyKey(ctx, t.tx, key, scope)
}

func (t *pgTxRepository) CreateCustomer(ctx context.Context, c NewCustomer) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO customers (name, phone, address) VALUES ($1, $2, $3)
		RETURNING customer_id`,
		strings.TrimSpace(c.Name), strings.TrimSpace(c.Phone), strings.TrimSpace(c.Address),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("orders: create customer: %w", err)
	}
	return id, nil
}

func (t *pgTxRepository) CustomerExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE customer_id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("orders: customer exists: %w", err)
	}
	return exists, nil
}

func (t *pgTxRepository) MenuPrices(ctx context.Context, itemIDs []int64) (map[int64]money.Amount, error) {
	prices := make(map[int64]money.Amount, len(itemIDs))
	if len(itemIDs) == 0 {
		return prices, nil
	}
	rows, err := t.tx.Query(ctx, `SELECT item_id, price FROM menu_items WHERE item_id = ANY($1) AND is_active`, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("orders: menu prices: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id    int64
			price money.Amount
		)
		if err := rows.Scan(&id, &price); err != nil {
			return nil, err
		}
		prices[id] = price
	}
	return prices, rows.Err()
}

func (t *pgTxRepository) InsertOrder(ctx context.Context, o Order) (Order, error) {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO orders (customer_id, order_type, order_date, delivery_date, delivery_time,
			total_amount, advance_payment, delivery_address, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING order_id`,
		o.CustomerID, o.OrderType, o.OrderDate, o.DeliveryDate, o.DeliveryTime,
		o.TotalAmount, o.AdvancePayment, o.DeliveryAddress, o.Notes, o.Status,
	).Scan(&o.ID)
	if err != nil {
		return Order{}, fmt.Errorf("orders: insert order: %w", err)
	}
	return o, nil
}

func (t *pgTxRepository) InsertLines(ctx context.Context, orderID int64, lines []Line) error {
	batch := &pgx.Batch{}
	for _, l := range lines {
		var (
			itemID *int64
			name   *string
		)
		if l.Kind == LineCatalog {
			id := l.ItemID
			itemID = &id
		} else {
			n := strings.TrimSpace(l.Name)
			name = &n
		}
		batch.Queue(`
			INSERT INTO order_items (order_id, item_id, custom_item_name, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5)`, orderID, itemID, name, l.Quantity, l.UnitPrice)
	}
	if err := t.tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("orders: insert lines: %w", err)
	}
	return nil
}

func (t *pgTxRepository) InsertPayment(ctx context.Context, p Payment) (Payment, error) {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO payments (order_id, amount, payment_date, notes)
		VALUES ($1, $2, $3, $4) RETURNING payment_id`,
		p.OrderID, p.Amount, p.PaymentDate, p.Notes,
	).Scan(&p.ID)
	if err != nil {
		return Payment{}, fmt.Errorf("orders: insert payment: %w", err)
	}
	return p, nil
}

func (t *pgTxRepository) LockOrder(ctx context.Context, id int64) (Order, error) {
	return getOrder(ctx, t.tx, id, true)
}

func (t *pgTxRepository) UpdatePaymentState(ctx context.Context, id int64, advance money.Amount, status Status) error {
	tag, err := t.tx.Exec(ctx, `UPDATE orders SET advance_payment = $2, status = $3 WHERE order_id = $1`, id, advance, status)
	if err != nil {
		return fmt.Errorf("orders: update payment state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}
