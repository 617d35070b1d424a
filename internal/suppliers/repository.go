package suppliers

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kitchenledger/kitchenledger/internal/platform/db"
	"github.com/kitchenledger/kitchenledger/internal/shared"
)

// ErrPartyNotFound is returned when no bill carries the supplier name.
var ErrPartyNotFound = fmt.Errorf("supplier %w", shared.ErrNotFound)

// Repository defines supplier ledger data access. An empty party name
// selects every supplier.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	ListBills(ctx context.Context, partyName string) ([]Bill, error)
	ListPayments(ctx context.Context, partyName string) ([]Payment, error)
	PartyNames(ctx context.Context) ([]string, error)
}

// TxRepository defines operations within a transaction.
type TxRepository interface {
	ClaimIdempotencyKey(ctx context.Context, key, scope string) error
	// LockParty serialises writers of one supplier until the transaction ends.
	LockParty(ctx context.Context, partyName string) error
	ListBills(ctx context.Context, partyName string) ([]Bill, error)
	ListPayments(ctx context.Context, partyName string) ([]Payment, error)
	InsertBill(ctx context.Context, b Bill) (Bill, error)
	InsertPayment(ctx context.Context, p Payment) (Payment, error)
}

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

func listBills(ctx context.Context, q db.DBTX, partyName string) ([]Bill, error) {
	rows, err := q.Query(ctx, `
		SELECT party_id, party_name, supply_date, total_amount, details
		FROM supply_parties
		WHERE $1 = '' OR party_name = $1
		ORDER BY party_id`, NormalizeName(partyName))
	if err != nil {
		return nil, fmt.Errorf("suppliers: list bills: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Bill])
}

func listPayments(ctx context.Context, q db.DBTX, partyName string) ([]Payment, error) {
	rows, err := q.Query(ctx, `
		SELECT pp.payment_id, pp.party_id, sp.party_name, pp.payment_date, pp.amount_paid, pp.notes
		FROM party_payments pp
		JOIN supply_parties sp ON sp.party_id = pp.party_id
		WHERE $1 = '' OR sp.party_name = $1
		ORDER BY pp.payment_id`, NormalizeName(partyName))
	if err != nil {
		return nil, fmt.Errorf("suppliers: list payments: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Payment])
}

func (r *pgRepository) ListBills(ctx context.Context, partyName string) ([]Bill, error) {
	return listBills(ctx, r.pool, partyName)
}

func (r *pgRepository) ListPayments(ctx context.Context, partyName string) ([]Payment, error) {
	return listPayments(ctx, r.pool, partyName)
}

func (r *pgRepository) PartyNames(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT party_name FROM supply_parties ORDER BY party_name`)
	if err != nil {
		return nil, fmt.Errorf("suppliers: party names: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (t *pgTxRepository) ClaimIdempotencyKey(ctx context.Context, key, scope string) error {
	return shared.ClaimIdempotencyKey(ctx, t.tx, key, scope)
}

func (t *pgTxRepository) LockParty(ctx context.Context, partyName string) error {
	return db.AdvisoryXactLock(ctx, t.tx, shared.PartyLockKey(partyName))
}

func (t *pgTxRepository) ListBills(ctx context.Context, partyName string) ([]Bill, error) {
	return listBills(ctx, t.tx, partyName)
}

func (t *pgTxRepository) ListPayments(ctx context.Context, partyName string) ([]Payment, error) {
	return listPayments(ctx, t.tx, partyName)
}

func (t *pgTxRepository) InsertBill(ctx context.Context, b Bill) (Bill, error) {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO supply_parties (party_name, supply_date, total_amount, details)
		VALUES ($1, $2, $3, $4) RETURNING party_id`,
		NormalizeName(b.PartyName), b.SupplyDate, b.TotalAmount, b.Details,
	).Scan(&b.ID)
	if err != nil {
		return Bill{}, fmt.Errorf("suppliers: insert bill: %w", err)
	}
	return b, nil
}

func (t *pgTxRepository) InsertPayment(ctx context.Context, p Payment) (Payment, error) {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO party_payments (party_id, amount_paid, payment_date, notes)
		VALUES ($1, $2, $3, $4) RETURNING payment_id`,
		p.PartyID, p.AmountPaid, p.PaymentDate, p.Note,
	).Scan(&p.ID)
	if err != nil {
		return Payment{}, fmt.Errorf("suppliers: insert payment: %w", err)
	}
	return p, nil
}
