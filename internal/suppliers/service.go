package suppliers

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/kitchenledger/kitchenledger/internal/events"
	"github.com/kitchenledger/kitchenledger/internal/money"
	"github.com/kitchenledger/kitchenledger/internal/shared"
)

const (
	scopeTransaction = "suppliers.transaction"
	scopeBill        = "suppliers.bill"
)

// Service implements the supplier ledger.
type Service struct {
	repo      Repository
	publisher events.Publisher
	logger    *slog.Logger
	loc       *time.Location
	now       func() time.Time
}

// NewService constructs the supplier service. Dates default to loc's
// calendar day.
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

func (s *Service) today() shared.Date {
	return shared.NewDate(s.now().In(s.loc))
}

// ListParties returns one roll-up row per supplier name.
func (s *Service) ListParties(ctx context.Context) ([]Aggregate, error) {
	bills, err := s.repo.ListBills(ctx, "")
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPayments(ctx, "")
	if err != nil {
		return nil, err
	}
	return Summarize(bills, payments), nil
}

// ListPartyNames returns the distinct supplier names.
func (s *Service) ListPartyNames(ctx context.Context) ([]string, error) {
	names, err := s.repo.PartyNames(ctx)
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// AddSupplyBill records a new bill for a supplier, creating the supplier if
// the name is new.
func (s *Service) AddSupplyBill(ctx context.Context, in BillInput, idempotencyKey string) (Bill, error) {
	name := NormalizeName(in.PartyName)
	if name == "" {
		return Bill{}, shared.Invalid("party_name", "party name is required")
	}
	if err := money.RequirePositive(in.Amount); err != nil {
		return Bill{}, shared.InvalidErr("total_amount", err)
	}
	date := in.SupplyDate
	if date.IsZero() {
		date = s.today()
	}

	var bill Bill
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.ClaimIdempotencyKey(ctx, idempotencyKey, scopeBill); err != nil {
			return err
		}
		if err := tx.LockParty(ctx, name); err != nil {
			return err
		}
		var err error
		bill, err = tx.InsertBill(ctx, Bill{
			PartyName:   name,
			SupplyDate:  date,
			TotalAmount: in.Amount,
			Details:     strings.TrimSpace(in.Details),
		})
		return err
	})
	if err != nil {
		return Bill{}, fmt.Errorf("suppliers: add bill: %w", err)
	}
	s.publish(ctx, string(TxCharge), name, bill.ID, bill.TotalAmount)
	return bill, nil
}

// Ledger builds the statement of one supplier.
func (s *Service) Ledger(ctx context.Context, partyName string) (Ledger, error) {
	name := NormalizeName(partyName)
	if name == "" {
		return Ledger{}, shared.Invalid("partyName", "party name is required")
	}
	bills, err := s.repo.ListBills(ctx, name)
	if err != nil {
		return Ledger{}, err
	}
	if len(bills) == 0 {
		return Ledger{}, ErrPartyNotFound
	}
	payments, err := s.repo.ListPayments(ctx, name)
	if err != nil {
		return Ledger{}, err
	}
	return BuildLedger(name, bills, payments), nil
}

// AddTransaction records a payment to or a charge from a supplier and returns
// the rebuilt statement. A charge on a new name creates the supplier, as
// AddSupplyBill does. Payments are checked against the pending balance
// read under the supplier lock, so two concurrent payments cannot overpay.
func (s *Service) AddTransaction(ctx context.Context, in TransactionInput) (Ledger, error) {
	name := NormalizeName(in.PartyName)
	if name == "" {
		return Ledger{}, shared.Invalid("party_name", "party name is required")
	}
	if in.Type != TxPayment && in.Type != TxCharge {
		return Ledger{}, shared.Invalid("type", "type must be Payment or Charge")
	}
	if err := money.RequirePositive(in.Amount); err != nil {
		return Ledger{}, shared.InvalidErr("amount", err)
	}
	date := in.Date
	if date.IsZero() {
		date = s.today()
	}
	note := strings.TrimSpace(in.Note)

	var (
		ledger Ledger
		refID  int64
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.ClaimIdempotencyKey(ctx, in.IdempotencyKey, scopeTransaction); err != nil {
			return err
		}
		if err := tx.LockParty(ctx, name); err != nil {
			return err
		}
		bills, err := tx.ListBills(ctx, name)
		if err != nil {
			return err
		}
		payments, err := tx.ListPayments(ctx, name)
		if err != nil {
			return err
		}

		switch in.Type {
		case TxPayment:
			// A payment is booked against a bill; a charge opens one.
			if len(bills) == 0 {
				return ErrPartyNotFound
			}
			current := BuildLedger(name, bills, payments)
			if err := money.RequireWithin(in.Amount, current.Pending); err != nil {
				return shared.InvalidErr("amount", err)
			}
			latest, _ := LatestBill(bills)
			p, err := tx.InsertPayment(ctx, Payment{
				PartyID:     latest.ID,
				PartyName:   name,
				PaymentDate: date,
				AmountPaid:  in.Amount,
				Note:        note,
			})
			if err != nil {
				return err
			}
			refID = p.ID
			payments = append(payments, p)
		case TxCharge:
			b, err := tx.InsertBill(ctx, Bill{
				PartyName:   name,
				SupplyDate:  date,
				TotalAmount: in.Amount,
				Details:     note,
			})
			if err != nil {
				return err
			}
			refID = b.ID
			bills = append(bills, b)
		}
		ledger = BuildLedger(name, bills, payments)
		return nil
	})
	if err != nil {
		return Ledger{}, fmt.Errorf("suppliers: add transaction: %w", err)
	}
	s.publish(ctx, string(in.Type), name, refID, in.Amount)
	return ledger, nil
}

// ExportLedgerCSV writes a supplier statement as CSV.
func (s *Service) ExportLedgerCSV(ctx context.Context, partyName string, w io.Writer) error {
	ledger, err := s.Ledger(ctx, partyName)
	if err != nil {
		return err
	}
	return WriteLedgerCSV(w, ledger)
}

// WriteLedgerCSV serialises a statement with a closing pending row.
func WriteLedgerCSV(w io.Writer, ledger Ledger) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Date", "Description", "Debit", "Credit", "Balance"}); err != nil {
		return err
	}
	for _, e := range ledger.Entries {
		if err := writer.Write([]string{
			e.Date.String(),
			e.Description,
			e.Debit.String(),
			e.Credit.String(),
			e.Balance.String(),
		}); err != nil {
			return err
		}
	}
	if err := writer.Write([]string{"", "Pending", ledger.TotalDebit.String(), ledger.TotalCredit.String(), ledger.Pending.String()}); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

func (s *Service) publish(ctx context.Context, kind, name string, refID int64, amount money.Amount) {
	ev := events.New(events.SupplierTransaction, map[string]any{
		"type":       kind,
		"party_name": name,
		"ref_id":     refID,
		"amount":     amount,
	})
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("publish event", slog.String("event", ev.Name), slog.Any("error", err))
	}
}
