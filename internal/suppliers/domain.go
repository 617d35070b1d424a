// Package suppliers keeps the supply party ledger: bills raised by suppliers
// and the payments made to them, grouped by supplier name.
package suppliers

import (
	"strings"

	"github.com/kitchenledger/kitchenledger/internal/money"
	"github.com/kitchenledger/kitchenledger/internal/shared"
)

// Bill is a supply record. Its amount is owed to the supplier.
type Bill struct {
	ID          int64        `json:"id"`
	PartyName   string       `json:"party_name"`
	SupplyDate  shared.Date  `json:"supply_date"`
	TotalAmount money.Amount `json:"total_amount"`
	Details     string       `json:"details"`
}

// Payment is money paid to a supplier. PartyID is the bill it was recorded
// against; for balances only the supplier name matters.
type Payment struct {
	ID          int64        `json:"id"`
	PartyID     int64        `json:"party_id"`
	PartyName   string       `json:"party_name"`
	PaymentDate shared.Date  `json:"payment_date"`
	AmountPaid  money.Amount `json:"amount_paid"`
	Note        string       `json:"note"`
}

// Aggregate is the per supplier roll-up shown in the parties list. ID and
// SupplyDate come from the supplier's latest bill.
type Aggregate struct {
	ID            int64        `json:"id"`
	PartyName     string       `json:"party_name"`
	SupplyDate    shared.Date  `json:"supply_date"`
	TotalAmount   money.Amount `json:"total_amount"`
	AmountPaid    money.Amount `json:"amount_paid"`
	PendingAmount money.Amount `json:"pending_amount"`
}

// EntryKind tells debits from credits.
type EntryKind string

const (
	Debit  EntryKind = "debit"
	Credit EntryKind = "credit"
)

// Entry is one line of a supplier statement with the balance after it.
type Entry struct {
	Kind        EntryKind    `json:"type"`
	RefID       int64        `json:"ref_id"`
	Date        shared.Date  `json:"date"`
	Description string       `json:"description"`
	Debit       money.Amount `json:"debit"`
	Credit      money.Amount `json:"credit"`
	Balance     money.Amount `json:"balance"`
}

// Ledger is a supplier statement.
type Ledger struct {
	PartyName   string       `json:"party_name"`
	Entries     []Entry      `json:"entries"`
	TotalDebit  money.Amount `json:"total_debit"`
	TotalCredit money.Amount `json:"total_credit"`
	Pending     money.Amount `json:"pending_amount"`
}

// TxType is the kind of a party transaction.
type TxType string

const (
	TxPayment TxType = "Payment"
	TxCharge  TxType = "Charge"
)

// BillInput is the input of AddSupplyBill.
type BillInput struct {
	PartyName  string       `json:"party_name" validate:"required"`
	SupplyDate shared.Date  `json:"supply_date"`
	Amount     money.Amount `json:"total_amount"`
	Details    string       `json:"details"`
}

// TransactionInput is the input of AddTransaction. A zero Date means today.
type TransactionInput struct {
	Type           TxType       `json:"type" validate:"required,oneof=Payment Charge"`
	PartyName      string       `json:"party_name" validate:"required"`
	Amount         money.Amount `json:"amount"`
	Note           string       `json:"note"`
	Date           shared.Date  `json:"date"`
	IdempotencyKey string       `json:"-"`
}

// NormalizeName trims a supplier name. Names are otherwise compared as typed.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}
