package suppliers

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kitchenledger/kitchenledger/internal/money"
)

// BuildLedger merges bills (debits) and payments (credits) into a dated
// statement with a running balance starting at zero. Entries on the same
// date keep bills before payments, each in id order, so the same records
// always produce the same statement.
func BuildLedger(partyName string, bills []Bill, payments []Payment) Ledger {
	bills = append([]Bill(nil), bills...)
	payments = append([]Payment(nil), payments...)
	sort.Slice(bills, func(i, j int) bool { return bills[i].ID < bills[j].ID })
	sort.Slice(payments, func(i, j int) bool { return payments[i].ID < payments[j].ID })

	entries := make([]Entry, 0, len(bills)+len(payments))
	for _, b := range bills {
		entries = append(entries, Entry{
			Kind:        Debit,
			RefID:       b.ID,
			Date:        b.SupplyDate,
			Description: billDescription(b),
			Debit:       b.TotalAmount,
			Credit:      money.Zero,
		})
	}
	for _, p := range payments {
		entries = append(entries, Entry{
			Kind:        Credit,
			RefID:       p.ID,
			Date:        p.PaymentDate,
			Description: paymentDescription(p),
			Debit:       money.Zero,
			Credit:      p.AmountPaid,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Date.Before(entries[j].Date) })

	ledger := Ledger{
		PartyName:   partyName,
		Entries:     entries,
		TotalDebit:  money.Zero,
		TotalCredit: money.Zero,
	}
	balance := money.Zero
	for i := range entries {
		balance = balance.Add(entries[i].Debit).Sub(entries[i].Credit)
		entries[i].Balance = balance
		ledger.TotalDebit = ledger.TotalDebit.Add(entries[i].Debit)
		ledger.TotalCredit = ledger.TotalCredit.Add(entries[i].Credit)
	}
	ledger.Pending = balance
	return ledger
}

func billDescription(b Bill) string {
	details := strings.TrimSpace(b.Details)
	if details == "" {
		details = "Goods/Services"
	}
	return fmt.Sprintf("Supply #%d - %s", b.ID, details)
}

func paymentDescription(p Payment) string {
	note := strings.TrimSpace(p.Note)
	if note == "" {
		note = fmt.Sprintf("Towards Invoice #%d", p.PartyID)
	}
	return "Payment - " + note
}

// Summarize rolls bills and payments up per supplier name, sorted by name.
// Payments count toward the name of the bill they reference.
func Summarize(bills []Bill, payments []Payment) []Aggregate {
	byName := make(map[string]*Aggregate)
	nameOfBill := make(map[int64]string, len(bills))
	var names []string
	for _, b := range bills {
		name := NormalizeName(b.PartyName)
		nameOfBill[b.ID] = name
		agg, ok := byName[name]
		if !ok {
			agg = &Aggregate{PartyName: name, TotalAmount: money.Zero, AmountPaid: money.Zero}
			byName[name] = agg
			names = append(names, name)
		}
		agg.TotalAmount = agg.TotalAmount.Add(b.TotalAmount)
		if isLater(b, agg) {
			agg.ID, agg.SupplyDate = b.ID, b.SupplyDate
		}
	}
	for _, p := range payments {
		name, ok := nameOfBill[p.PartyID]
		if !ok {
			continue
		}
		byName[name].AmountPaid = byName[name].AmountPaid.Add(p.AmountPaid)
	}
	sort.Strings(names)
	out := make([]Aggregate, 0, len(names))
	for _, name := range names {
		agg := byName[name]
		agg.PendingAmount = agg.TotalAmount.Sub(agg.AmountPaid)
		out = append(out, *agg)
	}
	return out
}

func isLater(b Bill, agg *Aggregate) bool {
	if agg.ID == 0 {
		return true
	}
	if !b.SupplyDate.Equal(agg.SupplyDate) {
		return agg.SupplyDate.Before(b.SupplyDate)
	}
	return b.ID > agg.ID
}

// LatestBill returns the bill new payments are recorded against.
func LatestBill(bills []Bill) (Bill, bool) {
	var (
		latest Bill
		found  bool
	)
	for _, b := range bills {
		if !found || latest.SupplyDate.Before(b.SupplyDate) ||
			(latest.SupplyDate.Equal(b.SupplyDate) && b.ID > latest.ID) {
			latest, found = b, true
		}
	}
	return latest, found
}
