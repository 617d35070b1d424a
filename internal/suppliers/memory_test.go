package suppliers

import (
	"context"
	"sort"

	"github.com/kitchenledger/kitchenledger/internal/shared"
)

type memoryState struct {
	bills    []Bill
	payments []Payment
	keys     map[string]bool
	nextID   int64
}

func (s memoryState) clone() memoryState {
	out := memoryState{
		bills:    append([]Bill(nil), s.bills...),
		payments: append([]Payment(nil), s.payments...),
		keys:     make(map[string]bool, len(s.keys)),
		nextID:   s.nextID,
	}
	for k, v := range s.keys {
		out.keys[k] = v
	}
	return out
}

func (s *memoryState) listBills(name string) []Bill {
	name = NormalizeName(name)
	var out []Bill
	for _, b := range s.bills {
		if name == "" || b.PartyName == name {
			out = append(out, b)
		}
	}
	return out
}

func (s *memoryState) listPayments(name string) []Payment {
	name = NormalizeName(name)
	owner := map[int64]string{}
	for _, b := range s.bills {
		owner[b.ID] = b.PartyName
	}
	var out []Payment
	for _, p := range s.payments {
		p.PartyName = owner[p.PartyID]
		if name == "" || p.PartyName == name {
			out = append(out, p)
		}
	}
	return out
}

type memoryRepo struct {
	state memoryState
	locks []string
}

type memoryTx struct {
	repo  *memoryRepo
	state *memoryState
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: memoryState{keys: map[string]bool{}}}
}

func (r *memoryRepo) seedBill(name, date, amount string) Bill {
	r.state.nextID++
	b := Bill{ID: r.state.nextID, PartyName: name, SupplyDate: day(date), TotalAmount: amt(amount)}
	r.state.bills = append(r.state.bills, b)
	return b
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	work := r.state.clone()
	if err := fn(ctx, &memoryTx{repo: r, state: &work}); err != nil {
		return err
	}
	r.state = work
	return nil
}

func (r *memoryRepo) ListBills(ctx context.Context, partyName string) ([]Bill, error) {
	return r.state.listBills(partyName), nil
}

func (r *memoryRepo) ListPayments(ctx context.Context, partyName string) ([]Payment, error) {
	return r.state.listPayments(partyName), nil
}

func (r *memoryRepo) PartyNames(ctx context.Context) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, b := range r.state.bills {
		if !seen[b.PartyName] {
			seen[b.PartyName] = true
			out = append(out, b.PartyName)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (t *memoryTx) ClaimIdempotencyKey(ctx context.Context, key, scope string) error {
	if key == "" {
		return nil
	}
	if t.state.keys[scope+"/"+key] {
		return shared.ErrIdempotencyConflict
	}
	t.state.keys[scope+"/"+key] = true
	return nil
}

func (t *memoryTx) LockParty(ctx context.Context, partyName string) error {
	t.repo.locks = append(t.repo.locks, partyName)
	return nil
}

func (t *memoryTx) ListBills(ctx context.Context, partyName string) ([]Bill, error) {
	return t.state.listBills(partyName), nil
}

func (t *memoryTx) ListPayments(ctx context.Context, partyName string) ([]Payment, error) {
	return t.state.listPayments(partyName), nil
}

func (t *memoryTx) InsertBill(ctx context.Context, b Bill) (Bill, error) {
	t.state.nextID++
	b.ID = t.state.nextID
	t.state.bills = append(t.state.bills, b)
	return b, nil
}

func (t *memoryTx) InsertPayment(ctx context.Context, p Payment) (Payment, error) {
	t.state.nextID++
	p.ID = t.state.nextID
	t.state.payments = append(t.state.payments, p)
	return p, nil
}
