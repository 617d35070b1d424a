package orders

import (
	"context"
	"sort"
	"strings"

	"github.com/kitchenledger/kitchenledger/internal/money"
	"github.com/kitchenledger/kitchenledger/internal/shared"
)

type memoryCustomer struct {
	name, phone, address string
}

type memoryState struct {
	customers map[int64]memoryCustomer
	menu      map[int64]money.Amount
	orders    map[int64]Order
	lines     map[int64][]Line
	payments  map[int64][]Payment
	keys      map[string]bool
	nextID    int64
}

func (s memoryState) clone() memoryState {
	out := memoryState{
		customers: make(map[int64]memoryCustomer, len(s.customers)),
		menu:      s.menu,
		orders:    make(map[int64]Order, len(s.orders)),
		lines:     make(map[int64][]Line, len(s.lines)),
		payments:  make(map[int64][]Payment, len(s.payments)),
		keys:      make(map[string]bool, len(s.keys)),
		nextID:    s.nextID,
	}
	for k, v := range s.customers {
		out.customers[k] = v
	}
	for k, v := range s.orders {
		out.orders[k] = v
	}
	for k, v := range s.lines {
		out.lines[k] = append([]Line(nil), v...)
	}
	for k, v := range s.payments {
		out.payments[k] = append([]Payment(nil), v...)
	}
	for k, v := range s.keys {
		out.keys[k] = v
	}
	return out
}

// memoryRepo keeps state in maps; a transaction works on a copy that only
// replaces the state when fn succeeds.
type memoryRepo struct {
	state memoryState
	txErr error
}

type memoryTx struct {
	state *memoryState
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: memoryState{
		customers: map[int64]memoryCustomer{},
		menu:      map[int64]money.Amount{},
		orders:    map[int64]Order{},
		lines:     map[int64][]Line{},
		payments:  map[int64][]Payment{},
		keys:      map[string]bool{},
	}}
}

func (r *memoryRepo) addCustomer(name, phone string) int64 {
	r.state.nextID++
	r.state.customers[r.state.nextID] = memoryCustomer{name: name, phone: phone}
	return r.state.nextID
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	work := r.state.clone()
	if err := fn(ctx, &memoryTx{state: &work}); err != nil {
		return err
	}
	if r.txErr != nil {
		return r.txErr
	}
	r.state = work
	return nil
}

func (r *memoryRepo) withCustomer(o Order) Order {
	c := r.state.customers[o.CustomerID]
	o.CustomerName, o.CustomerPhone = c.name, c.phone
	return o
}

func (r *memoryRepo) GetOrder(ctx context.Context, id int64) (Order, error) {
	o, ok := r.state.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return r.withCustomer(o), nil
}

func (r *memoryRepo) sorted(keep func(Order) bool) []Order {
	var out []Order
	for _, o := range r.state.orders {
		if keep(o) {
			out = append(out, r.withCustomer(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r *memoryRepo) ListPending(ctx context.Context, search string) ([]Order, error) {
	search = strings.ToLower(strings.TrimSpace(search))
	return r.sorted(func(o Order) bool {
		if o.Status == StatusFulfilled {
			return false
		}
		c := r.state.customers[o.CustomerID]
		return search == "" || strings.Contains(strings.ToLower(c.name), search) || strings.Contains(c.phone, search)
	}), nil
}

func (r *memoryRepo) ListByCustomer(ctx context.Context, customerID int64) ([]Order, error) {
	return r.sorted(func(o Order) bool { return o.CustomerID == customerID }), nil
}

func (r *memoryRepo) ListPayments(ctx context.Context, orderID int64) ([]Payment, error) {
	return append([]Payment(nil), r.state.payments[orderID]...), nil
}

func (r *memoryRepo) ListItems(ctx context.Context, orderID int64) ([]ItemView, error) {
	var out []ItemView
	for i, l := range r.state.lines[orderID] {
		v := ItemView{ID: int64(i + 1), Quantity: l.Quantity, UnitPrice: l.UnitPrice}
		if l.Kind == LineCatalog {
			id := l.ItemID
			v.ItemID = &id
		} else {
			name := l.Name
			v.CustomItemName = &name
		}
		out = append(out, v)
	}
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

func (t *memoryTx) CreateCustomer(ctx context.Context, c NewCustomer) (int64, error) {
	t.state.nextID++
	t.state.customers[t.state.nextID] = memoryCustomer{name: c.Name, phone: c.Phone, address: c.Address}
	return t.state.nextID, nil
}

func (t *memoryTx) CustomerExists(ctx context.Context, id int64) (bool, error) {
	_, ok := t.state.customers[id]
	return ok, nil
}

func (t *memoryTx) MenuPrices(ctx context.Context, itemIDs []int64) (map[int64]money.Amount, error) {
	out := map[int64]money.Amount{}
	for _, id := range itemIDs {
		if p, ok := t.state.menu[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (t *memoryTx) InsertOrder(ctx context.Context, o Order) (Order, error) {
	t.state.nextID++
	o.ID = t.state.nextID
	t.state.orders[o.ID] = o
	return o, nil
}

func (t *memoryTx) InsertLines(ctx context.Context, orderID int64, lines []Line) error {
	t.state.lines[orderID] = append(t.state.lines[orderID], lines...)
	return nil
}

func (t *memoryTx) InsertPayment(ctx context.Context, p Payment) (Payment, error) {
	t.state.nextID++
	p.ID = t.state.nextID
	t.state.payments[p.OrderID] = append(t.state.payments[p.OrderID], p)
	return p, nil
}

func (t *memoryTx) LockOrder(ctx context.Context, id int64) (Order, error) {
	o, ok := t.state.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return o, nil
}

func (t *memoryTx) UpdatePaymentState(ctx context.Context, id int64, advance money.Amount, status Status) error {
	o, ok := t.state.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	o.AdvancePayment, o.Status = advance, status
	t.state.orders[id] = o
	return nil
}
