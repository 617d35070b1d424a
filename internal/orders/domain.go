package orders

import (
	"encoding/json"
	"time"

	"github.com/kitchenledger/kitchenledger/internal/money"
	"github.com/kitchenledger/kitchenledger/internal/shared"
)

// Status is the payment state of an order. It is never set directly; it
// always follows from the order's total and advance.
type Status string

const (
	StatusPending       Status = "Pending"
	StatusPartiallyPaid Status = "Partially_Paid"
	StatusFulfilled     Status = "Fulfilled"
)

// OrderType tells where the order was taken.
type OrderType string

const (
	TypeOnline OrderType = "Online"
	TypeLocal  OrderType = "Local"
)

// Valid reports whether t is a known order type.
func (t OrderType) Valid() bool {
	return t == TypeOnline || t == TypeLocal
}

// Order is a customer order with its cached payment aggregate.
type Order struct {
	ID              int64        `json:"order_id"`
	CustomerID      int64        `json:"customer_id"`
	CustomerName    string       `json:"customer_name,omitempty"`
	CustomerPhone   string       `json:"customer_phone,omitempty"`
	OrderType       OrderType    `json:"order_type"`
	OrderDate       time.Time    `json:"order_date"`
	DeliveryDate    *shared.Date `json:"delivery_date"`
	DeliveryTime    string       `json:"delivery_time,omitempty"`
	TotalAmount     money.Amount `json:"total_amount"`
	AdvancePayment  money.Amount `json:"advance_payment"`
	DeliveryAddress string       `json:"delivery_address"`
	Notes           string       `json:"notes"`
	Status          Status       `json:"status"`
}

// Remaining is total minus advance, floored at zero.
func (o Order) Remaining() money.Amount {
	return money.Max(o.TotalAmount.Sub(o.AdvancePayment), money.Zero)
}

// MarshalJSON adds the derived remaining_amount to the stored fields.
func (o Order) MarshalJSON() ([]byte, error) {
	type plain Order
	return json.Marshal(struct {
		plain
		RemainingAmount money.Amount `json:"remaining_amount"`
	}{plain: plain(o), RemainingAmount: o.Remaining()})
}

// Payment is one entry of an order's append-only payment log.
type Payment struct {
	ID          int64        `json:"payment_id"`
	OrderID     int64        `json:"order_id"`
	Amount      money.Amount `json:"amount"`
	PaymentDate time.Time    `json:"payment_date"`
	Notes       string       `json:"notes"`
}

// LineKind tells catalog lines from custom ones.
type LineKind int

const (
	LineCatalog LineKind = iota + 1
	LineCustom
)

// Line is one order line: a menu item at a price snapshot, or a custom item
// with a manually entered price.
type Line struct {
	Kind      LineKind
	ItemID    int64
	Name      string
	Quantity  int
	UnitPrice money.Amount
}

// CatalogLine builds a line for a menu item.
func CatalogLine(itemID int64, qty int, unitPrice money.Amount) Line {
	return Line{Kind: LineCatalog, ItemID: itemID, Quantity: qty, UnitPrice: unitPrice}
}

// CustomLine builds a line for an item that is not on the menu.
func CustomLine(name string, qty int, unitPrice money.Amount) Line {
	return Line{Kind: LineCustom, Name: name, Quantity: qty, UnitPrice: unitPrice}
}

// Subtotal is quantity times unit price.
func (l Line) Subtotal() money.Amount {
	return l.UnitPrice.Mul(int64(l.Quantity))
}

// ItemView is an order line as shown on the order detail screen.
type ItemView struct {
	ID             int64        `json:"order_item_id"`
	ItemID         *int64       `json:"item_id"`
	Quantity       int          `json:"quantity"`
	UnitPrice      money.Amount `json:"unit_price"`
	CustomItemName *string      `json:"custom_item_name"`
	MenuItemName   *string      `json:"menu_item_name"`
}

// NewCustomer holds the fields of a customer created together with an order.
type NewCustomer struct {
	Name    string
	Phone   string
	Address string
}

// CustomerRef points at an existing customer or describes a new one.
type CustomerRef struct {
	ExistingID int64
	New        *NewCustomer
}

// ExistingCustomer refers to a stored customer.
func ExistingCustomer(id int64) CustomerRef {
	return CustomerRef{ExistingID: id}
}

// CreateCustomer asks for a customer to be created with the order.
func CreateCustomer(name, phone, address string) CustomerRef {
	return CustomerRef{New: &NewCustomer{Name: name, Phone: phone, Address: address}}
}

// NewOrder is the input of CreateOrder.
type NewOrder struct {
	Customer        CustomerRef
	OrderType       OrderType
	DeliveryDate    *shared.Date
	DeliveryTime    string
	DeliveryAddress string
	Notes           string
	Lines           []Line
	Advance         money.Amount
}

// PaymentInput is the input of AddPayment.
type PaymentInput struct {
	OrderID        int64
	Amount         money.Amount
	Notes          string
	IdempotencyKey string
}
