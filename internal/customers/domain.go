// Package customers holds customer records and their order history roll-ups.
package customers

import (
	"time"

	"github.com/kitchenledger/kitchenledger/internal/money"
	"github.com/kitchenledger/kitchenledger/internal/orders"
)

// MinLookupLength is the shortest search term the order form lookup runs.
const MinLookupLength = 2

// Customer is a stored customer record.
type Customer struct {
	ID      int64  `json:"customer_id"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Summary is the roll-up of one customer's orders.
type Summary struct {
	TotalOrders   int          `json:"total_orders"`
	TotalSpent    money.Amount `json:"total_spent"`
	TotalPending  money.Amount `json:"total_pending"`
	LastOrderDate *time.Time   `json:"last_order_date"`
}

// HistoryEntry is a customer with the roll-up of their orders.
type HistoryEntry struct {
	Customer
	Summary
}

// Aggregate rolls up a customer's orders. Spent counts money collected, not
// money billed; pending only looks at orders that are not fulfilled.
func Aggregate(list []orders.Order) Summary {
	s := Summary{TotalSpent: money.Zero, TotalPending: money.Zero}
	for _, o := range list {
		s.TotalOrders++
		s.TotalSpent = s.TotalSpent.Add(o.AdvancePayment)
		if o.Status != orders.StatusFulfilled {
			s.TotalPending = s.TotalPending.Add(o.Remaining())
		}
		if s.LastOrderDate == nil || o.OrderDate.After(*s.LastOrderDate) {
			d := o.OrderDate
			s.LastOrderDate = &d
		}
	}
	return s
}

// NewCustomerInput is the input of Create.
type NewCustomerInput struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone" validate:"required"`
	Address string `json:"address"`
}
