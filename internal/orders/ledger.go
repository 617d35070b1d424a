package orders

import (
	"strings"

	"github.com/kitchenledger/kitchenledger/internal/money"
	"github.com/kitchenledger/kitchenledger/internal/shared"
)

// AdvancePaymentNote labels the payment row written for an order's advance.
const AdvancePaymentNote = "Advance payment"

// ComputeStatus derives the order status from its total and the amount paid.
// Both sides are compared on whole cents.
func ComputeStatus(total, paid money.Amount) Status {
	switch {
	case paid.Cmp(total) >= 0:
		return StatusFulfilled
	case paid.IsPositive():
		return StatusPartiallyPaid
	default:
		return StatusPending
	}
}

// ValidatePayment checks amount against what is still owed on order. The
// order must be freshly read, ideally under a row lock.
func ValidatePayment(order Order, amount money.Amount) error {
	if err := money.RequirePositive(amount); err != nil {
		return shared.InvalidErr("amount", err)
	}
	if err := money.RequireWithin(amount, order.Remaining()); err != nil {
		return shared.InvalidErr("amount", err)
	}
	return nil
}

// ApplyPayment returns the advance and status the order has after amount is
// paid. It does not touch order.
func ApplyPayment(order Order, amount money.Amount) (money.Amount, Status, error) {
	if err := ValidatePayment(order, amount); err != nil {
		return money.Zero, "", err
	}
	advance := order.AdvancePayment.Add(amount)
	return advance, ComputeStatus(order.TotalAmount, advance), nil
}

// ValidateLine checks a single order line.
func ValidateLine(l Line) error {
	switch l.Kind {
	case LineCatalog:
		if l.ItemID <= 0 {
			return shared.Invalid("items", "menu item is required")
		}
	case LineCustom:
		if strings.TrimSpace(l.Name) == "" {
			return shared.Invalid("items", "custom item name is required")
		}
	default:
		return shared.Invalid("items", "item must be a menu item or a custom item")
	}
	if l.Quantity < 1 {
		return shared.Invalid("items", "quantity must be at least 1")
	}
	if err := money.RequireNonNegative(l.UnitPrice); err != nil {
		return shared.Invalid("items", "unit price must not be negative")
	}
	return nil
}

// CheckOrderShape runs the checks that do not depend on prices: customer,
// order type, lines and a non-negative advance.
func CheckOrderShape(in NewOrder) error {
	if err := validateCustomerRef(in.Customer); err != nil {
		return err
	}
	if !in.OrderType.Valid() {
		return shared.Invalid("order_type", "order type must be Online or Local")
	}
	if len(in.Lines) == 0 {
		return shared.Invalid("items", "add at least one item")
	}
	for _, l := range in.Lines {
		if err := ValidateLine(l); err != nil {
			return err
		}
	}
	if in.Advance.IsNegative() {
		return shared.InvalidErr("advance_payment", money.ErrNegative)
	}
	return nil
}

// PlanOrder validates a new order and computes its total and initial status.
// The returned order has no ids yet.
func PlanOrder(in NewOrder) (Order, error) {
	if err := CheckOrderShape(in); err != nil {
		return Order{}, err
	}
	total := money.Zero
	for _, l := range in.Lines {
		total = total.Add(l.Subtotal())
	}
	if err := money.RequireInRange(total); err != nil {
		return Order{}, shared.InvalidErr("items", err)
	}
	if in.Advance.Cmp(total) > 0 {
		return Order{}, shared.Invalid("advance_payment", "advance payment cannot exceed the order total")
	}
	return Order{
		CustomerID:      in.Customer.ExistingID,
		OrderType:       in.OrderType,
		DeliveryDate:    in.DeliveryDate,
		DeliveryTime:    strings.TrimSpace(in.DeliveryTime),
		TotalAmount:     total,
		AdvancePayment:  in.Advance,
		DeliveryAddress: strings.TrimSpace(in.DeliveryAddress),
		Notes:           strings.TrimSpace(in.Notes),
		Status:          ComputeStatus(total, in.Advance),
	}, nil
}

func validateCustomerRef(ref CustomerRef) error {
	if ref.New == nil {
		if ref.ExistingID <= 0 {
			return shared.Invalid("customer", "select a customer or enter a new one")
		}
		return nil
	}
	if strings.TrimSpace(ref.New.Name) == "" {
		return shared.Invalid("customer_name", "customer name is required")
	}
	if strings.TrimSpace(ref.New.Phone) == "" {
		return shared.Invalid("customer_phone", "customer phone is required")
	}
	return nil
}

// ReconcilePayments recomputes the advance and status from the payment log.
// It is the reference the cached order fields are checked against.
func ReconcilePayments(total money.Amount, payments []Payment) (money.Amount, Status) {
	paid := money.Zero
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}
	return paid, ComputeStatus(total, paid)
}
