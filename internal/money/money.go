// Package money implements exact currency amounts for the ledgers.
//
// Every amount is a decimal with at most two fractional digits. Comparisons
// are made on whole cents so that "fully paid" checks never drift the way
// binary floating point does.
package money

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Scale is the number of fractional digits kept for every amount.
const Scale = 2

// Currency is the display prefix used by Format.
const Currency = "PKR"

var (
	// ErrNotPositive is returned when an amount must be greater than zero.
	ErrNotPositive = errors.New("amount must be positive")
	// ErrNegative is returned when an amount must not be below zero.
	ErrNegative = errors.New("amount must not be negative")
	// ErrExceedsRemaining is returned when a payment is larger than what is owed.
	ErrExceedsRemaining = errors.New("amount exceeds remaining balance")
	// ErrTooPrecise is returned for inputs with more than two fractional digits.
	ErrTooPrecise = errors.New("amount must have at most 2 decimal places")
	// ErrMalformed is returned for inputs that are not decimal numbers.
	ErrMalformed = errors.New("amount is not a valid number")
	// ErrOutOfRange is returned for amounts a NUMERIC(12,2) column cannot hold.
	ErrOutOfRange = errors.New("amount is too large")
)

// limit is the smallest magnitude NUMERIC(12,2) cannot store.
var limit = decimal.New(1, 10)

// Amount is an exact monetary value.
type Amount struct {
	d decimal.Decimal
}

// Zero is the zero amount.
var Zero = Amount{}

// FromCents builds an amount from integer minor units.
func FromCents(cents int64) Amount {
	return Amount{d: decimal.New(cents, -Scale)}
}

// FromInt builds an amount from whole currency units.
func FromInt(units int64) Amount {
	return Amount{d: decimal.NewFromInt(units)}
}

// Parse reads a user supplied decimal string such as "1500" or "249.50".
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrMalformed
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, ErrMalformed
	}
	if d.Exponent() < -Scale && !d.Equal(d.Round(Scale)) {
		return Zero, ErrTooPrecise
	}
	a := Amount{d: d.Round(Scale)}
	if err := RequireInRange(a); err != nil {
		return Zero, err
	}
	return a, nil
}

// RequireInRange rejects amounts whose magnitude does not fit NUMERIC(12,2).
func RequireInRange(a Amount) error {
	if a.d.Round(Scale).Abs().Cmp(limit) >= 0 {
		return ErrOutOfRange
	}
	return nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("money: parse %q: %v", s, err))
	}
	return a
}

// Cents returns the amount rounded half away from zero to minor units. The
// result is only meaningful for amounts that pass RequireInRange.
func (a Amount) Cents() int64 {
	return a.d.Round(Scale).Shift(Scale).IntPart()
}

// Add returns a+b.
func (a Amount) Add(b Amount) Amount { return Amount{d: a.d.Add(b.d)} }

// Sub returns a-b.
func (a Amount) Sub(b Amount) Amount { return Amount{d: a.d.Sub(b.d)} }

// Mul returns the amount multiplied by a whole quantity.
func (a Amount) Mul(qty int64) Amount { return Amount{d: a.d.Mul(decimal.NewFromInt(qty))} }

// Neg returns -a.
func (a Amount) Neg() Amount { return Amount{d: a.d.Neg()} }

// Cmp compares two amounts on whole cents.
func (a Amount) Cmp(b Amount) int {
	return a.d.Round(Scale).Cmp(b.d.Round(Scale))
}

func (a Amount) sign() int { return a.d.Round(Scale).Sign() }

// Equal reports whether both amounts are the same number of cents.
func (a Amount) Equal(b Amount) bool { return a.Cmp(b) == 0 }

// IsZero reports whether the amount rounds to zero cents.
func (a Amount) IsZero() bool { return a.sign() == 0 }

// IsPositive reports whether the amount is at least one cent.
func (a Amount) IsPositive() bool { return a.sign() > 0 }

// IsNegative reports whether the amount is below zero cents.
func (a Amount) IsNegative() bool { return a.sign() < 0 }

// Max returns the larger of a and b.
func Max(a, b Amount) Amount {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

// Sum adds all amounts.
func Sum(amounts ...Amount) Amount {
	total := Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Decimal exposes the underlying decimal value.
func (a Amount) Decimal() decimal.Decimal { return a.d.Round(Scale) }

// String renders the amount with exactly two fractional digits.
func (a Amount) String() string { return a.d.StringFixed(Scale) }

// RequirePositive returns ErrNotPositive unless a is at least one cent.
func RequirePositive(a Amount) error {
	if !a.IsPositive() {
		return ErrNotPositive
	}
	return nil
}

// RequireNonNegative returns ErrNegative when a is below zero.
func RequireNonNegative(a Amount) error {
	if a.IsNegative() {
		return ErrNegative
	}
	return nil
}

// RequireWithin rejects amounts above limit, compared on cents.
func RequireWithin(a, limit Amount) error {
	if a.Cmp(limit) > 0 {
		return ErrExceedsRemaining
	}
	return nil
}

var printer = message.NewPrinter(language.English)

// Format renders an amount for people, e.g. "PKR 1,500.00".
func Format(a Amount) string {
	cents := a.Cents()
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s %s%s.%02d", Currency, sign, printer.Sprintf("%d", cents/100), cents%100)
}

// MarshalJSON encodes the amount as a JSON number with two decimals.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts JSON numbers and numeric strings.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*a = Zero
		return nil
	}
	s = strings.Trim(s, `"`)
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Scan implements sql.Scanner for NUMERIC columns.
func (a *Amount) Scan(src any) error {
	var d decimal.Decimal
	if err := d.Scan(src); err != nil {
		return fmt.Errorf("money: scan: %w", err)
	}
	*a = Amount{d: d.Round(Scale)}
	return nil
}

// Value implements driver.Valuer.
func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

// NullAmount scans a nullable NUMERIC column.
type NullAmount struct {
	Amount Amount
	Valid  bool
}

// Scan implements sql.Scanner.
func (n *NullAmount) Scan(src any) error {
	if src == nil {
		*n = NullAmount{}
		return nil
	}
	if err := n.Amount.Scan(src); err != nil {
		return err
	}
	n.Valid = true
	return nil
}
