// Package expenses records business expenses. Expenses are independent of
// orders and only feed the dashboard.
package expenses

import (
	"github.com/kitchenledger/kitchenledger/internal/money"
	"github.com/kitchenledger/kitchenledger/internal/shared"
)

// Category classifies an expense.
type Category string

const (
	CategoryIngredients Category = "Ingredients"
	CategoryUtilities   Category = "Utilities"
	CategorySalary      Category = "Salary"
	CategoryOther       Category = "Other"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryIngredients, CategoryUtilities, CategorySalary, CategoryOther:
		return true
	}
	return false
}

// Expense is a single recorded expense.
type Expense struct {
	ID          int64        `json:"expense_id"`
	Description string       `json:"description"`
	Amount      money.Amount `json:"amount"`
	Category    Category     `json:"category"`
	Date        shared.Date  `json:"expense_date"`
}

// List is a page of expenses with their sum.
type List struct {
	Expenses []Expense    `json:"expenses"`
	Total    money.Amount `json:"total"`
}

// Input is the payload of Add. A zero Date means today.
type Input struct {
	Description string       `json:"description" validate:"required"`
	Amount      money.Amount `json:"amount"`
	Category    Category     `json:"category" validate:"required,oneof=Ingredients Utilities Salary Other"`
	Date        shared.Date  `json:"expense_date"`
}
