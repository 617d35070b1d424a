// Package dashboard computes the operator's daily summary.
package dashboard

import (
	"time"

	"github.com/kitchenledger/kitchenledger/internal/money"
	"github.com/kitchenledger/kitchenledger/internal/shared"
)

// Stats is the dashboard summary. Sales are billed totals of today's orders;
// pending covers every unfulfilled order regardless of date.
type Stats struct {
	OrdersCount    int64        `json:"ordersCount"`
	TodaysSales    money.Amount `json:"todaysSales"`
	PendingAmount  money.Amount `json:"pendingAmount"`
	TodaysExpenses money.Amount `json:"todaysExpenses"`
}

// Window is the operator's current day: [Start, End) and its calendar date.
type Window struct {
	Start time.Time
	End   time.Time
	Day   shared.Date
}

// Today returns the 24 hour window starting at local midnight of now in loc.
func Today(now time.Time, loc *time.Location) Window {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return Window{Start: start, End: start.Add(24 * time.Hour), Day: shared.NewDate(start)}
}
