package loans

import (
	"time"

	"github.com/shopspring/decimal"
)

// ComputeFine derives the penalty for a loan: days past due times the per-day
// rate. The effective end is the return date when set, otherwise today. Loans
// with no due date or returned on time owe nothing. Pure; callers overwrite
// any stored amount with the result, amounts are never accumulated.
func ComputeFine(dueDate, returnDate *time.Time, now time.Time, perDay decimal.Decimal) decimal.Decimal {
	if dueDate == nil {
		return decimal.Zero
	}

	end := now
	if returnDate != nil {
		end = *returnDate
	}

	daysOver := int64(truncateToDay(end).Sub(truncateToDay(*dueDate)).Hours() / 24)
	if daysOver <= 0 {
		return decimal.Zero
	}
	return perDay.Mul(decimal.NewFromInt(daysOver))
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
