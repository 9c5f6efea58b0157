package workflow

import (
	"time"

	"leavedesk/internal/balance"
	balanceerrors "leavedesk/internal/balance/errors"
	"leavedesk/internal/category"
	workflowerrors "leavedesk/internal/workflow/errors"
)

const (
	reasonMinLen = 10
	reasonMaxLen = 500
)

// validatedSubmission is the outcome of the field-level checks: parsed dates
// and the derived day count. LedgerMissing tells the engine to initialize
// the ledger row lazily inside its transaction.
type validatedSubmission struct {
	StartDate     time.Time
	EndDate       time.Time
	Days          int
	LedgerMissing bool
}

// parseSubmission runs the field checks in order and short-circuits on the
// first failure: date formats, date ordering, start not in the past, reason
// length. Day count is inclusive, so same-day leave is one day.
func parseSubmission(req SubmitLeaveRequest, today time.Time) (validatedSubmission, error) {
	startDate, err := parseDate(req.StartDate)
	if err != nil {
		return validatedSubmission{}, err
	}
	endDate, err := parseDate(req.EndDate)
	if err != nil {
		return validatedSubmission{}, err
	}
	if startDate.After(endDate) {
		return validatedSubmission{}, workflowerrors.ErrInvalidDateRange
	}

	todayStart := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	if startDate.Before(todayStart) {
		return validatedSubmission{}, workflowerrors.ErrStartDateInPast
	}

	if n := len(req.Reason); n < reasonMinLen || n > reasonMaxLen {
		return validatedSubmission{}, workflowerrors.ErrReasonLength
	}

	days := int(endDate.Sub(startDate).Hours()/24) + 1
	return validatedSubmission{
		StartDate: startDate,
		EndDate:   endDate,
		Days:      days,
	}, nil
}

// checkAllowance applies the business rules on the day count: balance
// sufficiency against the ledger entry (falling back to the category maximum
// when no entry exists yet), then the category ceiling, which binds
// regardless of ledger state. Returns at most one business-rule error.
func checkAllowance(days int, cat *category.LeaveCategory, entry *balance.LedgerEntry) error {
	if entry != nil {
		if days > entry.RemainingDays {
			return balanceerrors.InsufficientBalance(entry.RemainingDays, days)
		}
	} else if days > cat.MaxDays {
		return balanceerrors.InsufficientBalance(cat.MaxDays, days)
	}

	if days > cat.MaxDays {
		return workflowerrors.ExceedsCategoryMax(cat.MaxDays, days)
	}

	return nil
}

func parseDate(v string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, workflowerrors.ErrInvalidDateFormat
	}
	return t, nil
}
