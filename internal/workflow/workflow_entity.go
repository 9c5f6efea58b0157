package workflow

import (
	"time"

	"github.com/google/uuid"
)

// Request statuses. APPROVED and HR_APPROVED are the two terminal approval
// states: APPROVED when the category needs no HR stage, HR_APPROVED when HR
// gave the final sign-off. REJECTED and CANCELLED absorb from any pending
// state.
const (
	StatusPendingManager = "PENDING_MANAGER"
	StatusPendingHR      = "PENDING_HR"
	StatusApproved       = "APPROVED"
	StatusHRApproved     = "HR_APPROVED"
	StatusRejected       = "REJECTED"
	StatusCancelled      = "CANCELLED"
)

// Approver hints derived from status, never stored.
const (
	ApproverManager = "MANAGER"
	ApproverHR      = "HR"
	ApproverSystem  = "SYSTEM"
)

// Decision records one stage's sign-off.
type Decision struct {
	DecidedBy uuid.UUID
	DecidedAt time.Time
	Notes     string
	Approved  bool
}

type LeaveRequest struct {
	ID         uuid.UUID
	EmployeeID uuid.UUID
	CategoryID uuid.UUID

	StartDate time.Time
	EndDate   time.Time
	TotalDays int
	Reason    string

	Status    string
	AppliedAt time.Time
	UpdatedAt time.Time

	ManagerDecision *Decision
	HRDecision      *Decision
}

// ApproverFor derives the pending approver from status. Keeping this a pure
// function instead of a stored column removes a whole class of drift bugs.
func ApproverFor(status string) string {
	switch status {
	case StatusPendingManager:
		return ApproverManager
	case StatusPendingHR:
		return ApproverHR
	default:
		return ApproverSystem
	}
}

// IsTerminal reports whether the status admits no further transitions.
func IsTerminal(status string) bool {
	switch status {
	case StatusApproved, StatusHRApproved, StatusRejected, StatusCancelled:
		return true
	default:
		return false
	}
}

// ActiveStatuses are the states that hold a claim on a date range for
// overlap checking; rejected and cancelled requests release their dates.
func ActiveStatuses() []string {
	return []string{StatusPendingManager, StatusPendingHR, StatusApproved, StatusHRApproved}
}
