package events

import "time"

const LeaveWorkflowTopic = "leave.workflow.transitions.v1"

// LeaveWorkflowEvent describes one committed workflow transition. It carries
// enough structured data for the notification consumer to render messages
// without re-reading the request.
type LeaveWorkflowEvent struct {
	EventType    string    `json:"event_type"`
	EventID      string    `json:"event_id"`
	RequestID    string    `json:"request_id"`
	TraceID      string    `json:"trace_id,omitempty"`
	EmployeeID   string    `json:"employee_id"`
	ActorID      string    `json:"actor_id"`
	CategoryName string    `json:"category_name"`
	Days         int       `json:"days"`
	NewStatus    string    `json:"new_status"`
	Notes        string    `json:"notes,omitempty"`
	Recipients   []string  `json:"recipients"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Event types, one per workflow trigger outcome.
const (
	EventLeaveSubmitted       = "leave_submitted"
	EventLeaveManagerApproved = "leave_manager_approved"
	EventLeaveManagerRejected = "leave_manager_rejected"
	EventLeaveHRApproved      = "leave_hr_approved"
	EventLeaveHRRejected      = "leave_hr_rejected"
	EventLeaveCancelled       = "leave_cancelled"
)
