package notification

import (
	"fmt"

	"leavedesk/internal/events"
)

type rendered struct {
	Title    string
	Message  string
	Priority string
}

// renderEvent turns a workflow event into recipient-facing text. Unknown
// event types still produce a generic message rather than being dropped.
func renderEvent(event events.LeaveWorkflowEvent) rendered {
	days := fmt.Sprintf("%d day", event.Days)
	if event.Days != 1 {
		days += "s"
	}

	switch event.EventType {
	case events.EventLeaveSubmitted:
		return rendered{
			Title:    "Leave request awaiting review",
			Message:  fmt.Sprintf("A %s request for %s is awaiting your review.", event.CategoryName, days),
			Priority: PriorityNormal,
		}
	case events.EventLeaveManagerApproved:
		return rendered{
			Title:    "Leave request update",
			Message:  fmt.Sprintf("The %s request for %s was approved by the manager.", event.CategoryName, days),
			Priority: PriorityNormal,
		}
	case events.EventLeaveManagerRejected:
		return rendered{
			Title:    "Leave request rejected",
			Message:  rejectionMessage(event, days),
			Priority: PriorityHigh,
		}
	case events.EventLeaveHRApproved:
		return rendered{
			Title:    "Leave request approved",
			Message:  fmt.Sprintf("The %s request for %s received final approval.", event.CategoryName, days),
			Priority: PriorityNormal,
		}
	case events.EventLeaveHRRejected:
		return rendered{
			Title:    "Leave request rejected",
			Message:  rejectionMessage(event, days),
			Priority: PriorityHigh,
		}
	case events.EventLeaveCancelled:
		return rendered{
			Title:    "Leave request cancelled",
			Message:  fmt.Sprintf("The %s request for %s was withdrawn by the employee.", event.CategoryName, days),
			Priority: PriorityNormal,
		}
	default:
		return rendered{
			Title:    "Leave request update",
			Message:  fmt.Sprintf("The %s request for %s is now %s.", event.CategoryName, days, event.NewStatus),
			Priority: PriorityNormal,
		}
	}
}

func rejectionMessage(event events.LeaveWorkflowEvent, days string) string {
	if event.Notes != "" {
		return fmt.Sprintf("The %s request for %s was rejected: %s", event.CategoryName, days, event.Notes)
	}
	return fmt.Sprintf("The %s request for %s was rejected.", event.CategoryName, days)
}
