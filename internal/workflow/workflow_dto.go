package workflow

import "time"

type SubmitLeaveRequest struct {
	CategoryID string `json:"category_id" binding:"required,uuid"`
	StartDate  string `json:"start_date" binding:"required"`
	EndDate    string `json:"end_date" binding:"required"`
	Reason     string `json:"reason" binding:"required"`
}

type DecisionRequest struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes"`
}

type DecisionResponse struct {
	DecidedBy string `json:"decided_by"`
	DecidedAt string `json:"decided_at"`
	Notes     string `json:"notes,omitempty"`
	Approved  bool   `json:"approved"`
}

type LeaveRequestResponse struct {
	ID              string            `json:"id"`
	EmployeeID      string            `json:"employee_id"`
	CategoryID      string            `json:"category_id"`
	StartDate       string            `json:"start_date"`
	EndDate         string            `json:"end_date"`
	TotalDays       int               `json:"total_days"`
	Reason          string            `json:"reason"`
	Status          string            `json:"status"`
	CurrentApprover string            `json:"current_approver"`
	AppliedAt       string            `json:"applied_at"`
	ManagerDecision *DecisionResponse `json:"manager_decision,omitempty"`
	HRDecision      *DecisionResponse `json:"hr_decision,omitempty"`
}

func mapDecision(d *Decision) *DecisionResponse {
	if d == nil {
		return nil
	}
	return &DecisionResponse{
		DecidedBy: d.DecidedBy.String(),
		DecidedAt: d.DecidedAt.Format(time.RFC3339),
		Notes:     d.Notes,
		Approved:  d.Approved,
	}
}

func mapToResponse(l LeaveRequest) LeaveRequestResponse {
	return LeaveRequestResponse{
		ID:              l.ID.String(),
		EmployeeID:      l.EmployeeID.String(),
		CategoryID:      l.CategoryID.String(),
		StartDate:       l.StartDate.Format("2006-01-02"),
		EndDate:         l.EndDate.Format("2006-01-02"),
		TotalDays:       l.TotalDays,
		Reason:          l.Reason,
		Status:          l.Status,
		CurrentApprover: ApproverFor(l.Status),
		AppliedAt:       l.AppliedAt.Format(time.RFC3339),
		ManagerDecision: mapDecision(l.ManagerDecision),
		HRDecision:      mapDecision(l.HRDecision),
	}
}

func mapToListResponse(requests []LeaveRequest) []LeaveRequestResponse {
	resp := make([]LeaveRequestResponse, len(requests))
	for i, l := range requests {
		resp[i] = mapToResponse(l)
	}
	return resp
}
