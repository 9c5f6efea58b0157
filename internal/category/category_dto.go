package category

type CategoryResponse struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	MaxDays            int    `json:"max_days"`
	RequiresHRApproval bool   `json:"requires_hr_approval"`
	CarryOver          bool   `json:"carry_over"`
	IsActive           bool   `json:"is_active"`
}
