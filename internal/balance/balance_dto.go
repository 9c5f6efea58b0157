package balance

type BalanceResponse struct {
	EmployeeID    string `json:"employee_id"`
	CategoryID    string `json:"category_id"`
	Year          int    `json:"year"`
	TotalDays     int    `json:"total_days"`
	UsedDays      int    `json:"used_days"`
	RemainingDays int    `json:"remaining_days"`
}
