package balance

import (
	"time"

	"github.com/google/uuid"
)

// LedgerEntry tracks leave days per (employee, category, year).
// Invariant after any committed mutation:
// remaining_days = total_days - used_days and remaining_days >= 0.
type LedgerEntry struct {
	EmployeeID uuid.UUID `gorm:"type:uuid;primaryKey"`
	CategoryID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Year       int       `gorm:"primaryKey"`

	TotalDays     int `gorm:"type:int;not null"`
	UsedDays      int `gorm:"type:int;not null;default:0"`
	RemainingDays int `gorm:"type:int;not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (LedgerEntry) TableName() string {
	return "leave_balances"
}
