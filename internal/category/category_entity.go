package category

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LeaveCategory is reference data: the workflow engine reads it, never writes it.
type LeaveCategory struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name string    `gorm:"type:varchar(100);not null;uniqueIndex:uq_leave_categories_name"`

	MaxDays            int  `gorm:"type:int;not null"`
	RequiresHRApproval bool `gorm:"not null;default:true"`
	CarryOver          bool `gorm:"not null;default:false"`
	IsActive           bool `gorm:"not null;default:true;index:idx_leave_categories_active"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index:idx_leave_categories_deleted_at"`
}

func (LeaveCategory) TableName() string {
	return "leave_categories"
}
