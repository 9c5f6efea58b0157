package rbac

import (
	"context"

	"gorm.io/gorm"
)

type EmployeeRole struct {
	EmployeeID string
	Role       string
}

type RolePermission struct {
	Role     string
	Resource string
	Action   string
}

//go:generate mockgen -source=rbac_repo.go -destination=mock/rbac_repo_mock.go -package=mock
type Repository interface {
	GetEmployeeRoles(ctx context.Context) ([]EmployeeRole, error)
	GetRolePermissions(ctx context.Context) ([]RolePermission, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetEmployeeRoles(ctx context.Context) ([]EmployeeRole, error) {
	var roles []EmployeeRole
	err := r.db.WithContext(ctx).
		Table("employees").
		Select("id::text AS employee_id, role").
		Where("deleted_at IS NULL").
		Scan(&roles).Error
	return roles, err
}

func (r *repository) GetRolePermissions(ctx context.Context) ([]RolePermission, error) {
	var perms []RolePermission
	err := r.db.WithContext(ctx).
		Table("role_permissions").
		Select("role, resource, action").
		Scan(&perms).Error
	return perms, err
}
