package category

import (
	"context"

	"gorm.io/gorm"
)

//go:generate mockgen -source=category_repo.go -destination=mock/category_repo_mock.go -package=mock
type Repository interface {
	FindByID(ctx context.Context, id string) (*LeaveCategory, error)
	FindAllActive(ctx context.Context) ([]LeaveCategory, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByID(ctx context.Context, id string) (*LeaveCategory, error) {
	var cat LeaveCategory
	err := r.db.WithContext(ctx).
		First(&cat, "id = ?", id).Error
	return &cat, err
}

func (r *repository) FindAllActive(ctx context.Context) ([]LeaveCategory, error) {
	var cats []LeaveCategory
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&cats).Error
	return cats, err
}
