package category

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	categoryerrors "leavedesk/internal/category/errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const (
	CatalogCacheKey = "categories:active"
	catalogCacheTTL = 10 * time.Minute
)

//go:generate mockgen -source=category_service.go -destination=mock/category_service_mock.go -package=mock
type Service interface {
	Get(ctx context.Context, id string) (*LeaveCategory, error)
	GetAll(ctx context.Context) ([]CategoryResponse, error)
}

type service struct {
	repo   Repository
	rdb    *redis.Client
	sf     *singleflight.Group
	logger *zap.Logger
}

func NewService(repo Repository, rdb *redis.Client, logger ...*zap.Logger) Service {
	l := zap.L().Named("category.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("category.service")
	}
	return &service{
		repo:   repo,
		rdb:    rdb,
		sf:     &singleflight.Group{},
		logger: l,
	}
}

// Get returns the category regardless of is_active; callers that gate on
// activity (submission) check the flag themselves.
func (s *service) Get(ctx context.Context, id string) (*LeaveCategory, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, categoryerrors.ErrInvalidCategoryID
	}

	cat, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, categoryerrors.ErrCategoryNotFound
		}
		return nil, err
	}
	return cat, nil
}

func (s *service) GetAll(ctx context.Context) ([]CategoryResponse, error) {
	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, CatalogCacheKey).Result()
		if err == nil {
			var resp []CategoryResponse
			if err := json.Unmarshal([]byte(cached), &resp); err == nil {
				return resp, nil
			}
			s.logger.Warn("decode cached catalog failed, falling through", zap.Error(err))
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Error("read catalog cache failed", zap.Error(err))
		}
	}

	// Collapse concurrent cache misses into one DB read.
	v, err, _ := s.sf.Do(CatalogCacheKey, func() (any, error) {
		cats, err := s.repo.FindAllActive(ctx)
		if err != nil {
			return nil, err
		}

		resp := mapToListResponse(cats)
		if s.rdb != nil {
			payload, err := json.Marshal(resp)
			if err == nil {
				if err := s.rdb.Set(ctx, CatalogCacheKey, payload, catalogCacheTTL).Err(); err != nil {
					s.logger.Error("write catalog cache failed", zap.Error(err))
				}
			}
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]CategoryResponse), nil
}

func mapToResponse(cat LeaveCategory) CategoryResponse {
	return CategoryResponse{
		ID:                 cat.ID.String(),
		Name:               cat.Name,
		MaxDays:            cat.MaxDays,
		RequiresHRApproval: cat.RequiresHRApproval,
		CarryOver:          cat.CarryOver,
		IsActive:           cat.IsActive,
	}
}

func mapToListResponse(cats []LeaveCategory) []CategoryResponse {
	resp := make([]CategoryResponse, len(cats))
	for i, cat := range cats {
		resp[i] = mapToResponse(cat)
	}
	return resp
}
