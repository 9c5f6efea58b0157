package balance

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	balanceerrors "leavedesk/internal/balance/errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const balanceCacheTTL = 5 * time.Minute

func BalanceCacheKey(employeeID, categoryID string, year int) string {
	return fmt.Sprintf("balances:%s:%s:%d", employeeID, categoryID, year)
}

//go:generate mockgen -source=balance_service.go -destination=mock/balance_service_mock.go -package=mock
type Service interface {
	GetBalance(ctx context.Context, employeeID, categoryID string, year int) (BalanceResponse, error)
	// InvalidateCache drops the cached balance after a committed debit.
	InvalidateCache(ctx context.Context, employeeID, categoryID string, year int)
}

type service struct {
	repo   Repository
	rdb    *redis.Client
	logger *zap.Logger
}

func NewService(repo Repository, rdb *redis.Client, logger ...*zap.Logger) Service {
	l := zap.L().Named("balance.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("balance.service")
	}
	return &service{repo: repo, rdb: rdb, logger: l}
}

func (s *service) GetBalance(ctx context.Context, employeeID, categoryID string, year int) (BalanceResponse, error) {
	if _, err := uuid.Parse(employeeID); err != nil {
		return BalanceResponse{}, balanceerrors.ErrBalanceNotFound
	}
	if _, err := uuid.Parse(categoryID); err != nil {
		return BalanceResponse{}, balanceerrors.ErrBalanceNotFound
	}
	if year < 2000 || year > 2200 {
		return BalanceResponse{}, balanceerrors.ErrInvalidYear
	}

	cacheKey := BalanceCacheKey(employeeID, categoryID, year)
	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, cacheKey).Result()
		if err == nil {
			var resp BalanceResponse
			if err := json.Unmarshal([]byte(cached), &resp); err == nil {
				return resp, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Error("read balance cache failed", zap.Error(err))
		}
	}

	entry, err := s.repo.Find(ctx, employeeID, categoryID, year)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return BalanceResponse{}, balanceerrors.ErrBalanceNotFound
		}
		return BalanceResponse{}, err
	}

	resp := mapToResponse(*entry)
	if s.rdb != nil {
		if payload, err := json.Marshal(resp); err == nil {
			if err := s.rdb.Set(ctx, cacheKey, payload, balanceCacheTTL).Err(); err != nil {
				s.logger.Error("write balance cache failed", zap.Error(err))
			}
		}
	}

	return resp, nil
}

func (s *service) InvalidateCache(ctx context.Context, employeeID, categoryID string, year int) {
	if s.rdb == nil {
		return
	}

	cacheKey := BalanceCacheKey(employeeID, categoryID, year)
	if err := s.rdb.Del(ctx, cacheKey).Err(); err != nil {
		s.logger.Error("invalidate balance cache failed",
			zap.String("key", cacheKey),
			zap.Error(err),
		)
	}
}

func mapToResponse(entry LedgerEntry) BalanceResponse {
	return BalanceResponse{
		EmployeeID:    entry.EmployeeID.String(),
		CategoryID:    entry.CategoryID.String(),
		Year:          entry.Year,
		TotalDays:     entry.TotalDays,
		UsedDays:      entry.UsedDays,
		RemainingDays: entry.RemainingDays,
	}
}
