package balance

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// ErrInsufficientFunds reports a debit whose guard failed: the row exists but
// remaining_days < days. Callers translate it to a business-rule error.
var ErrInsufficientFunds = errors.New("ledger debit exceeds remaining days")

// ErrEntryMissing reports a debit against a row that does not exist.
var ErrEntryMissing = errors.New("ledger entry does not exist")

// Repository mutates the ledger with plain SQL so the guarded UPDATE and the
// idempotent insert run inside the caller's transaction when one is supplied.
//
//go:generate mockgen -source=balance_repo.go -destination=mock/balance_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Find(ctx context.Context, employeeID, categoryID string, year int) (*LedgerEntry, error)
	// EnsureInitialized creates the row with used=0, remaining=total if absent.
	// Safe to call repeatedly.
	EnsureInitialized(ctx context.Context, employeeID, categoryID string, year, totalDays int) error
	// Debit atomically moves days from remaining to used. The guard
	// remaining_days >= days lives in the UPDATE itself, so a concurrent
	// debit can never drive the balance negative.
	Debit(ctx context.Context, employeeID, categoryID string, year, days int) error
}

type repository struct {
	db *sql.DB
	tx *sql.Tx
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, tx: tx}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *repository) e() execer {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *repository) Find(ctx context.Context, employeeID, categoryID string, year int) (*LedgerEntry, error) {
	query := `
SELECT employee_id, category_id, year, total_days, used_days, remaining_days
FROM leave_balances
WHERE employee_id = $1 AND category_id = $2 AND year = $3
`
	var entry LedgerEntry
	var employeeRaw, categoryRaw string
	err := r.e().QueryRowContext(ctx, query, employeeID, categoryID, year).Scan(
		&employeeRaw,
		&categoryRaw,
		&entry.Year,
		&entry.TotalDays,
		&entry.UsedDays,
		&entry.RemainingDays,
	)
	if err != nil {
		return nil, err
	}

	entry.EmployeeID, err = uuid.Parse(employeeRaw)
	if err != nil {
		return nil, err
	}
	entry.CategoryID, err = uuid.Parse(categoryRaw)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) EnsureInitialized(ctx context.Context, employeeID, categoryID string, year, totalDays int) error {
	query := `
INSERT INTO leave_balances (employee_id, category_id, year, total_days, used_days, remaining_days, created_at, updated_at)
VALUES ($1, $2, $3, $4, 0, $4, NOW(), NOW())
ON CONFLICT (employee_id, category_id, year) DO NOTHING
`
	_, err := r.e().ExecContext(ctx, query, employeeID, categoryID, year, totalDays)
	return err
}

func (r *repository) Debit(ctx context.Context, employeeID, categoryID string, year, days int) error {
	query := `
UPDATE leave_balances
SET
	used_days = used_days + $4,
	remaining_days = remaining_days - $4,
	updated_at = NOW()
WHERE employee_id = $1 AND category_id = $2 AND year = $3
	AND remaining_days >= $4
`
	res, err := r.e().ExecContext(ctx, query, employeeID, categoryID, year, days)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}

	// Distinguish "no row" from "guard failed" so the caller can report
	// a missing entry versus an exhausted balance.
	if _, err := r.Find(ctx, employeeID, categoryID, year); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEntryMissing
		}
		return err
	}
	return ErrInsufficientFunds
}
