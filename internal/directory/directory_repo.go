package directory

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// Repository reads the employee directory. It runs on database/sql rather
// than the ORM so WithTx genuinely scopes reads to the caller's transaction:
// the workflow engine evaluates its authorization guards against the same
// snapshot it writes under.
//
//go:generate mockgen -source=directory_repo.go -destination=mock/directory_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Exists(ctx context.Context, employeeID string) (bool, error)
	ManagerOf(ctx context.Context, employeeID string) (*uuid.UUID, error)
	HasRole(ctx context.Context, employeeID, role string) (bool, error)
	ListIDsByRole(ctx context.Context, role string) ([]uuid.UUID, error)
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

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *repository) q() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *repository) Exists(ctx context.Context, employeeID string) (bool, error) {
	query := `
SELECT EXISTS (
	SELECT 1 FROM employees
	WHERE id = $1 AND deleted_at IS NULL
)
`
	var exists bool
	err := r.q().QueryRowContext(ctx, query, employeeID).Scan(&exists)
	return exists, err
}

func (r *repository) ManagerOf(ctx context.Context, employeeID string) (*uuid.UUID, error) {
	query := `
SELECT manager_id::text
FROM employees
WHERE id = $1 AND deleted_at IS NULL
`
	var managerID sql.NullString
	if err := r.q().QueryRowContext(ctx, query, employeeID).Scan(&managerID); err != nil {
		return nil, err
	}
	if !managerID.Valid {
		return nil, nil
	}

	id, err := uuid.Parse(managerID.String)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (r *repository) HasRole(ctx context.Context, employeeID, role string) (bool, error) {
	query := `
SELECT EXISTS (
	SELECT 1 FROM employees
	WHERE id = $1 AND role = $2 AND deleted_at IS NULL
)
`
	var has bool
	err := r.q().QueryRowContext(ctx, query, employeeID, role).Scan(&has)
	return has, err
}

func (r *repository) ListIDsByRole(ctx context.Context, role string) ([]uuid.UUID, error) {
	query := `
SELECT id::text
FROM employees
WHERE role = $1 AND deleted_at IS NULL
ORDER BY created_at ASC
`
	rows, err := r.q().QueryContext(ctx, query, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
