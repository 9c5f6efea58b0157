package workflow

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Repository persists leave requests with plain SQL so every read and write
// honors the caller's transaction via WithTx. The conditional status update
// is the engine's concurrency guard and must not bypass the transaction.
//
//go:generate mockgen -source=workflow_repo.go -destination=mock/workflow_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, l *LeaveRequest) error
	FindByID(ctx context.Context, id string) (*LeaveRequest, error)
	// UpdateFromStatus writes the request's current fields, guarded by
	// WHERE status = fromStatus. A zero row count means another actor
	// already moved the request.
	UpdateFromStatus(ctx context.Context, l *LeaveRequest, fromStatus string) (int64, error)
	HasOverlapping(ctx context.Context, employeeID string, startDate, endDate time.Time) (bool, error)
	FindAllByEmployee(ctx context.Context, employeeID string) ([]LeaveRequest, error)
	FindAllForManager(ctx context.Context, managerID string) ([]LeaveRequest, error)
	FindAll(ctx context.Context) ([]LeaveRequest, error)
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

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *repository) q() dbtx {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const requestColumns = `
	id::text, employee_id::text, category_id::text,
	start_date, end_date, total_days, reason, status, applied_at, updated_at,
	manager_decided_by::text, manager_decided_at, manager_notes, manager_approved,
	hr_decided_by::text, hr_decided_at, hr_notes, hr_approved
`

func (r *repository) Create(ctx context.Context, l *LeaveRequest) error {
	query := `
INSERT INTO leave_requests (
	id, employee_id, category_id, start_date, end_date, total_days, reason,
	status, applied_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
`
	_, err := r.q().ExecContext(
		ctx, query,
		l.ID, l.EmployeeID, l.CategoryID, l.StartDate, l.EndDate,
		l.TotalDays, l.Reason, l.Status, l.AppliedAt,
	)
	return err
}

func (r *repository) FindByID(ctx context.Context, id string) (*LeaveRequest, error) {
	query := `SELECT` + requestColumns + `FROM leave_requests WHERE id = $1`
	return scanRequest(r.q().QueryRowContext(ctx, query, id))
}

func (r *repository) UpdateFromStatus(ctx context.Context, l *LeaveRequest, fromStatus string) (int64, error) {
	query := `
UPDATE leave_requests
SET
	status = $2,
	manager_decided_by = $3,
	manager_decided_at = $4,
	manager_notes = $5,
	manager_approved = $6,
	hr_decided_by = $7,
	hr_decided_at = $8,
	hr_notes = $9,
	hr_approved = $10,
	updated_at = NOW()
WHERE id = $1 AND status = $11
`
	managerBy, managerAt, managerNotes, managerApproved := decisionColumns(l.ManagerDecision)
	hrBy, hrAt, hrNotes, hrApproved := decisionColumns(l.HRDecision)

	res, err := r.q().ExecContext(
		ctx, query,
		l.ID, l.Status,
		managerBy, managerAt, managerNotes, managerApproved,
		hrBy, hrAt, hrNotes, hrApproved,
		fromStatus,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *repository) HasOverlapping(ctx context.Context, employeeID string, startDate, endDate time.Time) (bool, error) {
	query := `
SELECT EXISTS (
	SELECT 1 FROM leave_requests
	WHERE employee_id = $1
		AND status = ANY($2)
		AND NOT (end_date < $3 OR start_date > $4)
)
`
	var overlap bool
	err := r.q().QueryRowContext(
		ctx, query,
		employeeID, statusArray(ActiveStatuses()), startDate, endDate,
	).Scan(&overlap)
	return overlap, err
}

func (r *repository) FindAllByEmployee(ctx context.Context, employeeID string) ([]LeaveRequest, error) {
	query := `SELECT` + requestColumns + `
FROM leave_requests
WHERE employee_id = $1
ORDER BY start_date DESC`
	rows, err := r.q().QueryContext(ctx, query, employeeID)
	if err != nil {
		return nil, err
	}
	return scanRequests(rows)
}

func (r *repository) FindAllForManager(ctx context.Context, managerID string) ([]LeaveRequest, error) {
	query := `SELECT` + requestColumns + `
FROM leave_requests
WHERE employee_id = $1
	OR employee_id IN (SELECT id FROM employees WHERE manager_id = $1 AND deleted_at IS NULL)
ORDER BY start_date DESC`
	rows, err := r.q().QueryContext(ctx, query, managerID)
	if err != nil {
		return nil, err
	}
	return scanRequests(rows)
}

func (r *repository) FindAll(ctx context.Context) ([]LeaveRequest, error) {
	query := `SELECT` + requestColumns + `FROM leave_requests ORDER BY start_date DESC`
	rows, err := r.q().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return scanRequests(rows)
}

// statusArray renders a postgres text array literal for ANY($n).
func statusArray(statuses []string) string {
	out := "{"
	for i, s := range statuses {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out + "}"
}

func decisionColumns(d *Decision) (by *string, at *time.Time, notes *string, approved *bool) {
	if d == nil {
		return nil, nil, nil, nil
	}
	idStr := d.DecidedBy.String()
	return &idStr, &d.DecidedAt, &d.Notes, &d.Approved
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*LeaveRequest, error) {
	var l LeaveRequest
	var idRaw, employeeRaw, categoryRaw string
	var managerBy, managerNotes sql.NullString
	var managerAt sql.NullTime
	var managerApproved sql.NullBool
	var hrBy, hrNotes sql.NullString
	var hrAt sql.NullTime
	var hrApproved sql.NullBool

	err := row.Scan(
		&idRaw, &employeeRaw, &categoryRaw,
		&l.StartDate, &l.EndDate, &l.TotalDays, &l.Reason, &l.Status,
		&l.AppliedAt, &l.UpdatedAt,
		&managerBy, &managerAt, &managerNotes, &managerApproved,
		&hrBy, &hrAt, &hrNotes, &hrApproved,
	)
	if err != nil {
		return nil, err
	}

	if l.ID, err = uuid.Parse(idRaw); err != nil {
		return nil, err
	}
	if l.EmployeeID, err = uuid.Parse(employeeRaw); err != nil {
		return nil, err
	}
	if l.CategoryID, err = uuid.Parse(categoryRaw); err != nil {
		return nil, err
	}

	l.ManagerDecision, err = scanDecision(managerBy, managerAt, managerNotes, managerApproved)
	if err != nil {
		return nil, err
	}
	l.HRDecision, err = scanDecision(hrBy, hrAt, hrNotes, hrApproved)
	if err != nil {
		return nil, err
	}

	return &l, nil
}

func scanDecision(by sql.NullString, at sql.NullTime, notes sql.NullString, approved sql.NullBool) (*Decision, error) {
	if !by.Valid {
		return nil, nil
	}

	decidedBy, err := uuid.Parse(by.String)
	if err != nil {
		return nil, err
	}
	return &Decision{
		DecidedBy: decidedBy,
		DecidedAt: at.Time,
		Notes:     notes.String,
		Approved:  approved.Bool,
	}, nil
}

func scanRequests(rows *sql.Rows) ([]LeaveRequest, error) {
	defer rows.Close()

	var requests []LeaveRequest
	for rows.Next() {
		l, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *l)
	}
	return requests, rows.Err()
}
