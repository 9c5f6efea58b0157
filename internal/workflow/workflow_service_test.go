package workflow_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"leavedesk/internal/balance"
	"leavedesk/internal/category"
	"leavedesk/internal/directory"
	"leavedesk/internal/events"
	"leavedesk/internal/workflow"
	workflowerrors "leavedesk/internal/workflow/errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeWorkflowRepository struct {
	withTxFn            func(tx *sql.Tx) workflow.Repository
	createFn            func(ctx context.Context, l *workflow.LeaveRequest) error
	findByIDFn          func(ctx context.Context, id string) (*workflow.LeaveRequest, error)
	updateFromStatusFn  func(ctx context.Context, l *workflow.LeaveRequest, fromStatus string) (int64, error)
	hasOverlappingFn    func(ctx context.Context, employeeID string, startDate, endDate time.Time) (bool, error)
	findAllByEmployeeFn func(ctx context.Context, employeeID string) ([]workflow.LeaveRequest, error)
	findAllForManagerFn func(ctx context.Context, managerID string) ([]workflow.LeaveRequest, error)
	findAllFn           func(ctx context.Context) ([]workflow.LeaveRequest, error)
}

func (f *fakeWorkflowRepository) WithTx(tx *sql.Tx) workflow.Repository {
	if f.withTxFn != nil {
		return f.withTxFn(tx)
	}
	return f
}

func (f *fakeWorkflowRepository) Create(ctx context.Context, l *workflow.LeaveRequest) error {
	if f.createFn != nil {
		return f.createFn(ctx, l)
	}
	return nil
}

func (f *fakeWorkflowRepository) FindByID(ctx context.Context, id string) (*workflow.LeaveRequest, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id)
	}
	return nil, sql.ErrNoRows
}

func (f *fakeWorkflowRepository) UpdateFromStatus(ctx context.Context, l *workflow.LeaveRequest, fromStatus string) (int64, error) {
	if f.updateFromStatusFn != nil {
		return f.updateFromStatusFn(ctx, l, fromStatus)
	}
	return 1, nil
}

func (f *fakeWorkflowRepository) HasOverlapping(ctx context.Context, employeeID string, startDate, endDate time.Time) (bool, error) {
	if f.hasOverlappingFn != nil {
		return f.hasOverlappingFn(ctx, employeeID, startDate, endDate)
	}
	return false, nil
}

func (f *fakeWorkflowRepository) FindAllByEmployee(ctx context.Context, employeeID string) ([]workflow.LeaveRequest, error) {
	if f.findAllByEmployeeFn != nil {
		return f.findAllByEmployeeFn(ctx, employeeID)
	}
	return nil, nil
}

func (f *fakeWorkflowRepository) FindAllForManager(ctx context.Context, managerID string) ([]workflow.LeaveRequest, error) {
	if f.findAllForManagerFn != nil {
		return f.findAllForManagerFn(ctx, managerID)
	}
	return nil, nil
}

func (f *fakeWorkflowRepository) FindAll(ctx context.Context) ([]workflow.LeaveRequest, error) {
	if f.findAllFn != nil {
		return f.findAllFn(ctx)
	}
	return nil, nil
}

type fakeDirectoryRepository struct {
	existsFn        func(ctx context.Context, employeeID string) (bool, error)
	managerOfFn     func(ctx context.Context, employeeID string) (*uuid.UUID, error)
	hasRoleFn       func(ctx context.Context, employeeID, role string) (bool, error)
	listIDsByRoleFn func(ctx context.Context, role string) ([]uuid.UUID, error)
}

func (f *fakeDirectoryRepository) WithTx(tx *sql.Tx) directory.Repository {
	return f
}

func (f *fakeDirectoryRepository) Exists(ctx context.Context, employeeID string) (bool, error) {
	if f.existsFn != nil {
		return f.existsFn(ctx, employeeID)
	}
	return true, nil
}

func (f *fakeDirectoryRepository) ManagerOf(ctx context.Context, employeeID string) (*uuid.UUID, error) {
	if f.managerOfFn != nil {
		return f.managerOfFn(ctx, employeeID)
	}
	return nil, nil
}

func (f *fakeDirectoryRepository) HasRole(ctx context.Context, employeeID, role string) (bool, error) {
	if f.hasRoleFn != nil {
		return f.hasRoleFn(ctx, employeeID, role)
	}
	return false, nil
}

func (f *fakeDirectoryRepository) ListIDsByRole(ctx context.Context, role string) ([]uuid.UUID, error) {
	if f.listIDsByRoleFn != nil {
		return f.listIDsByRoleFn(ctx, role)
	}
	return nil, nil
}

type fakeLedgerRepository struct {
	findFn              func(ctx context.Context, employeeID, categoryID string, year int) (*balance.LedgerEntry, error)
	ensureInitializedFn func(ctx context.Context, employeeID, categoryID string, year, totalDays int) error
	debitFn             func(ctx context.Context, employeeID, categoryID string, year, days int) error
}

func (f *fakeLedgerRepository) WithTx(tx *sql.Tx) balance.Repository {
	return f
}

func (f *fakeLedgerRepository) Find(ctx context.Context, employeeID, categoryID string, year int) (*balance.LedgerEntry, error) {
	if f.findFn != nil {
		return f.findFn(ctx, employeeID, categoryID, year)
	}
	return nil, sql.ErrNoRows
}

func (f *fakeLedgerRepository) EnsureInitialized(ctx context.Context, employeeID, categoryID string, year, totalDays int) error {
	if f.ensureInitializedFn != nil {
		return f.ensureInitializedFn(ctx, employeeID, categoryID, year, totalDays)
	}
	return nil
}

func (f *fakeLedgerRepository) Debit(ctx context.Context, employeeID, categoryID string, year, days int) error {
	if f.debitFn != nil {
		return f.debitFn(ctx, employeeID, categoryID, year, days)
	}
	return nil
}

type fakeCategoryService struct {
	getFn    func(ctx context.Context, id string) (*category.LeaveCategory, error)
	getAllFn func(ctx context.Context) ([]category.CategoryResponse, error)
}

func (f *fakeCategoryService) Get(ctx context.Context, id string) (*category.LeaveCategory, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return nil, errors.New("unexpected category lookup")
}

func (f *fakeCategoryService) GetAll(ctx context.Context) ([]category.CategoryResponse, error) {
	if f.getAllFn != nil {
		return f.getAllFn(ctx)
	}
	return nil, nil
}

type fakeDispatcher struct {
	dispatchFn func(ctx context.Context, tx *sql.Tx, event events.LeaveWorkflowEvent) error
	events     []events.LeaveWorkflowEvent
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, tx *sql.Tx, event events.LeaveWorkflowEvent) error {
	f.events = append(f.events, event)
	if f.dispatchFn != nil {
		return f.dispatchFn(ctx, tx, event)
	}
	return nil
}

type fakeBalanceService struct {
	invalidated []string
}

func (f *fakeBalanceService) GetBalance(ctx context.Context, employeeID, categoryID string, year int) (balance.BalanceResponse, error) {
	return balance.BalanceResponse{}, nil
}

func (f *fakeBalanceService) InvalidateCache(ctx context.Context, employeeID, categoryID string, year int) {
	f.invalidated = append(f.invalidated, balance.BalanceCacheKey(employeeID, categoryID, year))
}

type workflowServiceDeps struct {
	db         *sql.DB
	sqlMock    sqlmock.Sqlmock
	service    workflow.Service
	repo       *fakeWorkflowRepository
	dir        *fakeDirectoryRepository
	ledger     *fakeLedgerRepository
	categories *fakeCategoryService
	dispatcher *fakeDispatcher
	balances   *fakeBalanceService
}

func setupWorkflowServiceTest(t *testing.T) *workflowServiceDeps {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)

	repo := &fakeWorkflowRepository{}
	dir := &fakeDirectoryRepository{}
	ledger := &fakeLedgerRepository{}
	categories := &fakeCategoryService{}
	dispatcher := &fakeDispatcher{}
	balances := &fakeBalanceService{}

	svc := workflow.NewService(db, repo, dir, ledger, categories, dispatcher, balances)

	return &workflowServiceDeps{
		db:         db,
		sqlMock:    sqlMock,
		service:    svc,
		repo:       repo,
		dir:        dir,
		ledger:     ledger,
		categories: categories,
		dispatcher: dispatcher,
		balances:   balances,
	}
}

func expectTx(t *testing.T, mock sqlmock.Sqlmock, commit bool) {
	t.Helper()
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

func annualCategory(requiresHR bool) *category.LeaveCategory {
	return &category.LeaveCategory{
		ID:                 uuid.New(),
		Name:               "Annual Leave",
		MaxDays:            12,
		RequiresHRApproval: requiresHR,
		IsActive:           true,
	}
}

// futureRange produces a window starting two weeks out so start-date checks
// never depend on when the test runs.
func futureRange(days int) (string, string) {
	start := time.Now().UTC().AddDate(0, 0, 14)
	end := start.AddDate(0, 0, days-1)
	return start.Format("2006-01-02"), end.Format("2006-01-02")
}

func TestWorkflowService_Submit(t *testing.T) {
	ctx := context.Background()
	employeeID := uuid.New().String()

	t.Run("success routes to manager first", func(t *testing.T) {
		deps := setupWorkflowServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)
		cat := annualCategory(true)
		managerID := uuid.New()
		startStr, endStr := futureRange(3)

		deps.categories.getFn = func(ctx context.Context, id string) (*category.LeaveCategory, error) {
			assert.Equal(t, cat.ID.String(), id)
			return cat, nil
		}
		deps.dir.managerOfFn = func(ctx context.Context, eid string) (*uuid.UUID, error) {
			assert.Equal(t, employeeID, eid)
			return &managerID, nil
		}
		deps.ledger.findFn = func(ctx context.Context, eid, cid string, year int) (*balance.LedgerEntry, error) {
			return &balance.LedgerEntry{TotalDays: 12, UsedDays: 2, RemainingDays: 10}, nil
		}
		deps.repo.createFn = func(ctx context.Context, l *workflow.LeaveRequest) error {
			assert.Equal(t, workflow.StatusPendingManager, l.Status)
			assert.Equal(t, 3, l.TotalDays)
			return nil
		}

		resp, err := deps.service.Submit(ctx, employeeID, workflow.SubmitLeaveRequest{
			CategoryID: cat.ID.String(),
			StartDate:  startStr,
			EndDate:    endStr,
			Reason:     "Family event out of town",
		})

		assert.NoError(t, err)
		assert.Equal(t, workflow.StatusPendingManager, resp.Status)
		assert.Equal(t, workflow.ApproverManager, resp.CurrentApprover)
		assert.Len(t, deps.dispatcher.events, 1)
		assert.Equal(t, events.EventLeaveSubmitted, deps.dispatcher.events[0].EventType)
		assert.Equal(t, []string{managerID.String()}, deps.dispatcher.events[0].Recipients)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("success no manager routes to HR pool", func(t *testing.T) {
		deps := setupWorkflowServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)
		cat := annualCategory(true)
		hrOne := uuid.New()
		hrTwo := uuid.New()
		startStr, endStr := futureRange(2)

		deps.categories.getFn = func(ctx context.Context, id string) (*category.LeaveCategory, error) {
			return cat, nil
		}
		deps.dir.listIDsByRoleFn = func(ctx context.Context, role string) ([]uuid.UUID, error) {
			assert.Equal(t, directory.RoleHR, role)
			return []uuid.UUID{hrOne, hrTwo}, nil
		}
		deps.ledger.findFn = func(ctx context.Context, eid, cid string, year int) (*balance.LedgerEntry, error) {
			return &balance.LedgerEntry{TotalDays: 12, RemainingDays: 12}, nil
		}

		resp, err := deps.service.Submit(ctx, employeeID, workflow.SubmitLeaveRequest{
			CategoryID: cat.ID.String(),
			StartDate:  startStr,
			EndDate:    endStr,
			Reason:     "Attending a conference abroad",
		})

		assert.NoError(t, err)
		assert.Equal(t, workflow.StatusPendingHR, resp.Status)
		assert.Equal(t, workflow.ApproverHR, resp.CurrentApprover)
		assert.Equal(t, []string{hrOne.String(), hrTwo.String()}, deps.dispatcher.events[0].Recipients)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("success no manager no HR stage approves immediately", func(t *testing.T) {
		deps := setupWorkflowServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)
		cat := annualCategory(false)
		startStr, endStr := futureRange(2)
		debited := 0

		deps.categories.getFn = func(ctx context.Context, id string) (*category.LeaveCategory, error) {
			return cat, nil
		}
		deps.ledger.findFn = func(ctx context.Context, eid, cid string, year int) (*balance.LedgerEntry, error) {
			return &balance.LedgerEntry{TotalDays: 12, RemainingDays: 12}, nil
		}
		deps.ledger.debitFn = func(ctx context.Context, eid, cid string, year, days int) error {
			debited = days
			return nil
		}

		resp, err := deps.service.Submit(ctx, employeeID, workflow.SubmitLeaveRequest{
			CategoryID: cat.ID.String(),
			StartDate:  startStr,
			EndDate:    endStr,
			Reason:     "Short personal errand trip",
		})

		assert.NoError(t, err)
		assert.Equal(t, workflow.StatusApproved, resp.Status)
		assert.Equal(t, workflow.ApproverSystem, resp.CurrentApprover)
		assert.Equal(t, 2, debited)
		assert.Equal(t, []string{employeeID}, deps.dispatcher.events[0].Recipients)
		assert.Len(t, deps.balances.invalidated, 1)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("success missing ledger row is initialized lazily", func(t *testing.T) {
		deps := setupWorkflowServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)
		cat := annualCategory(true)
		managerID := uuid.New()
		startStr, endStr := futureRange(4)
		var initializedWith int

		deps.categories.getFn = func(ctx context.Context, id string) (*category.LeaveCategory, error) {
			return cat, nil
		}
		deps.dir.managerOfFn = func(ctx context.Context, eid string) (*uuid.UUID, error) {
			return &managerID, nil
		}
		deps.ledger.findFn = func(ctx context.Context, eid, cid string, year int) (*balance.LedgerEntry, error) {
			return nil, sql.ErrNoRows
		}
		deps.ledger.ensureInitializedFn = func(ctx context.Context, eid, cid string, year, totalDays int) error {
			initializedWith = totalDays
			return nil
		}

		_, err := deps.service.Submit(ctx, employeeID, workflow.SubmitLeaveRequest{
			CategoryID: cat.ID.String(),
			StartDate:  startStr,
			EndDate:    endStr,
			Reason:     "Visiting relatives overseas",
		})

		assert.NoError(t, err)
		assert.Equal(t, cat.MaxDays, initializedWith)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative insufficient balance reports remaining and requested", func(t *testing.T) {
		deps := setupWorkflowServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		cat := annualCategory(true)
		startStr, endStr := futureRange(8)
		created := false

		deps.categories.getFn = func(ctx context.Context, id string) (*category.LeaveCategory, error) {
			return cat, nil
		}
		deps.ledger.findFn = func(ctx context.Context, eid, cid string, year int) (*balance.LedgerEntry, error) {
			return &balance.LedgerEntry{TotalDays: 12, UsedDays: 7, RemainingDays: 5}, nil
		}
		deps.repo.createFn = func(ctx context.Context, l *workflow.LeaveRequest) error {
			created = true
			return nil
		}

		_, err := deps.service.Submit(ctx, employeeID, workflow.SubmitLeaveRequest{
			CategoryID: cat.ID.String(),
			StartDate:  startStr,
			EndDate:    endStr,
			Reason:     "Extended family visit abroad",
		})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "5 remaining, 8 requested")
		assert.False(t, created)
		assert.Empty(t, deps.dispatcher.events)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative overlapping request", func(t *testing.T) {
		deps := setupWorkflowServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		cat := annualCategory(true)
		startStr, endStr := futureRange(2)

		deps.categories.getFn = func(ctx context.Context, id string) (*category.LeaveCategory, error) {
			return cat, nil
		}
		deps.ledger.findFn = func(ctx context.Context, eid, cid string, year int) (*balance.LedgerEntry, error) {
			return &balance.LedgerEntry{TotalDays: 12, RemainingDays: 12}, nil
		}
		deps.repo.hasOverlappingFn = func(ctx context.Context, eid string, startDate, endDate time.Time) (bool, error) {
			return true, nil
		}

		_, err := deps.service.Submit(ctx, employeeID, workflow.SubmitLeaveRequest{
			CategoryID: cat.ID.String(),
			StartDate:  startStr,
			EndDate:    endStr,
			Reason:     "Family event out of town",
		})

		assert.ErrorIs(t, err, workflowerrors.ErrOverlappingRequest)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative inactive category", func(t *testing.T) {
		deps := setupWorkflowServiceTest(t)
		defer deps.db.Close()

		cat := annualCategory(true)
		cat.IsActive = false
		startStr, endStr := futureRange(2)

		deps.categories.getFn = func(ctx context.Context, id string) (*category.LeaveCategory, error) {
			return cat, nil
		}

		_, err := deps.service.Submit(ctx, employeeID, workflow.SubmitLeaveRequest{
			CategoryID: cat.ID.String(),
			StartDate:  startStr,
			EndDate:    endStr,
			Reason:     "Family event out of town",
		})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "no longer active")
	})

	t.Run("negative unknown employee", func(t *testing.T) {
		deps := setupWorkflowServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		cat := annualCategory(true)
		startStr, endStr := futureRange(2)

		deps.categories.getFn = func(ctx context.Context, id string) (*category.LeaveCategory, error) {
			return cat, nil
		}
		deps.dir.existsFn = func(ctx context.Context, eid string) (bool, error) {
			return false, nil
		}

		_, err := deps.service.Submit(ctx, employeeID, workflow.SubmitLeaveRequest{
			CategoryID: cat.ID.String(),
			StartDate:  startStr,
			EndDate:    endStr,
			Reason:     "Family event out of town",
		})

		assert.ErrorIs(t, err, workflowerrors.ErrInvalidEmployeeID)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}

func pendingRequest(status string, employeeID uuid.UUID, days int) *workflow.LeaveRequest {
	start := time.Now().UTC().AddDate(0, 0, 14)
	return &workflow.LeaveRequest{
		ID:         uuid.New(),
		EmployeeID: employeeID,
		CategoryID: uuid.New(),
		StartDate:  start,
		EndDate:    start.AddDate(0, 0, days-1),
		TotalDays:  days,
		Reason:     "Family event out of town",
		Status:     status,
		AppliedAt:  time.Now().UTC(),
	}
}

func TestWorkflowService_ManagerDecide(t *testing.T) {
	ctx := context.Background()
	employeeID := uuid.New()
	managerID := uuid.New()

	t.Run("success approve forwards to HR", func(t *testing.T) {
		deps := setupWorkflowServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)
		req := pendingRequest(workflow.StatusPendingManager, employeeID, 3)
		cat := annualCategory(true)
		cat.ID = req.CategoryID
		hrID := uuid.New()
		debitCalled := false

		deps.repo.findByIDFn = func(ctx context.Context, id string) (*workflow.LeaveRequest, error) {
			return req, nil
		}
		deps.dir.managerOfFn = func(ctx context.Context, eid string) (*uuid.UUID, error) {
			return &managerID, nil
		}
		deps.dir.listIDsByRoleFn = func(ctx context.Context, role string) ([]uuid.UUID, error) {
			return []uuid.UUID{hrID}, nil
		}
		deps.categories.getFn = func(ctx context.Context, id string) (*category.LeaveCategory, error) {
			return cat, nil
		}
		deps.ledger.debitFn = func(ctx context.Context, eid, cid string, year, days int) error {
			debitCalled = true
			return nil
		}

		resp, err := deps.service.ManagerDecide(ctx, managerID.String(), req.ID.String(), workflow.DecisionRequest{
			Approve: true,
		})

		assert.NoError(t, err)
		assert.Equal(t, workflow.StatusPendingHR, resp.Status)
		assert.Equal(t, workflow.ApproverHR, resp.CurrentApprover)
		assert.NotNil(t, resp.ManagerDecision)
		assert.True(t, resp.ManagerDecision.Approved)
		assert.False(t, debitCalled)
		assert.Equal(t, events.EventLeaveManagerApproved, deps.dispatcher.events[0].EventType)
		assert.ElementsMatch(t,
			[]string{employeeID.String(), hrID.String()},
			deps.dispatcher.events[0].Recipients,
		)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("success approve without HR stage is terminal and debits", func(t *testing.T) {
		deps := setupWorkflowServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)
		req := pendingRequest(workflow.StatusPendingManager, employeeID, 3)
		cat := annualCategory(false)
		cat.ID = req.CategoryID
		debited := 0

		deps.repo.findByIDFn = func(ctx context.Context, id string) (*workflow.LeaveRequest, error) {
			return req, nil
		}
		deps.dir.managerOfFn = func(ctx context.Context, eid string) (*uuid.UUID, error) {
			return &managerID, nil
		}
		deps.categories.getFn = func(ctx context.Context, id string) (*category.LeaveCategory, error) {
			return cat, nil
		}
		deps.ledger.debitFn = func(ctx context.Context, eid, cid string, year, days int) error {
			assert.Equal(t, employeeID.String(), eid)
			debited = days
			return nil
		}

		resp, err := deps.service.ManagerDecide(ctx, managerID.String(), req.ID.String(), workflow.DecisionRequest{
			Approve: true,
		})

		assert.NoError(t, err)
		assert.Equal(t, workflow.StatusApproved, resp.Status)
		assert.Equal(t, 3, debited)
		assert.Len(t, deps.balances.invalidated, 1)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("success reject with notes does not debit", func(t *testing.T) {
		deps := setupWorkflowServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)
		req := pendingRequest(workflow.StatusPendingManager, employeeID, 3)
		cat := annualCategory(true)
		cat.ID = req.CategoryID
		debitCalled := false

		deps.repo.findByIDFn = func(ctx context.Context, id string) (*workflow.LeaveRequest, error) {
			return req, nil
		}
		deps.dir.managerOfFn = func(ctx context.Context, eid string) (*uuid.UUID, error) {
			return &managerID, nil
		}
		deps.categories.getFn = func(ctx context.Context, id string) (*category.LeaveCategory, error) {
			return cat, nil
		}
		deps.ledger.debitFn = func(ctx context.Context, eid, cid string, year, days int) error {
			debitCalled = true
			return nil
		}

		resp, err := deps.service.ManagerDecide(ctx, managerID.String(), req.ID.String(), workflow.DecisionRequest{
			Approve: false,
			Notes:   "Team is at capacity that week",
		})

		assert.NoError(t, err)
		assert.Equal(t, workflow.StatusRejected, resp.Status)
		assert.False(t, debitCalled)
		assert.Empty(t, deps.balances.invalidated)
		assert.Equal(t, events.EventLeaveManagerRejected, deps.dispatcher.events[0].EventType)
		assert.Equal(t, "Team is at capacity that week", deps.dispatcher.events[0].Notes)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative reject without notes", func(t *testing.T) {
		deps := setupWorkflowServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.ManagerDecide(ctx, managerID.String(), uuid.New().String(), workflow.DecisionRequest{
			Approve: false,
		})

		assert.ErrorIs(t, err, workflowerrors.ErrNotesRequired)
	})

	t.Run("negative actor is not the manager", func(t *testing.T) {
		deps := setupWorkflowServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		req := pendingRequest(workflow.StatusPendingManager, employeeID, 3)

		deps.repo.findByIDFn = func(ctx context.Context, id string) (*workflow.LeaveRequest, error) {
			return req, nil
		}
		deps.dir.managerOfFn = func(ctx context.Context, eid string) (*uuid.UUID, error) {
			return &managerID, nil
		}

		_, err := deps.service.ManagerDecide(ctx, uuid.New().String(), req.ID.String(), workflow.DecisionRequest{
			Approve: true,
		})

		assert.ErrorIs(t, err, workflowerrors.ErrNotRequestManager)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative request already decided", func(t *testing.T) {
		deps := setupWorkflowServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		req := pendingRequest(workflow.StatusApproved, employeeID, 3)

		deps.repo.findByIDFn = func(ctx context.Context, id string) (*workflow.LeaveRequest, error) {
			return req, nil
		}

		_, err := deps.service.ManagerDecide(ctx, managerID.String(), req.ID.String(), workflow.DecisionRequest{
			Approve: true,
		})

		assert.ErrorIs(t, err, workflowerrors.ErrInvalidTransition)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative concurrent decision loses the race", func(t *testing.T) {
		deps := setupWorkflowServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		req := pendingRequest(workflow.StatusPendingManager, employeeID, 3)
		cat := annualCategory(true)
		cat.ID = req.CategoryID
		debitCalled := false

		deps.repo.findByIDFn = func(ctx context.Context, id string) (*workflow.LeaveRequest, error) {
			return req, nil
		}
		deps.dir.managerOfFn = func(ctx context.Context, eid string) (*uuid.UUID, error) {
			return &managerID, nil
		}
		deps.categories.getFn = func(ctx context.Context, id string) (*category.LeaveCategory, error) {
			return cat, nil
		}
		deps.repo.updateFromStatusFn = func(ctx context.Context, l *workflow.LeaveRequest, fromStatus string) (int64, error) {
			return 0, nil
		}
		deps.ledger.debitFn = func(ctx context.Context, eid, cid string, year, days int) error {
			debitCalled = true
			return nil
		}

		_, err := deps.service.ManagerDecide(ctx, managerID.String(), req.ID.String(), workflow.DecisionRequest{
			Approve: true,
		})

		assert.ErrorIs(t, err, workflowerrors.ErrInvalidTransition)
		assert.False(t, debitCalled)
		assert.Empty(t, deps.dispatcher.events)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative request not found", func(t *testing.T) {
		deps := setupWorkflowServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		deps.repo.findByIDFn = func(ctx context.Context, id string) (*workflow.LeaveRequest, error) {
			return nil, sql.ErrNoRows
		}

		_, err := deps.service.ManagerDecide(ctx, managerID.String(), uuid.New().String(), workflow.DecisionRequest{
			Approve: true,
		})

		assert.ErrorIs(t, err, workflowerrors.ErrRequestNotFound)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}

func TestWorkflowService_HRDecide(t *testing.T) {
	ctx := context.Background()
	employeeID := uuid.New()
	hrID := uuid.New()
	managerID := uuid.New()

	t.Run("success final approval debits the ledger", func(t *testing.T) {
		deps := setupWorkflowServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)
		req := pendingRequest(workflow.StatusPendingHR, employeeID, 5)
		cat := annualCategory(true)
		cat.ID = req.CategoryID
		debited := 0

		deps.repo.findByIDFn = func(ctx context.Context, id string) (*workflow.LeaveRequest, error) {
			return req, nil
		}
		deps.dir.hasRoleFn = func(ctx context.Context, eid, role string) (bool, error) {
			assert.Equal(t, hrID.String(), eid)
			assert.Equal(t, directory.RoleHR, role)
			return true, nil
		}
		deps.dir.managerOfFn = func(ctx context.Context, eid string) (*uuid.UUID, error) {
			return &managerID, nil
		}
		deps.categories.getFn = func(ctx context.Context, id string) (*category.LeaveCategory, error) {
			return cat, nil
		}
		deps.ledger.debitFn = func(ctx context.Context, eid, cid string, year, days int) error {
			debited = days
			return nil
		}

		resp, err := deps.service.HRDecide(ctx, hrID.String(), req.ID.String(), workflow.DecisionRequest{
			Approve: true,
		})

		assert.NoError(t, err)
		assert.Equal(t, workflow.StatusHRApproved, resp.Status)
		assert.Equal(t, 5, debited)
		assert.NotNil(t, resp.HRDecision)
		assert.Equal(t, events.EventLeaveHRApproved, deps.dispatcher.events[0].EventType)
		assert.ElementsMatch(t,
			[]string{employeeID.String(), managerID.String()},
			deps.dispatcher.events[0].Recipients,
		)
		assert.Len(t, deps.balances.invalidated, 1)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("success rejection refunds nothing because nothing was taken", func(t *testing.T) {
		deps := setupWorkflowServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)
		req := pendingRequest(workflow.StatusPendingHR, employeeID, 5)
		cat := annualCategory(true)
		cat.ID = req.CategoryID
		debitCalled := false

		deps.repo.findByIDFn = func(ctx context.Context, id string) (*workflow.LeaveRequest, error) {
			return req, nil
		}
		deps.dir.hasRoleFn = func(ctx context.Context, eid, role string) (bool, error) {
			return true, nil
		}
		deps.dir.managerOfFn = func(ctx context.Context, eid string) (*uuid.UUID, error) {
			return &managerID, nil
		}
		deps.categories.getFn = func(ctx context.Context, id string) (*category.LeaveCategory, error) {
			return cat, nil
		}
		deps.ledger.debitFn = func(ctx context.Context, eid, cid string, year, days int) error {
			debitCalled = true
			return nil
		}

		resp, err := deps.service.HRDecide(ctx, hrID.String(), req.ID.String(), workflow.DecisionRequest{
			Approve: false,
			Notes:   "Blackout period for this department",
		})

		assert.NoError(t, err)
		assert.Equal(t, workflow.StatusRejected, resp.Status)
		assert.False(t, debitCalled)
		assert.Equal(t, events.EventLeaveHRRejected, deps.dispatcher.events[0].EventType)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative actor lacks HR role", func(t *testing.T) {
		deps := setupWorkflowServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		req := pendingRequest(workflow.StatusPendingHR, employeeID, 5)

		deps.repo.findByIDFn = func(ctx context.Context, id string) (*workflow.LeaveRequest, error) {
			return req, nil
		}
		deps.dir.hasRoleFn = func(ctx context.Context, eid, role string) (bool, error) {
			return false, nil
		}

		_, err := deps.service.HRDecide(ctx, uuid.New().String(), req.ID.String(), workflow.DecisionRequest{
			Approve: true,
		})

		assert.ErrorIs(t, err, workflowerrors.ErrNotHR)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative insufficient balance at approval time", func(t *testing.T) {
		deps := setupWorkflowServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		req := pendingRequest(workflow.StatusPendingHR, employeeID, 5)
		cat := annualCategory(true)
		cat.ID = req.CategoryID

		deps.repo.findByIDFn = func(ctx context.Context, id string) (*workflow.LeaveRequest, error) {
			return req, nil
		}
		deps.dir.hasRoleFn = func(ctx context.Context, eid, role string) (bool, error) {
			return true, nil
		}
		deps.categories.getFn = func(ctx context.Context, id string) (*category.LeaveCategory, error) {
			return cat, nil
		}
		deps.ledger.debitFn = func(ctx context.Context, eid, cid string, year, days int) error {
			return balance.ErrInsufficientFunds
		}
		deps.ledger.findFn = func(ctx context.Context, eid, cid string, year int) (*balance.LedgerEntry, error) {
			return &balance.LedgerEntry{TotalDays: 12, UsedDays: 10, RemainingDays: 2}, nil
		}

		_, err := deps.service.HRDecide(ctx, hrID.String(), req.ID.String(), workflow.DecisionRequest{
			Approve: true,
		})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "2 remaining, 5 requested")
		assert.Empty(t, deps.balances.invalidated)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}

func TestWorkflowService_Cancel(t *testing.T) {
	ctx := context.Background()
	employeeID := uuid.New()
	managerID := uuid.New()

	t.Run("success cancels pending request and notifies the reviewer", func(t *testing.T) {
		deps := setupWorkflowServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)
		req := pendingRequest(workflow.StatusPendingManager, employeeID, 3)
		cat := annualCategory(true)
		cat.ID = req.CategoryID

		deps.repo.findByIDFn = func(ctx context.Context, id string) (*workflow.LeaveRequest, error) {
			return req, nil
		}
		deps.categories.getFn = func(ctx context.Context, id string) (*category.LeaveCategory, error) {
			return cat, nil
		}
		deps.dir.managerOfFn = func(ctx context.Context, eid string) (*uuid.UUID, error) {
			return &managerID, nil
		}

		resp, err := deps.service.Cancel(ctx, employeeID.String(), req.ID.String())

		assert.NoError(t, err)
		assert.Equal(t, workflow.StatusCancelled, resp.Status)
		assert.Equal(t, events.EventLeaveCancelled, deps.dispatcher.events[0].EventType)
		assert.Equal(t, []string{managerID.String()}, deps.dispatcher.events[0].Recipients)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative only the owner may cancel", func(t *testing.T) {
		deps := setupWorkflowServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		req := pendingRequest(workflow.StatusPendingManager, employeeID, 3)

		deps.repo.findByIDFn = func(ctx context.Context, id string) (*workflow.LeaveRequest, error) {
			return req, nil
		}

		_, err := deps.service.Cancel(ctx, uuid.New().String(), req.ID.String())

		assert.ErrorIs(t, err, workflowerrors.ErrNotRequestOwner)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative cannot cancel a decided request", func(t *testing.T) {
		deps := setupWorkflowServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		req := pendingRequest(workflow.StatusApproved, employeeID, 3)

		deps.repo.findByIDFn = func(ctx context.Context, id string) (*workflow.LeaveRequest, error) {
			return req, nil
		}

		_, err := deps.service.Cancel(ctx, employeeID.String(), req.ID.String())

		assert.ErrorIs(t, err, workflowerrors.ErrInvalidTransition)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}

func TestWorkflowService_GetByID(t *testing.T) {
	ctx := context.Background()
	employeeID := uuid.New()
	managerID := uuid.New()

	req := pendingRequest(workflow.StatusPendingManager, employeeID, 3)

	t.Run("success owner reads own request", func(t *testing.T) {
		deps := setupWorkflowServiceTest(t)
		defer deps.db.Close()

		deps.repo.findByIDFn = func(ctx context.Context, id string) (*workflow.LeaveRequest, error) {
			return req, nil
		}

		resp, err := deps.service.GetByID(ctx, employeeID.String(), directory.RoleEmployee, req.ID.String())

		assert.NoError(t, err)
		assert.Equal(t, req.ID.String(), resp.ID)
	})

	t.Run("success manager of the employee may read", func(t *testing.T) {
		deps := setupWorkflowServiceTest(t)
		defer deps.db.Close()

		deps.repo.findByIDFn = func(ctx context.Context, id string) (*workflow.LeaveRequest, error) {
			return req, nil
		}
		deps.dir.managerOfFn = func(ctx context.Context, eid string) (*uuid.UUID, error) {
			return &managerID, nil
		}

		_, err := deps.service.GetByID(ctx, managerID.String(), directory.RoleManager, req.ID.String())

		assert.NoError(t, err)
	})

	t.Run("success HR may read anything", func(t *testing.T) {
		deps := setupWorkflowServiceTest(t)
		defer deps.db.Close()

		deps.repo.findByIDFn = func(ctx context.Context, id string) (*workflow.LeaveRequest, error) {
			return req, nil
		}

		_, err := deps.service.GetByID(ctx, uuid.New().String(), directory.RoleHR, req.ID.String())

		assert.NoError(t, err)
	})

	t.Run("negative unrelated employee is forbidden", func(t *testing.T) {
		deps := setupWorkflowServiceTest(t)
		defer deps.db.Close()

		deps.repo.findByIDFn = func(ctx context.Context, id string) (*workflow.LeaveRequest, error) {
			return req, nil
		}
		deps.dir.managerOfFn = func(ctx context.Context, eid string) (*uuid.UUID, error) {
			return &managerID, nil
		}

		_, err := deps.service.GetByID(ctx, uuid.New().String(), directory.RoleEmployee, req.ID.String())

		assert.Error(t, err)
	})

	t.Run("negative not found", func(t *testing.T) {
		deps := setupWorkflowServiceTest(t)
		defer deps.db.Close()

		deps.repo.findByIDFn = func(ctx context.Context, id string) (*workflow.LeaveRequest, error) {
			return nil, sql.ErrNoRows
		}

		_, err := deps.service.GetByID(ctx, employeeID.String(), directory.RoleEmployee, uuid.New().String())

		assert.ErrorIs(t, err, workflowerrors.ErrRequestNotFound)
	})
}

func TestWorkflowService_List(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New().String()

	t.Run("HR sees everything", func(t *testing.T) {
		deps := setupWorkflowServiceTest(t)
		defer deps.db.Close()

		deps.repo.findAllFn = func(ctx context.Context) ([]workflow.LeaveRequest, error) {
			return []workflow.LeaveRequest{*pendingRequest(workflow.StatusPendingHR, uuid.New(), 2)}, nil
		}

		resp, err := deps.service.List(ctx, actorID, directory.RoleHR)

		assert.NoError(t, err)
		assert.Len(t, resp, 1)
	})

	t.Run("manager sees reports and own", func(t *testing.T) {
		deps := setupWorkflowServiceTest(t)
		defer deps.db.Close()

		called := false
		deps.repo.findAllForManagerFn = func(ctx context.Context, managerID string) ([]workflow.LeaveRequest, error) {
			called = true
			assert.Equal(t, actorID, managerID)
			return nil, nil
		}

		_, err := deps.service.List(ctx, actorID, directory.RoleManager)

		assert.NoError(t, err)
		assert.True(t, called)
	})

	t.Run("employee sees only own", func(t *testing.T) {
		deps := setupWorkflowServiceTest(t)
		defer deps.db.Close()

		called := false
		deps.repo.findAllByEmployeeFn = func(ctx context.Context, employeeID string) ([]workflow.LeaveRequest, error) {
			called = true
			assert.Equal(t, actorID, employeeID)
			return nil, nil
		}

		_, err := deps.service.List(ctx, actorID, directory.RoleEmployee)

		assert.NoError(t, err)
		assert.True(t, called)
	})
}
