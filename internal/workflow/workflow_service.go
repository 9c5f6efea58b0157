package workflow

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"leavedesk/internal/balance"
	balanceerrors "leavedesk/internal/balance/errors"
	"leavedesk/internal/category"
	categoryerrors "leavedesk/internal/category/errors"
	"leavedesk/internal/directory"
	"leavedesk/internal/events"
	"leavedesk/internal/notification"
	"leavedesk/internal/shared/apperror"
	"leavedesk/internal/shared/contextutil"
	workflowerrors "leavedesk/internal/workflow/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

//go:generate mockgen -source=workflow_service.go -destination=mock/workflow_service_mock.go -package=mock
type Service interface {
	Submit(ctx context.Context, employeeID string, req SubmitLeaveRequest) (LeaveRequestResponse, error)
	ManagerDecide(ctx context.Context, actorID, id string, req DecisionRequest) (LeaveRequestResponse, error)
	HRDecide(ctx context.Context, actorID, id string, req DecisionRequest) (LeaveRequestResponse, error)
	Cancel(ctx context.Context, actorID, id string) (LeaveRequestResponse, error)
	GetByID(ctx context.Context, actorID, role, id string) (LeaveRequestResponse, error)
	List(ctx context.Context, actorID, role string) ([]LeaveRequestResponse, error)
}

type service struct {
	db         *sql.DB
	repo       Repository
	dir        directory.Repository
	ledger     balance.Repository
	categories category.Service
	dispatcher notification.Dispatcher
	balances   balance.Service
	logger     *zap.Logger
	now        func() time.Time
}

func NewService(
	db *sql.DB,
	repo Repository,
	dir directory.Repository,
	ledger balance.Repository,
	categories category.Service,
	dispatcher notification.Dispatcher,
	balances balance.Service,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("workflow.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("workflow.service")
	}
	return &service{
		db:         db,
		repo:       repo,
		dir:        dir,
		ledger:     ledger,
		categories: categories,
		dispatcher: dispatcher,
		balances:   balances,
		logger:     l,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// debitResult remembers a committed debit so the cache can be dropped after
// the transaction, never inside it.
type debitResult struct {
	employeeID string
	categoryID string
	year       int
}

func (s *service) Submit(ctx context.Context, employeeID string, req SubmitLeaveRequest) (LeaveRequestResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	s.logger.Debug("submit leave requested",
		zap.String("request_id", rid),
		zap.String("employee_id", employeeID),
		zap.String("category_id", req.CategoryID),
		zap.String("start_date", req.StartDate),
		zap.String("end_date", req.EndDate),
	)

	employeeUUID, err := uuid.Parse(employeeID)
	if err != nil {
		return LeaveRequestResponse{}, workflowerrors.ErrInvalidEmployeeID
	}

	cat, err := s.categories.Get(ctx, req.CategoryID)
	if err != nil {
		return LeaveRequestResponse{}, err
	}
	if !cat.IsActive {
		return LeaveRequestResponse{}, categoryerrors.ErrCategoryInactive
	}

	validated, err := parseSubmission(req, s.now())
	if err != nil {
		s.logger.Warn("submit leave validation failed", zap.String("request_id", rid), zap.Error(err))
		return LeaveRequestResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("submit leave begin tx failed", zap.Error(err))
		return LeaveRequestResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	qdir := s.dir.WithTx(tx)
	qledger := s.ledger.WithTx(tx)

	exists, err := qdir.Exists(ctx, employeeID)
	if err != nil {
		return LeaveRequestResponse{}, err
	}
	if !exists {
		return LeaveRequestResponse{}, workflowerrors.ErrInvalidEmployeeID
	}

	year := validated.StartDate.Year()
	entry, err := qledger.Find(ctx, employeeID, req.CategoryID, year)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return LeaveRequestResponse{}, err
		}
		entry = nil
		validated.LedgerMissing = true
	}

	if err := checkAllowance(validated.Days, cat, entry); err != nil {
		s.logger.Warn("submit leave allowance check failed",
			zap.String("request_id", rid),
			zap.String("employee_id", employeeID),
			zap.Int("requested_days", validated.Days),
			zap.Error(err),
		)
		return LeaveRequestResponse{}, err
	}

	overlap, err := qtx.HasOverlapping(ctx, employeeID, validated.StartDate, validated.EndDate)
	if err != nil {
		return LeaveRequestResponse{}, err
	}
	if overlap {
		s.logger.Warn("submit leave overlap detected",
			zap.String("request_id", rid),
			zap.String("employee_id", employeeID),
			zap.String("start_date", req.StartDate),
			zap.String("end_date", req.EndDate),
		)
		return LeaveRequestResponse{}, workflowerrors.ErrOverlappingRequest
	}

	if validated.LedgerMissing {
		if err := qledger.EnsureInitialized(ctx, employeeID, req.CategoryID, year, cat.MaxDays); err != nil {
			return LeaveRequestResponse{}, err
		}
	}

	managerID, err := qdir.ManagerOf(ctx, employeeID)
	if err != nil {
		return LeaveRequestResponse{}, err
	}

	l := &LeaveRequest{
		ID:         uuid.New(),
		EmployeeID: employeeUUID,
		CategoryID: cat.ID,
		StartDate:  validated.StartDate,
		EndDate:    validated.EndDate,
		TotalDays:  validated.Days,
		Reason:     req.Reason,
		AppliedAt:  s.now(),
	}

	// Routing: the manager reviews first when one exists. Without a manager
	// the HR stage takes the first review, and a category that needs no HR
	// sign-off at all approves immediately.
	var recipients []string
	var debited *debitResult
	switch {
	case managerID != nil:
		l.Status = StatusPendingManager
		recipients = []string{managerID.String()}
	case cat.RequiresHRApproval:
		l.Status = StatusPendingHR
		hrPool, err := qdir.ListIDsByRole(ctx, directory.RoleHR)
		if err != nil {
			return LeaveRequestResponse{}, err
		}
		recipients = idsToStrings(hrPool)
	default:
		l.Status = StatusApproved
		if err := s.debitLedger(ctx, qledger, employeeID, req.CategoryID, year, validated.Days, cat.MaxDays); err != nil {
			return LeaveRequestResponse{}, err
		}
		debited = &debitResult{employeeID: employeeID, categoryID: req.CategoryID, year: year}
		recipients = []string{employeeID}
	}

	if err := qtx.Create(ctx, l); err != nil {
		s.logger.Error("submit leave persist failed", zap.String("request_id", rid), zap.Error(err))
		return LeaveRequestResponse{}, err
	}

	event := s.buildEvent(events.EventLeaveSubmitted, l, cat.Name, employeeID, "", recipients, rid)
	if err := s.dispatcher.Dispatch(ctx, tx, event); err != nil {
		s.logger.Error("submit leave dispatch failed", zap.String("request_id", rid), zap.Error(err))
		return LeaveRequestResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("submit leave commit failed", zap.String("request_id", rid), zap.Error(err))
		return LeaveRequestResponse{}, err
	}

	s.afterCommit(ctx, debited)
	s.logger.Info("submit leave success",
		zap.String("request_id", rid),
		zap.String("leave_id", l.ID.String()),
		zap.String("status", l.Status),
		zap.Int("total_days", l.TotalDays),
	)

	return mapToResponse(*l), nil
}

func (s *service) ManagerDecide(ctx context.Context, actorID, id string, req DecisionRequest) (LeaveRequestResponse, error) {
	return s.decide(ctx, actorID, id, req, StatusPendingManager)
}

func (s *service) HRDecide(ctx context.Context, actorID, id string, req DecisionRequest) (LeaveRequestResponse, error) {
	return s.decide(ctx, actorID, id, req, StatusPendingHR)
}

// decide runs one approval stage: guard, status transition, terminal debit,
// event enqueue, all inside a single transaction. The conditional update
// makes the loser of a decision race fail with ErrInvalidTransition instead
// of double-applying.
func (s *service) decide(ctx context.Context, actorID, id string, req DecisionRequest, stage string) (LeaveRequestResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	s.logger.Debug("decide leave requested",
		zap.String("request_id", rid),
		zap.String("leave_id", id),
		zap.String("actor_id", actorID),
		zap.String("stage", stage),
		zap.Bool("approve", req.Approve),
	)

	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return LeaveRequestResponse{}, workflowerrors.ErrInvalidActorID
	}
	if _, err := uuid.Parse(id); err != nil {
		return LeaveRequestResponse{}, workflowerrors.ErrInvalidRequestID
	}
	if !req.Approve && req.Notes == "" {
		return LeaveRequestResponse{}, workflowerrors.ErrNotesRequired
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("decide leave begin tx failed", zap.Error(err))
		return LeaveRequestResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	qdir := s.dir.WithTx(tx)

	l, err := qtx.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LeaveRequestResponse{}, workflowerrors.ErrRequestNotFound
		}
		return LeaveRequestResponse{}, err
	}
	if l.Status != stage {
		s.logger.Warn("decide leave invalid transition",
			zap.String("leave_id", id),
			zap.String("from_status", l.Status),
			zap.String("stage", stage),
		)
		return LeaveRequestResponse{}, workflowerrors.ErrInvalidTransition
	}

	// Authorization guard, evaluated against the transaction's snapshot
	// before any mutation.
	if err := s.guardStage(ctx, qdir, l, actorUUID, stage); err != nil {
		return LeaveRequestResponse{}, err
	}

	cat, err := s.categories.Get(ctx, l.CategoryID.String())
	if err != nil {
		return LeaveRequestResponse{}, err
	}

	decision := &Decision{
		DecidedBy: actorUUID,
		DecidedAt: s.now(),
		Notes:     req.Notes,
		Approved:  req.Approve,
	}

	var eventType string
	var terminalDebit bool
	switch {
	case stage == StatusPendingManager && req.Approve:
		l.ManagerDecision = decision
		if cat.RequiresHRApproval {
			l.Status = StatusPendingHR
			eventType = events.EventLeaveManagerApproved
		} else {
			l.Status = StatusApproved
			eventType = events.EventLeaveManagerApproved
			terminalDebit = true
		}
	case stage == StatusPendingManager:
		l.ManagerDecision = decision
		l.Status = StatusRejected
		eventType = events.EventLeaveManagerRejected
	case req.Approve:
		l.HRDecision = decision
		l.Status = StatusHRApproved
		eventType = events.EventLeaveHRApproved
		terminalDebit = true
	default:
		l.HRDecision = decision
		l.Status = StatusRejected
		eventType = events.EventLeaveHRRejected
	}

	affected, err := qtx.UpdateFromStatus(ctx, l, stage)
	if err != nil {
		s.logger.Error("decide leave persist failed", zap.String("leave_id", id), zap.Error(err))
		return LeaveRequestResponse{}, err
	}
	if affected == 0 {
		// Lost the race: someone else moved the request between our read
		// and write.
		s.logger.Warn("decide leave concurrent transition detected", zap.String("leave_id", id))
		return LeaveRequestResponse{}, workflowerrors.ErrInvalidTransition
	}

	employeeID := l.EmployeeID.String()
	categoryID := l.CategoryID.String()
	year := l.StartDate.Year()

	var debited *debitResult
	if terminalDebit {
		qledger := s.ledger.WithTx(tx)
		if err := s.debitLedger(ctx, qledger, employeeID, categoryID, year, l.TotalDays, cat.MaxDays); err != nil {
			return LeaveRequestResponse{}, err
		}
		debited = &debitResult{employeeID: employeeID, categoryID: categoryID, year: year}
	}

	recipients, err := s.decisionRecipients(ctx, qdir, l, eventType)
	if err != nil {
		return LeaveRequestResponse{}, err
	}

	event := s.buildEvent(eventType, l, cat.Name, actorID, req.Notes, recipients, rid)
	if err := s.dispatcher.Dispatch(ctx, tx, event); err != nil {
		s.logger.Error("decide leave dispatch failed", zap.String("leave_id", id), zap.Error(err))
		return LeaveRequestResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("decide leave commit failed", zap.String("leave_id", id), zap.Error(err))
		return LeaveRequestResponse{}, err
	}

	s.afterCommit(ctx, debited)
	s.logger.Info("decide leave success",
		zap.String("request_id", rid),
		zap.String("leave_id", id),
		zap.String("status", l.Status),
		zap.Bool("debited", debited != nil),
	)

	return mapToResponse(*l), nil
}

func (s *service) Cancel(ctx context.Context, actorID, id string) (LeaveRequestResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	s.logger.Debug("cancel leave requested",
		zap.String("request_id", rid),
		zap.String("leave_id", id),
		zap.String("actor_id", actorID),
	)

	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return LeaveRequestResponse{}, workflowerrors.ErrInvalidActorID
	}
	if _, err := uuid.Parse(id); err != nil {
		return LeaveRequestResponse{}, workflowerrors.ErrInvalidRequestID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("cancel leave begin tx failed", zap.Error(err))
		return LeaveRequestResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	qdir := s.dir.WithTx(tx)

	l, err := qtx.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LeaveRequestResponse{}, workflowerrors.ErrRequestNotFound
		}
		return LeaveRequestResponse{}, err
	}
	if l.EmployeeID != actorUUID {
		return LeaveRequestResponse{}, workflowerrors.ErrNotRequestOwner
	}
	if l.Status != StatusPendingManager && l.Status != StatusPendingHR {
		return LeaveRequestResponse{}, workflowerrors.ErrInvalidTransition
	}

	fromStatus := l.Status
	l.Status = StatusCancelled

	affected, err := qtx.UpdateFromStatus(ctx, l, fromStatus)
	if err != nil {
		s.logger.Error("cancel leave persist failed", zap.String("leave_id", id), zap.Error(err))
		return LeaveRequestResponse{}, err
	}
	if affected == 0 {
		return LeaveRequestResponse{}, workflowerrors.ErrInvalidTransition
	}

	cat, err := s.categories.Get(ctx, l.CategoryID.String())
	if err != nil {
		return LeaveRequestResponse{}, err
	}

	// Whoever was holding the pending review hears about the withdrawal.
	var recipients []string
	if fromStatus == StatusPendingManager {
		managerID, err := qdir.ManagerOf(ctx, l.EmployeeID.String())
		if err != nil {
			return LeaveRequestResponse{}, err
		}
		if managerID != nil {
			recipients = []string{managerID.String()}
		}
	} else {
		hrPool, err := qdir.ListIDsByRole(ctx, directory.RoleHR)
		if err != nil {
			return LeaveRequestResponse{}, err
		}
		recipients = idsToStrings(hrPool)
	}

	event := s.buildEvent(events.EventLeaveCancelled, l, cat.Name, actorID, "", recipients, rid)
	if err := s.dispatcher.Dispatch(ctx, tx, event); err != nil {
		s.logger.Error("cancel leave dispatch failed", zap.String("leave_id", id), zap.Error(err))
		return LeaveRequestResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("cancel leave commit failed", zap.String("leave_id", id), zap.Error(err))
		return LeaveRequestResponse{}, err
	}

	s.logger.Info("cancel leave success",
		zap.String("request_id", rid),
		zap.String("leave_id", id),
		zap.String("from_status", fromStatus),
	)

	return mapToResponse(*l), nil
}

func (s *service) GetByID(ctx context.Context, actorID, role, id string) (LeaveRequestResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return LeaveRequestResponse{}, workflowerrors.ErrInvalidRequestID
	}

	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LeaveRequestResponse{}, workflowerrors.ErrRequestNotFound
		}
		return LeaveRequestResponse{}, err
	}

	if err := s.authorizeRead(ctx, l, actorID, role); err != nil {
		return LeaveRequestResponse{}, err
	}

	return mapToResponse(*l), nil
}

// List scopes results to what the actor may see: employees their own
// requests, managers their reports' and their own, HR everything.
func (s *service) List(ctx context.Context, actorID, role string) ([]LeaveRequestResponse, error) {
	var (
		requests []LeaveRequest
		err      error
	)
	switch role {
	case directory.RoleHR:
		requests, err = s.repo.FindAll(ctx)
	case directory.RoleManager:
		requests, err = s.repo.FindAllForManager(ctx, actorID)
	default:
		requests, err = s.repo.FindAllByEmployee(ctx, actorID)
	}
	if err != nil {
		return nil, err
	}
	return mapToListResponse(requests), nil
}

func (s *service) authorizeRead(ctx context.Context, l *LeaveRequest, actorID, role string) error {
	if role == directory.RoleHR || l.EmployeeID.String() == actorID {
		return nil
	}

	managerID, err := s.dir.ManagerOf(ctx, l.EmployeeID.String())
	if err != nil {
		return err
	}
	if managerID != nil && managerID.String() == actorID {
		return nil
	}
	return apperror.ErrForbidden
}

func (s *service) guardStage(ctx context.Context, qdir directory.Repository, l *LeaveRequest, actor uuid.UUID, stage string) error {
	if stage == StatusPendingManager {
		managerID, err := qdir.ManagerOf(ctx, l.EmployeeID.String())
		if err != nil {
			return err
		}
		if managerID == nil || *managerID != actor {
			return workflowerrors.ErrNotRequestManager
		}
		return nil
	}

	isHR, err := qdir.HasRole(ctx, actor.String(), directory.RoleHR)
	if err != nil {
		return err
	}
	if !isHR {
		return workflowerrors.ErrNotHR
	}
	return nil
}

// decisionRecipients resolves who hears about a decision: the employee
// always, the HR pool when the request moves to their queue, the manager on
// HR decisions.
func (s *service) decisionRecipients(ctx context.Context, qdir directory.Repository, l *LeaveRequest, eventType string) ([]string, error) {
	recipients := []string{l.EmployeeID.String()}

	switch eventType {
	case events.EventLeaveManagerApproved:
		if l.Status == StatusPendingHR {
			hrPool, err := qdir.ListIDsByRole(ctx, directory.RoleHR)
			if err != nil {
				return nil, err
			}
			recipients = append(recipients, idsToStrings(hrPool)...)
		}
	case events.EventLeaveHRApproved, events.EventLeaveHRRejected:
		managerID, err := qdir.ManagerOf(ctx, l.EmployeeID.String())
		if err != nil {
			return nil, err
		}
		if managerID != nil {
			recipients = append(recipients, managerID.String())
		}
	}

	return recipients, nil
}

func (s *service) buildEvent(eventType string, l *LeaveRequest, categoryName, actorID, notes string, recipients []string, traceID string) events.LeaveWorkflowEvent {
	return events.LeaveWorkflowEvent{
		EventType:    eventType,
		EventID:      uuid.NewString(),
		RequestID:    l.ID.String(),
		TraceID:      traceID,
		EmployeeID:   l.EmployeeID.String(),
		ActorID:      actorID,
		CategoryName: categoryName,
		Days:         l.TotalDays,
		NewStatus:    l.Status,
		Notes:        notes,
		Recipients:   recipients,
		OccurredAt:   s.now(),
	}
}

// debitLedger ensures the ledger row exists, then debits it inside the same
// transaction as the status write. The UPDATE's own remaining_days guard is
// the final arbiter: if it refuses, the balance shrank since submission and
// the approval reports the current numbers instead of half-applying.
func (s *service) debitLedger(ctx context.Context, qledger balance.Repository, employeeID, categoryID string, year, days, totalDays int) error {
	if err := qledger.EnsureInitialized(ctx, employeeID, categoryID, year, totalDays); err != nil {
		return err
	}

	err := qledger.Debit(ctx, employeeID, categoryID, year, days)
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, balance.ErrInsufficientFunds):
		entry, findErr := qledger.Find(ctx, employeeID, categoryID, year)
		if findErr != nil {
			return findErr
		}
		return balanceerrors.InsufficientBalance(entry.RemainingDays, days)
	case errors.Is(err, balance.ErrEntryMissing):
		// The row was ensured moments ago in this very transaction; its
		// absence means the storage is not honoring the atomic unit.
		s.logger.Error("ledger row missing inside transaction",
			zap.String("employee_id", employeeID),
			zap.String("category_id", categoryID),
			zap.Int("year", year),
		)
		return apperror.ConsistencyFault(err)
	default:
		return err
	}
}

func (s *service) afterCommit(ctx context.Context, debited *debitResult) {
	if debited == nil || s.balances == nil {
		return
	}
	s.balances.InvalidateCache(ctx, debited.employeeID, debited.categoryID, debited.year)
}

func idsToStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
