package complaints

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cakeverse/cakeverse-backend/internal/orders"
	"github.com/cakeverse/cakeverse-backend/pkg/auth"
	"github.com/cakeverse/cakeverse-backend/pkg/db/models"
	dbtypes "github.com/cakeverse/cakeverse-backend/pkg/db/types"
	"github.com/cakeverse/cakeverse-backend/pkg/enums"
	pkgerrors "github.com/cakeverse/cakeverse-backend/pkg/errors"
	"github.com/cakeverse/cakeverse-backend/pkg/logger"
	"github.com/cakeverse/cakeverse-backend/pkg/metrics"
	"github.com/cakeverse/cakeverse-backend/pkg/outbox"
	"github.com/cakeverse/cakeverse-backend/pkg/pagination"
)

const maxEvidence = 10

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type orderTransitioner interface {
	ApplyTransition(ctx context.Context, tx *gorm.DB, order *models.CakeOrder, change orders.StatusChange) (orders.TransitionEffects, error)
}

// Service files complaints against orders and resolves them into refunds or
// completions.
type Service interface {
	FileComplaint(ctx context.Context, input FileInput) (*models.Complaint, error)
	Approve(ctx context.Context, complaintID, staffID uuid.UUID, note string) (*models.Complaint, error)
	Reject(ctx context.Context, complaintID, staffID uuid.UUID, note string) (*models.Complaint, error)
	Get(ctx context.Context, complaintID uuid.UUID, viewer auth.Actor) (*models.Complaint, error)
	ListPending(ctx context.Context, params pagination.Params) (*ComplaintList, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ComplaintList, error)
}

type ServiceParams struct {
	Repo        Repository
	Orders      orders.Repository
	Transitions orderTransitioner
	Tx          txRunner
	Outbox      outboxPublisher
	Metrics     *metrics.LedgerMetrics
	Logger      *logger.Logger
}

type service struct {
	repo        Repository
	orders      orders.Repository
	transitions orderTransitioner
	tx          txRunner
	outbox      outboxPublisher
	metrics     *metrics.LedgerMetrics
	logg        *logger.Logger
	now         func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("complaints repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Transitions == nil {
		return nil, fmt.Errorf("order transitioner required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:        params.Repo,
		orders:      params.Orders,
		transitions: params.Transitions,
		tx:          params.Tx,
		outbox:      params.Outbox,
		metrics:     params.Metrics,
		logg:        params.Logger,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

// checkEligibility decides whether order may enter review at now. Shipped
// orders always qualify; ordered and prepared ones only once their delivery
// time has passed.
func checkEligibility(order *models.CakeOrder, now time.Time) error {
	switch order.Status {
	case enums.OrderStatusShipped:
		return nil
	case enums.OrderStatusOrdered, enums.OrderStatusPrepared:
		if order.DeliveryTime == nil || !order.DeliveryTime.Before(now) {
			return pkgerrors.New(pkgerrors.CodeTooEarly, "order has not reached its delivery time").
				WithDetails(map[string]any{"delivery_time": order.DeliveryTime})
		}
		return nil
	default:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not eligible for complaint").
			WithDetails(map[string]any{"status": order.Status})
	}
}

func (s *service) FileComplaint(ctx context.Context, input FileInput) (*models.Complaint, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason is required")
	}
	evidence := dbtypes.StringList{}
	for _, item := range input.Evidence {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			evidence = append(evidence, trimmed)
		}
	}
	if len(evidence) > maxEvidence {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d evidence items allowed", maxEvidence))
	}

	order, err := s.findOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != input.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	if err := checkEligibility(order, s.now()); err != nil {
		return nil, err
	}

	var complaint *models.Complaint
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		locked, err := s.lockOrder(ctx, tx, input.OrderID)
		if err != nil {
			return err
		}
		now := s.now()
		if err := checkEligibility(locked, now); err != nil {
			return err
		}
		previous := locked.Status

		if _, err := s.transitions.ApplyTransition(ctx, tx, locked, orders.StatusChange{
			Target:  enums.OrderStatusComplaining,
			ActorID: input.UserID,
			Now:     now,
			Source:  orders.SourceComplaint,
		}); err != nil {
			return err
		}

		complaint = &models.Complaint{
			OrderID:  locked.ID,
			UserID:   input.UserID,
			Reason:   reason,
			Evidence: evidence,
			Status:   enums.ComplaintStatusPending,
		}
		if err := s.repo.WithTx(tx).Create(ctx, complaint); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create complaint")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventComplaintFiled,
			AggregateType: enums.AggregateComplaint,
			AggregateID:   complaint.ID,
			Actor:         &outbox.ActorRef{UserID: input.UserID},
			OccurredAt:    now,
			Data: ComplaintFiledEvent{
				ComplaintID: complaint.ID,
				OrderID:     locked.ID,
				UserID:      input.UserID,
				OrderStatus: previous,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, input.OrderID.String()), map[string]any{
		"complaint_id": complaint.ID.String(),
	})
	s.logg.Info(logCtx, "complaint filed")
	return complaint, nil
}

func (s *service) Approve(ctx context.Context, complaintID, staffID uuid.UUID, note string) (*models.Complaint, error) {
	return s.resolve(ctx, complaintID, staffID, note, enums.ComplaintStatusApproved)
}

func (s *service) Reject(ctx context.Context, complaintID, staffID uuid.UUID, note string) (*models.Complaint, error) {
	return s.resolve(ctx, complaintID, staffID, note, enums.ComplaintStatusRejected)
}

func (s *service) resolve(ctx context.Context, complaintID, staffID uuid.UUID, note string, outcome enums.ComplaintStatus) (*models.Complaint, error) {
	if complaintID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "complaint id required")
	}
	if staffID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "staff identity missing")
	}
	note = strings.TrimSpace(note)

	var (
		complaint *models.Complaint
		effects   orders.TransitionEffects
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := repo.LockByID(ctx, complaintID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "complaint not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock complaint")
		}
		if locked.Status != enums.ComplaintStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "complaint already processed").
				WithDetails(map[string]any{"status": locked.Status})
		}

		order, err := s.lockOrder(ctx, tx, locked.OrderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusComplaining {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not under review").
				WithDetails(map[string]any{"status": order.Status})
		}

		now := s.now()
		change := orders.StatusChange{
			Target:  enums.OrderStatusCompleted,
			ActorID: staffID,
			Now:     now,
			Source:  orders.SourceComplaint,
		}
		if outcome == enums.ComplaintStatusApproved {
			change.Target = enums.OrderStatusCancelled
			change.RequirePayment = true
			change.RefundNote = fmt.Sprintf("refunded: complaint %s approved", locked.ID)
		}
		effects, err = s.transitions.ApplyTransition(ctx, tx, order, change)
		if err != nil {
			return err
		}

		updates := map[string]any{
			"processed_at": now,
			"processed_by": staffID,
			"updated_at":   now,
		}
		if note != "" {
			updates["admin_note"] = note
		}
		affected, err := repo.UpdateStatus(ctx, locked.ID, enums.ComplaintStatusPending, outcome, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update complaint")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "complaint already processed")
		}

		locked.Status = outcome
		locked.ProcessedAt = &now
		processor := staffID
		locked.ProcessedBy = &processor
		if note != "" {
			locked.AdminNote = &note
		}
		locked.UpdatedAt = now
		complaint = locked

		event := ComplaintResolvedEvent{
			ComplaintID: locked.ID,
			OrderID:     order.ID,
			Status:      outcome,
			ProcessedBy: staffID,
		}
		if effects.Refunded.IsPositive() {
			refunded := effects.Refunded
			event.Refunded = &refunded
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventComplaintResolved,
			AggregateType: enums.AggregateComplaint,
			AggregateID:   locked.ID,
			Actor:         &outbox.ActorRef{UserID: staffID},
			OccurredAt:    now,
			Data:          event,
		})
	})
	if err != nil {
		return nil, err
	}

	if effects.Refunded.IsPositive() {
		s.metrics.ObserveMovement(string(enums.TransactionTypeRefund), metrics.DirectionCredit, effects.Refunded)
	}
	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, complaint.OrderID.String()), map[string]any{
		"complaint_id": complaint.ID.String(),
		"status":       string(outcome),
		"refunded":     effects.Refunded.StringFixed(2),
	})
	s.logg.Info(logCtx, "complaint resolved")
	return complaint, nil
}

func (s *service) Get(ctx context.Context, complaintID uuid.UUID, viewer auth.Actor) (*models.Complaint, error) {
	if complaintID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "complaint id required")
	}
	complaint, err := s.repo.FindByID(ctx, complaintID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "complaint not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load complaint")
	}
	if complaint.UserID != viewer.UserID && !viewer.Can(enums.CapabilityResolveComplaints) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "complaint not visible to user")
	}
	return complaint, nil
}

func (s *service) ListPending(ctx context.Context, params pagination.Params) (*ComplaintList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListByStatus(ctx, enums.ComplaintStatusPending, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending complaints")
	}
	return newComplaintList(rows, next), nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ComplaintList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListByUser(ctx, userID, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list complaints")
	}
	return newComplaintList(rows, next), nil
}

func (s *service) findOrder(ctx context.Context, orderID uuid.UUID) (*models.CakeOrder, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) lockOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.CakeOrder, error) {
	order, err := s.orders.WithTx(tx).LockByID(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
	}
	return order, nil
}

func newComplaintList(rows []models.Complaint, next *pagination.Cursor) *ComplaintList {
	list := &ComplaintList{Complaints: make([]ComplaintView, 0, len(rows))}
	for _, row := range rows {
		list.Complaints = append(list.Complaints, NewComplaintView(row))
	}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list
}
