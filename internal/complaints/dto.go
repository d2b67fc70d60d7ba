package complaints

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cakeverse/cakeverse-backend/pkg/db/models"
	"github.com/cakeverse/cakeverse-backend/pkg/enums"
)

// FileInput is a customer's dispute against one of their orders.
type FileInput struct {
	OrderID  uuid.UUID
	UserID   uuid.UUID
	Reason   string
	Evidence []string
}

type ComplaintView struct {
	ID          uuid.UUID             `json:"id"`
	OrderID     uuid.UUID             `json:"order_id"`
	UserID      uuid.UUID             `json:"user_id"`
	Reason      string                `json:"reason"`
	Evidence    []string              `json:"evidence"`
	Status      enums.ComplaintStatus `json:"status"`
	AdminNote   *string               `json:"admin_note,omitempty"`
	ProcessedAt *time.Time            `json:"processed_at,omitempty"`
	ProcessedBy *uuid.UUID            `json:"processed_by,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
}

func NewComplaintView(c models.Complaint) ComplaintView {
	evidence := []string(c.Evidence)
	if evidence == nil {
		evidence = []string{}
	}
	return ComplaintView{
		ID:          c.ID,
		OrderID:     c.OrderID,
		UserID:      c.UserID,
		Reason:      c.Reason,
		Evidence:    evidence,
		Status:      c.Status,
		AdminNote:   c.AdminNote,
		ProcessedAt: c.ProcessedAt,
		ProcessedBy: c.ProcessedBy,
		CreatedAt:   c.CreatedAt,
	}
}

type ComplaintList struct {
	Complaints []ComplaintView `json:"complaints"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// ComplaintFiledEvent is emitted when an order enters review.
type ComplaintFiledEvent struct {
	ComplaintID uuid.UUID         `json:"complaint_id"`
	OrderID     uuid.UUID         `json:"order_id"`
	UserID      uuid.UUID         `json:"user_id"`
	OrderStatus enums.OrderStatus `json:"previous_order_status"`
}

// ComplaintResolvedEvent is emitted when staff approve or reject a complaint.
type ComplaintResolvedEvent struct {
	ComplaintID uuid.UUID             `json:"complaint_id"`
	OrderID     uuid.UUID             `json:"order_id"`
	Status      enums.ComplaintStatus `json:"status"`
	ProcessedBy uuid.UUID             `json:"processed_by"`
	Refunded    *decimal.Decimal      `json:"refunded,omitempty"`
}
