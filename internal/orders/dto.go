package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cakeverse/cakeverse-backend/pkg/auth"
	"github.com/cakeverse/cakeverse-backend/pkg/db/models"
	"github.com/cakeverse/cakeverse-backend/pkg/enums"
)

// CreateOrderInput carries a customer's cake order request.
type CreateOrderInput struct {
	CustomerID   uuid.UUID
	ShopID       uuid.UUID
	ListingID    *uuid.UUID
	BasePrice    decimal.Decimal
	Size         string
	Instructions string
	DeliveryTime *time.Time
	Lines        []LineInput
}

// LineInput is one ingredient and the quantity requested.
type LineInput struct {
	IngredientID uuid.UUID
	Quantity     int
}

// TransitionInput asks for an order to move to Target on behalf of Actor.
type TransitionInput struct {
	OrderID uuid.UUID
	Target  enums.OrderStatus
	Actor   auth.Actor
}

// Event sources recorded on order_status_changed.
const (
	SourceManual    = "manual"
	SourceScheduler = "scheduler"
	SourceComplaint = "complaint"
)

// StatusChange describes a move applied inside an existing atomic unit.
type StatusChange struct {
	Target  enums.OrderStatus
	ActorID uuid.UUID
	Now     time.Time
	Source  string
	// RefundNote replaces the payment description when a pending payment is refunded.
	RefundNote string
	// RequirePayment fails the move with NOT_FOUND when no pending payment exists.
	RequirePayment bool
}

// TransitionEffects reports the money the move touched.
type TransitionEffects struct {
	Refunded decimal.Decimal
	Settled  int64
}

// PromotionResult counts rows moved by a scheduler pass.
type PromotionResult struct {
	Promoted int64 `json:"promoted"`
	Settled  int64 `json:"settled"`
}

// OrderList wraps a page of orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderView `json:"orders"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// OrderView is the API representation of a cake order.
type OrderView struct {
	ID                  uuid.UUID         `json:"id"`
	CustomerID          uuid.UUID         `json:"customer_id"`
	ShopID              uuid.UUID         `json:"shop_id"`
	ListingID           *uuid.UUID        `json:"listing_id,omitempty"`
	BasePrice           decimal.Decimal   `json:"base_price"`
	IngredientTotal     decimal.Decimal   `json:"ingredient_total"`
	TotalPrice          decimal.Decimal   `json:"total_price"`
	Size                string            `json:"size,omitempty"`
	Status              enums.OrderStatus `json:"status"`
	SpecialInstructions string            `json:"special_instructions,omitempty"`
	DeliveryTime        *time.Time        `json:"delivery_time,omitempty"`
	ShippedAt           *time.Time        `json:"shipped_at,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
	Lines               []LineView        `json:"lines,omitempty"`
}

// LineView is one priced ingredient line.
type LineView struct {
	IngredientID uuid.UUID       `json:"ingredient_id"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	LineTotal    decimal.Decimal `json:"line_total"`
}

// NewOrderView maps the stored order to its API shape.
func NewOrderView(order models.CakeOrder) OrderView {
	view := OrderView{
		ID:                  order.ID,
		CustomerID:          order.CustomerID,
		ShopID:              order.ShopID,
		ListingID:           order.ListingID,
		BasePrice:           order.BasePrice,
		IngredientTotal:     order.IngredientTotal,
		TotalPrice:          order.TotalPrice,
		Size:                order.Size,
		Status:              order.Status,
		SpecialInstructions: order.SpecialInstructions,
		DeliveryTime:        order.DeliveryTime,
		ShippedAt:           order.ShippedAt,
		CreatedAt:           order.CreatedAt,
		UpdatedAt:           order.UpdatedAt,
	}
	for _, detail := range order.Details {
		view.Lines = append(view.Lines, LineView{
			IngredientID: detail.IngredientID,
			Quantity:     detail.Quantity,
			UnitPrice:    detail.UnitPrice,
			LineTotal:    detail.LineTotal,
		})
	}
	return view
}

// OrderCreatedEvent is emitted once the order and its lines are stored.
type OrderCreatedEvent struct {
	OrderID    uuid.UUID       `json:"order_id"`
	CustomerID uuid.UUID       `json:"customer_id"`
	ShopID     uuid.UUID       `json:"shop_id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	LineCount  int             `json:"line_count"`
}

// OrderPaidEvent is emitted when the wallet is debited for an order.
type OrderPaidEvent struct {
	OrderID       uuid.UUID       `json:"order_id"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
}

// OrderStatusChangedEvent is emitted for every status move.
type OrderStatusChangedEvent struct {
	OrderID  uuid.UUID         `json:"order_id"`
	ShopID   uuid.UUID         `json:"shop_id"`
	From     enums.OrderStatus `json:"from"`
	To       enums.OrderStatus `json:"to"`
	Refunded *decimal.Decimal  `json:"refunded,omitempty"`
	Source   string            `json:"source"`
}

// AutoPromoteResult reports both scheduler passes.
type AutoPromoteResult struct {
	Ordered   PromotionResult `json:"ordered"`
	Completed PromotionResult `json:"completed"`
}
