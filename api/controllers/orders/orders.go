package orders

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cakeverse/cakeverse-backend/api/middleware"
	"github.com/cakeverse/cakeverse-backend/api/responses"
	"github.com/cakeverse/cakeverse-backend/api/validators"
	"github.com/cakeverse/cakeverse-backend/internal/complaints"
	"github.com/cakeverse/cakeverse-backend/internal/ledger"
	internalorders "github.com/cakeverse/cakeverse-backend/internal/orders"
	pkgAuth "github.com/cakeverse/cakeverse-backend/pkg/auth"
	"github.com/cakeverse/cakeverse-backend/pkg/enums"
	pkgerrors "github.com/cakeverse/cakeverse-backend/pkg/errors"
	"github.com/cakeverse/cakeverse-backend/pkg/logger"
)

type createOrderLine struct {
	IngredientID string `json:"ingredient_id" validate:"required,uuid"`
	Quantity     int    `json:"quantity" validate:"required,min=1,max=1000"`
}

type createOrderRequest struct {
	ShopID       string            `json:"shop_id" validate:"required,uuid"`
	ListingID    *string           `json:"listing_id" validate:"omitempty,uuid"`
	BasePrice    string            `json:"base_price"`
	Size         string            `json:"size" validate:"max=32"`
	Instructions string            `json:"special_instructions" validate:"max=2000"`
	DeliveryTime *time.Time        `json:"delivery_time"`
	Lines        []createOrderLine `json:"lines" validate:"max=50,dive"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

type fileComplaintRequest struct {
	Reason   string   `json:"reason" validate:"required,min=3,max=2000"`
	Evidence []string `json:"evidence" validate:"max=10,dive,url"`
}

func requireActor(r *http.Request) (pkgAuth.Actor, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok || actor.UserID == uuid.Nil {
		return pkgAuth.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return actor, nil
}

// Create prices and stores a new cake order for the caller.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body createOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		input, err := body.toInput(actor.UserID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.CreateOrder(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, internalorders.NewOrderView(*order))
	}
}

func (b createOrderRequest) toInput(customerID uuid.UUID) (internalorders.CreateOrderInput, error) {
	input := internalorders.CreateOrderInput{
		CustomerID:   customerID,
		ShopID:       uuid.MustParse(b.ShopID),
		BasePrice:    decimal.Zero,
		Size:         validators.CleanText(b.Size, 32),
		Instructions: validators.CleanText(b.Instructions, 2000),
		DeliveryTime: b.DeliveryTime,
	}
	if b.ListingID != nil {
		listingID := uuid.MustParse(*b.ListingID)
		input.ListingID = &listingID
	}
	if b.BasePrice != "" {
		price, err := decimal.NewFromString(b.BasePrice)
		if err != nil || price.IsNegative() {
			return input, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
				WithDetails(map[string]string{"base_price": "must be a non-negative decimal amount"})
		}
		input.BasePrice = price
	}
	for _, line := range b.Lines {
		input.Lines = append(input.Lines, internalorders.LineInput{
			IngredientID: uuid.MustParse(line.IngredientID),
			Quantity:     line.Quantity,
		})
	}
	return input, nil
}

func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		list, err := svc.ListForCustomer(ctx, actor.UserID, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Detail returns an order visible to its customer or the owning shop.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.Get(ctx, orderID, actor)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.NewOrderView(*order))
	}
}

// Pay debits the order total from the customer's wallet.
func Pay(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		txn, err := svc.PayOrder(ctx, orderID, actor)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, ledger.NewTransactionView(*txn))
	}
}

// Cancel cancels a pending order and refunds its payment.
func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return moveOrder(svc, logg, func(*http.Request) (enums.OrderStatus, error) {
		return enums.OrderStatusCancelled, nil
	})
}

// Complete lets the customer confirm a shipped order before the scheduler does.
func Complete(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return moveOrder(svc, logg, func(*http.Request) (enums.OrderStatus, error) {
		return enums.OrderStatusCompleted, nil
	})
}

// ShopStatus moves an order through the shop's fulfilment states.
func ShopStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return moveOrder(svc, logg, func(r *http.Request) (enums.OrderStatus, error) {
		var body statusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return "", err
		}
		status, err := enums.ParseOrderStatus(body.Status)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status")
		}
		return status, nil
	})
}

func moveOrder(svc internalorders.Service, logg *logger.Logger, target func(*http.Request) (enums.OrderStatus, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		status, err := target(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.Transition(ctx, internalorders.TransitionInput{OrderID: orderID, Target: status, Actor: actor})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.NewOrderView(*order))
	}
}

// ShopList pages through a shop's orders for its owner.
func ShopList(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		shopID, err := validators.ParseUUIDParam(r, "shopId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		list, err := svc.ListForShop(ctx, actor, shopID, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// FileComplaint disputes a delivered order and puts it under review.
func FileComplaint(svc complaints.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "complaint service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body fileComplaintRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		complaint, err := svc.FileComplaint(ctx, complaints.FileInput{
			OrderID:  orderID,
			UserID:   actor.UserID,
			Reason:   validators.CleanText(body.Reason, 2000),
			Evidence: body.Evidence,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, complaints.NewComplaintView(*complaint))
	}
}
