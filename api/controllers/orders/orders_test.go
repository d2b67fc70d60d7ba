package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/cakeverse/cakeverse-backend/api/middleware"
	"github.com/cakeverse/cakeverse-backend/internal/complaints"
	internalorders "github.com/cakeverse/cakeverse-backend/internal/orders"
	pkgAuth "github.com/cakeverse/cakeverse-backend/pkg/auth"
	"github.com/cakeverse/cakeverse-backend/pkg/db/models"
	"github.com/cakeverse/cakeverse-backend/pkg/enums"
	pkgerrors "github.com/cakeverse/cakeverse-backend/pkg/errors"
)

type stubOrderService struct {
	internalorders.Service
	create     func(ctx context.Context, input internalorders.CreateOrderInput) (*models.CakeOrder, error)
	pay        func(ctx context.Context, orderID uuid.UUID, actor pkgAuth.Actor) (*models.Transaction, error)
	transition func(ctx context.Context, input internalorders.TransitionInput) (*models.CakeOrder, error)
}

func (s *stubOrderService) CreateOrder(ctx context.Context, input internalorders.CreateOrderInput) (*models.CakeOrder, error) {
	return s.create(ctx, input)
}

func (s *stubOrderService) PayOrder(ctx context.Context, orderID uuid.UUID, actor pkgAuth.Actor) (*models.Transaction, error) {
	return s.pay(ctx, orderID, actor)
}

func (s *stubOrderService) Transition(ctx context.Context, input internalorders.TransitionInput) (*models.CakeOrder, error) {
	return s.transition(ctx, input)
}

type stubComplaintService struct {
	complaints.Service
	file func(ctx context.Context, input complaints.FileInput) (*models.Complaint, error)
}

func (s *stubComplaintService) FileComplaint(ctx context.Context, input complaints.FileInput) (*models.Complaint, error) {
	return s.file(ctx, input)
}

func request(method, target, body string, actor pkgAuth.Actor, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := middleware.WithActor(req.Context(), actor)
	rc := chi.NewRouteContext()
	for k, v := range params {
		rc.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(ctx, chi.RouteCtxKey, rc))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestCreateBuildsOrderInput(t *testing.T) {
	actor := pkgAuth.Actor{UserID: uuid.New(), Role: enums.RoleCustomer}
	shopID := uuid.New()
	ingredientA := uuid.New()
	ingredientB := uuid.New()

	var got internalorders.CreateOrderInput
	svc := &stubOrderService{create: func(_ context.Context, input internalorders.CreateOrderInput) (*models.CakeOrder, error) {
		got = input
		return &models.CakeOrder{
			ID:              uuid.New(),
			CustomerID:      input.CustomerID,
			ShopID:          input.ShopID,
			BasePrice:       input.BasePrice,
			IngredientTotal: decimal.NewFromInt(75),
			TotalPrice:      input.BasePrice.Add(decimal.NewFromInt(75)),
			Status:          enums.OrderStatusPending,
		}, nil
	}}

	body := `{"shop_id":"` + shopID.String() + `","base_price":"200","size":"M","lines":[` +
		`{"ingredient_id":"` + ingredientA.String() + `","quantity":2},` +
		`{"ingredient_id":"` + ingredientB.String() + `","quantity":1}]}`
	rec := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(rec, request(http.MethodPost, "/api/v1/orders", body, actor, nil))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, actor.UserID, got.CustomerID)
	require.Equal(t, shopID, got.ShopID)
	require.True(t, got.BasePrice.Equal(decimal.NewFromInt(200)))
	require.Equal(t, []internalorders.LineInput{
		{IngredientID: ingredientA, Quantity: 2},
		{IngredientID: ingredientB, Quantity: 1},
	}, got.Lines)

	var envelope struct {
		Data internalorders.OrderView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, "275", envelope.Data.TotalPrice.String())
}

func TestCreateRejectsInvalidLines(t *testing.T) {
	actor := pkgAuth.Actor{UserID: uuid.New(), Role: enums.RoleCustomer}
	svc := &stubOrderService{}
	bodies := []string{
		`{"shop_id":"not-a-uuid"}`,
		`{"shop_id":"` + uuid.NewString() + `","lines":[{"ingredient_id":"` + uuid.NewString() + `","quantity":0}]}`,
		`{"shop_id":"` + uuid.NewString() + `","base_price":"-1"}`,
		`{"shop_id":"` + uuid.NewString() + `","unknown":true}`,
	}
	for _, body := range bodies {
		rec := httptest.NewRecorder()
		Create(svc, nil).ServeHTTP(rec, request(http.MethodPost, "/api/v1/orders", body, actor, nil))
		require.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestPayReturnsPendingTransaction(t *testing.T) {
	actor := pkgAuth.Actor{UserID: uuid.New(), Role: enums.RoleCustomer}
	orderID := uuid.New()
	svc := &stubOrderService{pay: func(_ context.Context, id uuid.UUID, got pkgAuth.Actor) (*models.Transaction, error) {
		require.Equal(t, orderID, id)
		require.Equal(t, actor, got)
		return &models.Transaction{ID: uuid.New(), OrderID: &id, Amount: decimal.NewFromInt(275), Type: enums.TransactionTypeOrderPayment, Status: enums.TransactionStatusPending}, nil
	}}

	rec := httptest.NewRecorder()
	Pay(svc, nil).ServeHTTP(rec, request(http.MethodPost, "/", "", actor, map[string]string{"orderId": orderID.String()}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestShopStatusParsesTarget(t *testing.T) {
	owner := pkgAuth.Actor{UserID: uuid.New(), Role: enums.RoleShopOwner}
	orderID := uuid.New()
	var got internalorders.TransitionInput
	svc := &stubOrderService{transition: func(_ context.Context, input internalorders.TransitionInput) (*models.CakeOrder, error) {
		got = input
		return &models.CakeOrder{ID: input.OrderID, Status: input.Target}, nil
	}}

	rec := httptest.NewRecorder()
	ShopStatus(svc, nil).ServeHTTP(rec, request(http.MethodPost, "/", `{"status":"shipped"}`, owner, map[string]string{"orderId": orderID.String()}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, internalorders.TransitionInput{OrderID: orderID, Target: enums.OrderStatusShipped, Actor: owner}, got)

	rec = httptest.NewRecorder()
	ShopStatus(svc, nil).ServeHTTP(rec, request(http.MethodPost, "/", `{"status":"teleported"}`, owner, map[string]string{"orderId": orderID.String()}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelMapsInvalidTransition(t *testing.T) {
	actor := pkgAuth.Actor{UserID: uuid.New(), Role: enums.RoleCustomer}
	svc := &stubOrderService{transition: func(_ context.Context, input internalorders.TransitionInput) (*models.CakeOrder, error) {
		require.Equal(t, enums.OrderStatusCancelled, input.Target)
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "invalid order transition")
	}}

	rec := httptest.NewRecorder()
	Cancel(svc, nil).ServeHTTP(rec, request(http.MethodPost, "/", "", actor, map[string]string{"orderId": uuid.NewString()}))
	require.Equal(t, string(pkgerrors.CodeStateConflict), errorCode(t, rec))
}

func TestFileComplaintSurfacesTooEarly(t *testing.T) {
	actor := pkgAuth.Actor{UserID: uuid.New(), Role: enums.RoleCustomer}
	orderID := uuid.New()
	svc := &stubComplaintService{file: func(_ context.Context, input complaints.FileInput) (*models.Complaint, error) {
		require.Equal(t, orderID, input.OrderID)
		require.Equal(t, actor.UserID, input.UserID)
		require.Equal(t, []string{"https://img.example/1.jpg"}, input.Evidence)
		return nil, pkgerrors.New(pkgerrors.CodeTooEarly, "delivery time has not passed")
	}}

	body := `{"reason":"cake melted","evidence":["https://img.example/1.jpg"]}`
	rec := httptest.NewRecorder()
	FileComplaint(svc, nil).ServeHTTP(rec, request(http.MethodPost, "/", body, actor, map[string]string{"orderId": orderID.String()}))
	require.Equal(t, string(pkgerrors.CodeTooEarly), errorCode(t, rec))
}
