package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/threadmart-backend/internal/access"
	ordersvc "github.com/angelmondragon/threadmart-backend/internal/orders"
	"github.com/angelmondragon/threadmart-backend/internal/payments"
	"github.com/angelmondragon/threadmart-backend/pkg/db/models"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/threadmart-backend/pkg/errors"
)

type stubOrderService struct {
	order      *ordersvc.OrderDTO
	err        error
	lastCreate ordersvc.CreateOrderInput
	lastList   ordersvc.ListParams
	lastStatus enums.OrderStatus
	lastID     uuid.UUID
}

func (s *stubOrderService) Create(ctx context.Context, actor access.Actor, input ordersvc.CreateOrderInput) (*ordersvc.OrderDTO, error) {
	s.lastCreate = input
	return s.order, s.err
}

func (s *stubOrderService) ListMine(ctx context.Context, actor access.Actor, params ordersvc.ListParams) (*ordersvc.OrderListResult, error) {
	s.lastList = params
	return &ordersvc.OrderListResult{Orders: []ordersvc.OrderDTO{}}, s.err
}

func (s *stubOrderService) Get(ctx context.Context, actor access.Actor, id uuid.UUID) (*ordersvc.OrderDTO, error) {
	s.lastID = id
	return s.order, s.err
}

func (s *stubOrderService) AdminList(ctx context.Context, actor access.Actor, params ordersvc.ListParams) (*ordersvc.OrderListResult, error) {
	s.lastList = params
	return &ordersvc.OrderListResult{Orders: []ordersvc.OrderDTO{}}, s.err
}

func (s *stubOrderService) UpdateStatus(ctx context.Context, actor access.Actor, id uuid.UUID, status enums.OrderStatus) (*ordersvc.OrderDTO, error) {
	s.lastID = id
	s.lastStatus = status
	return s.order, s.err
}

type stubPaymentService struct {
	payment   *payments.PaymentDTO
	err       error
	lastInput payments.UpdateStatusInput
}

func (s *stubPaymentService) CreateForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, amount decimal.Decimal, method enums.PaymentMethod) (*models.Payment, error) {
	return nil, nil
}

func (s *stubPaymentService) GetForOrder(ctx context.Context, actor access.Actor, orderID uuid.UUID) (*payments.PaymentDTO, error) {
	return s.payment, s.err
}

func (s *stubPaymentService) UpdateStatus(ctx context.Context, actor access.Actor, paymentID uuid.UUID, input payments.UpdateStatusInput) (*payments.PaymentDTO, error) {
	s.lastInput = input
	return s.payment, s.err
}

func withParam(req *http.Request, key string, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func shopper(req *http.Request) *http.Request {
	return req.WithContext(access.WithActor(req.Context(), access.Actor{UserID: uuid.New(), Role: enums.UserRoleShopper}))
}

const validAddress = `{"full_name":"Ada Lovelace","line1":"1 Main St","city":"Springfield","postal_code":"12345","country":"US"}`

func TestOrderCreateMapsItems(t *testing.T) {
	variationID := uuid.New()
	order := &ordersvc.OrderDTO{ID: uuid.New(), Total: decimal.NewFromInt(2015)}
	svc := &stubOrderService{order: order}
	body := fmt.Sprintf(`{"items":[{"variation_id":"%s","quantity":2}],"shipping_address":%s,"payment_method":"card","shipping_cost":"10","tax":"5"}`, variationID, validAddress)
	req := shopper(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body)))
	resp := httptest.NewRecorder()

	OrderCreate(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	in := svc.lastCreate
	if len(in.Items) != 1 || in.Items[0].VariationID != variationID || in.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items %+v", in.Items)
	}
	if in.PaymentMethod != enums.PaymentMethodCard {
		t.Fatalf("unexpected payment method %s", in.PaymentMethod)
	}
	if !in.ShippingCost.Equal(decimal.NewFromInt(10)) || !in.Tax.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("unexpected shipping/tax %s/%s", in.ShippingCost, in.Tax)
	}
	if in.ShippingAddress.City != "Springfield" {
		t.Fatalf("address not mapped")
	}
}

func TestOrderCreateDefaultsChargesToZero(t *testing.T) {
	svc := &stubOrderService{order: &ordersvc.OrderDTO{ID: uuid.New()}}
	body := fmt.Sprintf(`{"shipping_address":%s,"payment_method":"cash_on_delivery"}`, validAddress)
	req := shopper(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body)))
	resp := httptest.NewRecorder()

	OrderCreate(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if !svc.lastCreate.ShippingCost.IsZero() || !svc.lastCreate.Tax.IsZero() {
		t.Fatalf("expected zero charges")
	}
	if len(svc.lastCreate.Items) != 0 {
		t.Fatalf("expected cart checkout with no explicit items")
	}
}

func TestOrderCreateValidatesAddress(t *testing.T) {
	svc := &stubOrderService{}
	body := `{"shipping_address":{"full_name":"x"},"payment_method":"card"}`
	req := shopper(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body)))
	resp := httptest.NewRecorder()

	OrderCreate(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := envelope.Error.Details["shipping_address.line1"]; !ok {
		t.Fatalf("expected nested field detail, got %v", envelope.Error.Details)
	}
}

func TestOrderCreateInsufficientStock(t *testing.T) {
	svc := &stubOrderService{err: pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock")}
	body := fmt.Sprintf(`{"items":[{"variation_id":"%s","quantity":99}],"shipping_address":%s,"payment_method":"card"}`, uuid.New(), validAddress)
	req := shopper(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body)))
	resp := httptest.NewRecorder()

	OrderCreate(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestOrderListMineParsesStatus(t *testing.T) {
	svc := &stubOrderService{}
	req := shopper(httptest.NewRequest(http.MethodGet, "/api/v1/orders?status=SHIPPED&page=3", nil))
	resp := httptest.NewRecorder()

	OrderListMine(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastList.Status == nil || *svc.lastList.Status != enums.OrderStatusShipped {
		t.Fatalf("status not parsed")
	}
	if svc.lastList.UserID != nil {
		t.Fatalf("user filter must be ignored for own orders")
	}
	if svc.lastList.Pagination.Page != 3 {
		t.Fatalf("unexpected page %d", svc.lastList.Pagination.Page)
	}
}

func TestAdminOrderListUserFilter(t *testing.T) {
	userID := uuid.New()
	svc := &stubOrderService{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders?user_id="+userID.String(), nil)
	resp := httptest.NewRecorder()

	AdminOrderList(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastList.UserID == nil || *svc.lastList.UserID != userID {
		t.Fatalf("user filter not parsed")
	}
}

func TestAdminOrderUpdateStatusRejectsUnknown(t *testing.T) {
	id := uuid.New()
	svc := &stubOrderService{}
	req := withParam(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"status":"lost"}`)), orderIDParam, id.String())
	resp := httptest.NewRecorder()

	AdminOrderUpdateStatus(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminOrderUpdateStatusTransitionConflict(t *testing.T) {
	id := uuid.New()
	svc := &stubOrderService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "cannot move delivered order to pending")}
	req := withParam(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"status":"pending"}`)), orderIDParam, id.String())
	resp := httptest.NewRecorder()

	AdminOrderUpdateStatus(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
	if svc.lastID != id || svc.lastStatus != enums.OrderStatusPending {
		t.Fatalf("unexpected call %s %s", svc.lastID, svc.lastStatus)
	}
}

func TestOrderPaymentNotFound(t *testing.T) {
	svc := &stubPaymentService{err: pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")}
	req := withParam(shopper(httptest.NewRequest(http.MethodGet, "/", nil)), orderIDParam, uuid.New().String())
	resp := httptest.NewRecorder()

	OrderPayment(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestAdminPaymentUpdateStatusMapsInput(t *testing.T) {
	svc := &stubPaymentService{payment: &payments.PaymentDTO{ID: uuid.New(), Status: enums.PaymentStatusCompleted}}
	req := withParam(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"status":"completed","transaction_ref":"txn_1"}`)), paymentIDParam, uuid.New().String())
	resp := httptest.NewRecorder()

	AdminPaymentUpdateStatus(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastInput.Status != enums.PaymentStatusCompleted {
		t.Fatalf("unexpected status %s", svc.lastInput.Status)
	}
	if svc.lastInput.TransactionRef == nil || *svc.lastInput.TransactionRef != "txn_1" {
		t.Fatalf("transaction ref not forwarded")
	}
}
