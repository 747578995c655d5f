package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vibast-solutions/ms-go-transactions/app/bi"
	"github.com/vibast-solutions/ms-go-transactions/app/biller"
	"github.com/vibast-solutions/ms-go-transactions/app/cache"
	"github.com/vibast-solutions/ms-go-transactions/app/entity"
	"github.com/vibast-solutions/ms-go-transactions/app/repository"
	"github.com/vibast-solutions/ms-go-transactions/app/service"
	"github.com/vibast-solutions/ms-go-transactions/app/types"
	"github.com/vibast-solutions/ms-go-transactions/config"
)

type controllerTransactionRepo struct {
	transactions map[string]*entity.Transaction
}

func newControllerTransactionRepo() *controllerTransactionRepo {
	return &controllerTransactionRepo{transactions: map[string]*entity.Transaction{}}
}

func (r *controllerTransactionRepo) Add(_ context.Context, transaction *entity.Transaction) error {
	if _, ok := r.transactions[transaction.ID()]; ok {
		return repository.ErrTransactionAlreadyExists
	}
	r.transactions[transaction.ID()] = transaction
	return nil
}

func (r *controllerTransactionRepo) Update(_ context.Context, transaction *entity.Transaction) error {
	if _, ok := r.transactions[transaction.ID()]; !ok {
		return repository.ErrTransactionNotFound
	}
	r.transactions[transaction.ID()] = transaction
	return nil
}

func (r *controllerTransactionRepo) FindByID(_ context.Context, id string) (*entity.Transaction, error) {
	return r.transactions[id], nil
}

func (r *controllerTransactionRepo) ListStalePending(_ context.Context, _ time.Time, _ int32) ([]*entity.Transaction, error) {
	return nil, nil
}

type controllerExtraDataRepo struct{}

func (controllerExtraDataRepo) Retrieve(_ context.Context, _ repository.MappingCriteria) (*repository.DeclinedExtraData, error) {
	return nil, nil
}

type controllerCvvCache struct{}

func (controllerCvvCache) Store(_ context.Context, _, _, _ string) error { return nil }
func (controllerCvvCache) Take(_ context.Context, _, _ string) (string, error) {
	return "", cache.ErrCvvNotFound
}

type controllerBiLogger struct{}

func (controllerBiLogger) Write(_ bi.Event) {}

type controllerBiller struct {
	response *biller.Response
	postback *biller.Response
}

func (b *controllerBiller) Name() string { return biller.NameRocketgate }

func (b *controllerBiller) charge() (*biller.Response, error) {
	if b.response == nil {
		return nil, biller.ErrOperationNotSupported
	}
	return b.response, nil
}

func (b *controllerBiller) ChargeNewCreditCard(_ context.Context, _ *biller.ChargeInput) (*biller.Response, error) {
	return b.charge()
}

func (b *controllerBiller) ChargeExistingCreditCard(_ context.Context, _ *biller.ChargeInput) (*biller.Response, error) {
	return b.charge()
}

func (b *controllerBiller) ChargeOtherPaymentType(_ context.Context, _ *biller.ChargeInput) (*biller.Response, error) {
	return b.charge()
}

func (b *controllerBiller) StartRebill(_ context.Context, _ *biller.RebillOperationInput) (*biller.Response, error) {
	return b.charge()
}

func (b *controllerBiller) UpdateRebill(_ context.Context, _ *biller.RebillOperationInput) (*biller.Response, error) {
	return b.charge()
}

func (b *controllerBiller) SuspendRebill(_ context.Context, _ *biller.RebillOperationInput) (*biller.Response, error) {
	return b.charge()
}

func (b *controllerBiller) CancelRebill(_ context.Context, _ *biller.RebillOperationInput) (*biller.Response, error) {
	return b.charge()
}

func (b *controllerBiller) CompleteThreeD(_ context.Context, _ *biller.CompleteThreeDInput) (*biller.Response, error) {
	return b.charge()
}

func (b *controllerBiller) CardUpload(_ context.Context, _ *biller.ChargeInput) (*biller.Response, error) {
	return b.charge()
}

func (b *controllerBiller) PerformLookup(_ context.Context, _ *biller.LookupInput) (*biller.Response, error) {
	return b.charge()
}

func (b *controllerBiller) TranslatePostback(_ context.Context, input *biller.PostbackInput) (*biller.Response, error) {
	if b.postback == nil {
		return nil, biller.ErrOperationNotSupported
	}
	response := *b.postback
	response.Payload = input.Payload
	return &response, nil
}

func (b *controllerBiller) RetrieveQrCode(_ context.Context, _ *biller.QrCodeInput) (*biller.QrCode, error) {
	return nil, biller.ErrOperationNotSupported
}

type controllerFixture struct {
	controller *TransactionController
	repo       *controllerTransactionRepo
	biller     *controllerBiller
}

func newControllerFixture() *controllerFixture {
	repo := newControllerTransactionRepo()
	stubBiller := &controllerBiller{}
	transactionService := service.NewTransactionService(
		repo,
		controllerExtraDataRepo{},
		biller.NewRegistry(stubBiller),
		controllerCvvCache{},
		controllerBiLogger{},
		config.TransactionsConfig{},
	)
	healthChecker := service.NewHealthChecker(nil, map[string][]string{biller.NameRocketgate: {"rocketgate.charge"}})
	return &controllerFixture{
		controller: NewTransactionController(transactionService, healthChecker),
		repo:       repo,
		biller:     stubBiller,
	}
}

func performRequest(t *testing.T, handler echo.HandlerFunc, method, target, body string, params map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	names := make([]string, 0, len(params))
	values := make([]string, 0, len(params))
	for key, value := range params {
		names = append(names, key)
		values = append(values, value)
	}
	ctx.SetParamNames(names...)
	ctx.SetParamValues(values...)

	if err := handler(ctx); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func seedApprovedSale(t *testing.T, fx *controllerFixture) *entity.Transaction {
	t.Helper()
	fx.biller.response = &biller.Response{
		Result:     biller.ResultApproved,
		ReasonCode: "0",
		Payload:    `{"reasonCode":"0","guidNo":"g-1"}`,
	}
	rec := performRequest(t, fx.controller.SaleNewCreditCard, http.MethodPost, "/transactions/sale", `{
		"site_id": "site-1",
		"biller_name": "rocketgate",
		"amount": 19.99,
		"currency": "USD",
		"card_number": "4111111111111111",
		"cvv": "123",
		"expiration_month": 12,
		"expiration_year": 2030
	}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("seeding sale failed: status=%d body=%s", rec.Code, rec.Body.String())
	}

	var envelope types.TransactionEnvelopeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decoding envelope failed: %v", err)
	}
	transaction, ok := fx.repo.transactions[envelope.Transaction.Id]
	if !ok {
		t.Fatal("expected transaction persisted")
	}
	return transaction
}

func TestHealthEndpoint(t *testing.T) {
	fx := newControllerFixture()
	rec := performRequest(t, fx.controller.Health, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	var response types.HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("decoding response failed: %v", err)
	}
	if response.Status != "ok" {
		t.Fatalf("unexpected health status: %s", response.Status)
	}
}

func TestSaleNewCreditCardEndpoint(t *testing.T) {
	fx := newControllerFixture()
	transaction := seedApprovedSale(t, fx)

	if !transaction.Status().Approved() {
		t.Fatalf("expected approved, got %s", transaction.Status())
	}
}

func TestSaleNewCreditCardEndpointRejectsInvalidBody(t *testing.T) {
	fx := newControllerFixture()

	rec := performRequest(t, fx.controller.SaleNewCreditCard, http.MethodPost, "/transactions/sale", `{"site_id":"site-1"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	var response types.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("decoding response failed: %v", err)
	}
	if response.Error == "" {
		t.Fatal("expected validation message")
	}
}

func TestGetTransactionEndpoint(t *testing.T) {
	fx := newControllerFixture()
	transaction := seedApprovedSale(t, fx)

	rec := performRequest(t, fx.controller.GetTransaction, http.MethodGet, "/transactions/"+transaction.ID(), "", map[string]string{"id": transaction.ID()})
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}

	var envelope types.TransactionEnvelopeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decoding envelope failed: %v", err)
	}
	if envelope.Transaction.Id != transaction.ID() || envelope.Transaction.Status != "approved" {
		t.Fatalf("unexpected payload: %+v", envelope.Transaction)
	}
	if envelope.Transaction.CardNumberMasked != "411111******1111" {
		t.Fatalf("unexpected mask: %s", envelope.Transaction.CardNumberMasked)
	}
}

func TestGetTransactionEndpointNotFound(t *testing.T) {
	fx := newControllerFixture()
	rec := performRequest(t, fx.controller.GetTransaction, http.MethodGet, "/transactions/missing", "", map[string]string{"id": "missing"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestAbortEndpointConflictOnSettled(t *testing.T) {
	fx := newControllerFixture()
	transaction := seedApprovedSale(t, fx)

	rec := performRequest(t, fx.controller.AbortTransaction, http.MethodPost, "/transactions/"+transaction.ID()+"/abort", "", map[string]string{"id": transaction.ID()})
	if rec.Code != http.StatusConflict {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestAddBillerInteractionEndpointDuplicate(t *testing.T) {
	fx := newControllerFixture()
	transaction := seedApprovedSale(t, fx)
	fx.biller.postback = &biller.Response{Result: biller.ResultApproved, ReasonCode: "0"}

	rec := performRequest(t, fx.controller.AddBillerInteraction, http.MethodPost,
		"/postbacks/rocketgate/"+transaction.ID(),
		`{"reasonCode":"0","amount":19.99}`,
		map[string]string{"biller": "rocketgate", "id": transaction.ID()})
	if rec.Code != http.StatusConflict {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestAddBillerInteractionEndpointCrossSale(t *testing.T) {
	fx := newControllerFixture()
	transaction := seedApprovedSale(t, fx)
	fx.biller.postback = &biller.Response{Result: biller.ResultApproved, ReasonCode: "0"}

	rec := performRequest(t, fx.controller.AddBillerInteraction, http.MethodPost,
		"/postbacks/rocketgate/"+transaction.ID(),
		`{"reasonCode":"0","amount":4.99}`,
		map[string]string{"biller": "rocketgate", "id": transaction.ID()})
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}

	var envelope types.TransactionEnvelopeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decoding envelope failed: %v", err)
	}
	if envelope.Transaction.Id == transaction.ID() {
		t.Fatal("expected a sibling transaction in the response")
	}
	if envelope.Transaction.Amount != 4.99 {
		t.Fatalf("unexpected sibling amount: %v", envelope.Transaction.Amount)
	}
}

func TestCompleteThreeDEndpointInvalidStatus(t *testing.T) {
	fx := newControllerFixture()
	transaction := seedApprovedSale(t, fx)

	rec := performRequest(t, fx.controller.CompleteThreeD, http.MethodPost,
		"/transactions/"+transaction.ID()+"/complete-threed",
		`{"pares":"p-1","md":"m-1"}`,
		map[string]string{"id": transaction.ID()})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestCancelRebillEndpointRequiresApprovedPrevious(t *testing.T) {
	fx := newControllerFixture()

	rec := performRequest(t, fx.controller.CancelRebill, http.MethodPost,
		"/transactions/missing/rebill/cancel",
		`{"biller_name":"rocketgate"}`,
		map[string]string{"id": "missing"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
}
