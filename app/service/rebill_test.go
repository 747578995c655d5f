package service

import (
	"context"
	"errors"
	"testing"

	"github.com/vibast-solutions/ms-go-transactions/app/biller"
	"github.com/vibast-solutions/ms-go-transactions/app/entity"
	"github.com/vibast-solutions/ms-go-transactions/app/types"
	"github.com/vibast-solutions/ms-go-transactions/config"
)

func saleRequestWithRebill() *types.NewSaleRequest {
	req := newSaleRequestFixture()
	req.Rebill = &types.RebillRequest{Amount: 9.99, FrequencyDays: 30, StartDays: 7}
	return req
}

func TestCancelRebill(t *testing.T) {
	fx := newServiceFixture(&fakeBiller{}, config.TransactionsConfig{})
	previous := createApprovedSale(t, fx, saleRequestWithRebill())

	fx.biller.cancelRebillFn = func(_ context.Context, input *biller.RebillOperationInput) (*biller.Response, error) {
		if input.ReferenceFields["guidNo"] != "g-1" {
			t.Fatalf("expected reference fields from previous transaction, got %v", input.ReferenceFields)
		}
		if input.FrequencyDays != 30 {
			t.Fatalf("unexpected frequency: %d", input.FrequencyDays)
		}
		return approvedResponse(`{"reasonCode":"0"}`), nil
	}

	result, err := fx.service.CancelRebill(context.Background(), &types.CancelRebillRequest{
		TransactionId: previous.ID(),
		BillerName:    "rocketgate",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	transaction := result.Transaction
	if transaction.Kind() != entity.TransactionKindRebillUpdate {
		t.Fatalf("unexpected kind: %s", transaction.Kind())
	}
	if transaction.PreviousTransactionID() != previous.ID() {
		t.Fatal("expected link to the original sale")
	}
	if !transaction.Status().Approved() {
		t.Fatalf("expected approved, got %s", transaction.Status())
	}
	if fx.biLogger.lastEventType() != "rebill_canceled" {
		t.Fatalf("unexpected event: %s", fx.biLogger.lastEventType())
	}
}

func TestCancelRebillWithoutRebill(t *testing.T) {
	fx := newServiceFixture(&fakeBiller{}, config.TransactionsConfig{})
	previous := createApprovedSale(t, fx, nil)

	_, err := fx.service.CancelRebill(context.Background(), &types.CancelRebillRequest{
		TransactionId: previous.ID(),
		BillerName:    "rocketgate",
	})
	if !errors.Is(err, ErrRebillNotSet) {
		t.Fatalf("expected ErrRebillNotSet, got %v", err)
	}
}

func TestCancelRebillGuards(t *testing.T) {
	fx := newServiceFixture(&fakeBiller{}, config.TransactionsConfig{})
	pending := createPendingSale(t, fx)

	_, err := fx.service.CancelRebill(context.Background(), &types.CancelRebillRequest{
		TransactionId: "missing",
		BillerName:    "rocketgate",
	})
	if !errors.Is(err, ErrPreviousTransactionNotFound) {
		t.Fatalf("expected ErrPreviousTransactionNotFound, got %v", err)
	}

	_, err = fx.service.CancelRebill(context.Background(), &types.CancelRebillRequest{
		TransactionId: pending.ID(),
		BillerName:    "netbilling",
	})
	if !errors.Is(err, ErrInvalidBillerName) {
		t.Fatalf("expected ErrInvalidBillerName, got %v", err)
	}

	_, err = fx.service.CancelRebill(context.Background(), &types.CancelRebillRequest{
		TransactionId: pending.ID(),
		BillerName:    "rocketgate",
	})
	if !errors.Is(err, ErrPreviousTransactionShouldBeApproved) {
		t.Fatalf("expected ErrPreviousTransactionShouldBeApproved, got %v", err)
	}
}

func TestUpdateRebill(t *testing.T) {
	fx := newServiceFixture(&fakeBiller{}, config.TransactionsConfig{})
	// A sale without a rebill can still have one attached later.
	previous := createApprovedSale(t, fx, nil)

	fx.biller.updateRebillFn = func(_ context.Context, input *biller.RebillOperationInput) (*biller.Response, error) {
		if input.Amount != 14.99 || input.FrequencyDays != 60 || input.StartDays != 0 {
			t.Fatalf("unexpected schedule: %+v", input)
		}
		return approvedResponse(`{"reasonCode":"0"}`), nil
	}

	result, err := fx.service.UpdateRebill(context.Background(), &types.UpdateRebillRequest{
		TransactionId: previous.ID(),
		BillerName:    "rocketgate",
		Rebill:        &types.RebillRequest{Amount: 14.99, FrequencyDays: 60, StartDays: 0},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	transaction := result.Transaction
	if transaction.Kind() != entity.TransactionKindRebillUpdate {
		t.Fatalf("unexpected kind: %s", transaction.Kind())
	}
	rebill := transaction.ChargeInformation().Rebill()
	if rebill == nil || rebill.FrequencyDays() != 60 {
		t.Fatalf("expected new schedule on transaction, got %+v", rebill)
	}
	if fx.biLogger.lastEventType() != "rebill_updated" {
		t.Fatalf("unexpected event: %s", fx.biLogger.lastEventType())
	}
}

func TestRebillPostback(t *testing.T) {
	fx := newServiceFixture(&fakeBiller{}, config.TransactionsConfig{})
	previous := createApprovedSale(t, fx, saleRequestWithRebill())

	fx.biller.postbackFn = func(_ context.Context, input *biller.PostbackInput) (*biller.Response, error) {
		return &biller.Response{Result: biller.ResultApproved, ReasonCode: "0", Payload: input.Payload}, nil
	}

	result, err := fx.service.RebillPostback(context.Background(), &types.RebillPostbackRequest{
		TransactionId: previous.ID(),
		BillerName:    "rocketgate",
		Payload:       `{"reasonCode":"0","subscriptionId":"sub-1"}`,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	transaction := result.Transaction
	if transaction.Kind() != entity.TransactionKindRebillUpdate {
		t.Fatalf("unexpected kind: %s", transaction.Kind())
	}
	if transaction.ChargeInformation().Amount().Value() != 9.99 {
		t.Fatalf("rebill charge must use the schedule amount, got %v", transaction.ChargeInformation().Amount().Value())
	}
	if !transaction.Status().Approved() {
		t.Fatalf("expected approved, got %s", transaction.Status())
	}
	if fx.biLogger.lastEventType() != "rebill_postback_processed" {
		t.Fatalf("unexpected event: %s", fx.biLogger.lastEventType())
	}
}

func TestRebillPostbackWithoutRebill(t *testing.T) {
	fx := newServiceFixture(&fakeBiller{}, config.TransactionsConfig{})
	previous := createApprovedSale(t, fx, nil)

	_, err := fx.service.RebillPostback(context.Background(), &types.RebillPostbackRequest{
		TransactionId: previous.ID(),
		BillerName:    "rocketgate",
		Payload:       `{"reasonCode":"0"}`,
	})
	if !errors.Is(err, ErrRebillNotSet) {
		t.Fatalf("expected ErrRebillNotSet, got %v", err)
	}
}
