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

func createPendingSale(t *testing.T, fx *serviceFixture) *entity.Transaction {
	t.Helper()
	fx.biller.chargeNewFn = func(_ context.Context, _ *biller.ChargeInput) (*biller.Response, error) {
		return &biller.Response{
			Result:     biller.ResultPending,
			ReasonCode: "202",
			Payload:    `{"reasonCode":"202"}`,
			ThreeDS:    &biller.ThreeDSChallenge{Version: 1},
		}, nil
	}
	result, err := fx.service.SaleNewCreditCard(context.Background(), newSaleRequestFixture())
	if err != nil {
		t.Fatalf("creating pending sale failed: %v", err)
	}
	return result.Transaction
}

func createApprovedSale(t *testing.T, fx *serviceFixture, req *types.NewSaleRequest) *entity.Transaction {
	t.Helper()
	fx.biller.chargeNewFn = func(_ context.Context, _ *biller.ChargeInput) (*biller.Response, error) {
		return approvedResponse(`{"reasonCode":"0","guidNo":"g-1"}`), nil
	}
	if req == nil {
		req = newSaleRequestFixture()
	}
	result, err := fx.service.SaleNewCreditCard(context.Background(), req)
	if err != nil {
		t.Fatalf("creating approved sale failed: %v", err)
	}
	return result.Transaction
}

func TestAddBillerInteractionSettlesPending(t *testing.T) {
	fx := newServiceFixture(&fakeBiller{}, config.TransactionsConfig{})
	transaction := createPendingSale(t, fx)

	fx.biller.postbackFn = func(_ context.Context, input *biller.PostbackInput) (*biller.Response, error) {
		return &biller.Response{Result: biller.ResultApproved, ReasonCode: "0", Payload: input.Payload}, nil
	}

	result, err := fx.service.AddBillerInteraction(context.Background(), &types.AddBillerInteractionRequest{
		TransactionId: transaction.ID(),
		BillerName:    "rocketgate",
		Payload:       `{"reasonCode":"0","amount":19.99}`,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Transaction.Status().Approved() {
		t.Fatalf("expected approved, got %s", result.Transaction.Status())
	}
	if fx.biLogger.lastEventType() != "postback_processed" {
		t.Fatalf("unexpected event: %s", fx.biLogger.lastEventType())
	}
}

func TestAddBillerInteractionChargebackAfterApproval(t *testing.T) {
	fx := newServiceFixture(&fakeBiller{}, config.TransactionsConfig{})
	transaction := createApprovedSale(t, fx, nil)

	fx.biller.postbackFn = func(_ context.Context, input *biller.PostbackInput) (*biller.Response, error) {
		return &biller.Response{Result: biller.ResultChargedback, ReasonCode: "0", Payload: input.Payload}, nil
	}

	result, err := fx.service.AddBillerInteraction(context.Background(), &types.AddBillerInteractionRequest{
		TransactionId: transaction.ID(),
		BillerName:    "rocketgate",
		Payload:       `{"transactionType":"chargeback","amount":19.99}`,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Transaction.Status().Chargedback() {
		t.Fatalf("expected chargedback, got %s", result.Transaction.Status())
	}
}

func TestAddBillerInteractionDuplicateRecordsPayload(t *testing.T) {
	fx := newServiceFixture(&fakeBiller{}, config.TransactionsConfig{})
	transaction := createApprovedSale(t, fx, nil)
	interactionsBefore := transaction.Interactions().Len()

	fx.biller.postbackFn = func(_ context.Context, input *biller.PostbackInput) (*biller.Response, error) {
		return &biller.Response{Result: biller.ResultApproved, ReasonCode: "0", Payload: input.Payload}, nil
	}

	_, err := fx.service.AddBillerInteraction(context.Background(), &types.AddBillerInteractionRequest{
		TransactionId: transaction.ID(),
		BillerName:    "rocketgate",
		Payload:       `{"reasonCode":"0","amount":19.99}`,
	})
	if !errors.Is(err, entity.ErrPostbackAlreadyProcessed) {
		t.Fatalf("expected ErrPostbackAlreadyProcessed, got %v", err)
	}

	stored := fx.repo.transactions[transaction.ID()]
	if !stored.Status().Approved() {
		t.Fatalf("status must not change, got %s", stored.Status())
	}
	if stored.Interactions().Len() != interactionsBefore+1 {
		t.Fatalf("duplicate payload must be recorded, got %d interactions", stored.Interactions().Len())
	}
}

func TestAddBillerInteractionCrossSaleCreatesSibling(t *testing.T) {
	fx := newServiceFixture(&fakeBiller{}, config.TransactionsConfig{})
	transaction := createApprovedSale(t, fx, nil)

	fx.biller.postbackFn = func(_ context.Context, input *biller.PostbackInput) (*biller.Response, error) {
		return &biller.Response{Result: biller.ResultApproved, ReasonCode: "0", Payload: input.Payload}, nil
	}

	result, err := fx.service.AddBillerInteraction(context.Background(), &types.AddBillerInteractionRequest{
		TransactionId: transaction.ID(),
		BillerName:    "rocketgate",
		Payload:       `{"reasonCode":"0","amount":4.99}`,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sibling := result.Transaction
	if sibling.ID() == transaction.ID() {
		t.Fatal("expected a new sibling transaction")
	}
	if sibling.ChargeInformation().Amount().Value() != 4.99 {
		t.Fatalf("unexpected sibling amount: %v", sibling.ChargeInformation().Amount().Value())
	}
	if sibling.SiteID() != transaction.SiteID() || sibling.BillerName() != transaction.BillerName() {
		t.Fatal("sibling must inherit billing identity")
	}
	if !sibling.Status().Approved() {
		t.Fatalf("expected approved sibling, got %s", sibling.Status())
	}
	if _, ok := fx.repo.transactions[sibling.ID()]; !ok {
		t.Fatal("expected sibling persisted")
	}
	if fx.biLogger.lastEventType() != "cross_sale_postback_processed" {
		t.Fatalf("unexpected event: %s", fx.biLogger.lastEventType())
	}
}

func TestAddBillerInteractionGuards(t *testing.T) {
	fx := newServiceFixture(&fakeBiller{}, config.TransactionsConfig{})
	transaction := createPendingSale(t, fx)

	if _, err := fx.service.AddBillerInteraction(context.Background(), nil); !errors.Is(err, ErrInvalidCommand) {
		t.Fatalf("expected ErrInvalidCommand, got %v", err)
	}

	_, err := fx.service.AddBillerInteraction(context.Background(), &types.AddBillerInteractionRequest{
		TransactionId: "missing",
		BillerName:    "rocketgate",
		Payload:       `{}`,
	})
	if !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}

	_, err = fx.service.AddBillerInteraction(context.Background(), &types.AddBillerInteractionRequest{
		TransactionId: transaction.ID(),
		BillerName:    "netbilling",
		Payload:       `{}`,
	})
	if !errors.Is(err, ErrInvalidBillerName) {
		t.Fatalf("expected ErrInvalidBillerName, got %v", err)
	}

	fx.biller.postbackFn = func(_ context.Context, _ *biller.PostbackInput) (*biller.Response, error) {
		return nil, errors.New("malformed payload")
	}
	_, err = fx.service.AddBillerInteraction(context.Background(), &types.AddBillerInteractionRequest{
		TransactionId: transaction.ID(),
		BillerName:    "rocketgate",
		Payload:       `not json`,
	})
	if !errors.Is(err, ErrTransactionLookup) {
		t.Fatalf("expected ErrTransactionLookup, got %v", err)
	}
}
