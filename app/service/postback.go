package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-transactions/app/biller"
	"github.com/vibast-solutions/ms-go-transactions/app/entity"
)

type addBillerInteractionRequest interface {
	GetTransactionId() string
	GetBillerName() string
	GetPayload() string
}

// AddBillerInteraction processes an asynchronous biller postback. A postback
// naming a charge the transaction does not know about (a cross-sale settled
// together with the main sale) creates a sibling transaction; a repeated
// postback for an already settled transaction is rejected after its raw
// payload has been recorded.
func (s *TransactionService) AddBillerInteraction(ctx context.Context, req addBillerInteractionRequest) (*Result, error) {
	if req == nil {
		return nil, ErrInvalidCommand
	}

	transaction, err := s.transactionRepo.FindByID(ctx, req.GetTransactionId())
	if err != nil {
		return nil, err
	}
	if transaction == nil {
		return nil, ErrTransactionNotFound
	}

	billerName := strings.ToLower(strings.TrimSpace(req.GetBillerName()))
	if billerName != transaction.BillerName() {
		return nil, ErrInvalidBillerName
	}

	billerClient, err := s.billers.Get(billerName)
	if err != nil {
		return nil, ErrInvalidBillerName
	}

	response, err := billerClient.TranslatePostback(ctx, &biller.PostbackInput{
		TransactionID: transaction.ID(),
		Payload:       req.GetPayload(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransactionLookup, err)
	}

	now := time.Now().UTC()

	if !transaction.Status().Pending() {
		if amount, ok := postbackAmount(req.GetPayload()); ok && amount != transaction.ChargeInformation().Amount().Value() {
			return s.createCrossSaleSibling(ctx, transaction, response, amount, now)
		}
	}

	if err := transaction.UpdateFromBillerResponse(response, now); err != nil {
		// The raw postback stays in the audit trail even when rejected.
		if updateErr := s.transactionRepo.Update(ctx, transaction); updateErr != nil {
			s.logger.WithError(updateErr).Error("Persisting rejected postback failed")
		}
		return nil, err
	}

	if err := s.transactionRepo.Update(ctx, transaction); err != nil {
		return nil, err
	}

	s.writeEvent("postback_processed", transaction, response)
	return s.buildResult(ctx, transaction, response), nil
}

func (s *TransactionService) createCrossSaleSibling(
	ctx context.Context,
	main *entity.Transaction,
	response *biller.Response,
	amount float64,
	now time.Time,
) (*Result, error) {
	amountValue, err := entity.NewAmount(amount)
	if err != nil {
		return nil, err
	}
	chargeInformation := entity.NewChargeInformation(amountValue, main.ChargeInformation().Currency(), nil)

	sibling, err := entity.NewChargeTransaction(
		main.SiteID(), main.BillerName(),
		chargeInformation, main.PaymentInformation(),
		main.BillerChargeSettings(), now,
	)
	if err != nil {
		return nil, err
	}

	if err := sibling.UpdateFromBillerResponse(response, now); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransactionCreation, err)
	}

	if err := s.transactionRepo.Add(ctx, sibling); err != nil {
		return nil, err
	}

	s.writeEvent("cross_sale_postback_processed", sibling, response)
	return s.buildResult(ctx, sibling, response), nil
}

func postbackAmount(payload string) (float64, bool) {
	var parsed struct {
		Amount *float64 `json:"amount"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil || parsed.Amount == nil {
		return 0, false
	}
	return *parsed.Amount, true
}
