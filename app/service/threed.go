package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/vibast-solutions/ms-go-transactions/app/biller"
	"github.com/vibast-solutions/ms-go-transactions/app/cache"
	"github.com/vibast-solutions/ms-go-transactions/app/entity"
)

type completeThreeDRequest interface {
	GetTransactionId() string
	GetPares() string
	GetMd() string
}

type simplifiedCompleteThreeDRequest interface {
	GetTransactionId() string
	GetQueryString() string
}

type lookupRequest interface {
	GetTransactionId() string
	GetDeviceFingerprintId() string
	GetStepUpResponse() string
	GetCardNumber() string
	GetCvv() string
	GetExpirationMonth() int32
	GetExpirationYear() int32
}

// CompleteThreeD finishes a 3DS v1 challenge. The CVV cached when the charge
// went pending is consumed here; billers do not echo it back.
func (s *TransactionService) CompleteThreeD(ctx context.Context, req completeThreeDRequest) (*Result, error) {
	if req == nil {
		return nil, ErrInvalidCommand
	}
	return s.completeThreeD(ctx, req.GetTransactionId(), req.GetPares(), req.GetMd())
}

// SimplifiedCompleteThreeD accepts the raw ACS return query string instead of
// pre-parsed challenge fields.
func (s *TransactionService) SimplifiedCompleteThreeD(ctx context.Context, req simplifiedCompleteThreeDRequest) (*Result, error) {
	if req == nil {
		return nil, ErrInvalidCommand
	}

	values, err := url.ParseQuery(req.GetQueryString())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	pares := values.Get("PaRes")
	if pares == "" {
		pares = values.Get("pares")
	}
	md := values.Get("MD")
	if md == "" {
		md = values.Get("md")
	}

	return s.completeThreeD(ctx, req.GetTransactionId(), pares, md)
}

func (s *TransactionService) completeThreeD(ctx context.Context, transactionID, pares, md string) (*Result, error) {
	transaction, err := s.transactionRepo.FindByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if transaction == nil {
		return nil, ErrTransactionNotFound
	}
	if !transaction.Status().Pending() {
		return nil, ErrInvalidStatus
	}

	billerClient, err := s.billers.Get(transaction.BillerName())
	if err != nil {
		return nil, ErrInvalidBillerName
	}

	cvv, err := s.cvvCache.Take(ctx, transaction.ID(), transaction.BillerName())
	if err != nil && !errors.Is(err, cache.ErrCvvNotFound) {
		s.logger.WithError(err).WithField("transaction_id", transaction.ID()).Warn("Reading cached cvv failed")
	}

	now := time.Now().UTC()
	response, callErr := billerClient.CompleteThreeD(ctx, &biller.CompleteThreeDInput{
		TransactionID:    transaction.ID(),
		PARES:            pares,
		MD:               md,
		CVV:              cvv,
		ReferenceFields:  transaction.SubsequentOperationFields(),
		MerchantSettings: transaction.BillerChargeSettings(),
	})
	response = s.normalizeResponse(response, callErr)

	if err := transaction.UpdateFromBillerResponse(response, now); err != nil {
		if updateErr := s.transactionRepo.Update(ctx, transaction); updateErr != nil {
			s.logger.WithError(updateErr).Error("Persisting unclassified 3DS completion failed")
		}
		return nil, fmt.Errorf("%w: %v", ErrTransactionCreation, err)
	}

	if err := s.transactionRepo.Update(ctx, transaction); err != nil {
		return nil, err
	}

	s.writeEvent("threed_completed", transaction, response)
	return s.buildResult(ctx, transaction, response), nil
}

// Lookup performs the 3DS v2 device-fingerprint and step-up round trip. When
// the biller rejects the 3DS flow mid-way, the charge is retried without 3DS
// instead of being treated as a decline.
func (s *TransactionService) Lookup(ctx context.Context, req lookupRequest) (*Result, error) {
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
	if !transaction.Status().Pending() {
		return nil, ErrInvalidStatus
	}

	billerClient, err := s.billers.Get(transaction.BillerName())
	if err != nil {
		return nil, ErrInvalidBillerName
	}

	now := time.Now().UTC()
	response, callErr := billerClient.PerformLookup(ctx, &biller.LookupInput{
		TransactionID:       transaction.ID(),
		DeviceFingerprintID: req.GetDeviceFingerprintId(),
		StepUpResponse:      req.GetStepUpResponse(),
		ReferenceFields:     transaction.SubsequentOperationFields(),
		MerchantSettings:    transaction.BillerChargeSettings(),
	})
	response = s.normalizeResponse(response, callErr)

	if response.ThreeDSBypassed {
		if retried, ok := s.retryWithoutThreeDS(ctx, transaction, billerClient, req, response, now); ok {
			response = retried
		}
	}

	if err := transaction.UpdateFromBillerResponse(response, now); err != nil {
		if updateErr := s.transactionRepo.Update(ctx, transaction); updateErr != nil {
			s.logger.WithError(updateErr).Error("Persisting unclassified lookup failed")
		}
		return nil, fmt.Errorf("%w: %v", ErrTransactionLookup, err)
	}

	if err := s.transactionRepo.Update(ctx, transaction); err != nil {
		return nil, err
	}

	s.writeEvent("lookup_performed", transaction, response)
	return s.buildResult(ctx, transaction, response), nil
}

// retryWithoutThreeDS re-runs the charge with 3DS disabled after the biller
// rejected the 3DS flow. The rejected response is kept in the audit trail
// before the retry goes out. Returns false when no usable card data exists.
func (s *TransactionService) retryWithoutThreeDS(
	ctx context.Context,
	transaction *entity.Transaction,
	billerClient biller.Biller,
	req lookupRequest,
	rejected *biller.Response,
	now time.Time,
) (*biller.Response, bool) {
	charge := transaction.ChargeInformation()
	input := &biller.ChargeInput{
		TransactionID:    transaction.ID(),
		SiteID:           transaction.SiteID(),
		Amount:           charge.Amount().Value(),
		Currency:         charge.Currency().Code(),
		UseThreeDS:       false,
		Rebill:           rebillSchedule(charge),
		MerchantSettings: transaction.BillerChargeSettings(),
	}

	if req.GetCardNumber() != "" {
		transaction.RecordBillerInteraction(rejected, now)
		input.CardNumber = req.GetCardNumber()
		input.CVV = req.GetCvv()
		input.ExpirationMonth = req.GetExpirationMonth()
		input.ExpirationYear = req.GetExpirationYear()
		response, callErr := billerClient.ChargeNewCreditCard(ctx, input)
		return s.normalizeResponse(response, callErr), true
	}

	if cardHash := transaction.SubsequentOperationFields()["cardHash"]; cardHash != "" {
		transaction.RecordBillerInteraction(rejected, now)
		input.CardHash = cardHash
		response, callErr := billerClient.ChargeExistingCreditCard(ctx, input)
		return s.normalizeResponse(response, callErr), true
	}

	return nil, false
}
