package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-transactions/app/biller"
	"github.com/vibast-solutions/ms-go-transactions/app/entity"
)

type cancelRebillRequest interface {
	GetTransactionId() string
	GetBillerName() string
}

type updateRebillRequest interface {
	GetTransactionId() string
	GetBillerName() string
	GetRebillAmount() float64
	GetRebillFrequencyDays() int32
	GetRebillStartDays() int32
}

type rebillPostbackRequest interface {
	GetTransactionId() string
	GetBillerName() string
	GetPayload() string
}

func (s *TransactionService) CancelRebill(ctx context.Context, req cancelRebillRequest) (*Result, error) {
	if req == nil {
		return nil, ErrInvalidCommand
	}

	previous, billerClient, err := s.loadApprovedPrevious(ctx, req.GetTransactionId(), req.GetBillerName())
	if err != nil {
		return nil, err
	}
	rebill := previous.ChargeInformation().Rebill()
	if rebill == nil {
		return nil, ErrRebillNotSet
	}

	now := time.Now().UTC()
	chargeInformation := entity.NewChargeInformation(rebill.Amount(), previous.ChargeInformation().Currency(), rebill)
	transaction, err := entity.NewRebillUpdateTransaction(previous, chargeInformation, now)
	if err != nil {
		return nil, err
	}

	response, callErr := billerClient.CancelRebill(ctx, &biller.RebillOperationInput{
		TransactionID:    transaction.ID(),
		SiteID:           transaction.SiteID(),
		Amount:           rebill.Amount().Value(),
		Currency:         chargeInformation.Currency().Code(),
		FrequencyDays:    rebill.FrequencyDays(),
		StartDays:        rebill.StartDays(),
		ReferenceFields:  previous.SubsequentOperationFields(),
		MerchantSettings: previous.BillerChargeSettings(),
	})
	response = s.normalizeResponse(response, callErr)

	if err := transaction.UpdateFromBillerResponse(response, now); err != nil {
		if addErr := s.transactionRepo.Add(ctx, transaction); addErr != nil {
			s.logger.WithError(addErr).Error("Persisting unclassified rebill cancel failed")
		}
		return nil, fmt.Errorf("%w: %v", ErrTransactionCreation, err)
	}

	if err := s.transactionRepo.Add(ctx, transaction); err != nil {
		return nil, err
	}

	s.writeEvent("rebill_canceled", transaction, response)
	return s.buildResult(ctx, transaction, response), nil
}

func (s *TransactionService) UpdateRebill(ctx context.Context, req updateRebillRequest) (*Result, error) {
	if req == nil {
		return nil, ErrInvalidCommand
	}

	previous, billerClient, err := s.loadApprovedPrevious(ctx, req.GetTransactionId(), req.GetBillerName())
	if err != nil {
		return nil, err
	}

	rebillAmount, err := entity.NewAmount(req.GetRebillAmount())
	if err != nil {
		return nil, err
	}
	rebill, err := entity.NewRebill(rebillAmount, req.GetRebillFrequencyDays(), req.GetRebillStartDays())
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	chargeInformation := entity.NewChargeInformation(rebillAmount, previous.ChargeInformation().Currency(), &rebill)
	transaction, err := entity.NewRebillUpdateTransaction(previous, chargeInformation, now)
	if err != nil {
		return nil, err
	}

	response, callErr := billerClient.UpdateRebill(ctx, &biller.RebillOperationInput{
		TransactionID:    transaction.ID(),
		SiteID:           transaction.SiteID(),
		Amount:           rebill.Amount().Value(),
		Currency:         chargeInformation.Currency().Code(),
		FrequencyDays:    rebill.FrequencyDays(),
		StartDays:        rebill.StartDays(),
		ReferenceFields:  previous.SubsequentOperationFields(),
		MerchantSettings: previous.BillerChargeSettings(),
	})
	response = s.normalizeResponse(response, callErr)

	if err := transaction.UpdateFromBillerResponse(response, now); err != nil {
		if addErr := s.transactionRepo.Add(ctx, transaction); addErr != nil {
			s.logger.WithError(addErr).Error("Persisting unclassified rebill update failed")
		}
		return nil, fmt.Errorf("%w: %v", ErrTransactionCreation, err)
	}

	if err := s.transactionRepo.Add(ctx, transaction); err != nil {
		return nil, err
	}

	s.writeEvent("rebill_updated", transaction, response)
	return s.buildResult(ctx, transaction, response), nil
}

// RebillPostback records a biller-initiated recurring charge against the
// original sale as a new rebill-update transaction.
func (s *TransactionService) RebillPostback(ctx context.Context, req rebillPostbackRequest) (*Result, error) {
	if req == nil {
		return nil, ErrInvalidCommand
	}

	previous, billerClient, err := s.loadApprovedPrevious(ctx, req.GetTransactionId(), req.GetBillerName())
	if err != nil {
		return nil, err
	}
	rebill := previous.ChargeInformation().Rebill()
	if rebill == nil {
		return nil, ErrRebillNotSet
	}

	response, err := billerClient.TranslatePostback(ctx, &biller.PostbackInput{
		TransactionID: previous.ID(),
		Payload:       req.GetPayload(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransactionLookup, err)
	}

	now := time.Now().UTC()
	chargeInformation := entity.NewChargeInformation(rebill.Amount(), previous.ChargeInformation().Currency(), rebill)
	transaction, err := entity.NewRebillUpdateTransaction(previous, chargeInformation, now)
	if err != nil {
		return nil, err
	}

	if err := transaction.UpdateFromBillerResponse(response, now); err != nil {
		if addErr := s.transactionRepo.Add(ctx, transaction); addErr != nil {
			s.logger.WithError(addErr).Error("Persisting unclassified rebill postback failed")
		}
		return nil, fmt.Errorf("%w: %v", ErrTransactionCreation, err)
	}

	if err := s.transactionRepo.Add(ctx, transaction); err != nil {
		return nil, err
	}

	s.writeEvent("rebill_postback_processed", transaction, response)
	return s.buildResult(ctx, transaction, response), nil
}

func (s *TransactionService) loadApprovedPrevious(ctx context.Context, transactionID, billerName string) (*entity.Transaction, biller.Biller, error) {
	previous, err := s.transactionRepo.FindByID(ctx, transactionID)
	if err != nil {
		return nil, nil, err
	}
	if previous == nil {
		return nil, nil, ErrPreviousTransactionNotFound
	}

	billerName = strings.ToLower(strings.TrimSpace(billerName))
	if billerName != previous.BillerName() {
		return nil, nil, ErrInvalidBillerName
	}

	if !previous.Status().Approved() {
		return nil, nil, ErrPreviousTransactionShouldBeApproved
	}

	billerClient, err := s.billers.Get(billerName)
	if err != nil {
		return nil, nil, ErrInvalidBillerName
	}

	return previous, billerClient, nil
}
