package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-transactions/app/bi"
	"github.com/vibast-solutions/ms-go-transactions/app/biller"
	"github.com/vibast-solutions/ms-go-transactions/app/entity"
	"github.com/vibast-solutions/ms-go-transactions/app/factory"
	"github.com/vibast-solutions/ms-go-transactions/app/repository"
	"github.com/vibast-solutions/ms-go-transactions/config"
)

const (
	defaultClassificationGroups = "default"
	defaultClassificationErrors = "default"
	defaultRecommendedAction    = "retry"
)

type newSaleRequest interface {
	GetSiteId() string
	GetBillerName() string
	GetAmount() float64
	GetCurrency() string
	GetCardNumber() string
	GetCvv() string
	GetExpirationMonth() int32
	GetExpirationYear() int32
	GetHasRebill() bool
	GetRebillAmount() float64
	GetRebillFrequencyDays() int32
	GetRebillStartDays() int32
	GetUseThreeDS() bool
	GetMerchantSettings() map[string]string
}

type existingCardSaleRequest interface {
	GetSiteId() string
	GetBillerName() string
	GetAmount() float64
	GetCurrency() string
	GetCardHash() string
	GetHasRebill() bool
	GetRebillAmount() float64
	GetRebillFrequencyDays() int32
	GetRebillStartDays() int32
	GetUseThreeDS() bool
	GetMerchantSettings() map[string]string
}

type otherPaymentSaleRequest interface {
	GetSiteId() string
	GetBillerName() string
	GetAmount() float64
	GetCurrency() string
	GetPaymentMethod() string
	GetAccountOwner() string
	GetMerchantSettings() map[string]string
}

type transactionRepository interface {
	Add(ctx context.Context, transaction *entity.Transaction) error
	Update(ctx context.Context, transaction *entity.Transaction) error
	FindByID(ctx context.Context, id string) (*entity.Transaction, error)
	ListStalePending(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.Transaction, error)
}

type declinedExtraDataRepository interface {
	Retrieve(ctx context.Context, criteria repository.MappingCriteria) (*repository.DeclinedExtraData, error)
}

type cvvCache interface {
	Store(ctx context.Context, transactionID, billerName, cvv string) error
	Take(ctx context.Context, transactionID, billerName string) (string, error)
}

type biLogger interface {
	Write(event bi.Event)
}

// ErrorClassification is the human-readable explanation attached to declined
// and aborted outcomes, looked up per biller and reason code with hard
// defaults when no mapping exists.
type ErrorClassification struct {
	Groups            string
	Errors            string
	RecommendedAction string
	MappingCriteria   repository.MappingCriteria
}

type Result struct {
	Transaction         *entity.Transaction
	ErrorClassification *ErrorClassification
}

type TransactionService struct {
	transactionRepo transactionRepository
	extraDataRepo   declinedExtraDataRepository
	billers         *biller.Registry
	cvvCache        cvvCache
	biLogger        biLogger
	transactionsCfg config.TransactionsConfig
	logger          logrus.FieldLogger
}

func NewTransactionService(
	transactionRepo transactionRepository,
	extraDataRepo declinedExtraDataRepository,
	billers *biller.Registry,
	cvvCache cvvCache,
	biLogger biLogger,
	transactionsCfg config.TransactionsConfig,
) *TransactionService {
	return &TransactionService{
		transactionRepo: transactionRepo,
		extraDataRepo:   extraDataRepo,
		billers:         billers,
		cvvCache:        cvvCache,
		biLogger:        biLogger,
		transactionsCfg: transactionsCfg,
		logger:          factory.NewModuleLogger("transactions-service"),
	}
}

func (s *TransactionService) SaleNewCreditCard(ctx context.Context, req newSaleRequest) (*Result, error) {
	if req == nil {
		return nil, ErrInvalidCommand
	}

	chargeInformation, err := buildChargeInformation(
		req.GetAmount(), req.GetCurrency(),
		req.GetHasRebill(), req.GetRebillAmount(), req.GetRebillFrequencyDays(), req.GetRebillStartDays(),
	)
	if err != nil {
		return nil, err
	}
	paymentInformation, err := entity.NewCreditCardInformation(req.GetCardNumber(), req.GetExpirationMonth(), req.GetExpirationYear())
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	transaction, err := entity.NewChargeTransaction(
		req.GetSiteId(), req.GetBillerName(),
		chargeInformation, paymentInformation,
		req.GetMerchantSettings(), now,
	)
	if err != nil {
		return nil, err
	}

	billerClient, err := s.billers.Get(transaction.BillerName())
	if err != nil {
		return nil, ErrInvalidBillerName
	}

	input := &biller.ChargeInput{
		TransactionID:    transaction.ID(),
		SiteID:           transaction.SiteID(),
		Amount:           req.GetAmount(),
		Currency:         chargeInformation.Currency().Code(),
		CardNumber:       req.GetCardNumber(),
		CVV:              req.GetCvv(),
		ExpirationMonth:  req.GetExpirationMonth(),
		ExpirationYear:   req.GetExpirationYear(),
		Rebill:           rebillSchedule(chargeInformation),
		UseThreeDS:       req.GetUseThreeDS(),
		MerchantSettings: transaction.BillerChargeSettings(),
	}

	response, callErr := billerClient.ChargeNewCreditCard(ctx, input)
	response = s.normalizeResponse(response, callErr)

	if response.Declined() && response.NSF && s.nsfEnabled(transaction.SiteID()) {
		transaction.RecordBillerInteraction(response, now)
		uploadResponse, uploadErr := billerClient.CardUpload(ctx, input)
		response = s.normalizeResponse(uploadResponse, uploadErr)
	}

	if err := transaction.UpdateFromBillerResponse(response, now); err != nil {
		if addErr := s.transactionRepo.Add(ctx, transaction); addErr != nil {
			s.logger.WithError(addErr).Error("Persisting unclassified sale failed")
		}
		return nil, fmt.Errorf("%w: %v", ErrTransactionCreation, err)
	}

	s.cacheCvvForChallenge(ctx, transaction, response, req.GetCvv())

	if err := s.transactionRepo.Add(ctx, transaction); err != nil {
		return nil, err
	}

	s.writeEvent("sale_processed", transaction, response)
	return s.buildResult(ctx, transaction, response), nil
}

func (s *TransactionService) SaleExistingCreditCard(ctx context.Context, req existingCardSaleRequest) (*Result, error) {
	if req == nil {
		return nil, ErrInvalidCommand
	}

	chargeInformation, err := buildChargeInformation(
		req.GetAmount(), req.GetCurrency(),
		req.GetHasRebill(), req.GetRebillAmount(), req.GetRebillFrequencyDays(), req.GetRebillStartDays(),
	)
	if err != nil {
		return nil, err
	}
	paymentInformation, err := entity.ExistingCreditCardInformation(req.GetCardHash())
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	transaction, err := entity.NewChargeTransaction(
		req.GetSiteId(), req.GetBillerName(),
		chargeInformation, paymentInformation,
		req.GetMerchantSettings(), now,
	)
	if err != nil {
		return nil, err
	}

	billerClient, err := s.billers.Get(transaction.BillerName())
	if err != nil {
		return nil, ErrInvalidBillerName
	}

	response, callErr := billerClient.ChargeExistingCreditCard(ctx, &biller.ChargeInput{
		TransactionID:    transaction.ID(),
		SiteID:           transaction.SiteID(),
		Amount:           req.GetAmount(),
		Currency:         chargeInformation.Currency().Code(),
		CardHash:         req.GetCardHash(),
		Rebill:           rebillSchedule(chargeInformation),
		UseThreeDS:       req.GetUseThreeDS(),
		MerchantSettings: transaction.BillerChargeSettings(),
	})
	response = s.normalizeResponse(response, callErr)

	if err := transaction.UpdateFromBillerResponse(response, now); err != nil {
		if addErr := s.transactionRepo.Add(ctx, transaction); addErr != nil {
			s.logger.WithError(addErr).Error("Persisting unclassified sale failed")
		}
		return nil, fmt.Errorf("%w: %v", ErrTransactionCreation, err)
	}

	if err := s.transactionRepo.Add(ctx, transaction); err != nil {
		return nil, err
	}

	s.writeEvent("sale_processed", transaction, response)
	return s.buildResult(ctx, transaction, response), nil
}

func (s *TransactionService) SaleOtherPayment(ctx context.Context, req otherPaymentSaleRequest) (*Result, error) {
	if req == nil {
		return nil, ErrInvalidCommand
	}

	chargeInformation, err := buildChargeInformation(req.GetAmount(), req.GetCurrency(), false, 0, 0, 0)
	if err != nil {
		return nil, err
	}
	paymentInformation, err := entity.OtherPaymentInformation(req.GetPaymentMethod(), req.GetAccountOwner())
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	transaction, err := entity.NewChargeTransaction(
		req.GetSiteId(), req.GetBillerName(),
		chargeInformation, paymentInformation,
		req.GetMerchantSettings(), now,
	)
	if err != nil {
		return nil, err
	}

	billerClient, err := s.billers.Get(transaction.BillerName())
	if err != nil {
		return nil, ErrInvalidBillerName
	}

	response, callErr := billerClient.ChargeOtherPaymentType(ctx, &biller.ChargeInput{
		TransactionID:    transaction.ID(),
		SiteID:           transaction.SiteID(),
		Amount:           req.GetAmount(),
		Currency:         chargeInformation.Currency().Code(),
		PaymentMethod:    req.GetPaymentMethod(),
		AccountOwner:     req.GetAccountOwner(),
		MerchantSettings: transaction.BillerChargeSettings(),
	})
	response = s.normalizeResponse(response, callErr)

	if err := transaction.UpdateFromBillerResponse(response, now); err != nil {
		if addErr := s.transactionRepo.Add(ctx, transaction); addErr != nil {
			s.logger.WithError(addErr).Error("Persisting unclassified sale failed")
		}
		return nil, fmt.Errorf("%w: %v", ErrTransactionCreation, err)
	}

	if err := s.transactionRepo.Add(ctx, transaction); err != nil {
		return nil, err
	}

	s.writeEvent("sale_processed", transaction, response)
	return s.buildResult(ctx, transaction, response), nil
}

func (s *TransactionService) GetTransaction(ctx context.Context, id string) (*entity.Transaction, error) {
	transaction, err := s.transactionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if transaction == nil {
		return nil, ErrTransactionNotFound
	}
	return transaction, nil
}

func (s *TransactionService) Abort(ctx context.Context, id string) (*Result, error) {
	transaction, err := s.transactionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if transaction == nil {
		return nil, ErrTransactionNotFound
	}

	if err := transaction.Abort(time.Now().UTC()); err != nil {
		return nil, err
	}

	if err := s.transactionRepo.Update(ctx, transaction); err != nil {
		return nil, err
	}

	s.biLogger.Write(bi.Event{
		Type:          "transaction_aborted",
		TransactionID: transaction.ID(),
		SiteID:        transaction.SiteID(),
		BillerName:    transaction.BillerName(),
		Status:        string(transaction.Status()),
	})
	return &Result{
		Transaction:         transaction,
		ErrorClassification: s.defaultClassification(transaction.BillerName(), "aborted"),
	}, nil
}

// normalizeResponse turns transport failures, timeouts and open circuits into
// an aborted outcome; a biller failure is never surfaced as a transport error
// and never retried here.
func (s *TransactionService) normalizeResponse(response *biller.Response, callErr error) *biller.Response {
	if callErr == nil && response != nil {
		return response
	}
	reason := "biller call failed"
	if callErr != nil {
		reason = callErr.Error()
		s.logger.WithError(callErr).Warn("Biller call failed, aborting transaction")
	}
	return biller.AbortedResponse(reason, time.Now().UTC())
}

func (s *TransactionService) cacheCvvForChallenge(ctx context.Context, transaction *entity.Transaction, response *biller.Response, cvv string) {
	if !transaction.Status().Pending() || response.ThreeDSVersion() != 1 || cvv == "" {
		return
	}
	if err := s.cvvCache.Store(ctx, transaction.ID(), transaction.BillerName(), cvv); err != nil {
		s.logger.WithError(err).WithField("transaction_id", transaction.ID()).Warn("Caching cvv for 3DS challenge failed")
	}
}

func (s *TransactionService) nsfEnabled(siteID string) bool {
	for _, enabled := range s.transactionsCfg.NSFEnabledSiteIDs {
		if enabled == siteID {
			return true
		}
	}
	return false
}

func (s *TransactionService) buildResult(ctx context.Context, transaction *entity.Transaction, response *biller.Response) *Result {
	result := &Result{Transaction: transaction}
	if !transaction.Status().Declined() && !transaction.Status().Aborted() {
		return result
	}

	criteria := repository.MappingCriteria{
		BillerName: transaction.BillerName(),
		Code:       response.Code(),
	}
	classification := s.defaultClassification(criteria.BillerName, criteria.Code)

	extraData, err := s.extraDataRepo.Retrieve(ctx, criteria)
	if err != nil {
		s.logger.WithError(err).Warn("Retrieving decline extra data failed, using defaults")
	} else if extraData != nil {
		classification.Groups = extraData.Groups
		classification.Errors = extraData.Errors
		classification.RecommendedAction = extraData.RecommendedAction
	}

	result.ErrorClassification = classification
	return result
}

func (s *TransactionService) defaultClassification(billerName, code string) *ErrorClassification {
	return &ErrorClassification{
		Groups:            defaultClassificationGroups,
		Errors:            defaultClassificationErrors,
		RecommendedAction: defaultRecommendedAction,
		MappingCriteria: repository.MappingCriteria{
			BillerName: billerName,
			Code:       code,
		},
	}
}

func (s *TransactionService) writeEvent(eventType string, transaction *entity.Transaction, response *biller.Response) {
	event := bi.Event{
		Type:           eventType,
		TransactionID:  transaction.ID(),
		SiteID:         transaction.SiteID(),
		BillerName:     transaction.BillerName(),
		Status:         string(transaction.Status()),
		ThreeDSVersion: transaction.ThreeDSVersion(),
	}
	if response != nil {
		event.Code = response.Code()
		event.Reason = response.Reason()
	}
	s.biLogger.Write(event)
}

func (s *TransactionService) batchSize() int32 {
	if s.transactionsCfg.JobBatchSize > 0 {
		return s.transactionsCfg.JobBatchSize
	}
	return 100
}

func buildChargeInformation(
	amount float64,
	currency string,
	hasRebill bool,
	rebillAmount float64,
	rebillFrequencyDays, rebillStartDays int32,
) (entity.ChargeInformation, error) {
	if strings.TrimSpace(currency) == "" {
		return entity.ChargeInformation{}, entity.ErrMissingChargeInformation
	}

	amountValue, err := entity.NewAmount(amount)
	if err != nil {
		return entity.ChargeInformation{}, err
	}
	currencyValue, err := entity.NewCurrency(currency)
	if err != nil {
		return entity.ChargeInformation{}, err
	}

	var rebill *entity.Rebill
	if hasRebill {
		rebillAmountValue, err := entity.NewAmount(rebillAmount)
		if err != nil {
			return entity.ChargeInformation{}, err
		}
		rebillValue, err := entity.NewRebill(rebillAmountValue, rebillFrequencyDays, rebillStartDays)
		if err != nil {
			return entity.ChargeInformation{}, err
		}
		rebill = &rebillValue
	}

	return entity.NewChargeInformation(amountValue, currencyValue, rebill), nil
}

func rebillSchedule(chargeInformation entity.ChargeInformation) *biller.RebillSchedule {
	rebill := chargeInformation.Rebill()
	if rebill == nil {
		return nil
	}
	return &biller.RebillSchedule{
		Amount:        rebill.Amount().Value(),
		FrequencyDays: rebill.FrequencyDays(),
		StartDays:     rebill.StartDays(),
	}
}
