package biller

import (
	"context"
	"errors"
)

const (
	NameRocketgate = "rocketgate"
	NameNetbilling = "netbilling"
	NameEpoch      = "epoch"
	NameQysso      = "qysso"
	NamePumapay    = "pumapay"
	NameLegacy     = "legacy"
)

var (
	ErrBillerNotSupported    = errors.New("biller is not supported")
	ErrOperationNotSupported = errors.New("operation is not supported by this biller")
	ErrUnavailable           = errors.New("biller is unavailable")
)

type RebillSchedule struct {
	Amount        float64
	FrequencyDays int32
	StartDays     int32
}

type ChargeInput struct {
	TransactionID string
	SiteID        string
	Amount        float64
	Currency      string

	CardNumber      string
	CVV             string
	ExpirationMonth int32
	ExpirationYear  int32

	CardHash string

	PaymentMethod string
	AccountOwner  string

	Rebill *RebillSchedule

	UseThreeDS       bool
	MerchantSettings map[string]string
}

type RebillOperationInput struct {
	TransactionID string
	SiteID        string
	Amount        float64
	Currency      string
	FrequencyDays int32
	StartDays     int32

	ReferenceFields  map[string]string
	MerchantSettings map[string]string
}

type CompleteThreeDInput struct {
	TransactionID string
	PARES         string
	MD            string
	CVV           string

	ReferenceFields  map[string]string
	MerchantSettings map[string]string
}

type LookupInput struct {
	TransactionID       string
	DeviceFingerprintID string
	StepUpResponse      string

	ReferenceFields  map[string]string
	MerchantSettings map[string]string
}

type PostbackInput struct {
	TransactionID string
	Payload       string
}

type QrCodeInput struct {
	TransactionID string
	Amount        float64
	Currency      string

	MerchantSettings map[string]string
}

type QrCode struct {
	EncryptedPayload string
	ExpiresInSeconds int64
}

// Biller is one payment processor integration. Implementations that do not
// support an operation return ErrOperationNotSupported.
type Biller interface {
	Name() string

	ChargeNewCreditCard(ctx context.Context, input *ChargeInput) (*Response, error)
	ChargeExistingCreditCard(ctx context.Context, input *ChargeInput) (*Response, error)
	ChargeOtherPaymentType(ctx context.Context, input *ChargeInput) (*Response, error)

	StartRebill(ctx context.Context, input *RebillOperationInput) (*Response, error)
	UpdateRebill(ctx context.Context, input *RebillOperationInput) (*Response, error)
	SuspendRebill(ctx context.Context, input *RebillOperationInput) (*Response, error)
	CancelRebill(ctx context.Context, input *RebillOperationInput) (*Response, error)

	CompleteThreeD(ctx context.Context, input *CompleteThreeDInput) (*Response, error)
	CardUpload(ctx context.Context, input *ChargeInput) (*Response, error)
	PerformLookup(ctx context.Context, input *LookupInput) (*Response, error)

	TranslatePostback(ctx context.Context, input *PostbackInput) (*Response, error)
	RetrieveQrCode(ctx context.Context, input *QrCodeInput) (*QrCode, error)
}
