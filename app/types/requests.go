package types

import (
	"errors"
	"io"
	"strings"

	"github.com/labstack/echo/v4"
)

type RebillRequest struct {
	Amount        float64 `json:"amount"`
	FrequencyDays int32   `json:"frequency_days"`
	StartDays     int32   `json:"start_days"`
}

type NewSaleRequest struct {
	SiteId           string            `json:"site_id"`
	BillerName       string            `json:"biller_name"`
	Amount           *float64          `json:"amount"`
	Currency         string            `json:"currency"`
	CardNumber       string            `json:"card_number"`
	Cvv              string            `json:"cvv"`
	ExpirationMonth  int32             `json:"expiration_month"`
	ExpirationYear   int32             `json:"expiration_year"`
	Rebill           *RebillRequest    `json:"rebill"`
	UseThreeDS       bool              `json:"use_3ds"`
	MerchantSettings map[string]string `json:"merchant_settings"`
}

func NewNewSaleRequestFromContext(ctx echo.Context) (*NewSaleRequest, error) {
	var body NewSaleRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.SiteId = strings.TrimSpace(body.SiteId)
	body.BillerName = strings.ToLower(strings.TrimSpace(body.BillerName))
	body.Currency = strings.ToUpper(strings.TrimSpace(body.Currency))
	body.CardNumber = strings.TrimSpace(body.CardNumber)
	body.Cvv = strings.TrimSpace(body.Cvv)

	return &body, nil
}

func (r *NewSaleRequest) Validate() error {
	if err := validateSaleCore(r.GetSiteId(), r.GetBillerName(), r.Amount, r.GetCurrency(), r.Rebill); err != nil {
		return err
	}
	if r.GetCardNumber() == "" {
		return errors.New("card_number is required")
	}
	if r.GetExpirationMonth() < 1 || r.GetExpirationMonth() > 12 {
		return errors.New("expiration_month must be between 1 and 12")
	}
	if r.GetExpirationYear() < 2000 {
		return errors.New("expiration_year is invalid")
	}
	return nil
}

func (r *NewSaleRequest) GetSiteId() string {
	if r == nil {
		return ""
	}
	return r.SiteId
}

func (r *NewSaleRequest) GetBillerName() string {
	if r == nil {
		return ""
	}
	return r.BillerName
}

func (r *NewSaleRequest) GetAmount() float64 {
	if r == nil || r.Amount == nil {
		return 0
	}
	return *r.Amount
}

func (r *NewSaleRequest) GetCurrency() string {
	if r == nil {
		return ""
	}
	return r.Currency
}

func (r *NewSaleRequest) GetCardNumber() string {
	if r == nil {
		return ""
	}
	return r.CardNumber
}

func (r *NewSaleRequest) GetCvv() string {
	if r == nil {
		return ""
	}
	return r.Cvv
}

func (r *NewSaleRequest) GetExpirationMonth() int32 {
	if r == nil {
		return 0
	}
	return r.ExpirationMonth
}

func (r *NewSaleRequest) GetExpirationYear() int32 {
	if r == nil {
		return 0
	}
	return r.ExpirationYear
}

func (r *NewSaleRequest) GetHasRebill() bool {
	return r != nil && r.Rebill != nil
}

func (r *NewSaleRequest) GetRebillAmount() float64 {
	if r == nil || r.Rebill == nil {
		return 0
	}
	return r.Rebill.Amount
}

func (r *NewSaleRequest) GetRebillFrequencyDays() int32 {
	if r == nil || r.Rebill == nil {
		return 0
	}
	return r.Rebill.FrequencyDays
}

func (r *NewSaleRequest) GetRebillStartDays() int32 {
	if r == nil || r.Rebill == nil {
		return 0
	}
	return r.Rebill.StartDays
}

func (r *NewSaleRequest) GetUseThreeDS() bool {
	return r != nil && r.UseThreeDS
}

func (r *NewSaleRequest) GetMerchantSettings() map[string]string {
	if r == nil {
		return nil
	}
	return r.MerchantSettings
}

type ExistingCardSaleRequest struct {
	SiteId           string            `json:"site_id"`
	BillerName       string            `json:"biller_name"`
	Amount           *float64          `json:"amount"`
	Currency         string            `json:"currency"`
	CardHash         string            `json:"card_hash"`
	Rebill           *RebillRequest    `json:"rebill"`
	UseThreeDS       bool              `json:"use_3ds"`
	MerchantSettings map[string]string `json:"merchant_settings"`
}

func NewExistingCardSaleRequestFromContext(ctx echo.Context) (*ExistingCardSaleRequest, error) {
	var body ExistingCardSaleRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.SiteId = strings.TrimSpace(body.SiteId)
	body.BillerName = strings.ToLower(strings.TrimSpace(body.BillerName))
	body.Currency = strings.ToUpper(strings.TrimSpace(body.Currency))
	body.CardHash = strings.TrimSpace(body.CardHash)

	return &body, nil
}

func (r *ExistingCardSaleRequest) Validate() error {
	if err := validateSaleCore(r.GetSiteId(), r.GetBillerName(), r.Amount, r.GetCurrency(), r.Rebill); err != nil {
		return err
	}
	if r.GetCardHash() == "" {
		return errors.New("card_hash is required")
	}
	return nil
}

func (r *ExistingCardSaleRequest) GetSiteId() string {
	if r == nil {
		return ""
	}
	return r.SiteId
}

func (r *ExistingCardSaleRequest) GetBillerName() string {
	if r == nil {
		return ""
	}
	return r.BillerName
}

func (r *ExistingCardSaleRequest) GetAmount() float64 {
	if r == nil || r.Amount == nil {
		return 0
	}
	return *r.Amount
}

func (r *ExistingCardSaleRequest) GetCurrency() string {
	if r == nil {
		return ""
	}
	return r.Currency
}

func (r *ExistingCardSaleRequest) GetCardHash() string {
	if r == nil {
		return ""
	}
	return r.CardHash
}

func (r *ExistingCardSaleRequest) GetHasRebill() bool {
	return r != nil && r.Rebill != nil
}

func (r *ExistingCardSaleRequest) GetRebillAmount() float64 {
	if r == nil || r.Rebill == nil {
		return 0
	}
	return r.Rebill.Amount
}

func (r *ExistingCardSaleRequest) GetRebillFrequencyDays() int32 {
	if r == nil || r.Rebill == nil {
		return 0
	}
	return r.Rebill.FrequencyDays
}

func (r *ExistingCardSaleRequest) GetRebillStartDays() int32 {
	if r == nil || r.Rebill == nil {
		return 0
	}
	return r.Rebill.StartDays
}

func (r *ExistingCardSaleRequest) GetUseThreeDS() bool {
	return r != nil && r.UseThreeDS
}

func (r *ExistingCardSaleRequest) GetMerchantSettings() map[string]string {
	if r == nil {
		return nil
	}
	return r.MerchantSettings
}

type OtherPaymentSaleRequest struct {
	SiteId           string            `json:"site_id"`
	BillerName       string            `json:"biller_name"`
	Amount           *float64          `json:"amount"`
	Currency         string            `json:"currency"`
	PaymentMethod    string            `json:"payment_method"`
	AccountOwner     string            `json:"account_owner"`
	MerchantSettings map[string]string `json:"merchant_settings"`
}

func NewOtherPaymentSaleRequestFromContext(ctx echo.Context) (*OtherPaymentSaleRequest, error) {
	var body OtherPaymentSaleRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.SiteId = strings.TrimSpace(body.SiteId)
	body.BillerName = strings.ToLower(strings.TrimSpace(body.BillerName))
	body.Currency = strings.ToUpper(strings.TrimSpace(body.Currency))
	body.PaymentMethod = strings.ToLower(strings.TrimSpace(body.PaymentMethod))
	body.AccountOwner = strings.TrimSpace(body.AccountOwner)

	return &body, nil
}

func (r *OtherPaymentSaleRequest) Validate() error {
	if err := validateSaleCore(r.GetSiteId(), r.GetBillerName(), r.Amount, r.GetCurrency(), nil); err != nil {
		return err
	}
	if r.GetPaymentMethod() == "" {
		return errors.New("payment_method is required")
	}
	return nil
}

func (r *OtherPaymentSaleRequest) GetSiteId() string {
	if r == nil {
		return ""
	}
	return r.SiteId
}

func (r *OtherPaymentSaleRequest) GetBillerName() string {
	if r == nil {
		return ""
	}
	return r.BillerName
}

func (r *OtherPaymentSaleRequest) GetAmount() float64 {
	if r == nil || r.Amount == nil {
		return 0
	}
	return *r.Amount
}

func (r *OtherPaymentSaleRequest) GetCurrency() string {
	if r == nil {
		return ""
	}
	return r.Currency
}

func (r *OtherPaymentSaleRequest) GetPaymentMethod() string {
	if r == nil {
		return ""
	}
	return r.PaymentMethod
}

func (r *OtherPaymentSaleRequest) GetAccountOwner() string {
	if r == nil {
		return ""
	}
	return r.AccountOwner
}

func (r *OtherPaymentSaleRequest) GetMerchantSettings() map[string]string {
	if r == nil {
		return nil
	}
	return r.MerchantSettings
}

type GetTransactionRequest struct {
	TransactionId string
}

func NewGetTransactionRequestFromContext(ctx echo.Context) (*GetTransactionRequest, error) {
	return &GetTransactionRequest{TransactionId: strings.TrimSpace(ctx.Param("id"))}, nil
}

func (r *GetTransactionRequest) Validate() error {
	if r.GetTransactionId() == "" {
		return errors.New("transaction id is required")
	}
	return nil
}

func (r *GetTransactionRequest) GetTransactionId() string {
	if r == nil {
		return ""
	}
	return r.TransactionId
}

type AbortTransactionRequest struct {
	TransactionId string
}

func NewAbortTransactionRequestFromContext(ctx echo.Context) (*AbortTransactionRequest, error) {
	return &AbortTransactionRequest{TransactionId: strings.TrimSpace(ctx.Param("id"))}, nil
}

func (r *AbortTransactionRequest) Validate() error {
	if r.GetTransactionId() == "" {
		return errors.New("transaction id is required")
	}
	return nil
}

func (r *AbortTransactionRequest) GetTransactionId() string {
	if r == nil {
		return ""
	}
	return r.TransactionId
}

// AddBillerInteractionRequest carries a raw postback payload. The body is kept
// verbatim; billers sign or checksum their payloads and re-encoding would
// break verification.
type AddBillerInteractionRequest struct {
	TransactionId string
	BillerName    string
	Payload       string
}

func NewAddBillerInteractionRequestFromContext(ctx echo.Context) (*AddBillerInteractionRequest, error) {
	payload, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return nil, err
	}
	return &AddBillerInteractionRequest{
		TransactionId: strings.TrimSpace(ctx.Param("id")),
		BillerName:    strings.ToLower(strings.TrimSpace(ctx.Param("biller"))),
		Payload:       string(payload),
	}, nil
}

func (r *AddBillerInteractionRequest) Validate() error {
	if r.GetTransactionId() == "" {
		return errors.New("transaction id is required")
	}
	if r.GetBillerName() == "" {
		return errors.New("biller name is required")
	}
	if strings.TrimSpace(r.GetPayload()) == "" {
		return errors.New("payload is required")
	}
	return nil
}

func (r *AddBillerInteractionRequest) GetTransactionId() string {
	if r == nil {
		return ""
	}
	return r.TransactionId
}

func (r *AddBillerInteractionRequest) GetBillerName() string {
	if r == nil {
		return ""
	}
	return r.BillerName
}

func (r *AddBillerInteractionRequest) GetPayload() string {
	if r == nil {
		return ""
	}
	return r.Payload
}

type CancelRebillRequest struct {
	TransactionId string
	BillerName    string `json:"biller_name"`
}

func NewCancelRebillRequestFromContext(ctx echo.Context) (*CancelRebillRequest, error) {
	var body CancelRebillRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.TransactionId = strings.TrimSpace(ctx.Param("id"))
	body.BillerName = strings.ToLower(strings.TrimSpace(body.BillerName))
	return &body, nil
}

func (r *CancelRebillRequest) Validate() error {
	if r.GetTransactionId() == "" {
		return errors.New("transaction id is required")
	}
	if r.GetBillerName() == "" {
		return errors.New("biller_name is required")
	}
	return nil
}

func (r *CancelRebillRequest) GetTransactionId() string {
	if r == nil {
		return ""
	}
	return r.TransactionId
}

func (r *CancelRebillRequest) GetBillerName() string {
	if r == nil {
		return ""
	}
	return r.BillerName
}

type UpdateRebillRequest struct {
	TransactionId string
	BillerName    string         `json:"biller_name"`
	Rebill        *RebillRequest `json:"rebill"`
}

func NewUpdateRebillRequestFromContext(ctx echo.Context) (*UpdateRebillRequest, error) {
	var body UpdateRebillRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.TransactionId = strings.TrimSpace(ctx.Param("id"))
	body.BillerName = strings.ToLower(strings.TrimSpace(body.BillerName))
	return &body, nil
}

func (r *UpdateRebillRequest) Validate() error {
	if r.GetTransactionId() == "" {
		return errors.New("transaction id is required")
	}
	if r.GetBillerName() == "" {
		return errors.New("biller_name is required")
	}
	if r == nil || r.Rebill == nil {
		return errors.New("rebill is required")
	}
	if r.Rebill.Amount < 0 {
		return errors.New("rebill amount must be >= 0")
	}
	if r.Rebill.FrequencyDays <= 0 {
		return errors.New("rebill frequency_days must be > 0")
	}
	if r.Rebill.StartDays < 0 {
		return errors.New("rebill start_days must be >= 0")
	}
	return nil
}

func (r *UpdateRebillRequest) GetTransactionId() string {
	if r == nil {
		return ""
	}
	return r.TransactionId
}

func (r *UpdateRebillRequest) GetBillerName() string {
	if r == nil {
		return ""
	}
	return r.BillerName
}

func (r *UpdateRebillRequest) GetRebillAmount() float64 {
	if r == nil || r.Rebill == nil {
		return 0
	}
	return r.Rebill.Amount
}

func (r *UpdateRebillRequest) GetRebillFrequencyDays() int32 {
	if r == nil || r.Rebill == nil {
		return 0
	}
	return r.Rebill.FrequencyDays
}

func (r *UpdateRebillRequest) GetRebillStartDays() int32 {
	if r == nil || r.Rebill == nil {
		return 0
	}
	return r.Rebill.StartDays
}

type RebillPostbackRequest struct {
	TransactionId string
	BillerName    string
	Payload       string
}

func NewRebillPostbackRequestFromContext(ctx echo.Context) (*RebillPostbackRequest, error) {
	payload, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return nil, err
	}
	return &RebillPostbackRequest{
		TransactionId: strings.TrimSpace(ctx.Param("id")),
		BillerName:    strings.ToLower(strings.TrimSpace(ctx.Param("biller"))),
		Payload:       string(payload),
	}, nil
}

func (r *RebillPostbackRequest) Validate() error {
	if r.GetTransactionId() == "" {
		return errors.New("transaction id is required")
	}
	if r.GetBillerName() == "" {
		return errors.New("biller name is required")
	}
	if strings.TrimSpace(r.GetPayload()) == "" {
		return errors.New("payload is required")
	}
	return nil
}

func (r *RebillPostbackRequest) GetTransactionId() string {
	if r == nil {
		return ""
	}
	return r.TransactionId
}

func (r *RebillPostbackRequest) GetBillerName() string {
	if r == nil {
		return ""
	}
	return r.BillerName
}

func (r *RebillPostbackRequest) GetPayload() string {
	if r == nil {
		return ""
	}
	return r.Payload
}

type CompleteThreeDRequest struct {
	TransactionId string
	Pares         string `json:"pares"`
	Md            string `json:"md"`
}

func NewCompleteThreeDRequestFromContext(ctx echo.Context) (*CompleteThreeDRequest, error) {
	var body CompleteThreeDRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.TransactionId = strings.TrimSpace(ctx.Param("id"))
	return &body, nil
}

func (r *CompleteThreeDRequest) Validate() error {
	if r.GetTransactionId() == "" {
		return errors.New("transaction id is required")
	}
	if strings.TrimSpace(r.GetPares()) == "" {
		return errors.New("pares is required")
	}
	return nil
}

func (r *CompleteThreeDRequest) GetTransactionId() string {
	if r == nil {
		return ""
	}
	return r.TransactionId
}

func (r *CompleteThreeDRequest) GetPares() string {
	if r == nil {
		return ""
	}
	return r.Pares
}

func (r *CompleteThreeDRequest) GetMd() string {
	if r == nil {
		return ""
	}
	return r.Md
}

// SimplifiedCompleteThreeDRequest carries the raw ACS return query string,
// for merchants that forward the challenge result without parsing it.
type SimplifiedCompleteThreeDRequest struct {
	TransactionId string
	QueryString   string
}

func NewSimplifiedCompleteThreeDRequestFromContext(ctx echo.Context) (*SimplifiedCompleteThreeDRequest, error) {
	payload, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return nil, err
	}
	queryString := strings.TrimSpace(string(payload))
	if queryString == "" {
		queryString = ctx.QueryString()
	}
	return &SimplifiedCompleteThreeDRequest{
		TransactionId: strings.TrimSpace(ctx.Param("id")),
		QueryString:   queryString,
	}, nil
}

func (r *SimplifiedCompleteThreeDRequest) Validate() error {
	if r.GetTransactionId() == "" {
		return errors.New("transaction id is required")
	}
	if strings.TrimSpace(r.GetQueryString()) == "" {
		return errors.New("query string is required")
	}
	return nil
}

func (r *SimplifiedCompleteThreeDRequest) GetTransactionId() string {
	if r == nil {
		return ""
	}
	return r.TransactionId
}

func (r *SimplifiedCompleteThreeDRequest) GetQueryString() string {
	if r == nil {
		return ""
	}
	return r.QueryString
}

type LookupRequest struct {
	TransactionId       string
	DeviceFingerprintId string `json:"device_fingerprint_id"`
	StepUpResponse      string `json:"step_up_response"`
	CardNumber          string `json:"card_number"`
	Cvv                 string `json:"cvv"`
	ExpirationMonth     int32  `json:"expiration_month"`
	ExpirationYear      int32  `json:"expiration_year"`
}

func NewLookupRequestFromContext(ctx echo.Context) (*LookupRequest, error) {
	var body LookupRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.TransactionId = strings.TrimSpace(ctx.Param("id"))
	body.CardNumber = strings.TrimSpace(body.CardNumber)
	body.Cvv = strings.TrimSpace(body.Cvv)
	return &body, nil
}

func (r *LookupRequest) Validate() error {
	if r.GetTransactionId() == "" {
		return errors.New("transaction id is required")
	}
	if strings.TrimSpace(r.GetDeviceFingerprintId()) == "" && strings.TrimSpace(r.GetStepUpResponse()) == "" {
		return errors.New("device_fingerprint_id or step_up_response is required")
	}
	return nil
}

func (r *LookupRequest) GetTransactionId() string {
	if r == nil {
		return ""
	}
	return r.TransactionId
}

func (r *LookupRequest) GetDeviceFingerprintId() string {
	if r == nil {
		return ""
	}
	return r.DeviceFingerprintId
}

func (r *LookupRequest) GetStepUpResponse() string {
	if r == nil {
		return ""
	}
	return r.StepUpResponse
}

func (r *LookupRequest) GetCardNumber() string {
	if r == nil {
		return ""
	}
	return r.CardNumber
}

func (r *LookupRequest) GetCvv() string {
	if r == nil {
		return ""
	}
	return r.Cvv
}

func (r *LookupRequest) GetExpirationMonth() int32 {
	if r == nil {
		return 0
	}
	return r.ExpirationMonth
}

func (r *LookupRequest) GetExpirationYear() int32 {
	if r == nil {
		return 0
	}
	return r.ExpirationYear
}

func validateSaleCore(siteID, billerName string, amount *float64, currency string, rebill *RebillRequest) error {
	if siteID == "" {
		return errors.New("site_id is required")
	}
	if billerName == "" {
		return errors.New("biller_name is required")
	}
	if amount == nil {
		return errors.New("amount is required")
	}
	if *amount < 0 {
		return errors.New("amount must be >= 0")
	}
	if len(currency) != 3 {
		return errors.New("currency must be 3 letters")
	}
	if rebill != nil {
		if rebill.Amount < 0 {
			return errors.New("rebill amount must be >= 0")
		}
		if rebill.FrequencyDays <= 0 {
			return errors.New("rebill frequency_days must be > 0")
		}
		if rebill.StartDays < 0 {
			return errors.New("rebill start_days must be >= 0")
		}
	}
	return nil
}
