package biller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	rocketgateReasonApproved         = "0"
	rocketgateReasonAuthRequired3DS  = "202"
	rocketgateReasonInitiation3DS2   = "225"
	rocketgateReasonBypass3DS        = "228"
	rocketgateReasonInsufficientFund = "105"
)

type RocketgateConfig struct {
	GatewayURL       string
	MerchantID       string
	MerchantPassword string
	HTTPTimeout      time.Duration
}

type RocketgateBiller struct {
	cfg    RocketgateConfig
	client *http.Client
}

func NewRocketgateBiller(cfg RocketgateConfig) *RocketgateBiller {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RocketgateBiller{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (b *RocketgateBiller) Name() string {
	return NameRocketgate
}

func (b *RocketgateBiller) ChargeNewCreditCard(ctx context.Context, input *ChargeInput) (*Response, error) {
	request := b.baseRequest(input.TransactionID, input.MerchantSettings)
	request["amount"] = input.Amount
	request["currency"] = input.Currency
	request["cardNo"] = input.CardNumber
	request["cvv2"] = input.CVV
	request["expireMonth"] = input.ExpirationMonth
	request["expireYear"] = input.ExpirationYear
	request["use3DSecure"] = input.UseThreeDS
	applyRebill(request, input.Rebill)

	return b.call(ctx, "/gateway/servlet/ServiceDispatcherAccess", request)
}

func (b *RocketgateBiller) ChargeExistingCreditCard(ctx context.Context, input *ChargeInput) (*Response, error) {
	request := b.baseRequest(input.TransactionID, input.MerchantSettings)
	request["amount"] = input.Amount
	request["currency"] = input.Currency
	request["cardHash"] = input.CardHash
	request["use3DSecure"] = input.UseThreeDS
	applyRebill(request, input.Rebill)

	return b.call(ctx, "/gateway/servlet/ServiceDispatcherAccess", request)
}

func (b *RocketgateBiller) ChargeOtherPaymentType(ctx context.Context, input *ChargeInput) (*Response, error) {
	request := b.baseRequest(input.TransactionID, input.MerchantSettings)
	request["amount"] = input.Amount
	request["currency"] = input.Currency
	request["paymentType"] = input.PaymentMethod
	request["accountOwner"] = input.AccountOwner

	return b.call(ctx, "/gateway/servlet/ServiceDispatcherAccess", request)
}

func (b *RocketgateBiller) StartRebill(ctx context.Context, input *RebillOperationInput) (*Response, error) {
	return b.rebillOperation(ctx, "start", input)
}

func (b *RocketgateBiller) UpdateRebill(ctx context.Context, input *RebillOperationInput) (*Response, error) {
	return b.rebillOperation(ctx, "update", input)
}

func (b *RocketgateBiller) SuspendRebill(ctx context.Context, input *RebillOperationInput) (*Response, error) {
	return b.rebillOperation(ctx, "suspend", input)
}

func (b *RocketgateBiller) CancelRebill(ctx context.Context, input *RebillOperationInput) (*Response, error) {
	return b.rebillOperation(ctx, "cancel", input)
}

func (b *RocketgateBiller) rebillOperation(ctx context.Context, operation string, input *RebillOperationInput) (*Response, error) {
	request := b.baseRequest(input.TransactionID, input.MerchantSettings)
	request["rebillOperation"] = operation
	request["amount"] = input.Amount
	request["currency"] = input.Currency
	request["rebillFrequency"] = input.FrequencyDays
	request["rebillStart"] = input.StartDays
	for key, value := range input.ReferenceFields {
		request[key] = value
	}

	return b.call(ctx, "/gateway/servlet/RebillAccess", request)
}

func (b *RocketgateBiller) CompleteThreeD(ctx context.Context, input *CompleteThreeDInput) (*Response, error) {
	request := b.baseRequest(input.TransactionID, input.MerchantSettings)
	request["pares"] = input.PARES
	request["md"] = input.MD
	request["cvv2"] = input.CVV
	for key, value := range input.ReferenceFields {
		request[key] = value
	}

	return b.call(ctx, "/gateway/servlet/ThreeDSecureAccess", request)
}

func (b *RocketgateBiller) CardUpload(ctx context.Context, input *ChargeInput) (*Response, error) {
	request := b.baseRequest(input.TransactionID, input.MerchantSettings)
	request["cardNo"] = input.CardNumber
	request["cvv2"] = input.CVV
	request["expireMonth"] = input.ExpirationMonth
	request["expireYear"] = input.ExpirationYear
	request["cardUpload"] = true

	return b.call(ctx, "/gateway/servlet/CardUploadAccess", request)
}

func (b *RocketgateBiller) PerformLookup(ctx context.Context, input *LookupInput) (*Response, error) {
	request := b.baseRequest(input.TransactionID, input.MerchantSettings)
	request["deviceFingerprintId"] = input.DeviceFingerprintID
	request["stepUpResponse"] = input.StepUpResponse
	for key, value := range input.ReferenceFields {
		request[key] = value
	}

	return b.call(ctx, "/gateway/servlet/LookupAccess", request)
}

func (b *RocketgateBiller) TranslatePostback(_ context.Context, input *PostbackInput) (*Response, error) {
	var payload rocketgatePayload
	if err := json.Unmarshal([]byte(input.Payload), &payload); err != nil {
		return nil, fmt.Errorf("rocketgate postback payload: %w", err)
	}
	return b.buildResponse("", input.Payload, payload), nil
}

func (b *RocketgateBiller) RetrieveQrCode(_ context.Context, _ *QrCodeInput) (*QrCode, error) {
	return nil, ErrOperationNotSupported
}

func (b *RocketgateBiller) baseRequest(transactionID string, merchantSettings map[string]string) map[string]any {
	request := map[string]any{
		"merchantId":       b.cfg.MerchantID,
		"merchantPassword": b.cfg.MerchantPassword,
		"merchantInvoiceId": transactionID,
	}
	for key, value := range merchantSettings {
		request[key] = value
	}
	return request
}

type rocketgatePayload struct {
	ResponseCode string `json:"responseCode"`
	ReasonCode   string `json:"reasonCode"`
	ReasonDesc   string `json:"reasonDesc"`

	GuidNo     string `json:"guidNo"`
	AuthNo     string `json:"authNo"`
	CardHash   string `json:"cardHash"`
	RetrievalNo string `json:"retrievalNo"`

	ACSURL string `json:"acsURL"`
	PAREQ  string `json:"PAREQ"`
	MD     string `json:"MD"`

	DeviceCollectionURL string `json:"_3DSECURE_DEVICE_COLLECTION_URL"`
	DeviceCollectionJWT string `json:"_3DSECURE_DEVICE_COLLECTION_JWT"`
	StepUpURL           string `json:"_3DSECURE_STEP_UP_URL"`
	StepUpJWT           string `json:"_3DSECURE_STEP_UP_JWT"`

	TransactionType string `json:"transactionType"`
}

func (b *RocketgateBiller) call(ctx context.Context, path string, request map[string]any) (*Response, error) {
	requestJSON, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(b.cfg.GatewayURL, "/")+path, bytes.NewReader(requestJSON))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if httpResp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: rocketgate returned status=%d", ErrUnavailable, httpResp.StatusCode)
	}

	var payload rocketgatePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("rocketgate response payload: %w", err)
	}

	return b.buildResponse(redactRequest(request), string(body), payload), nil
}

func (b *RocketgateBiller) buildResponse(requestJSON, responseJSON string, payload rocketgatePayload) *Response {
	response := &Response{
		ReasonCode:    payload.ReasonCode,
		ReasonMessage: payload.ReasonDesc,
		Request:       requestJSON,
		Payload:       responseJSON,
		At:            time.Now().UTC(),
	}

	switch payload.ReasonCode {
	case rocketgateReasonApproved:
		response.Result = ResultApproved
		if strings.EqualFold(payload.TransactionType, "chargeback") {
			response.Result = ResultChargedback
		}
		if strings.EqualFold(payload.TransactionType, "refund") {
			response.Result = ResultRefunded
		}
	case rocketgateReasonAuthRequired3DS:
		response.Result = ResultPending
		response.ThreeDS = &ThreeDSChallenge{
			Version: 1,
			ACSURL:  payload.ACSURL,
			PAREQ:   payload.PAREQ,
			MD:      payload.MD,
		}
	case rocketgateReasonInitiation3DS2:
		response.Result = ResultPending
		response.ThreeDS = &ThreeDSChallenge{
			Version:             2,
			DeviceCollectionURL: payload.DeviceCollectionURL,
			DeviceCollectionJWT: payload.DeviceCollectionJWT,
			StepUpURL:           payload.StepUpURL,
			StepUpJWT:           payload.StepUpJWT,
		}
	case rocketgateReasonBypass3DS:
		response.Result = ResultDeclined
		response.ThreeDSBypassed = true
	case rocketgateReasonInsufficientFund:
		response.Result = ResultDeclined
		response.NSF = true
	default:
		response.Result = ResultDeclined
	}

	return response
}

func applyRebill(request map[string]any, rebill *RebillSchedule) {
	if rebill == nil {
		return
	}
	request["rebillAmount"] = rebill.Amount
	request["rebillFrequency"] = rebill.FrequencyDays
	request["rebillStart"] = rebill.StartDays
}

// redactRequest strips card secrets before the request payload enters the
// interaction log. CVV is never persisted anywhere.
func redactRequest(request map[string]any) string {
	redacted := make(map[string]any, len(request))
	for key, value := range request {
		redacted[key] = value
	}
	delete(redacted, "cvv2")
	delete(redacted, "merchantPassword")
	if cardNo, ok := redacted["cardNo"].(string); ok && len(cardNo) > 10 {
		redacted["cardNo"] = cardNo[:6] + strings.Repeat("*", len(cardNo)-10) + cardNo[len(cardNo)-4:]
	}
	payload, err := json.Marshal(redacted)
	if err != nil {
		return ""
	}
	return string(payload)
}
