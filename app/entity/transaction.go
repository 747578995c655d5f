package entity

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type TransactionKind string

const (
	TransactionKindCharge       TransactionKind = "charge"
	TransactionKindRebillUpdate TransactionKind = "rebill_update"
)

// Transaction is the aggregate root. Identity fields (id, siteID, billerName,
// charge amount/currency) never change after creation; only the status, the
// interaction log and biller-response-derived fields mutate.
type Transaction struct {
	id                    string
	kind                  TransactionKind
	siteID                string
	billerName            string
	previousTransactionID string

	status             Status
	chargeInformation  ChargeInformation
	paymentInformation PaymentInformation

	billerChargeSettings map[string]string
	interactions         BillerInteractionCollection

	with3DS        bool
	threeDSVersion int32

	subsequentOperationFields map[string]string

	createdAt time.Time
	updatedAt time.Time
}

func NewChargeTransaction(
	siteID string,
	billerName string,
	chargeInformation ChargeInformation,
	paymentInformation PaymentInformation,
	billerChargeSettings map[string]string,
	now time.Time,
) (*Transaction, error) {
	siteID = strings.TrimSpace(siteID)
	billerName = strings.ToLower(strings.TrimSpace(billerName))
	if siteID == "" {
		return nil, fmt.Errorf("%w: site id is required", ErrMissingChargeInformation)
	}
	if billerName == "" {
		return nil, fmt.Errorf("%w: biller name is required", ErrMissingChargeInformation)
	}

	now = now.UTC()
	return &Transaction{
		id:                        uuid.NewString(),
		kind:                      TransactionKindCharge,
		siteID:                    siteID,
		billerName:                billerName,
		status:                    StatusPending,
		chargeInformation:         chargeInformation,
		paymentInformation:        paymentInformation,
		billerChargeSettings:      cloneSettings(billerChargeSettings),
		interactions:              NewBillerInteractionCollection(),
		subsequentOperationFields: map[string]string{},
		createdAt:                 now,
		updatedAt:                 now,
	}, nil
}

// NewRebillUpdateTransaction creates a rebill-lifecycle transaction that
// inherits billing identity from the referenced charge transaction.
func NewRebillUpdateTransaction(
	previous *Transaction,
	chargeInformation ChargeInformation,
	now time.Time,
) (*Transaction, error) {
	if previous == nil {
		return nil, fmt.Errorf("%w: previous transaction is required", ErrMissingChargeInformation)
	}

	now = now.UTC()
	return &Transaction{
		id:                        uuid.NewString(),
		kind:                      TransactionKindRebillUpdate,
		siteID:                    previous.siteID,
		billerName:                previous.billerName,
		previousTransactionID:     previous.id,
		status:                    StatusPending,
		chargeInformation:         chargeInformation,
		paymentInformation:        previous.paymentInformation,
		billerChargeSettings:      cloneSettings(previous.billerChargeSettings),
		interactions:              NewBillerInteractionCollection(),
		subsequentOperationFields: map[string]string{},
		createdAt:                 now,
		updatedAt:                 now,
	}, nil
}

// Rehydrate restores a persisted transaction. Repository use only; no
// validation is re-run.
func Rehydrate(
	id string,
	kind TransactionKind,
	siteID string,
	billerName string,
	previousTransactionID string,
	status Status,
	chargeInformation ChargeInformation,
	paymentInformation PaymentInformation,
	billerChargeSettings map[string]string,
	interactions BillerInteractionCollection,
	with3DS bool,
	threeDSVersion int32,
	createdAt time.Time,
	updatedAt time.Time,
) *Transaction {
	transaction := &Transaction{
		id:                    id,
		kind:                  kind,
		siteID:                siteID,
		billerName:            billerName,
		previousTransactionID: previousTransactionID,
		status:                status,
		chargeInformation:     chargeInformation,
		paymentInformation:    paymentInformation,
		billerChargeSettings:  cloneSettings(billerChargeSettings),
		interactions:          interactions,
		with3DS:               with3DS,
		threeDSVersion:        threeDSVersion,
		createdAt:             createdAt.UTC(),
		updatedAt:             updatedAt.UTC(),
	}
	transaction.subsequentOperationFields = ComputeSubsequentOperationFields(&transaction.interactions)
	return transaction
}

func (t *Transaction) ID() string                        { return t.id }
func (t *Transaction) Kind() TransactionKind             { return t.kind }
func (t *Transaction) SiteID() string                    { return t.siteID }
func (t *Transaction) BillerName() string                { return t.billerName }
func (t *Transaction) PreviousTransactionID() string     { return t.previousTransactionID }
func (t *Transaction) Status() Status                    { return t.status }
func (t *Transaction) ChargeInformation() ChargeInformation {
	return t.chargeInformation
}
func (t *Transaction) PaymentInformation() PaymentInformation {
	return t.paymentInformation
}
func (t *Transaction) With3DS() bool        { return t.with3DS }
func (t *Transaction) ThreeDSVersion() int32 { return t.threeDSVersion }
func (t *Transaction) CreatedAt() time.Time { return t.createdAt }
func (t *Transaction) UpdatedAt() time.Time { return t.updatedAt }

func (t *Transaction) BillerChargeSettings() map[string]string {
	return cloneSettings(t.billerChargeSettings)
}

func (t *Transaction) Interactions() *BillerInteractionCollection {
	return &t.interactions
}

func (t *Transaction) SubsequentOperationFields() map[string]string {
	return cloneSettings(t.subsequentOperationFields)
}

// Abort moves a pending transaction to aborted. Any other status means the
// transaction was already settled by a biller response.
func (t *Transaction) Abort(now time.Time) error {
	if !t.status.Pending() {
		return fmt.Errorf("%w: status is %s", ErrTransactionAlreadyProcessed, t.status)
	}
	t.status = StatusAborted
	t.updatedAt = now.UTC()
	return nil
}

// UpdateFromBillerResponse reconciles a biller response into the aggregate:
// the raw request/response payloads are appended to the interaction log before
// anything can fail, then the status transition runs and the 3DS flags and
// subsequent-operation fields are refreshed.
func (t *Transaction) UpdateFromBillerResponse(response BillerResponse, now time.Time) error {
	now = now.UTC()
	t.appendInteractions(response, now)

	classification, err := Classify(response)
	if err != nil {
		t.updatedAt = now
		return err
	}

	next, err := transition(t.status, classification)
	if err != nil {
		t.updatedAt = now
		return err
	}

	t.status = next
	if version := response.ThreeDSVersion(); version > 0 {
		t.with3DS = true
		t.threeDSVersion = version
	}
	t.subsequentOperationFields = ComputeSubsequentOperationFields(&t.interactions)
	t.updatedAt = now
	return nil
}

// RecordBillerInteraction appends the raw payloads of a response without
// driving a status transition. Used for the intermediate response of the NSF
// two-call protocol and for notifications that do not settle this transaction.
func (t *Transaction) RecordBillerInteraction(response BillerResponse, now time.Time) {
	now = now.UTC()
	t.appendInteractions(response, now)
	t.subsequentOperationFields = ComputeSubsequentOperationFields(&t.interactions)
	t.updatedAt = now
}

func (t *Transaction) appendInteractions(response BillerResponse, now time.Time) {
	receivedAt := response.ReceivedAt()
	if receivedAt.IsZero() {
		receivedAt = now
	}
	if request := response.RequestPayload(); request != "" {
		t.interactions.Append(NewBillerInteraction(BillerInteractionTypeRequest, request, receivedAt))
	}
	t.interactions.Append(NewBillerInteraction(BillerInteractionTypeResponse, response.ResponsePayload(), receivedAt))
}

// subsequentOperationKeys are the biller reference fields needed to run a
// later rebill/cancel/complete-3DS call against the same charge.
var subsequentOperationKeys = []string{
	"guidNo",
	"transactId",
	"referenceId",
	"merchantAccount",
	"merchantInvoiceId",
	"authNo",
	"cardHash",
	"subscriptionId",
}

// ComputeSubsequentOperationFields derives the reference fields from the
// interaction log. Pure function of the log: later responses win.
func ComputeSubsequentOperationFields(interactions *BillerInteractionCollection) map[string]string {
	fields := map[string]string{}
	for _, interaction := range interactions.Items() {
		if interaction.Type() != BillerInteractionTypeResponse {
			continue
		}
		var payload map[string]any
		if err := json.Unmarshal([]byte(interaction.Payload()), &payload); err != nil {
			continue
		}
		for _, key := range subsequentOperationKeys {
			if raw, ok := payload[key]; ok {
				if value, ok := raw.(string); ok && value != "" {
					fields[key] = value
				}
			}
		}
	}
	return fields
}

func cloneSettings(src map[string]string) map[string]string {
	if len(src) == 0 {
		return map[string]string{}
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
