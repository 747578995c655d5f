package types

type HealthResponse struct {
	Status       string   `json:"status"`
	OpenCircuits []string `json:"open_circuits,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type Rebill struct {
	Amount        float64 `json:"amount"`
	FrequencyDays int32   `json:"frequency_days"`
	StartDays     int32   `json:"start_days"`
}

type Transaction struct {
	Id                    string  `json:"id"`
	Kind                  string  `json:"kind"`
	SiteId                string  `json:"site_id"`
	BillerName            string  `json:"biller_name"`
	PreviousTransactionId string  `json:"previous_transaction_id,omitempty"`
	Status                string  `json:"status"`
	Amount                float64 `json:"amount"`
	Currency              string  `json:"currency"`
	Rebill                *Rebill `json:"rebill,omitempty"`

	PaymentType      string `json:"payment_type"`
	CardNumberMasked string `json:"card_number_masked,omitempty"`

	With3D         bool  `json:"with_3d"`
	ThreedsVersion int32 `json:"threeds_version,omitempty"`

	BillerInteractionCount int `json:"biller_interaction_count"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type MappingCriteria struct {
	BillerName string `json:"biller_name"`
	Code       string `json:"code"`
}

type ErrorClassification struct {
	Groups            string          `json:"groups"`
	Errors            string          `json:"errors"`
	RecommendedAction string          `json:"recommended_action"`
	MappingCriteria   MappingCriteria `json:"mapping_criteria"`
}

type TransactionEnvelopeResponse struct {
	Transaction         *Transaction         `json:"transaction"`
	ErrorClassification *ErrorClassification `json:"error_classification,omitempty"`
}

type QrCodeResponse struct {
	EncryptedPayload string `json:"encrypted_payload"`
	ExpiresInSeconds int64  `json:"expires_in_seconds"`
}
