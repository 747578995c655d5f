package entity

import "errors"

var (
	ErrMissingChargeInformation    = errors.New("missing charge information")
	ErrInvalidChargeInformation    = errors.New("invalid charge information")
	ErrInvalidPaymentInformation   = errors.New("invalid payment information")
	ErrIllegalStateTransition      = errors.New("illegal state transition")
	ErrTransactionAlreadyProcessed = errors.New("transaction already processed")
	ErrPostbackAlreadyProcessed    = errors.New("postback already processed")
	ErrUnclassifiedBillerResponse  = errors.New("biller response could not be classified")
)
