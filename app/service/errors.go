package service

import "errors"

var (
	ErrInvalidCommand = errors.New("invalid command")

	ErrTransactionNotFound                 = errors.New("transaction not found")
	ErrPreviousTransactionNotFound         = errors.New("previous transaction not found")
	ErrPreviousTransactionShouldBeApproved = errors.New("previous transaction should be approved")
	ErrInvalidBillerName                   = errors.New("invalid biller name")
	ErrInvalidStatus                       = errors.New("invalid transaction status")
	ErrRebillNotSet                        = errors.New("rebill is not set on the previous transaction")

	ErrTransactionCreation = errors.New("transaction creation failed")
	ErrTransactionLookup   = errors.New("transaction lookup failed")
)
