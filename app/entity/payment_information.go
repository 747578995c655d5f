package entity

import (
	"fmt"
	"strings"
)

type PaymentType string

const (
	PaymentTypeNewCreditCard      PaymentType = "new_credit_card"
	PaymentTypeExistingCreditCard PaymentType = "existing_credit_card"
	PaymentTypeOther              PaymentType = "other"
)

// PaymentInformation describes the instrument used for a charge. Card numbers
// are masked at construction and the CVV is never part of this value; handlers
// pass the CVV straight to the biller (and the short-lived 3DS cache) only.
type PaymentInformation struct {
	paymentType PaymentType

	cardNumberMasked string
	expirationMonth  int32
	expirationYear   int32

	cardHash string

	paymentMethod string
	accountOwner  string
}

func NewCreditCardInformation(cardNumber string, expirationMonth, expirationYear int32) (PaymentInformation, error) {
	cardNumber = strings.ReplaceAll(strings.TrimSpace(cardNumber), " ", "")
	if len(cardNumber) < 12 || len(cardNumber) > 19 {
		return PaymentInformation{}, fmt.Errorf("%w: card number length is invalid", ErrInvalidPaymentInformation)
	}
	for _, r := range cardNumber {
		if r < '0' || r > '9' {
			return PaymentInformation{}, fmt.Errorf("%w: card number must be numeric", ErrInvalidPaymentInformation)
		}
	}
	if expirationMonth < 1 || expirationMonth > 12 {
		return PaymentInformation{}, fmt.Errorf("%w: expiration month is invalid", ErrInvalidPaymentInformation)
	}
	if expirationYear < 2000 {
		return PaymentInformation{}, fmt.Errorf("%w: expiration year is invalid", ErrInvalidPaymentInformation)
	}

	return PaymentInformation{
		paymentType:      PaymentTypeNewCreditCard,
		cardNumberMasked: maskCardNumber(cardNumber),
		expirationMonth:  expirationMonth,
		expirationYear:   expirationYear,
	}, nil
}

func ExistingCreditCardInformation(cardHash string) (PaymentInformation, error) {
	cardHash = strings.TrimSpace(cardHash)
	if cardHash == "" {
		return PaymentInformation{}, fmt.Errorf("%w: card hash is required", ErrInvalidPaymentInformation)
	}
	return PaymentInformation{
		paymentType: PaymentTypeExistingCreditCard,
		cardHash:    cardHash,
	}, nil
}

func OtherPaymentInformation(paymentMethod, accountOwner string) (PaymentInformation, error) {
	paymentMethod = strings.ToLower(strings.TrimSpace(paymentMethod))
	if paymentMethod == "" {
		return PaymentInformation{}, fmt.Errorf("%w: payment method is required", ErrInvalidPaymentInformation)
	}
	return PaymentInformation{
		paymentType:   PaymentTypeOther,
		paymentMethod: paymentMethod,
		accountOwner:  strings.TrimSpace(accountOwner),
	}, nil
}

// RehydratePaymentInformation restores a persisted value without re-running
// construction validation. Repository use only.
func RehydratePaymentInformation(
	paymentType PaymentType,
	cardNumberMasked string,
	expirationMonth, expirationYear int32,
	cardHash, paymentMethod, accountOwner string,
) PaymentInformation {
	return PaymentInformation{
		paymentType:      paymentType,
		cardNumberMasked: cardNumberMasked,
		expirationMonth:  expirationMonth,
		expirationYear:   expirationYear,
		cardHash:         cardHash,
		paymentMethod:    paymentMethod,
		accountOwner:     accountOwner,
	}
}

func (p PaymentInformation) Type() PaymentType {
	return p.paymentType
}

func (p PaymentInformation) CardNumberMasked() string {
	return p.cardNumberMasked
}

func (p PaymentInformation) ExpirationMonth() int32 {
	return p.expirationMonth
}

func (p PaymentInformation) ExpirationYear() int32 {
	return p.expirationYear
}

func (p PaymentInformation) CardHash() string {
	return p.cardHash
}

func (p PaymentInformation) PaymentMethod() string {
	return p.paymentMethod
}

func (p PaymentInformation) AccountOwner() string {
	return p.accountOwner
}

func maskCardNumber(cardNumber string) string {
	first := cardNumber[:6]
	last := cardNumber[len(cardNumber)-4:]
	return first + strings.Repeat("*", len(cardNumber)-10) + last
}
