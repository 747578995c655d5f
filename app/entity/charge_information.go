package entity

import (
	"fmt"
	"math"
	"strings"
)

// Amount is a non-negative monetary value. Zero is a valid sale amount
// (trial charges); negatives and non-finite values are rejected.
type Amount struct {
	value float64
}

func NewAmount(value float64) (Amount, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Amount{}, fmt.Errorf("%w: amount must be a finite number", ErrInvalidChargeInformation)
	}
	if value < 0 {
		return Amount{}, fmt.Errorf("%w: amount must not be negative", ErrInvalidChargeInformation)
	}
	return Amount{value: value}, nil
}

func (a Amount) Value() float64 {
	return a.value
}

type Currency struct {
	code string
}

func NewCurrency(code string) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return Currency{}, fmt.Errorf("%w: currency is required", ErrMissingChargeInformation)
	}
	return Currency{code: code}, nil
}

func (c Currency) Code() string {
	return c.code
}

// Rebill is a recurring-charge schedule attached to an original sale.
// Once set on a transaction's charge information it never changes.
type Rebill struct {
	amount        Amount
	frequencyDays int32
	startDays     int32
}

func NewRebill(amount Amount, frequencyDays, startDays int32) (Rebill, error) {
	if frequencyDays <= 0 {
		return Rebill{}, fmt.Errorf("%w: rebill frequency must be positive", ErrInvalidChargeInformation)
	}
	if startDays < 0 {
		return Rebill{}, fmt.Errorf("%w: rebill start delay must not be negative", ErrInvalidChargeInformation)
	}
	return Rebill{amount: amount, frequencyDays: frequencyDays, startDays: startDays}, nil
}

func (r Rebill) Amount() Amount {
	return r.amount
}

func (r Rebill) FrequencyDays() int32 {
	return r.frequencyDays
}

func (r Rebill) StartDays() int32 {
	return r.startDays
}

type ChargeInformation struct {
	amount   Amount
	currency Currency
	rebill   *Rebill
}

// NewChargeInformation builds the charge for a sale. A nil rebill means a
// single charge with no recurring schedule.
func NewChargeInformation(amount Amount, currency Currency, rebill *Rebill) ChargeInformation {
	var r *Rebill
	if rebill != nil {
		copied := *rebill
		r = &copied
	}
	return ChargeInformation{amount: amount, currency: currency, rebill: r}
}

func (c ChargeInformation) Amount() Amount {
	return c.amount
}

func (c ChargeInformation) Currency() Currency {
	return c.currency
}

func (c ChargeInformation) Rebill() *Rebill {
	if c.rebill == nil {
		return nil
	}
	copied := *c.rebill
	return &copied
}
