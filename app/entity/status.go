package entity

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusPending     Status = "pending"
	StatusApproved    Status = "approved"
	StatusDeclined    Status = "declined"
	StatusAborted     Status = "aborted"
	StatusChargedback Status = "chargedback"
	StatusRefunded    Status = "refunded"
)

func (s Status) Pending() bool {
	return s == StatusPending
}

func (s Status) Approved() bool {
	return s == StatusApproved
}

func (s Status) Declined() bool {
	return s == StatusDeclined
}

func (s Status) Aborted() bool {
	return s == StatusAborted
}

func (s Status) Chargedback() bool {
	return s == StatusChargedback
}

func (s Status) Refunded() bool {
	return s == StatusRefunded
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusDeclined, StatusAborted, StatusChargedback, StatusRefunded:
		return true
	default:
		return false
	}
}

// Classification is the outcome read off a biller response, driving the
// status transition.
type Classification string

const (
	ClassificationApproved    Classification = "approved"
	ClassificationDeclined    Classification = "declined"
	ClassificationAborted     Classification = "aborted"
	ClassificationPending     Classification = "pending"
	ClassificationChargedback Classification = "chargedback"
	ClassificationRefunded    Classification = "refunded"
)

// BillerResponse is the capability view every biller-specific response
// satisfies. Exactly one of the four outcome queries is expected to be true;
// a response where none holds cannot be classified.
type BillerResponse interface {
	Approved() bool
	Declined() bool
	Aborted() bool
	Pending() bool
	Chargedback() bool
	Refunded() bool
	Code() string
	Reason() string
	RequestPayload() string
	ResponsePayload() string
	ThreeDSVersion() int32
	ReceivedAt() time.Time
}

func Classify(response BillerResponse) (Classification, error) {
	switch {
	case response.Approved():
		return ClassificationApproved, nil
	case response.Declined():
		return ClassificationDeclined, nil
	case response.Aborted():
		return ClassificationAborted, nil
	case response.Pending():
		return ClassificationPending, nil
	case response.Chargedback():
		return ClassificationChargedback, nil
	case response.Refunded():
		return ClassificationRefunded, nil
	default:
		return "", fmt.Errorf("%w: code=%q", ErrUnclassifiedBillerResponse, response.Code())
	}
}

// transition is the single place the legal status table lives. A pending
// classification keeps a pending transaction pending (3DS step-up still in
// flight). Re-delivering the classification a non-pending transaction already
// settled on is the duplicate-postback case; any other move off a settled
// status is illegal.
func transition(current Status, classification Classification) (Status, error) {
	if current.Pending() {
		switch classification {
		case ClassificationApproved:
			return StatusApproved, nil
		case ClassificationDeclined:
			return StatusDeclined, nil
		case ClassificationAborted:
			return StatusAborted, nil
		case ClassificationPending:
			return StatusPending, nil
		}
		return "", fmt.Errorf("%w: %s -> %s", ErrIllegalStateTransition, current, classification)
	}

	if current.Approved() {
		switch classification {
		case ClassificationChargedback:
			return StatusChargedback, nil
		case ClassificationRefunded:
			return StatusRefunded, nil
		}
	}

	if statusFor(classification) == current {
		return "", fmt.Errorf("%w: transaction is already %s", ErrPostbackAlreadyProcessed, current)
	}
	return "", fmt.Errorf("%w: %s -> %s", ErrIllegalStateTransition, current, classification)
}

func statusFor(classification Classification) Status {
	switch classification {
	case ClassificationApproved:
		return StatusApproved
	case ClassificationDeclined:
		return StatusDeclined
	case ClassificationAborted:
		return StatusAborted
	case ClassificationChargedback:
		return StatusChargedback
	case ClassificationRefunded:
		return StatusRefunded
	default:
		return StatusPending
	}
}
