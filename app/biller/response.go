package biller

import (
	"encoding/json"
	"time"
)

type Result string

const (
	ResultApproved    Result = "approved"
	ResultDeclined    Result = "declined"
	ResultAborted     Result = "aborted"
	ResultPending     Result = "pending"
	ResultChargedback Result = "chargedback"
	ResultRefunded    Result = "refunded"
)

// ThreeDSChallenge carries the step-up material a biller returned alongside a
// pending response. Version 1 uses ACS redirect fields, version 2 device
// collection and step-up JWTs.
type ThreeDSChallenge struct {
	Version int32

	ACSURL string
	PAREQ  string
	MD     string

	DeviceCollectionURL string
	DeviceCollectionJWT string
	StepUpURL           string
	StepUpJWT           string
}

// Response is the normalized outcome of one biller call. It satisfies the
// transaction aggregate's capability interface; biller-specific clients fill
// it from their own wire formats.
type Response struct {
	Result        Result
	ReasonCode    string
	ReasonMessage string

	Request string
	Payload string

	ThreeDS *ThreeDSChallenge

	// NSF is set on declines that signal non-sufficient funds, enabling the
	// card-upload fallback for sites that opted in.
	NSF bool

	// ThreeDSBypassed is set when the biller rejected the 3DS flow and the
	// charge should be retried without 3DS.
	ThreeDSBypassed bool

	At time.Time
}

func (r *Response) Approved() bool    { return r.Result == ResultApproved }
func (r *Response) Declined() bool    { return r.Result == ResultDeclined }
func (r *Response) Aborted() bool     { return r.Result == ResultAborted }
func (r *Response) Pending() bool     { return r.Result == ResultPending }
func (r *Response) Chargedback() bool { return r.Result == ResultChargedback }
func (r *Response) Refunded() bool    { return r.Result == ResultRefunded }

func (r *Response) Code() string           { return r.ReasonCode }
func (r *Response) Reason() string         { return r.ReasonMessage }
func (r *Response) RequestPayload() string { return r.Request }
func (r *Response) ResponsePayload() string {
	return r.Payload
}

func (r *Response) ThreeDSVersion() int32 {
	if r.ThreeDS == nil {
		return 0
	}
	return r.ThreeDS.Version
}

func (r *Response) ReceivedAt() time.Time { return r.At }

// AbortedResponse normalizes a transport failure, timeout or open circuit
// into an aborted outcome so the audit trail still records what happened.
func AbortedResponse(reason string, at time.Time) *Response {
	payload, _ := json.Marshal(map[string]string{"error": reason})
	return &Response{
		Result:        ResultAborted,
		ReasonCode:    "aborted",
		ReasonMessage: reason,
		Payload:       string(payload),
		At:            at.UTC(),
	}
}
