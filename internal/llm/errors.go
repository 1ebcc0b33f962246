package llm

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an adapter failure.
type ErrorKind string

const (
	// KindAuth is an authentication rejection. Never retried.
	KindAuth ErrorKind = "auth"
	// KindBadRequest is a malformed-request rejection. Never retried.
	KindBadRequest ErrorKind = "bad_request"
	// KindTimeout means an attempt exceeded its wall-clock budget.
	KindTimeout ErrorKind = "timeout"
	// KindRateLimited is a provider rate-limit signal.
	KindRateLimited ErrorKind = "rate_limited"
	// KindPayloadTooLarge means the provider rejected the request size.
	KindPayloadTooLarge ErrorKind = "payload_too_large"
	// KindUnreadableHandwriting means the provider judged the image illegible.
	KindUnreadableHandwriting ErrorKind = "unreadable_handwriting"
	// KindNoContent means the completion carried no text output.
	KindNoContent ErrorKind = "no_content"
	// KindInvalidJSON means no repair attempt produced parseable JSON.
	// Never retried: a second call adds no new information.
	KindInvalidJSON ErrorKind = "invalid_json"
	// KindInvalidStructure means the JSON parsed but lacked the required
	// result sections. Never retried.
	KindInvalidStructure ErrorKind = "invalid_structure"
	// KindAPI is any other provider-side failure.
	KindAPI ErrorKind = "api"
)

// Error is an adapter failure with a stable kind for the orchestrator's
// outcome mapping.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the degradation ladder may try again after
// this failure. Auth and malformed-request rejections propagate
// immediately, as do parse failures.
func Retryable(err error) bool {
	var lerr *Error
	if !errors.As(err, &lerr) {
		return true
	}
	switch lerr.Kind {
	case KindAuth, KindBadRequest, KindInvalidJSON, KindInvalidStructure:
		return false
	}
	return true
}
