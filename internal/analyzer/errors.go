package analyzer

import (
	"errors"
	"fmt"
)

// Code is the closed set of user-facing outcome labels. Exactly one code
// is reported per analysis call.
type Code string

const (
	// CodeValidation is bad or missing input; actionable by the student.
	CodeValidation Code = "validation"
	// CodeNotFound means the question does not exist.
	CodeNotFound Code = "not_found"
	// CodeUnreadableHandwriting means the model judged the image illegible.
	CodeUnreadableHandwriting Code = "unreadable_handwriting"
	// CodeTimeout means the analysis exceeded its time budget.
	CodeTimeout Code = "timeout"
	// CodeRateLimited means the provider refused for load reasons.
	CodeRateLimited Code = "rate_limited"
	// CodeTooLarge means the provider rejected the payload size.
	CodeTooLarge Code = "too_large"
	// CodeAnalysisFailed covers all other provider and parsing failures.
	CodeAnalysisFailed Code = "analysis_failed"
	// CodeInternal is an unexpected failure inside the pipeline.
	CodeInternal Code = "internal"
)

// Failure is the single error type AnalyzeAnswer returns. Message is safe
// to show to the student; Err holds the internal cause for logging.
type Failure struct {
	Code    Code
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Code, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// AsFailure extracts the Failure from an analysis error, downgrading
// anything unrecognized to an internal failure.
func AsFailure(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Code: CodeInternal, Message: "an unexpected error occurred", Err: err}
}

func failf(code Code, format string, args ...any) *Failure {
	return &Failure{Code: code, Message: fmt.Sprintf(format, args...)}
}
