package apperror

import "errors"

type Code string

const (
	CodeValidation Code = "validation"
	CodeNotFound   Code = "not_found"
	CodeConflict   Code = "conflict"
	// CodeRuleViolation marks a request that is well formed but breaks a
	// structural rule of the data (cycles, dependents on delete).
	CodeRuleViolation Code = "rule_violation"
	CodeInternal      Code = "internal"
)

// Error is the typed failure returned by services. Reason is a stable,
// machine-readable identifier such as "CYCLE_DETECTED".
type Error struct {
	Code    Code
	Reason  string
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Reason:  defaultReason(code),
		Message: message,
	}
}

// Wrap attaches code, reason and message to a sentinel so callers can match
// with errors.Is while the HTTP layer maps the code.
func Wrap(code Code, reason string, err error, message string) *Error {
	return &Error{
		Code:    code,
		Reason:  reason,
		Message: message,
		Err:     err,
	}
}

// Validation reports invalid input, one detail line per rejected field.
func Validation(message string, details []string) *Error {
	e := New(CodeValidation, message)
	e.Details = details
	return e
}

func GetDetails(err error) []string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Details
	}
	return nil
}

func GetCode(err error) Code {
	if err == nil {
		return ""
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}

	return CodeInternal
}

func GetReason(err error) string {
	if err == nil {
		return ""
	}

	var appErr *Error
	if errors.As(err, &appErr) && appErr.Reason != "" {
		return appErr.Reason
	}

	return defaultReason(GetCode(err))
}

func defaultReason(code Code) string {
	switch code {
	case CodeValidation:
		return "VALIDATION_FAILED"
	case CodeNotFound:
		return "RESOURCE_NOT_FOUND"
	case CodeConflict:
		return "CONFLICT"
	case CodeRuleViolation:
		return "BUSINESS_ERROR"
	default:
		return "INTERNAL_SERVER_ERROR"
	}
}
