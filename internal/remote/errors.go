package remote

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes remote failures.
type ErrorCode string

const (
	// CodeNotFound indicates the document does not exist yet.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeNetworkFailure indicates the request did not get a usable
	// answer: transport error, timeout, 5xx or an unreadable body.
	CodeNetworkFailure ErrorCode = "NETWORK_FAILURE"

	// CodeRejected indicates the server refused the request.
	CodeRejected ErrorCode = "REJECTED"
)

// Error is returned by Remote implementations.
type Error struct {
	Code ErrorCode
	Op   string
	ID   string
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("remote %s %s: %s", e.Op, e.ID, e.Code)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// IsNotFound reports whether err means the document does not exist.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsNetworkFailure reports whether err is a transient failure worth
// retrying on the next reconcile.
func IsNetworkFailure(err error) bool {
	return hasCode(err, CodeNetworkFailure)
}

func hasCode(err error, code ErrorCode) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}
