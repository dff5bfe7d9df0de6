// Package shared holds what every domain package needs: error kinds,
// domain events and the clock/ID source. It imports nothing outside the
// standard library.
package shared

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is; the Is* helpers group them the
// way the API and CLI map them to status codes.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	ErrValidation    = errors.New("validation error")
	ErrInvalidID     = errors.New("invalid ID")
	ErrInvalidInput  = errors.New("invalid input")
	ErrEmptyValue    = errors.New("value cannot be empty")
	ErrNegativeValue = errors.New("value cannot be negative")

	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrClassNotEmpty       = errors.New("class is not empty")

	ErrCorruptSnapshot    = errors.New("corrupt snapshot")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrServiceUnavailable = errors.New("service unavailable")
)

var (
	validationKinds = []error{ErrValidation, ErrInvalidID, ErrInvalidInput, ErrEmptyValue, ErrNegativeValue}
	conflictKinds   = []error{ErrInsufficientBalance, ErrClassNotEmpty, ErrAlreadyExists}
)

// DomainError carries the failing component and operation together with
// an error kind and, optionally, the error that caused it.
//
//	student.Redeem: "Sticker" costs 30, balance is 12: insufficient balance
type DomainError struct {
	Domain  string // student, reward, classroom, snapshot, ...
	Op      string
	Kind    error
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	msg := e.Domain + "." + e.Op + ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *DomainError) Unwrap() []error {
	var out []error
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message}
}

func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message, Err: err}
}

// NotFound reports a missing entity by id.
func NotFound(domain, op, entity, id string) *DomainError {
	return NewDomainError(domain, op, ErrNotFound, fmt.Sprintf("%s %q not found", entity, id))
}

// Invalid reports a rejected argument.
func Invalid(domain, op, message string) *DomainError {
	return NewDomainError(domain, op, ErrInvalidInput, message)
}

func IsNotFound(err error) bool      { return errors.Is(err, ErrNotFound) }
func IsAlreadyExists(err error) bool { return errors.Is(err, ErrAlreadyExists) }
func IsValidation(err error) bool    { return isAny(err, validationKinds) }

// IsConflict reports errors caused by the current ledger state rather than
// by the request.
func IsConflict(err error) bool { return isAny(err, conflictKinds) }

// IsRetryable reports storage failures a caller may try again.
func IsRetryable(err error) bool { return errors.Is(err, ErrServiceUnavailable) }

func isAny(err error, kinds []error) bool {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}
