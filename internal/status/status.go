package status

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidInput            = errors.New("ticket: invalid input")
	ErrNotFound                = errors.New("ticket: not found")
	ErrDuplicateCode           = errors.New("ticket: duplicate code")
	ErrCodeGenerationExhausted = errors.New("ticket: code generation exhausted")
	ErrConflict                = errors.New("ticket: concurrent update conflict")
	ErrStorageUnavailable      = errors.New("ticket: storage unavailable")
	ErrDuplicatePurchase       = errors.New("ticket: duplicate purchase in progress")
	ErrAmountMismatch          = errors.New("payment: amount does not match ticket total")
	ErrRateLimited             = errors.New("request: rate limit exceeded")
	ErrForbidden               = errors.New("request: access denied")
	ErrUnauthorized            = errors.New("request: authentication required")

	ErrInvalidTransition = errors.New("ticket: invalid transition")
	ErrAlreadyScanned    = fmt.Errorf("%w: ticket already scanned", ErrInvalidTransition)
	ErrTicketCancelled   = fmt.Errorf("%w: ticket cancelled", ErrInvalidTransition)
	ErrTicketRefunded    = fmt.Errorf("%w: ticket refunded", ErrInvalidTransition)
	ErrTicketExpired     = fmt.Errorf("%w: ticket expired", ErrInvalidTransition)
	ErrTicketNotActive   = fmt.Errorf("%w: ticket not active", ErrInvalidTransition)
)

// Stable error codes carried in API error bodies.
const (
	CodeInvalidInput            = "INVALID_INPUT"
	CodeNotFound                = "NOT_FOUND"
	CodeInvalidTransition       = "INVALID_TRANSITION"
	CodeAlreadyScanned          = "ALREADY_SCANNED"
	CodeTicketCancelled         = "TICKET_CANCELLED"
	CodeTicketRefunded          = "TICKET_REFUNDED"
	CodeTicketExpired           = "TICKET_EXPIRED"
	CodeTicketNotActive         = "TICKET_NOT_ACTIVE"
	CodeDuplicatePurchase       = "DUPLICATE_PURCHASE"
	CodeAmountMismatch          = "AMOUNT_MISMATCH"
	CodeCodeGenerationExhausted = "CODE_GENERATION_EXHAUSTED"
	CodeStorageUnavailable      = "STORAGE_UNAVAILABLE"
	CodeRateLimited             = "RATE_LIMITED"
	CodeForbidden               = "FORBIDDEN"
	CodeUnauthorized            = "UNAUTHORIZED"
	CodeInternal                = "INTERNAL"
)

type mapping struct {
	err    error
	code   string
	status int
}

// Subtypes come before ErrInvalidTransition so the most specific code wins.
var mappings = []mapping{
	{ErrInvalidInput, CodeInvalidInput, http.StatusBadRequest},
	{ErrNotFound, CodeNotFound, http.StatusNotFound},
	{ErrAlreadyScanned, CodeAlreadyScanned, http.StatusConflict},
	{ErrTicketCancelled, CodeTicketCancelled, http.StatusConflict},
	{ErrTicketRefunded, CodeTicketRefunded, http.StatusConflict},
	{ErrTicketExpired, CodeTicketExpired, http.StatusConflict},
	{ErrTicketNotActive, CodeTicketNotActive, http.StatusConflict},
	{ErrInvalidTransition, CodeInvalidTransition, http.StatusConflict},
	{ErrDuplicatePurchase, CodeDuplicatePurchase, http.StatusConflict},
	{ErrAmountMismatch, CodeAmountMismatch, http.StatusBadRequest},
	{ErrCodeGenerationExhausted, CodeCodeGenerationExhausted, http.StatusInternalServerError},
	{ErrStorageUnavailable, CodeStorageUnavailable, http.StatusServiceUnavailable},
	{ErrRateLimited, CodeRateLimited, http.StatusTooManyRequests},
	{ErrForbidden, CodeForbidden, http.StatusForbidden},
	{ErrUnauthorized, CodeUnauthorized, http.StatusUnauthorized},
}

func lookup(err error) (mapping, bool) {
	for _, m := range mappings {
		if errors.Is(err, m.err) {
			return m, true
		}
	}
	return mapping{}, false
}

// Code returns the stable API code for err, or CodeInternal.
func Code(err error) string {
	if m, ok := lookup(err); ok {
		return m.code
	}
	return CodeInternal
}

// HTTPStatus returns the response status for err, or 500.
func HTTPStatus(err error) int {
	if m, ok := lookup(err); ok {
		return m.status
	}
	return http.StatusInternalServerError
}

// Retryable reports whether a caller may safely repeat the request.
// Domain rule failures are never retryable since the ticket state decides them.
func Retryable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}
