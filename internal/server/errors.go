package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	claimdomain "github.com/smallbiznis/chainpay/internal/claim/domain"
	eventdomain "github.com/smallbiznis/chainpay/internal/event/domain"
	paymentdomain "github.com/smallbiznis/chainpay/internal/payment/domain"
)

// ErrNotFound is the generic not-found response error.
var ErrNotFound = &APIError{Status: http.StatusNotFound, Code: "not_found", Message: "resource not found"}

// APIError is an error with an HTTP representation.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *APIError) Error() string { return e.Code }

func invalidRequestError() *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: "invalid_request", Message: "request body could not be parsed"}
}

func newValidationError(field, code, message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: code, Field: field, Message: message}
}

func newConflictError(code, message string) *APIError {
	return &APIError{Status: http.StatusConflict, Code: code, Message: message}
}

// AbortWithError maps domain errors onto HTTP responses.
func AbortWithError(c *gin.Context, err error) {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
	case errors.Is(err, eventdomain.ErrEventNotFound),
		errors.Is(err, paymentdomain.ErrPaymentNotFound),
		errors.Is(err, claimdomain.ErrClaimNotFound):
		apiErr = ErrNotFound
	case errors.Is(err, claimdomain.ErrChainWithoutHash):
		apiErr = newValidationError("chain_id", "chain_id_requires_transaction_hash", "chain_id and transaction_hash must be provided together")
	case errors.Is(err, claimdomain.ErrConstraintViolation):
		apiErr = newConflictError("duplicate_transaction_hash", "this transaction hash was already submitted")
	default:
		apiErr = &APIError{Status: http.StatusInternalServerError, Code: "internal_error", Message: "internal error"}
	}
	c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": apiErr})
}
