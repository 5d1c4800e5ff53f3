// Package apperrors defines the error taxonomy shared by every domain. All
// business-rule rejections are raised synchronously to the caller and must not
// leave partial side effects behind.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNotFound marks lookups whose id does not resolve to an entity.
	ErrNotFound = errors.New("not found")

	// ErrSequenceViolation marks a workflow transition attempted out of order,
	// e.g. inventory assignment before SC-manager approval.
	ErrSequenceViolation = errors.New("sequence violation")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func NewValidation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// InsufficientStockItem is one offending line of a failed availability check.
type InsufficientStockItem struct {
	PartID    string `json:"part_id"`
	PartName  string `json:"part_name"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// InsufficientStockError carries every offending part of the triggering
// operation, not just the first one.
type InsufficientStockError struct {
	Items []InsufficientStockItem
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, len(e.Items))
	for i, it := range e.Items {
		parts[i] = fmt.Sprintf("%s (%s): requested %d, available %d",
			it.PartName, it.PartID, it.Requested, it.Available)
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

// HTTPStatus maps the taxonomy to response codes so every handler agrees.
func HTTPStatus(err error) int {
	var ve *ValidationError
	var ise *InsufficientStockError
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrSequenceViolation):
		return http.StatusConflict
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &ise):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
