package orders

import (
	"errors"
	"fmt"
	"strings"
)

var ErrNotFound = errors.New("order not found")

// UnknownProductError means the basket referenced a product id missing from
// the catalog. Fatal to the whole pricing call.
type UnknownProductError struct {
	ProductID string
}

func (e *UnknownProductError) Error() string {
	return fmt.Sprintf("unknown product %q", e.ProductID)
}

// UndeliverableZoneError names the recipient and product that cannot be
// combined, so the caller can send the customer back to the right form field.
type UndeliverableZoneError struct {
	RecipientID string
	ProductID   string
	Zone        int
}

func (e *UndeliverableZoneError) Error() string {
	return fmt.Sprintf("product %q not deliverable to zone %d for recipient %q",
		e.ProductID, e.Zone, e.RecipientID)
}

// FieldError is one failed validation check.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError aggregates every failing field; validation never stops at
// the first problem.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return "invalid order: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
}
