// Package apperr defines the domain error taxonomy shared by the booking
// lifecycle and the semen ledger. Every expected failure carries a stable
// machine-readable kind plus structured context, so callers can react
// programmatically without parsing prose.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is a stable machine-readable error identifier. Kinds form the de facto
// wire contract for any transport layer built on top of the services.
type Kind string

const (
	// Validation failures: nothing was mutated.
	KindInvalidInput       Kind = "invalid_input"
	KindInvalidAmount      Kind = "invalid_amount"
	KindInvalidDoses       Kind = "invalid_doses"
	KindInvalidSire        Kind = "invalid_sire"
	KindExpirationRequired Kind = "expiration_required"
	KindShippingName       Kind = "shipping_name_required"
	KindInvalidAttempt     Kind = "invalid_breeding_attempt"
	KindTenantRequired     Kind = "tenant_required"

	// Not-found failures. Cross-tenant references report the same kind as a
	// genuinely missing record.
	KindNotFound          Kind = "not_found"
	KindInventoryNotFound Kind = "inventory_not_found"

	// State conflicts: the request was well formed but the current state
	// forbids it.
	KindInvalidTransition   Kind = "invalid_transition"
	KindAlreadyCancelled    Kind = "already_cancelled"
	KindCancelCompleted     Kind = "cannot_cancel_completed"
	KindShippingNotRequired Kind = "shipping_not_required"
	KindInsufficientDoses   Kind = "insufficient_doses"
	KindBatchDepleted       Kind = "batch_depleted"
	KindBatchExpired        Kind = "batch_expired"
	KindBatchDiscarded      Kind = "batch_discarded"
	KindHasUsages           Kind = "has_usages"
)

// Error is a kinded domain error with optional structured context.
type Error struct {
	Kind    Kind
	Message string
	Meta    map[string]any
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New builds an Error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithMeta attaches a structured context value and returns the error.
func (e *Error) WithMeta(key string, value any) *Error {
	if e.Meta == nil {
		e.Meta = make(map[string]any)
	}
	e.Meta[key] = value
	return e
}

// KindOf extracts the Kind from err, or "" when err is not a domain error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// IsKind reports whether err is a domain error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
