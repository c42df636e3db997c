package service

import (
	"errors"
	"fmt"

	"github.com/francohenker/carDetailing-sub000/internal/shared/metrics"
	"go.uber.org/zap"
)

// Kind classifies errors surfaced to callers
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindInvalidState
	KindConflict
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrConflict     = errors.New("conflict")
	// ErrAlreadyResolved a concurrent transition won the race for the request
	ErrAlreadyResolved = errors.New("quotation already resolved")
)

// Error surfaced procurement error with a human readable message
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches the sentinel of the error's kind
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrInvalidState:
		return e.Kind == KindInvalidState
	case ErrConflict:
		return e.Kind == KindConflict
	}
	return false
}

func notFoundError(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func invalidState(format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...interface{}) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func alreadyResolved(requestID string) error {
	return &Error{
		Kind:    KindInvalidState,
		Message: fmt.Sprintf("quotation request %s was already resolved", requestID),
		cause:   ErrAlreadyResolved,
	}
}

// KindOf kind of err, zero when it is not a procurement error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Downstream operations whose failure is reported, never returned
const (
	OpAutoPurchaseOrder  = "auto_purchase_order"
	OpFinalizeQuotation  = "finalize_quotation"
	OpCancelOverlapping  = "cancel_overlapping"
	OpSupplierMail       = "supplier_mail"
	OpLowStockAlert      = "low_stock_alert"
	OpThresholdFetch     = "threshold_fetch"
	OpPostMutationScan   = "post_mutation_scan"
	OpAutomaticQuotation = "automatic_quotation"
)

// nonFatal reports DownstreamNonFatal failures: logged at error level and counted
type nonFatal struct {
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func (n nonFatal) report(operation string, err error, fields ...zap.Field) {
	n.metrics.DownstreamFailure(operation)
	n.logger.Error("non-fatal downstream failure",
		append([]zap.Field{zap.String("operation", operation), zap.Error(err)}, fields...)...)
}
