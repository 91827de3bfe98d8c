// Package failure defines the error taxonomy shared by the poller, the
// applier and the step driver.
//
// Every error that crosses a step boundary is classified into one [Kind].
// The driver uses the kind to decide how a failure is reported; criticality
// (abort vs. continue) is a property of the step, not of the error.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a provisioning failure.
type Kind string

const (
	// KindUnknown is reported for errors that carry no classification.
	KindUnknown Kind = "Unknown"
	// KindValidation means malformed selection, config or descriptor. Raised before any mutation.
	KindValidation Kind = "ValidationError"
	// KindConnectivity means the target cluster is unreachable.
	KindConnectivity Kind = "ConnectivityError"
	// KindReadinessTimeout means an operation was issued but did not converge in budget.
	KindReadinessTimeout Kind = "ReadinessTimeout"
	// KindTerminalFailure means an explicit failed/abnormal state was observed.
	KindTerminalFailure Kind = "TerminalFailure"
	// KindApply means the API rejected a descriptor or release operation.
	KindApply Kind = "ApplyError"
	// KindCanceled means the run was interrupted while the operation was in flight.
	KindCanceled Kind = "Canceled"
)

// Error is a classified error. Op names the operation that failed,
// e.g. "apply ConfigMap default/settings" or "wait deployment argocd/argocd-server".
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op == "" && e.Err == nil:
		return string(e.Kind)
	case e.Op == "":
		return e.Err.Error()
	case e.Err == nil:
		return e.Op
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Validation wraps err as a ValidationError.
func Validation(op string, err error) error { return newError(KindValidation, op, err) }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return newError(KindValidation, "", fmt.Errorf(format, args...))
}

// Connectivity wraps err as a ConnectivityError.
func Connectivity(op string, err error) error { return newError(KindConnectivity, op, err) }

// ReadinessTimeout wraps err as a ReadinessTimeout.
func ReadinessTimeout(op string, err error) error { return newError(KindReadinessTimeout, op, err) }

// Terminal wraps err as a TerminalFailure.
func Terminal(op string, err error) error { return newError(KindTerminalFailure, op, err) }

// Apply wraps err as an ApplyError.
func Apply(op string, err error) error { return newError(KindApply, op, err) }

// Canceled wraps err as a cancellation.
func Canceled(op string, err error) error { return newError(KindCanceled, op, err) }

// KindOf returns the kind of the outermost classified error in err's chain,
// or KindUnknown if there is none.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsConnectivity reports whether err is a ConnectivityError.
func IsConnectivity(err error) bool { return KindOf(err) == KindConnectivity }

// IsReadinessTimeout reports whether err is a ReadinessTimeout.
func IsReadinessTimeout(err error) bool { return KindOf(err) == KindReadinessTimeout }

// IsTerminal reports whether err is a TerminalFailure.
func IsTerminal(err error) bool { return KindOf(err) == KindTerminalFailure }

// IsApply reports whether err is an ApplyError.
func IsApply(err error) bool { return KindOf(err) == KindApply }

// IsCanceled reports whether err is a cancellation.
func IsCanceled(err error) bool { return KindOf(err) == KindCanceled }
