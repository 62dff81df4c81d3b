package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for retry routing.
// The ingestion worker alone decides retryable-vs-terminal handling;
// components only classify.
type Kind int

const (
	// Transient covers timeouts, throttling, and temporary unavailability.
	// Always retried with bounded exponential backoff.
	Transient Kind = iota

	// ResourceExhausted covers license unavailability and rate limiting.
	// Retried with backoff up to a max wait, then treated as Transient.
	ResourceExhausted

	// Invalid covers malformed files, unsupported types, oversized payloads,
	// and corrupt or denormalized embedding responses. Never retried.
	Invalid

	// Protocol marks a programming or configuration error, such as a release
	// without a matching acquire or a promote on a missing generation.
	Protocol
)

// String returns the kind's label as it appears in logs and failure records.
func (k Kind) String() string {
	switch k {
	case Transient:
		return "transient"
	case ResourceExhausted:
		return "resource_exhausted"
	case Invalid:
		return "invalid"
	case Protocol:
		return "protocol"
	default:
		return "unknown"
	}
}

// Fault is a classified failure raised by a pipeline component.
// It carries enough context (stage, source locator) for triage from
// logs and failure records alone.
type Fault struct {
	Kind    Kind
	Stage   string // pipeline stage, e.g. "converting", "embedding"
	Locator string // source object locator, if known
	Err     error
}

func (f *Fault) Error() string {
	if f.Locator != "" {
		return fmt.Sprintf("%s failure at stage %q (locator %q): %v", f.Kind, f.Stage, f.Locator, f.Err)
	}
	return fmt.Sprintf("%s failure at stage %q: %v", f.Kind, f.Stage, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// New wraps err as a classified Fault for the given stage.
func New(kind Kind, stage string, err error) *Fault {
	return &Fault{Kind: kind, Stage: stage, Err: err}
}

// Newf is New with a formatted message and no wrapped cause.
func Newf(kind Kind, stage, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Stage: stage, Err: fmt.Errorf(format, args...)}
}

// WithLocator returns a copy of f annotated with the source locator.
func (f *Fault) WithLocator(locator string) *Fault {
	c := *f
	c.Locator = locator
	return &c
}

// KindOf extracts the classification from err. Unclassified errors are
// treated as Transient so that unknown failure modes are retried rather
// than silently dropped.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return Transient
}

// IsRetryable reports whether the worker should return the message to
// the queue instead of dead-lettering it.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case Invalid, Protocol:
		return false
	default:
		return true
	}
}

// IsTerminal is the complement of IsRetryable.
func IsTerminal(err error) bool {
	return !IsRetryable(err)
}

// StageOf returns the pipeline stage recorded on err, or "" when err is
// not a classified Fault.
func StageOf(err error) string {
	var f *Fault
	if errors.As(err, &f) {
		return f.Stage
	}
	return ""
}
