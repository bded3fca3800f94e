package engine

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes fatal pipeline errors.
//
// Every kind is fatal and never retried. Business-rule violations
// (insufficient funds, locked account, unknown or foreign transaction) are
// not errors at all; the Applier skips them.
type ErrorKind string

const (
	// KindDecode indicates a malformed or unreadable input row.
	// Aborts the entire pipeline.
	KindDecode ErrorKind = "DECODE_ERROR"

	// KindInvalidType indicates an unrecognized instruction type tag.
	// Aborts the stage that saw it.
	KindInvalidType ErrorKind = "INVALID_TRANSACTION_TYPE"

	// KindForwarding indicates a stage's downstream consumer was gone when it
	// tried to forward an instruction.
	KindForwarding ErrorKind = "FORWARDING_FAILURE"

	// KindEmission indicates the final account state could not be written.
	KindEmission ErrorKind = "EMISSION_ERROR"
)

// PipelineError is a fatal error raised by one stage of a run.
type PipelineError struct {
	// Kind identifies the error category.
	Kind ErrorKind

	// Stage names the stage that failed ("decode", "record", "apply", "emit").
	Stage string

	// Seq is the input row of the offending instruction, when known.
	Seq int64

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Seq > 0 {
		msg = fmt.Sprintf("%s (stage=%s, row=%d)", msg, e.Stage, e.Seq)
	} else if e.Stage != "" {
		msg = fmt.Sprintf("%s (stage=%s)", msg, e.Stage)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first PipelineError in err's chain, or ""
// when there is none.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsDecodeError reports whether err is a decode failure.
func IsDecodeError(err error) bool { return KindOf(err) == KindDecode }

// IsInvalidTypeError reports whether err is an invalid type tag failure.
func IsInvalidTypeError(err error) bool { return KindOf(err) == KindInvalidType }

// IsForwardingError reports whether err is a forwarding failure.
func IsForwardingError(err error) bool { return KindOf(err) == KindForwarding }

// IsEmissionError reports whether err is an emission failure.
func IsEmissionError(err error) bool { return KindOf(err) == KindEmission }

// NewDecodeError wraps a decoder failure.
func NewDecodeError(seq int64, err error) *PipelineError {
	return &PipelineError{
		Kind:    KindDecode,
		Stage:   stageDecode,
		Seq:     seq,
		Message: "cannot decode input",
		Err:     err,
	}
}

// NewInvalidTypeError reports an unrecognized tag seen by stage.
func NewInvalidTypeError(stage string, seq int64, tag string) *PipelineError {
	return &PipelineError{
		Kind:    KindInvalidType,
		Stage:   stage,
		Seq:     seq,
		Message: fmt.Sprintf("invalid transaction type %q", tag),
	}
}

// NewForwardingError reports that stage could not hand an instruction on.
func NewForwardingError(stage string, seq int64) *PipelineError {
	return &PipelineError{
		Kind:    KindForwarding,
		Stage:   stage,
		Seq:     seq,
		Message: "downstream consumer is gone",
	}
}

// NewEmissionError wraps a sink failure.
func NewEmissionError(err error) *PipelineError {
	return &PipelineError{
		Kind:    KindEmission,
		Stage:   stageEmit,
		Message: "cannot write account state",
		Err:     err,
	}
}
