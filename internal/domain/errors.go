package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so callers and tests can decide how to react.
type ErrorKind string

const (
	// KindConfig: missing or invalid credentials/settings. Fatal to the operation, never retried.
	KindConfig ErrorKind = "config"
	// KindDegraded: a collaborator failed but a fallback value was used.
	KindDegraded ErrorKind = "degraded"
	// KindHardStep: a campaign step with no continuation failed.
	KindHardStep ErrorKind = "hard"
	// KindCandidate: one campaign candidate failed and was dropped.
	KindCandidate ErrorKind = "candidate"
	// KindTransient: network or timeout failure of an external call.
	KindTransient ErrorKind = "transient"
	// KindMalformed: model output could not be parsed into the expected shape.
	KindMalformed  ErrorKind = "malformed"
	KindNotFound   ErrorKind = "not_found"
	KindValidation ErrorKind = "validation"
	KindInternal   ErrorKind = "internal"
)

var (
	ErrNotConfigured   = errors.New("backend not configured")
	ErrMalformedOutput = errors.New("malformed model output")
	ErrEmptyText       = errors.New("text is empty")
	ErrNotFound        = errors.New("not found")
	ErrNoEmbedding     = errors.New("embedding unavailable")
	ErrNoBridge        = errors.New("bridge generation failed")
)

// Error is a classified error. Op names the failing operation.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// NewError wraps err with a kind and operation name.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so errors.Is(err, &Error{Kind: KindConfig}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// KindOf returns the kind of the outermost classified error in err's chain,
// KindInternal when none is found.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, ErrNotConfigured):
		return KindConfig
	case errors.Is(err, ErrMalformedOutput):
		return KindMalformed
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrEmptyText):
		return KindValidation
	}
	return KindInternal
}

// MalformedOutputError carries a short excerpt of the unparseable response.
type MalformedOutputError struct {
	Reason  string
	Excerpt string
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("%v: %s", ErrMalformedOutput, e.Reason)
}

func (e *MalformedOutputError) Unwrap() error {
	return ErrMalformedOutput
}
