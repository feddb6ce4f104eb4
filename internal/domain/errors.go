package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrJobNotClaimed = errors.New("job not claimed")
)

// FailureKind classifies terminal pipeline failures.
type FailureKind string

const (
	FailValidation    FailureKind = "validation"
	FailResolution    FailureKind = "resolution"
	FailEngine        FailureKind = "engine"
	FailTimeout       FailureKind = "timeout"
	FailOutputMissing FailureKind = "output_missing"
	FailParse         FailureKind = "parse"
	FailCompute       FailureKind = "compute"
	FailCancelled     FailureKind = "cancelled"
	FailInternal      FailureKind = "internal"
)

// Failure is a tagged pipeline error. The kind selects the failure class,
// the message is human-readable and stored on the failed job verbatim.
type Failure struct {
	Kind    FailureKind
	Message string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Failf builds a Failure with a formatted message.
func Failf(kind FailureKind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AsFailure extracts a *Failure from an error chain, wrapping unclassified
// errors under the given fallback kind so every pipeline error ends up tagged.
func AsFailure(err error, fallback FailureKind) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Kind: fallback, Message: err.Error()}
}
