// Package harnesserr defines the error taxonomy shared across the harness
// packages. Every fallible operation in internal/* returns an error that,
// when it originates inside this module, wraps one of the Kinds below so
// callers (the CLI, the gardener, the view materializer) can branch on
// failure category without string-matching messages.
package harnesserr

import (
	"errors"
	"fmt"
)

// Kind classifies the failure category of an Error.
type Kind int

const (
	// KindIO covers filesystem/subprocess failures: can't open, can't write,
	// process exited non-zero unexpectedly.
	KindIO Kind = iota
	// KindParse covers malformed input that was expected to be
	// well-formed: a corrupt events.jsonl line, an unparsable diff header,
	// invalid YAML frontmatter.
	KindParse
	// KindValidation covers structurally valid input that fails a domain
	// invariant: a memory document missing a required section, a session id
	// with an invalid timestamp.
	KindValidation
	// KindNotFound covers lookups that found nothing: unknown session,
	// unknown memory doc id, unknown patch.
	KindNotFound
	// KindConflict covers state that can't be reconciled: a patch that no
	// longer applies cleanly, a concurrent write race.
	KindConflict
	// KindApproval covers approval-gate outcomes: rejected, denied by mode,
	// prompt cancelled.
	KindApproval
	// KindTool covers failures raised by tool execution itself (as opposed
	// to the harness plumbing around it).
	KindTool
	// KindConfig covers malformed or missing configuration.
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindParse:
		return "parse"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindApproval:
		return "approval"
	case KindTool:
		return "tool"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Error is the harness's wrapped error type. Component is the package that
// raised it (e.g. "eventlog", "patch", "applyengine") so a single log line
// or CLI message can report both the subsystem and the category.
type Error struct {
	Kind      Kind
	Component string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Component, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Component, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an Error with no wrapped cause.
func New(kind Kind, component, message string) *Error {
	return &Error{Kind: kind, Component: component, Message: message}
}

// Wrap constructs an Error wrapping an underlying cause.
func Wrap(kind Kind, component, message string, err error) *Error {
	return &Error{Kind: kind, Component: component, Message: message, Err: err}
}

// Is reports whether err is a harness Error of the given Kind.
func Is(err error, kind Kind) bool {
	var he *Error
	if errors.As(err, &he) {
		return he.Kind == kind
	}
	return false
}
