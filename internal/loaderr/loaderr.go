// Package loaderr defines the error taxonomy shared by the runtime loader and
// the offline bundler.
//
// Every error carries a Kind. Callers match kinds with errors.Is against the
// exported sentinels:
//
//	if errors.Is(err, loaderr.ErrReadinessTimeout) { ... }
//
// or extract the full value with errors.As to read the subject and params.
package loaderr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies the condition that produced an Error.
type Kind int

const (
	// DoubleClaim is raised when a locator is claimed while already present.
	DoubleClaim Kind = iota + 1
	// UnknownRelease is raised when a release targets a locator never claimed.
	UnknownRelease
	// DoubleRelease is raised when a release targets an already settled locator.
	DoubleRelease
	// AlreadyBootstrapped is raised when bootstrap would fire a second time.
	AlreadyBootstrapped
	// LoadTimeout is raised when a fetch neither succeeds nor fails in time.
	LoadTimeout
	// LoadFailure is raised when a fetch or evaluation signals failure.
	LoadFailure
	// ReadinessTimeout is raised when a readiness predicate never held in time.
	ReadinessTimeout
	// MissingConfiguration is raised when a mandatory setting is absent.
	MissingConfiguration
	// NotInitialized is raised when a load is requested before configuration.
	NotInitialized
)

var kindNames = map[Kind]string{
	DoubleClaim:          "DoubleClaim",
	UnknownRelease:       "UnknownRelease",
	DoubleRelease:        "DoubleRelease",
	AlreadyBootstrapped:  "AlreadyBootstrapped",
	LoadTimeout:          "LoadTimeout",
	LoadFailure:          "LoadFailure",
	ReadinessTimeout:     "ReadinessTimeout",
	MissingConfiguration: "MissingConfiguration",
	NotInitialized:       "NotInitialized",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Sentinels for errors.Is matching. Only the Kind is compared.
var (
	ErrDoubleClaim          = &Error{Kind: DoubleClaim}
	ErrUnknownRelease       = &Error{Kind: UnknownRelease}
	ErrDoubleRelease        = &Error{Kind: DoubleRelease}
	ErrAlreadyBootstrapped  = &Error{Kind: AlreadyBootstrapped}
	ErrLoadTimeout          = &Error{Kind: LoadTimeout}
	ErrLoadFailure          = &Error{Kind: LoadFailure}
	ErrReadinessTimeout     = &Error{Kind: ReadinessTimeout}
	ErrMissingConfiguration = &Error{Kind: MissingConfiguration}
	ErrNotInitialized       = &Error{Kind: NotInitialized}
)

// Error is the single error type of the loader. Subject is the locator, key
// or setting the error is about; Params holds any extra values handed to a
// custom error handler.
type Error struct {
	Kind    Kind
	Subject string
	Params  []any
	Err     error
}

// New builds an Error of the given kind about subject.
func New(kind Kind, subject string, params ...any) *Error {
	return &Error{Kind: kind, Subject: subject, Params: params}
}

// Wrap builds an Error of the given kind that wraps cause.
func Wrap(kind Kind, subject string, cause error, params ...any) *Error {
	return &Error{Kind: kind, Subject: subject, Params: params, Err: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case DoubleClaim:
		msg = fmt.Sprintf("path %q is being loaded twice", e.Subject)
	case UnknownRelease:
		msg = fmt.Sprintf("path %q was not loaded", e.Subject)
	case DoubleRelease:
		msg = fmt.Sprintf("path %q was loaded twice", e.Subject)
	case AlreadyBootstrapped:
		msg = "app already bootstrapped"
		if e.Subject != "" {
			msg += fmt.Sprintf(" (while handling %q)", e.Subject)
		}
	case LoadTimeout:
		msg = fmt.Sprintf("timed out fetching %q", e.Subject)
	case LoadFailure:
		msg = fmt.Sprintf("failed to load %q", e.Subject)
	case ReadinessTimeout:
		msg = fmt.Sprintf("timed out loading %q", e.Subject)
	case MissingConfiguration:
		msg = fmt.Sprintf("need to specify %q in the loader configuration", e.Subject)
	case NotInitialized:
		msg = "loader is not initialized"
		if e.Subject != "" {
			msg += fmt.Sprintf(" (requested %q)", e.Subject)
		}
	default:
		msg = fmt.Sprintf("%s: %s", e.Kind, e.Subject)
	}
	if len(e.Params) > 0 {
		parts := make([]string, len(e.Params))
		for i, p := range e.Params {
			parts[i] = fmt.Sprint(p)
		}
		msg += " [" + strings.Join(parts, ", ") + "]"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return 0
}
