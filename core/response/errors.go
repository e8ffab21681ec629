package response

import (
	"errors"
	"fmt"
)

// Kind classifies every failure the bridge surfaces to callers.
type Kind int

const (
	// KindNone means no failure occurred.
	KindNone Kind = iota
	// KindUnreachable means there is no transport connectivity to the engine.
	// Callers may retry establishment.
	KindUnreachable
	// KindLaunchFailed means the engine process could not be created at all.
	// This points to a configuration or environment problem and is fatal.
	KindLaunchFailed
	// KindStartupFailed means the engine started but never became ready
	// within the startup budget, or reported a fatal status while booting.
	KindStartupFailed
	// KindCancelled means the caller aborted the operation. It is propagated
	// as-is and is not an error condition of the engine.
	KindCancelled
	// KindApplication means the engine was reachable and answered with a
	// domain-level error. The message is extracted verbatim.
	KindApplication
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindUnreachable:
		return "unreachable"
	case KindLaunchFailed:
		return "launch_failed"
	case KindStartupFailed:
		return "startup_failed"
	case KindCancelled:
		return "cancelled"
	case KindApplication:
		return "application"
	default:
		return "unknown"
	}
}

// Error is the only error type the bridge returns. Automation scripts branch
// on Kind instead of parsing messages or status codes.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Message
}

// NewError creates a tagged error with a formatted message.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from an error, or KindNone for nil.
// Errors that did not originate here report KindApplication.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindApplication
}
