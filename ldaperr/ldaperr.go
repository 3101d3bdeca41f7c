// Package ldaperr defines the typed error kinds produced across ldapquery.
//
// Errors are a single struct carrying a Kind rather than a family of Go
// types, so callers can classify failures with errors.As(&ldaperr.Error{})
// and a switch on Kind instead of chains of type assertions.
package ldaperr

import "fmt"

// Kind classifies why an operation failed.
type Kind int

const (
	// KindUnknown is the zero value and should never be returned.
	KindUnknown Kind = iota
	// KindMapping covers unmapped types/properties and a missing DN property.
	KindMapping
	// KindTranslation covers unsupported predicates/projections and duplicate controls.
	KindTranslation
	// KindInvalidArgument covers null/blank DNs and malformed RDNs.
	KindInvalidArgument
	// KindDirectoryOperation covers a non-zero LDAP result code from the server.
	KindDirectoryOperation
	// KindNoResult covers First/Single with an empty response.
	KindNoResult
	// KindMultipleResults covers Single with more than one matching entry.
	KindMultipleResults
	// KindSizeLimitExceeded covers a server size-limit error when WithinSizeLimit was not requested.
	KindSizeLimitExceeded
	// KindUntrackedUpdate covers Update called on an entry that was materialised without change tracking.
	KindUntrackedUpdate
	// KindDisposedInUse covers disposing a DirectoryContext while a request is in flight.
	KindDisposedInUse
	// KindConnection covers transport failures surfaced by the connection collaborator.
	KindConnection
	// KindCancelled covers context cancellation/deadline during an in-flight request.
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindMapping:
		return "mapping"
	case KindTranslation:
		return "translation"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindDirectoryOperation:
		return "directory_operation"
	case KindNoResult:
		return "no_result"
	case KindMultipleResults:
		return "multiple_results"
	case KindSizeLimitExceeded:
		return "size_limit_exceeded"
	case KindUntrackedUpdate:
		return "untracked_update"
	case KindDisposedInUse:
		return "disposed_in_use"
	case KindConnection:
		return "connection"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error is the single error type returned across the public API.
type Error struct {
	Kind Kind
	// Message is a human-readable description of the failure.
	Message string
	// Code is the LDAP result code, set only for KindDirectoryOperation.
	Code uint16
	// MatchedDN is the matchedDN returned by the server, set only for KindDirectoryOperation.
	MatchedDN string
	// Cause is the wrapped underlying error, if any.
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Kind == KindDirectoryOperation {
		return fmt.Sprintf("ldapquery: %s: %s (code %d, matchedDN %q)", e.Kind, e.Message, e.Code, e.MatchedDN)
	}

	if e.Cause != nil {
		return fmt.Sprintf("ldapquery: %s: %s: %v", e.Kind, e.Message, e.Cause)
	}

	return fmt.Sprintf("ldapquery: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Cause
}

// Is allows errors.Is(err, &ldaperr.Error{Kind: ldaperr.KindX}) style checks:
// it reports whether the target is also an *Error with the same Kind, and
// ignores the target's other fields.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil {
		return false
	}

	return e.Kind == t.Kind
}

func new(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Mapping builds a KindMapping error.
func Mapping(format string, args ...any) *Error { return new(KindMapping, format, args...) }

// Translation builds a KindTranslation error.
func Translation(format string, args ...any) *Error { return new(KindTranslation, format, args...) }

// InvalidArgument builds a KindInvalidArgument error.
func InvalidArgument(format string, args ...any) *Error {
	return new(KindInvalidArgument, format, args...)
}

// DirectoryOperation builds a KindDirectoryOperation error carrying the server's result code.
func DirectoryOperation(code uint16, matchedDN, message string) *Error {
	return &Error{Kind: KindDirectoryOperation, Code: code, MatchedDN: matchedDN, Message: message}
}

// NoResult builds a KindNoResult error.
func NoResult(format string, args ...any) *Error { return new(KindNoResult, format, args...) }

// MultipleResults builds a KindMultipleResults error. filter is included in the
// message per the spec's literal "SingleOrDefault multiple" scenario.
func MultipleResults(count int, filter string) *Error {
	return new(KindMultipleResults, "expected at most one result but got %d for filter %s", count, filter)
}

// SizeLimitExceeded builds a KindSizeLimitExceeded error.
func SizeLimitExceeded(format string, args ...any) *Error {
	return new(KindSizeLimitExceeded, format, args...)
}

// UntrackedUpdate builds a KindUntrackedUpdate error.
func UntrackedUpdate(format string, args ...any) *Error {
	return new(KindUntrackedUpdate, format, args...)
}

// DisposedInUse builds a KindDisposedInUse error.
func DisposedInUse(format string, args ...any) *Error {
	return new(KindDisposedInUse, format, args...)
}

// Connection wraps a transport failure from the connection collaborator.
func Connection(cause error) *Error {
	return &Error{Kind: KindConnection, Message: "connection failure", Cause: cause}
}

// Cancelled wraps a context cancellation/deadline during an in-flight request.
func Cancelled(cause error) *Error {
	return &Error{Kind: KindCancelled, Message: "request cancelled", Cause: cause}
}
