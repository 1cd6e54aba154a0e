package domain

import "errors"

// Kind classifies a recoverable request error. Handlers map kinds to HTTP
// status codes; services attach them where the failure is decided.
type Kind string

const (
	KindInvalidParams   Kind = "invalid_params"
	KindBadStatus       Kind = "bad_status"
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
	KindExpired         Kind = "expired"
	KindRateLimited     Kind = "rate_limited"
)

// Error is a request-level failure with a machine-readable kind.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// E builds a kinded error.
func E(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// KindOf extracts the kind from err, or "" for unclassified errors.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
