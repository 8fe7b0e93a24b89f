package inventory

import "errors"

// Kind classifies a Syncer failure.
type Kind int

const (
	KindAuthentication Kind = iota + 1
	KindLoad
	KindWrite
	KindValidation
	KindEnrichment
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindLoad:
		return "load"
	case KindWrite:
		return "write"
	case KindValidation:
		return "validation"
	case KindEnrichment:
		return "enrichment"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. Every *Error matches the sentinel of its Kind.
var (
	ErrAuthentication = errors.New("authentication error")
	ErrLoad           = errors.New("load error")
	ErrWrite          = errors.New("write error")
	ErrValidation     = errors.New("validation error")
	ErrEnrichment     = errors.New("enrichment error")

	// ErrIndexOutOfSync means a listed item has no remote ID. Reload to recover.
	ErrIndexOutOfSync = errors.New("item index out of sync with list")
)

var sentinels = map[Kind]error{
	KindAuthentication: ErrAuthentication,
	KindLoad:           ErrLoad,
	KindWrite:          ErrWrite,
	KindValidation:     ErrValidation,
	KindEnrichment:     ErrEnrichment,
}

// Error is the only error type the Syncer returns. Message is meant for
// the user; Err keeps the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Is matches the Kind sentinel, so errors.Is(err, ErrWrite) works without
// exposing the cause chain to the comparison.
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// KindOf returns the Kind of err, or 0 if err did not come from a Syncer.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
