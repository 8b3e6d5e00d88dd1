package rag

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures. The HTTP layer maps kinds to status codes.
type Kind int

const (
	KindUnknown Kind = iota
	MissingParameter
	UnsupportedType
	UnknownSession
	UnknownAsset
	ExtractionError
	GenerationFailure
	IndexFailure
	StorageFailure
)

var kindNames = map[Kind]string{
	KindUnknown:       "unknown",
	MissingParameter:  "missing parameter",
	UnsupportedType:   "unsupported type",
	UnknownSession:    "unknown session",
	UnknownAsset:      "unknown asset",
	ExtractionError:   "extraction error",
	GenerationFailure: "generation failure",
	IndexFailure:      "index failure",
	StorageFailure:    "storage failure",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is returned by every Pipeline operation.
type Error struct {
	Kind Kind
	Op   string // pipeline operation, e.g. "SendMessage"
	Err  error  // underlying cause
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind that carries no op or cause,
// so errors.Is(err, ErrUnknownSession) works on any wrapped pipeline error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrMissingParameter  = &Error{Kind: MissingParameter}
	ErrUnsupportedType   = &Error{Kind: UnsupportedType}
	ErrUnknownSession    = &Error{Kind: UnknownSession}
	ErrUnknownAsset      = &Error{Kind: UnknownAsset}
	ErrExtractionError   = &Error{Kind: ExtractionError}
	ErrGenerationFailure = &Error{Kind: GenerationFailure}
	ErrIndexFailure      = &Error{Kind: IndexFailure}
	ErrStorageFailure    = &Error{Kind: StorageFailure}
)

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Cause returns the underlying cause of a pipeline error, or err itself.
func Cause(err error) error {
	var e *Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err
	}
	return err
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func missing(op, msg string) *Error {
	return newError(MissingParameter, op, errors.New(msg))
}
