// Package errors holds the sentinel errors and the tagged error kinds
// returned by the object layer.
package errors

import (
	stderrors "errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Error is a constant-able error type for sentinels
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrBadCatalogObject = Error("bad catalog object")
	ErrBadObjectID      = Error("bad object id")
	ErrBadPool          = Error("dealloc pool or list is nil")
	ErrBadLength        = Error("bad object length")
	ErrCorruptPage      = Error("slotted page layout is corrupted")
	ErrEndOfScan        = Error("end of scan")
)

// Kind classifies an error returned by the object layer
type Kind int

const (
	KindNone Kind = iota
	// KindInvalidArgument is reported before any page is touched
	KindInvalidArgument
	// KindCollaborator wraps a failure of the page cache, free-space index,
	// file chain, pool or disk
	KindCollaborator
	// KindEndOfScan is the scan terminator, not a failure
	KindEndOfScan
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid argument"
	case KindCollaborator:
		return "collaborator failure"
	case KindEndOfScan:
		return "end of scan"
	}
	return "none"
}

// OMError carries the kind, the failing operation and the nested cause
type OMError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *OMError) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.String()
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *OMError) Unwrap() error {
	return e.Err
}

// Cause makes OMError usable with pkg/errors.Cause
func (e *OMError) Cause() error {
	return e.Err
}

// InvalidArgument tags err (usually a sentinel) as an argument error
func InvalidArgument(op string, err error) error {
	return &OMError{Kind: KindInvalidArgument, Op: op, Err: err}
}

// Collaborator tags a failure coming from a collaborator. Errors which are
// already tagged pass through unchanged so kinds are decided once.
func Collaborator(op string, err error) error {
	if err == nil {
		return nil
	}
	var omErr *OMError
	if stderrors.As(err, &omErr) {
		return err
	}
	return &OMError{Kind: KindCollaborator, Op: op, Err: pkgerrors.WithStack(err)}
}

// EndOfScan returns the scan terminator for op
func EndOfScan(op string) error {
	return &OMError{Kind: KindEndOfScan, Op: op, Err: ErrEndOfScan}
}

// KindOf returns the kind of err, KindNone for nil or untagged errors
func KindOf(err error) Kind {
	var omErr *OMError
	if stderrors.As(err, &omErr) {
		return omErr.Kind
	}
	return KindNone
}

func IsEndOfScan(err error) bool {
	return KindOf(err) == KindEndOfScan
}

func IsInvalidArgument(err error) bool {
	return KindOf(err) == KindInvalidArgument
}

// Is and As are re-exported so callers need only this package
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

func New(msg string) error {
	return pkgerrors.New(msg)
}
