// Package kernel ties the components together: the analysis lifecycle
// state machine, configuration, the result record, and the structured
// error kinds every component surfaces on a fatal condition.
package kernel

import (
	"fmt"

	"vcrkernel/canon"
)

// ErrorKind enumerates the kernel's fatal error categories.
type ErrorKind string

const (
	ErrFileUnavailable       ErrorKind = "FileUnavailable"
	ErrParseFailure          ErrorKind = "ParseFailure"
	ErrInvariantViolation    ErrorKind = "InvariantViolation"
	ErrHashMismatch          ErrorKind = "HashMismatch"
	ErrSchemaVersionMismatch ErrorKind = "SchemaVersionMismatch"
	ErrEdgeTargetMissing     ErrorKind = "EdgeTargetMissing"
	ErrDuplicateEdge         ErrorKind = "DuplicateEdge"
	ErrBoundExceeded         ErrorKind = "BoundExceeded"
)

// Error is the single structured error type the kernel surfaces across its
// boundary. Every fatal condition carries exactly one Error with full
// context; nothing is caught internally and retried.
type Error struct {
	Kind ErrorKind

	// Context fields, populated depending on Kind. Not all fields apply to
	// every kind; zero values mean "not applicable."
	Path        string
	FileID      uint32
	ByteOffset  int
	Reason      string
	Expected    canon.Hash
	Actual      canon.Hash
	Where       string
	FoundSchema uint32
	WantSchema  uint32
	Edge        string
	MissingNode string
	BoundKind   string
	Limit       int

	cause error
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrFileUnavailable:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.cause)
	case ErrParseFailure:
		return fmt.Sprintf("%s: file %d at byte %d: %s", e.Kind, e.FileID, e.ByteOffset, e.Reason)
	case ErrInvariantViolation:
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	case ErrHashMismatch:
		return fmt.Sprintf("%s: at %s: expected %s, got %s", e.Kind, e.Where, e.Expected, e.Actual)
	case ErrSchemaVersionMismatch:
		return fmt.Sprintf("%s: expected %d, found %d", e.Kind, e.WantSchema, e.FoundSchema)
	case ErrEdgeTargetMissing:
		return fmt.Sprintf("%s: edge %s: missing node %s", e.Kind, e.Edge, e.MissingNode)
	case ErrDuplicateEdge:
		return fmt.Sprintf("%s: %s", e.Kind, e.Edge)
	case ErrBoundExceeded:
		return fmt.Sprintf("%s: %s exceeded limit %d", e.Kind, e.BoundKind, e.Limit)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}
}

func (e *Error) Unwrap() error { return e.cause }

// FileUnavailable builds an ErrFileUnavailable error.
func FileUnavailable(path string, cause error) *Error {
	return &Error{Kind: ErrFileUnavailable, Path: path, cause: cause}
}

// ParseFailure builds an ErrParseFailure error.
func ParseFailure(fileID uint32, byteOffset int, reason string) *Error {
	return &Error{Kind: ErrParseFailure, FileID: fileID, ByteOffset: byteOffset, Reason: reason}
}

// InvariantViolation builds an ErrInvariantViolation error.
func InvariantViolation(reason string) *Error {
	return &Error{Kind: ErrInvariantViolation, Reason: reason}
}

// HashMismatch builds an ErrHashMismatch error.
func HashMismatch(where string, expected, actual canon.Hash) *Error {
	return &Error{Kind: ErrHashMismatch, Where: where, Expected: expected, Actual: actual}
}

// SchemaVersionMismatch builds an ErrSchemaVersionMismatch error.
func SchemaVersionMismatch(want, found uint32) *Error {
	return &Error{Kind: ErrSchemaVersionMismatch, WantSchema: want, FoundSchema: found}
}

// EdgeTargetMissing builds an ErrEdgeTargetMissing error.
func EdgeTargetMissing(edge, missingNode string) *Error {
	return &Error{Kind: ErrEdgeTargetMissing, Edge: edge, MissingNode: missingNode}
}

// DuplicateEdge builds an ErrDuplicateEdge error.
func DuplicateEdge(edge string) *Error {
	return &Error{Kind: ErrDuplicateEdge, Edge: edge}
}

// BoundExceeded builds an ErrBoundExceeded error. This kind is
// informational in taint output and fatal only when asserted as an
// invariant elsewhere; callers decide which by how they handle it.
func BoundExceeded(kind string, limit int) *Error {
	return &Error{Kind: ErrBoundExceeded, BoundKind: kind, Limit: limit}
}
