package domain

import "fmt"

// ErrorKind is the stable, machine-readable classification surfaced to
// clients alongside a human-readable message.
type ErrorKind string

const (
	ErrKindValidation        ErrorKind = "validation"
	ErrKindInvalidSetIndex   ErrorKind = "invalid_set_index"
	ErrKindVersionConflict   ErrorKind = "version_conflict"
	ErrKindUnsupportedSchema ErrorKind = "unsupported_schema_version"
	ErrKindNotFound          ErrorKind = "not_found"
	ErrKindForbidden         ErrorKind = "forbidden"
	ErrKindAlreadyFinalized  ErrorKind = "already_finalized"
)

// Error is a typed domain error carrying a stable kind. None of these are
// retried automatically by the server; retry policy belongs to the caller.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// NewValidationError builds a validation-kind error with a formatted message.
func NewValidationError(format string, args ...any) *Error {
	return &Error{Kind: ErrKindValidation, Message: fmt.Sprintf(format, args...)}
}

// NewNotFoundError builds a not-found error for the named entity.
func NewNotFoundError(entity string) *Error {
	return &Error{Kind: ErrKindNotFound, Message: entity + " not found"}
}

// NewForbiddenError builds an access-denied error for the named entity.
func NewForbiddenError(entity string) *Error {
	return &Error{Kind: ErrKindForbidden, Message: "access denied to this " + entity}
}

// InvalidSetIndexError signals a command referencing a set position the
// exercise does not have.
type InvalidSetIndexError struct {
	Index    int
	SetCount int
}

func (e *InvalidSetIndexError) Error() string {
	return fmt.Sprintf("invalid set index %d: exercise has %d sets", e.Index, e.SetCount)
}

// VersionConflictError signals a stale expected version. It reports the
// current version so the caller can re-fetch and resubmit with a fresh
// expected version and a fresh command identifier.
type VersionConflictError struct {
	ExpectedVersion int
	CurrentVersion  int
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict: expected %d, current is %d", e.ExpectedVersion, e.CurrentVersion)
}

// UnsupportedSchemaVersionError signals a stored payload newer than this
// reader understands. The read path must fail, not coerce.
type UnsupportedSchemaVersionError struct {
	Version int
}

func (e *UnsupportedSchemaVersionError) Error() string {
	return fmt.Sprintf("unsupported payload schema version %d (this build reads up to %d)", e.Version, PayloadSchemaVersion)
}
