// Package itemerr defines the error kinds signaled while addressing and
// walking an item tree. Callers match kinds with errors.Is; messages carry
// the offending path for humans.
package itemerr

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrPathNotFound is returned when a path does not resolve to an item.
	ErrPathNotFound = errors.New("path not found")

	// ErrItemNotFound is returned when an ancestor, parent or named child
	// does not exist at the expected location.
	ErrItemNotFound = errors.New("item not found")

	// ErrInvalidItemState is returned when a handle refers to an item that
	// was removed or invalidated after the handle was obtained.
	ErrInvalidItemState = errors.New("invalid item state")

	// ErrAccessDenied is returned when the caller may not read an item.
	ErrAccessDenied = errors.New("access denied")

	// ErrRepository marks a backing-store failure.
	ErrRepository = errors.New("repository error")

	// ErrMalformedPath is returned for path or name syntax errors.
	ErrMalformedPath = errors.New("malformed path")
)

// PathNotFound returns an ErrPathNotFound error for path.
func PathNotFound(path string) error {
	return errors.Wrapf(ErrPathNotFound, "%s", path)
}

// ItemNotFound returns an ErrItemNotFound error with a formatted message.
func ItemNotFound(format string, args ...any) error {
	return errors.Wrapf(ErrItemNotFound, format, args...)
}

// InvalidState returns an ErrInvalidItemState error for the item at path.
func InvalidState(path string) error {
	return errors.Wrapf(ErrInvalidItemState, "%s has been removed", path)
}

// AccessDenied returns an ErrAccessDenied error for path.
func AccessDenied(path string) error {
	return errors.Wrapf(ErrAccessDenied, "%s", path)
}

// Malformed returns an ErrMalformedPath error with a formatted message.
func Malformed(format string, args ...any) error {
	return errors.Wrapf(ErrMalformedPath, format, args...)
}

// Repository marks cause as a backing-store failure. The result matches both
// ErrRepository and cause under errors.Is. A nil cause yields nil, and errors
// that already carry one of the kinds above are returned unchanged.
func Repository(cause error, msg string) error {
	if cause == nil {
		return nil
	}
	if IsKind(cause) {
		return cause
	}
	return errors.WithStack(&repositoryError{msg: msg, cause: cause})
}

type repositoryError struct {
	msg   string
	cause error
}

func (e *repositoryError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrRepository, e.msg, e.cause)
}

func (e *repositoryError) Unwrap() error { return e.cause }

func (e *repositoryError) Is(target error) bool { return target == ErrRepository }

// IsKind reports whether err already carries one of the kinds in this package.
func IsKind(err error) bool {
	for _, kind := range []error{
		ErrPathNotFound, ErrItemNotFound, ErrInvalidItemState,
		ErrAccessDenied, ErrRepository, ErrMalformedPath,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
