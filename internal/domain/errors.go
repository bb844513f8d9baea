// Package domain holds the error taxonomy shared by the item, user, cart and
// order packages. The HTTP boundary maps these to status codes.
package domain

import (
	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when a user, item or cart reference does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is returned when input fails validation.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrPersistence is returned when the storage collaborator fails or a
	// concurrent modification could not be resolved.
	ErrPersistence = errors.New("persistence failure")
	// ErrConflict is returned by repositories when an optimistic version
	// check fails. Services retry it and surface ErrPersistence when the
	// retry budget is exhausted.
	ErrConflict = errors.New("concurrent modification")
)

// PersistenceError reports a storage failure for the named operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return e.Op + ": " + ErrPersistence.Error() + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is reports ErrPersistence as a match so callers can test the category
// without knowing the underlying driver error.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// Wrap classifies a repository error. NotFound and InvalidArgument errors keep
// their identity and gain op as context; everything else becomes a
// PersistenceError. A nil err returns nil.
func Wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidArgument) {
		return errors.Wrap(err, op)
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
