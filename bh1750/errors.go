package bh1750

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned before any bus traffic when an argument
	// is missing, malformed or outside the range the part accepts.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnsupportedOperation is returned for requests the dispatcher does not know.
	ErrUnsupportedOperation = errors.New("unsupported operation")
	// ErrBus wraps every transport failure.
	ErrBus = errors.New("bus error")
	// ErrReadSizeMismatch is a read failure where the transport delivered
	// something other than the two data bytes. It matches ErrBus as well.
	ErrReadSizeMismatch = fmt.Errorf("%w: read size mismatch", ErrBus)
)

// OpError records the session operation that failed.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return "bh1750: " + e.Op + ": " + e.Err.Error()
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func busError(err error) error {
	return fmt.Errorf("%w: %w", ErrBus, err)
}
