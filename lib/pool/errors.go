package pool

import (
	"errors"
	"fmt"
)

var ErrClosed = errors.New("pool is closed")

var ErrExhausted = errors.New("connection limit reached")

// DialError reports that every replica was tried and none accepted.
type DialError struct {
	Attempts int
	Err      error
}

func (T DialError) Error() string {
	return fmt.Sprintf("all replicas failed after %d attempts: %v", T.Attempts, T.Err)
}

func (T DialError) Unwrap() error {
	return T.Err
}

var _ error = DialError{}
