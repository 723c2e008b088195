package repository

import "errors"

var (
	// ErrStore matches every *StoreError via errors.Is.
	ErrStore = errors.New("store error")
	// ErrInvalidEmbedding marks a vector that must never be persisted.
	ErrInvalidEmbedding = errors.New("invalid embedding")
)

// StoreError wraps a failure of the underlying database.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return e.Op + " failed: " + e.Err.Error() }

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}
