package storage

import "errors"

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// ConnectionError reports that no connection to the backing store could be
// obtained: the server is unreachable, rejected the credentials, or the
// acquisition deadline passed.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return e.Describe()
	}
	return e.Describe() + ": " + e.Err.Error()
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Describe returns the message safe to show to callers, without driver detail.
func (e *ConnectionError) Describe() string {
	return "database connection unavailable"
}

// StoreError reports a failed operation on an established connection.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return e.Describe()
	}
	return e.Describe() + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error { return e.Err }

// Describe returns the message safe to show to callers, without driver detail.
func (e *StoreError) Describe() string {
	if e.Op == "" {
		return "account store operation failed"
	}
	return e.Op + " failed"
}
