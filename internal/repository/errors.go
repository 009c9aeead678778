package repository

import (
	"fmt"
	"strings"
)

// StoreErrorKind is a closed classification of backend write failures.
// Driver error text is inspected once, here at the boundary; callers
// switch on the kind instead of re-matching substrings.
type StoreErrorKind string

const (
	StoreErrDuplicateKey StoreErrorKind = "duplicate_key"
	StoreErrForeignKey   StoreErrorKind = "foreign_key"
	StoreErrConnection   StoreErrorKind = "connection"
	StoreErrUnknown      StoreErrorKind = "unknown"
)

type StoreError struct {
	Kind StoreErrorKind
	Op   string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// classifyStoreError maps known MySQL driver error messages onto the
// closed kind set. Unrecognized errors pass through as unknown.
func classifyStoreError(op string, err error) error {
	if err == nil {
		return nil
	}

	kind := StoreErrUnknown
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "duplicate entry"):
		kind = StoreErrDuplicateKey
	case strings.Contains(msg, "foreign key constraint"):
		kind = StoreErrForeignKey
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "invalid connection"),
		strings.Contains(msg, "bad connection"):
		kind = StoreErrConnection
	}

	return &StoreError{Kind: kind, Op: op, Err: err}
}
