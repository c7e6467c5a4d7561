package invoiceModel

import (
	"errors"
	"fmt"
)

var (
	ErrTooSmall         = errors.New("document too small")
	ErrMalformed        = errors.New("malformed document")
	ErrUnavailable      = errors.New("document unavailable")
	ErrStoreUnavailable = errors.New("record store unavailable")
	ErrRecordNotFound   = errors.New("record not found")
	ErrQueueEmpty       = errors.New("queue empty")
)

type ReadErrorKind string

const (
	TooSmall    ReadErrorKind = "TooSmall"
	Malformed   ReadErrorKind = "Malformed"
	Unavailable ReadErrorKind = "Unavailable"
)

// ReadError reports why a document could not be turned into text.
// TooSmall and Malformed never get better on retry.
type ReadError struct {
	Kind  ReadErrorKind
	Key   string
	Size  int64
	Cause error
}

func (e *ReadError) Error() string {
	switch e.Kind {
	case TooSmall:
		return fmt.Sprintf("read %s: %d bytes is too small for an invoice", e.Key, e.Size)
	default:
		if e.Cause != nil {
			return fmt.Sprintf("read %s: %s: %v", e.Key, e.Kind, e.Cause)
		}
		return fmt.Sprintf("read %s: %s", e.Key, e.Kind)
	}
}

func (e *ReadError) Unwrap() error {
	return e.Cause
}

func (e *ReadError) Is(target error) bool {
	switch target {
	case ErrTooSmall:
		return e.Kind == TooSmall
	case ErrMalformed:
		return e.Kind == Malformed
	case ErrUnavailable:
		return e.Kind == Unavailable
	}
	return false
}

func (e *ReadError) Permanent() bool {
	return e.Kind == TooSmall || e.Kind == Malformed
}

// StoreError wraps a backend failure. It matches both ErrStoreUnavailable
// and the backend cause.
type StoreError struct {
	Op    string
	Key   string
	Cause error
}

func NewStoreError(op, key string, cause error) *StoreError {
	return &StoreError{Op: op, Key: key, Cause: cause}
}

func (e *StoreError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Key, e.Cause)
}

func (e *StoreError) Unwrap() []error {
	return []error{ErrStoreUnavailable, e.Cause}
}

type ProcessErrorKind string

const (
	UnreadableDocument ProcessErrorKind = "UnreadableDocument"
	StoreFailure       ProcessErrorKind = "StoreFailure"
)

type ProcessError struct {
	Kind ProcessErrorKind
	Key  string
	Err  error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("process %s: %s: %v", e.Key, e.Kind, e.Err)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// Permanent reports whether redelivering the item can change the outcome.
func (e *ProcessError) Permanent() bool {
	var re *ReadError
	return e.Kind == UnreadableDocument && errors.As(e.Err, &re) && re.Permanent()
}
