package typed

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrKeyNotFound     = errors.New("typed: key not found")
	ErrTypeMismatch    = errors.New("typed: type mismatch")
	ErrInvalidFormat   = errors.New("typed: invalid format")
	ErrPersistence     = errors.New("typed: persistence failed")
	ErrInvalidArgument = errors.New("typed: invalid argument")
)

// KeyNotFoundError is returned by every operation that requires an existing key
type KeyNotFoundError struct {
	Key string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("typed: key %q not found", e.Key)
}

func (e *KeyNotFoundError) Unwrap() error { return ErrKeyNotFound }

// TypeMismatchError is returned when an existing key holds a structure the accessor cannot read
type TypeMismatchError struct {
	Key      string
	Actual   NativeType
	Expected []NativeType
}

func (e *TypeMismatchError) Error() string {
	names := make([]string, len(e.Expected))
	for i, t := range e.Expected {
		names[i] = t.String()
	}
	return fmt.Sprintf("typed: key %q holds %s, expected %s", e.Key, e.Actual, strings.Join(names, "|"))
}

func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }

// InvalidFormatError is returned when a stored string does not convert to the requested type
type InvalidFormatError struct {
	Key    string
	Value  string
	Target string
	Reason string
	Err    error
}

func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("typed: key %q value %q is not a valid %s: %s", e.Key, e.Value, e.Target, e.Reason)
}

// Unwrap exposes both the sentinel and the parse error
func (e *InvalidFormatError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidFormat}
	}
	return []error{ErrInvalidFormat, e.Err}
}

// PersistenceError is returned when the store reports a failed write.
// PriorDeleted is set when the previous value was already removed, so the key is now absent.
type PersistenceError struct {
	Key          string
	Op           string
	PriorDeleted bool
	Err          error
}

func (e *PersistenceError) Error() string {
	msg := fmt.Sprintf("typed: %s on key %q failed", e.Op, e.Key)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.PriorDeleted {
		msg += " (previous value lost)"
	}
	return msg
}

func (e *PersistenceError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrPersistence}
	}
	return []error{ErrPersistence, e.Err}
}

// InvalidArgumentError is returned for values outside the supported logical types
type InvalidArgumentError struct {
	Description string
}

func (e *InvalidArgumentError) Error() string {
	return "typed: invalid argument: " + e.Description
}

func (e *InvalidArgumentError) Unwrap() error { return ErrInvalidArgument }
