package msgsubscriber

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned when a message name or handler identity is empty.
	ErrInvalidArgument = errors.New("msgsubscriber: invalid argument")

	// ErrDuplicateRegistration is returned when a handler is already registered for a message name.
	ErrDuplicateRegistration = errors.New("msgsubscriber: duplicate registration")

	// ErrKeyNotFound is returned when a message name has no registrations.
	ErrKeyNotFound = errors.New("msgsubscriber: message name not found")

	// ErrBusClosed is returned by a Bus after Close.
	ErrBusClosed = errors.New("msgsubscriber: bus is closed")
)

// ArgumentError reports which argument failed validation.
type ArgumentError struct {
	Param  string
	Reason string
}

func (e ArgumentError) Error() string {
	return fmt.Sprintf("msgsubscriber: invalid argument %s: %s", e.Param, e.Reason)
}

func (e ArgumentError) Unwrap() error {
	return ErrInvalidArgument
}

// DuplicateError identifies the conflicting handler and message name.
type DuplicateError struct {
	MessageName string
	HandlerType string
}

func (e DuplicateError) Error() string {
	return fmt.Sprintf("msgsubscriber: handler type %s already registered for '%s'", e.HandlerType, e.MessageName)
}

func (e DuplicateError) Unwrap() error {
	return ErrDuplicateRegistration
}

// NotFoundError is returned by queries against an unregistered message name.
type NotFoundError struct {
	MessageName string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("msgsubscriber: no subscribers registered for '%s'", e.MessageName)
}

func (e NotFoundError) Unwrap() error {
	return ErrKeyNotFound
}

// HandlerError wraps a failure (or recovered panic) from a single handler invocation.
type HandlerError struct {
	MessageName string
	HandlerType string
	Err         error
}

func (e HandlerError) Error() string {
	return fmt.Sprintf("msgsubscriber: handler %s failed for '%s': %v", e.HandlerType, e.MessageName, e.Err)
}

func (e HandlerError) Unwrap() error {
	return e.Err
}
