package msgsubscriber

import (
	"context"
	"fmt"
)

// Message is implemented by payload types that can be subscribed to by type.
// MessageName is called on the zero value of the type, so pointer types must
// not dereference the receiver.
type Message interface {
	MessageName() string
}

// Named is implemented by every handler. HandlerName is the handler's identity
// and is called on the zero value of the handler type.
type Named interface {
	HandlerName() string
}

// Handler handles messages of a statically known type.
type Handler[M Message] interface {
	Named
	Handle(ctx context.Context, msg M) error
}

// DynamicHandler handles loosely typed payloads bound only by message name.
type DynamicHandler interface {
	Named
	HandleDynamic(ctx context.Context, messageName string, payload any) error
}

// GetMessageName returns the message name derived from M.
func GetMessageName[M Message]() string {
	var zero M
	return zero.MessageName()
}

// GetHandlerName returns the handler identity derived from H.
func GetHandlerName[H Named]() string {
	var zero H
	return zero.HandlerName()
}

// Kind tags a Descriptor as typed or dynamic.
type Kind uint8

const (
	// KindTyped descriptors bind a handler to a Go message type.
	KindTyped Kind = iota + 1
	// KindDynamic descriptors bind a handler to a message name only.
	KindDynamic
)

// String returns "typed", "dynamic" or "unknown".
func (k Kind) String() string {
	switch k {
	case KindTyped:
		return "typed"
	case KindDynamic:
		return "dynamic"
	default:
		return "unknown"
	}
}

// Descriptor identifies one handler registered for one message name.
// It is an immutable value; two descriptors are equal iff kind, message
// identity and handler identity all match.
type Descriptor struct {
	kind        Kind
	message     string
	handlerType string
}

// Typed returns a descriptor for a handler bound to a statically known message type.
func Typed(messageType, handlerType string) Descriptor {
	return Descriptor{kind: KindTyped, message: messageType, handlerType: handlerType}
}

// Dynamic returns a descriptor for a handler bound only by message name.
func Dynamic(messageName, handlerType string) Descriptor {
	return Descriptor{kind: KindDynamic, message: messageName, handlerType: handlerType}
}

// Kind returns whether d is typed or dynamic.
func (d Descriptor) Kind() Kind { return d.kind }

// IsDynamic reports whether d is a dynamic descriptor.
func (d Descriptor) IsDynamic() bool { return d.kind == KindDynamic }

// MessageType returns the message type identity, or "" for dynamic descriptors.
func (d Descriptor) MessageType() string {
	if d.kind != KindTyped {
		return ""
	}
	return d.message
}

// MessageName returns the name the descriptor is registered under.
// Typed message names are derived from the message type, so both kinds
// carry it in the same field.
func (d Descriptor) MessageName() string { return d.message }

// HandlerType returns the handler identity.
func (d Descriptor) HandlerType() string { return d.handlerType }

// IsZero reports whether d is the zero Descriptor.
func (d Descriptor) IsZero() bool { return d == Descriptor{} }

// Equal reports whether d and other have the same kind, message and handler.
func (d Descriptor) Equal(other Descriptor) bool { return d == other }

// String formats d as "kind(message -> handler)".
func (d Descriptor) String() string {
	return fmt.Sprintf("%s(%s -> %s)", d.kind, d.message, d.handlerType)
}

// validate checks the descriptor before it enters a collection.
func (d Descriptor) validate() error {
	if d.handlerType == "" {
		return ArgumentError{Param: "handlerType", Reason: "must not be empty"}
	}
	switch d.kind {
	case KindTyped:
		if d.message == "" {
			return ArgumentError{Param: "messageType", Reason: "must not be empty"}
		}
	case KindDynamic:
	default:
		return ArgumentError{Param: "descriptor", Reason: "unknown kind"}
	}
	return nil
}
