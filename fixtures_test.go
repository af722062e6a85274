package msgsubscriber

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// --- Test Types ---

type OrderCreated struct {
	OrderID string
}

func (OrderCreated) MessageName() string { return "OrderCreated" }

type UserUpdated struct {
	UserID int
}

func (*UserUpdated) MessageName() string { return "UserUpdated" }

type H1 struct{}

func (H1) HandlerName() string { return "H1" }
func (H1) Handle(context.Context, OrderCreated) error { return nil }
func (H1) HandleDynamic(context.Context, string, any) error { return nil }

type H2 struct{}

func (H2) HandlerName() string { return "H2" }
func (H2) HandleDynamic(context.Context, string, any) error { return nil }

type H3 struct{}

func (H3) HandlerName() string { return "H3" }
func (H3) Handle(context.Context, OrderCreated) error { return nil }

type UserHandler struct{}

func (UserHandler) HandlerName() string { return "UserHandler" }
func (UserHandler) Handle(context.Context, *UserUpdated) error { return nil }

type anonymousHandler struct{}

func (anonymousHandler) HandlerName() string { return "" }
func (anonymousHandler) Handle(context.Context, OrderCreated) error { return nil }

type unnamedMessage struct{}

func (unnamedMessage) MessageName() string { return "" }

type unnamedMessageHandler struct{}

func (unnamedMessageHandler) HandlerName() string { return "unnamedMessageHandler" }
func (unnamedMessageHandler) Handle(context.Context, unnamedMessage) error { return nil }

// orderRecorder records every order it receives.
type orderRecorder struct {
	mu     sync.Mutex
	orders []string
}

func (*orderRecorder) HandlerName() string { return "orderRecorder" }

func (r *orderRecorder) Handle(_ context.Context, msg OrderCreated) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, msg.OrderID)
	return nil
}

func (r *orderRecorder) Orders() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.orders...)
}

// dualRecorder is both a typed and a dynamic handler under one name.
type dualRecorder struct {
	orderRecorder
	dynamic atomic.Int32
}

func (*dualRecorder) HandlerName() string { return "dualRecorder" }

func (r *dualRecorder) HandleDynamic(context.Context, string, any) error {
	r.dynamic.Add(1)
	return nil
}

// shutdownHandler shuts the bus down from inside its own delivery.
type shutdownHandler struct {
	bus *Bus
	err chan error
}

func (shutdownHandler) HandlerName() string { return "shutdownHandler" }
func (h shutdownHandler) Handle(ctx context.Context, _ OrderCreated) error {
	h.err <- h.bus.Shutdown(ctx)
	return nil
}

// dynamicCounter counts dynamic deliveries and remembers the last name.
type dynamicCounter struct {
	calls    atomic.Int32
	lastName atomic.Value
}

func (*dynamicCounter) HandlerName() string { return "dynamicCounter" }

func (c *dynamicCounter) HandleDynamic(_ context.Context, name string, _ any) error {
	c.calls.Add(1)
	c.lastName.Store(name)
	return nil
}

var errOrderRejected = errors.New("order rejected")

type failingHandler struct{}

func (failingHandler) HandlerName() string { return "failingHandler" }
func (failingHandler) Handle(context.Context, OrderCreated) error { return errOrderRejected }

type panickingHandler struct{}

func (panickingHandler) HandlerName() string { return "panickingHandler" }
func (panickingHandler) Handle(context.Context, OrderCreated) error {
	panic("boom")
}

// slowHandler blocks until its context is done.
type slowHandler struct{}

func (slowHandler) HandlerName() string { return "slowHandler" }
func (slowHandler) Handle(ctx context.Context, _ OrderCreated) error {
	<-ctx.Done()
	return ctx.Err()
}

// sequenceHandler appends its tag to a shared log.
type sequenceHandler[T any] struct {
	tag string
	log *sequenceLog
}

type sequenceLog struct {
	mu   sync.Mutex
	tags []string
}

func (l *sequenceLog) add(tag string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tags = append(l.tags, tag)
}

type firstTag struct{}
type secondTag struct{}

func (sequenceHandler[T]) HandlerName() string {
	var zero T
	switch any(zero).(type) {
	case firstTag:
		return "first"
	default:
		return "second"
	}
}

func (h sequenceHandler[T]) Handle(context.Context, OrderCreated) error {
	h.log.add(h.tag)
	return nil
}
