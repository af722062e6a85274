/*
Package msgsubscriber implements an in-process message subscription registry and
a small in-memory bus built on top of it.

The Registry is the bookkeeping core of a message bus: for each message name it
tracks which handlers are subscribed. It never invokes handlers. The Bus keeps
the handler instances and dispatches published messages to whatever the
registry reports.

# Key Features

  - Typed and Dynamic Subscriptions: A typed subscription binds a handler to a
    Go message type; a dynamic one binds it to a message name and receives the
    payload as `any`.

  - One Handler per Message Name: Registering the same handler type twice for a
    message name fails with `ErrDuplicateRegistration`, whether the existing
    registration is typed or dynamic.

  - No Empty Entries: A message name exists in the registry only while it has at
    least one subscriber. Unsubscribing the last one removes the name.

  - Tolerant Removal: Unsubscribing something that is not registered is a no-op.

  - Strict Lookup: `GetSubscribers` and `HasSubscriber` fail with
    `ErrKeyNotFound` for names that have no subscribers.

  - Pluggable Ordering: Each message name's descriptors live in a `Collection`.
    List (insertion order), set and priority strategies are provided.

  - Thread Safety: All Registry and Bus operations are safe for concurrent use.

# Identities

Message and handler identities are plain strings supplied by the types
themselves and read from their zero values:

	type OrderCreated struct{ OrderID string }

	func (OrderCreated) MessageName() string { return "OrderCreated" }

	type AuditHandler struct{}

	func (AuditHandler) HandlerName() string { return "AuditHandler" }
	func (AuditHandler) Handle(ctx context.Context, msg OrderCreated) error { return nil }

Pointer types work as long as the methods do not dereference the receiver.

# Registry

	reg := msgsubscriber.New()

	err := msgsubscriber.Subscribe[OrderCreated, AuditHandler](reg)
	err = msgsubscriber.SubscribeDynamic[PingHandler](reg, "Ping")

	subs, err := reg.GetSubscribers("OrderCreated")
	if errors.Is(err, msgsubscriber.ErrKeyNotFound) {
		// nobody is listening
	}

	msgsubscriber.Unsubscribe[OrderCreated, AuditHandler](reg)

# Bus

	bus := msgsubscriber.NewBus(msgsubscriber.WithPublishTimeout(time.Second))
	defer bus.Close()

	err := msgsubscriber.SubscribeHandler[OrderCreated](bus, AuditHandler{})

	env, err := msgsubscriber.Publish(ctx, bus, OrderCreated{OrderID: "42"})
	fmt.Println(env.ID)

Handlers run concurrently by default, or one at a time in collection order with
`WithSequentialDelivery(true)`. Handler errors and panics come back from Publish
as joined `HandlerError` values. `ConfigureMessage` overrides the timeout and
delivery mode for a single message name.

A handler that needs to stop the bus calls `Shutdown` with the context it was
given; `Close` waits for the publish that is running the handler.

# Configuration

`LoadConfig` reads `MSGSUB_*` environment variables after loading optional .env files;
`NewBusFromConfig` and `NewLogger` turn the result into a ready bus and zap logger.
*/
package msgsubscriber
