package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	msgsub "github.com/jonoton/go-msgsubscriber"
)

type OrderCreated struct {
	OrderID string
	Amount  int
}

func (OrderCreated) MessageName() string { return "OrderCreated" }

// BillingHandler is slow, to show concurrent delivery.
type BillingHandler struct{}

func (BillingHandler) HandlerName() string { return "BillingHandler" }

func (BillingHandler) Handle(ctx context.Context, msg OrderCreated) error {
	select {
	case <-time.After(100 * time.Millisecond):
		fmt.Printf("(billing) charged %d for order %s\n", msg.Amount, msg.OrderID)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type AuditHandler struct{}

func (AuditHandler) HandlerName() string { return "AuditHandler" }

func (AuditHandler) Handle(_ context.Context, msg OrderCreated) error {
	fmt.Printf("(audit) order %s created\n", msg.OrderID)
	return nil
}

// TraceHandler receives anything published under the names it is subscribed to.
type TraceHandler struct{}

func (TraceHandler) HandlerName() string { return "TraceHandler" }

func (TraceHandler) HandleDynamic(_ context.Context, name string, payload any) error {
	fmt.Printf("(trace) %s: %v\n", name, payload)
	return nil
}

func main() {
	cfg, err := msgsub.LoadConfig()
	if err != nil {
		panic(err)
	}
	cfg.LogLevel = "debug"
	cfg.LogFormat = "console"

	logger, err := msgsub.NewLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	bus, err := msgsub.NewBusFromConfig(cfg, logger)
	if err != nil {
		logger.Fatal("failed to create bus", zap.Error(err))
	}
	defer bus.Close()

	ctx := context.Background()

	must(msgsub.SubscribeHandler[OrderCreated](bus, BillingHandler{}))
	must(msgsub.SubscribeHandler[OrderCreated](bus, AuditHandler{}))
	must(msgsub.SubscribeDynamicHandler(bus, "OrderCreated", TraceHandler{}))
	must(msgsub.SubscribeDynamicHandler(bus, "Ping", TraceHandler{}))

	fmt.Println("\n--- Duplicate subscription ---")
	err = msgsub.SubscribeHandler[OrderCreated](bus, AuditHandler{})
	fmt.Println("rejected:", errors.Is(err, msgsub.ErrDuplicateRegistration), err)

	fmt.Println("\n--- Registered ---")
	for _, name := range bus.Registry().MessageNames() {
		subs, _ := bus.Registry().GetSubscribers(name)
		fmt.Println(name, subs)
	}

	fmt.Println("\n--- Publishing ---")
	env, err := msgsub.Publish(ctx, bus, OrderCreated{OrderID: "A-1", Amount: 42})
	fmt.Println("published", env.ID, "err:", err)

	_, err = bus.PublishDynamic(ctx, "Ping", map[string]any{"seq": 1})
	fmt.Println("ping err:", err)

	fmt.Println("\n--- Unsubscribing ---")
	msgsub.UnsubscribeDynamicHandler[TraceHandler](bus, "Ping")
	_, err = bus.Registry().GetSubscribers("Ping")
	fmt.Println("Ping after unsubscribe:", err)

	_, err = bus.PublishDynamic(ctx, "Ping", "nobody listens")
	fmt.Println("ping err:", err)
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
