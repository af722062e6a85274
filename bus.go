package msgsubscriber

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultPublishTimeout bounds how long handlers may run for one publish
// when no timeout is configured.
const DefaultPublishTimeout = 500 * time.Millisecond

// Envelope is a published message as seen by the bus.
type Envelope struct {
	ID          uuid.UUID
	Name        string
	Payload     any
	PublishedAt time.Time
}

// errSkipped marks a typed handler whose payload type does not match.
var errSkipped = errors.New("payload type mismatch")

type invoker func(ctx context.Context, env Envelope) error

// deliveryKey marks the context handed to handlers with the delivering bus.
type deliveryKey struct{}

// MessageConfig overrides the bus delivery settings for one message name.
type MessageConfig struct {
	// PublishTimeout is the deadline handed to handlers. Zero disables it.
	PublishTimeout time.Duration
	Sequential     bool
}

// Bus is an in-memory message bus built on a Registry. The registry decides
// who is subscribed; the bus keeps the handler instances and invokes them.
type Bus struct {
	registry       *Registry
	logger         *zap.Logger
	publishTimeout time.Duration
	sequential     bool

	mu       sync.RWMutex
	invokers map[Descriptor]invoker   // exact descriptor -> handler instance
	configs  map[string]MessageConfig // message name -> overrides
	closed   bool
	inflight sync.WaitGroup
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithRegistry makes the bus use reg instead of a fresh Registry.
func WithRegistry(reg *Registry) BusOption {
	return func(b *Bus) {
		if reg != nil {
			b.registry = reg
		}
	}
}

// WithBusLogger sets the logger. Nil is ignored.
func WithBusLogger(l *zap.Logger) BusOption {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithPublishTimeout sets the deadline handed to handlers on each publish.
// Zero disables it.
func WithPublishTimeout(d time.Duration) BusOption {
	return func(b *Bus) {
		if d >= 0 {
			b.publishTimeout = d
		}
	}
}

// WithSequentialDelivery invokes handlers one at a time in collection order
// instead of concurrently.
func WithSequentialDelivery(sequential bool) BusOption {
	return func(b *Bus) { b.sequential = sequential }
}

// NewBus creates a Bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		logger:         zap.NewNop(),
		publishTimeout: DefaultPublishTimeout,
		invokers:       make(map[Descriptor]invoker),
		configs:        make(map[string]MessageConfig),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.registry == nil {
		b.registry = New(WithLogger(b.logger))
	}
	b.logger = b.logger.Named("bus")
	return b
}

// Registry returns the registry backing the bus.
func (b *Bus) Registry() *Registry {
	return b.registry
}

// ConfigureMessage sets delivery overrides for messageName. Names without
// overrides use the bus-wide settings.
func (b *Bus) ConfigureMessage(messageName string, config MessageConfig) error {
	if messageName == "" {
		return ArgumentError{Param: "messageName", Reason: "must not be empty"}
	}
	if config.PublishTimeout < 0 {
		return ArgumentError{Param: "PublishTimeout", Reason: "must not be negative"}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	b.configs[messageName] = config
	b.logger.Debug("message configured",
		zap.String("message", messageName),
		zap.Duration("publishTimeout", config.PublishTimeout),
		zap.Bool("sequential", config.Sequential),
	)
	return nil
}

// messageConfig returns the delivery settings for messageName.
// Callers hold b.mu.
func (b *Bus) messageConfig(messageName string) MessageConfig {
	if config, ok := b.configs[messageName]; ok {
		return config
	}
	return MessageConfig{PublishTimeout: b.publishTimeout, Sequential: b.sequential}
}

func (b *Bus) register(messageName string, d Descriptor, inv invoker) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	if err := b.registry.Add(messageName, d); err != nil {
		return err
	}
	b.invokers[d] = inv
	return nil
}

func (b *Bus) unregister(messageName string, d Descriptor) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// both are exact matches on d, so a descriptor of another kind for the
	// same handler leaves the registration and its instance alone
	b.registry.Remove(messageName, d)
	delete(b.invokers, d)
}

// SubscribeHandler subscribes h to messages of type M.
func SubscribeHandler[M Message, H Handler[M]](b *Bus, h H) error {
	name := GetMessageName[M]()
	d := Typed(name, GetHandlerName[H]())
	return b.register(name, d, func(ctx context.Context, env Envelope) error {
		msg, ok := env.Payload.(M)
		if !ok {
			return errSkipped
		}
		return h.Handle(ctx, msg)
	})
}

// SubscribeDynamicHandler subscribes h to every message published under messageName.
func SubscribeDynamicHandler[H DynamicHandler](b *Bus, messageName string, h H) error {
	d := Dynamic(messageName, GetHandlerName[H]())
	return b.register(messageName, d, func(ctx context.Context, env Envelope) error {
		return h.HandleDynamic(ctx, env.Name, env.Payload)
	})
}

// UnsubscribeHandler removes the handler registered by SubscribeHandler[M, H].
func UnsubscribeHandler[M Message, H Handler[M]](b *Bus) {
	name := GetMessageName[M]()
	b.unregister(name, Typed(name, GetHandlerName[H]()))
}

// UnsubscribeDynamicHandler removes the handler registered by SubscribeDynamicHandler[H].
func UnsubscribeDynamicHandler[H DynamicHandler](b *Bus, messageName string) {
	b.unregister(messageName, Dynamic(messageName, GetHandlerName[H]()))
}

// Publish delivers msg to every handler subscribed to M's message name.
func Publish[M Message](ctx context.Context, b *Bus, msg M) (Envelope, error) {
	return b.PublishDynamic(ctx, GetMessageName[M](), msg)
}

// PublishDynamic delivers payload to the handlers subscribed under
// messageName. Dynamic handlers always receive it; typed handlers only when
// payload has their message type. Publishing to a name without subscribers
// is not an error. Handler failures are returned joined as HandlerErrors.
func (b *Bus) PublishDynamic(ctx context.Context, messageName string, payload any) (Envelope, error) {
	if messageName == "" {
		return Envelope{}, ArgumentError{Param: "messageName", Reason: "must not be empty"}
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return Envelope{}, ErrBusClosed
	}
	b.inflight.Add(1)
	b.mu.RUnlock()
	defer b.inflight.Done()

	env := Envelope{
		ID:          uuid.New(),
		Name:        messageName,
		Payload:     payload,
		PublishedAt: time.Now(),
	}

	descs, err := b.registry.GetSubscribers(messageName)
	if errors.Is(err, ErrKeyNotFound) {
		b.logger.Debug("no subscribers", zap.String("message", messageName), zap.Stringer("id", env.ID))
		return env, nil
	}
	if err != nil {
		return env, err
	}

	b.mu.RLock()
	invokers := make([]invoker, len(descs))
	for i, d := range descs {
		invokers[i] = b.invokers[d]
	}
	config := b.messageConfig(messageName)
	b.mu.RUnlock()

	b.logger.Debug("publishing",
		zap.String("message", messageName),
		zap.Stringer("id", env.ID),
		zap.Int("subscribers", len(descs)),
	)
	return env, b.deliver(ctx, env, config, descs, invokers)
}

func (b *Bus) deliver(ctx context.Context, env Envelope, config MessageConfig, descs []Descriptor, invokers []invoker) error {
	ctx = context.WithValue(ctx, deliveryKey{}, b)
	if config.PublishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.PublishTimeout)
		defer cancel()
	}

	errs := make([]error, len(descs))
	if config.Sequential {
		for i, d := range descs {
			errs[i] = b.invoke(ctx, env, d, invokers[i])
		}
	} else {
		var wg sync.WaitGroup
		for i, d := range descs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = b.invoke(ctx, env, d, invokers[i])
			}()
		}
		wg.Wait()
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		b.logger.Warn("publish deadline exceeded",
			zap.String("message", env.Name),
			zap.Stringer("id", env.ID),
			zap.Duration("timeout", config.PublishTimeout),
		)
		errs = append(errs, fmt.Errorf("publish '%s': %w", env.Name, ctx.Err()))
	}
	return errors.Join(errs...)
}

// invoke runs a single handler, converting panics into errors.
func (b *Bus) invoke(ctx context.Context, env Envelope, d Descriptor, inv invoker) (err error) {
	if inv == nil {
		// registered on the registry directly, without an instance
		b.logger.Debug("no handler instance", zap.Stringer("descriptor", d))
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = HandlerError{MessageName: env.Name, HandlerType: d.HandlerType(), Err: fmt.Errorf("panic: %v", r)}
			b.logger.Error("handler panicked",
				zap.String("message", env.Name),
				zap.String("handler", d.HandlerType()),
				zap.Any("panic", r),
			)
		}
	}()

	if herr := inv(ctx, env); herr != nil {
		if errors.Is(herr, errSkipped) {
			return nil
		}
		b.logger.Error("handler failed",
			zap.String("message", env.Name),
			zap.String("handler", d.HandlerType()),
			zap.Error(herr),
		)
		return HandlerError{MessageName: env.Name, HandlerType: d.HandlerType(), Err: herr}
	}
	return nil
}

// Close stops accepting publishes and subscriptions, waits for in-flight
// publishes to finish, then clears all registrations. It is safe to call
// more than once. Close must not be called from a handler, since it would
// wait for the publish running that handler; handlers use Shutdown with
// the context they were given instead.
func (b *Bus) Close() {
	_ = b.Shutdown(context.Background())
}

// Shutdown is Close bounded by ctx. It returns ctx.Err() if ctx ends before
// in-flight publishes finish; cleanup still completes once they do.
// Called with the context a handler received from this bus, it returns
// immediately and cleanup runs when the current publish returns.
func (b *Bus) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		b.inflight.Wait()

		b.mu.Lock()
		clear(b.invokers)
		clear(b.configs)
		b.mu.Unlock()
		b.registry.Clear()
		b.logger.Debug("bus closed")
	}()

	if owner, _ := ctx.Value(deliveryKey{}).(*Bus); owner == b {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
