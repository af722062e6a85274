package msgsubscriber

import (
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// Registry tracks, per message name, the descriptors of the handlers that
// should be invoked when a message of that name is dispatched. It never
// invokes handlers itself.
//
// A message name is a key iff its collection is non-empty. All methods are
// safe for concurrent use; one lock guards the whole map so that key creation,
// the duplicate check and key deletion are observed atomically.
type Registry struct {
	mu          sync.RWMutex
	subscribers map[string]Collection // message name -> descriptors
	prototype   Collection
	logger      *zap.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithCollection sets the prototype whose New method creates the collection
// for each message name. Nil is ignored.
func WithCollection(c Collection) Option {
	return func(r *Registry) {
		if c != nil {
			r.prototype = c
		}
	}
}

// WithLogger sets the logger. Nil is ignored.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates an empty Registry backed by list collections unless configured otherwise.
func New(opts ...Option) *Registry {
	r := &Registry{
		subscribers: make(map[string]Collection),
		prototype:   NewListCollection(),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("registry")
	return r
}

// IsEmpty reports whether no message name has a registered subscriber.
func (r *Registry) IsEmpty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscribers) == 0
}

// Len returns the total number of registered descriptors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, c := range r.subscribers {
		n += c.Len()
	}
	return n
}

// MessageNames returns the registered message names in sorted order.
func (r *Registry) MessageNames() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.subscribers))
	for name := range r.subscribers {
		names = append(names, name)
	}
	r.mu.RUnlock()

	slices.Sort(names)
	return names
}

// GetSubscribers returns a copy of the descriptors registered for messageName,
// in collection order. Unknown names yield ErrKeyNotFound rather than an
// empty result.
func (r *Registry) GetSubscribers(messageName string) ([]Descriptor, error) {
	if messageName == "" {
		return nil, ArgumentError{Param: "messageName", Reason: "must not be empty"}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.subscribers[messageName]
	if !ok {
		return nil, NotFoundError{MessageName: messageName}
	}
	return slices.Collect(c.All()), nil
}

// HasSubscriber reports whether messageName has at least one descriptor.
// Like GetSubscribers it fails with ErrKeyNotFound for unknown names.
func (r *Registry) HasSubscriber(messageName string) (bool, error) {
	if messageName == "" {
		return false, ArgumentError{Param: "messageName", Reason: "must not be empty"}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.subscribers[messageName]
	if !ok {
		return false, NotFoundError{MessageName: messageName}
	}
	return c.Any(), nil
}

// Add registers d under messageName. It fails with ErrInvalidArgument for an
// empty name or incomplete descriptor and with ErrDuplicateRegistration when a
// descriptor with the same handler type already exists for the name,
// whatever its kind.
func (r *Registry) Add(messageName string, d Descriptor) error {
	if messageName == "" {
		return ArgumentError{Param: "messageName", Reason: "must not be empty"}
	}
	if err := d.validate(); err != nil {
		return err
	}
	if d.MessageName() != messageName {
		return ArgumentError{
			Param:  "descriptor",
			Reason: fmt.Sprintf("registered under %q but names message %q", messageName, d.MessageName()),
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.subscribers[messageName]
	if !ok {
		c = r.prototype.New()
		r.subscribers[messageName] = c
		r.logger.Debug("message name created", zap.String("message", messageName))
	}

	for existing := range c.All() {
		if existing.HandlerType() == d.HandlerType() {
			r.logger.Warn("duplicate registration rejected",
				zap.String("message", messageName),
				zap.String("handler", d.HandlerType()),
				zap.Stringer("existing", existing),
			)
			return DuplicateError{MessageName: messageName, HandlerType: d.HandlerType()}
		}
	}

	c.Add(d)
	r.logger.Debug("subscriber added",
		zap.String("message", messageName),
		zap.Stringer("descriptor", d),
	)
	return nil
}

// Remove deletes d from messageName's collection and drops the name once
// its collection is empty. Missing names or descriptors are ignored.
func (r *Registry) Remove(messageName string, d Descriptor) {
	if messageName == "" || d.IsZero() {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.subscribers[messageName]
	if !ok || !c.Any() {
		return
	}

	c.Remove(d)
	r.logger.Debug("subscriber removed",
		zap.String("message", messageName),
		zap.Stringer("descriptor", d),
	)

	if !c.Any() {
		delete(r.subscribers, messageName)
		r.logger.Debug("message name has no more subscribers, removed", zap.String("message", messageName))
	}
}

// Clear drops every registration.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.subscribers)
	r.logger.Debug("registry cleared")
}

// GetSubscribersFor is GetSubscribers with the name derived from M.
func GetSubscribersFor[M Message](r *Registry) ([]Descriptor, error) {
	return r.GetSubscribers(GetMessageName[M]())
}

// HasSubscriberFor is HasSubscriber with the name derived from M.
func HasSubscriberFor[M Message](r *Registry) (bool, error) {
	return r.HasSubscriber(GetMessageName[M]())
}

// Subscribe registers handler type H for message type M.
func Subscribe[M Message, H Handler[M]](r *Registry) error {
	name := GetMessageName[M]()
	return r.Add(name, Typed(name, GetHandlerName[H]()))
}

// SubscribeDynamic registers handler type H under messageName.
func SubscribeDynamic[H DynamicHandler](r *Registry, messageName string) error {
	return r.Add(messageName, Dynamic(messageName, GetHandlerName[H]()))
}

// Unsubscribe removes the registration made by Subscribe[M, H].
// It is a no-op if there is none.
func Unsubscribe[M Message, H Handler[M]](r *Registry) {
	name := GetMessageName[M]()
	r.Remove(name, Typed(name, GetHandlerName[H]()))
}

// UnsubscribeDynamic removes the registration made by SubscribeDynamic[H].
// It is a no-op if there is none.
func UnsubscribeDynamic[H DynamicHandler](r *Registry, messageName string) {
	r.Remove(messageName, Dynamic(messageName, GetHandlerName[H]()))
}
