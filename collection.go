package msgsubscriber

import (
	"fmt"
	"iter"
	"slices"
)

// Collection is an ordered container of descriptors for one message name.
// Implementations need not be safe for concurrent use; the Registry
// serializes access.
type Collection interface {
	// New returns an empty collection of the same strategy.
	New() Collection
	Add(d Descriptor)
	// Remove deletes d, doing nothing if it is absent.
	Remove(d Descriptor)
	Any() bool
	Len() int
	All() iter.Seq[Descriptor]
}

// ListCollection keeps descriptors in insertion order.
type ListCollection struct {
	items []Descriptor
}

// NewListCollection returns an empty ListCollection.
func NewListCollection() *ListCollection {
	return &ListCollection{}
}

// New returns an empty ListCollection.
func (c *ListCollection) New() Collection { return NewListCollection() }

// Add appends d.
func (c *ListCollection) Add(d Descriptor) {
	c.items = append(c.items, d)
}

// Remove deletes d. It is a no-op if d is absent.
func (c *ListCollection) Remove(d Descriptor) {
	if i := slices.Index(c.items, d); i >= 0 {
		c.items = slices.Delete(c.items, i, i+1)
	}
}

// Any reports whether the collection holds at least one descriptor.
func (c *ListCollection) Any() bool { return len(c.items) > 0 }

// Len returns the number of descriptors.
func (c *ListCollection) Len() int { return len(c.items) }

// All yields the descriptors in insertion order.
func (c *ListCollection) All() iter.Seq[Descriptor] {
	return slices.Values(c.items)
}

// SetCollection keeps insertion order but stores equal descriptors once.
type SetCollection struct {
	items []Descriptor
	index map[Descriptor]struct{}
}

// NewSetCollection returns an empty SetCollection.
func NewSetCollection() *SetCollection {
	return &SetCollection{index: make(map[Descriptor]struct{})}
}

// New returns an empty SetCollection.
func (c *SetCollection) New() Collection { return NewSetCollection() }

// Add appends d unless an equal descriptor is already present.
func (c *SetCollection) Add(d Descriptor) {
	if _, ok := c.index[d]; ok {
		return
	}
	c.index[d] = struct{}{}
	c.items = append(c.items, d)
}

// Remove deletes d. It is a no-op if d is absent.
func (c *SetCollection) Remove(d Descriptor) {
	if _, ok := c.index[d]; !ok {
		return
	}
	delete(c.index, d)
	c.items = slices.DeleteFunc(c.items, func(x Descriptor) bool { return x == d })
}

// Any reports whether the collection holds at least one descriptor.
func (c *SetCollection) Any() bool { return len(c.items) > 0 }

// Len returns the number of descriptors.
func (c *SetCollection) Len() int { return len(c.items) }

// All yields the descriptors in insertion order.
func (c *SetCollection) All() iter.Seq[Descriptor] {
	return slices.Values(c.items)
}

// PriorityFunc ranks a descriptor; higher values come first.
type PriorityFunc func(Descriptor) int

// PriorityCollection orders descriptors by descending priority.
// Descriptors with equal priority keep insertion order.
type PriorityCollection struct {
	items    []Descriptor
	priority PriorityFunc
}

// NewPriorityCollection returns a priority ordered collection. A nil
// priority ranks everything equally, which degrades to insertion order.
func NewPriorityCollection(priority PriorityFunc) *PriorityCollection {
	if priority == nil {
		priority = func(Descriptor) int { return 0 }
	}
	return &PriorityCollection{priority: priority}
}

// New returns an empty PriorityCollection with the same PriorityFunc.
func (c *PriorityCollection) New() Collection { return NewPriorityCollection(c.priority) }

// Add inserts d after every descriptor of equal or higher priority.
func (c *PriorityCollection) Add(d Descriptor) {
	p := c.priority(d)
	// first position whose priority is strictly lower keeps ties stable
	i := slices.IndexFunc(c.items, func(x Descriptor) bool { return c.priority(x) < p })
	if i < 0 {
		c.items = append(c.items, d)
		return
	}
	c.items = slices.Insert(c.items, i, d)
}

// Remove deletes d. It is a no-op if d is absent.
func (c *PriorityCollection) Remove(d Descriptor) {
	if i := slices.Index(c.items, d); i >= 0 {
		c.items = slices.Delete(c.items, i, i+1)
	}
}

// Any reports whether the collection holds at least one descriptor.
func (c *PriorityCollection) Any() bool { return len(c.items) > 0 }

// Len returns the number of descriptors.
func (c *PriorityCollection) Len() int { return len(c.items) }

// All yields the descriptors in descending priority.
func (c *PriorityCollection) All() iter.Seq[Descriptor] {
	return slices.Values(c.items)
}

// Collection strategy names accepted by CollectionByName.
const (
	CollectionList     = "list"
	CollectionSet      = "set"
	CollectionPriority = "priority"
)

// CollectionByName returns the prototype for a named strategy. The priority
// strategy uses priority, which may be nil.
func CollectionByName(name string, priority PriorityFunc) (Collection, error) {
	switch name {
	case "", CollectionList:
		return NewListCollection(), nil
	case CollectionSet:
		return NewSetCollection(), nil
	case CollectionPriority:
		return NewPriorityCollection(priority), nil
	default:
		return nil, ArgumentError{Param: "collection", Reason: fmt.Sprintf("unknown strategy %q", name)}
	}
}
