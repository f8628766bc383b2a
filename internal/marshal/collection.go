package marshal

import "context"

// Collection is a sized, indexable view handed to native code.
// Native code pulls elements one at a time; nothing is bulk-copied.
type Collection interface {
	Len() int
	At(i int) Value
}

type sliceCollection[T any] struct {
	items []T
	conv  func(T) Value
}

func (c *sliceCollection[T]) Len() int       { return len(c.items) }
func (c *sliceCollection[T]) At(i int) Value { return c.conv(c.items[i]) }

// SliceOf exposes a Go slice as a Collection. A nil slice yields a nil
// Collection, which marshals as null.
func SliceOf[T any](items []T, conv func(T) Value) Collection {
	if items == nil {
		return nil
	}
	return &sliceCollection[T]{items: items, conv: conv}
}

// Strings exposes a string slice as a Collection.
func Strings(items []string) Collection {
	return SliceOf(items, Str)
}

// Binding is a Go implementation of a capability interface, ready to be
// registered so native code can call it.
type Binding interface {
	InterfaceName() string
}

// Interfaces registers bindings for native code and resolves handles that
// native code returns.
type Interfaces interface {
	RegisterBinding(ctx context.Context, b Binding) (uint64, error)
	// ReleaseBinding drops a registration that native code never received.
	ReleaseBinding(handle uint64)
	// TakeBinding transfers a handle returned by native code back to Go.
	TakeBinding(handle uint64) (Binding, bool)
}

// Collections exposes collections to native code for the duration of a call.
type Collections interface {
	ExposeCollection(c Collection, elem Type) uint64
	RetractCollection(ctx context.Context, handle uint64)
}
