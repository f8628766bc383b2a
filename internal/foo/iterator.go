package foo

import (
	"context"
	"iter"

	"github.com/woxQAQ/oobridge/internal/callback"
	"github.com/woxQAQ/oobridge/internal/marshal"
)

// Iterator is a forward-only cursor owned by the core. It is only valid
// inside the callback that received it; afterwards Next returns false and
// Err reports a *ffierr.LifecycleError.
type Iterator[T any] struct {
	it   *marshal.Iterator
	conv func(marshal.Value) T
}

// StringIterator yields the bytes of a string.
type StringIterator = Iterator[byte]

// RangeIterator yields a range of integers.
type RangeIterator = Iterator[int32]

func (it *Iterator[T]) Next() bool {
	return it.it.Next()
}

func (it *Iterator[T]) Value() T {
	return it.conv(it.it.Value())
}

func (it *Iterator[T]) Err() error {
	return it.it.Err()
}

// All yields the remaining items. Check Err afterwards.
func (it *Iterator[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for v := range it.it.All() {
			if !yield(it.conv(v)) {
				return
			}
		}
	}
}

func receiver[T any](iface *callback.Interface, op string, fn func(*Iterator[T]), conv func(marshal.Value) T) marshal.Value {
	if fn == nil {
		return marshal.Null()
	}
	return marshal.InterfaceOf(&callback.Binding{
		Interface: iface,
		Target:    fn,
		Methods: callback.Methods{
			op: func(_ context.Context, args []marshal.Value) (marshal.Value, error) {
				fn(&Iterator[T]{it: args[0].Iterator(), conv: conv})
				return marshal.Null(), nil
			},
		},
	})
}

// InvokeStringCallback has the core call fn with an iterator over the bytes
// of value.
func (l *Library) InvokeStringCallback(ctx context.Context, value string, fn func(*StringIterator)) error {
	cb := receiver(stringIteratorReceiver, "on_characters", fn, func(v marshal.Value) byte {
		return byte(v.Uint())
	})
	_, err := l.call(ctx, sigInvokeStringCallback, marshal.Str(value), cb)
	return err
}

// InvokeRangeCallback has the core call fn with an iterator over 1, 2, 3.
func (l *Library) InvokeRangeCallback(ctx context.Context, fn func(*RangeIterator)) error {
	cb := receiver(rangeIteratorReceiver, "on_int32", fn, func(v marshal.Value) int32 {
		return int32(v.Int())
	})
	_, err := l.call(ctx, sigInvokeRangeCallback, cb)
	return err
}

// InvokeChunked has the core deliver value to fn in chunks of at most size
// bytes. A zero size delivers value in one chunk.
func (l *Library) InvokeChunked(ctx context.Context, value string, size uint32, fn func(chunk string)) error {
	cb := marshal.Null()
	if fn != nil {
		cb = marshal.InterfaceOf(&callback.Binding{
			Interface: chunkReceiver,
			Target:    fn,
			Methods: callback.Methods{
				"on_chunk": func(_ context.Context, args []marshal.Value) (marshal.Value, error) {
					fn(args[0].Str())
					return marshal.Null(), nil
				},
			},
		})
	}
	_, err := l.call(ctx, sigInvokeChunked, marshal.Str(value), marshal.U32(size), cb)
	return err
}
