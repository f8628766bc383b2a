package marshal

import (
	"context"
	"iter"
	"sync"

	"github.com/woxQAQ/oobridge/internal/ffierr"
	"github.com/woxQAQ/oobridge/internal/native"
)

// Iterator is a forward-only cursor over items produced by native code.
// It is consumed once and cannot be restarted; it stops working once the
// callback that received it returns.
type Iterator struct {
	ctx    context.Context
	typ    *IteratorType
	handle uint64
	dec    *Decoder

	mu    sync.Mutex
	next  native.Function
	cur   Value
	valid bool
	done  bool
	err   error
}

// Type returns the iterator's type.
func (it *Iterator) Type() *IteratorType {
	return it.typ
}

// Next advances to the next item. It returns false at the end of the
// sequence, on error, or once the iterator has been invalidated.
func (it *Iterator) Next() bool {
	it.mu.Lock()
	defer it.mu.Unlock()

	if it.done {
		return false
	}
	if !it.valid {
		it.fail(&ffierr.LifecycleError{Type: it.typ.Name, Op: "next"})
		return false
	}

	if it.next == nil {
		fn, err := it.dec.resolve(it.typ.Next)
		if err != nil {
			it.fail(err)
			return false
		}
		it.next = fn
	}

	res, err := it.next.Call(it.ctx, it.handle)
	if err != nil {
		it.fail(&native.CallError{Symbol: it.typ.Next, Err: err})
		return false
	}
	if len(res) == 0 || res[0] == 0 {
		it.done = true
		it.cur = Null()
		return false
	}

	v, err := it.dec.Load(it.ctx, res[0], it.typ.Item)
	if err != nil {
		it.fail(err)
		return false
	}
	it.cur = v
	return true
}

// Value returns the current item.
func (it *Iterator) Value() Value {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.cur
}

// Err returns the error that stopped iteration, if any.
func (it *Iterator) Err() error {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.err
}

// All yields the remaining items. Check Err afterwards.
func (it *Iterator) All() iter.Seq[Value] {
	return func(yield func(Value) bool) {
		for it.Next() {
			if !yield(it.Value()) {
				return
			}
		}
	}
}

func (it *Iterator) fail(err error) {
	it.done = true
	it.err = err
	it.cur = Null()
}

func (it *Iterator) invalidate() {
	it.mu.Lock()
	it.valid = false
	it.mu.Unlock()
}
