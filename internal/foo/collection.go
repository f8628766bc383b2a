package foo

import (
	"context"

	"github.com/woxQAQ/oobridge/internal/marshal"
)

// CollectionSize returns the number of items the core sees. Collections are
// lent to the core for one call and read one element at a time. A nil slice
// is a null argument.
func (l *Library) CollectionSize(ctx context.Context, items []string) (uint32, error) {
	r, err := l.call(ctx, sigCollectionSize, marshal.CollectionOf(marshal.Strings(items)))
	return uint32(r.Uint()), err
}

// CollectionGet returns items[idx] as read by the core, or "" when idx is
// out of range.
func (l *Library) CollectionGet(ctx context.Context, items []string, idx uint32) (string, error) {
	r, err := l.call(ctx, sigCollectionGet, marshal.CollectionOf(marshal.Strings(items)), marshal.U32(idx))
	return r.Str(), err
}

// CollectionJoin concatenates items with sep.
func (l *Library) CollectionJoin(ctx context.Context, items []string, sep string) (string, error) {
	r, err := l.call(ctx, sigCollectionJoin, marshal.CollectionOf(marshal.Strings(items)), marshal.Str(sep))
	return r.Str(), err
}
