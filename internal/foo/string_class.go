package foo

import (
	"context"
	"sync"

	"github.com/woxQAQ/oobridge/internal/lifecycle"
	"github.com/woxQAQ/oobridge/internal/marshal"
)

// StringClass echoes strings through a buffer owned by the instance. Echo
// calls on one instance are serialized; separate instances run in parallel.
type StringClass struct {
	l   *Library
	res *lifecycle.Resource

	// The core reuses the buffer on every echo, so one echo must be copied
	// out before the next starts.
	mu sync.Mutex
}

func (l *Library) NewStringClass(ctx context.Context) (*StringClass, error) {
	res, err := l.b.Construct(ctx, "StringClass", sigStringClassNew, sigStringClassDestroy)
	if err != nil {
		return nil, err
	}
	return &StringClass{l: l, res: res}, nil
}

func (c *StringClass) Echo(ctx context.Context, s string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, err := c.l.b.Method(ctx, c.res, sigStringClassEcho, marshal.Str(s))
	return r.Str(), err
}

// Close destroys the instance and its buffer. Safe to call multiple times.
func (c *StringClass) Close(ctx context.Context) error {
	return c.res.Close(ctx)
}
