package foo

import (
	"context"

	"github.com/woxQAQ/oobridge/internal/lifecycle"
	"github.com/woxQAQ/oobridge/internal/marshal"
)

// TestClass is a counter owned by the core. The core tracks how many
// instances are alive.
type TestClass struct {
	l   *Library
	res *lifecycle.Resource
}

func (l *Library) NewTestClass(ctx context.Context, value uint32) (*TestClass, error) {
	res, err := l.b.Construct(ctx, "TestClass", sigTestClassNew, sigTestClassDestroy, marshal.U32(value))
	if err != nil {
		return nil, err
	}
	return &TestClass{l: l, res: res}, nil
}

func (c *TestClass) GetValue(ctx context.Context) (uint32, error) {
	r, err := c.l.b.Method(ctx, c.res, sigTestClassGetValue)
	return uint32(r.Uint()), err
}

func (c *TestClass) IncrementValue(ctx context.Context) error {
	_, err := c.l.b.Method(ctx, c.res, sigTestClassIncrementValue)
	return err
}

// Close destroys the instance. Safe to call multiple times.
func (c *TestClass) Close(ctx context.Context) error {
	return c.res.Close(ctx)
}

// ConstructionCounter returns the number of live TestClass instances as
// counted by the core.
func (l *Library) ConstructionCounter(ctx context.Context) (uint32, error) {
	r, err := l.call(ctx, sigConstructionCounter)
	return uint32(r.Uint()), err
}
