package foo

import (
	"context"
	"errors"

	"github.com/woxQAQ/oobridge/internal/ffierr"
	"github.com/woxQAQ/oobridge/internal/lifecycle"
	"github.com/woxQAQ/oobridge/internal/marshal"
)

// ClassWithPassword can only be constructed with the right password.
type ClassWithPassword struct {
	l   *Library
	res *lifecycle.Resource
}

// NewClassWithPassword fails with a *ffierr.ConstructionError wrapping
// ErrBadPassword when password is wrong.
func (l *Library) NewClassWithPassword(ctx context.Context, password string) (*ClassWithPassword, error) {
	res, err := l.b.Construct(ctx, "ClassWithPassword", sigClassWithPasswordNew, sigClassWithPasswordDestroy,
		marshal.Str(password))
	if err != nil {
		return nil, err
	}
	return &ClassWithPassword{l: l, res: res}, nil
}

func (c *ClassWithPassword) GetSpecialValue(ctx context.Context) (uint32, error) {
	r, err := c.l.b.Method(ctx, c.res, sigGetSpecialValueFromInstance)
	return uint32(r.Uint()), err
}

func (c *ClassWithPassword) Close(ctx context.Context) error {
	return c.res.Close(ctx)
}

// GetSpecialValue returns the secret value guarded by password.
func (l *Library) GetSpecialValue(ctx context.Context, password string) (uint32, error) {
	r, err := l.call(ctx, sigGetSpecialValue, marshal.Str(password))
	return uint32(r.Uint()), err
}

// EchoPassword returns password if it is correct.
func (l *Library) EchoPassword(ctx context.Context, password string) (string, error) {
	r, err := l.call(ctx, sigEchoPassword, marshal.Str(password))
	return r.Str(), err
}

// GetStruct returns the InnerStructure guarded by password. A wrong
// password fails with an *ffierr.OperationError matching ErrBadPassword
// whose Payload is the InnerStructure without its Test field.
func (l *Library) GetStruct(ctx context.Context, password string) (InnerStructure, error) {
	r, err := l.call(ctx, sigGetStruct, marshal.Str(password))
	if err != nil {
		var opErr *ffierr.OperationError
		if errors.As(err, &opErr) {
			if v, ok := opErr.Payload.(marshal.Value); ok {
				opErr.Payload = innerStructureFrom(v)
			}
		}
		return InnerStructure{}, err
	}
	return innerStructureFrom(r), nil
}
