package fooffi

import (
	"context"

	"github.com/woxQAQ/oobridge/internal/native"
)

const (
	password     = "12345"
	specialValue = 42
	secretTest   = 41
)

// MyError status values.
const (
	statusBadPassword uint32 = 1
)

// writeInner stores the InnerStructure handed out by foo_get_struct. The
// test field is only filled in for callers who know the password.
func (l *Library) writeInner(out uint64, unlocked bool) error {
	const var2 = 1
	fields := []uint64{0, var2, 1, 0, var2}
	if unlocked {
		fields[0] = secretTest
	}
	for i, v := range fields {
		size := innerStructure.Fields[i].Type.Layout().Size
		if err := native.WriteUint(l.mem, out+uint64(innerStructure.Offset(i)), size, v); err != nil {
			return err
		}
	}
	return nil
}

type classWithPassword struct {
	special uint32
}

func (l *Library) checkPassword(ptr, length uint64) (bool, error) {
	s, err := l.readString(ptr, length)
	if err != nil {
		return false, err
	}
	return s == password, nil
}

func (l *Library) registerPassword() {
	// foo_class_with_password_new(ptr, len, out) -> status
	l.export("foo_class_with_password_new", 3, func(_ context.Context, p []uint64) ([]uint64, error) {
		ok, err := l.checkPassword(p[0], p[1])
		if err != nil {
			return nil, err
		}
		if !ok {
			return []uint64{uint64(statusBadPassword)}, nil
		}
		h := l.store(&classWithPassword{special: specialValue})
		return []uint64{uint64(native.StatusOK)}, native.WriteUint64(l.mem, p[2], h)
	})

	l.export("foo_class_with_password_destroy", 1, func(_ context.Context, p []uint64) ([]uint64, error) {
		_, err := take[*classWithPassword](l, p[0])
		return nil, err
	})

	// foo_get_special_value_from_instance(instance, out) -> status
	l.export("foo_get_special_value_from_instance", 2, func(_ context.Context, p []uint64) ([]uint64, error) {
		c, err := object[*classWithPassword](l, p[0])
		if err != nil {
			return nil, err
		}
		return []uint64{uint64(native.StatusOK)}, native.WriteUint32(l.mem, p[1], c.special)
	})

	// foo_get_special_value(ptr, len, out) -> status
	l.export("foo_get_special_value", 3, func(_ context.Context, p []uint64) ([]uint64, error) {
		ok, err := l.checkPassword(p[0], p[1])
		if err != nil {
			return nil, err
		}
		if !ok {
			return []uint64{uint64(statusBadPassword)}, nil
		}
		return []uint64{uint64(native.StatusOK)}, native.WriteUint32(l.mem, p[2], specialValue)
	})

	// foo_get_struct(ptr, len, out) -> status. A wrong password still fills
	// in every field but test.
	l.export("foo_get_struct", 3, func(_ context.Context, p []uint64) ([]uint64, error) {
		ok, err := l.checkPassword(p[0], p[1])
		if err != nil {
			return nil, err
		}
		if err := l.writeInner(p[2], ok); err != nil {
			return nil, err
		}
		if !ok {
			return []uint64{uint64(statusBadPassword)}, nil
		}
		return []uint64{uint64(native.StatusOK)}, nil
	})

	// foo_echo_password(ptr, len, out) -> status. The caller frees the
	// echoed password.
	l.export("foo_echo_password", 3, func(_ context.Context, p []uint64) ([]uint64, error) {
		s, err := l.readString(p[0], p[1])
		if err != nil {
			return nil, err
		}
		if s != password {
			return []uint64{uint64(statusBadPassword)}, nil
		}

		return []uint64{uint64(native.StatusOK)}, l.give(p[2], s)
	})
}
