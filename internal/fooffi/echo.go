package fooffi

import (
	"context"
	"unicode/utf8"
)

func identity(_ context.Context, p []uint64) ([]uint64, error) {
	return []uint64{p[0]}, nil
}

func (l *Library) registerEcho() {
	for _, name := range []string{
		"foo_bool_echo",
		"foo_u8_echo", "foo_u16_echo", "foo_u32_echo", "foo_u64_echo",
		"foo_i8_echo", "foo_i16_echo", "foo_i32_echo", "foo_i64_echo",
		"foo_f32_echo", "foo_f64_echo",
		"foo_duration_ms_echo", "foo_duration_s_echo", "foo_duration_s_float_echo",
		"foo_enum_zero_to_five_echo", "foo_enum_one_to_six_echo",
		"foo_enum_disjoint_echo", "foo_enum_single_echo",
	} {
		l.export(name, 1, identity)
	}

	// foo_string_length(ptr, len) -> u32 byte length
	l.export("foo_string_length", 2, func(_ context.Context, p []uint64) ([]uint64, error) {
		s, err := l.readString(p[0], p[1])
		if err != nil {
			return nil, err
		}
		return []uint64{uint64(len(s))}, nil
	})

	// foo_string_char_count(ptr, len) -> u32 code points
	l.export("foo_string_char_count", 2, func(_ context.Context, p []uint64) ([]uint64, error) {
		s, err := l.readString(p[0], p[1])
		if err != nil {
			return nil, err
		}
		return []uint64{uint64(utf8.RuneCountInString(s))}, nil
	})

	// foo_string_echo(ptr, len, out). The caller frees the echoed string.
	l.export("foo_string_echo", 3, func(_ context.Context, p []uint64) ([]uint64, error) {
		s, err := l.readString(p[0], p[1])
		if err != nil {
			return nil, err
		}
		return nil, l.give(p[2], s)
	})
}

// give copies s into a block handed over to the caller and stores its
// header at out.
func (l *Library) give(out uint64, s string) error {
	b := l.ownString(s)
	return l.writeStr(out, b.ptr, uint64(b.size))
}
