package foo

import (
	"context"
	"time"

	"github.com/woxQAQ/oobridge/internal/bridge"
	"github.com/woxQAQ/oobridge/internal/marshal"
)

func (l *Library) call(ctx context.Context, sig *bridge.Signature, args ...marshal.Value) (marshal.Value, error) {
	return l.b.Call(ctx, sig, args...)
}

func (l *Library) BoolEcho(ctx context.Context, v bool) (bool, error) {
	r, err := l.call(ctx, sigBoolEcho, marshal.Bool(v))
	return r.AsBool(), err
}

func (l *Library) Uint8Echo(ctx context.Context, v uint8) (uint8, error) {
	r, err := l.call(ctx, sigU8Echo, marshal.U8(v))
	return uint8(r.Uint()), err
}

func (l *Library) Uint16Echo(ctx context.Context, v uint16) (uint16, error) {
	r, err := l.call(ctx, sigU16Echo, marshal.U16(v))
	return uint16(r.Uint()), err
}

func (l *Library) Uint32Echo(ctx context.Context, v uint32) (uint32, error) {
	r, err := l.call(ctx, sigU32Echo, marshal.U32(v))
	return uint32(r.Uint()), err
}

func (l *Library) Uint64Echo(ctx context.Context, v uint64) (uint64, error) {
	r, err := l.call(ctx, sigU64Echo, marshal.U64(v))
	return r.Uint(), err
}

func (l *Library) Int8Echo(ctx context.Context, v int8) (int8, error) {
	r, err := l.call(ctx, sigI8Echo, marshal.I8(v))
	return int8(r.Int()), err
}

func (l *Library) Int16Echo(ctx context.Context, v int16) (int16, error) {
	r, err := l.call(ctx, sigI16Echo, marshal.I16(v))
	return int16(r.Int()), err
}

func (l *Library) Int32Echo(ctx context.Context, v int32) (int32, error) {
	r, err := l.call(ctx, sigI32Echo, marshal.I32(v))
	return int32(r.Int()), err
}

func (l *Library) Int64Echo(ctx context.Context, v int64) (int64, error) {
	r, err := l.call(ctx, sigI64Echo, marshal.I64(v))
	return r.Int(), err
}

func (l *Library) Float32Echo(ctx context.Context, v float32) (float32, error) {
	r, err := l.call(ctx, sigF32Echo, marshal.F32(v))
	return float32(r.Float()), err
}

func (l *Library) Float64Echo(ctx context.Context, v float64) (float64, error) {
	r, err := l.call(ctx, sigF64Echo, marshal.F64(v))
	return r.Float(), err
}

// DurationMillisEcho round-trips d as whole milliseconds.
func (l *Library) DurationMillisEcho(ctx context.Context, d time.Duration) (time.Duration, error) {
	r, err := l.call(ctx, sigDurationMillisEcho, marshal.Duration(d))
	return r.Duration(), err
}

// DurationSecondsEcho round-trips d as whole seconds.
func (l *Library) DurationSecondsEcho(ctx context.Context, d time.Duration) (time.Duration, error) {
	r, err := l.call(ctx, sigDurationSecondsEcho, marshal.Duration(d))
	return r.Duration(), err
}

// DurationSecondsFloatEcho round-trips d as fractional seconds.
func (l *Library) DurationSecondsFloatEcho(ctx context.Context, d time.Duration) (time.Duration, error) {
	r, err := l.call(ctx, sigDurationSecondsFloatEcho, marshal.Duration(d))
	return r.Duration(), err
}

// StringLength returns the length of s in UTF-8 bytes.
func (l *Library) StringLength(ctx context.Context, s string) (uint32, error) {
	r, err := l.call(ctx, sigStringLength, marshal.Str(s))
	return uint32(r.Uint()), err
}

// StringCharCount returns the number of code points in s.
func (l *Library) StringCharCount(ctx context.Context, s string) (uint32, error) {
	r, err := l.call(ctx, sigStringCharCount, marshal.Str(s))
	return uint32(r.Uint()), err
}

func (l *Library) StringEcho(ctx context.Context, s string) (string, error) {
	r, err := l.call(ctx, sigStringEcho, marshal.Str(s))
	return r.Str(), err
}
