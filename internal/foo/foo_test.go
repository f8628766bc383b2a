package foo

import (
	"context"
	"errors"
	"math"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/woxQAQ/oobridge/internal/ffierr"
	"github.com/woxQAQ/oobridge/internal/marshal"
)

func newTestLibrary(t *testing.T) *Library {
	t.Helper()
	return openReference(t, zaptest.NewLogger(t))
}

func openReference(t *testing.T, logger *zap.Logger) *Library {
	t.Helper()
	l, err := OpenReference(context.Background(), nil, logger)
	if err != nil {
		t.Fatalf("Failed to open reference core: %v", err)
	}
	t.Cleanup(func() {
		if err := l.Close(context.Background()); err != nil {
			t.Errorf("Failed to close library: %v", err)
		}
	})
	return l
}

func TestLibrary_EnumEcho(t *testing.T) {
	ctx := context.Background()
	l := newTestLibrary(t)

	for v := EnumZeroToFiveZero; v <= EnumZeroToFiveFive; v++ {
		got, err := l.EnumZeroToFiveEcho(ctx, v)
		if err != nil || got != v {
			t.Errorf("EnumZeroToFiveEcho(%d) = %d, %v", v, got, err)
		}
	}
	for v := EnumOneToSixOne; v <= EnumOneToSixSix; v++ {
		got, err := l.EnumOneToSixEcho(ctx, v)
		if err != nil || got != v {
			t.Errorf("EnumOneToSixEcho(%d) = %d, %v", v, got, err)
		}
	}
	for _, v := range []EnumDisjoint{
		EnumDisjointFive, EnumDisjointOne, EnumDisjointTwenty,
		EnumDisjointFour, EnumDisjointSeven, EnumDisjointTwo,
	} {
		got, err := l.EnumDisjointEcho(ctx, v)
		if err != nil || got != v {
			t.Errorf("EnumDisjointEcho(%d) = %d, %v", v, got, err)
		}
	}
	if got, err := l.EnumSingleEcho(ctx, EnumSingleSingle); err != nil || got != EnumSingleSingle {
		t.Errorf("EnumSingleEcho() = %d, %v", got, err)
	}
}

func TestLibrary_EnumOutOfRange(t *testing.T) {
	ctx := context.Background()
	l := newTestLibrary(t)

	tests := []struct {
		name string
		call func() error
	}{
		{"zero to five", func() error { _, err := l.EnumZeroToFiveEcho(ctx, 6); return err }},
		{"one to six", func() error { _, err := l.EnumOneToSixEcho(ctx, 0); return err }},
		{"disjoint", func() error { _, err := l.EnumDisjointEcho(ctx, 3); return err }},
		{"single", func() error { _, err := l.EnumSingleEcho(ctx, 1); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			var rangeErr *ffierr.EnumRangeError
			if !errors.As(err, &rangeErr) {
				t.Fatalf("Expected EnumRangeError, got %v", err)
			}
			if rangeErr.Param != "value" {
				t.Errorf("Param = %q, want %q", rangeErr.Param, "value")
			}
		})
	}
}

func TestLibrary_UnsignedBounds(t *testing.T) {
	ctx := context.Background()
	l := newTestLibrary(t)

	for _, v := range []uint8{0, math.MaxUint8} {
		if got, err := l.Uint8Echo(ctx, v); err != nil || got != v {
			t.Errorf("Uint8Echo(%d) = %d, %v", v, got, err)
		}
	}
	for _, v := range []uint16{0, math.MaxUint16} {
		if got, err := l.Uint16Echo(ctx, v); err != nil || got != v {
			t.Errorf("Uint16Echo(%d) = %d, %v", v, got, err)
		}
	}
	for _, v := range []uint32{0, math.MaxUint32} {
		if got, err := l.Uint32Echo(ctx, v); err != nil || got != v {
			t.Errorf("Uint32Echo(%d) = %d, %v", v, got, err)
		}
	}
	for _, v := range []uint64{0, math.MaxUint64} {
		if got, err := l.Uint64Echo(ctx, v); err != nil || got != v {
			t.Errorf("Uint64Echo(%d) = %d, %v", v, got, err)
		}
	}
}

func TestLibrary_SignedBounds(t *testing.T) {
	ctx := context.Background()
	l := newTestLibrary(t)

	for _, v := range []int8{math.MinInt8, -1, 0, math.MaxInt8} {
		if got, err := l.Int8Echo(ctx, v); err != nil || got != v {
			t.Errorf("Int8Echo(%d) = %d, %v", v, got, err)
		}
	}
	for _, v := range []int16{math.MinInt16, -1, 0, math.MaxInt16} {
		if got, err := l.Int16Echo(ctx, v); err != nil || got != v {
			t.Errorf("Int16Echo(%d) = %d, %v", v, got, err)
		}
	}
	for _, v := range []int32{math.MinInt32, -1, 0, math.MaxInt32} {
		if got, err := l.Int32Echo(ctx, v); err != nil || got != v {
			t.Errorf("Int32Echo(%d) = %d, %v", v, got, err)
		}
	}
	for _, v := range []int64{math.MinInt64, -1, 0, math.MaxInt64} {
		if got, err := l.Int64Echo(ctx, v); err != nil || got != v {
			t.Errorf("Int64Echo(%d) = %d, %v", v, got, err)
		}
	}

	if got, err := l.Float32Echo(ctx, 12.34); err != nil || got != 12.34 {
		t.Errorf("Float32Echo(12.34) = %v, %v", got, err)
	}
	if got, err := l.Float64Echo(ctx, -56.78); err != nil || got != -56.78 {
		t.Errorf("Float64Echo(-56.78) = %v, %v", got, err)
	}
	for _, v := range []bool{true, false} {
		if got, err := l.BoolEcho(ctx, v); err != nil || got != v {
			t.Errorf("BoolEcho(%t) = %t, %v", v, got, err)
		}
	}
}

func TestLibrary_Strings(t *testing.T) {
	ctx := context.Background()
	l := newTestLibrary(t)

	n, err := l.StringLength(ctx, "Émile")
	if err != nil || n != 6 {
		t.Errorf("StringLength(Émile) = %d, %v, want 6", n, err)
	}
	n, err = l.StringCharCount(ctx, "Émile")
	if err != nil || n != 5 {
		t.Errorf("StringCharCount(Émile) = %d, %v, want 5", n, err)
	}

	for _, s := range []string{"Émile", "", "hello world"} {
		got, err := l.StringEcho(ctx, s)
		if err != nil || got != s {
			t.Errorf("StringEcho(%q) = %q, %v", s, got, err)
		}
	}

	if _, err := l.StringEcho(ctx, "\xff"); !ffierr.IsValidation(err) {
		t.Errorf("Expected invalid UTF-8 to fail validation, got %v", err)
	}
}

func TestLibrary_Durations(t *testing.T) {
	ctx := context.Background()
	l := newTestLibrary(t)

	tests := []struct {
		name string
		echo func(context.Context, time.Duration) (time.Duration, error)
		in   time.Duration
		want time.Duration
	}{
		{"millis zero", l.DurationMillisEcho, 0, 0},
		{"millis", l.DurationMillisEcho, 5 * time.Second, 5 * time.Second},
		{"millis truncates", l.DurationMillisEcho, 1500 * time.Microsecond, time.Millisecond},
		{"seconds zero", l.DurationSecondsEcho, 0, 0},
		{"seconds truncates", l.DurationSecondsEcho, 250 * time.Millisecond, 0},
		{"seconds", l.DurationSecondsEcho, 76 * time.Second, 76 * time.Second},
		{"float seconds zero", l.DurationSecondsFloatEcho, 0, 0},
		{"float seconds", l.DurationSecondsFloatEcho, 250 * time.Millisecond, 250 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.echo(ctx, tt.in)
			if err != nil {
				t.Fatalf("Failed to echo %v: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("echo(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}

	if _, err := l.DurationMillisEcho(ctx, -time.Second); !ffierr.IsValidation(err) {
		t.Errorf("Expected a negative duration to fail validation, got %v", err)
	}
}

func TestLibrary_NullArguments(t *testing.T) {
	ctx := context.Background()
	l := newTestLibrary(t)

	missingInterface := DefaultStructure()

	nullInner := DefaultStructure()
	nullInner.EmptyInterface = "marker"
	nullInnerValue := nullInner.value()
	nullInnerValue.Fields()[15] = marshal.Struct(
		marshal.U16(41), marshal.Null(), marshal.I16(1), marshal.Bool(false), marshal.Enum(1),
	)

	tests := []struct {
		name      string
		call      func() error
		wantParam string
		wantPath  string
	}{
		{
			name:      "integer",
			call:      func() error { _, err := l.Bridge().Call(ctx, sigU32Echo, marshal.Null()); return err },
			wantParam: "value",
		},
		{
			name:      "string",
			call:      func() error { _, err := l.Bridge().Call(ctx, sigStringLength, marshal.Null()); return err },
			wantParam: "value",
		},
		{
			name:      "enum",
			call:      func() error { _, err := l.Bridge().Call(ctx, sigEnumSingleEcho, marshal.Null()); return err },
			wantParam: "value",
		},
		{
			name:      "duration",
			call:      func() error { _, err := l.Bridge().Call(ctx, sigDurationMillisEcho, marshal.Null()); return err },
			wantParam: "value",
		},
		{
			name:      "collection",
			call:      func() error { _, err := l.CollectionSize(ctx, nil); return err },
			wantParam: "col",
		},
		{
			name:      "second collection argument",
			call:      func() error { _, err := l.CollectionGet(ctx, nil, 0); return err },
			wantParam: "col",
		},
		{
			name:      "interface",
			call:      func() error { _, err := l.GetU32Value(ctx, nil); return err },
			wantParam: "cb",
		},
		{
			name:      "listener",
			call:      func() error { _, err := l.NewThreadClass(ctx, 1, nil); return err },
			wantParam: "receiver",
		},
		{
			name:      "chunk receiver",
			call:      func() error { return l.InvokeChunked(ctx, "abc", 1, nil) },
			wantParam: "callback",
		},
		{
			name:      "struct",
			call:      func() error { _, err := l.StructByValueEcho(ctx, nil); return err },
			wantParam: "value",
		},
		{
			name:      "struct field",
			call:      func() error { _, err := l.StructByReferenceEcho(ctx, &missingInterface); return err },
			wantParam: "value",
			wantPath:  "value.empty_interface",
		},
		{
			name: "nested struct field",
			call: func() error {
				_, err := l.Bridge().Call(ctx, sigStructByValueEcho, nullInnerValue)
				return err
			},
			wantParam: "value",
			wantPath:  "value.structure_value.first_enum_value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			var argErr *ffierr.ArgumentError
			if !errors.As(err, &argErr) {
				t.Fatalf("Expected ArgumentError, got %v", err)
			}
			if argErr.Param != tt.wantParam {
				t.Errorf("Param = %q, want %q", argErr.Param, tt.wantParam)
			}
			if tt.wantPath != "" && argErr.Path != tt.wantPath {
				t.Errorf("Path = %q, want %q", argErr.Path, tt.wantPath)
			}
			if !ffierr.IsValidation(err) {
				t.Error("Expected IsValidation to report true")
			}
		})
	}

	if stats := l.Bridge().Callbacks().Stats(); stats.Live != 0 {
		t.Errorf("Callbacks left registered after validation failures: %+v", stats)
	}
}

func TestLibrary_ClassWithPassword(t *testing.T) {
	ctx := context.Background()
	l := newTestLibrary(t)

	c, err := l.NewClassWithPassword(ctx, "hunter2")
	if c != nil {
		t.Fatal("Expected no instance for a bad password")
	}
	var consErr *ffierr.ConstructionError
	if !errors.As(err, &consErr) {
		t.Fatalf("Expected ConstructionError, got %v", err)
	}
	if !errors.Is(err, ErrBadPassword) {
		t.Errorf("Expected BadPassword, got %v", err)
	}
	if ffierr.IsValidation(err) {
		t.Error("Expected a domain failure, not a validation error")
	}
	if created := l.Stats().Created; created != 0 {
		t.Errorf("Created = %d after failed construction, want 0", created)
	}

	c, err = l.NewClassWithPassword(ctx, "12345")
	if err != nil {
		t.Fatalf("Failed to construct with the right password: %v", err)
	}
	v, err := c.GetSpecialValue(ctx)
	if err != nil || v != 42 {
		t.Errorf("GetSpecialValue() = %d, %v, want 42", v, err)
	}
	if err := c.Close(ctx); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}

	var lifecycleErr *ffierr.LifecycleError
	if _, err := c.GetSpecialValue(ctx); !errors.As(err, &lifecycleErr) {
		t.Errorf("Expected LifecycleError after Close, got %v", err)
	}
}

func TestLibrary_PasswordFunctions(t *testing.T) {
	ctx := context.Background()
	l := newTestLibrary(t)

	if v, err := l.GetSpecialValue(ctx, "12345"); err != nil || v != 42 {
		t.Errorf("GetSpecialValue(12345) = %d, %v", v, err)
	}

	_, err := l.GetSpecialValue(ctx, "wrong")
	var opErr *ffierr.OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("Expected OperationError, got %v", err)
	}
	if opErr.Code != "BadPassword" || opErr.Ordinal != 1 {
		t.Errorf("OperationError = %+v", opErr)
	}

	if s, err := l.EchoPassword(ctx, "12345"); err != nil || s != "12345" {
		t.Errorf("EchoPassword(12345) = %q, %v", s, err)
	}
	if _, err := l.EchoPassword(ctx, "nope"); !errors.Is(err, ErrBadPassword) {
		t.Errorf("Expected BadPassword, got %v", err)
	}
}

func TestLibrary_Structure(t *testing.T) {
	ctx := context.Background()
	l := newTestLibrary(t)

	s := DefaultStructure()
	s.EmptyInterface = "marker"

	byValue, err := l.StructByValueEcho(ctx, &s)
	if err != nil {
		t.Fatalf("Failed to echo by value: %v", err)
	}
	if diff := cmp.Diff(s, byValue); diff != "" {
		t.Errorf("StructByValueEcho() mismatch (-want +got):\n%s", diff)
	}

	s.StringValue = "Émile"
	s.StructureValue.SecondEnumValue = StructureEnumVar3
	byRef, err := l.StructByReferenceEcho(ctx, &s)
	if err != nil {
		t.Fatalf("Failed to echo by reference: %v", err)
	}
	if diff := cmp.Diff(s, byRef); diff != "" {
		t.Errorf("StructByReferenceEcho() mismatch (-want +got):\n%s", diff)
	}

	if stats := l.Bridge().Callbacks().Stats(); stats.Live != 0 || stats.Released != 2 {
		t.Errorf("Callback stats = %+v, want both echoed interfaces released", stats)
	}
}

func TestLibrary_Collections(t *testing.T) {
	ctx := context.Background()
	l := newTestLibrary(t)

	items := []string{"Hello", "Émile", ""}

	n, err := l.CollectionSize(ctx, items)
	if err != nil || n != 3 {
		t.Errorf("CollectionSize() = %d, %v, want 3", n, err)
	}
	if n, err := l.CollectionSize(ctx, []string{}); err != nil || n != 0 {
		t.Errorf("CollectionSize(empty) = %d, %v, want 0", n, err)
	}

	for i, want := range items {
		got, err := l.CollectionGet(ctx, items, uint32(i))
		if err != nil || got != want {
			t.Errorf("CollectionGet(%d) = %q, %v, want %q", i, got, err, want)
		}
	}
	if got, err := l.CollectionGet(ctx, items, 7); err != nil || got != "" {
		t.Errorf("CollectionGet(7) = %q, %v, want empty", got, err)
	}

	joined, err := l.CollectionJoin(ctx, items, ", ")
	if err != nil || joined != "Hello, Émile, " {
		t.Errorf("CollectionJoin() = %q, %v", joined, err)
	}
}

func TestLibrary_Iterators(t *testing.T) {
	ctx := context.Background()
	l := newTestLibrary(t)

	var got []byte
	err := l.InvokeStringCallback(ctx, "abc", func(it *StringIterator) {
		for b := range it.All() {
			got = append(got, b)
		}
	})
	if err != nil {
		t.Fatalf("Failed to invoke string callback: %v", err)
	}
	if string(got) != "abc" {
		t.Errorf("StringIterator yielded %q, want %q", got, "abc")
	}

	var ints []int32
	err = l.InvokeRangeCallback(ctx, func(it *RangeIterator) {
		for it.Next() {
			ints = append(ints, it.Value())
		}
		if it.Err() != nil {
			t.Errorf("RangeIterator failed: %v", it.Err())
		}
	})
	if err != nil {
		t.Fatalf("Failed to invoke range callback: %v", err)
	}
	if diff := cmp.Diff([]int32{1, 2, 3}, ints); diff != "" {
		t.Errorf("RangeIterator mismatch (-want +got):\n%s", diff)
	}
}

func TestLibrary_IteratorInvalidAfterCallback(t *testing.T) {
	ctx := context.Background()
	l := newTestLibrary(t)

	var escaped *StringIterator
	err := l.InvokeStringCallback(ctx, "abc", func(it *StringIterator) {
		escaped = it
	})
	if err != nil {
		t.Fatalf("Failed to invoke string callback: %v", err)
	}

	if escaped.Next() {
		t.Fatal("Expected Next to fail once the callback returned")
	}
	var lifecycleErr *ffierr.LifecycleError
	if !errors.As(escaped.Err(), &lifecycleErr) {
		t.Errorf("Expected LifecycleError, got %v", escaped.Err())
	}
}

func TestLibrary_Chunked(t *testing.T) {
	ctx := context.Background()
	l := newTestLibrary(t)

	tests := []struct {
		size uint32
		want []string
	}{
		{3, []string{"Hel", "lo ", "Wor", "ld!"}},
		{5, []string{"Hello", " Worl", "d!"}},
		{0, []string{"Hello World!"}},
	}

	for _, tt := range tests {
		var got []string
		err := l.InvokeChunked(ctx, "Hello World!", tt.size, func(chunk string) {
			got = append(got, chunk)
		})
		if err != nil {
			t.Fatalf("Failed to iterate chunks of %d: %v", tt.size, err)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("Chunks of %d mismatch (-want +got):\n%s", tt.size, diff)
		}
	}

	if stats := l.Bridge().Callbacks().Stats(); stats.Live != 0 {
		t.Errorf("Chunk receivers left registered: %+v", stats)
	}
}

func TestLibrary_DefaultedInterface(t *testing.T) {
	ctx := context.Background()
	l := newTestLibrary(t)

	if v, err := l.GetU32Value(ctx, &DefaultedInterface{}); err != nil || v != DefaultU32Value {
		t.Errorf("GetU32Value(default) = %d, %v", v, err)
	}
	if d, err := l.GetDurationValue(ctx, &DefaultedInterface{}); err != nil || d != DefaultDurationValue {
		t.Errorf("GetDurationValue(default) = %v, %v", d, err)
	}

	override := &DefaultedInterface{
		GetU32Value:   func() uint32 { return 7 },
		GetDurationMs: func() time.Duration { return 1234 * time.Millisecond },
	}
	if v, err := l.GetU32Value(ctx, override); err != nil || v != 7 {
		t.Errorf("GetU32Value(override) = %d, %v", v, err)
	}
	if d, err := l.GetDurationValue(ctx, override); err != nil || d != 1234*time.Millisecond {
		t.Errorf("GetDurationValue(override) = %v, %v", d, err)
	}
}

type recordingCallback struct {
	mu       sync.Mutex
	values   []uint32
	factor   uint32
	duration time.Duration
}

func (c *recordingCallback) OnValue(value uint32) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = append(c.values, value)
	return value * c.factor
}

func (c *recordingCallback) OnDuration(value time.Duration) time.Duration {
	return value + c.duration
}

func (c *recordingCallback) seen() []uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint32(nil), c.values...)
}

func TestCallbackSource_Values(t *testing.T) {
	ctx := context.Background()
	l := newTestLibrary(t)

	src, err := l.NewCallbackSource(ctx)
	if err != nil {
		t.Fatalf("Failed to create callback source: %v", err)
	}
	defer src.Close(ctx)

	if v, err := src.SetValue(ctx, 5); err != nil || v != 0 {
		t.Errorf("SetValue() without callback = %d, %v, want 0", v, err)
	}

	persistent := &recordingCallback{factor: 2, duration: time.Second}
	if err := src.SetInterface(ctx, persistent); err != nil {
		t.Fatalf("Failed to set interface: %v", err)
	}
	oneShot := &recordingCallback{factor: 3}
	if err := src.AddOneShot(ctx, oneShot); err != nil {
		t.Fatalf("Failed to add one-shot: %v", err)
	}

	if v, err := src.SetValue(ctx, 21); err != nil || v != 42 {
		t.Errorf("SetValue(21) = %d, %v, want 42", v, err)
	}
	if v, err := src.SetValue(ctx, 7); err != nil || v != 14 {
		t.Errorf("SetValue(7) = %d, %v, want 14", v, err)
	}
	if d, err := src.SetDuration(ctx, 500*time.Millisecond); err != nil || d != 1500*time.Millisecond {
		t.Errorf("SetDuration(500ms) = %v, %v, want 1.5s", d, err)
	}

	if diff := cmp.Diff([]uint32{21}, oneShot.seen()); diff != "" {
		t.Errorf("One-shot invocations mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]uint32{21, 7}, persistent.seen()); diff != "" {
		t.Errorf("Persistent invocations mismatch (-want +got):\n%s", diff)
	}

	replacement := &recordingCallback{factor: 1}
	if err := src.SetInterface(ctx, replacement); err != nil {
		t.Fatalf("Failed to replace interface: %v", err)
	}
	if stats := l.Bridge().Callbacks().Stats(); stats.Released != 2 || stats.Live != 1 {
		t.Errorf("Callback stats after replacement = %+v, want 2 released and 1 live", stats)
	}

	if err := src.Close(ctx); err != nil {
		t.Fatalf("Failed to close callback source: %v", err)
	}
	if stats := l.Bridge().Callbacks().Stats(); stats.Live != 0 {
		t.Errorf("Callbacks left registered after Close: %+v", stats)
	}
}

func TestCallbackSource_ReleasesOnClose(t *testing.T) {
	ctx := context.Background()
	l := newTestLibrary(t)

	const n = 100
	for i := range n {
		src, err := l.NewCallbackSource(ctx)
		if err != nil {
			t.Fatalf("Failed to create callback source %d: %v", i, err)
		}
		if err := src.SetInterface(ctx, &recordingCallback{factor: 1}); err != nil {
			t.Fatalf("Failed to set interface %d: %v", i, err)
		}
		if _, err := src.SetValue(ctx, uint32(i)); err != nil {
			t.Fatalf("Failed to set value %d: %v", i, err)
		}
		if err := src.Close(ctx); err != nil {
			t.Fatalf("Failed to close callback source %d: %v", i, err)
		}
	}

	stats := l.Bridge().Callbacks().Stats()
	if stats.Registered != n || stats.Released != n || stats.Live != 0 {
		t.Errorf("Callback stats = %+v, want %d registered and released", stats, n)
	}
	if res := l.Stats(); res.Closed != n || res.Live != 0 {
		t.Errorf("Resource stats = %+v, want %d closed", res, n)
	}
}

func TestTestClass_Counter(t *testing.T) {
	ctx := context.Background()
	l := newTestLibrary(t)

	const n = 10
	classes := make([]*TestClass, 0, n)
	for i := range n {
		c, err := l.NewTestClass(ctx, uint32(i))
		if err != nil {
			t.Fatalf("Failed to create TestClass %d: %v", i, err)
		}
		classes = append(classes, c)
	}

	if count, err := l.ConstructionCounter(ctx); err != nil || count != n {
		t.Errorf("ConstructionCounter() = %d, %v, want %d", count, err, n)
	}

	c := classes[3]
	if err := c.IncrementValue(ctx); err != nil {
		t.Fatalf("Failed to increment: %v", err)
	}
	if v, err := c.GetValue(ctx); err != nil || v != 4 {
		t.Errorf("GetValue() = %d, %v, want 4", v, err)
	}

	for _, c := range classes {
		if err := c.Close(ctx); err != nil {
			t.Fatalf("Failed to close TestClass: %v", err)
		}
	}
	if err := c.Close(ctx); err != nil {
		t.Errorf("Second Close returned %v", err)
	}

	if count, err := l.ConstructionCounter(ctx); err != nil || count != 0 {
		t.Errorf("ConstructionCounter() after Close = %d, %v, want 0", count, err)
	}
	if stats := l.Stats(); stats.Created != n || stats.Closed != n || stats.Live != 0 {
		t.Errorf("Resource stats = %+v", stats)
	}

	var lifecycleErr *ffierr.LifecycleError
	if _, err := c.GetValue(ctx); !errors.As(err, &lifecycleErr) {
		t.Errorf("Expected LifecycleError after Close, got %v", err)
	}
}

func TestTestClass_LeakedInstancesAreDestroyed(t *testing.T) {
	ctx := context.Background()
	l := openReference(t, zap.NewNop())

	const n = 20
	for i := range n {
		if _, err := l.NewTestClass(ctx, uint32(i)); err != nil {
			t.Fatalf("Failed to create TestClass %d: %v", i, err)
		}
	}

	var count uint32
	for range 100 {
		runtime.GC()
		var err error
		count, err = l.ConstructionCounter(ctx)
		if err != nil {
			t.Fatalf("Failed to read construction counter: %v", err)
		}
		if count == 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if count != 0 {
		t.Fatalf("ConstructionCounter() = %d after collection, want 0", count)
	}
	if stats := l.Stats(); stats.Leaked != n || stats.Live != 0 {
		t.Errorf("Resource stats = %+v, want %d leaked", stats, n)
	}
}

type listener struct {
	mu     sync.Mutex
	values []uint32
}

func (l *listener) onValueChange(v uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.values = append(l.values, v)
}

func (l *listener) seen() []uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]uint32(nil), l.values...)
}

func TestThreadClass_Ordering(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	l := newTestLibrary(t)

	var lis listener
	tc, err := l.NewThreadClass(ctx, 42, lis.onValueChange)
	if err != nil {
		t.Fatalf("Failed to create ThreadClass: %v", err)
	}

	f := tc.Add(ctx, 4)
	if err := tc.Update(ctx, 43); err != nil {
		t.Fatalf("Failed to update: %v", err)
	}
	if err := tc.Execute(ctx, func(v uint32) uint32 { return v * 2 }); err != nil {
		t.Fatalf("Failed to execute: %v", err)
	}

	sum, err := f.Wait(ctx)
	if err != nil {
		t.Fatalf("Failed to add: %v", err)
	}
	if sum != 46 {
		t.Errorf("Add(4) = %d, want 46", sum)
	}

	if err := tc.Close(ctx); err != nil {
		t.Fatalf("Failed to close ThreadClass: %v", err)
	}
	if diff := cmp.Diff([]uint32{46, 43, 86}, lis.seen()); diff != "" {
		t.Errorf("Listener values mismatch (-want +got):\n%s", diff)
	}

	if err := tc.Close(ctx); err != nil {
		t.Errorf("Second Close returned %v", err)
	}
	var lifecycleErr *ffierr.LifecycleError
	if err := tc.Update(ctx, 1); !errors.As(err, &lifecycleErr) {
		t.Errorf("Expected LifecycleError after Close, got %v", err)
	}
	if got := len(lis.seen()); got != 3 {
		t.Errorf("Listener called %d times after Close, want 3", got)
	}
	if stats := l.Bridge().Callbacks().Stats(); stats.Live != 0 {
		t.Errorf("Callbacks left registered after Close: %+v", stats)
	}
}

func TestThreadClass_QueuedError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	l := newTestLibrary(t)

	var lis listener
	tc, err := l.NewThreadClass(ctx, 1, lis.onValueChange)
	if err != nil {
		t.Fatalf("Failed to create ThreadClass: %v", err)
	}
	defer tc.Close(ctx)

	if err := tc.QueueError(ctx, MathIsBrokenMathIsBroke); err != nil {
		t.Fatalf("Failed to queue error: %v", err)
	}
	_, err = tc.Add(ctx, 43).Wait(ctx)
	if !errors.Is(err, ErrMathIsBroke) {
		t.Fatalf("Expected MathIsBroke, got %v", err)
	}

	if v, err := tc.Add(ctx, 2).Wait(ctx); err != nil || v != 3 {
		t.Errorf("Add(2) after failure = %d, %v, want 3", v, err)
	}
	if diff := cmp.Diff([]uint32{3}, lis.seen()); diff != "" {
		t.Errorf("Listener values mismatch (-want +got):\n%s", diff)
	}
}

func TestThreadClass_DroppedAdd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	l := newTestLibrary(t)

	tc, err := l.NewThreadClass(ctx, 1, func(uint32) {})
	if err != nil {
		t.Fatalf("Failed to create ThreadClass: %v", err)
	}
	defer tc.Close(ctx)

	if err := tc.DropNextAdd(ctx); err != nil {
		t.Fatalf("Failed to drop next add: %v", err)
	}
	_, err = tc.Add(ctx, 1).Wait(ctx)
	var dropped *ffierr.DroppedError
	if !errors.As(err, &dropped) {
		t.Fatalf("Expected DroppedError, got %v", err)
	}

	if err := tc.QueueError(ctx, MathIsBrokenDropped); err != nil {
		t.Fatalf("Failed to queue error: %v", err)
	}
	if _, err := tc.Add(ctx, 1).Wait(ctx); !errors.As(err, &dropped) {
		t.Errorf("Expected DroppedError for a queued Dropped code, got %v", err)
	}
}

func TestLibrary_CloseRejectsObjects(t *testing.T) {
	ctx := context.Background()
	l, err := OpenReference(ctx, nil, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to open reference core: %v", err)
	}

	c, err := l.NewTestClass(ctx, 1)
	if err != nil {
		t.Fatalf("Failed to create TestClass: %v", err)
	}
	if err := l.Close(ctx); err != nil {
		t.Fatalf("Failed to close library: %v", err)
	}
	if err := l.Close(ctx); err != nil {
		t.Errorf("Second Close returned %v", err)
	}

	var lifecycleErr *ffierr.LifecycleError
	if _, err := l.Uint32Echo(ctx, 1); !errors.As(err, &lifecycleErr) {
		t.Errorf("Expected LifecycleError from a closed library, got %v", err)
	}
	if _, err := c.GetValue(ctx); !errors.As(err, &lifecycleErr) {
		t.Errorf("Expected LifecycleError from an object of a closed library, got %v", err)
	}
	if err := c.Close(ctx); err != nil {
		t.Errorf("Close after library shutdown returned %v", err)
	}
}

// closingCallback closes the source that invokes it.
type closingCallback struct {
	src *CallbackSource
	err error
}

func (c *closingCallback) OnValue(value uint32) uint32 {
	c.err = c.src.Close(context.Background())
	return value + 1
}

func (c *closingCallback) OnDuration(value time.Duration) time.Duration {
	return value
}

func TestCallbackSource_CloseFromCallback(t *testing.T) {
	ctx := context.Background()
	l := newTestLibrary(t)

	src, err := l.NewCallbackSource(ctx)
	if err != nil {
		t.Fatalf("Failed to create callback source: %v", err)
	}
	cb := &closingCallback{src: src}
	if err := src.SetInterface(ctx, cb); err != nil {
		t.Fatalf("Failed to set interface: %v", err)
	}

	done := make(chan struct{})
	var (
		v      uint32
		setErr error
	)
	go func() {
		defer close(done)
		v, setErr = src.SetValue(ctx, 41)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("SetValue() deadlocked when its callback closed the source")
	}

	if setErr != nil || v != 42 {
		t.Errorf("SetValue(41) = %d, %v, want 42", v, setErr)
	}
	if cb.err != nil {
		t.Errorf("Close() from callback failed: %v", cb.err)
	}

	var lifecycleErr *ffierr.LifecycleError
	if _, err := src.SetValue(ctx, 1); !errors.As(err, &lifecycleErr) {
		t.Errorf("Expected LifecycleError after Close, got %v", err)
	}
	if stats := l.Bridge().Callbacks().Stats(); stats.Live != 0 {
		t.Errorf("Callbacks left registered after deferred close: %+v", stats)
	}
	if res := l.Stats(); res.Closed != 1 || res.Live != 0 {
		t.Errorf("Resource stats = %+v, want one closed", res)
	}
}
