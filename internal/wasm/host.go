package wasm

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/woxQAQ/oobridge/internal/native"
)

// HostModuleName is the import module cores link host functions from.
const HostModuleName = "host"

// hostFunctions implements the bridge's host imports for Wasm cores.
// Each call is routed to the native.Host bound to the calling instance.
type hostFunctions struct {
	runtime *Runtime
	logger  *zap.Logger
}

func (r *Runtime) instantiateHost(ctx context.Context) error {
	impl := &hostFunctions{
		runtime: r,
		logger:  r.logger.With(zap.String("component", "wasm-host")),
	}

	builder := r.runtime.NewHostModuleBuilder(HostModuleName)
	impl.export(builder)

	if _, err := builder.Instantiate(ctx); err != nil {
		return fmt.Errorf("failed to instantiate host module: %w", err)
	}
	return nil
}

// export registers Go functions for import by Wasm modules.
func (h *hostFunctions) export(builder wazero.HostModuleBuilder) {
	builder.NewFunctionBuilder().
		WithFunc(h.callbackInvoke).
		WithParameterNames("handle", "op", "args", "ret").
		Export("callback_invoke")

	builder.NewFunctionBuilder().
		WithFunc(h.callbackDestroy).
		WithParameterNames("handle").
		Export("callback_destroy")

	builder.NewFunctionBuilder().
		WithFunc(h.collectionSize).
		WithParameterNames("handle").
		Export("collection_size")

	builder.NewFunctionBuilder().
		WithFunc(h.collectionGet).
		WithParameterNames("handle", "index", "out").
		Export("collection_get")

	// Wasm modules can call this to log messages.
	builder.NewFunctionBuilder().
		WithFunc(h.logMessage).
		WithParameterNames("level", "ptr", "length").
		Export("log_message")
}

func (h *hostFunctions) host(fn string, mod api.Module) (native.Host, bool) {
	host, ok := h.runtime.hostFor(mod.Name())
	if !ok {
		h.logger.Error("Host call from unbound instance",
			zap.String("instance_id", mod.Name()),
			zap.Error(&HostImportError{Import: fn, InstanceID: mod.Name(), Err: errNotBound}),
		)
	}
	return host, ok
}

// callbackInvoke runs operation op of a Go callback.
// Signature: callback_invoke(handle, op, args, ret) -> status
func (h *hostFunctions) callbackInvoke(ctx context.Context, mod api.Module, handle uint64, op uint32, args, ret uint64) uint32 {
	host, ok := h.host("callback_invoke", mod)
	if !ok {
		return native.StatusUnknownHandle
	}
	return host.InvokeCallback(ctx, NewMemory(mod), handle, op, args, ret)
}

// callbackDestroy is the mandatory destroy notification for a handle.
// Signature: callback_destroy(handle)
func (h *hostFunctions) callbackDestroy(ctx context.Context, mod api.Module, handle uint64) {
	if host, ok := h.host("callback_destroy", mod); ok {
		host.DestroyCallback(ctx, handle)
	}
}

// collectionSize reports the element count of an exposed collection.
// Signature: collection_size(handle) -> n
func (h *hostFunctions) collectionSize(ctx context.Context, mod api.Module, handle uint64) uint32 {
	host, ok := h.host("collection_size", mod)
	if !ok {
		return 0
	}
	return host.CollectionSize(ctx, handle)
}

// collectionGet writes element index of a collection to out.
// Signature: collection_get(handle, index, out) -> status
func (h *hostFunctions) collectionGet(ctx context.Context, mod api.Module, handle uint64, index uint32, out uint64) uint32 {
	host, ok := h.host("collection_get", mod)
	if !ok {
		return native.StatusUnknownHandle
	}
	return host.CollectionGet(ctx, NewMemory(mod), handle, index, out)
}

// logMessage is called by Wasm modules to log messages.
// Signature: log_message(level, ptr, length)
// level: 0 = debug, 1 = info, 2 = warn, 3 = error
func (h *hostFunctions) logMessage(ctx context.Context, mod api.Module, level uint32, ptr uint64, length uint32) {
	// Read message from Wasm memory.
	msg, err := native.ReadString(NewMemory(mod), ptr, length)
	if err != nil {
		h.logger.Error("Failed to read log message from Wasm memory",
			zap.Uint64("ptr", ptr),
			zap.Uint32("length", length),
		)
		return
	}

	if host, ok := h.runtime.hostFor(mod.Name()); ok {
		host.Log(ctx, level, msg)
		return
	}
	if ce := h.logger.Check(native.ZapLevel(level), msg); ce != nil {
		ce.Write(zap.String("instance_id", mod.Name()))
	}
}
