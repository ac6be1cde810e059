package store

import (
	"context"
	"sync"
	"time"
)

// Hooks receives events from store operations. Register an implementation
// at startup to wire metrics or tracing without giving the backends a hard
// dependency on an observability framework.
type Hooks interface {
	// OnStoreOp records one completed store operation.
	OnStoreOp(ctx context.Context, backend, op string, duration time.Duration, err error)
}

// NoopHooks is a no-op implementation of Hooks.
type NoopHooks struct{}

func (NoopHooks) OnStoreOp(context.Context, string, string, time.Duration, error) {}

var (
	hooksMu sync.RWMutex
	hooks   Hooks = NoopHooks{}
)

// SetHooks registers custom hooks. Call once at application startup,
// before any store operations.
func SetHooks(h Hooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		hooks = h
	}
}

// GetHooks returns the registered hooks.
func GetHooks() Hooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return hooks
}

// Observe reports a completed operation to the registered hooks. Backends
// call it with the start time captured at operation entry:
//
//	defer func(start time.Time) {
//	    store.Observe(ctx, "sqlite", "CreateLocation", start, err)
//	}(time.Now())
func Observe(ctx context.Context, backend, op string, start time.Time, err error) {
	GetHooks().OnStoreOp(ctx, backend, op, time.Since(start), err)
}
