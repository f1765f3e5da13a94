// Package memo memoizes fallible, context-aware functions with at most one
// in-flight call per key.
package memo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"
)

// Config customises Wrap. Zero values select an unbounded in-memory store and
// the default key function.
type Config[A, V any] struct {
	Store  Store[V]
	Key    func(A) string
	Logger *slog.Logger
}

// Func is a memoized function. It is safe for concurrent use.
type Func[A, V any] struct {
	fn     func(context.Context, A) (V, error)
	store  Store[V]
	key    func(A) string
	flight singleflight.Group
	logger *slog.Logger
}

// Wrap memoizes fn. Successful results are kept in the store; failed calls
// leave nothing behind, so the next call for the same key retries.
func Wrap[A, V any](fn func(context.Context, A) (V, error), cfg Config[A, V]) *Func[A, V] {
	f := &Func[A, V]{
		fn:     fn,
		store:  cfg.Store,
		key:    cfg.Key,
		logger: cfg.Logger,
	}
	if f.store == nil {
		f.store = NewMapStore[V](nil)
	}
	if f.key == nil {
		f.key = DefaultKey[A]
	}
	if f.logger == nil {
		f.logger = slog.New(slog.DiscardHandler)
	}
	return f
}

// Call returns the cached value for arg's key or invokes the wrapped function.
// Concurrent calls with the same key share one invocation. The shared
// invocation is detached from the cancellation of any single caller; each
// caller stops waiting when its own ctx is done.
func (f *Func[A, V]) Call(ctx context.Context, arg A) (V, error) {
	key := f.key(arg)
	if v, ok := f.load(key); ok {
		return v, nil
	}

	ch := f.flight.DoChan(key, func() (interface{}, error) {
		// A flight for this key may have completed between load and DoChan.
		if v, ok := f.load(key); ok {
			return v, nil
		}
		v, err := f.fn(context.WithoutCancel(ctx), arg)
		if err != nil {
			return v, err
		}
		if err := f.store.Store(key, v); err != nil {
			f.logger.Warn("memo store write failed", "key", key, "error", err)
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var zero V
			return zero, res.Err
		}
		v, _ := res.Val.(V)
		return v, nil
	}
}

// Forget evicts key from the store.
func (f *Func[A, V]) Forget(arg A) error {
	key := f.key(arg)
	f.flight.Forget(key)
	return f.store.Delete(key)
}

func (f *Func[A, V]) load(key string) (V, bool) {
	v, ok, err := f.store.Load(key)
	if err != nil {
		f.logger.Warn("memo store read failed, treating as miss", "key", key, "error", err)
		return v, false
	}
	return v, ok
}

// DefaultKey uses a string argument as its own key and JSON-encodes anything
// else, so composite arguments such as [word, lang] get a structural key.
func DefaultKey[A any](arg A) string {
	if s, ok := any(arg).(string); ok {
		return s
	}
	b, err := json.Marshal(arg)
	if err != nil {
		return fmt.Sprintf("%#v", arg)
	}
	return string(b)
}
