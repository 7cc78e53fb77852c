// Package dataloader implements a per-request batching loader.
//
// Load registers a key and returns a thunk. Keys registered before the first
// thunk of a batch is evaluated are fetched together with one call to the
// batch function. graphql-go evaluates thunks only after every field of the
// current level has resolved, so sibling fields share a batch.
package dataloader

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// BatchFunc fetches values for keys. It must return exactly one value per
// key, in key order.
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) ([]V, error)

// Thunk resolves a deferred load, dispatching the batch if needed.
type Thunk[V any] func() (V, error)

// Observer receives loader events.
type Observer interface {
	ObserveBatch(ctx context.Context, loader string, keys int, duration time.Duration, err error)
	ObserveCacheHit(ctx context.Context, loader string)
}

// Stats is a snapshot of loader activity.
type Stats struct {
	Loads     int64
	CacheHits int64
	Batches   int64
	Keys      int64
}

// Option configures a Loader.
type Option func(*config)

type config struct {
	name     string
	observer Observer
}

// WithName labels the loader in observer callbacks.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// WithObserver registers an observer for batch and cache events.
func WithObserver(observer Observer) Option {
	return func(c *config) { c.observer = observer }
}

// Loader batches and memoizes loads for a single request. It is safe for
// concurrent use but must not be shared across requests.
type Loader[K comparable, V any] struct {
	batchFn BatchFunc[K, V]
	cfg     config

	mu      sync.Mutex
	cache   map[K]*entry[K, V]
	pending *batch[K, V]
	stats   Stats
}

type entry[K comparable, V any] struct {
	batch *batch[K, V]
	done  chan struct{}
	value V
	err   error
}

type batch[K comparable, V any] struct {
	ctx     context.Context
	keys    []K
	entries []*entry[K, V]
	once    sync.Once
}

// New creates a loader around batchFn.
func New[K comparable, V any](batchFn BatchFunc[K, V], opts ...Option) *Loader[K, V] {
	cfg := config{name: "loader"}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Loader[K, V]{
		batchFn: batchFn,
		cfg:     cfg,
		cache:   make(map[K]*entry[K, V]),
	}
}

// Load registers key with the pending batch, or returns the memoized entry
// if key was already requested.
func (l *Loader[K, V]) Load(ctx context.Context, key K) Thunk[V] {
	l.mu.Lock()
	l.stats.Loads++
	if e, ok := l.cache[key]; ok {
		l.stats.CacheHits++
		l.mu.Unlock()
		if l.cfg.observer != nil {
			l.cfg.observer.ObserveCacheHit(ctx, l.cfg.name)
		}
		return l.thunk(e)
	}

	if l.pending == nil {
		l.pending = &batch[K, V]{ctx: ctx}
	}
	b := l.pending
	e := &entry[K, V]{batch: b, done: make(chan struct{})}
	b.keys = append(b.keys, key)
	b.entries = append(b.entries, e)
	l.cache[key] = e
	l.mu.Unlock()

	return l.thunk(e)
}

// LoadMany loads every key and returns their values in key order. The thunk
// fails with the first error encountered.
func (l *Loader[K, V]) LoadMany(ctx context.Context, keys []K) Thunk[[]V] {
	thunks := make([]Thunk[V], len(keys))
	for i, key := range keys {
		thunks[i] = l.Load(ctx, key)
	}
	return func() ([]V, error) {
		values := make([]V, len(thunks))
		for i, thunk := range thunks {
			value, err := thunk()
			if err != nil {
				return nil, err
			}
			values[i] = value
		}
		return values, nil
	}
}

// Stats returns a snapshot of loader activity.
func (l *Loader[K, V]) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

func (l *Loader[K, V]) thunk(e *entry[K, V]) Thunk[V] {
	return func() (V, error) {
		e.batch.once.Do(func() { l.dispatch(e.batch) })
		<-e.done
		return e.value, e.err
	}
}

func (l *Loader[K, V]) dispatch(b *batch[K, V]) {
	l.mu.Lock()
	if l.pending == b {
		l.pending = nil
	}
	l.stats.Batches++
	l.stats.Keys += int64(len(b.keys))
	l.mu.Unlock()

	start := time.Now()
	values, err := l.run(b)
	if err == nil && len(values) != len(b.keys) {
		err = errors.Newf("%s: batch function returned %d values for %d keys", l.cfg.name, len(values), len(b.keys))
	}
	if l.cfg.observer != nil {
		l.cfg.observer.ObserveBatch(b.ctx, l.cfg.name, len(b.keys), time.Since(start), err)
	}

	if err != nil {
		l.mu.Lock()
		for i, key := range b.keys {
			if l.cache[key] == b.entries[i] {
				delete(l.cache, key)
			}
		}
		l.mu.Unlock()
	}

	for i, e := range b.entries {
		if err != nil {
			e.err = err
		} else {
			e.value = values[i]
		}
		close(e.done)
	}
}

func (l *Loader[K, V]) run(b *batch[K, V]) (values []V, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("%s: batch function panicked: %v", l.cfg.name, r)
		}
	}()
	return l.batchFn(b.ctx, b.keys)
}

// AlignByKey groups rows by key and returns one group per key, in key order.
// Keys without rows get an empty, non-nil slice.
func AlignByKey[K comparable, R any](keys []K, rows []R, keyOf func(R) K) [][]R {
	grouped := make(map[K][]R, len(keys))
	for _, row := range rows {
		k := keyOf(row)
		grouped[k] = append(grouped[k], row)
	}
	out := make([][]R, len(keys))
	for i, key := range keys {
		if group, ok := grouped[key]; ok {
			out[i] = group
		} else {
			out[i] = []R{}
		}
	}
	return out
}
