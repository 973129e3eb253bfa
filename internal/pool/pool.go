// Package pool lends reusable handles and keeps the number of live handles
// under a capacity ceiling.
package pool

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
)

// Factory creates and disposes of handles.
type Factory[H comparable] interface {
	Create() (H, error)
	Destroy(H)
}

// Poolable is implemented by handles that want lifecycle callbacks.
type Poolable interface {
	OnAcquire()
	OnRelease()
	OnDestroy()
}

// FactoryFunc adapts a constructor into a Factory whose Destroy does nothing.
type FactoryFunc[H comparable] func() (H, error)

func (f FactoryFunc[H]) Create() (H, error) { return f() }
func (f FactoryFunc[H]) Destroy(H)          {}

// Pool keeps an in-use set and a free stack. The top of the stack is the most
// recently released handle; eviction takes from the bottom. Handles in use
// are never evicted.
type Pool[H comparable] struct {
	factory  Factory[H]
	capacity int
	logger   *slog.Logger

	free  []H
	inUse map[H]struct{}
}

type Option func(*options)

type options struct {
	prewarm  int
	capacity int
	logger   *slog.Logger
}

// WithPrewarm creates n free handles up front, bounded by the capacity.
func WithPrewarm(n int) Option {
	return func(o *options) {
		o.prewarm = max(0, n)
	}
}

// WithCapacity caps the number of live handles (in use plus free). Zero or a
// negative value means unbounded.
func WithCapacity(n int) Option {
	return func(o *options) {
		o.capacity = n
	}
}

// WithLogger sets the logger used for evictions and failing lifecycle hooks.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New returns a pool backed by factory.
func New[H comparable](factory Factory[H], opts ...Option) (*Pool[H], error) {
	if factory == nil {
		return nil, errors.New("pool: factory is required")
	}
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	p := &Pool[H]{
		factory:  factory,
		capacity: o.capacity,
		logger:   o.logger,
		inUse:    make(map[H]struct{}),
	}
	if err := p.Prewarm(o.prewarm); err != nil {
		return nil, err
	}
	return p, nil
}

// Prewarm fills the free stack with up to n new handles.
func (p *Pool[H]) Prewarm(n int) error {
	if p.capacity > 0 {
		n = min(n, p.capacity-p.Alive())
	}
	for range n {
		h, err := p.factory.Create()
		if err != nil {
			return fmt.Errorf("pool: prewarm: %w", err)
		}
		p.free = append(p.free, h)
	}
	return nil
}

// Acquire hands out a free handle, creating one when the stack is empty.
func (p *Pool[H]) Acquire() (H, error) {
	var h H
	if n := len(p.free); n > 0 {
		h = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		created, err := p.factory.Create()
		if err != nil {
			return h, fmt.Errorf("pool: create handle: %w", err)
		}
		h = created
	}
	p.inUse[h] = struct{}{}
	if ph, ok := any(h).(Poolable); ok {
		p.hook("acquire", ph.OnAcquire)
	}
	return h, nil
}

// Release returns h to the free stack. Releasing a handle that is not in use
// does nothing.
func (p *Pool[H]) Release(h H) {
	if _, ok := p.inUse[h]; !ok {
		return
	}
	delete(p.inUse, h)
	if ph, ok := any(h).(Poolable); ok {
		p.hook("release", ph.OnRelease)
	}
	p.free = append(p.free, h)
	p.evict()
}

// ReleaseAll returns every handle in use.
func (p *Pool[H]) ReleaseAll() {
	for h := range p.inUse {
		p.Release(h)
	}
}

// Clear destroys every handle, in use or free.
func (p *Pool[H]) Clear() {
	for h := range p.inUse {
		p.destroy(h)
	}
	clear(p.inUse)
	for _, h := range p.free {
		p.destroy(h)
	}
	p.free = nil
}

// InUse returns the number of handles lent out.
func (p *Pool[H]) InUse() int {
	return len(p.inUse)
}

// Free returns the number of pooled handles waiting for reuse.
func (p *Pool[H]) Free() int {
	return len(p.free)
}

// Alive returns the number of handles the pool currently owns.
func (p *Pool[H]) Alive() int {
	return len(p.inUse) + len(p.free)
}

func (p *Pool[H]) evict() {
	if p.capacity <= 0 {
		return
	}
	excess := p.Alive() - p.capacity
	if excess <= 0 {
		return
	}
	excess = min(excess, len(p.free))
	for _, h := range p.free[:excess] {
		p.destroy(h)
	}
	p.free = slices.Delete(p.free, 0, excess)
	p.logger.Debug("Evicted pooled handles", "count", excess, "capacity", p.capacity)
}

func (p *Pool[H]) destroy(h H) {
	if ph, ok := any(h).(Poolable); ok {
		p.hook("destroy", ph.OnDestroy)
	}
	p.hook("factory destroy", func() { p.factory.Destroy(h) })
}

// hook runs a lifecycle callback. A panicking callback is logged and the
// pool's bookkeeping carries on.
func (p *Pool[H]) hook(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Pool hook panicked", "hook", name, "panic", r)
		}
	}()
	fn()
}
