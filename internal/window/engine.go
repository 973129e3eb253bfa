// Package window renders the visible slice of a keyed collection through a
// small set of pooled cells.
//
// The engine keeps a prefix offset table derived from the collection, turns
// the host viewport into an index window with two binary searches, and
// reconciles pooled cells against that window. Every trigger (scroll,
// collection change, layout change, scroll request) ends in the same
// compute-then-reconcile step.
package window

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"math"
	"slices"

	"github.com/charmbracelet/scrollkit/internal/collection"
	"github.com/charmbracelet/scrollkit/internal/offsets"
)

type realized[H any] struct {
	cell   H
	cancel context.CancelFunc
}

// anchor remembers which item sat at the top of the viewport and how far
// into it the viewport started.
type anchor struct {
	index int
	delta float64
	ok    bool
}

// Engine is driven from a single goroutine, the same one that mutates the
// collection.
type Engine[T any, H comparable] struct {
	*options

	data   *collection.Collection[T]
	pool   Pool[H]
	host   Host[H]
	binder Binder[T, H]

	table *offsets.Table

	visible map[int]realized[H]
	current Range
	settled bool

	lastCount   int
	layoutDirty bool

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	closed      bool
}

// New wires an engine to its collaborators, subscribes to data changes and
// realizes the initial window.
func New[T any, H comparable](data *collection.Collection[T], pool Pool[H], host Host[H], binder Binder[T, H], opts ...Option) (*Engine[T, H], error) {
	switch {
	case data == nil:
		return nil, fmt.Errorf("%w: collection is required", collection.ErrInvalidArgument)
	case pool == nil:
		return nil, fmt.Errorf("%w: pool is required", collection.ErrInvalidArgument)
	case host == nil:
		return nil, fmt.Errorf("%w: host is required", collection.ErrInvalidArgument)
	case binder == nil:
		return nil, fmt.Errorf("%w: binder is required", collection.ErrInvalidArgument)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine[T, H]{
		options:     &o,
		data:        data,
		pool:        pool,
		host:        host,
		binder:      binder,
		table:       offsets.New(),
		visible:     make(map[int]realized[H]),
		current:     Empty,
		layoutDirty: true,
		ctx:         ctx,
		cancel:      cancel,
	}
	e.unsubscribe = data.Subscribe(e.onChanged)
	e.lastCount = data.Count()

	e.rebuild()
	e.Refresh(false)
	return e, nil
}

// VisibleRange returns the window realized by the last reconciliation.
func (e *Engine[T, H]) VisibleRange() Range {
	return e.current
}

// TotalCount returns the number of items in the collection.
func (e *Engine[T, H]) TotalCount() int {
	return e.data.Count()
}

// ContentHeight returns padding plus the height of every item.
func (e *Engine[T, H]) ContentHeight() float64 {
	return e.paddingTop + e.table.Total() + e.paddingBottom
}

// ItemTop returns the offset of the item at index from the top of the
// content.
func (e *Engine[T, H]) ItemTop(index int) (float64, bool) {
	return e.table.TopOffset(index)
}

// IsBound reports whether cell is still realized for index. Asynchronous
// binders use it on the owner goroutine before applying late results.
func (e *Engine[T, H]) IsBound(cell H, index int) bool {
	r, ok := e.visible[index]
	return ok && r.cell == cell
}

// Cells iterates over realized cells in index order.
func (e *Engine[T, H]) Cells() iter.Seq2[int, H] {
	return func(yield func(int, H) bool) {
		for _, inx := range slices.Sorted(maps.Keys(e.visible)) {
			if !yield(inx, e.visible[inx].cell) {
				return
			}
		}
	}
}

// OnScroll must be called by the host whenever its viewport offset changes.
func (e *Engine[T, H]) OnScroll() {
	if e.closed {
		return
	}
	e.update()
}

// MarkLayoutDirty makes the engine ask the host for a layout pass before the
// next range computation.
func (e *Engine[T, H]) MarkLayoutDirty() {
	e.layoutDirty = true
}

// SetLayout changes the fixed item height, spacing and padding.
func (e *Engine[T, H]) SetLayout(itemHeight, spacing, paddingTop, paddingBottom float64) {
	if e.closed {
		return
	}
	a := e.captureAnchor()
	e.itemHeight = max(0, itemHeight)
	e.spacing = max(0, spacing)
	e.paddingTop = max(0, paddingTop)
	e.paddingBottom = max(0, paddingBottom)
	e.relayout(a)
}

// SetSizer switches to per-item heights. A nil sizer restores the fixed item
// height.
func (e *Engine[T, H]) SetSizer(sizer Sizer) {
	if e.closed {
		return
	}
	a := e.captureAnchor()
	e.sizer = sizer
	e.relayout(a)
}

// SetOverscan changes how many items are realized around the visible window.
func (e *Engine[T, H]) SetOverscan(before, after int) {
	if e.closed {
		return
	}
	e.overscanBefore = max(0, before)
	e.overscanAfter = max(0, after)
	e.update()
}

// Refresh releases every realized cell and realizes the window again. When
// keepScrollPosition is false the viewport goes back to the top.
func (e *Engine[T, H]) Refresh(keepScrollPosition bool) {
	if e.closed {
		return
	}
	offset := 0.0
	if keepScrollPosition {
		offset = e.clampOffset(e.host.Viewport().Offset)
	}
	e.host.SetContentHeight(e.ContentHeight())
	e.hideAll()
	e.host.SetViewportOffset(offset)
	e.update()
}

// ScrollToIndex scrolls so that the item at index sits at align within the
// viewport. The index is clamped to the collection bounds.
func (e *Engine[T, H]) ScrollToIndex(index int, align Align) {
	n := e.data.Count()
	if e.closed || n == 0 {
		return
	}
	index = min(max(0, index), n-1)
	e.ensureLayout()

	top, _ := e.table.TopOffset(index)
	size := e.coreHeight(index)
	vp := e.host.Viewport()
	frac := min(max(0, float64(align)), 1)

	offset := top - frac*max(0, vp.Height-size)
	e.host.SetViewportOffset(e.clampOffset(offset))
	e.update()
}

// ScrollToStart scrolls to the very top, padding included.
func (e *Engine[T, H]) ScrollToStart() {
	if e.closed || e.data.Count() == 0 {
		return
	}
	e.host.SetViewportOffset(0)
	e.update()
}

// ScrollToEnd scrolls to the very bottom, padding included.
func (e *Engine[T, H]) ScrollToEnd() {
	if e.closed || e.data.Count() == 0 {
		return
	}
	e.ensureLayout()
	e.host.SetViewportOffset(e.maxOffset())
	e.update()
}

// Close unsubscribes from the collection and returns every cell to the pool.
func (e *Engine[T, H]) Close() {
	if e.closed {
		return
	}
	if e.unsubscribe != nil {
		e.unsubscribe()
	}
	e.hideAll()
	e.cancel()
	e.table.Rebuild(0, nil)
	e.current = Empty
	e.closed = true
}

func (e *Engine[T, H]) onChanged(batch []collection.Change[T]) {
	if e.closed {
		return
	}
	var a anchor
	if e.lastCount > 0 {
		a = e.captureAnchor()
		if a.ok {
			inx, survived := collection.TrackIndex(a.index, batch)
			a.index = inx
			if !survived {
				// the anchored item is gone; land on whatever took its place
				a.delta = 0
			}
		}
	}
	e.relayout(a)
	e.lastCount = e.data.Count()
	e.logger.Debug("Applied collection change", "records", len(batch), "count", e.lastCount, "range", e.current)
}

// relayout rebuilds the offset table, restores the anchored item to the same
// viewport position and reconciles from scratch. Without an anchor the
// viewport goes back to the top.
func (e *Engine[T, H]) relayout(a anchor) {
	e.rebuild()
	e.layoutDirty = true
	e.hideAll()

	offset := 0.0
	if n := e.data.Count(); n > 0 && a.ok {
		inx := min(max(0, a.index), n-1)
		top, _ := e.table.TopOffset(inx)
		offset = top + a.delta
	}
	e.host.SetViewportOffset(e.clampOffset(offset))
	e.update()
}

func (e *Engine[T, H]) captureAnchor() anchor {
	if e.table.Len() == 0 {
		return anchor{}
	}
	vp := e.host.Viewport()
	inx := e.table.IndexAt(vp.Offset - e.paddingTop)
	top, _ := e.table.TopOffset(inx)
	return anchor{index: inx, delta: vp.Offset - top, ok: true}
}

func (e *Engine[T, H]) coreHeight(index int) float64 {
	if e.sizer != nil {
		return max(0, e.sizer.Size(index))
	}
	return e.itemHeight
}

func (e *Engine[T, H]) fullHeight(index int) float64 {
	core := e.coreHeight(index)
	if index < e.data.Count()-1 {
		return core + e.spacing
	}
	return core
}

func (e *Engine[T, H]) rebuild() {
	e.table.SetPaddingTop(e.paddingTop)
	e.table.Rebuild(e.data.Count(), e.fullHeight)
	e.host.SetContentHeight(e.ContentHeight())
	e.settled = false
}

func (e *Engine[T, H]) maxOffset() float64 {
	return max(0, e.ContentHeight()-e.host.Viewport().Height)
}

func (e *Engine[T, H]) clampOffset(offset float64) float64 {
	return min(max(0, offset), e.maxOffset())
}

func (e *Engine[T, H]) ensureLayout() {
	if !e.layoutDirty {
		return
	}
	if err := e.host.ForceLayout(); err != nil {
		e.logger.Debug("Host layout pass failed", "error", err)
		return
	}
	e.layoutDirty = false
}

// visibleRange computes the index window for the current viewport, overscan
// included.
func (e *Engine[T, H]) visibleRange() Range {
	n := e.data.Count()
	if n == 0 {
		return Empty
	}
	e.ensureLayout()

	vp := e.host.Viewport()
	if vp.Height <= e.minViewport {
		return e.estimateRange(n)
	}

	top := vp.Offset - e.paddingTop
	bottom := top + vp.Height

	start := e.table.LowerBound(top)
	// the item straddling the top edge is visible too
	if start > 0 && e.table.Prefix(start) > top {
		start--
	}
	end := e.table.UpperBound(bottom) - 1

	start = min(max(0, start-e.overscanBefore), n-1)
	end = min(max(start, end+e.overscanAfter), n-1)
	return Range{Start: start, End: end}
}

// estimateRange guesses a window before the host reported real geometry:
// enough average sized items to fill eight of them.
func (e *Engine[T, H]) estimateRange(n int) Range {
	avg := max(1, e.itemHeight)
	if e.table.Len() > 0 {
		avg = e.table.Total() / float64(e.table.Len())
	}
	guess := max(avg, avg*8)
	fill := int(math.Ceil(guess / max(1, avg)))
	fill = min(max(1, fill), n)

	end := min(max(0, fill-1+e.overscanAfter), n-1)
	return Range{Start: 0, End: end}
}

func (e *Engine[T, H]) update() {
	if e.data.Count() == 0 {
		e.hideAll()
		e.current = Empty
		e.settled = true
		return
	}
	e.reconcile(e.visibleRange())
}

// reconcile releases cells outside need and realizes the missing indices.
func (e *Engine[T, H]) reconcile(need Range) {
	if e.settled && need == e.current {
		return
	}

	for _, inx := range slices.Sorted(maps.Keys(e.visible)) {
		if !need.Contains(inx) {
			e.release(inx)
		}
	}

	complete := true
	for inx := need.Start; inx <= need.End; inx++ {
		if _, ok := e.visible[inx]; ok {
			continue
		}
		cell, err := e.pool.Acquire()
		if err != nil {
			e.logger.Error("Failed to acquire cell", "index", inx, "error", err)
			complete = false
			continue
		}
		top, _ := e.table.TopOffset(inx)
		e.host.PlaceCell(cell, top, e.coreHeight(inx))

		ctx, cancel := context.WithCancel(e.ctx)
		e.visible[inx] = realized[H]{cell: cell, cancel: cancel}
		e.bind(ctx, cell, inx)
	}

	e.current = need
	e.settled = complete
}

func (e *Engine[T, H]) release(inx int) {
	r, ok := e.visible[inx]
	if !ok {
		return
	}
	delete(e.visible, inx)
	r.cancel()
	e.unbind(r.cell, inx)
	e.pool.Release(r.cell)
}

func (e *Engine[T, H]) hideAll() {
	for _, inx := range slices.Sorted(maps.Keys(e.visible)) {
		e.release(inx)
	}
	e.current = Empty
	e.settled = false
}

func (e *Engine[T, H]) bind(ctx context.Context, cell H, inx int) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Cell bind panicked", "index", inx, "panic", r)
		}
	}()
	if err := e.binder.Bind(ctx, cell, e.data.At(inx), inx); err != nil {
		e.logger.Warn("Failed to bind cell", "index", inx, "error", err)
	}
}

func (e *Engine[T, H]) unbind(cell H, inx int) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Cell unbind panicked", "index", inx, "panic", r)
		}
	}()
	if err := e.binder.Unbind(cell); err != nil {
		e.logger.Warn("Failed to unbind cell", "index", inx, "error", err)
	}
}
