package window

import "context"

// Viewport is the visible extent reported by the host, in the host's units.
// Offset is measured from the top of the content (padding included).
type Viewport struct {
	Offset float64
	Height float64
}

// Host owns the actual visual surface.
type Host[H any] interface {
	// Viewport returns the current scroll offset and visible height.
	Viewport() Viewport
	// SetViewportOffset scrolls the host. The engine always passes a value
	// already clamped to the content bounds.
	SetViewportOffset(offset float64)
	// SetContentHeight reports the full content height after every rebuild.
	SetContentHeight(height float64)
	// PlaceCell positions a realized cell.
	PlaceCell(cell H, top, height float64)
	// ForceLayout asks the host to settle its geometry. The engine calls it
	// before trusting Viewport when the layout was marked dirty.
	ForceLayout() error
}

// Binder fills cells with item data.
type Binder[T, H any] interface {
	// Bind shows item in cell. The context is cancelled once the cell is
	// unbound or rebound to another index, so asynchronous work can drop
	// stale results by checking ctx.Err().
	Bind(ctx context.Context, cell H, item T, index int) error
	// Unbind clears cell before it goes back to the pool. It is called even
	// when the previous Bind failed or is still running.
	Unbind(cell H) error
}

// Pool lends cells to the engine. Release must be idempotent.
type Pool[H any] interface {
	Acquire() (H, error)
	Release(cell H)
}

// Sizer returns the core height of the item at index, spacing excluded.
type Sizer interface {
	Size(index int) float64
}

// SizerFunc adapts a function into a Sizer.
type SizerFunc func(index int) float64

func (f SizerFunc) Size(index int) float64 { return f(index) }

// Align is the fraction of the free viewport space placed above an item when
// scrolling to it.
type Align float64

const (
	AlignStart  Align = 0
	AlignCenter Align = 0.5
	AlignEnd    Align = 1
)

// Range is an inclusive index window. The zero-item window is Empty.
type Range struct {
	Start, End int
}

// Empty is the window of an empty collection.
var Empty = Range{Start: -1, End: -1}

// IsEmpty reports whether r holds no indices.
func (r Range) IsEmpty() bool {
	return r.Start < 0 || r.End < r.Start
}

// Len returns the number of indices in r.
func (r Range) Len() int {
	if r.IsEmpty() {
		return 0
	}
	return r.End - r.Start + 1
}

// Contains reports whether index lies inside r.
func (r Range) Contains(index int) bool {
	return !r.IsEmpty() && index >= r.Start && index <= r.End
}
