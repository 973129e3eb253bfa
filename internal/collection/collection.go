// Package collection implements an ordered sequence of items keyed by a
// stable id. Every mutation is validated up front and reported to observers as
// an ordered batch of structural changes.
package collection

import (
	"fmt"
	"iter"
	"reflect"
	"slices"
)

// KeyFunc extracts the stable id of an item.
type KeyFunc[T any] func(item T) string

// EqualFunc reports whether two values of the same item are equal. It decides
// whether a bulk replace emits an Update record.
type EqualFunc[T any] func(a, b T) bool

// Observer receives every change batch synchronously, in registration order.
// The batch slice must not be retained after the call returns.
type Observer[T any] func(batch []Change[T])

type entry[T any] struct {
	id   string
	item T
}

type subscription[T any] struct {
	id int
	fn Observer[T]
}

// Collection is not safe for concurrent use. A single owner goroutine must
// drive both mutations and the observers they trigger.
type Collection[T any] struct {
	key   KeyFunc[T]
	equal EqualFunc[T]

	entries []entry[T]
	index   map[string]int

	observers []subscription[T]
	nextSubID int
}

type Option[T any] func(*Collection[T])

// WithEqual sets the comparer used for update detection. The default is
// reflect.DeepEqual.
func WithEqual[T any](eq EqualFunc[T]) Option[T] {
	return func(c *Collection[T]) {
		if eq != nil {
			c.equal = eq
		}
	}
}

// New creates an empty collection. key is required.
func New[T any](key KeyFunc[T], opts ...Option[T]) (*Collection[T], error) {
	if key == nil {
		return nil, fmt.Errorf("%w: key function is required", ErrInvalidArgument)
	}
	c := &Collection[T]{
		key:   key,
		equal: func(a, b T) bool { return reflect.DeepEqual(a, b) },
		index: make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Count returns the number of items.
func (c *Collection[T]) Count() int {
	return len(c.entries)
}

// At returns the item at index. It panics when index is out of range, like a
// slice access.
func (c *Collection[T]) At(index int) T {
	return c.entries[index].item
}

// ID returns the id of the item at index.
func (c *Collection[T]) ID(index int) string {
	return c.entries[index].id
}

// IndexOf returns the current index of id.
func (c *Collection[T]) IndexOf(id string) (int, bool) {
	inx, ok := c.index[id]
	return inx, ok
}

// Items returns a copy of the items in order.
func (c *Collection[T]) Items() []T {
	items := make([]T, len(c.entries))
	for i, e := range c.entries {
		items[i] = e.item
	}
	return items
}

// All iterates over index, item pairs in order.
func (c *Collection[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, e := range c.entries {
			if !yield(i, e.item) {
				return
			}
		}
	}
}

// Subscribe registers an observer and returns a function that removes it.
func (c *Collection[T]) Subscribe(fn Observer[T]) func() {
	if fn == nil {
		return func() {}
	}
	id := c.nextSubID
	c.nextSubID++
	c.observers = append(c.observers, subscription[T]{id: id, fn: fn})
	return func() {
		c.observers = slices.DeleteFunc(c.observers, func(s subscription[T]) bool {
			return s.id == id
		})
	}
}

// Add appends item at the end.
func (c *Collection[T]) Add(item T) error {
	return c.Insert(len(c.entries), item)
}

// Insert places item at index, shifting later items down.
func (c *Collection[T]) Insert(index int, item T) error {
	if index < 0 || index > len(c.entries) {
		return fmt.Errorf("%w: insert at %d, want [0..%d]", ErrIndexOutOfRange, index, len(c.entries))
	}
	id, err := c.uniqueID(item)
	if err != nil {
		return err
	}

	c.entries = slices.Insert(c.entries, index, entry[T]{id: id, item: item})
	c.reindexFrom(index)
	c.emit([]Change[T]{insertChange(index, item)})
	return nil
}

// RemoveAt removes up to count items starting at index. The count is clamped
// to the remaining length; nothing happens when it ends up non-positive.
func (c *Collection[T]) RemoveAt(index, count int) error {
	if count <= 0 {
		return nil
	}
	if index < 0 || index > len(c.entries) {
		return fmt.Errorf("%w: remove at %d, want [0..%d]", ErrIndexOutOfRange, index, len(c.entries))
	}
	n := min(count, len(c.entries)-index)
	if n <= 0 {
		return nil
	}

	for _, e := range c.entries[index : index+n] {
		delete(c.index, e.id)
	}
	c.entries = slices.Delete(c.entries, index, index+n)
	c.reindexFrom(index)
	c.emit([]Change[T]{removeChange[T](index, n)})
	return nil
}

// RemoveByID removes the item with the given id. It returns false when the id
// is unknown.
func (c *Collection[T]) RemoveByID(id string) bool {
	inx, ok := c.index[id]
	if !ok {
		return false
	}
	// index comes from the map, so it is always in range
	_ = c.RemoveAt(inx, 1)
	return true
}

// UpdateAt replaces the value at index. The new value must keep the same id.
func (c *Collection[T]) UpdateAt(index int, item T) error {
	if index < 0 || index >= len(c.entries) {
		return fmt.Errorf("%w: update at %d, want [0..%d)", ErrIndexOutOfRange, index, len(c.entries))
	}
	old := c.entries[index]
	if id := c.key(item); id != old.id {
		return fmt.Errorf("%w: update at %d would change id %q to %q", ErrIdentityMismatch, index, old.id, id)
	}

	c.entries[index] = entry[T]{id: old.id, item: item}
	c.emit([]Change[T]{updateChange(index, item)})
	return nil
}

// UpdateByID replaces the value of the item with the given id. It returns
// false when the id is unknown.
func (c *Collection[T]) UpdateByID(id string, item T) (bool, error) {
	inx, ok := c.index[id]
	if !ok {
		return false, nil
	}
	if err := c.UpdateAt(inx, item); err != nil {
		return false, err
	}
	return true, nil
}

// Move takes the block of count items starting at from and reinserts it at
// to, where to is an index into the sequence with the block removed (clamped
// to its length). Moving a block onto itself does nothing.
func (c *Collection[T]) Move(from, to, count int) error {
	if count <= 0 || from == to {
		return nil
	}
	n := len(c.entries)
	if from < 0 || from >= n {
		return fmt.Errorf("%w: move from %d, want [0..%d)", ErrIndexOutOfRange, from, n)
	}
	if count > n-from {
		return fmt.Errorf("%w: move count %d from %d exceeds %d items", ErrIndexOutOfRange, count, from, n)
	}
	if to < 0 || to > n {
		return fmt.Errorf("%w: move to %d, want [0..%d]", ErrIndexOutOfRange, to, n)
	}
	if to >= from && to < from+count {
		return nil
	}

	block := slices.Clone(c.entries[from : from+count])
	c.entries = slices.Delete(c.entries, from, from+count)
	to = min(to, len(c.entries))
	c.entries = slices.Insert(c.entries, to, block...)

	c.reindexFrom(min(from, to))
	c.emit([]Change[T]{moveChange[T](from, to, count)})
	return nil
}

// Sort reorders the items with cmp. The new order is applied as a bulk
// replace with move detection, so observers see moves rather than a reset.
func (c *Collection[T]) Sort(cmp func(a, b T) int) error {
	if cmp == nil {
		return fmt.Errorf("%w: sort comparator is required", ErrInvalidArgument)
	}
	target := c.Items()
	slices.SortStableFunc(target, cmp)
	return c.SetItems(target, true, false)
}

// Clear removes every item with a single Remove record.
func (c *Collection[T]) Clear() {
	n := len(c.entries)
	if n == 0 {
		return
	}
	c.entries = c.entries[:0]
	clear(c.index)
	c.emit([]Change[T]{removeChange[T](0, n)})
}

// SetItems replaces the whole sequence with items and emits the edits that
// turn the previous state into the new one, matched by id:
//
//  1. trailing runs of items missing from the target are removed, back to front;
//  2. target positions are walked in order: aligned items keep their slot,
//     items found further down are moved up (detectMoves), others are inserted;
//  3. anything left past the target length is removed.
//
// Value changes produce Update records only when detectUpdates is set. The
// collection is left untouched when items contains a duplicate id.
func (c *Collection[T]) SetItems(items []T, detectMoves, detectUpdates bool) error {
	target := make([]entry[T], len(items))
	present := make(map[string]struct{}, len(items))
	for i, item := range items {
		id := c.key(item)
		if id == "" {
			return fmt.Errorf("%w: empty id at target index %d", ErrInvalidArgument, i)
		}
		if _, dup := present[id]; dup {
			return fmt.Errorf("%w: %q appears more than once in target", ErrDuplicateID, id)
		}
		present[id] = struct{}{}
		target[i] = entry[T]{id: id, item: item}
	}

	var changes []Change[T]

	run := 0
	for i := len(c.entries) - 1; i >= -1; i-- {
		if i >= 0 {
			if _, keep := present[c.entries[i].id]; !keep {
				run++
				continue
			}
		}
		if run > 0 {
			start := i + 1
			c.entries = slices.Delete(c.entries, start, start+run)
			changes = append(changes, removeChange[T](start, run))
			run = 0
		}
	}
	c.reindexAll()

	for t, want := range target {
		if t < len(c.entries) && c.entries[t].id == want.id {
			if detectUpdates && !c.equal(c.entries[t].item, want.item) {
				changes = append(changes, updateChange(t, want.item))
			}
			c.entries[t] = want
			continue
		}

		if detectMoves {
			// ids before t already match the target, so a hit is always below t
			if cur, ok := c.index[want.id]; ok && cur > t {
				moved := c.entries[cur]
				c.entries = slices.Delete(c.entries, cur, cur+1)
				c.entries = slices.Insert(c.entries, t, moved)
				c.reindexFrom(t)
				changes = append(changes, moveChange[T](cur, t, 1))

				if detectUpdates && !c.equal(moved.item, want.item) {
					changes = append(changes, updateChange(t, want.item))
				}
				c.entries[t] = want
				continue
			}
		}

		c.entries = slices.Insert(c.entries, t, want)
		c.reindexFrom(t)
		changes = append(changes, insertChange(t, want.item))
	}

	if extra := len(c.entries) - len(target); extra > 0 {
		start := len(target)
		c.entries = slices.Delete(c.entries, start, start+extra)
		changes = append(changes, removeChange[T](start, extra))
	}

	// Without move detection the walk may have left stale duplicates in the
	// map while they were still waiting in the tail.
	c.reindexAll()

	if len(changes) > 0 {
		c.emit(changes)
	}
	return nil
}

func (c *Collection[T]) uniqueID(item T) (string, error) {
	id := c.key(item)
	if id == "" {
		return "", fmt.Errorf("%w: empty id", ErrInvalidArgument)
	}
	if _, exists := c.index[id]; exists {
		return "", fmt.Errorf("%w: %q already exists", ErrDuplicateID, id)
	}
	return id, nil
}

func (c *Collection[T]) reindexFrom(start int) {
	for i := max(0, start); i < len(c.entries); i++ {
		c.index[c.entries[i].id] = i
	}
}

func (c *Collection[T]) reindexAll() {
	clear(c.index)
	c.reindexFrom(0)
}

func (c *Collection[T]) emit(batch []Change[T]) {
	observers := slices.Clone(c.observers)
	for _, o := range observers {
		o.fn(batch)
	}
}
