package collection

import "fmt"

// Kind identifies a structural edit in a change batch.
type Kind int

const (
	KindInsert Kind = iota
	KindRemove
	KindMove
	KindUpdate
)

func (k Kind) String() string {
	switch k {
	case KindInsert:
		return "insert"
	case KindRemove:
		return "remove"
	case KindMove:
		return "move"
	case KindUpdate:
		return "update"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Change is a single record of a change batch. Records are ordered and must be
// applied in sequence: each index refers to the state produced by the
// previous record.
//
// For moves, From is the first index of the block before it was taken out and
// To is the index it was reinserted at after the removal. Index equals To.
type Change[T any] struct {
	Kind  Kind
	Index int
	Count int
	From  int
	To    int
	// Items holds the inserted or updated values. Nil for removes and moves.
	Items []T
}

func (c Change[T]) String() string {
	if c.Kind == KindMove {
		return fmt.Sprintf("move(%d->%d x%d)", c.From, c.To, c.Count)
	}
	return fmt.Sprintf("%s(%d x%d)", c.Kind, c.Index, c.Count)
}

func insertChange[T any](index int, item T) Change[T] {
	return Change[T]{Kind: KindInsert, Index: index, Count: 1, From: -1, To: -1, Items: []T{item}}
}

func removeChange[T any](index, count int) Change[T] {
	return Change[T]{Kind: KindRemove, Index: index, Count: count, From: -1, To: -1}
}

func updateChange[T any](index int, item T) Change[T] {
	return Change[T]{Kind: KindUpdate, Index: index, Count: 1, From: -1, To: -1, Items: []T{item}}
}

func moveChange[T any](from, to, count int) Change[T] {
	return Change[T]{Kind: KindMove, Index: to, Count: count, From: from, To: to}
}

// TrackIndex follows the position of the element that sat at index before
// the batch was applied. When that element was removed, the returned index is
// where the removal happened and survived is false; callers clamp it to the
// new bounds.
func TrackIndex[T any](index int, batch []Change[T]) (int, bool) {
	survived := true
	for _, c := range batch {
		switch c.Kind {
		case KindInsert:
			if c.Index <= index {
				index += c.Count
			}
		case KindRemove:
			switch {
			case index >= c.Index+c.Count:
				index -= c.Count
			case index >= c.Index:
				index = c.Index
				survived = false
			}
		case KindMove:
			if index >= c.From && index < c.From+c.Count {
				index = c.To + (index - c.From)
				continue
			}
			if index >= c.From+c.Count {
				index -= c.Count
			}
			if index >= c.To {
				index += c.Count
			}
		}
	}
	return index, survived
}
