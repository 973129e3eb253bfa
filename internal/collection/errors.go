package collection

import "errors"

var (
	// ErrDuplicateID is returned when an insert or a bulk replace would put two
	// items with the same id in the collection.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrIdentityMismatch is returned when an update would change an item's id.
	ErrIdentityMismatch = errors.New("identity mismatch")
	// ErrIndexOutOfRange is returned for index or count arguments outside the
	// collection bounds.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrInvalidArgument is returned for missing required arguments.
	ErrInvalidArgument = errors.New("invalid argument")
)
