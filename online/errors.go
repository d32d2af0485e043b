package online

import "errors"

var (
	// ErrInvalidShape marks constructor or index arguments that do not match
	// the storage shape.
	ErrInvalidShape = errors.New("online: invalid storage shape")

	// ErrViewNotWritable marks a mutating operation attempted on a view.
	ErrViewNotWritable = errors.New("online: storage view is read-only")

	// ErrMixedContent marks an attempt to mix content kinds in one storage.
	ErrMixedContent = errors.New("online: mixed content kinds in one storage")

	// ErrUnsliceableContent marks slicing of a content kind that has no
	// sub-range notion (scalars, empty slots).
	ErrUnsliceableContent = errors.New("online: content kind does not support slicing")

	// ErrInconsistentComponents marks component maps that are not all-set or
	// all-unset, or that differ between slots of the same storage.
	ErrInconsistentComponents = errors.New("online: inconsistent component maps")

	// ErrIndexOutOfRange marks a slot or sub-range index outside the storage.
	ErrIndexOutOfRange = errors.New("online: index out of range")

	// ErrEmptySlot marks a read of content from a slot that was never written.
	ErrEmptySlot = errors.New("online: empty slot")
)
