package eim

import "errors"

var (
	// ErrTruncationOrder is returned when an interpolation is requested at an
	// order beyond the built basis length.
	ErrTruncationOrder = errors.New("eim: truncation order exceeds built basis length")

	// ErrTruncationLength is returned when a per-term truncation does not
	// supply exactly one order per separated form.
	ErrTruncationLength = errors.New("eim: one truncation order required per separated form")

	// ErrFormCount is returned when the separated form count of a term does
	// not match the length of the problem's original theta expansion.
	ErrFormCount = errors.New("eim: separated form count does not match original theta count")

	// ErrBasisShape is returned when an enriching snapshot does not match the
	// evaluation-point layout of the existing basis.
	ErrBasisShape = errors.New("eim: snapshot shape does not match basis")

	// ErrMagicIndex is returned when a magic index falls outside the snapshot.
	ErrMagicIndex = errors.New("eim: magic index out of range")
)
