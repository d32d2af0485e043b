package online

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// Kind discriminates the content held by one slot of an affine expansion.
type Kind uint8

const (
	NoKind       Kind = iota // empty slot, never written
	MatrixKind               // output e.g. of Z^T*A*Z
	VectorKind               // output e.g. of Z^T*F
	FunctionKind             // initial conditions of unsteady problems
	ScalarKind               // output of Riesz_F^T*X*Riesz_F
)

func (k Kind) String() string {
	switch k {
	case NoKind:
		return "empty"
	case MatrixKind:
		return "matrix"
	case VectorKind:
		return "vector"
	case FunctionKind:
		return "function"
	case ScalarKind:
		return "scalar"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// sliceable reports whether content of this kind has a sub-range notion.
func (k Kind) sliceable() bool {
	return k == MatrixKind || k == VectorKind || k == FunctionKind
}

// class folds FunctionKind onto VectorKind: a coefficient function is treated
// as its underlying vector for storage and slicing purposes.
func (k Kind) class() Kind {
	if k == FunctionKind {
		return VectorKind
	}
	return k
}

// Value is the closed tagged variant held by one storage slot: exactly one of
// {matrix, vector, function, scalar, empty}. The zero Value is the empty slot.
type Value struct {
	kind Kind
	m    Matrix
	v    Vector
	s    float64
}

func MatrixValue(m Matrix) Value  { return Value{kind: MatrixKind, m: m} }
func VectorValue(v Vector) Value  { return Value{kind: VectorKind, v: v} }
func ScalarValue(s float64) Value { return Value{kind: ScalarKind, s: s} }

func FunctionValue(f Function) Value {
	return Value{kind: FunctionKind, v: f.Vec}
}

func (val Value) Kind() Kind    { return val.kind }
func (val Value) IsEmpty() bool { return val.kind == NoKind }

// Matrix returns the matrix content, if this Value holds one.
func (val Value) Matrix() (Matrix, bool) {
	return val.m, val.kind == MatrixKind
}

// Vector returns the vector content; a function answers through its
// underlying vector.
func (val Value) Vector() (Vector, bool) {
	return val.v, val.kind == VectorKind || val.kind == FunctionKind
}

// Function returns the function content, if this Value holds one.
func (val Value) Function() (Function, bool) {
	return Function{Vec: val.v}, val.kind == FunctionKind
}

// Scalar returns the scalar content, if this Value holds one.
func (val Value) Scalar() (float64, bool) {
	return val.s, val.kind == ScalarKind
}

// components returns the maps attached to matrix/vector/function content.
func (val Value) components() (ComponentMaps, bool) {
	switch val.kind {
	case MatrixKind:
		return val.m.Components, true
	case VectorKind, FunctionKind:
		return val.v.Components, true
	}
	return ComponentMaps{}, false
}

// dims reports the content shape: (rows, cols) for a matrix, (n, 0) for a
// vector or function, (0, 0) otherwise.
func (val Value) dims() (r, c int) {
	switch val.kind {
	case MatrixKind:
		return val.m.Dims()
	case VectorKind, FunctionKind:
		return val.v.Len(), 0
	}
	return 0, 0
}

// withComponents returns a copy of the value with its component maps
// replaced; scalars and empty slots pass through unchanged.
func (val Value) withComponents(cm ComponentMaps) Value {
	switch val.kind {
	case MatrixKind:
		val.m.Components = cm
	case VectorKind, FunctionKind:
		val.v.Components = cm
	}
	return val
}

// valueWire is the serialized form of a Value.
type valueWire struct {
	Kind       uint8
	Rows, Cols int
	Data       []float64
	Scalar     float64
	Components ComponentMaps
}

// MarshalBinary implements encoding.BinaryMarshaler for gob persistence.
func (val Value) MarshalBinary() ([]byte, error) {
	var (
		wire valueWire
		buf  bytes.Buffer
	)
	wire.Kind = uint8(val.kind)
	switch val.kind {
	case NoKind:
		// nothing to record
	case MatrixKind:
		wire.Rows, wire.Cols = val.m.Dims()
		wire.Data = val.m.RawMatrix().Data
		wire.Components = val.m.Components
	case VectorKind, FunctionKind:
		wire.Rows = val.v.Len()
		wire.Data = val.v.RawVector().Data
		wire.Components = val.v.Components
	case ScalarKind:
		wire.Scalar = val.s
	default:
		return nil, fmt.Errorf("online: cannot serialize content kind %v", val.kind)
	}
	if err := gob.NewEncoder(&buf).Encode(wire); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler for gob persistence.
func (val *Value) UnmarshalBinary(data []byte) error {
	var wire valueWire
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&wire); err != nil {
		return err
	}
	switch Kind(wire.Kind) {
	case NoKind:
		*val = Value{}
	case MatrixKind:
		m := NewMatrix(wire.Rows, wire.Cols, wire.Data)
		m.Components = wire.Components
		*val = MatrixValue(m)
	case VectorKind, FunctionKind:
		v := NewVector(wire.Rows, wire.Data)
		v.Components = wire.Components
		*val = Value{kind: Kind(wire.Kind), v: v}
	case ScalarKind:
		*val = ScalarValue(wire.Scalar)
	default:
		return fmt.Errorf("online: cannot deserialize content kind %d", wire.Kind)
	}
	return nil
}
