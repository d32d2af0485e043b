package online

import (
	"fmt"
	"strconv"
	"strings"
)

// DimBound restricts one content dimension to a contiguous leading sub-range,
// either by a raw index bound (rows [0, Stop)) or by per-component basis
// lengths resolved through the storage ComponentMaps.
type DimBound struct {
	Stop        int
	ByComponent map[string]int
}

// RawBound keeps the leading stop entries of a dimension.
func RawBound(stop int) DimBound { return DimBound{Stop: stop} }

// ComponentBound keeps, for every named component, the leading lengths[name]
// entries of that component's basis block.
func ComponentBound(lengths map[string]int) DimBound {
	return DimBound{ByComponent: lengths}
}

// SliceKey is the per-content-dimension restriction used to slice every slot
// of a storage: one bound for vector content, two for matrix content.
type SliceKey struct {
	Bounds []DimBound
}

// NewSliceKey builds a key from one bound per content dimension.
func NewSliceKey(bounds ...DimBound) SliceKey { return SliceKey{Bounds: bounds} }

// resolve expands one bound into the flat index list it selects.
func (b DimBound) resolve(dimLen int, cm ComponentMaps) (Index, error) {
	if b.ByComponent == nil {
		if b.Stop < 0 || b.Stop > dimLen {
			return nil, fmt.Errorf("%w: bound %d of dimension length %d",
				ErrIndexOutOfRange, b.Stop, dimLen)
		}
		return IndexRange(0, b.Stop), nil
	}
	if !cm.IsSet() {
		return nil, fmt.Errorf("%w: component bound on storage without component maps",
			ErrInconsistentComponents)
	}
	var (
		I      Index
		offset int
	)
	for index := 0; index < len(cm.IndexToName); index++ {
		name, ok := cm.IndexToName[index]
		if !ok {
			return nil, fmt.Errorf("%w: no component at basis index %d",
				ErrInconsistentComponents, index)
		}
		blockLen := cm.NameToLength[name]
		take, ok := b.ByComponent[name]
		if !ok {
			return nil, fmt.Errorf("%w: no bound for component %q",
				ErrIndexOutOfRange, name)
		}
		if take < 0 || take > blockLen {
			return nil, fmt.Errorf("%w: bound %d for component %q of length %d",
				ErrIndexOutOfRange, take, name, blockLen)
		}
		I = append(I, IndexRange(offset, offset+take)...)
		offset += blockLen
	}
	return I, nil
}

// canonicalKey is the memoization key of a resolved slice: identical index
// selections always map to the same string.
func canonicalKey(resolved []Index) string {
	var sb strings.Builder
	for d, I := range resolved {
		if d > 0 {
			sb.WriteByte(';')
		}
		for i, ind := range I {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.Itoa(ind))
		}
	}
	return sb.String()
}
