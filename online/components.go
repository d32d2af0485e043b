package online

// ComponentMaps relates the named solution components of a block-structured
// unknown to contiguous index ranges of the reduced basis. The three maps are
// carried alongside every matrix and vector of an affine expansion so that
// slicing by component and persistence stay consistent: either all three are
// set, or none is.
type ComponentMaps struct {
	IndexToName  map[int]string
	NameToIndex  map[string]int
	NameToLength map[string]int
}

// IsSet reports whether all three maps are present.
func (cm ComponentMaps) IsSet() bool {
	return cm.IndexToName != nil && cm.NameToIndex != nil && cm.NameToLength != nil
}

// Consistent verifies the all-or-none invariant and that the three maps agree
// on the component names.
func (cm ComponentMaps) Consistent() error {
	var (
		set   = 0
		total = 0
	)
	if cm.IndexToName != nil {
		set++
	}
	if cm.NameToIndex != nil {
		set++
	}
	if cm.NameToLength != nil {
		set++
	}
	if set == 0 {
		return nil
	}
	if set != 3 {
		return ErrInconsistentComponents
	}
	total = len(cm.IndexToName)
	if len(cm.NameToIndex) != total || len(cm.NameToLength) != total {
		return ErrInconsistentComponents
	}
	for index, name := range cm.IndexToName {
		if cm.NameToIndex[name] != index {
			return ErrInconsistentComponents
		}
		if _, ok := cm.NameToLength[name]; !ok {
			return ErrInconsistentComponents
		}
	}
	return nil
}

// Equal reports whether both ComponentMaps hold the same relations.
func (cm ComponentMaps) Equal(other ComponentMaps) bool {
	if cm.IsSet() != other.IsSet() {
		return false
	}
	if !cm.IsSet() {
		return true
	}
	if len(cm.IndexToName) != len(other.IndexToName) {
		return false
	}
	for index, name := range cm.IndexToName {
		if other.IndexToName[index] != name {
			return false
		}
		if other.NameToIndex[name] != cm.NameToIndex[name] {
			return false
		}
		if other.NameToLength[name] != cm.NameToLength[name] {
			return false
		}
	}
	return true
}

// TotalLength sums the basis lengths over all components.
func (cm ComponentMaps) TotalLength() (total int) {
	for _, length := range cm.NameToLength {
		total += length
	}
	return
}
