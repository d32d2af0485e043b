package online

import (
	"encoding/gob"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sync"
)

// AffineExpansionStorage is the indexed container holding the Q (or Q1 x Q2)
// parameter-independent operators of one affine term. Slots are heterogeneous
// Values sharing one content kind, written exactly once each, in
// non-decreasing index order, by a single writer. Slicing by sub-range is
// memoized; once the owning writer has finished populating the storage, reads
// and slicing are safe from concurrent readers.
type AffineExpansionStorage struct {
	state  *expansionState
	isView bool
}

// expansionState is the shared-ownership handle behind a storage and all of
// its views.
type expansionState struct {
	content []Value
	rows    int
	cols    int
	is2D    bool
	kind    Kind // fixed by the first written slot
	written int  // count of populated slots; == len(content) once complete
	maps    ComponentMaps

	// Lazy caches, guarded by mu so that post-population concurrent readers
	// never race on cache fill.
	mu       sync.Mutex
	slices   map[string]*AffineExpansionStorage
	asMatrix *Matrix
}

// NewAffineExpansionStorage allocates an empty owning storage of the given
// shape: one non-negative length (1-D expansion, e.g. the Qa matrices of a
// bilinear term) or two (2-D expansion split by two basis dimensions).
func NewAffineExpansionStorage(size ...int) (*AffineExpansionStorage, error) {
	switch len(size) {
	case 1:
		if size[0] < 0 {
			return nil, fmt.Errorf("%w: negative length %d", ErrInvalidShape, size[0])
		}
		return &AffineExpansionStorage{
			state: &expansionState{
				content: make([]Value, size[0]),
				rows:    size[0],
				slices:  make(map[string]*AffineExpansionStorage),
			},
		}, nil
	case 2:
		if size[0] < 0 || size[1] < 0 {
			return nil, fmt.Errorf("%w: negative shape %dx%d", ErrInvalidShape, size[0], size[1])
		}
		return &AffineExpansionStorage{
			state: &expansionState{
				content: make([]Value, size[0]*size[1]),
				rows:    size[0],
				cols:    size[1],
				is2D:    true,
				slices:  make(map[string]*AffineExpansionStorage),
			},
		}, nil
	}
	return nil, fmt.Errorf("%w: expected 1 or 2 lengths, got %d", ErrInvalidShape, len(size))
}

// NewAffineExpansionStorageView builds a non-owning view aliasing another
// storage's content, component maps and caches. Mutating operations on the
// view are contract violations.
func NewAffineExpansionStorageView(other *AffineExpansionStorage) *AffineExpansionStorage {
	return &AffineExpansionStorage{state: other.state, isView: true}
}

// IsView reports whether this instance aliases another storage's content.
func (aes *AffineExpansionStorage) IsView() bool { return aes.isView }

// Order returns 1 for a 1-D expansion and 2 for a 2-D expansion.
func (aes *AffineExpansionStorage) Order() int {
	if aes.state.is2D {
		return 2
	}
	return 1
}

// Len returns the number of slots.
func (aes *AffineExpansionStorage) Len() int { return len(aes.state.content) }

// Dims returns the shape; cols is 0 for a 1-D expansion.
func (aes *AffineExpansionStorage) Dims() (rows, cols int) {
	return aes.state.rows, aes.state.cols
}

// ContentKind returns the kind fixed by the first written slot, or NoKind on
// a storage that was never written.
func (aes *AffineExpansionStorage) ContentKind() Kind { return aes.state.kind }

// ComponentMaps returns the maps shared by every slot of the storage.
func (aes *AffineExpansionStorage) ComponentMaps() ComponentMaps { return aes.state.maps }

func (s *expansionState) linear(index []int) (int, error) {
	if s.is2D {
		if len(index) != 2 {
			return 0, fmt.Errorf("%w: 2-D storage indexed with %d indices",
				ErrInvalidShape, len(index))
		}
		if index[0] < 0 || index[0] >= s.rows || index[1] < 0 || index[1] >= s.cols {
			return 0, fmt.Errorf("%w: (%d,%d) outside %dx%d",
				ErrIndexOutOfRange, index[0], index[1], s.rows, s.cols)
		}
		return index[0]*s.cols + index[1], nil
	}
	if len(index) != 1 {
		return 0, fmt.Errorf("%w: 1-D storage indexed with %d indices",
			ErrInvalidShape, len(index))
	}
	if index[0] < 0 || index[0] >= s.rows {
		return 0, fmt.Errorf("%w: %d outside length %d",
			ErrIndexOutOfRange, index[0], s.rows)
	}
	return index[0], nil
}

// Set writes one slot. The first written slot fixes the storage content kind
// (a function counts as its underlying vector) and adopts the item's
// component maps; every later write must agree with both. Writing resets the
// as-matrix cache, and the write that completes the storage prepares the
// trivial whole-range slice cache entry.
func (aes *AffineExpansionStorage) Set(item Value, index ...int) error {
	if aes.isView {
		return fmt.Errorf("%w: set", ErrViewNotWritable)
	}
	s := aes.state
	lin, err := s.linear(index)
	if err != nil {
		return err
	}
	if item.IsEmpty() {
		return fmt.Errorf("%w: cannot write an empty value", ErrEmptySlot)
	}
	if s.kind == NoKind {
		s.kind = item.Kind()
	} else if s.kind.class() != item.Kind().class() {
		return fmt.Errorf("%w: storage holds %v, got %v",
			ErrMixedContent, s.kind, item.Kind())
	}
	if cm, carries := item.components(); carries {
		if err = cm.Consistent(); err != nil {
			return err
		}
		switch {
		case !s.maps.IsSet() && cm.IsSet():
			if s.written > 0 {
				return fmt.Errorf("%w: earlier slots carried no component maps",
					ErrInconsistentComponents)
			}
			s.maps = cm
		case s.maps.IsSet() && !cm.IsSet():
			return fmt.Errorf("%w: slot carries no component maps", ErrInconsistentComponents)
		case s.maps.IsSet() && cm.IsSet():
			if !s.maps.Equal(cm) {
				return fmt.Errorf("%w: slot maps differ from storage maps",
					ErrInconsistentComponents)
			}
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.content[lin].IsEmpty() {
		s.written++
	}
	s.content[lin] = item
	s.asMatrix = nil
	// The completing write finalizes the trivial whole-range slice. Counting
	// populated slots keeps this independent of the caller's write order,
	// which remains a single-writer contract.
	if s.written == len(s.content) {
		aes.prepareTrivialSliceLocked()
	}
	return nil
}

// At returns the stored value at the given index, without copying.
func (aes *AffineExpansionStorage) At(index ...int) (Value, error) {
	lin, err := aes.state.linear(index)
	if err != nil {
		return Value{}, err
	}
	return aes.state.content[lin], nil
}

// Iterate yields all slots in row-major index order. The sequence is finite
// and restartable: every range starts again at the first index.
func (aes *AffineExpansionStorage) Iterate() iter.Seq[Value] {
	return func(yield func(Value) bool) {
		for _, item := range aes.state.content {
			if !yield(item) {
				return
			}
		}
	}
}

// prepareTrivialSliceLocked resets the slice cache and registers the
// whole-range slice of the current content as the storage itself. Callers
// hold s.mu.
func (aes *AffineExpansionStorage) prepareTrivialSliceLocked() {
	var (
		s = aes.state
	)
	s.slices = make(map[string]*AffineExpansionStorage)
	if len(s.content) == 0 {
		return
	}
	first := s.content[0]
	r, c := first.dims()
	switch first.Kind() {
	case MatrixKind:
		s.slices[canonicalKey([]Index{IndexRange(0, r), IndexRange(0, c)})] = aes
	case VectorKind, FunctionKind:
		s.slices[canonicalKey([]Index{IndexRange(0, r)})] = aes
	}
}

// Sliced returns a storage of identical shape whose every slot is restricted
// to the sub-range selected by key, memoized so that repeated identical keys
// return the identical instance. Only matrix, vector and function content can
// be sliced, and only once every slot has been written.
func (aes *AffineExpansionStorage) Sliced(key SliceKey) (*AffineExpansionStorage, error) {
	var (
		s = aes.state
	)
	if len(s.content) == 0 {
		return nil, fmt.Errorf("%w: cannot slice an empty storage", ErrEmptySlot)
	}
	if !s.kind.sliceable() {
		return nil, fmt.Errorf("%w: %v", ErrUnsliceableContent, s.kind)
	}
	first := s.content[0]
	if first.IsEmpty() {
		return nil, fmt.Errorf("%w: slicing before the storage is populated", ErrEmptySlot)
	}
	r, c := first.dims()
	var (
		resolved []Index
		wantDims int
	)
	if s.kind.class() == MatrixKind {
		wantDims = 2
	} else {
		wantDims = 1
	}
	if len(key.Bounds) != wantDims {
		return nil, fmt.Errorf("%w: %v content sliced with %d bounds",
			ErrInvalidShape, s.kind, len(key.Bounds))
	}
	dimLens := []int{r, c}
	for d, bound := range key.Bounds {
		I, err := bound.resolve(dimLens[d], s.maps)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, I)
	}
	canonical := canonicalKey(resolved)

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.slices[canonical]; ok {
		return cached, nil
	}
	var (
		output *AffineExpansionStorage
		err    error
	)
	if s.is2D {
		output, err = NewAffineExpansionStorage(s.rows, s.cols)
	} else {
		output, err = NewAffineExpansionStorage(s.rows)
	}
	if err != nil {
		return nil, err
	}
	for lin, item := range s.content {
		if item.IsEmpty() {
			return nil, fmt.Errorf("%w: slot %d", ErrEmptySlot, lin)
		}
		var sliced Value
		switch item.Kind() {
		case MatrixKind:
			m, _ := item.Matrix()
			sub := m.Subset(resolved[0], resolved[1])
			sub.Components = s.maps
			sliced = MatrixValue(sub)
		case VectorKind, FunctionKind:
			v, _ := item.Vector()
			sub := v.Subset(resolved[0])
			sub.Components = s.maps
			if item.Kind() == FunctionKind {
				sliced = FunctionValue(NewFunction(sub))
			} else {
				sliced = VectorValue(sub)
			}
		default:
			return nil, fmt.Errorf("%w: %v", ErrUnsliceableContent, item.Kind())
		}
		if err = output.Set(sliced, s.indices(lin)...); err != nil {
			return nil, err
		}
	}
	s.slices[canonical] = output
	return output, nil
}

// indices inverts the linear slot position into storage indices.
func (s *expansionState) indices(lin int) []int {
	if s.is2D {
		return []int{lin / s.cols, lin % s.cols}
	}
	return []int{lin}
}

// AsMatrix lazily builds and caches one contiguous matrix stacking all slots:
// vector slots become the columns of an n x Q matrix, matrix slots are
// stacked as a block row (1-D) or a Q1 x Q2 block matrix (2-D), and scalar
// slots form a 1 x Q row (1-D) or a Q1 x Q2 dense matrix (2-D). The cache is
// invalidated on every Set.
func (aes *AffineExpansionStorage) AsMatrix() (Matrix, error) {
	var (
		s = aes.state
	)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.asMatrix != nil {
		return *s.asMatrix, nil
	}
	built, err := s.buildAsMatrix()
	if err != nil {
		return Matrix{}, err
	}
	s.asMatrix = &built
	return built, nil
}

func (s *expansionState) buildAsMatrix() (Matrix, error) {
	if len(s.content) == 0 {
		return Matrix{}, fmt.Errorf("%w: cannot stack an empty storage", ErrEmptySlot)
	}
	for lin, item := range s.content {
		if item.IsEmpty() {
			return Matrix{}, fmt.Errorf("%w: slot %d", ErrEmptySlot, lin)
		}
		r0, c0 := s.content[0].dims()
		r, c := item.dims()
		if r != r0 || c != c0 {
			return Matrix{}, fmt.Errorf("%w: slot %d is %dx%d, slot 0 is %dx%d",
				ErrInvalidShape, lin, r, c, r0, c0)
		}
	}
	switch s.kind.class() {
	case MatrixKind:
		m0, _ := s.content[0].Matrix()
		nr, nc := m0.Dims()
		if s.is2D {
			R := NewMatrix(s.rows*nr, s.cols*nc)
			for lin, item := range s.content {
				m, _ := item.Matrix()
				q1, q2 := lin/s.cols, lin%s.cols
				for i := 0; i < nr; i++ {
					for j := 0; j < nc; j++ {
						R.M.Set(q1*nr+i, q2*nc+j, m.At(i, j))
					}
				}
			}
			return R, nil
		}
		R := NewMatrix(nr, len(s.content)*nc)
		for q, item := range s.content {
			m, _ := item.Matrix()
			for i := 0; i < nr; i++ {
				for j := 0; j < nc; j++ {
					R.M.Set(i, q*nc+j, m.At(i, j))
				}
			}
		}
		return R, nil
	case VectorKind:
		if s.is2D {
			return Matrix{}, fmt.Errorf("%w: vector content in a 2-D storage cannot stack",
				ErrInvalidShape)
		}
		v0, _ := s.content[0].Vector()
		n := v0.Len()
		R := NewMatrix(n, len(s.content))
		for q, item := range s.content {
			v, _ := item.Vector()
			for i := 0; i < n; i++ {
				R.M.Set(i, q, v.AtVec(i))
			}
		}
		return R, nil
	case ScalarKind:
		if s.is2D {
			R := NewMatrix(s.rows, s.cols)
			for lin, item := range s.content {
				val, _ := item.Scalar()
				R.M.Set(lin/s.cols, lin%s.cols, val)
			}
			return R, nil
		}
		R := NewMatrix(1, len(s.content))
		for q, item := range s.content {
			val, _ := item.Scalar()
			R.M.Set(0, q, val)
		}
		return R, nil
	}
	return Matrix{}, fmt.Errorf("%w: cannot stack %v content", ErrInvalidShape, s.kind)
}

const (
	contentFile      = "content.gob"
	indexToNameFile  = "basis_component_index_to_component_name.gob"
	nameToIndexFile  = "component_name_to_basis_component_index.gob"
	nameToLengthFile = "component_name_to_basis_component_length.gob"
	descriptorFile   = "descriptor.gob"
)

type contentWire struct {
	Rows, Cols int
	TwoD       bool
	Content    []Value
}

type descriptorWire struct {
	Kind       uint8
	Rows, Cols int
}

func encodeFile(dir, name string, v interface{}) error {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(v)
}

func decodeFile(dir, name string, v interface{}) error {
	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewDecoder(f).Decode(v)
}

// Save persists the content, the three component maps and a (kind, size)
// descriptor under directory/filename/, one gob file each. Views cannot be
// saved.
func (aes *AffineExpansionStorage) Save(directory, filename string) error {
	if aes.isView {
		return fmt.Errorf("%w: save", ErrViewNotWritable)
	}
	var (
		s    = aes.state
		full = filepath.Join(directory, filename)
	)
	if err := os.MkdirAll(full, 0755); err != nil {
		return err
	}
	if err := encodeFile(full, contentFile, contentWire{
		Rows: s.rows, Cols: s.cols, TwoD: s.is2D, Content: s.content,
	}); err != nil {
		return err
	}
	if err := encodeFile(full, indexToNameFile,
		struct{ M map[int]string }{s.maps.IndexToName}); err != nil {
		return err
	}
	if err := encodeFile(full, nameToIndexFile,
		struct{ M map[string]int }{s.maps.NameToIndex}); err != nil {
		return err
	}
	if err := encodeFile(full, nameToLengthFile,
		struct{ M map[string]int }{s.maps.NameToLength}); err != nil {
		return err
	}
	descriptor := descriptorWire{Kind: uint8(NoKind)}
	if len(s.content) > 0 {
		first := s.content[0]
		descriptor.Kind = uint8(first.Kind())
		descriptor.Rows, descriptor.Cols = first.dims()
	}
	return encodeFile(full, descriptorFile, descriptor)
}

// Load restores a storage persisted by Save into this instance, which must
// have the identical shape. Loading an already-populated storage is a no-op
// returning false. Missing files surface as fs.ErrNotExist errors.
func (aes *AffineExpansionStorage) Load(directory, filename string) (bool, error) {
	if aes.isView {
		return false, fmt.Errorf("%w: load", ErrViewNotWritable)
	}
	var (
		s = aes.state
	)
	for _, item := range s.content {
		if !item.IsEmpty() {
			return false, nil
		}
	}
	full := filepath.Join(directory, filename)
	var wire contentWire
	if err := decodeFile(full, contentFile, &wire); err != nil {
		return false, err
	}
	if wire.Rows != s.rows || wire.Cols != s.cols || wire.TwoD != s.is2D {
		return false, fmt.Errorf("%w: stored %dx%d does not match storage %dx%d",
			ErrInvalidShape, wire.Rows, wire.Cols, s.rows, s.cols)
	}
	var (
		indexToName  struct{ M map[int]string }
		nameToIndex  struct{ M map[string]int }
		nameToLength struct{ M map[string]int }
		descriptor   descriptorWire
	)
	if err := decodeFile(full, indexToNameFile, &indexToName); err != nil {
		return false, err
	}
	if err := decodeFile(full, nameToIndexFile, &nameToIndex); err != nil {
		return false, err
	}
	if err := decodeFile(full, nameToLengthFile, &nameToLength); err != nil {
		return false, err
	}
	if err := decodeFile(full, descriptorFile, &descriptor); err != nil {
		return false, err
	}
	s.maps = ComponentMaps{
		IndexToName:  indexToName.M,
		NameToIndex:  nameToIndex.M,
		NameToLength: nameToLength.M,
	}
	if err := s.maps.Consistent(); err != nil {
		return false, err
	}
	s.kind = Kind(descriptor.Kind)
	s.written = 0
	s.content = wire.Content
	for lin := range s.content {
		if s.content[lin].IsEmpty() {
			continue
		}
		s.written++
		s.content[lin] = s.content[lin].withComponents(s.maps)
		r, c := s.content[lin].dims()
		if s.content[lin].Kind().class() == s.kind.class() &&
			(r != descriptor.Rows || c != descriptor.Cols) {
			return false, fmt.Errorf("%w: slot %d is %dx%d, descriptor says %dx%d",
				ErrInvalidShape, lin, r, c, descriptor.Rows, descriptor.Cols)
		}
	}
	s.mu.Lock()
	s.asMatrix = nil
	aes.prepareTrivialSliceLocked()
	s.mu.Unlock()
	if s.kind.class() != NoKind && s.written == len(s.content) && len(s.content) > 0 {
		// Warm the stacked representation the way the offline stage left it.
		if _, err := aes.AsMatrix(); err != nil {
			return false, err
		}
	}
	return true, nil
}
