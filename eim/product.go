package eim

// product visits every tuple of the cartesian product of seqs in row-major
// order, first sequence outermost. This is the iteration order that keeps
// the offline operator expansion and the online theta expansion in lock-step.
// Zero sequences yield one empty tuple; any empty sequence yields nothing.
// The tuple slice is reused between visits.
func product[T any](seqs [][]T, visit func(tuple []T) error) error {
	for _, seq := range seqs {
		if len(seq) == 0 {
			return nil
		}
	}
	var (
		idx   = make([]int, len(seqs))
		tuple = make([]T, len(seqs))
	)
	for {
		for i := range seqs {
			tuple[i] = seqs[i][idx[i]]
		}
		if err := visit(tuple); err != nil {
			return err
		}
		k := len(seqs) - 1
		for ; k >= 0; k-- {
			idx[k]++
			if idx[k] < len(seqs[k]) {
				break
			}
			idx[k] = 0
		}
		if k < 0 {
			return nil
		}
	}
}
