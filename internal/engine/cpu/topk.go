package cpu

// selectTopK writes the k highest-scoring positions of scores into idx
// and vals, highest first, where k = len(idx). Ties resolve to the lower
// index. A repeated max scan keeps this allocation-free; k is small in
// practice relative to the output width.
func selectTopK(scores []float32, idx []uint32, vals []float32) {
	for rank := range idx {
		best := -1
		for i, s := range scores {
			if taken(idx[:rank], uint32(i)) {
				continue
			}
			if best < 0 || s > scores[best] {
				best = i
			}
		}
		idx[rank] = uint32(best)
		vals[rank] = scores[best]
	}
}

func taken(chosen []uint32, i uint32) bool {
	for _, c := range chosen {
		if c == i {
			return true
		}
	}
	return false
}
