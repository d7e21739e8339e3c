package table

import "iter"

// Dense keeps one counter per id. Count and update are O(1), All is
// O(size).
type Dense struct {
	counts  []int32
	nonzero int
}

// NewDense creates a dense table for ids in [0, size).
func NewDense(size int) *Dense {
	return &Dense{counts: make([]int32, size)}
}

func (d *Dense) add(id, delta int) int {
	old := int(d.counts[id])
	c := old + delta
	if c < 0 {
		panic(ErrNegativeCount)
	}
	d.counts[id] = int32(c)
	if old == 0 && c != 0 {
		d.nonzero += 1
	} else if old != 0 && c == 0 {
		d.nonzero -= 1
	}
	return c
}

func (d *Dense) Inc(id, delta int) int {
	return d.add(id, delta)
}

func (d *Dense) Dec(id, delta int) int {
	return d.add(id, -delta)
}

func (d *Dense) Count(id int) int {
	return int(d.counts[id])
}

func (d *Dense) All() iter.Seq2[int, int] {
	return func(yield func(int, int) bool) {
		for id, c := range d.counts {
			if c == 0 {
				continue
			}
			if !yield(id, int(c)) {
				return
			}
		}
	}
}

func (d *Dense) Len() int {
	return d.nonzero
}

func (d *Dense) Clear() {
	clear(d.counts)
	d.nonzero = 0
}
