// Package alias implements Vose's alias method: a table built in O(n)
// from a discrete distribution which is then sampled in O(1).
package alias

import "fmt"

type item struct {
	prob  float64
	index int32
}

// Table is a built alias table. Sampling is read only, so a built
// table can be shared by concurrent readers.
type Table struct {
	items []item
}

// Len returns the number of outcomes of the table.
func (t *Table) Len() int {
	return len(t.items)
}

// Sample draws an outcome with a single uniform u in [0, 1). The
// integer part of u*n selects the slot and the remainder decides
// between the slot and its alias.
func (t *Table) Sample(u float64) int {
	n := len(t.items)
	un := u * float64(n)
	i := int(un)
	if i >= n { // u*n may round up to n
		i = n - 1
	}
	if un-float64(i) < t.items[i].prob {
		return i
	}
	return int(t.items[i].index)
}

// Sample2 draws an outcome with two independent uniforms in [0, 1).
func (t *Table) Sample2(u1, u2 float64) int {
	n := len(t.items)
	i := int(u1 * float64(n))
	if i >= n {
		i = n - 1
	}
	if u2 < t.items[i].prob {
		return i
	}
	return int(t.items[i].index)
}

// Builder builds alias tables and keeps its work lists between
// builds, so rebuilding tables of the same size does not allocate.
type Builder struct {
	small []int32
	large []int32
}

// Build fills t from the weights in prob whose sum is sum. prob is
// used as scratch space and is overwritten.
func (b *Builder) Build(t *Table, prob []float64, sum float64) {
	n := len(prob)
	if n == 0 {
		panic("alias: empty distribution")
	}
	if !(sum > 0) {
		panic(fmt.Sprintf("alias: bad probability sum %g", sum))
	}
	if cap(t.items) < n {
		t.items = make([]item, n)
	}
	t.items = t.items[:n]
	if cap(b.small) < n {
		b.small = make([]int32, 0, n)
		b.large = make([]int32, 0, n)
	}
	small, large := b.small[:0], b.large[:0]

	scale := float64(n) / sum
	for i := range prob {
		prob[i] *= scale
		if prob[i] < 1 {
			small = append(small, int32(i))
		} else {
			large = append(large, int32(i))
		}
	}

	for len(small) > 0 && len(large) > 0 {
		l := small[len(small)-1]
		small = small[:len(small)-1]
		g := large[len(large)-1]
		large = large[:len(large)-1]

		t.items[l] = item{prob: prob[l], index: g}
		prob[g] += prob[l] - 1
		if prob[g] < 1 {
			small = append(small, g)
		} else {
			large = append(large, g)
		}
	}

	// leftovers are only off by rounding errors
	for _, g := range large {
		t.items[g] = item{prob: 1, index: g}
	}
	for _, l := range small {
		t.items[l] = item{prob: 1, index: l}
	}
}
