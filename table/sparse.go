package table

import (
	"iter"
	"slices"
)

// Sparse keeps the nonzero counts in parallel slices sorted by id.
// Lookups are binary searches and updates shift the tail, which is
// cheap for the short rows of documents and rare words.
type Sparse struct {
	ids    []int32
	counts []int32
}

func NewSparse() *Sparse {
	return &Sparse{}
}

func (s *Sparse) add(id, delta int) int {
	i, found := slices.BinarySearch(s.ids, int32(id))
	if !found {
		if delta < 0 {
			panic(ErrNegativeCount)
		}
		if delta == 0 {
			return 0
		}
		s.ids = slices.Insert(s.ids, i, int32(id))
		s.counts = slices.Insert(s.counts, i, int32(delta))
		return delta
	}

	c := int(s.counts[i]) + delta
	switch {
	case c < 0:
		panic(ErrNegativeCount)
	case c == 0:
		s.ids = slices.Delete(s.ids, i, i+1)
		s.counts = slices.Delete(s.counts, i, i+1)
	default:
		s.counts[i] = int32(c)
	}
	return c
}

func (s *Sparse) Inc(id, delta int) int {
	return s.add(id, delta)
}

func (s *Sparse) Dec(id, delta int) int {
	return s.add(id, -delta)
}

func (s *Sparse) Count(id int) int {
	if i, found := slices.BinarySearch(s.ids, int32(id)); found {
		return int(s.counts[i])
	}
	return 0
}

func (s *Sparse) All() iter.Seq2[int, int] {
	return func(yield func(int, int) bool) {
		for i, id := range s.ids {
			if !yield(int(id), int(s.counts[i])) {
				return
			}
		}
	}
}

func (s *Sparse) Len() int {
	return len(s.ids)
}

func (s *Sparse) Clear() {
	s.ids = s.ids[:0]
	s.counts = s.counts[:0]
}
