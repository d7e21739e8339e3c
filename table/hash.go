package table

import (
	"iter"
	"slices"
)

type slotState uint8

const (
	slotEmpty slotState = iota
	slotUsed
	slotDeleted
)

type slot struct {
	id    int32
	count int32
	state slotState
}

// primes used as hash capacities, each roughly twice the previous
var primes = []int{
	13, 23, 53, 97, 193, 389, 769, 1543, 3079, 6151, 12289, 24593,
	49157, 98317, 196613, 393241, 786433, 1572869, 3145739, 6291469,
	12582917, 25165843, 50331653, 100663319, 201326611, 402653189,
	805306457, 1610612741,
}

// nextPrime returns the smallest listed prime not less than n.
func nextPrime(n int) int {
	i, _ := slices.BinarySearch(primes, n)
	if i < len(primes) {
		return primes[i]
	}
	for p := n | 1; ; p += 2 {
		if isPrime(p) {
			return p
		}
	}
}

func isPrime(n int) bool {
	if n < 2 {
		return false
	}
	for d := 2; d*d <= n; d += 1 {
		if n%d == 0 {
			return false
		}
	}
	return true
}

// Hash is an open addressing table with linear probing. A slot freed
// by a decrement to zero becomes a tombstone so that probe chains
// running through it stay intact; tombstones are dropped on rehash.
type Hash struct {
	slots   []slot
	used    int
	deleted int
	// slot indices of All, kept to avoid allocating per iteration
	order []int32
}

func NewHash() *Hash {
	return &Hash{}
}

// find returns the slot holding id, or -1 together with the slot
// where id would be inserted.
func (h *Hash) find(id int) (int, int) {
	n := len(h.slots)
	if n == 0 {
		return -1, -1
	}
	insert := -1
	i := id % n
	for probes := 0; probes < n; probes += 1 {
		s := &h.slots[i]
		switch s.state {
		case slotEmpty:
			if insert < 0 {
				insert = i
			}
			return -1, insert
		case slotDeleted:
			if insert < 0 {
				insert = i
			}
		case slotUsed:
			if int(s.id) == id {
				return i, insert
			}
		}
		i += 1
		if i == n {
			i = 0
		}
	}
	return -1, insert
}

func (h *Hash) rehash(capacity int) {
	old := h.slots
	h.slots = make([]slot, capacity)
	h.deleted = 0
	for _, s := range old {
		if s.state != slotUsed {
			continue
		}
		i := int(s.id) % capacity
		for h.slots[i].state == slotUsed {
			i += 1
			if i == capacity {
				i = 0
			}
		}
		h.slots[i] = s
	}
}

func (h *Hash) add(id, delta int) int {
	at, insert := h.find(id)
	if at >= 0 {
		s := &h.slots[at]
		c := int(s.count) + delta
		switch {
		case c < 0:
			panic(ErrNegativeCount)
		case c == 0:
			s.state = slotDeleted
			s.count = 0
			h.used -= 1
			h.deleted += 1
		default:
			s.count = int32(c)
		}
		return c
	}

	if delta < 0 {
		panic(ErrNegativeCount)
	}
	if delta == 0 {
		return 0
	}
	if insert < 0 {
		h.rehash(nextPrime(max(2*h.used, 1)))
		_, insert = h.find(id)
	}
	if h.slots[insert].state == slotDeleted {
		h.deleted -= 1
	}
	h.slots[insert] = slot{id: int32(id), count: int32(delta), state: slotUsed}
	h.used += 1

	if float64(h.used+h.deleted)*1.5 > float64(len(h.slots)) {
		h.rehash(nextPrime(2 * h.used))
	}
	return delta
}

func (h *Hash) Inc(id, delta int) int {
	return h.add(id, delta)
}

func (h *Hash) Dec(id, delta int) int {
	return h.add(id, -delta)
}

func (h *Hash) Count(id int) int {
	if at, _ := h.find(id); at >= 0 {
		return int(h.slots[at].count)
	}
	return 0
}

// All sorts the occupied slots by id before yielding, so a nested
// All on the same table is not allowed.
func (h *Hash) All() iter.Seq2[int, int] {
	return func(yield func(int, int) bool) {
		h.order = h.order[:0]
		for i := range h.slots {
			if h.slots[i].state == slotUsed {
				h.order = append(h.order, int32(i))
			}
		}
		slices.SortFunc(h.order, func(a, b int32) int {
			return int(h.slots[a].id) - int(h.slots[b].id)
		})
		for _, i := range h.order {
			s := h.slots[i]
			if !yield(int(s.id), int(s.count)) {
				return
			}
		}
	}
}

func (h *Hash) Len() int {
	return h.used
}

// get the number of allocated slots
func (h *Hash) Capacity() int {
	return len(h.slots)
}

func (h *Hash) Clear() {
	clear(h.slots)
	h.used = 0
	h.deleted = 0
}
