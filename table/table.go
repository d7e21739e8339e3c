// Package table holds the count tables of the sampler: how many
// occurrences are assigned to each topic, globally, per document and
// per word.
package table

import (
	"errors"
	"iter"
)

// ErrNegativeCount is the panic value of a decrement below zero. It
// always means the caller's bookkeeping is broken.
var ErrNegativeCount = errors.New("table: count would become negative")

// Table maps a topic id to a non-negative count. Absent ids count
// zero. Count may be called from concurrent readers; nothing else may.
type Table interface {
	// Inc adds delta to the count of id and returns the new count.
	Inc(id, delta int) int
	// Dec subtracts delta from the count of id and returns the new count.
	Dec(id, delta int) int
	Count(id int) int
	// All yields the nonzero entries in ascending id order. The table
	// must not be modified while iterating, and iteration is not safe
	// for concurrent readers: Hash sorts into scratch owned by the table,
	// so only one iteration may be in flight per table.
	All() iter.Seq2[int, int]
	// Len returns the number of nonzero entries.
	Len() int
	// Clear drops every entry and keeps the allocated storage.
	Clear()
}

// New creates an empty table of the given kind for ids in [0, size).
func New(kind Kind, size int) Table {
	switch kind {
	case KindSparse:
		return NewSparse()
	case KindHash:
		return NewHash()
	default:
		return NewDense(size)
	}
}

// Tables is a fixed number of tables of the same kind, one per
// document or per word.
type Tables struct {
	kind Kind
	cols int
	rows []Table
}

// NewTables creates rows empty tables for ids in [0, cols). Dense rows
// share a single row major buffer.
func NewTables(rows, cols int, kind Kind) *Tables {
	t := &Tables{
		kind: kind,
		cols: cols,
		rows: make([]Table, rows),
	}
	if kind == KindDense {
		buf := make([]int32, rows*cols)
		dense := make([]Dense, rows)
		for r := 0; r < rows; r += 1 {
			dense[r].counts = buf[r*cols : (r+1)*cols : (r+1)*cols]
			t.rows[r] = &dense[r]
		}
		return t
	}
	for r := 0; r < rows; r += 1 {
		t.rows[r] = New(kind, cols)
	}
	return t
}

// get the r-th table
func (t *Tables) Row(r int) Table {
	return t.rows[r]
}

// get the number of tables
func (t *Tables) Rows() int {
	return len(t.rows)
}

// get the id range of every table
func (t *Tables) Cols() int {
	return t.cols
}

// get the storage kind of the tables
func (t *Tables) Kind() Kind {
	return t.kind
}

// reset every table to zero counts
func (t *Tables) Clear() {
	for _, row := range t.rows {
		row.Clear()
	}
}

// Sum returns the total count of id over all tables.
func (t *Tables) Sum(id int) int {
	sum := 0
	for _, row := range t.rows {
		sum += row.Count(id)
	}
	return sum
}
