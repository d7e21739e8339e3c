package model

import (
	"crypto/rand"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/bobonovski/fastlda/table"
)

func newRunID() string {
	return ulid.MustNew(ulid.Now(), ulid.Monotonic(rand.Reader, 0)).String()
}

// WordTopicCount is one nonzero cell of the word topic table.
type WordTopicCount struct {
	V     int
	K     int
	Count int
}

// Snapshot is everything inference needs from a trained model.
type Snapshot struct {
	RunID string
	M     int
	V     int
	K     int
	Alpha []float64
	Beta  float64
	// [k]-th element counts the occurrences assigned to topic k
	TopicsCount []int
	// nonzero word topic counts ordered by word then topic
	WordsTopicsCount []WordTopicCount
}

// Snapshot copies the trained counts and hyperparameters.
func (this *Model) Snapshot() *Snapshot {
	s := &Snapshot{
		RunID:       this.RunID,
		M:           this.M,
		V:           this.V,
		K:           this.K,
		Alpha:       append([]float64(nil), this.Alpha...),
		Beta:        this.Beta,
		TopicsCount: make([]int, this.K),
	}
	for k := range s.TopicsCount {
		s.TopicsCount[k] = this.TopicsCount.Count(k)
	}
	for v := 0; v < this.V; v += 1 {
		for k, c := range this.WordsTopicsCount.Row(v).All() {
			s.WordsTopicsCount = append(s.WordsTopicsCount, WordTopicCount{V: v, K: k, Count: c})
		}
	}
	return s
}

// Validate checks the shape of the snapshot and that the word topic
// counts add up to the topic counts.
func (s *Snapshot) Validate() error {
	if s.K < 2 || s.V < 1 {
		return fmt.Errorf("%w: bad shape V=%d K=%d", ErrInvalidSnapshot, s.V, s.K)
	}
	if len(s.Alpha) != s.K || len(s.TopicsCount) != s.K {
		return fmt.Errorf("%w: %d alphas and %d topic counts for K=%d",
			ErrInvalidSnapshot, len(s.Alpha), len(s.TopicsCount), s.K)
	}
	for k, a := range s.Alpha {
		if !(a > 0) {
			return fmt.Errorf("%w: alpha[%d]=%g", ErrInvalidSnapshot, k, a)
		}
	}
	if !(s.Beta > 0) {
		return fmt.Errorf("%w: beta=%g", ErrInvalidSnapshot, s.Beta)
	}

	sums := make([]int, s.K)
	for _, e := range s.WordsTopicsCount {
		if e.V < 0 || e.V >= s.V || e.K < 0 || e.K >= s.K || e.Count <= 0 {
			return fmt.Errorf("%w: bad word topic count %+v", ErrInvalidSnapshot, e)
		}
		sums[e.K] += e.Count
	}
	for k, c := range s.TopicsCount {
		if sums[k] != c {
			return fmt.Errorf("%w: topic %d counted %d, word counts sum to %d",
				ErrInvalidSnapshot, k, c, sums[k])
		}
	}
	return nil
}

// NewModelFromSnapshot rebuilds the global and word tables of a
// trained model for inference. The returned model has no corpus and
// no document tables.
func NewModelFromSnapshot(s *Snapshot, kind table.Kind) (*Model, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	m := &Model{
		M:                s.M,
		V:                s.V,
		K:                s.K,
		Mode:             InferMode,
		RunID:            s.RunID,
		TopicsCount:      table.NewDense(s.K),
		WordsTopicsCount: table.NewTables(s.V, s.K, kind),
		Alpha:            make([]float64, s.K),
	}
	m.setAlpha(s.Alpha)
	m.setBeta(s.Beta)
	for k, c := range s.TopicsCount {
		m.TopicsCount.Inc(k, c)
	}
	for _, e := range s.WordsTopicsCount {
		m.WordsTopicsCount.Row(e.V).Inc(e.K, e.Count)
	}
	return m, nil
}
