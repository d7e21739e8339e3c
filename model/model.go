package model

import (
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sync"

	"github.com/bobonovski/fastlda/config"
	"github.com/bobonovski/fastlda/corpus"
	"github.com/bobonovski/fastlda/matrix"
	"github.com/bobonovski/fastlda/table"
)

// Model holds the corpus, the topic count tables and the Dirichlet
// hyperparameters shared by all samplers.
type Model struct {
	// nil in inference mode
	Corpus *corpus.Corpus
	M      int
	V      int
	K      int
	Mode   Mode
	RunID  string

	// [k]-th element counts the occurrences assigned to topic k
	TopicsCount *table.Dense
	// [m][k]-th element counts the occurrences of document m
	// assigned to topic k, nil in inference mode
	DocsTopicsCount *table.Tables
	// [v][k]-th element counts the occurrences of word v assigned
	// to topic k
	WordsTopicsCount *table.Tables

	// document topic prior
	Alpha    []float64
	AlphaSum float64
	// topic word prior
	Beta    float64
	BetaSum float64
}

// NewModel creates a model over c with empty count tables. A zero
// alpha is replaced by the average document length divided by K.
func NewModel(c *corpus.Corpus, cfg *config.Config) *Model {
	m := &Model{
		Corpus:           c,
		M:                c.M(),
		V:                c.V,
		K:                cfg.K,
		Mode:             SampleMode,
		RunID:            newRunID(),
		TopicsCount:      table.NewDense(cfg.K),
		DocsTopicsCount:  table.NewTables(c.M(), cfg.K, cfg.StorageKind()),
		WordsTopicsCount: table.NewTables(c.V, cfg.K, cfg.StorageKind()),
		Alpha:            make([]float64, cfg.K),
	}

	alpha := cfg.Alpha
	if alpha == 0 {
		alpha = c.AvgDocLen() / float64(cfg.K)
	}
	for k := range m.Alpha {
		m.Alpha[k] = alpha
	}
	m.AlphaSum = alpha * float64(cfg.K)
	m.setBeta(cfg.Beta)
	return m
}

func (this *Model) setBeta(beta float64) {
	this.Beta = beta
	this.BetaSum = beta * float64(this.V)
}

func (this *Model) setAlpha(alpha []float64) {
	this.AlphaSum = 0
	for k, a := range alpha {
		this.Alpha[k] = a
		this.AlphaSum += a
	}
}

// assignTopics gives every occurrence a uniformly random topic and
// fills the count tables accordingly.
func (this *Model) assignTopics(rng *rand.Rand) {
	this.TopicsCount.Clear()
	this.DocsTopicsCount.Clear()
	this.WordsTopicsCount.Clear()
	for d := 0; d < this.M; d += 1 {
		dt := this.DocsTopicsCount.Row(d)
		words := this.Corpus.DocWords(d)
		for i := range words {
			k := rng.IntN(this.K)
			words[i].K = int32(k)
			this.TopicsCount.Inc(k, 1)
			dt.Inc(k, 1)
			this.WordsTopicsCount.Row(int(words[i].V)).Inc(k, 1)
		}
	}
}

// compute the posterior point estimation of document-topic mixture
// alpha (Dirichlet prior) + data -> theta
func (this *Model) Theta() *matrix.Dense {
	theta := matrix.NewDense(this.M, this.K)
	for d := 0; d < this.M; d += 1 {
		dt := this.DocsTopicsCount.Row(d)
		norm := float64(this.Corpus.Docs[d].N) + this.AlphaSum
		row := theta.Row(d)
		for k := 0; k < this.K; k += 1 {
			row[k] = (float64(dt.Count(k)) + this.Alpha[k]) / norm
		}
	}
	return theta
}

// compute the posterior point estimation of topic-word mixture
// beta (Dirichlet prior) + data -> phi
func (this *Model) Phi() *matrix.Dense {
	phi := matrix.NewDense(this.K, this.V)
	for v := 0; v < this.V; v += 1 {
		wt := this.WordsTopicsCount.Row(v)
		for k := 0; k < this.K; k += 1 {
			phi.Set(k, v, (float64(wt.Count(k))+this.Beta)/
				(float64(this.TopicsCount.Count(k))+this.BetaSum))
		}
	}
	return phi
}

// LogLikelihood returns the log likelihood of the corpus under the
// current point estimations of theta and phi. Documents are split
// across workers goroutines (GOMAXPROCS when not positive) and the
// per document sums are added in document order, so the result does
// not depend on scheduling.
func (this *Model) LogLikelihood(workers int) float64 {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = max(min(workers, this.M), 1)

	// denominators of phi, shared by all workers
	topicNorm := make([]float64, this.K)
	for k := range topicNorm {
		topicNorm[k] = float64(this.TopicsCount.Count(k)) + this.BetaSum
	}

	partial := make([]float64, this.M)
	var wg sync.WaitGroup
	chunk := (this.M + workers - 1) / workers
	for begin := 0; begin < this.M; begin += chunk {
		end := min(begin+chunk, this.M)
		wg.Add(1)
		go func(begin, end int) {
			defer wg.Done()
			for d := begin; d < end; d += 1 {
				partial[d] = this.docLogLikelihood(d, topicNorm)
			}
		}(begin, end)
	}
	wg.Wait()

	sum := 0.0
	for _, p := range partial {
		sum += p
	}
	return sum
}

// only Count is used here, it is safe for concurrent readers of every
// table kind
func (this *Model) docLogLikelihood(d int, topicNorm []float64) float64 {
	doc := this.Corpus.Docs[d]
	dt := this.DocsTopicsCount.Row(d)
	norm := float64(doc.N) + this.AlphaSum

	sum := 0.0
	for _, w := range this.Corpus.DocWords(d) {
		wt := this.WordsTopicsCount.Row(int(w.V))
		p := 0.0
		for k := 0; k < this.K; k += 1 {
			p += (float64(dt.Count(k)) + this.Alpha[k]) *
				(float64(wt.Count(k)) + this.Beta) / topicNorm[k]
		}
		sum += math.Log(p / norm)
	}
	return sum
}

// CheckInvariants verifies that the three count tables agree with
// each other and with the topic assignments of the corpus.
func (this *Model) CheckInvariants() error {
	total := 0
	for k := 0; k < this.K; k += 1 {
		total += this.TopicsCount.Count(k)
	}
	if total != this.Corpus.N() {
		return fmt.Errorf("topic counts sum to %d, corpus has %d occurrences",
			total, this.Corpus.N())
	}

	perTopic := make([]int, this.K)
	for d := 0; d < this.M; d += 1 {
		dt := this.DocsTopicsCount.Row(d)
		sum := 0
		for _, c := range dt.All() {
			sum += c
		}
		if n := this.Corpus.Docs[d].N; sum != n {
			return fmt.Errorf("document %d: topic counts sum to %d, length is %d", d, sum, n)
		}
		clear(perTopic)
		for _, w := range this.Corpus.DocWords(d) {
			perTopic[w.K] += 1
		}
		for k, c := range perTopic {
			if dt.Count(k) != c {
				return fmt.Errorf("document %d: topic %d counted %d, assigned %d",
					d, k, dt.Count(k), c)
			}
		}
	}

	for k := 0; k < this.K; k += 1 {
		sum := this.WordsTopicsCount.Sum(k)
		if sum != this.TopicsCount.Count(k) {
			return fmt.Errorf("topic %d: word counts sum to %d, topic count is %d",
				k, sum, this.TopicsCount.Count(k))
		}
	}
	return nil
}
