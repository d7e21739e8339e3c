package model

import (
	"fmt"

	log "github.com/golang/glog"

	"github.com/bobonovski/fastlda/config"
	"github.com/bobonovski/fastlda/table"
)

// hyperparameters never drop below this value
const minHyper = 1e-10

// Optimizer re-estimates alpha and beta with Minka's fixed point
// iteration. The digamma differences Psi(n+a)-Psi(a) are accumulated
// incrementally over count histograms, so a round costs the largest
// count rather than the corpus size.
type Optimizer struct {
	alphaShape     float64
	alphaScale     float64
	alphaIteration int
	betaIteration  int

	collected int
	// docLenHist[n] counts documents of length n
	docLenHist []int
	// topicDocHist[k][n] counts documents with n occurrences of topic k
	topicDocHist [][]int

	prepared bool
	// wordTopicHist[n] counts (word, topic) cells holding n
	wordTopicHist []int
	// topicLenHist[n] counts topics holding n occurrences
	topicLenHist []int
}

func NewOptimizer(cfg *config.Config) *Optimizer {
	return &Optimizer{
		alphaShape:     cfg.HPOptAlphaShape,
		alphaScale:     cfg.HPOptAlphaScale,
		alphaIteration: cfg.HPOptAlphaIteration,
		betaIteration:  cfg.HPOptBetaIteration,
	}
}

func bump(hist []int, n int) []int {
	for len(hist) <= n {
		hist = append(hist, 0)
	}
	hist[n] += 1
	return hist
}

// Reset clears the histograms before a corpus pass.
func (this *Optimizer) Reset(m *Model) {
	this.collected = 0
	this.docLenHist = this.docLenHist[:0]
	if len(this.topicDocHist) != m.K {
		this.topicDocHist = make([][]int, m.K)
	}
	for k := range this.topicDocHist {
		this.topicDocHist[k] = this.topicDocHist[k][:0]
	}
	this.prepared = false
	this.wordTopicHist = this.wordTopicHist[:0]
	this.topicLenHist = this.topicLenHist[:0]
}

// CollectDocument adds a sampled document of length n with topic
// counts dt to the alpha histograms.
func (this *Optimizer) CollectDocument(m *Model, n int, dt table.Table) {
	this.collected += 1
	for k, c := range dt.All() {
		this.topicDocHist[k] = bump(this.topicDocHist[k], c)
	}
	if n > 0 {
		this.docLenHist = bump(this.docLenHist, n)
	}
}

// PrepareBeta builds the beta histograms from the word and topic
// tables.
func (this *Optimizer) PrepareBeta(m *Model) {
	this.wordTopicHist = this.wordTopicHist[:0]
	this.topicLenHist = this.topicLenHist[:0]
	for v := 0; v < m.V; v += 1 {
		for _, c := range m.WordsTopicsCount.Row(v).All() {
			this.wordTopicHist = bump(this.wordTopicHist, c)
		}
	}
	for k := 0; k < m.K; k += 1 {
		if c := m.TopicsCount.Count(k); c > 0 {
			this.topicLenHist = bump(this.topicLenHist, c)
		}
	}
	this.prepared = true
}

// sum over n of hist[n]*(Psi(n+a)-Psi(a))
func digammaSum(hist []int, a float64) float64 {
	sum := 0.0
	diff := 0.0
	for n := 1; n < len(hist); n += 1 {
		diff += 1 / (float64(n-1) + a)
		sum += float64(hist[n]) * diff
	}
	return sum
}

// OptimizeAlpha runs the configured number of fixed point rounds on
// alpha. Every document of the pass must have been collected.
func (this *Optimizer) OptimizeAlpha(m *Model) error {
	if this.collected != m.M {
		return fmt.Errorf("%w: %d of %d documents collected",
			ErrPartialHistograms, this.collected, m.M)
	}

	alpha := make([]float64, m.K)
	copy(alpha, m.Alpha)
	alphaSum := m.AlphaSum
	for i := 0; i < this.alphaIteration; i += 1 {
		denom := digammaSum(this.docLenHist, alphaSum) - 1/this.alphaScale
		if denom <= 0 {
			break
		}
		alphaSum = 0
		for k := range alpha {
			num := digammaSum(this.topicDocHist[k], alpha[k])
			alpha[k] = max((alpha[k]*num+this.alphaShape)/denom, minHyper)
			alphaSum += alpha[k]
		}
	}
	m.setAlpha(alpha)
	log.V(1).Infof("optimized alpha sum %g", m.AlphaSum)
	return nil
}

// OptimizeBeta runs the configured number of fixed point rounds on
// the symmetric beta. PrepareBeta must have been called first.
func (this *Optimizer) OptimizeBeta(m *Model) error {
	if !this.prepared {
		return fmt.Errorf("%w: beta histograms not prepared", ErrPartialHistograms)
	}

	beta := m.Beta
	betaSum := m.BetaSum
	for i := 0; i < this.betaIteration; i += 1 {
		num := digammaSum(this.wordTopicHist, beta)
		denom := digammaSum(this.topicLenHist, betaSum)
		if denom <= 0 {
			break
		}
		beta = max(beta*num/denom/float64(m.V), minHyper)
		betaSum = beta * float64(m.V)
	}
	m.setBeta(beta)
	log.V(1).Infof("optimized beta %g", m.Beta)
	return nil
}

// Optimize re-estimates alpha and then beta, skipping either when its
// iteration count is zero.
func (this *Optimizer) Optimize(m *Model) error {
	if this.alphaIteration > 0 {
		if err := this.OptimizeAlpha(m); err != nil {
			return err
		}
	}
	if this.betaIteration > 0 {
		this.PrepareBeta(m)
		if err := this.OptimizeBeta(m); err != nil {
			return err
		}
	}
	log.Infof("hyperparameters optimized, alpha sum %g, beta %g", m.AlphaSum, m.Beta)
	return nil
}
