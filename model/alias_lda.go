package model

import (
	"fmt"
	"math/rand/v2"

	"github.com/bobonovski/fastlda/alias"
	"github.com/bobonovski/fastlda/config"
	"github.com/bobonovski/fastlda/corpus"
	"github.com/bobonovski/fastlda/table"
)

func init() {
	Register("aliaslda", NewAliasLDA)
}

// wordProposal is a batch of topics drawn in advance from a per word
// distribution, together with the weights they were drawn from.
type wordProposal struct {
	samples []int32
	weights []float64
	sum     float64
}

func (this *wordProposal) pop() int {
	k := this.samples[len(this.samples)-1]
	this.samples = this.samples[:len(this.samples)-1]
	return int(k)
}

// rebuild refills the batch with n draws from weights, which the
// caller has already written to this.weights
func (this *wordProposal) rebuild(b *alias.Builder, t *alias.Table, scratch []float64, n int, rng *rand.Rand) {
	this.sum = 0
	for _, w := range this.weights {
		this.sum += w
	}
	copy(scratch, this.weights)
	b.Build(t, scratch, this.sum)

	this.samples = this.samples[:0]
	for i := 0; i < n; i += 1 {
		this.samples = append(this.samples, int32(t.Sample(rng.Float64())))
	}
}

func checkAcceptance(rate float64, s, t int) {
	if rate < 0 {
		panic(fmt.Errorf("%w: %g moving from topic %d to %d", ErrNegativeAcceptance, rate, s, t))
	}
}

// AliasLDA proposes topics from a mixture of the exact document part
// of the conditional
//
//	p(k) = N_mk*(N_vk+beta)/(N_k+sum_beta)
//
// and a stale per word part
//
//	q(k) = alpha_k*(N_vk+beta)/(N_k+sum_beta)
//
// whose alias samples are reused until they run out, and corrects the
// staleness with metropolis hastings steps.
type AliasLDA struct {
	m      *Model
	rng    *rand.Rand
	mhStep int

	pPDF      []float64
	proposals []wordProposal
	builder   alias.Builder
	table     alias.Table
	scratch   []float64
}

func NewAliasLDA(cfg *config.Config) Sampler {
	return &AliasLDA{mhStep: cfg.MHStep}
}

func (this *AliasLDA) Init(m *Model, rng *rand.Rand) error {
	this.m = m
	this.rng = rng
	this.pPDF = make([]float64, m.K)
	this.scratch = make([]float64, m.K)
	this.proposals = make([]wordProposal, m.V)
	return nil
}

func (this *AliasLDA) PostSampleCorpus(hyperChanged bool) {
	if !hyperChanged {
		return
	}
	for v := range this.proposals {
		this.proposals[v].samples = this.proposals[v].samples[:0]
	}
}

func (this *AliasLDA) prepareWordProposal(v int, wt table.Table) *wordProposal {
	m := this.m
	q := &this.proposals[v]
	if len(q.samples) >= this.mhStep {
		return q
	}
	if q.weights == nil {
		q.weights = make([]float64, m.K)
	}
	for k := 0; k < m.K; k += 1 {
		q.weights[k] = m.Alpha[k] * (float64(wt.Count(k)) + m.Beta) /
			(float64(m.TopicsCount.Count(k)) + m.BetaSum)
	}
	q.rebuild(&this.builder, &this.table, this.scratch, m.K*this.mhStep, this.rng)
	return q
}

func (this *AliasLDA) SampleDocument(words []corpus.Word, dt table.Table) {
	m := this.m
	for i := range words {
		v := int(words[i].V)
		s := int(words[i].K)
		wt := m.WordsTopicsCount.Row(v)

		if m.Mode == SampleMode {
			m.TopicsCount.Dec(s, 1)
			wt.Dec(s, 1)
		}
		dt.Dec(s, 1)

		// document part of the proposal
		pSum := 0.0
		for k, c := range dt.All() {
			this.pPDF[k] = float64(c) * (float64(wt.Count(k)) + m.Beta) /
				(float64(m.TopicsCount.Count(k)) + m.BetaSum)
			pSum += this.pPDF[k]
		}

		// word part of the proposal
		q := this.prepareWordProposal(v, wt)

		nms := float64(dt.Count(s))
		tempS := (float64(wt.Count(s)) + m.Beta) / (float64(m.TopicsCount.Count(s)) + m.BetaSum)
		for step := 0; step < this.mhStep; step += 1 {
			var t int
			sample := this.rng.Float64() * (pSum + q.sum)
			if sample < pSum {
				t = -1
				for k := range dt.All() {
					t = k
					sample -= this.pPDF[k]
					if sample <= 0 {
						break
					}
				}
			} else {
				t = q.pop()
			}
			if t == s {
				continue
			}

			nmt := float64(dt.Count(t))
			tempT := (float64(wt.Count(t)) + m.Beta) / (float64(m.TopicsCount.Count(t)) + m.BetaSum)
			// target ratio times reverse over forward proposal
			rate := (nmt + m.Alpha[t]) * tempT / ((nms + m.Alpha[s]) * tempS) *
				(nms*tempS + q.weights[s]) / (nmt*tempT + q.weights[t])
			checkAcceptance(rate, s, t)
			if this.rng.Float64() < rate {
				s = t
				nms = nmt
				tempS = tempT
			}
		}

		if m.Mode == SampleMode {
			m.TopicsCount.Inc(s, 1)
			wt.Inc(s, 1)
		}
		dt.Inc(s, 1)
		words[i].K = int32(s)
	}
}
