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
	Register("lightlda", NewLightLDA)
}

// LightLDA alternates two cheap proposals, each followed by its own
// metropolis hastings test against the gibbs conditional
//
//	pi(k) = (N_mk+alpha_k)*(N_vk+beta)/(N_k+sum_beta)
//
// The word proposal draws from stale alias samples of
// (N_vk+beta)/(N_k+sum_beta). The doc proposal draws from
// N_mk+alpha_k, either through the alpha alias table or by picking a
// random occurrence of the document and taking its topic.
type LightLDA struct {
	m      *Model
	rng    *rand.Rand
	mhStep int

	enableWord bool
	enableDoc  bool

	proposals  []wordProposal
	alphaTable alias.Table
	wordTable  alias.Table
	builder    alias.Builder
	scratch    []float64
}

func NewLightLDA(cfg *config.Config) Sampler {
	return &LightLDA{
		mhStep:     cfg.MHStep,
		enableWord: cfg.EnableWordProposal,
		enableDoc:  cfg.EnableDocProposal,
	}
}

func (this *LightLDA) Init(m *Model, rng *rand.Rand) error {
	if !this.enableWord && !this.enableDoc {
		return fmt.Errorf("lightlda: both proposals are disabled")
	}
	this.m = m
	this.rng = rng
	this.scratch = make([]float64, m.K)
	this.proposals = make([]wordProposal, m.V)
	this.buildAlphaTable()
	return nil
}

func (this *LightLDA) buildAlphaTable() {
	copy(this.scratch, this.m.Alpha)
	this.builder.Build(&this.alphaTable, this.scratch, this.m.AlphaSum)
}

func (this *LightLDA) PostSampleCorpus(hyperChanged bool) {
	if !hyperChanged {
		return
	}
	this.buildAlphaTable()
	for v := range this.proposals {
		this.proposals[v].samples = this.proposals[v].samples[:0]
	}
}

func (this *LightLDA) sampleWithWord(v int, wt table.Table) (int, *wordProposal) {
	m := this.m
	q := &this.proposals[v]
	if len(q.samples) == 0 {
		if q.weights == nil {
			q.weights = make([]float64, m.K)
		}
		for k := 0; k < m.K; k += 1 {
			q.weights[k] = (float64(wt.Count(k)) + m.Beta) /
				(float64(m.TopicsCount.Count(k)) + m.BetaSum)
		}
		q.rebuild(&this.builder, &this.wordTable, this.scratch, m.K*this.mhStep, this.rng)
	}
	return q.pop(), q
}

// words[i].K must hold the current state of every occurrence
func (this *LightLDA) sampleWithDoc(words []corpus.Word) int {
	alphaSum := this.m.AlphaSum
	sample := this.rng.Float64() * (alphaSum + float64(len(words)))
	if sample < alphaSum {
		return this.alphaTable.Sample(sample / alphaSum)
	}
	i := int(sample - alphaSum)
	if i >= len(words) {
		i = len(words) - 1
	}
	return int(words[i].K)
}

func (this *LightLDA) SampleDocument(words []corpus.Word, dt table.Table) {
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

		ns := float64(m.TopicsCount.Count(s)) + m.BetaSum
		nvs := float64(wt.Count(s)) + m.Beta
		nms := float64(dt.Count(s)) + m.Alpha[s]
		accept := func(t int, rate float64) {
			checkAcceptance(rate, s, t)
			if this.rng.Float64() < rate {
				s = t
				words[i].K = int32(t)
				ns = float64(m.TopicsCount.Count(t)) + m.BetaSum
				nvs = float64(wt.Count(t)) + m.Beta
				nms = float64(dt.Count(t)) + m.Alpha[t]
			}
		}

		for step := 0; step < this.mhStep; step += 1 {
			if this.enableWord {
				t, q := this.sampleWithWord(v, wt)
				if t != s {
					nt := float64(m.TopicsCount.Count(t)) + m.BetaSum
					nvt := float64(wt.Count(t)) + m.Beta
					nmt := float64(dt.Count(t)) + m.Alpha[t]
					accept(t, nmt*nvt*ns/(nms*nvs*nt)*q.weights[s]/q.weights[t])
				}
			}
			if this.enableDoc {
				t := this.sampleWithDoc(words)
				if t != s {
					// the document terms of target and proposal cancel
					nt := float64(m.TopicsCount.Count(t)) + m.BetaSum
					nvt := float64(wt.Count(t)) + m.Beta
					accept(t, nvt*ns/(nvs*nt))
				}
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
