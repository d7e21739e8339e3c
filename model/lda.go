package model

import (
	"math/rand/v2"

	"github.com/bobonovski/fastlda/config"
	"github.com/bobonovski/fastlda/corpus"
	"github.com/bobonovski/fastlda/table"
)

func init() {
	Register("lda", NewLDA)
}

// LDA is the plain collapsed gibbs sampler, O(K) per occurrence.
type LDA struct {
	m   *Model
	rng *rand.Rand
	cdf []float64
}

// NewLDA creates a collapsed gibbs sampler
func NewLDA(cfg *config.Config) Sampler {
	return &LDA{}
}

func (this *LDA) Init(m *Model, rng *rand.Rand) error {
	this.m = m
	this.rng = rng
	this.cdf = make([]float64, m.K)
	return nil
}

func (this *LDA) SampleDocument(words []corpus.Word, dt table.Table) {
	m := this.m
	for i := range words {
		v := int(words[i].V)
		k := int(words[i].K)
		wt := m.WordsTopicsCount.Row(v)

		// remove the occurrence from the sufficient statistics
		if m.Mode == SampleMode {
			m.TopicsCount.Dec(k, 1)
			wt.Dec(k, 1)
		}
		dt.Dec(k, 1)

		// resample the topic
		sum := 0.0
		for kidx := 0; kidx < m.K; kidx += 1 {
			docPart := float64(dt.Count(kidx)) + m.Alpha[kidx]
			wordPart := (float64(wt.Count(kidx)) + m.Beta) /
				(float64(m.TopicsCount.Count(kidx)) + m.BetaSum)
			sum += docPart * wordPart
			this.cdf[kidx] = sum
		}
		k = sampleCDF(this.cdf, this.rng.Float64())

		if m.Mode == SampleMode {
			m.TopicsCount.Inc(k, 1)
			wt.Inc(k, 1)
		}
		dt.Inc(k, 1)
		words[i].K = int32(k)
	}
}

func (this *LDA) PostSampleCorpus(hyperChanged bool) {}
