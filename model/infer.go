package model

import (
	"math/rand/v2"

	log "github.com/golang/glog"

	"github.com/bobonovski/fastlda/config"
	"github.com/bobonovski/fastlda/corpus"
	"github.com/bobonovski/fastlda/table"
)

// Inferer samples the topics of new documents against a trained
// model whose global and word tables stay unchanged.
type Inferer struct {
	model     *Model
	sampler   Sampler
	rng       *rand.Rand
	iteration int
	kind      table.Kind
}

// NewInferer rebuilds the model of s and prepares the sampler named
// by cfg in inference mode.
func NewInferer(s *Snapshot, cfg *config.Config) (*Inferer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ctor, err := GetSampler(cfg.Sampler)
	if err != nil {
		return nil, err
	}
	m, err := NewModelFromSnapshot(s, cfg.StorageKind())
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	sampler := ctor(cfg)
	if err := sampler.Init(m, rng); err != nil {
		return nil, err
	}
	return &Inferer{
		model:     m,
		sampler:   sampler,
		rng:       rng,
		iteration: cfg.InferIteration,
		kind:      cfg.StorageKind(),
	}, nil
}

// get the model inference runs against
func (this *Inferer) Model() *Model {
	return this.model
}

// Infer returns the topic counts of a document after the configured
// number of sampling iterations. Unknown word ids are dropped.
func (this *Inferer) Infer(wordIDs []int) (table.Table, error) {
	m := this.model
	words := make([]corpus.Word, 0, len(wordIDs))
	for _, v := range wordIDs {
		if v < 0 || v >= m.V {
			log.Warningf("dropped unknown word id %d", v)
			continue
		}
		words = append(words, corpus.Word{V: int32(v)})
	}
	if len(words) == 0 {
		return nil, ErrEmptyDocument
	}

	dt := table.New(this.kind, m.K)
	for i := range words {
		k := this.rng.IntN(m.K)
		words[i].K = int32(k)
		dt.Inc(k, 1)
	}
	for iter := 0; iter < this.iteration; iter += 1 {
		this.sampler.SampleDocument(words, dt)
	}
	return dt, nil
}

// MostProbableTopic returns the topic holding most occurrences of the
// document, the smallest such topic on ties.
func (this *Inferer) MostProbableTopic(wordIDs []int) (int, error) {
	dt, err := this.Infer(wordIDs)
	if err != nil {
		return -1, err
	}
	best, bestCount := -1, 0
	for k, c := range dt.All() {
		if c > bestCount {
			best, bestCount = k, c
		}
	}
	return best, nil
}

// Distribution returns the posterior topic mixture of the document,
// (N_k+alpha_k)/(N+sum_alpha).
func (this *Inferer) Distribution(wordIDs []int) ([]float64, error) {
	dt, err := this.Infer(wordIDs)
	if err != nil {
		return nil, err
	}
	m := this.model
	n := 0
	for _, c := range dt.All() {
		n += c
	}
	norm := float64(n) + m.AlphaSum
	dist := make([]float64, m.K)
	for k := range dist {
		dist[k] = (float64(dt.Count(k)) + m.Alpha[k]) / norm
	}
	return dist, nil
}
