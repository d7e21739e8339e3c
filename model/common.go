package model

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/bobonovski/fastlda/config"
	"github.com/bobonovski/fastlda/corpus"
	"github.com/bobonovski/fastlda/table"
)

var (
	ErrPartialHistograms = errors.New("model: hyperparameter histograms are incomplete")
	ErrEmptyDocument     = errors.New("model: document has no known word")
	ErrInvalidSnapshot   = errors.New("model: invalid snapshot")
	// panic value of a metropolis hastings step seeing a negative
	// acceptance rate, which only broken counts can produce
	ErrNegativeAcceptance = errors.New("model: negative acceptance rate")
)

// Mode tells the samplers whether the global and word tables may be
// updated.
type Mode int

const (
	// SampleMode trains the model, every table is updated.
	SampleMode Mode = iota
	// InferMode samples new documents against a trained model, only
	// the document table is updated.
	InferMode
)

// the common interface new LDA samplers should follow
type Sampler interface {
	// called once before the first document is sampled
	Init(m *Model, rng *rand.Rand) error
	// resample the topic of every occurrence of a document whose
	// topic counts are dt
	SampleDocument(words []corpus.Word, dt table.Table)
	// called after every corpus pass, hyperChanged reports whether
	// alpha or beta were optimized in the pass
	PostSampleCorpus(hyperChanged bool)
}

type SamplerCtor func(cfg *config.Config) Sampler

var constructors = make(map[string]SamplerCtor)

// new LDA sampler should register itself using this function
func Register(name string, ctor SamplerCtor) {
	constructors[name] = ctor
}

func GetSampler(name string) (SamplerCtor, error) {
	if _, ok := constructors[name]; !ok {
		return nil, fmt.Errorf("sampler %s not registered", name)
	}
	return constructors[name], nil
}

// get the names of the registered samplers
func Samplers() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// sampleCDF returns the first index whose cumulative weight exceeds
// u times the total. Short distributions are scanned, longer ones
// binary searched.
func sampleCDF(cdf []float64, u float64) int {
	n := len(cdf)
	sample := u * cdf[n-1]
	if n < 128 {
		for i := 0; i < n; i += 1 {
			if cdf[i] > sample {
				return i
			}
		}
		return n - 1
	}
	i := sort.Search(n, func(i int) bool { return cdf[i] > sample })
	if i == n {
		return n - 1
	}
	return i
}
