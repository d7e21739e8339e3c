package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobonovski/fastlda/corpus"
)

func TestRegisteredSamplers(t *testing.T) {
	assert.Equal(t, []string{"aliaslda", "lda", "lightlda", "sparselda"}, Samplers())

	_, err := GetSampler("plsa")
	assert.Error(t, err)
}

func TestSampleCDF(t *testing.T) {
	cdf := []float64{0, 1, 1, 3}
	assert.Equal(t, 1, sampleCDF(cdf, 0))
	assert.Equal(t, 1, sampleCDF(cdf, 0.3))
	assert.Equal(t, 3, sampleCDF(cdf, 0.34))
	assert.Equal(t, 3, sampleCDF(cdf, 0.999999))

	// the binary search must agree with the scan
	long := make([]float64, 300)
	sum := 0.0
	for i := range long {
		if i%3 != 0 {
			sum += float64(i)
		}
		long[i] = sum
	}
	for _, u := range []float64{0, 0.001, 0.25, 0.5, 0.75, 0.999999} {
		k := sampleCDF(long, u)
		sample := u * long[len(long)-1]
		assert.Greater(t, long[k], sample)
		if k > 0 {
			assert.LessOrEqual(t, long[k-1], sample)
		}
		assert.NotZero(t, k%3, "zero weight index %d drawn", k)
	}
}

func TestNewModelDerivesAlpha(t *testing.T) {
	c := corpus.New([][]int{{0, 1, 2, 3}, {1, 2}}, 4)
	cfg := testConfig("lda", "dense", 3)
	cfg.Alpha = 0
	m := NewModel(c, cfg)

	assert.Equal(t, []float64{1, 1, 1}, m.Alpha)
	assert.Equal(t, 3.0, m.AlphaSum)
	assert.InDelta(t, 0.4, m.BetaSum, 1e-12)
	assert.NotEmpty(t, m.RunID)
}

// every sampler on every storage kind keeps the tables consistent
// after each pass, including passes optimizing the hyperparameters
func TestSamplersKeepInvariants(t *testing.T) {
	s := generated(t, corpus.GenerateOptions{Docs: 30, V: 25, K: 3, DocLen: 15, Alpha: 0.3, Beta: 0.1})
	for _, sampler := range samplerNames {
		for _, storage := range storageNames {
			t.Run(sampler+"/"+storage, func(t *testing.T) {
				c := corpus.New(docsOf(s.Corpus), s.Corpus.V)
				cfg := testConfig(sampler, storage, 3)
				cfg.HPOpt = true
				cfg.HPOptInterval = 3
				tr := newTrainer(t, c, cfg)
				require.NoError(t, tr.Model().CheckInvariants())

				for iter := 1; iter <= 12; iter += 1 {
					require.NoError(t, tr.Iterate(iter))
					require.NoError(t, tr.Model().CheckInvariants(), "iteration %d", iter)
				}
				m := tr.Model()
				for _, a := range m.Alpha {
					assert.Greater(t, a, 0.0)
				}
				assert.Greater(t, m.Beta, 0.0)
			})
		}
	}
}

// docsOf copies the word ids of c so that every subtest owns its
// topic assignments
func docsOf(c *corpus.Corpus) [][]int {
	docs := make([][]int, c.M())
	for d := range docs {
		for _, w := range c.DocWords(d) {
			docs[d] = append(docs[d], int(w.V))
		}
	}
	return docs
}

func TestLogLikelihoodImproves(t *testing.T) {
	s := generated(t, corpus.GenerateOptions{Docs: 200, V: 60, K: 4, DocLen: 40, Alpha: 0.1, Beta: 0.05})
	for _, sampler := range samplerNames {
		t.Run(sampler, func(t *testing.T) {
			c := corpus.New(docsOf(s.Corpus), s.Corpus.V)
			cfg := testConfig(sampler, "hash", 4)
			cfg.MHStep = 4
			tr := newTrainer(t, c, cfg)
			initial := tr.Model().LogLikelihood(0)

			var tail []float64
			for iter := 1; iter <= 60; iter += 1 {
				require.NoError(t, tr.Iterate(iter))
				if iter > 50 {
					tail = append(tail, tr.Model().LogLikelihood(0))
				}
			}
			mean := 0.0
			for _, ll := range tail {
				mean += ll / float64(len(tail))
			}
			assert.Greater(t, mean, initial)
		})
	}
}

func TestLogLikelihoodIsDeterministic(t *testing.T) {
	s := generated(t, corpus.GenerateOptions{Docs: 57, V: 20, K: 3, DocLen: 10, Alpha: 0.5, Beta: 0.1})
	tr := newTrainer(t, s.Corpus, testConfig("sparselda", "sparse", 3))
	require.NoError(t, tr.Iterate(1))

	m := tr.Model()
	single := m.LogLikelihood(1)
	assert.Less(t, single, 0.0)
	assert.False(t, math.IsNaN(single))
	for _, workers := range []int{2, 5, 64} {
		assert.Equal(t, single, m.LogLikelihood(workers))
	}
}

func TestThetaPhi(t *testing.T) {
	c := corpus.New([][]int{{0, 0, 1}, {2}}, 3)
	cfg := testConfig("lda", "dense", 2)
	cfg.Alpha = 0.5
	cfg.Beta = 0.1
	m := NewModel(c, cfg)
	assign(m, []int{0, 0, 1, 1})

	theta := m.Theta()
	r, k := theta.Shape()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, k)
	assert.InDelta(t, 2.5/4, theta.Get(0, 0), 1e-12)
	assert.InDelta(t, 1.5/4, theta.Get(0, 1), 1e-12)
	assert.InDelta(t, 1.5/2, theta.Get(1, 1), 1e-12)

	phi := m.Phi()
	k, v := phi.Shape()
	assert.Equal(t, 2, k)
	assert.Equal(t, 3, v)
	assert.InDelta(t, 2.1/2.3, phi.Get(0, 0), 1e-12)
	assert.InDelta(t, 1.1/2.3, phi.Get(1, 2), 1e-12)
	for k := 0; k < 2; k += 1 {
		sum := 0.0
		for _, p := range phi.Row(k) {
			sum += p
		}
		assert.InDelta(t, 1, sum, 1e-12)
	}
}

func TestCheckInvariantsDetectsDrift(t *testing.T) {
	c := corpus.New([][]int{{0, 1}, {1}}, 2)
	m := NewModel(c, testConfig("lda", "hash", 2))
	assign(m, []int{0, 1, 1})
	require.NoError(t, m.CheckInvariants())

	m.WordsTopicsCount.Row(0).Inc(1, 1)
	assert.Error(t, m.CheckInvariants())
}
