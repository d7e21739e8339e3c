package model

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobonovski/fastlda/config"
	"github.com/bobonovski/fastlda/corpus"
	"github.com/bobonovski/fastlda/table"
)

// stationarySnapshot is a frozen model with uneven topic priors and
// word topic counts, so that a biased acceptance ratio shows.
func stationarySnapshot() *Snapshot {
	return &Snapshot{
		RunID:       "stationary",
		M:           3,
		V:           3,
		K:           4,
		Alpha:       []float64{0.3, 0.6, 1.0, 0.2},
		Beta:        0.1,
		TopicsCount: []int{7, 5, 4, 8},
		WordsTopicsCount: []WordTopicCount{
			{V: 0, K: 0, Count: 5},
			{V: 0, K: 1, Count: 1},
			{V: 0, K: 3, Count: 2},
			{V: 1, K: 1, Count: 4},
			{V: 1, K: 2, Count: 3},
			{V: 2, K: 0, Count: 2},
			{V: 2, K: 2, Count: 1},
			{V: 2, K: 3, Count: 6},
		},
	}
}

// exactJoint returns p(z1=a, z2=b) of a two word document against the
// frozen model: T_v1(a) T_v2(b) alpha_a (alpha_b + [a==b]) normalized,
// with T_v(k) = (n_vk+beta)/(n_k+V*beta).
func exactJoint(s *Snapshot, v1, v2 int) [][]float64 {
	wordTopic := make([][]float64, s.V)
	for v := range wordTopic {
		wordTopic[v] = make([]float64, s.K)
	}
	for _, e := range s.WordsTopicsCount {
		wordTopic[e.V][e.K] = float64(e.Count)
	}
	betaSum := float64(s.V) * s.Beta
	word := func(v, k int) float64 {
		return (wordTopic[v][k] + s.Beta) / (float64(s.TopicsCount[k]) + betaSum)
	}

	joint := make([][]float64, s.K)
	sum := 0.0
	for a := 0; a < s.K; a += 1 {
		joint[a] = make([]float64, s.K)
		for b := 0; b < s.K; b += 1 {
			same := 0.0
			if a == b {
				same = 1
			}
			joint[a][b] = word(v1, a) * word(v2, b) * s.Alpha[a] * (s.Alpha[b] + same)
			sum += joint[a][b]
		}
	}
	for a := range joint {
		for b := range joint[a] {
			joint[a][b] /= sum
		}
	}
	return joint
}

// every sampler leaves the exact posterior of a document invariant:
// the empirical joint topic distribution of a two word document
// matches the closed form
func TestSamplersStationaryDistribution(t *testing.T) {
	if testing.Short() {
		t.Skip("long running")
	}
	const sweeps = 400000

	cases := map[string]func(cfg *config.Config){
		"lda":       func(cfg *config.Config) { cfg.Sampler = "lda" },
		"sparselda": func(cfg *config.Config) { cfg.Sampler = "sparselda" },
		"aliaslda":  func(cfg *config.Config) { cfg.Sampler = "aliaslda" },
		"lightlda":  func(cfg *config.Config) { cfg.Sampler = "lightlda" },
		"lightlda word proposal": func(cfg *config.Config) {
			cfg.Sampler = "lightlda"
			cfg.EnableDocProposal = false
		},
		"lightlda doc proposal": func(cfg *config.Config) {
			cfg.Sampler = "lightlda"
			cfg.EnableWordProposal = false
		},
	}

	s := stationarySnapshot()
	want := exactJoint(s, 0, 1)
	for name, setup := range cases {
		for _, storage := range []string{"dense", "hash"} {
			t.Run(name+"/"+storage, func(t *testing.T) {
				cfg := testConfig("lda", storage, s.K)
				setup(cfg)
				require.NoError(t, cfg.Validate())

				m, err := NewModelFromSnapshot(s, cfg.StorageKind())
				require.NoError(t, err)
				ctor, err := GetSampler(cfg.Sampler)
				require.NoError(t, err)
				sampler := ctor(cfg)
				require.NoError(t, sampler.Init(m, rand.New(rand.NewPCG(17, 29))))

				words := []corpus.Word{{V: 0, K: 0}, {V: 1, K: 0}}
				dt := table.New(cfg.StorageKind(), s.K)
				dt.Inc(0, 2)

				hits := make([][]int, s.K)
				for k := range hits {
					hits[k] = make([]int, s.K)
				}
				for i := 0; i < sweeps; i += 1 {
					sampler.SampleDocument(words, dt)
					hits[words[0].K][words[1].K] += 1
				}

				worst := 0.0
				for a := range hits {
					for b := range hits[a] {
						got := float64(hits[a][b]) / sweeps
						worst = math.Max(worst, math.Abs(got-want[a][b]))
					}
				}
				assert.Less(t, worst, 5e-3)

				// the document table follows the words, the model stays frozen
				doc := map[int]int{}
				for _, w := range words {
					doc[int(w.K)] += 1
				}
				assert.Equal(t, doc, counts(dt))
				assert.Equal(t, s, m.Snapshot())
			})
		}
	}
}
