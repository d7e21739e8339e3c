package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobonovski/fastlda/config"
	"github.com/bobonovski/fastlda/corpus"
)

func clusterConfig(sampler string) *config.Config {
	cfg := testConfig(sampler, "hash", 2)
	cfg.Alpha = 0.1
	cfg.Beta = 0.01
	cfg.MHStep = 4
	cfg.TotalIteration = 100
	cfg.BurninIteration = 10
	cfg.LogLikelihoodInterval = 25
	return cfg
}

// the topic most documents of a cluster are assigned to by theta,
// and how many documents agree with it
func clusterTopic(m *Model, begin, end int) (int, int) {
	theta := m.Theta()
	votes := make([]int, m.K)
	for d := begin; d < end; d += 1 {
		votes[theta.ArgMax(d)] += 1
	}
	best := 0
	for k := range votes {
		if votes[k] > votes[best] {
			best = k
		}
	}
	return best, votes[best]
}

// two clusters over disjoint vocabularies are separated by every
// sampler, and inference puts new documents into the right cluster
func TestTrainSeparatesClusters(t *testing.T) {
	const docs = 100
	for _, sampler := range samplerNames {
		t.Run(sampler, func(t *testing.T) {
			c := clusterCorpus(docs, 20)
			cfg := clusterConfig(sampler)
			tr, err := NewTrainer(c, cfg)
			require.NoError(t, err)
			require.NoError(t, tr.Train(context.Background()))

			m := tr.Model()
			require.NoError(t, m.CheckInvariants())
			ta, agreeA := clusterTopic(m, 0, docs/2)
			tb, agreeB := clusterTopic(m, docs/2, docs)
			assert.NotEqual(t, ta, tb)
			assert.GreaterOrEqual(t, agreeA+agreeB, docs*9/10)

			inf, err := NewInferer(m.Snapshot(), cfg)
			require.NoError(t, err)
			k, err := inf.MostProbableTopic([]int{0, 1, 2, 3, 4, 0, 1, 2, 3, 4})
			require.NoError(t, err)
			assert.Equal(t, ta, k)
			k, err = inf.MostProbableTopic([]int{5, 6, 7, 8, 9, 9, 8, 7, 6, 5})
			require.NoError(t, err)
			assert.Equal(t, tb, k)
		})
	}
}

func TestTrainIsReproducible(t *testing.T) {
	cfg := clusterConfig("lightlda")
	cfg.TotalIteration = 20

	run := func() []corpus.Word {
		c := clusterCorpus(20, 10)
		tr, err := NewTrainer(c, cfg)
		require.NoError(t, err)
		require.NoError(t, tr.Train(context.Background()))
		return c.Words
	}
	assert.Equal(t, run(), run())
}

func TestTrainStopsOnCancel(t *testing.T) {
	tr, err := NewTrainer(clusterCorpus(10, 5), clusterConfig("lda"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, tr.Train(ctx), context.Canceled)
}

func TestNewTrainerErrors(t *testing.T) {
	cfg := clusterConfig("lda")
	cfg.K = 1
	_, err := NewTrainer(clusterCorpus(4, 3), cfg)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	_, err = NewTrainer(&corpus.Corpus{V: 3}, clusterConfig("lda"))
	assert.ErrorIs(t, err, corpus.ErrEmptyCorpus)

	tr, err := NewTrainer(clusterCorpus(4, 3), clusterConfig("lda"))
	require.NoError(t, err)
	assert.Error(t, tr.Iterate(1))
}

func TestOptimizingSchedule(t *testing.T) {
	cfg := clusterConfig("lda")
	cfg.HPOpt = true
	cfg.BurninIteration = 10
	cfg.HPOptInterval = 5
	tr, err := NewTrainer(clusterCorpus(4, 3), cfg)
	require.NoError(t, err)

	assert.False(t, tr.optimizing(5))
	assert.False(t, tr.optimizing(10))
	assert.False(t, tr.optimizing(11))
	assert.True(t, tr.optimizing(15))

	cfg.HPOpt = false
	assert.False(t, tr.optimizing(15))
}

// a second Init draws fresh topics instead of adding to the counts
func TestInitTwice(t *testing.T) {
	for _, storage := range storageNames {
		t.Run(storage, func(t *testing.T) {
			c := corpus.New([][]int{{0, 1, 2, 3}, {1, 1, 2, 4}, {0, 3, 4, 4}}, 5)
			tr := newTrainer(t, c, testConfig("sparselda", storage, 3))
			require.NoError(t, tr.Init())

			m := tr.Model()
			require.NoError(t, m.CheckInvariants())
			total := 0
			for k := 0; k < m.K; k += 1 {
				total += m.TopicsCount.Count(k)
			}
			assert.Equal(t, 12, total)
			// the word tables hold exactly the topics of the second draw
			want := make([]map[int]int, m.V)
			for v := range want {
				want[v] = map[int]int{}
			}
			for _, w := range c.Words {
				want[w.V][int(w.K)] += 1
			}
			for v := 0; v < m.V; v += 1 {
				assert.Equal(t, want[v], counts(m.WordsTopicsCount.Row(v)), "word %d", v)
			}
			require.NoError(t, tr.Iterate(1))
			require.NoError(t, m.CheckInvariants())
		})
	}
}
