package model

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bobonovski/fastlda/config"
	"github.com/bobonovski/fastlda/corpus"
	"github.com/bobonovski/fastlda/table"
)

var (
	samplerNames = []string{"lda", "sparselda", "aliaslda", "lightlda"}
	storageNames = []string{"dense", "sparse", "hash"}
)

func testConfig(sampler, storage string, k int) *config.Config {
	cfg := config.Default()
	cfg.Sampler = sampler
	cfg.Storage = storage
	cfg.K = k
	cfg.BurninIteration = 0
	cfg.LogLikelihoodInterval = 0
	return cfg
}

func generated(t *testing.T, opts corpus.GenerateOptions) *corpus.Synthetic {
	s, err := corpus.Generate(opts, rand.NewPCG(7, 11))
	require.NoError(t, err)
	return s
}

// clusterCorpus returns docs documents of length n, the first half
// drawn uniformly from words 0-4 and the second half from words 5-9.
func clusterCorpus(docs, n int) *corpus.Corpus {
	rng := rand.New(rand.NewPCG(1, 2))
	words := make([][]int, docs)
	for d := range words {
		offset := 0
		if d >= docs/2 {
			offset = 5
		}
		words[d] = make([]int, n)
		for i := range words[d] {
			words[d][i] = offset + rng.IntN(5)
		}
	}
	return corpus.New(words, 10)
}

// newTrainer returns an initialized trainer
func newTrainer(t *testing.T, c *corpus.Corpus, cfg *config.Config) *Trainer {
	tr, err := NewTrainer(c, cfg)
	require.NoError(t, err)
	require.NoError(t, tr.Init())
	return tr
}

// assign sets the topic of every occurrence and rebuilds the tables
func assign(m *Model, topics []int) {
	m.TopicsCount.Clear()
	m.DocsTopicsCount.Clear()
	m.WordsTopicsCount.Clear()
	for d := 0; d < m.M; d += 1 {
		dt := m.DocsTopicsCount.Row(d)
		doc := m.Corpus.Docs[d]
		words := m.Corpus.DocWords(d)
		for i := range words {
			k := topics[doc.Index+i]
			words[i].K = int32(k)
			m.TopicsCount.Inc(k, 1)
			dt.Inc(k, 1)
			m.WordsTopicsCount.Row(int(words[i].V)).Inc(k, 1)
		}
	}
}

func counts(t table.Table) map[int]int {
	out := make(map[int]int)
	for k, c := range t.All() {
		out[k] = c
	}
	return out
}
