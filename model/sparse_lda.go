package model

import (
	"math/rand/v2"

	"github.com/bobonovski/fastlda/config"
	"github.com/bobonovski/fastlda/corpus"
	"github.com/bobonovski/fastlda/table"
)

func init() {
	Register("sparselda", NewSparseLDA)
}

// SparseLDA splits the gibbs conditional of an occurrence of word v
// in document m into three buckets
//
//	alpha_k*beta/(N_k+sum_beta)          smoothing, dense but stable
//	N_mk*beta/(N_k+sum_beta)             document, nonzero for topics of m
//	N_vk*(N_mk+alpha_k)/(N_k+sum_beta)   word, nonzero for topics of v
//
// and keeps the bucket sums up to date incrementally, so that a draw
// mostly walks the short document and word rows.
type SparseLDA struct {
	m   *Model
	rng *rand.Rand

	smoothPDF []float64
	docPDF    []float64
	// (N_mk+alpha_k)/(N_k+sum_beta) for the current document
	cache []float64

	smoothSum float64
	docSum    float64
	wordSum   float64
}

// NewSparseLDA creates a sparse lda instance with time
// and memory efficient gibbs sampler
func NewSparseLDA(cfg *config.Config) Sampler {
	return &SparseLDA{}
}

func (this *SparseLDA) Init(m *Model, rng *rand.Rand) error {
	this.m = m
	this.rng = rng
	this.smoothPDF = make([]float64, m.K)
	this.docPDF = make([]float64, m.K)
	this.cache = make([]float64, m.K)
	this.prepareSmoothBucket()
	return nil
}

func (this *SparseLDA) PostSampleCorpus(hyperChanged bool) {
	if hyperChanged {
		this.prepareSmoothBucket()
	}
}

func (this *SparseLDA) SampleDocument(words []corpus.Word, dt table.Table) {
	this.prepareDocBucket(dt)

	for i := range words {
		v := int(words[i].V)
		this.update(dt, v, int(words[i].K), -1)
		this.prepareWordBucket(v)
		k := this.sample(dt, v)
		this.update(dt, v, k, 1)
		words[i].K = int32(k)
	}

	// leave the cache clean for the next document
	m := this.m
	for k := range dt.All() {
		this.cache[k] = m.Alpha[k] / (float64(m.TopicsCount.Count(k)) + m.BetaSum)
	}
}

// update adds delta to the counts of topic k and refreshes the
// buckets depending on them
func (this *SparseLDA) update(dt table.Table, v, k, delta int) {
	m := this.m
	this.smoothSum -= this.smoothPDF[k]
	this.docSum -= this.docPDF[k]

	var topicCount, docCount int
	if m.Mode == SampleMode {
		topicCount = m.TopicsCount.Inc(k, delta)
		m.WordsTopicsCount.Row(v).Inc(k, delta)
	} else {
		topicCount = m.TopicsCount.Count(k)
	}
	docCount = dt.Inc(k, delta)

	denom := float64(topicCount) + m.BetaSum
	this.smoothPDF[k] = m.Alpha[k] * m.Beta / denom
	this.docPDF[k] = float64(docCount) * m.Beta / denom
	this.smoothSum += this.smoothPDF[k]
	this.docSum += this.docPDF[k]
	this.cache[k] = (float64(docCount) + m.Alpha[k]) / denom
}

func (this *SparseLDA) sample(dt table.Table, v int) int {
	m := this.m
	sample := this.rng.Float64() * (this.smoothSum + this.docSum + this.wordSum)

	// the last visited topic absorbs rounding errors
	k := -1
	if sample < this.wordSum {
		for id, c := range m.WordsTopicsCount.Row(v).All() {
			k = id
			sample -= float64(c) * this.cache[id]
			if sample <= 0 {
				break
			}
		}
		return k
	}

	sample -= this.wordSum
	if sample < this.docSum {
		for id := range dt.All() {
			k = id
			sample -= this.docPDF[id]
			if sample <= 0 {
				break
			}
		}
		return k
	}

	sample -= this.docSum
	for k = 0; k < m.K-1; k += 1 {
		sample -= this.smoothPDF[k]
		if sample <= 0 {
			break
		}
	}
	return k
}

func (this *SparseLDA) prepareSmoothBucket() {
	m := this.m
	this.smoothSum = 0
	for k := 0; k < m.K; k += 1 {
		tmp := m.Alpha[k] / (float64(m.TopicsCount.Count(k)) + m.BetaSum)
		this.smoothPDF[k] = tmp * m.Beta
		this.smoothSum += this.smoothPDF[k]
		this.cache[k] = tmp
	}
}

func (this *SparseLDA) prepareDocBucket(dt table.Table) {
	m := this.m
	this.docSum = 0
	clear(this.docPDF)
	for k, c := range dt.All() {
		denom := float64(m.TopicsCount.Count(k)) + m.BetaSum
		this.docPDF[k] = float64(c) * m.Beta / denom
		this.docSum += this.docPDF[k]
		this.cache[k] = (float64(c) + m.Alpha[k]) / denom
	}
}

func (this *SparseLDA) prepareWordBucket(v int) {
	this.wordSum = 0
	for k, c := range this.m.WordsTopicsCount.Row(v).All() {
		this.wordSum += float64(c) * this.cache[k]
	}
}
