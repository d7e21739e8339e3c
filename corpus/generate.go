package corpus

import (
	"errors"
	"math/rand/v2"
	"strconv"

	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"
)

// GenerateOptions describes a synthetic corpus drawn from the LDA
// generative process.
type GenerateOptions struct {
	Docs int
	V    int
	K    int
	// mean document length, lengths are Poisson distributed
	DocLen float64
	// symmetric Dirichlet priors of the document and topic mixtures
	Alpha float64
	Beta  float64
}

// Synthetic is a generated corpus together with the mixtures it was
// drawn from.
type Synthetic struct {
	Corpus *Corpus
	// Theta[m] is the topic mixture of document m
	Theta [][]float64
	// Phi[k] is the word distribution of topic k
	Phi [][]float64
	// Topics[i] is the topic that generated Corpus.Words[i]
	Topics []int
}

func symmetric(n int, x float64) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = x
	}
	return v
}

// Generate draws a corpus: phi_k ~ Dir(beta) per topic, then per
// document theta ~ Dir(alpha), a length ~ Poisson(DocLen) and for
// every occurrence a topic ~ theta and a word ~ phi_topic. Documents
// drawn empty are given one occurrence.
func Generate(opts GenerateOptions, src rand.Source) (*Synthetic, error) {
	if opts.Docs <= 0 || opts.V <= 0 || opts.K <= 0 {
		return nil, errors.New("corpus: docs, vocabulary and topics must be positive")
	}
	if opts.DocLen <= 0 || opts.Alpha <= 0 || opts.Beta <= 0 {
		return nil, errors.New("corpus: document length and priors must be positive")
	}

	s := &Synthetic{
		Corpus: &Corpus{V: opts.V},
		Theta:  make([][]float64, opts.Docs),
		Phi:    make([][]float64, opts.K),
	}

	topicPrior := distmv.NewDirichlet(symmetric(opts.V, opts.Beta), src)
	words := make([]distuv.Categorical, opts.K)
	for k := range s.Phi {
		s.Phi[k] = topicPrior.Rand(nil)
		words[k] = distuv.NewCategorical(s.Phi[k], src)
	}

	docPrior := distmv.NewDirichlet(symmetric(opts.K, opts.Alpha), src)
	length := distuv.Poisson{Lambda: opts.DocLen, Src: src}
	for m := range s.Theta {
		s.Theta[m] = docPrior.Rand(nil)
		topics := distuv.NewCategorical(s.Theta[m], src)

		n := max(int(length.Rand()), 1)
		doc := make([]int, n)
		for i := range doc {
			k := int(topics.Rand())
			doc[i] = int(words[k].Rand())
			s.Topics = append(s.Topics, k)
		}
		s.Corpus.appendDoc(strconv.Itoa(m), doc)
	}
	return s, nil
}
