package model

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/cheggaaa/pb/v3"
	log "github.com/golang/glog"

	"github.com/bobonovski/fastlda/config"
	"github.com/bobonovski/fastlda/corpus"
)

// Trainer runs a sampler over a corpus for the configured number of
// iterations, optimizing the hyperparameters after burn-in.
type Trainer struct {
	cfg       *config.Config
	model     *Model
	sampler   Sampler
	optimizer *Optimizer
	rng       *rand.Rand
	ready     bool
}

// NewTrainer validates cfg and creates the model and the sampler it
// names. Call Init or Train next.
func NewTrainer(c *corpus.Corpus, cfg *config.Config) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if c.M() == 0 {
		return nil, corpus.ErrEmptyCorpus
	}
	ctor, err := GetSampler(cfg.Sampler)
	if err != nil {
		return nil, err
	}
	return &Trainer{
		cfg:       cfg,
		model:     NewModel(c, cfg),
		sampler:   ctor(cfg),
		optimizer: NewOptimizer(cfg),
		rng:       rand.New(rand.NewPCG(cfg.Seed, cfg.Seed)),
	}, nil
}

// get the trained model
func (this *Trainer) Model() *Model {
	return this.model
}

// Init assigns fresh random topics, dropping any earlier counts, and
// prepares the sampler.
func (this *Trainer) Init() error {
	this.model.assignTopics(this.rng)
	if err := this.sampler.Init(this.model, this.rng); err != nil {
		return err
	}
	this.ready = true
	return nil
}

// whether hyperparameters are optimized in iteration iter
func (this *Trainer) optimizing(iter int) bool {
	return this.cfg.HPOpt && iter > this.cfg.BurninIteration &&
		iter%this.cfg.HPOptInterval == 0
}

// Iterate runs one corpus pass. Iterations are counted from 1.
func (this *Trainer) Iterate(iter int) error {
	if !this.ready {
		return errors.New("model: trainer is not initialized")
	}
	m := this.model
	optimize := this.optimizing(iter)
	if optimize {
		log.Infof("hyperparameters will be optimized in iteration %d", iter)
		this.optimizer.Reset(m)
	}

	var bar *pb.ProgressBar
	if this.cfg.Progress {
		bar = pb.StartNew(m.M)
	}
	for d := 0; d < m.M; d += 1 {
		dt := m.DocsTopicsCount.Row(d)
		this.sampler.SampleDocument(m.Corpus.DocWords(d), dt)
		if optimize {
			this.optimizer.CollectDocument(m, m.Corpus.Docs[d].N, dt)
		}
		if bar != nil {
			bar.Increment()
		}
	}
	if bar != nil {
		bar.Finish()
	}

	if optimize {
		if err := this.optimizer.Optimize(m); err != nil {
			return err
		}
	}
	this.sampler.PostSampleCorpus(optimize)
	return nil
}

// Train initializes the trainer if needed and runs every iteration,
// logging the log likelihood after burn-in on the configured interval.
// It stops early when ctx is done.
func (this *Trainer) Train(ctx context.Context) error {
	begin := time.Now()
	log.Infof("training %s with K=%d on %d documents", this.cfg.Sampler, this.cfg.K, this.model.M)
	if !this.ready {
		if err := this.Init(); err != nil {
			return err
		}
	}

	for iter := 1; iter <= this.cfg.TotalIteration; iter += 1 {
		if err := ctx.Err(); err != nil {
			return err
		}

		iterBegin := time.Now()
		log.V(1).Infof("iteration %d started", iter)
		if err := this.Iterate(iter); err != nil {
			return err
		}
		log.Infof("iteration %d ended, cost %v", iter, time.Since(iterBegin))

		interval := this.cfg.LogLikelihoodInterval
		if interval > 0 && iter > this.cfg.BurninIteration && iter%interval == 0 {
			llBegin := time.Now()
			ll := this.model.LogLikelihood(this.cfg.Workers)
			log.Infof("iter %5d, likelihood(total/word) %f/%f, cost %v",
				iter, ll, ll/float64(this.model.Corpus.N()), time.Since(llBegin))
		}
	}

	log.Infof("training completed, cost %v", time.Since(begin))
	return nil
}
