// Package config holds the training and inference options.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bobonovski/fastlda/table"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config is the set of training and inference options. A YAML file
// overrides the defaults field by field.
type Config struct {
	// one of lda, sparselda, aliaslda, lightlda
	Sampler string `yaml:"sampler"`
	// backend of the document and word tables: dense, sparse or hash
	Storage string `yaml:"storage"`
	// whether every corpus line starts with a document id
	DocWithID bool `yaml:"doc_with_id"`

	K int `yaml:"k"`
	// document topic prior, 0 means average document length divided
	// by K
	Alpha float64 `yaml:"alpha"`
	Beta  float64 `yaml:"beta"`

	HPOpt               bool    `yaml:"hp_opt"`
	HPOptInterval       int     `yaml:"hp_opt_interval"`
	HPOptAlphaShape     float64 `yaml:"hp_opt_alpha_shape"`
	HPOptAlphaScale     float64 `yaml:"hp_opt_alpha_scale"`
	HPOptAlphaIteration int     `yaml:"hp_opt_alpha_iteration"`
	HPOptBetaIteration  int     `yaml:"hp_opt_beta_iteration"`

	TotalIteration        int `yaml:"total_iteration"`
	BurninIteration       int `yaml:"burnin_iteration"`
	LogLikelihoodInterval int `yaml:"log_likelihood_interval"`

	MHStep             int  `yaml:"mh_step"`
	EnableWordProposal bool `yaml:"enable_word_proposal"`
	EnableDocProposal  bool `yaml:"enable_doc_proposal"`

	Seed     uint64 `yaml:"seed"`
	Progress bool   `yaml:"progress"`
	// goroutines computing the log likelihood, 0 means GOMAXPROCS
	Workers int `yaml:"workers"`

	InferIteration int `yaml:"infer_iteration"`
}

// Default returns the default options.
func Default() *Config {
	return &Config{
		Sampler:               "lightlda",
		Storage:               "hash",
		K:                     10,
		Alpha:                 0.1,
		Beta:                  0.1,
		HPOptInterval:         5,
		HPOptAlphaScale:       100000,
		HPOptAlphaIteration:   2,
		HPOptBetaIteration:    200,
		TotalIteration:        200,
		BurninIteration:       10,
		LogLikelihoodInterval: 10,
		MHStep:                2,
		EnableWordProposal:    true,
		EnableDocProposal:     true,
		Seed:                  453,
		InferIteration:        20,
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var samplers = map[string]bool{
	"lda":       true,
	"sparselda": true,
	"aliaslda":  true,
	"lightlda":  true,
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate checks the option ranges. Zero iteration counts and a zero
// mh_step are replaced by their defaults first.
func (c *Config) Validate() error {
	if c.TotalIteration == 0 {
		c.TotalIteration = 200
	}
	if c.InferIteration == 0 {
		c.InferIteration = 20
	}
	if c.MHStep == 0 {
		c.MHStep = 8
	}

	if !samplers[c.Sampler] {
		return invalid("unknown sampler %q", c.Sampler)
	}
	if _, err := table.ParseKind(c.Storage); err != nil {
		return invalid("unknown storage %q", c.Storage)
	}
	switch {
	case c.K < 2:
		return invalid("k must be at least 2, got %d", c.K)
	case !(c.Alpha >= 0):
		return invalid("alpha must not be negative, got %g", c.Alpha)
	case !(c.Beta > 0):
		return invalid("beta must be positive, got %g", c.Beta)
	case c.HPOptInterval <= 0:
		return invalid("hp_opt_interval must be positive, got %d", c.HPOptInterval)
	case c.HPOptAlphaShape < 0:
		return invalid("hp_opt_alpha_shape must not be negative, got %g", c.HPOptAlphaShape)
	case c.HPOptAlphaScale <= 0:
		return invalid("hp_opt_alpha_scale must be positive, got %g", c.HPOptAlphaScale)
	case c.HPOptAlphaIteration < 0 || c.HPOptBetaIteration < 0:
		return invalid("hp_opt iterations must not be negative")
	case c.TotalIteration < 0 || c.BurninIteration < 0:
		return invalid("iterations must not be negative")
	case c.TotalIteration <= c.BurninIteration:
		return invalid("total_iteration %d must exceed burnin_iteration %d",
			c.TotalIteration, c.BurninIteration)
	case c.LogLikelihoodInterval < 0:
		return invalid("log_likelihood_interval must not be negative, got %d", c.LogLikelihoodInterval)
	case c.Workers < 0:
		return invalid("workers must not be negative, got %d", c.Workers)
	case c.InferIteration < 0:
		return invalid("infer_iteration must not be negative, got %d", c.InferIteration)
	}

	if c.MHStep < 0 {
		return invalid("mh_step must not be negative, got %d", c.MHStep)
	}
	if c.Sampler == "lightlda" && !c.EnableWordProposal && !c.EnableDocProposal {
		return invalid("lightlda needs the word or the doc proposal")
	}
	return nil
}

// StorageKind returns the parsed storage backend.
func (c *Config) StorageKind() table.Kind {
	kind, err := table.ParseKind(c.Storage)
	if err != nil {
		return table.KindHash
	}
	return kind
}
