// Package cli implements the fastlda command line.
package cli

import (
	"context"
	"flag"
	"fmt"

	log "github.com/golang/glog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bobonovski/fastlda/config"
	"github.com/bobonovski/fastlda/model"
	"github.com/bobonovski/fastlda/store"
)

// CLI holds the root command and the options shared by subcommands.
type CLI struct {
	version    string
	configPath string
	rootCmd    *cobra.Command
}

func New(version string) *CLI {
	c := &CLI{version: version}
	c.setupCommands()
	return c
}

func (c *CLI) setupCommands() {
	c.rootCmd = &cobra.Command{
		Use:           "fastlda",
		Short:         "Latent Dirichlet allocation with fast Gibbs samplers",
		Version:       c.version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	// glog registers -v, -logtostderr and friends on the go flag set
	c.rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	c.rootCmd.PersistentFlags().StringVar(&c.configPath, "config", "", "YAML config file")

	c.rootCmd.AddCommand(c.newTrainCommand())
	c.rootCmd.AddCommand(c.newInferCommand())
	c.rootCmd.AddCommand(c.newGenerateCommand())
}

// Run executes the command line and logs the error it fails with.
func (c *CLI) Run() error {
	err := c.rootCmd.Execute()
	if err != nil {
		log.Errorf("%v", err)
	}
	log.Flush()
	return err
}

// configFlags binds the config fields to flags named after their YAML
// keys. Defaults are taken from cfg.
func configFlags(cfg *config.Config) *pflag.FlagSet {
	fs := pflag.NewFlagSet("config", pflag.ContinueOnError)
	fs.StringVar(&cfg.Sampler, "sampler", cfg.Sampler, "sampler: "+fmt.Sprint(model.Samplers()))
	fs.StringVar(&cfg.Storage, "storage", cfg.Storage, "count table backend: dense, sparse or hash")
	fs.BoolVar(&cfg.DocWithID, "doc_with_id", cfg.DocWithID, "corpus lines start with a document id")
	fs.IntVar(&cfg.K, "k", cfg.K, "number of topics")
	fs.Float64Var(&cfg.Alpha, "alpha", cfg.Alpha, "document topic prior, 0 derives it from the corpus")
	fs.Float64Var(&cfg.Beta, "beta", cfg.Beta, "topic word prior")
	fs.BoolVar(&cfg.HPOpt, "hp_opt", cfg.HPOpt, "optimize alpha and beta")
	fs.IntVar(&cfg.HPOptInterval, "hp_opt_interval", cfg.HPOptInterval, "iterations between optimizations")
	fs.Float64Var(&cfg.HPOptAlphaShape, "hp_opt_alpha_shape", cfg.HPOptAlphaShape, "gamma prior shape of alpha")
	fs.Float64Var(&cfg.HPOptAlphaScale, "hp_opt_alpha_scale", cfg.HPOptAlphaScale, "gamma prior scale of alpha")
	fs.IntVar(&cfg.HPOptAlphaIteration, "hp_opt_alpha_iteration", cfg.HPOptAlphaIteration, "fixed point iterations for alpha")
	fs.IntVar(&cfg.HPOptBetaIteration, "hp_opt_beta_iteration", cfg.HPOptBetaIteration, "fixed point iterations for beta")
	fs.IntVar(&cfg.TotalIteration, "total_iteration", cfg.TotalIteration, "training iterations")
	fs.IntVar(&cfg.BurninIteration, "burnin_iteration", cfg.BurninIteration, "burn-in iterations")
	fs.IntVar(&cfg.LogLikelihoodInterval, "log_likelihood_interval", cfg.LogLikelihoodInterval, "iterations between likelihood reports, 0 disables")
	fs.IntVar(&cfg.MHStep, "mh_step", cfg.MHStep, "Metropolis-Hastings steps per occurrence")
	fs.BoolVar(&cfg.EnableWordProposal, "enable_word_proposal", cfg.EnableWordProposal, "lightlda word proposal")
	fs.BoolVar(&cfg.EnableDocProposal, "enable_doc_proposal", cfg.EnableDocProposal, "lightlda document proposal")
	fs.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "random seed")
	fs.BoolVar(&cfg.Progress, "progress", cfg.Progress, "show a progress bar per corpus pass")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "likelihood goroutines, 0 means GOMAXPROCS")
	fs.IntVar(&cfg.InferIteration, "infer_iteration", cfg.InferIteration, "inference iterations per document")
	return fs
}

// loadConfig reads the config file, or the defaults without one, and
// applies the config flags set on the command line.
func (c *CLI) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if c.configPath != "" {
		var err error
		if cfg, err = config.Load(c.configPath); err != nil {
			return nil, err
		}
	}

	overlay := configFlags(cfg)
	var err error
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if err == nil && overlay.Lookup(f.Name) != nil {
			err = overlay.Set(f.Name, f.Value.String())
		}
	})
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// storeFlags selects where models are saved and loaded.
type storeFlags struct {
	prefix string
	db     string
}

func (s *storeFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&s.prefix, "model", "", "prefix of the text model files")
	fs.StringVar(&s.db, "db", "", "SQLite model database")
}

func (s *storeFlags) open(ctx context.Context) ([]store.Store, error) {
	var stores []store.Store
	if s.prefix != "" {
		stores = append(stores, store.NewText(s.prefix))
	}
	if s.db != "" {
		db, err := store.OpenSQLite(ctx, s.db)
		if err != nil {
			return nil, err
		}
		stores = append(stores, db)
	}
	if len(stores) == 0 {
		return nil, fmt.Errorf("one of --model or --db is required")
	}
	return stores, nil
}

func closeAll(stores []store.Store) {
	for _, s := range stores {
		if err := s.Close(); err != nil {
			log.Warningf("closing store: %v", err)
		}
	}
}
