package cli

import (
	"errors"
	"fmt"
	"time"

	log "github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/bobonovski/fastlda/config"
	"github.com/bobonovski/fastlda/corpus"
	"github.com/bobonovski/fastlda/model"
	"github.com/bobonovski/fastlda/store"
)

func (c *CLI) newTrainCommand() *cobra.Command {
	var (
		input   string
		outputs bool
		stores  storeFlags
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a topic model on a corpus",
		Args:  cobra.NoArgs,
		Example: `  fastlda train --input_file docs.txt --model out/lda --k 50
  fastlda train --config lda.yaml --input_file docs.txt --db models.db --sampler sparselda`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			if input == "" {
				return errors.New("--input_file is required")
			}
			ctx := cmd.Context()
			targets, err := stores.open(ctx)
			if err != nil {
				return err
			}
			defer closeAll(targets)

			start := time.Now()
			data, err := corpus.Load(input, cfg.DocWithID)
			if err != nil {
				return err
			}
			log.Infof("loaded %d documents, %d words, vocabulary %d in %v",
				data.M(), data.N(), data.V, time.Since(start))

			trainer, err := model.NewTrainer(data, cfg)
			if err != nil {
				return err
			}
			if err := trainer.Train(ctx); err != nil {
				return err
			}

			m := trainer.Model()
			snap := m.Snapshot()
			for _, s := range targets {
				if err := s.Save(ctx, snap); err != nil {
					return err
				}
				if text, ok := s.(*store.Text); ok && outputs {
					if err := text.SaveOutputs(m.Theta(), m.Phi()); err != nil {
						return err
					}
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), snap.RunID)
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input_file", "", "training corpus")
	cmd.Flags().BoolVar(&outputs, "save_outputs", false, "also write theta and phi next to the text model")
	stores.register(cmd.Flags())
	cmd.Flags().AddFlagSet(configFlags(config.Default()))
	return cmd
}
