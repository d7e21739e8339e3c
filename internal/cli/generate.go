package cli

import (
	"math/rand/v2"
	"os"

	log "github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/bobonovski/fastlda/corpus"
)

func (c *CLI) newGenerateCommand() *cobra.Command {
	var (
		output string
		seed   uint64
		opts   = corpus.GenerateOptions{Docs: 1000, V: 5000, K: 20, DocLen: 100, Alpha: 0.1, Beta: 0.01}
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic corpus drawn from the LDA generative process",
		Args:  cobra.NoArgs,
		Example: `  fastlda generate --docs 500 --k 10 --output synthetic.txt
  fastlda train --doc_with_id --input_file synthetic.txt --model out/syn --k 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			syn, err := corpus.Generate(opts, rand.NewPCG(seed, seed))
			if err != nil {
				return err
			}

			if output == "" {
				err = syn.Corpus.Write(cmd.OutOrStdout())
			} else {
				err = writeFile(output, syn.Corpus)
			}
			if err != nil {
				return err
			}
			log.Infof("generated %d documents with %d words", syn.Corpus.M(), syn.Corpus.N())
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "", "output file, stdout when empty")
	cmd.Flags().IntVar(&opts.Docs, "docs", opts.Docs, "number of documents")
	cmd.Flags().IntVar(&opts.V, "vocab", opts.V, "vocabulary size")
	cmd.Flags().IntVar(&opts.K, "k", opts.K, "number of topics")
	cmd.Flags().Float64Var(&opts.DocLen, "doc_len", opts.DocLen, "mean document length")
	cmd.Flags().Float64Var(&opts.Alpha, "alpha", opts.Alpha, "document topic prior")
	cmd.Flags().Float64Var(&opts.Beta, "beta", opts.Beta, "topic word prior")
	cmd.Flags().Uint64Var(&seed, "seed", 453, "random seed")
	return cmd
}

// writeFile writes c to file fn, reporting a failed close
func writeFile(fn string, c *corpus.Corpus) error {
	file, err := os.Create(fn)
	if err != nil {
		return err
	}
	if err := c.Write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
