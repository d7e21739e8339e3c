package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	log "github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/bobonovski/fastlda/config"
	"github.com/bobonovski/fastlda/corpus"
	"github.com/bobonovski/fastlda/model"
)

func (c *CLI) newInferCommand() *cobra.Command {
	var (
		input        string
		run          string
		distribution bool
		stores       storeFlags
	)

	cmd := &cobra.Command{
		Use:   "infer",
		Short: "Infer the topics of new documents with a trained model",
		Args:  cobra.NoArgs,
		Example: `  fastlda infer --model out/lda --input_file new.txt
  fastlda infer --db models.db --run 01J0Z3... --input_file new.txt --distribution`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			if input == "" {
				return errors.New("--input_file is required")
			}
			ctx := cmd.Context()
			sources, err := stores.open(ctx)
			if err != nil {
				return err
			}
			defer closeAll(sources)

			snap, err := sources[0].Load(ctx, run)
			if err != nil {
				return err
			}
			inferer, err := model.NewInferer(snap, cfg)
			if err != nil {
				return err
			}
			log.Infof("loaded run %s: V=%d K=%d", snap.RunID, snap.V, snap.K)

			file, err := os.Open(input)
			if err != nil {
				return err
			}
			defer file.Close()

			w := bufio.NewWriter(cmd.OutOrStdout())
			scanner := bufio.NewScanner(file)
			scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
			lineNo := 0
			for scanner.Scan() {
				if err := ctx.Err(); err != nil {
					return err
				}
				lineNo += 1
				id, words := corpus.ParseDocument(scanner.Text(), lineNo, cfg.DocWithID)
				if err := writeInference(w, inferer, id, words, distribution); err != nil {
					if errors.Is(err, model.ErrEmptyDocument) {
						log.Warningf("document %s: %v", id, err)
						continue
					}
					return err
				}
			}
			if err := scanner.Err(); err != nil {
				return err
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&input, "input_file", "", "documents to infer")
	cmd.Flags().StringVar(&run, "run", "", "run id to load, latest when empty")
	cmd.Flags().BoolVar(&distribution, "distribution", false, "print the topic distribution instead of the most probable topic")
	stores.register(cmd.Flags())
	cmd.Flags().AddFlagSet(configFlags(config.Default()))
	return cmd
}

// writeInference prints "id<TAB>topic" or "id<TAB>p0 p1 ..." for one
// document
func writeInference(w *bufio.Writer, inferer *model.Inferer, id string, words []int, distribution bool) error {
	if !distribution {
		k, err := inferer.MostProbableTopic(words)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\t%d\n", id, k)
		return err
	}

	probs, err := inferer.Distribution(words)
	if err != nil {
		return err
	}
	fields := make([]string, len(probs))
	for k, p := range probs {
		fields[k] = strconv.FormatFloat(p, 'g', 6, 64)
	}
	_, err = fmt.Fprintf(w, "%s\t%s\n", id, strings.Join(fields, " "))
	return err
}
