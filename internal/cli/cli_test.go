package cli

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobonovski/fastlda/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	c := New("test")
	var out bytes.Buffer
	c.rootCmd.SetOut(&out)
	c.rootCmd.SetArgs(args)
	err := c.rootCmd.Execute()
	return out.String(), err
}

func TestLoadConfigOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lda.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sampler: sparselda\nk: 7\nbeta: 0.05\n"), 0o644))

	c := New("test")
	c.configPath = path
	cmd := c.newTrainCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--k", "4", "--hp_opt", "--seed", "9"}))

	cfg, err := c.loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, "sparselda", cfg.Sampler)
	assert.Equal(t, 4, cfg.K)
	assert.Equal(t, 0.05, cfg.Beta)
	assert.True(t, cfg.HPOpt)
	assert.Equal(t, uint64(9), cfg.Seed)
	assert.Equal(t, config.Default().TotalIteration, cfg.TotalIteration)
}

func TestLoadConfigInvalid(t *testing.T) {
	c := New("test")
	cmd := c.newTrainCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--sampler", "nope"}))
	_, err := c.loadConfig(cmd)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestTrainInfer(t *testing.T) {
	dir := t.TempDir()
	docs := filepath.Join(dir, "docs.txt")
	prefix := filepath.Join(dir, "model")
	db := filepath.Join(dir, "models.db")

	_, err := execute(t, "generate", "--docs", "60", "--vocab", "40", "--k", "3",
		"--doc_len", "30", "--beta", "0.5", "--output", docs)
	require.NoError(t, err)

	out, err := execute(t, "train", "--input_file", docs, "--doc_with_id",
		"--model", prefix, "--db", db, "--save_outputs",
		"--k", "3", "--total_iteration", "5", "--burnin_iteration", "0", "--log_likelihood_interval", "0")
	require.NoError(t, err)
	runID := strings.TrimSpace(out)
	assert.Len(t, runID, 26)
	for _, suffix := range []string{"-stat", "-alpha", "-beta", "-topic-count",
		"-word-topic-count", "-doc-topic-prob", "-topic-word-prob"} {
		assert.FileExists(t, prefix+suffix)
	}

	query := filepath.Join(dir, "query.txt")
	require.NoError(t, os.WriteFile(query, []byte("a 1 2 3:2\nb\nc 5 6\n"), 0o644))

	out, err = execute(t, "infer", "--db", db, "--run", runID, "--input_file", query, "--doc_with_id")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	// the empty document b is skipped
	require.Len(t, lines, 2)
	for i, id := range []string{"a", "c"} {
		fields := strings.Split(lines[i], "\t")
		require.Len(t, fields, 2)
		assert.Equal(t, id, fields[0])
		k, err := strconv.Atoi(fields[1])
		require.NoError(t, err)
		assert.True(t, k >= 0 && k < 3)
	}

	out, err = execute(t, "infer", "--model", prefix, "--input_file", query, "--doc_with_id", "--distribution")
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	probs := strings.Fields(strings.Split(lines[0], "\t")[1])
	require.Len(t, probs, 3)
	sum := 0.0
	for _, p := range probs {
		v, err := strconv.ParseFloat(p, 64)
		require.NoError(t, err)
		sum += v
	}
	assert.InDelta(t, 1, sum, 1e-4)
}

func TestCommandErrors(t *testing.T) {
	_, err := execute(t, "train", "--model", filepath.Join(t.TempDir(), "m"))
	assert.Error(t, err)

	_, err = execute(t, "train", "--input_file", "missing.txt")
	assert.ErrorContains(t, err, "--model or --db")

	_, err = execute(t, "infer", "--model", filepath.Join(t.TempDir(), "m"), "--input_file", "q.txt")
	assert.Error(t, err)
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

func executeTo(w io.Writer, args ...string) error {
	c := New("test")
	c.rootCmd.SetOut(w)
	c.rootCmd.SetArgs(args)
	return c.rootCmd.Execute()
}

func TestOutputErrors(t *testing.T) {
	dir := t.TempDir()
	err := executeTo(failingWriter{}, "generate", "--docs", "5", "--vocab", "10", "--k", "2")
	assert.ErrorContains(t, err, "disk full")

	docs := filepath.Join(dir, "docs.txt")
	prefix := filepath.Join(dir, "model")
	_, err = execute(t, "generate", "--docs", "20", "--vocab", "10", "--k", "2", "--beta", "0.5", "--output", docs)
	require.NoError(t, err)
	_, err = execute(t, "train", "--input_file", docs, "--doc_with_id", "--model", prefix,
		"--k", "2", "--total_iteration", "3", "--burnin_iteration", "0", "--log_likelihood_interval", "0")
	require.NoError(t, err)

	query := filepath.Join(dir, "query.txt")
	require.NoError(t, os.WriteFile(query, []byte("0 1 2\n"), 0o644))
	err = executeTo(failingWriter{}, "infer", "--model", prefix, "--input_file", query)
	assert.ErrorContains(t, err, "disk full")

	err = executeTo(failingWriter{}, "generate", "--output", filepath.Join(dir, "missing", "out.txt"))
	assert.Error(t, err)
}
