package corpus

import (
	"bytes"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocument(t *testing.T) {
	id, words := ParseDocument("3:2 1|0\t7:1", 5, false)
	assert.Equal(t, "5", id)
	assert.Equal(t, []int{3, 3, 1, 0, 7}, words)

	id, words = ParseDocument("doc-9 2:3", 1, true)
	assert.Equal(t, "doc-9", id)
	assert.Equal(t, []int{2, 2, 2}, words)
}

func TestParseDocumentSkipsBadTokens(t *testing.T) {
	_, words := ParseDocument("1 :3 x 2:y -4 5:0 6:1", 1, false)
	assert.Equal(t, []int{1, 6}, words)
}

func TestRead(t *testing.T) {
	data := strings.Join([]string{
		"a 0:2 3",
		"b",
		"c 1 1 2:1",
		"",
	}, "\n")
	c, err := Read(strings.NewReader(data), true)
	require.NoError(t, err)

	// document b has no word and is dropped
	require.Equal(t, 2, c.M())
	assert.Equal(t, 6, c.N())
	assert.Equal(t, 4, c.V)
	assert.Equal(t, Doc{ID: "a", Index: 0, N: 3}, c.Docs[0])
	assert.Equal(t, Doc{ID: "c", Index: 3, N: 3}, c.Docs[1])
	assert.Equal(t, []Word{{V: 1}, {V: 1}, {V: 2}}, c.DocWords(1))
	assert.Equal(t, 3.0, c.AvgDocLen())
}

func TestReadEmpty(t *testing.T) {
	_, err := Read(strings.NewReader("\n\nfoo\n"), false)
	assert.ErrorIs(t, err, ErrEmptyCorpus)
}

func TestLoadAndWrite(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "corpus.txt")
	require.NoError(t, os.WriteFile(fn, []byte("x 4:1 2:2\ny 0\n"), 0o644))

	c, err := Load(fn, true)
	require.NoError(t, err)
	assert.Equal(t, 2, c.M())
	assert.Equal(t, 5, c.V)

	var buf bytes.Buffer
	require.NoError(t, c.Write(&buf))
	assert.Equal(t, "x 4:1 2:2\ny 0:1\n", buf.String())

	again, err := Read(&buf, true)
	require.NoError(t, err)
	assert.Equal(t, c, again)

	_, err = Load(filepath.Join(t.TempDir(), "missing"), true)
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	c := New([][]int{{0, 1}, {}, {5}}, 3)
	assert.Equal(t, 2, c.M())
	assert.Equal(t, 6, c.V)
	assert.Equal(t, "2", c.Docs[1].ID)
}

func TestGenerate(t *testing.T) {
	opts := GenerateOptions{Docs: 50, V: 30, K: 3, DocLen: 20, Alpha: 0.5, Beta: 0.1}
	s, err := Generate(opts, rand.NewPCG(453, 0))
	require.NoError(t, err)

	c := s.Corpus
	assert.Equal(t, 50, c.M())
	assert.Equal(t, 30, c.V)
	assert.Len(t, s.Topics, c.N())
	assert.Len(t, s.Phi, 3)
	for _, phi := range s.Phi {
		sum := 0.0
		for _, p := range phi {
			sum += p
		}
		assert.InDelta(t, 1, sum, 1e-9)
	}
	for _, w := range c.Words {
		assert.True(t, w.V >= 0 && int(w.V) < c.V)
	}

	// the same seed yields the same corpus
	again, err := Generate(opts, rand.NewPCG(453, 0))
	require.NoError(t, err)
	assert.Equal(t, c.Words, again.Corpus.Words)

	_, err = Generate(GenerateOptions{Docs: 1, V: 1, K: 0, DocLen: 1, Alpha: 1, Beta: 1}, rand.NewPCG(1, 1))
	assert.Error(t, err)
}
