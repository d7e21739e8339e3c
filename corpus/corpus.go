package corpus

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	log "github.com/golang/glog"
)

var (
	ErrEmptyCorpus     = errors.New("corpus: no document loaded")
	ErrEmptyVocabulary = errors.New("corpus: no word loaded")
)

// Word is one occurrence of vocabulary item V, currently assigned to
// topic K.
type Word struct {
	V int32
	K int32
}

// Doc is a contiguous run of N occurrences starting at Index in
// Corpus.Words.
type Doc struct {
	ID    string
	Index int
	N     int
}

// Corpus stores the occurrences of all documents in one flat slice.
// Its shape never changes after loading, only the topic assignments.
type Corpus struct {
	Docs  []Doc
	Words []Word
	// vocabulary size, one more than the largest word id
	V int
}

// New builds a corpus from documents given as word id lists. Empty
// documents are dropped. If v is smaller than the largest word id
// plus one it is raised accordingly.
func New(docs [][]int, v int) *Corpus {
	c := &Corpus{V: v}
	for m, words := range docs {
		c.appendDoc(strconv.Itoa(m), words)
	}
	return c
}

func (c *Corpus) appendDoc(id string, words []int) {
	if len(words) == 0 {
		return
	}
	doc := Doc{ID: id, Index: len(c.Words), N: len(words)}
	for _, v := range words {
		c.Words = append(c.Words, Word{V: int32(v)})
		if v >= c.V {
			c.V = v + 1
		}
	}
	c.Docs = append(c.Docs, doc)
}

// get the number of documents
func (c *Corpus) M() int {
	return len(c.Docs)
}

// get the number of occurrences
func (c *Corpus) N() int {
	return len(c.Words)
}

// DocWords returns the occurrences of the m-th document. The slice
// shares storage with the corpus.
func (c *Corpus) DocWords(m int) []Word {
	d := c.Docs[m]
	return c.Words[d.Index : d.Index+d.N : d.Index+d.N]
}

// get the average document length
func (c *Corpus) AvgDocLen() float64 {
	if len(c.Docs) == 0 {
		return 0
	}
	return float64(len(c.Words)) / float64(len(c.Docs))
}

func isDelimiter(r rune) bool {
	return r == ' ' || r == '\t' || r == '|' || r == '\r'
}

// ParseDocument parses one corpus line of the form
// [docId] wordId[:count] wordId[:count] ...
// where tokens are separated by spaces, tabs or '|'. A bare word id
// counts once. Malformed tokens are skipped with a warning. When the
// line carries no document id, lineNo is used instead.
func ParseDocument(line string, lineNo int, withID bool) (string, []int) {
	tokens := strings.FieldsFunc(line, isDelimiter)
	id := strconv.Itoa(lineNo)
	if withID {
		if len(tokens) == 0 {
			return "", nil
		}
		id = tokens[0]
		tokens = tokens[1:]
	}

	var words []int
	for _, tok := range tokens {
		count := 1
		if sep := strings.LastIndexByte(tok, ':'); sep >= 0 {
			if sep == 0 {
				log.Warningf("line %d, word id is empty", lineNo)
				continue
			}
			n, err := strconv.Atoi(tok[sep+1:])
			if err != nil || n < 0 {
				log.Warningf("line %d, word count error %q", lineNo, tok[sep+1:])
				continue
			}
			count = n
			tok = tok[:sep]
		}
		v, err := strconv.Atoi(tok)
		if err != nil {
			log.Warningf("line %d, word id error %q", lineNo, tok)
			continue
		}
		if v < 0 || v > maxWordID {
			log.Warningf("line %d, word id %d out of range", lineNo, v)
			continue
		}
		for i := 0; i < count; i += 1 {
			words = append(words, v)
		}
	}
	return id, words
}

const maxWordID = 1<<31 - 2

// Load reads a corpus file, see ParseDocument for the line format.
func Load(fn string, withID bool) (*Corpus, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	log.Infof("loading corpus from %s", fn)
	c, err := Read(f, withID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	return c, nil
}

// Read reads a corpus from r. Lines without any valid word are
// dropped. An empty corpus or vocabulary is an error.
func Read(r io.Reader, withID bool) (*Corpus, error) {
	c := &Corpus{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 64*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo += 1
		id, words := ParseDocument(scanner.Text(), lineNo, withID)
		c.appendDoc(id, words)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if c.M() == 0 {
		return nil, ErrEmptyCorpus
	}
	if c.V == 0 {
		return nil, ErrEmptyVocabulary
	}
	log.Infof("loaded %d documents, %d unique words, %d occurrences", c.M(), c.V, c.N())
	return c, nil
}

// Write writes the corpus in the format read by Read with document
// ids, one word:count token per distinct word in order of first
// occurrence.
func (c *Corpus) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	counts := make(map[int32]int)
	var order []int32
	for m := range c.Docs {
		clear(counts)
		order = order[:0]
		for _, word := range c.DocWords(m) {
			if counts[word.V] == 0 {
				order = append(order, word.V)
			}
			counts[word.V] += 1
		}
		bw.WriteString(c.Docs[m].ID)
		for _, v := range order {
			fmt.Fprintf(bw, " %d:%d", v, counts[v])
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
