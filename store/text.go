package store

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	log "github.com/golang/glog"

	"github.com/bobonovski/fastlda/matrix"
	"github.com/bobonovski/fastlda/model"
)

// Text stores a model as a family of text files sharing a prefix:
//
//	<prefix>-stat               M=, V=, K= and RUN= lines
//	<prefix>-alpha              one alpha per line
//	<prefix>-beta               beta
//	<prefix>-topic-count        k<TAB>count
//	<prefix>-word-topic-count   v<TAB>k<TAB>count
//
// and optionally the dense outputs <prefix>-doc-topic-prob (theta)
// and <prefix>-topic-word-prob (phi) with space separated rows.
type Text struct {
	prefix string
}

func NewText(prefix string) *Text {
	return &Text{prefix: prefix}
}

func (t *Text) Close() error {
	return nil
}

// write calls fill with a buffered writer on file fn
func write(fn string, fill func(w *bufio.Writer)) error {
	out, err := os.OpenFile(fn, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(out)
	fill(w)
	if err := w.Flush(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func (t *Text) Save(ctx context.Context, s *model.Snapshot) error {
	log.Infof("saving model to %s-*", t.prefix)
	files := []struct {
		suffix string
		fill   func(w *bufio.Writer)
	}{
		{"-stat", func(w *bufio.Writer) {
			fmt.Fprintf(w, "M=%d\nV=%d\nK=%d\nRUN=%s\n", s.M, s.V, s.K, s.RunID)
		}},
		{"-alpha", func(w *bufio.Writer) {
			for _, a := range s.Alpha {
				fmt.Fprintln(w, formatFloat(a))
			}
		}},
		{"-beta", func(w *bufio.Writer) {
			fmt.Fprintln(w, formatFloat(s.Beta))
		}},
		{"-topic-count", func(w *bufio.Writer) {
			for k, c := range s.TopicsCount {
				if c > 0 {
					fmt.Fprintf(w, "%d\t%d\n", k, c)
				}
			}
		}},
		{"-word-topic-count", func(w *bufio.Writer) {
			for _, e := range s.WordsTopicsCount {
				fmt.Fprintf(w, "%d\t%d\t%d\n", e.V, e.K, e.Count)
			}
		}},
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := write(t.prefix+f.suffix, f.fill); err != nil {
			return err
		}
	}
	return nil
}

// SaveMatrix writes m to <prefix><suffix>, one space separated row
// per line.
func (t *Text) SaveMatrix(suffix string, m *matrix.Dense) error {
	r, _ := m.Shape()
	return write(t.prefix+suffix, func(w *bufio.Writer) {
		for ridx := 0; ridx < r; ridx += 1 {
			for cidx, val := range m.Row(ridx) {
				if cidx > 0 {
					w.WriteByte(' ')
				}
				w.WriteString(formatFloat(val))
			}
			w.WriteByte('\n')
		}
	})
}

// SaveOutputs writes theta and phi.
func (t *Text) SaveOutputs(theta, phi *matrix.Dense) error {
	if err := t.SaveMatrix("-doc-topic-prob", theta); err != nil {
		return err
	}
	return t.SaveMatrix("-topic-word-prob", phi)
}

// read calls parse on every non empty line of file fn
func read(fn string, parse func(lineNo int, fields []string) error) error {
	file, err := os.Open(fn)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrModelNotFound, fn)
		}
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo += 1
		txt := strings.TrimSpace(scanner.Text())
		if txt == "" {
			continue
		}
		if err := parse(lineNo, strings.Split(txt, "\t")); err != nil {
			return fmt.Errorf("%w: %s line %d: %v", ErrCorruptModel, fn, lineNo, err)
		}
	}
	return scanner.Err()
}

func atoi(fields []string) ([]int, error) {
	out := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// Load reads the model files. A non empty id must match the run id
// recorded in the stat file.
func (t *Text) Load(ctx context.Context, id string) (*model.Snapshot, error) {
	s := &model.Snapshot{}

	err := read(t.prefix+"-stat", func(_ int, fields []string) error {
		key, val, ok := strings.Cut(fields[0], "=")
		if !ok {
			return fmt.Errorf("bad stat %q", fields[0])
		}
		var err error
		switch key {
		case "M":
			s.M, err = strconv.Atoi(val)
		case "V":
			s.V, err = strconv.Atoi(val)
		case "K":
			s.K, err = strconv.Atoi(val)
		case "RUN":
			s.RunID = val
		default:
			log.Warningf("unknown stat %s", key)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if id != "" && id != s.RunID {
		return nil, fmt.Errorf("%w: run %s, %s holds run %s", ErrModelNotFound, id, t.prefix, s.RunID)
	}
	if s.K <= 0 || s.V <= 0 {
		return nil, fmt.Errorf("%w: bad shape V=%d K=%d", ErrCorruptModel, s.V, s.K)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	err = read(t.prefix+"-alpha", func(_ int, fields []string) error {
		a, err := strconv.ParseFloat(fields[0], 64)
		s.Alpha = append(s.Alpha, a)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = read(t.prefix+"-beta", func(lineNo int, fields []string) error {
		var err error
		s.Beta, err = strconv.ParseFloat(fields[0], 64)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.TopicsCount = make([]int, s.K)
	err = read(t.prefix+"-topic-count", func(_ int, fields []string) error {
		vals, err := atoi(fields)
		if err != nil {
			return err
		}
		if len(vals) != 2 || vals[0] < 0 || vals[0] >= s.K {
			return fmt.Errorf("bad topic count %v", fields)
		}
		s.TopicsCount[vals[0]] = vals[1]
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = read(t.prefix+"-word-topic-count", func(_ int, fields []string) error {
		vals, err := atoi(fields)
		if err != nil {
			return err
		}
		if len(vals) != 3 {
			return fmt.Errorf("bad word topic count %v", fields)
		}
		s.WordsTopicsCount = append(s.WordsTopicsCount,
			model.WordTopicCount{V: vals[0], K: vals[1], Count: vals[2]})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return checked(s)
}
