package coda

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
)

// The engine writes monitored draws in the CODA file layout: one index file
// mapping each parameter to a row range, plus one draw file per chain whose
// rows are "iteration value" pairs, parameters stacked in index order.

// span is one index entry: rows first..last (1-based, inclusive) of every
// chain file hold this parameter's draws.
type span struct {
	Name  string
	First int
	Last  int
}

func parseIndex(data string) ([]span, error) {
	lr := newLineReader(data)
	spans := []span{}

	for {
		f, ok := lr.Next()
		if !ok {
			break
		}
		if len(f) != 3 {
			return nil, errors.Errorf("Index line %d has %d fields, expected 3", lr.Line(), len(f))
		}

		name := f[0]
		first, err := strconv.Atoi(f[1])
		if err != nil {
			return nil, errors.Wrapf(err, "Index entry %s has a bad first row (line %d)", name, lr.Line())
		}
		last, err := strconv.Atoi(f[2])
		if err != nil {
			return nil, errors.Wrapf(err, "Index entry %s has a bad last row (line %d)", name, lr.Line())
		}
		if first < 1 || last < first {
			return nil, errors.Errorf("Index entry %s has bad range [%d, %d]", name, first, last)
		}

		spans = append(spans, span{Name: name, First: first, Last: last})
	}

	if len(spans) < 1 {
		return nil, errors.New("Index file holds no parameters")
	}

	niter := spans[0].Last - spans[0].First + 1
	for _, sp := range spans[1:] {
		if sp.Last-sp.First+1 != niter {
			return nil, errors.Errorf("Index entry %s spans %d rows, expected %d",
				sp.Name, sp.Last-sp.First+1, niter)
		}
	}

	return spans, nil
}

// parseChainFile reads one chain file against the index spans and returns a
// fully populated chain.
func parseChainFile(data string, spans []span) (*Chain, error) {
	lr := newLineReader(data)

	type row struct {
		iter int
		val  float64
	}

	rows := []row{}
	for {
		f, ok := lr.Next()
		if !ok {
			break
		}
		if len(f) != 2 {
			return nil, errors.Errorf("Draw line %d has %d fields, expected 2", lr.Line(), len(f))
		}

		iter, err := strconv.Atoi(f[0])
		if err != nil {
			return nil, errors.Wrapf(err, "Bad iteration number at line %d", lr.Line())
		}
		val, err := strconv.ParseFloat(f[1], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "Bad value at line %d", lr.Line())
		}
		rows = append(rows, row{iter, val})
	}

	niter := spans[0].Last - spans[0].First + 1
	for _, sp := range spans {
		if sp.Last > len(rows) {
			return nil, errors.Errorf("Chain file has %d rows but %s needs row %d",
				len(rows), sp.Name, sp.Last)
		}
	}

	start := rows[spans[0].First-1].iter
	thin := 1
	if niter > 1 {
		thin = rows[spans[0].First].iter - start
		if thin < 1 {
			return nil, errors.Errorf("Non-increasing iteration numbers (%d then %d)",
				start, rows[spans[0].First].iter)
		}
	}

	params := make([]string, len(spans))
	for j, sp := range spans {
		params[j] = sp.Name
	}

	ch, err := NewChain(params, start, thin)
	if err != nil {
		return nil, err
	}

	draw := make([]float64, len(spans))
	for i := 0; i < niter; i++ {
		expected := start + i*thin
		for j, sp := range spans {
			r := rows[sp.First-1+i]
			if r.iter != expected {
				return nil, errors.Errorf("Parameter %s row %d has iteration %d, expected %d",
					sp.Name, sp.First+i, r.iter, expected)
			}
			draw[j] = r.val
		}
		if err := ch.Append(draw); err != nil {
			return nil, err
		}
	}

	return ch, nil
}

// ReadCODA reads an index file and its per-chain draw files into a ChainSet
func ReadCODA(indexPath string, chainPaths []string) (*ChainSet, error) {
	if len(chainPaths) < 1 {
		return nil, errors.New("No chain files to read")
	}

	data, err := os.ReadFile(indexPath)
	if err != nil {
		return nil, errors.Wrapf(err, "Could not READ index from %s", indexPath)
	}

	spans, err := parseIndex(string(data))
	if err != nil {
		return nil, errors.Wrapf(err, "Could not PARSE index %s", indexPath)
	}

	chains := make([]*Chain, len(chainPaths))
	for i, path := range chainPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "Could not READ chain from %s", path)
		}

		ch, err := parseChainFile(string(data), spans)
		if err != nil {
			return nil, errors.Wrapf(err, "Could not PARSE chain %s", path)
		}
		chains[i] = ch
	}

	return NewChainSet(chains...)
}

// CODAFiles returns the index and chain file paths the engine writes for the
// given output stem
func CODAFiles(dir string, stem string, nchains int) (string, []string) {
	index := filepath.Join(dir, stem+"index.txt")
	chains := make([]string, nchains)
	for i := range chains {
		chains[i] = filepath.Join(dir, fmt.Sprintf("%schain%d.txt", stem, i+1))
	}
	return index, chains
}

// WriteCODA writes the set back out in the same layout (used after trimming)
func WriteCODA(dir string, stem string, set *ChainSet) error {
	if set == nil || len(set.Chains) < 1 {
		return errors.New("No chains to write")
	}

	niter := set.Chains[0].Len()
	for _, ch := range set.Chains {
		if ch.Len() != niter {
			return errors.Errorf("Cannot write ragged chains (%d vs %d draws)", ch.Len(), niter)
		}
	}
	if niter < 1 {
		return errors.New("Cannot write empty chains")
	}

	indexPath, chainPaths := CODAFiles(dir, stem, len(set.Chains))

	idx, err := os.Create(indexPath)
	if err != nil {
		return errors.Wrapf(err, "Could not CREATE index %s", indexPath)
	}
	defer idx.Close()

	params := set.Params()
	for j, name := range params {
		first := j*niter + 1
		last := (j + 1) * niter
		if _, err := fmt.Fprintf(idx, "%s %d %d\n", name, first, last); err != nil {
			return errors.Wrapf(err, "Could not WRITE index %s", indexPath)
		}
	}

	for i, ch := range set.Chains {
		if err := writeChainFile(chainPaths[i], ch); err != nil {
			return err
		}
	}

	return nil
}

func writeChainFile(path string, ch *Chain) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "Could not CREATE chain file %s", path)
	}
	defer f.Close()

	for j := range ch.Params {
		for i, draw := range ch.Draws {
			iter := ch.Start + i*ch.Thin
			line := strconv.Itoa(iter) + "  " + strconv.FormatFloat(draw[j], 'g', -1, 64) + "\n"
			if _, err := f.WriteString(line); err != nil {
				return errors.Wrapf(err, "Could not WRITE chain file %s", path)
			}
		}
	}

	return nil
}
