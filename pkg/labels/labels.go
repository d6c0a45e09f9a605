// Package labels maps classifier label names to stable integer indices.
package labels

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
)

// Unknown is returned by Lookup for names not in the table.
const Unknown = -1

// Table is an immutable name → index mapping. It is safe for concurrent
// reads.
type Table struct {
	index map[string]int
	names map[int]string
}

// Load reads a class_indices.json file ({"name": index, ...}).
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open label table: %w", err)
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse decodes a label table from r.
func Parse(r io.Reader) (*Table, error) {
	var raw map[string]int
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode label table: %w", err)
	}
	return New(raw)
}

// New builds a table from a name → index map. Indices must be
// non-negative and unique.
func New(m map[string]int) (*Table, error) {
	t := &Table{
		index: make(map[string]int, len(m)),
		names: make(map[int]string, len(m)),
	}
	for name, idx := range m {
		if idx < 0 {
			return nil, fmt.Errorf("label %q: negative index %d", name, idx)
		}
		if other, ok := t.names[idx]; ok {
			return nil, fmt.Errorf("labels %q and %q share index %d", other, name, idx)
		}
		t.index[name] = idx
		t.names[idx] = name
	}
	return t, nil
}

// FromNames builds a table where each name's index is its position.
func FromNames(names ...string) *Table {
	m := make(map[string]int, len(names))
	for i, n := range names {
		m[n] = i
	}
	t, _ := New(m)
	return t
}

// Lookup returns the index for name, or Unknown. A nil table knows nothing.
func (t *Table) Lookup(name string) int {
	if t == nil {
		return Unknown
	}
	if idx, ok := t.index[name]; ok {
		return idx
	}
	return Unknown
}

// Name returns the label at idx.
func (t *Table) Name(idx int) (string, bool) {
	if t == nil {
		return "", false
	}
	n, ok := t.names[idx]
	return n, ok
}

// Len returns the number of labels.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.index)
}

// Names returns all labels ordered by index.
func (t *Table) Names() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.index))
	for n := range t.index {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return t.index[out[i]] < t.index[out[j]] })
	return out
}
