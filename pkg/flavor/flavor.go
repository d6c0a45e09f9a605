// Package flavor holds the per-label description texts read aloud when a
// label is presented.
package flavor

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Book maps normalized keys to their texts.
type Book struct {
	entries map[string][]string
}

// Load reads a flavor_text.json file ({"key": ["text", ...], ...}).
func Load(path string) (*Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open flavor text: %w", err)
	}
	defer f.Close()

	b, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// Parse decodes a flavor book from r. Keys are normalized on load.
func Parse(r io.Reader) (*Book, error) {
	var raw map[string][]string
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode flavor text: %w", err)
	}
	return New(raw), nil
}

// New builds a book from raw entries.
func New(raw map[string][]string) *Book {
	b := &Book{entries: make(map[string][]string, len(raw))}
	for k, texts := range raw {
		b.entries[Key(k)] = texts
	}
	return b
}

// Key normalizes a label: lowercase, keeping only a-z, 0-9 and '-'.
// "Mr. Mime" becomes "mrmime", "Farfetch'd" becomes "farfetchd".
func Key(label string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(label) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// Lookup returns the first non-empty text for label.
func (b *Book) Lookup(label string) (string, bool) {
	if b == nil {
		return "", false
	}
	for _, txt := range b.entries[Key(label)] {
		if txt = strings.TrimSpace(txt); txt != "" {
			return txt, true
		}
	}
	return "", false
}

// Len returns the number of entries.
func (b *Book) Len() int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}
