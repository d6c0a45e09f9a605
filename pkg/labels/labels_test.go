package labels

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	table, err := Parse(strings.NewReader(`{"bulbasaur": 0, "ivysaur": 1, "mr-mime": 121}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	tests := []struct {
		name string
		want int
	}{
		{"bulbasaur", 0},
		{"ivysaur", 1},
		{"mr-mime", 121},
		{"missingno", Unknown},
		{"", Unknown},
	}
	for _, tt := range tests {
		if got := table.Lookup(tt.name); got != tt.want {
			t.Errorf("Lookup(%q) = %d, want %d", tt.name, got, tt.want)
		}
	}

	if n, ok := table.Name(121); !ok || n != "mr-mime" {
		t.Errorf("Name(121) = %q, %v", n, ok)
	}
	if table.Len() != 3 {
		t.Errorf("Len = %d, want 3", table.Len())
	}
	if got := strings.Join(table.Names(), ","); got != "bulbasaur,ivysaur,mr-mime" {
		t.Errorf("Names = %s", got)
	}
}

func TestParseErrors(t *testing.T) {
	inputs := []string{
		`not json`,
		`{"a": -1}`,
		`{"a": 1, "b": 1}`,
	}
	for _, in := range inputs {
		if _, err := Parse(strings.NewReader(in)); err == nil {
			t.Errorf("Parse(%s): expected error", in)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "class_indices.json")
	if err := os.WriteFile(path, []byte(`{"pikachu": 24}`), 0o644); err != nil {
		t.Fatal(err)
	}

	table, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if table.Lookup("pikachu") != 24 {
		t.Errorf("expected 24, got %d", table.Lookup("pikachu"))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestNilTable(t *testing.T) {
	var table *Table
	if table.Lookup("x") != Unknown || table.Len() != 0 || table.Names() != nil {
		t.Error("nil table should behave as empty")
	}
}

func TestFromNames(t *testing.T) {
	table := FromNames("a", "b", "c")
	if table.Lookup("c") != 2 {
		t.Errorf("expected 2, got %d", table.Lookup("c"))
	}
}
