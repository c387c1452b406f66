package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// SecondChanceRecord fails main selection on length and is rescued by its
// five additional genes.
func SecondChanceRecord() Record {
	r := DefaultRecord()
	r.LengthBP = 18000
	r.Products = []string{"terpene"}
	r.Additional = AdditionalGenes(5)
	return r
}

// DiscardedRecord has a single core gene.
func DiscardedRecord() Record {
	r := DefaultRecord()
	r.Core = r.Core[:1]
	return r
}

// WriteRecord writes r to dir/name, creating parent folders.
func WriteRecord(t testing.TB, dir, name string, r Record) string {
	t.Helper()
	return WriteText(t, dir, name, r.String())
}

func WriteText(t testing.TB, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
