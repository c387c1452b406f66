package model

import (
	"sort"
	"strings"
	"sync"
)

// SelectionStats counts clusters per selection outcome.
type SelectionStats struct {
	PassedMain         int `json:"passed_main"`
	PassedSecondChance int `json:"passed_second_chance"`
	Discarded          int `json:"discarded"`
	Skipped            int `json:"skipped"`
}

func (s SelectionStats) Selected() int {
	return s.PassedMain + s.PassedSecondChance
}

// All counts analyzed clusters; skipped records were never analyzed.
func (s SelectionStats) All() int {
	return s.Selected() + s.Discarded
}

// ProductCount is one line of the product statistics.
type ProductCount struct {
	Product string `json:"product"`
	Count   int    `json:"count"`
}

// Tally aggregates results of many analyses. Safe for concurrent use.
type Tally struct {
	mu       sync.Mutex
	stats    SelectionStats
	products map[string]int
}

func NewTally() *Tally {
	return &Tally{products: make(map[string]int)}
}

// ProductKey joins sorted products with "+", so hybrids form their own entry.
func ProductKey(products []string) string {
	return strings.Join(products, "+")
}

// Add records one verdict. Products are only counted for selected clusters.
func (t *Tally) Add(v Verdict, products []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch v {
	case VerdictPassedMain:
		t.stats.PassedMain++
	case VerdictPassedSecondChance:
		t.stats.PassedSecondChance++
	default:
		t.stats.Discarded++
	}

	if v.Selected() {
		t.products[ProductKey(products)]++
	}
}

// Skip records a file that was not analyzed (malformed or unreadable).
func (t *Tally) Skip() {
	t.mu.Lock()
	t.stats.Skipped++
	t.mu.Unlock()
}

func (t *Tally) Stats() SelectionStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

func (t *Tally) Products() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]int, len(t.products))
	for k, v := range t.products {
		out[k] = v
	}
	return out
}

// GroupProducts folds product statistics into ProductGroups. Every group is
// present in the result, with zero counts where nothing matched.
func GroupProducts(counts map[string]int) map[string]int {
	grouped := make(map[string]int, len(ProductGroups))
	known := make(map[string]bool, len(ProductGroups))
	for _, g := range ProductGroups {
		grouped[g] = 0
		known[g] = true
	}

	for product, n := range counts {
		switch {
		case known[product]:
			grouped[product] += n
		case strings.Contains(product, "+"):
			grouped["hybrid"] += n
		case RiPPProducts[product]:
			grouped["RiPP"] += n
		default:
			grouped["others"] += n
		}
	}
	return grouped
}

// SortedProducts orders counts by frequency, then by name.
func SortedProducts(counts map[string]int) []ProductCount {
	out := make([]ProductCount, 0, len(counts))
	for p, n := range counts {
		out = append(out, ProductCount{Product: p, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Product < out[j].Product
	})
	return out
}
