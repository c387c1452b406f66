package model

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	nameRegex = regexp.MustCompile(DefinitionTag + `([^\n]*)\n`)

	// Three whitespace characters separate the length from the locus name on
	// the LOCUS line: "region001   25000 bp".
	lengthRegex = regexp.MustCompile(`\s\s\s([0-9]+)\sbp`)

	productRegex = regexp.MustCompile(regexp.QuoteMeta(ProductFunctions) + `([^:]*):`)
)

// ParseName returns the DEFINITION line of the record, trimmed.
func ParseName(features string) (string, bool) {
	m := nameRegex.FindStringSubmatch(features)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// ParseLength returns the cluster length in bp from the LOCUS line.
func ParseLength(features string) (int, bool) {
	m := lengthRegex.FindStringSubmatch(features)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseProducts collects the rule-based product classes of the cluster. The
// result is unique and sorted so hybrids with the same constituents compare
// equal.
func ParseProducts(features string) []string {
	seen := make(map[string]struct{})
	for _, m := range productRegex.FindAllStringSubmatch(features, -1) {
		p := strings.TrimSpace(strings.ReplaceAll(m[1], "\n", ""))
		seen[p] = struct{}{}
	}

	products := make([]string, 0, len(seen))
	for p := range seen {
		products = append(products, p)
	}
	sort.Strings(products)
	return products
}

// Summarize runs the three field extractors independently.
func Summarize(features string) ClusterSummary {
	var s ClusterSummary

	if name, ok := ParseName(features); ok {
		s.Name = &name
	}
	if length, ok := ParseLength(features); ok {
		s.LengthBP = length
	}
	s.Products = ParseProducts(features)

	return s
}
