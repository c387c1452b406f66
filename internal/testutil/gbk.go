// Package testutil builds antiSMASH-style GenBank records for tests.
package testutil

import (
	"fmt"
	"strings"
)

type Gene struct {
	Locus       string
	Start       int
	End         int
	Translation string
}

// Record describes a single-cluster GenBank file. Zero values leave the
// corresponding field out of the generated text.
type Record struct {
	Locus      string
	Definition string
	LengthBP   int
	Products   []string
	Core       []Gene
	Additional []Gene
	Other      []Gene // regulatory genes, ignored by selection
	Sequence   string
	NoLabel    bool
}

// DefaultRecord passes main selection with the default thresholds: 25 kb,
// 3 core genes well inside the edges, 4 additional genes.
func DefaultRecord() Record {
	return Record{
		Locus:      "NZ_TEST01.region001",
		Definition: "Streptomyces testensis strain T1 chromosome, complete genome.",
		LengthBP:   25000,
		Products:   []string{"NRPS", "T1PKS"},
		Core: []Gene{
			{Locus: "ctg1_10", Start: 6000, End: 7500, Translation: Protein(300)},
			{Locus: "ctg1_11", Start: 8000, End: 11000, Translation: Protein(900)},
			{Locus: "ctg1_12", Start: 12000, End: 14000, Translation: Protein(600)},
		},
		Additional: []Gene{
			{Locus: "ctg1_5", Start: 1200, End: 2000, Translation: Protein(200)},
			{Locus: "ctg1_7", Start: 3000, End: 3900, Translation: Protein(250)},
			{Locus: "ctg1_15", Start: 15000, End: 16000, Translation: Protein(300)},
			{Locus: "ctg1_17", Start: 17000, End: 18500, Translation: Protein(400)},
		},
		Other: []Gene{
			{Locus: "ctg1_20", Start: 19000, End: 19600, Translation: Protein(150)},
		},
		Sequence: DNA(25000),
	}
}

// AdditionalGenes returns n additional genes placed after position 15000.
func AdditionalGenes(n int) []Gene {
	genes := make([]Gene, n)
	for i := range genes {
		start := 15000 + i*800
		genes[i] = Gene{
			Locus:       fmt.Sprintf("ctg1_add%d", i+1),
			Start:       start,
			End:         start + 600,
			Translation: Protein(150),
		}
	}
	return genes
}

// DNA returns n unambiguous bases.
func DNA(n int) string {
	const unit = "atgcgtacct"
	return strings.Repeat(unit, n/len(unit)+1)[:n]
}

// Protein returns n unambiguous residues.
func Protein(n int) string {
	const unit = "MSTNPKLAQEGVRDW"
	return strings.Repeat(unit, n/len(unit)+1)[:n]
}

// String renders the record as GenBank text.
func (r Record) String() string {
	var b strings.Builder

	locus := r.Locus
	if locus == "" {
		locus = "NZ_TEST01.region001"
	}
	if r.LengthBP > 0 {
		fmt.Fprintf(&b, "LOCUS       %s   %d bp    DNA     linear   UNK 01-JAN-1980\n", locus, r.LengthBP)
	} else {
		fmt.Fprintf(&b, "LOCUS       %s DNA linear UNK 01-JAN-1980\n", locus)
	}
	if r.Definition != "" {
		fmt.Fprintf(&b, "DEFINITION  %s\n", r.Definition)
	}
	b.WriteString("ACCESSION   NZ_TEST01\n")
	b.WriteString("VERSION     NZ_TEST01.1\n")
	b.WriteString("KEYWORDS    .\n")
	b.WriteString("SOURCE      Streptomyces testensis\n")
	b.WriteString("  ORGANISM  Streptomyces testensis\n")
	b.WriteString("COMMENT     ##antiSMASH-Data-START##\n")
	if !r.NoLabel {
		b.WriteString("            NOTE: This is a single cluster extracted from a larger record!\n")
	}
	b.WriteString("            ##antiSMASH-Data-END##\n")
	b.WriteString("FEATURES             Location/Qualifiers\n")
	fmt.Fprintf(&b, "     protocluster    1..%d\n", max(r.LengthBP, 1))
	for _, p := range r.Products {
		fmt.Fprintf(&b, "                     /product=\"%s\"\n", p)
	}

	// Genes in coordinate order, as antiSMASH writes them.
	type tagged struct {
		Gene
		kind string
	}
	var all []tagged
	for _, g := range r.Core {
		all = append(all, tagged{Gene: g, kind: "biosynthetic"})
	}
	for _, g := range r.Additional {
		all = append(all, tagged{Gene: g, kind: "biosynthetic-additional"})
	}
	for _, g := range r.Other {
		all = append(all, tagged{Gene: g, kind: "regulatory"})
	}
	for i := 1; i < len(all); i++ {
		for j := i; j > 0 && all[j].Start < all[j-1].Start; j-- {
			all[j], all[j-1] = all[j-1], all[j]
		}
	}

	for i, g := range all {
		fmt.Fprintf(&b, "     gene            %d..%d\n", g.Start, g.End)
		fmt.Fprintf(&b, "                     /locus_tag=\"%s\"\n", g.Locus)
		fmt.Fprintf(&b, "     CDS             %d..%d\n", g.Start, g.End)
		fmt.Fprintf(&b, "                     /locus_tag=\"%s\"\n", g.Locus)
		fmt.Fprintf(&b, "                     /gene_kind=\"%s\"\n", g.kind)
		// Product annotations ride on the first gene.
		for _, p := range productsFor(i, r.Products) {
			fmt.Fprintf(&b, "                     /gene_functions=\"biosynthetic (rule-based-clusters)\n                     %s: Condensation\"\n", p)
		}
		b.WriteString("                     /translation=\"")
		b.WriteString(wrap(g.Translation, 58, "\n                     "))
		b.WriteString("\"\n")
	}

	b.WriteString("ORIGIN\n")
	b.WriteString(origin(r.Sequence))
	b.WriteString("//\n")
	return b.String()
}

func productsFor(i int, products []string) []string {
	if i == 0 {
		return products
	}
	return nil
}

func wrap(s string, width int, sep string) string {
	var parts []string
	for len(s) > width {
		parts = append(parts, s[:width])
		s = s[width:]
	}
	parts = append(parts, s)
	return strings.Join(parts, sep)
}

func origin(seq string) string {
	var b strings.Builder
	for i := 0; i < len(seq); i += 60 {
		fmt.Fprintf(&b, "%9d", i+1)
		for j := i; j < i+60 && j < len(seq); j += 10 {
			end := min(j+10, len(seq))
			b.WriteString(" ")
			b.WriteString(seq[j:end])
		}
		b.WriteString("\n")
	}
	return b.String()
}
