package model

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	locusRegex       = regexp.MustCompile(regexp.QuoteMeta(LocusTag) + `"([^"]*)"`)
	positionRegex    = regexp.MustCompile(`([0-9]+)\.\.([0-9]+)`)
	translationRegex = regexp.MustCompile(regexp.QuoteMeta(TranslationTag) + `"([A-Z\s]*)"`)
)

// ExtractGenes returns the genes of one kind in file order. A CDS block whose
// locus, position or translation cannot be read is skipped entirely.
func ExtractGenes(features, kind string) []Gene {
	kindTag := GeneKindTag + `"` + kind + `"`

	var genes []Gene
	for _, block := range strings.Split(features, CDSDelimiter) {
		if !strings.Contains(block, kindTag) {
			continue
		}
		if g, ok := parseGene(block); ok {
			genes = append(genes, g)
		}
	}
	return genes
}

// ExtractGeneKinds collects core and additional biosynthetic genes.
func ExtractGeneKinds(features string) GeneKindCollection {
	return GeneKindCollection{
		Core:       ExtractGenes(features, KindCore),
		Additional: ExtractGenes(features, KindAdditional),
	}
}

func parseGene(block string) (Gene, bool) {
	locus := locusRegex.FindStringSubmatch(block)
	if locus == nil {
		return Gene{}, false
	}

	pos := positionRegex.FindStringSubmatch(block)
	if pos == nil {
		return Gene{}, false
	}
	start, err := strconv.Atoi(pos[1])
	if err != nil {
		return Gene{}, false
	}
	end, err := strconv.Atoi(pos[2])
	if err != nil {
		return Gene{}, false
	}

	tr := translationRegex.FindStringSubmatch(block)
	if tr == nil {
		return Gene{}, false
	}
	translation := strings.Join(strings.Fields(tr[1]), "")

	return Gene{
		Locus:       locus[1],
		Start:       start,
		End:         end,
		Translation: translation,
	}, true
}
