package model

import "strings"

// Analyze classifies one cluster record. It is pure and safe for concurrent use.
func Analyze(record string, th Thresholds) (ClusterSummary, Verdict) {
	a := Assess(record, th)
	return a.Summary, a.Verdict
}

// Assess is Analyze plus the extracted genes, for callers that report gene counts.
//
// The record is expected to pass CheckRecord first. A record that does not split
// into exactly two sections is summarized from its full text and discarded.
func Assess(record string, th Thresholds) Assessment {
	features, origin, ok := splitRecord(record)

	a := Assessment{
		Summary: Summarize(features),
		Genes:   ExtractGeneKinds(features),
		Verdict: VerdictDiscarded,
	}
	if !ok {
		return a
	}

	dna := decodeSequence(origin)
	if !passesPreliminary(dna, a.Summary, a.Genes, th) {
		return a
	}

	// Only reachable with MinCoreGenes == 0, which Thresholds.Validate rejects.
	if len(a.Genes.Core) == 0 {
		return a
	}

	switch {
	case passesMain(a.Summary, a.Genes, th):
		a.Verdict = VerdictPassedMain
	case len(a.Genes.Additional) >= th.MinAdditionalGenesSecondChance:
		a.Verdict = VerdictPassedSecondChance
	}
	return a
}

func passesPreliminary(dna string, s ClusterSummary, genes GeneKindCollection, th Thresholds) bool {
	if len(dna) == 0 || len(s.Products) == 0 {
		return false
	}
	if len(genes.Core) < th.MinCoreGenes {
		return false
	}
	if strings.Contains(dna, AmbiguousNucleotide) {
		return false
	}
	for _, set := range [][]Gene{genes.Core, genes.Additional} {
		for _, g := range set {
			if strings.Contains(g.Translation, AmbiguousAminoAcid) {
				return false
			}
		}
	}
	return true
}

func passesMain(s ClusterSummary, genes GeneKindCollection, th Thresholds) bool {
	first := genes.Core[0]
	last := genes.Core[len(genes.Core)-1]

	return s.LengthBP >= th.MinLengthBP &&
		first.Start >= th.MinEdgeDistanceBP &&
		s.LengthBP-last.End >= th.MinEdgeDistanceBP &&
		len(genes.Additional) >= th.MinAdditionalGenesMain
}
