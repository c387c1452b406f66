package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yumyai/bgcselect/internal/testutil"
)

func scenarioThresholds() Thresholds {
	return Thresholds{
		MinCoreGenes:                   2,
		MinLengthBP:                    20000,
		MinEdgeDistanceBP:              5000,
		MinAdditionalGenesMain:         3,
		MinAdditionalGenesSecondChance: 5,
	}
}

func TestAnalyzeScenarios(t *testing.T) {

	tests := []struct {
		name   string
		modify func(r *testutil.Record)
		want   Verdict
	}{
		{
			name:   "A: passes main selection",
			modify: func(r *testutil.Record) {},
			want:   VerdictPassedMain,
		},
		{
			name: "B: too few additional genes for either round",
			modify: func(r *testutil.Record) {
				r.Additional = r.Additional[:2]
			},
			want: VerdictDiscarded,
		},
		{
			name: "C: first core gene too close to the edge, rescued by second chance",
			modify: func(r *testutil.Record) {
				r.Core[0].Start = 100
				r.Core[0].End = 900
				r.Additional = testutil.AdditionalGenes(6)
			},
			want: VerdictPassedSecondChance,
		},
		{
			name: "D: single core gene fails preliminary selection",
			modify: func(r *testutil.Record) {
				r.Core = r.Core[:1]
			},
			want: VerdictDiscarded,
		},
		{
			name: "E: empty nucleotide sequence",
			modify: func(r *testutil.Record) {
				r.Sequence = ""
			},
			want: VerdictDiscarded,
		},
		{
			name: "last core gene too close to the right edge, not enough for second chance",
			modify: func(r *testutil.Record) {
				r.Core[2].Start = 21000
				r.Core[2].End = 22000
			},
			want: VerdictDiscarded,
		},
		{
			name: "cluster shorter than minimum length, rescued by second chance",
			modify: func(r *testutil.Record) {
				r.LengthBP = 19000
				r.Additional = testutil.AdditionalGenes(5)
			},
			want: VerdictPassedSecondChance,
		},
		{
			name: "unreadable length counts as zero",
			modify: func(r *testutil.Record) {
				r.LengthBP = 0
			},
			want: VerdictDiscarded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.DefaultRecord()
			tt.modify(&rec)

			_, verdict := Analyze(rec.String(), scenarioThresholds())
			assert.Equal(t, tt.want, verdict)
		})
	}
}

func TestAnalyzeEdgeDistanceIsInclusive(t *testing.T) {
	rec := testutil.DefaultRecord()
	rec.Core[0].Start = 5000
	rec.Core[2].End = 20000

	_, verdict := Analyze(rec.String(), scenarioThresholds())
	assert.Equal(t, VerdictPassedMain, verdict)
}

func TestAnalyzeEmptyProductsAlwaysDiscarded(t *testing.T) {
	rec := testutil.DefaultRecord()
	rec.Products = nil

	lenient := Thresholds{MinCoreGenes: 1}
	for _, th := range []Thresholds{scenarioThresholds(), lenient, DefaultThresholds()} {
		summary, verdict := Analyze(rec.String(), th)
		assert.Empty(t, summary.Products)
		assert.Equal(t, VerdictDiscarded, verdict)
	}
}

func TestAnalyzeAmbiguousNucleotide(t *testing.T) {
	rec := testutil.DefaultRecord()
	seq := []byte(rec.Sequence)
	seq[12345] = 'n'
	rec.Sequence = string(seq)

	_, verdict := Analyze(rec.String(), scenarioThresholds())
	assert.Equal(t, VerdictDiscarded, verdict)
}

func TestAnalyzeAmbiguousNucleotideUpperCase(t *testing.T) {
	rec := testutil.DefaultRecord()
	rec.Sequence = "ATGCN" + testutil.DNA(24995)

	_, verdict := Analyze(rec.String(), scenarioThresholds())
	assert.Equal(t, VerdictDiscarded, verdict)
}

func TestAnalyzeAmbiguousAminoAcid(t *testing.T) {
	tests := []struct {
		name   string
		modify func(r *testutil.Record)
	}{
		{"core gene", func(r *testutil.Record) { r.Core[1].Translation = "MSTX" + testutil.Protein(100) }},
		{"additional gene", func(r *testutil.Record) { r.Additional[3].Translation = testutil.Protein(100) + "X" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.DefaultRecord()
			tt.modify(&rec)

			_, verdict := Analyze(rec.String(), scenarioThresholds())
			assert.Equal(t, VerdictDiscarded, verdict)
		})
	}
}

func TestAnalyzeIgnoresOtherGeneKinds(t *testing.T) {
	rec := testutil.DefaultRecord()
	rec.Other[0].Translation = "XXXX"

	_, verdict := Analyze(rec.String(), scenarioThresholds())
	assert.Equal(t, VerdictPassedMain, verdict)
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	text := testutil.DefaultRecord().String()

	s1, v1 := Analyze(text, scenarioThresholds())
	s2, v2 := Analyze(text, scenarioThresholds())

	assert.Equal(t, s1, s2)
	assert.Equal(t, v1, v2)
}

func TestAnalyzeSummary(t *testing.T) {
	summary, _ := Analyze(testutil.DefaultRecord().String(), scenarioThresholds())

	require.NotNil(t, summary.Name)
	assert.Equal(t, "Streptomyces testensis strain T1 chromosome, complete genome.", *summary.Name)
	assert.Equal(t, 25000, summary.LengthBP)
	assert.Equal(t, []string{"NRPS", "T1PKS"}, summary.Products)
}

func TestAssessReturnsGenes(t *testing.T) {
	a := Assess(testutil.DefaultRecord().String(), scenarioThresholds())

	require.Len(t, a.Genes.Core, 3)
	require.Len(t, a.Genes.Additional, 4)
	assert.Equal(t, "ctg1_10", a.Genes.Core[0].Locus)
	assert.Equal(t, "ctg1_12", a.Genes.Core[2].Locus)
	assert.Equal(t, VerdictPassedMain, a.Verdict)
}

func TestAssessWithoutCoreGenesAndZeroMinimum(t *testing.T) {
	rec := testutil.DefaultRecord()
	rec.Core = nil

	th := scenarioThresholds()
	th.MinCoreGenes = 0

	a := Assess(rec.String(), th)
	assert.Equal(t, VerdictDiscarded, a.Verdict)
}

func TestAssessMalformedRecordIsDiscarded(t *testing.T) {
	text := testutil.DefaultRecord().String() + "ORIGIN\n        1 atgc\n//\n"

	a := Assess(text, scenarioThresholds())
	assert.Equal(t, VerdictDiscarded, a.Verdict)
	assert.Equal(t, 25000, a.Summary.LengthBP)
}

func TestVerdictHelpers(t *testing.T) {
	assert.True(t, VerdictPassedMain.Selected())
	assert.True(t, VerdictPassedSecondChance.Selected())
	assert.False(t, VerdictDiscarded.Selected())
	assert.False(t, Verdict("passed preliminary selection").Valid())

	v, ok := ParseVerdict("second-chance")
	assert.True(t, ok)
	assert.Equal(t, VerdictPassedSecondChance, v)

	_, ok = ParseVerdict("passed preliminary selection")
	assert.False(t, ok)
}
