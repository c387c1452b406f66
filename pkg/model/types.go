package model

// ClusterSummary is the record-level metadata reported for every analyzed cluster.
type ClusterSummary struct {
	Name     *string  `json:"name"`
	LengthBP int      `json:"length_bp"`
	Products []string `json:"products"`
}

// NameOrEmpty is a display helper for templates and logs.
func (s ClusterSummary) NameOrEmpty() string {
	if s.Name == nil {
		return ""
	}
	return *s.Name
}

// Gene is one CDS feature of a given kind. Start and End are 1-based, inclusive.
type Gene struct {
	Locus       string `json:"locus"`
	Start       int    `json:"start"`
	End         int    `json:"end"`
	Translation string `json:"translation"`
}

type GeneKindCollection struct {
	Core       []Gene `json:"core"`
	Additional []Gene `json:"additional"`
}

type Verdict string

const (
	VerdictDiscarded          Verdict = "discarded"
	VerdictPassedMain         Verdict = "passed main selection"
	VerdictPassedSecondChance Verdict = "passed second-chance selection"
)

// Selected reports whether the cluster passed main or second-chance selection.
func (v Verdict) Selected() bool {
	return v == VerdictPassedMain || v == VerdictPassedSecondChance
}

func (v Verdict) Valid() bool {
	switch v {
	case VerdictDiscarded, VerdictPassedMain, VerdictPassedSecondChance:
		return true
	}
	return false
}

// ParseVerdict accepts the verdict text as well as the short forms used in
// query strings ("main", "second-chance", "discarded").
func ParseVerdict(s string) (Verdict, bool) {
	switch s {
	case string(VerdictDiscarded):
		return VerdictDiscarded, true
	case string(VerdictPassedMain), "main":
		return VerdictPassedMain, true
	case string(VerdictPassedSecondChance), "second-chance", "second_chance":
		return VerdictPassedSecondChance, true
	}
	return "", false
}

// Assessment is the full result of one analysis.
type Assessment struct {
	Summary ClusterSummary     `json:"summary"`
	Verdict Verdict            `json:"verdict"`
	Genes   GeneKindCollection `json:"-"`
}
