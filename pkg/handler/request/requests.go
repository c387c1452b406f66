package request

import "github.com/yumyai/bgcselect/pkg/model"

// AnalyzeRequest carries one GenBank record. Threshold fields left out keep
// the server configuration.
type AnalyzeRequest struct {
	Record     string            `json:"record"`
	Thresholds *model.Thresholds `json:"thresholds,omitempty"`
}

// RunRequest starts a batch selection. Empty fields use the server
// configuration. InputDir is relative to, and must stay inside, the configured
// input directory.
type RunRequest struct {
	InputDir   string            `json:"input_dir,omitempty"`
	Thresholds *model.Thresholds `json:"thresholds,omitempty"`
}

type AnalyzeResponse struct {
	Summary         model.ClusterSummary `json:"summary"`
	Verdict         model.Verdict        `json:"verdict"`
	Selected        bool                 `json:"selected"`
	CoreGenes       int                  `json:"core_genes"`
	AdditionalGenes int                  `json:"additional_genes"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}
