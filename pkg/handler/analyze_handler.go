package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/yumyai/bgcselect/logger"
	"github.com/yumyai/bgcselect/pkg/handler/request"
	"github.com/yumyai/bgcselect/pkg/model"
	"go.uber.org/zap"
)

// Records beyond this size are rejected; antiSMASH region files are far smaller.
const maxRecordBytes = 32 << 20

// AnalyzeRecord classifies one record posted as JSON.
func (app *AppContext) AnalyzeRecord(w http.ResponseWriter, r *http.Request) {
	// Thresholds left out of the body keep the server values.
	th := app.Config.Thresholds
	req := request.AnalyzeRequest{Thresholds: &th}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRecordBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		logger.Debug("Invalid analyze request", zap.Error(err))
		writeError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Record) == "" {
		writeError(w, r, http.StatusBadRequest, "Record cannot be empty")
		return
	}

	if req.Thresholds == nil {
		req.Thresholds = &th
	}
	if err := req.Thresholds.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := model.CheckRecord(req.Record, app.Config.RequireSingleClusterLabel); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	start := time.Now()
	a := model.Assess(req.Record, *req.Thresholds)
	if app.Metrics != nil {
		app.Metrics.ObserveRecord(a.Verdict, time.Since(start))
	}

	writeJSON(w, http.StatusOK, request.AnalyzeResponse{
		Summary:         a.Summary,
		Verdict:         a.Verdict,
		Selected:        a.Verdict.Selected(),
		CoreGenes:       len(a.Genes.Core),
		AdditionalGenes: len(a.Genes.Additional),
	})
}
