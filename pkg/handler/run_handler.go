package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/yumyai/bgcselect/logger"
	"github.com/yumyai/bgcselect/pkg/db"
	"github.com/yumyai/bgcselect/pkg/handler/params"
	"github.com/yumyai/bgcselect/pkg/handler/request"
	"github.com/yumyai/bgcselect/pkg/pipeline"
	"github.com/yumyai/bgcselect/pkg/render"
	"go.uber.org/zap"
)

const refreshIntervalSeconds = 5

var ErrInputDirOutside = errors.New("input_dir must be inside the configured input directory")

// resolveInputDir maps a requested input folder onto the configured input
// directory. Relative paths are taken from it; anything that cleans to a path
// outside of it is rejected.
func (app *AppContext) resolveInputDir(dir string) (string, error) {
	root := filepath.Clean(app.Config.InputDir)
	if dir == "" {
		return root, nil
	}

	path := filepath.Clean(dir)
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrInputDirOutside, dir)
	}
	return path, nil
}

// NewBatch builds a batch from the server configuration and the overrides of req.
func (app *AppContext) NewBatch(req request.RunRequest) (*pipeline.Batch, error) {
	cfg := app.Config

	inputDir, err := app.resolveInputDir(req.InputDir)
	if err != nil {
		return nil, err
	}

	pc := pipeline.Config{
		InputDir:                  inputDir,
		IgnorePatterns:            cfg.IgnorePatterns,
		Workers:                   cfg.Workers,
		RequireSingleClusterLabel: cfg.RequireSingleClusterLabel,
		Thresholds:                cfg.Thresholds,
	}
	if req.Thresholds != nil {
		pc.Thresholds = *req.Thresholds
	}

	b := &pipeline.Batch{
		Config:            pc,
		SelectedDir:       cfg.SelectedDir,
		StatsDir:          cfg.StatsDir,
		ClearSelected:     cfg.ClearSelected,
		RenameOnCollision: cfg.RenameOnCollision,
		GroupProducts:     cfg.GroupProducts,
		Store:             app.Store,
	}
	if app.Metrics != nil {
		b.Metrics = app.Metrics
	}
	return b, nil
}

// StartRun starts a batch selection in the background.
func (app *AppContext) StartRun(w http.ResponseWriter, r *http.Request) {
	// Thresholds left out of the body keep the server values.
	th := app.Config.Thresholds
	req := request.RunRequest{Thresholds: &th}

	// An empty body runs with the server configuration.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Thresholds == nil {
		req.Thresholds = &th
	}
	if err := req.Thresholds.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	b, err := app.NewBatch(req)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	job, err := app.Jobs.Start(r.Context(), b)
	switch {
	case errors.Is(err, ErrJobRunning):
		writeError(w, r, http.StatusConflict, err.Error())
		return
	case errors.Is(err, db.ErrRecordDirMissing):
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		logger.Error("Failed to start selection", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "Failed to start selection")
		return
	}

	w.Header().Set("Location", "/api/v1/runs/"+job.ID)
	writeJSON(w, http.StatusAccepted, job)
}

func (app *AppContext) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := params.ParseLimit(r.URL.Query())
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	runs, err := app.Store.ListRuns(r.Context(), limit)
	if err != nil {
		logger.Error("Failed to list runs", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "Failed to list runs")
		return
	}
	if runs == nil {
		runs = []*db.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

type runResponse struct {
	*db.Run
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// GetRun reports a run. Runs of this process show live counters.
func (app *AppContext) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("run_id")

	run, err := app.Store.GetRun(r.Context(), runID)
	if errors.Is(err, db.ErrRunNotFound) {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		logger.Error("Failed to get run", zap.String("run_id", runID), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "Failed to get run")
		return
	}

	resp := runResponse{Run: run, Status: string(JobCompleted)}
	if job, ok := app.Jobs.GetJob(runID); ok {
		resp.Status = string(job.Status)
		resp.Error = job.Error
		if job.Status == JobRunning {
			resp.Stats = job.Stats
		}
	} else if run.FinishedAt == nil {
		// Started by a process that is gone.
		resp.Status = "interrupted"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (app *AppContext) ListClusters(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("run_id")

	verdict, err := params.ParseVerdictFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := app.Store.GetRun(r.Context(), runID); errors.Is(err, db.ErrRunNotFound) {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}

	results, err := app.Store.ListClusterResults(r.Context(), runID, verdict)
	if err != nil {
		logger.Error("Failed to list clusters", zap.String("run_id", runID), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "Failed to list clusters")
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// RunPage renders the HTML page of a run, refreshing while it is running.
func (app *AppContext) RunPage(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("run_id")
	ctx := r.Context()

	run, err := app.Store.GetRun(ctx, runID)
	if errors.Is(err, db.ErrRunNotFound) {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to load run", http.StatusInternalServerError)
		return
	}

	data := render.RunPageData{
		RunID:                  run.RunID,
		InputDir:               run.InputDir,
		Status:                 string(JobCompleted),
		Stats:                  run.Stats,
		Thresholds:             run.Thresholds,
		RefreshIntervalSeconds: refreshIntervalSeconds,
	}
	if job, ok := app.Jobs.GetJob(runID); ok {
		data.Status = string(job.Status)
		data.ErrorMessage = job.Error
		data.ShouldRefresh = job.Status == JobRunning
		if data.ShouldRefresh {
			data.Stats = job.Stats
		}
	}

	if !data.ShouldRefresh {
		counts, err := app.Store.ProductCounts(ctx, runID)
		if err == nil {
			data.Products = render.ProductRows(counts, app.Config.GroupProducts)
		}
		data.Clusters, err = app.Store.ListClusterResults(ctx, runID, "")
		if err != nil {
			logger.Warn("Failed to load clusters", zap.String("run_id", runID), zap.Error(err))
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render.RenderRunPage(w, data); err != nil {
		logger.Error("Failed to render run page", zap.Error(err))
	}
}
