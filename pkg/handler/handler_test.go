package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yumyai/bgcselect/internal/config"
	"github.com/yumyai/bgcselect/internal/testutil"
	"github.com/yumyai/bgcselect/pkg/db"
	"github.com/yumyai/bgcselect/pkg/handler/request"
	"github.com/yumyai/bgcselect/pkg/middle"
	"github.com/yumyai/bgcselect/pkg/model"
)

func newTestApp(t *testing.T) *AppContext {
	t.Helper()
	root := t.TempDir()

	store, err := db.OpenResultDB(filepath.Join(root, "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	jobs := NewJobManager(context.Background())
	t.Cleanup(jobs.Wait)

	return &AppContext{
		Config: &config.Config{
			InputDir:                  filepath.Join(root, "input"),
			SelectedDir:               filepath.Join(root, "selected"),
			StatsDir:                  filepath.Join(root, "stats"),
			Workers:                   2,
			ClearSelected:             true,
			RenameOnCollision:         true,
			RequireSingleClusterLabel: true,
			Thresholds:                model.DefaultThresholds(),
		},
		Store:   store,
		Jobs:    jobs,
		Metrics: middle.NewMetrics(),
	}
}

func postJSON(t *testing.T, h http.HandlerFunc, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, target, &buf))
	return rec
}

func TestHealthCheck(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Health)
}

func TestAnalyzeRecord(t *testing.T) {
	app := newTestApp(t)

	rec := postJSON(t, app.AnalyzeRecord, "/api/v1/analyze", request.AnalyzeRequest{
		Record: testutil.DefaultRecord().String(),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp request.AnalyzeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, model.VerdictPassedMain, resp.Verdict)
	assert.True(t, resp.Selected)
	assert.Equal(t, 25000, resp.Summary.LengthBP)
	assert.Equal(t, []string{"NRPS", "T1PKS"}, resp.Summary.Products)
	assert.Equal(t, 3, resp.CoreGenes)
	assert.Equal(t, 4, resp.AdditionalGenes)
}

func TestAnalyzeRecordThresholdOverride(t *testing.T) {
	app := newTestApp(t)

	th := model.DefaultThresholds()
	th.MinLengthBP = 30000
	rec := postJSON(t, app.AnalyzeRecord, "/api/v1/analyze", request.AnalyzeRequest{
		Record:     testutil.DefaultRecord().String(),
		Thresholds: &th,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp request.AnalyzeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, model.VerdictDiscarded, resp.Verdict)
}

func TestAnalyzeRecordErrors(t *testing.T) {
	app := newTestApp(t)

	bad := model.DefaultThresholds()
	bad.MinCoreGenes = 0

	unlabeled := testutil.DefaultRecord()
	unlabeled.NoLabel = true

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"not json", "{record:", http.StatusBadRequest},
		{"unknown field", `{"record": "x", "extra": 1}`, http.StatusBadRequest},
		{"empty record", request.AnalyzeRequest{Record: "  "}, http.StatusBadRequest},
		{"bad thresholds", request.AnalyzeRequest{Record: testutil.DefaultRecord().String(), Thresholds: &bad}, http.StatusBadRequest},
		{"no origin", request.AnalyzeRequest{Record: "LOCUS x\n//\n"}, http.StatusUnprocessableEntity},
		{"not a single cluster", request.AnalyzeRequest{Record: unlabeled.String()}, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, app.AnalyzeRecord, "/api/v1/analyze", tt.body)
			assert.Equal(t, tt.status, rec.Code)

			var resp request.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func waitJob(t *testing.T, app *AppContext, runID string) {
	t.Helper()
	select {
	case <-app.Jobs.Done(runID):
	case <-time.After(10 * time.Second):
		t.Fatal("selection job did not finish")
	}
}

func TestRunLifecycle(t *testing.T) {
	app := newTestApp(t)
	testutil.WriteRecord(t, app.Config.InputDir, "a.region001.gbk", testutil.DefaultRecord())
	testutil.WriteRecord(t, app.Config.InputDir, "b.region001.gbk", testutil.DiscardedRecord())

	rec := postJSON(t, app.StartRun, "/api/v1/runs", "")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var started JobView
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&started))
	require.NotEmpty(t, started.ID)
	assert.Equal(t, "/api/v1/runs/"+started.ID, rec.Header().Get("Location"))
	waitJob(t, app, started.ID)

	// GetRun
	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+started.ID, nil)
	req.SetPathValue("run_id", started.ID)
	rec = httptest.NewRecorder()
	app.GetRun(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var run runResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&run))
	assert.Equal(t, string(JobCompleted), run.Status)
	assert.Equal(t, model.SelectionStats{PassedMain: 1, Discarded: 1}, run.Stats)

	// ListClusters
	req = httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+started.ID+"/clusters?verdict=main", nil)
	req.SetPathValue("run_id", started.ID)
	rec = httptest.NewRecorder()
	app.ListClusters(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var clusters []db.ClusterResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&clusters))
	require.Len(t, clusters, 1)
	assert.Equal(t, "a.region001.gbk", clusters[0].FileName)

	// ListRuns
	rec = httptest.NewRecorder()
	app.ListRuns(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var runs []db.Run
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&runs))
	require.Len(t, runs, 1)
	assert.Equal(t, started.ID, runs[0].RunID)

	// RunPage
	req = httptest.NewRequest(http.MethodGet, "/runs/"+started.ID, nil)
	req.SetPathValue("run_id", started.ID)
	rec = httptest.NewRecorder()
	app.RunPage(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "a.region001.gbk")
	assert.NotContains(t, rec.Body.String(), "window.location.reload")
}

func TestStartRunConflict(t *testing.T) {
	app := newTestApp(t)
	testutil.WriteRecord(t, app.Config.InputDir, "a.region001.gbk", testutil.DefaultRecord())

	// Hold the active slot without running anything.
	app.Jobs.active = "busy"
	rec := postJSON(t, app.StartRun, "/api/v1/runs", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	app.Jobs.active = ""
}

func TestStartRunBadRequests(t *testing.T) {
	app := newTestApp(t)

	rec := postJSON(t, app.StartRun, "/api/v1/runs", request.RunRequest{InputDir: "missing"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	bad := model.DefaultThresholds()
	bad.MinAdditionalGenesSecondChance = 1
	rec = postJSON(t, app.StartRun, "/api/v1/runs", request.RunRequest{Thresholds: &bad})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, app.StartRun, "/api/v1/runs", "[")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartRunConfinesInputDir(t *testing.T) {
	app := newTestApp(t)

	// An archive next to the input folder must survive any request.
	outside := filepath.Dir(app.Config.InputDir)
	testutil.WriteText(t, outside, "keep.zip", "not an archive")
	testutil.WriteRecord(t, app.Config.InputDir, "a.region001.gbk", testutil.DefaultRecord())

	for _, dir := range []string{"..", "../", "sub/../../", outside, "/etc"} {
		t.Run(dir, func(t *testing.T) {
			rec := postJSON(t, app.StartRun, "/api/v1/runs", request.RunRequest{InputDir: dir})
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "input_dir")
		})
	}
	assert.FileExists(t, filepath.Join(outside, "keep.zip"))
}

func TestResolveInputDir(t *testing.T) {
	app := newTestApp(t)
	root := app.Config.InputDir

	tests := []struct {
		dir  string
		want string
	}{
		{"", root},
		{".", root},
		{"batch1", filepath.Join(root, "batch1")},
		{"batch1/../batch2", filepath.Join(root, "batch2")},
		{filepath.Join(root, "batch3"), filepath.Join(root, "batch3")},
	}
	for _, tt := range tests {
		got, err := app.resolveInputDir(tt.dir)
		require.NoError(t, err, tt.dir)
		assert.Equal(t, tt.want, got)
	}

	_, err := app.resolveInputDir(root + "-other")
	assert.ErrorIs(t, err, ErrInputDirOutside)
}

func TestPartialThresholdsKeepServerValues(t *testing.T) {
	app := newTestApp(t)

	// Only the length is overridden; the other four fields stay at the
	// configured values, so the second-chance round is not disabled.
	rec := postJSON(t, app.AnalyzeRecord, "/api/v1/analyze",
		`{"record": `+mustJSON(t, testutil.SecondChanceRecord().String())+`, "thresholds": {"min_length_bp": 30000}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp request.AnalyzeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, model.VerdictPassedSecondChance, resp.Verdict)

	// The server configuration itself is left untouched.
	assert.Equal(t, model.DefaultThresholds(), app.Config.Thresholds)

	testutil.WriteRecord(t, app.Config.InputDir, "a.region001.gbk", testutil.DefaultRecord())
	rec = postJSON(t, app.StartRun, "/api/v1/runs", `{"thresholds": {"min_core_genes": 1}}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var started JobView
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&started))
	waitJob(t, app, started.ID)

	run, err := app.Store.GetRun(context.Background(), started.ID)
	require.NoError(t, err)
	want := model.DefaultThresholds()
	want.MinCoreGenes = 1
	assert.Equal(t, want, run.Thresholds)
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestRunNotFound(t *testing.T) {
	app := newTestApp(t)

	for _, h := range []http.HandlerFunc{app.GetRun, app.ListClusters, app.RunPage} {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.SetPathValue("run_id", "missing")
		rec := httptest.NewRecorder()
		h(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/x?verdict=perhaps", nil)
	req.SetPathValue("run_id", "missing")
	rec := httptest.NewRecorder()
	app.ListClusters(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "perhaps"))
}
