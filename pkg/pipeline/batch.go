package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yumyai/bgcselect/internal/util"
	"github.com/yumyai/bgcselect/logger"
	"github.com/yumyai/bgcselect/pkg/db"
	"github.com/yumyai/bgcselect/pkg/model"
	"github.com/yumyai/bgcselect/pkg/render"
	"go.uber.org/zap"
)

var ErrBatchStarted = errors.New("batch already started")

// Batch is one complete selection run: output folders, the scan, the stored
// run and the statistics file.
type Batch struct {
	Config            Config
	SelectedDir       string
	StatsDir          string // no statistics file when empty
	ClearSelected     bool
	RenameOnCollision bool
	GroupProducts     bool
	Store             *db.ResultDB
	Metrics           Recorder

	selector  *Selector
	startedAt time.Time
}

// Report is the outcome of a finished batch.
type Report struct {
	RunID      string               `json:"run_id"`
	Summary    Summary              `json:"summary"`
	Stats      model.SelectionStats `json:"stats"`
	Products   map[string]int       `json:"products"`
	StatsFile  string               `json:"stats_file,omitempty"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
}

// Begin prepares the selected folder and registers the run. It returns the
// run id, which is known before any file is read.
func (b *Batch) Begin(ctx context.Context) (string, error) {
	if b.selector != nil {
		return "", ErrBatchStarted
	}
	if err := b.Config.Thresholds.Validate(); err != nil {
		return "", err
	}
	if !util.DirExists(b.Config.InputDir) {
		return "", fmt.Errorf("%w: %s", db.ErrRecordDirMissing, b.Config.InputDir)
	}

	if b.ClearSelected {
		if err := util.ClearDir(b.SelectedDir); err != nil {
			return "", fmt.Errorf("clear selected dir: %w", err)
		}
	} else if err := util.EnsureDir(b.SelectedDir); err != nil {
		return "", fmt.Errorf("create selected dir: %w", err)
	}

	runID := uuid.New().String()
	if b.Store != nil {
		var err error
		if runID, err = b.Store.NewRun(ctx, b.Config.InputDir, b.Config.Thresholds); err != nil {
			return "", err
		}
	}

	sel := NewSelector(b.SelectedDir, b.RenameOnCollision)
	sel.Store = b.Store
	sel.RunID = runID
	sel.Metrics = b.Metrics

	b.selector = sel
	b.startedAt = time.Now().UTC()
	return runID, nil
}

// Progress returns the counters so far. Safe to call while Execute runs.
func (b *Batch) Progress() model.SelectionStats {
	if b.selector == nil {
		return model.SelectionStats{}
	}
	return b.selector.Tally.Stats()
}

// Execute runs the selection, calling Begin first when needed. A cancelled or
// failed run is still closed in the store with its partial counters.
func (b *Batch) Execute(ctx context.Context) (*Report, error) {
	if b.selector == nil {
		if _, err := b.Begin(ctx); err != nil {
			return nil, err
		}
	}
	sel := b.selector

	logger.Info("Selection started",
		zap.String("run_id", sel.RunID),
		zap.String("input_dir", b.Config.InputDir),
		zap.Int("workers", b.Config.Workers))

	sum, runErr := Run(ctx, b.Config, sel)

	rep := &Report{
		RunID:      sel.RunID,
		Summary:    sum,
		Stats:      sel.Tally.Stats(),
		Products:   sel.Tally.Products(),
		StartedAt:  b.startedAt,
		FinishedAt: time.Now().UTC(),
	}

	if b.Store != nil {
		if err := b.Store.FinishRun(context.WithoutCancel(ctx), sel.RunID, rep.Stats); err != nil {
			return rep, errors.Join(runErr, err)
		}
	}
	if runErr != nil {
		return rep, runErr
	}

	if b.StatsDir != "" {
		path, err := render.SaveStatsReport(b.StatsDir, render.ReportData{
			RunID:      rep.RunID,
			FinishedAt: rep.FinishedAt,
			Thresholds: b.Config.Thresholds,
			Stats:      rep.Stats,
			Products:   rep.Products,
			Grouped:    b.GroupProducts,
		})
		if err != nil {
			return rep, err
		}
		rep.StatsFile = path
	}

	logger.Info("Selection finished",
		zap.String("run_id", rep.RunID),
		zap.Int("passed_main", rep.Stats.PassedMain),
		zap.Int("passed_second_chance", rep.Stats.PassedSecondChance),
		zap.Int("discarded", rep.Stats.Discarded),
		zap.Int("skipped", rep.Stats.Skipped),
		zap.Duration("elapsed", rep.FinishedAt.Sub(rep.StartedAt)))
	return rep, nil
}
