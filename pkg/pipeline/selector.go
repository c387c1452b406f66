package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/yumyai/bgcselect/logger"
	"github.com/yumyai/bgcselect/pkg/db"
	"github.com/yumyai/bgcselect/pkg/model"
	"go.uber.org/zap"
)

// Recorder receives one observation per consumed file. Skipped files are
// reported with an empty verdict.
type Recorder interface {
	ObserveRecord(v model.Verdict, elapsed time.Duration)
}

// Selector copies selected records into SelectedDir and keeps the statistics
// of a run. Store and Metrics are optional.
type Selector struct {
	SelectedDir       string
	RenameOnCollision bool
	Tally             *model.Tally
	Store             *db.ResultDB
	RunID             string
	Metrics           Recorder
}

func NewSelector(selectedDir string, rename bool) *Selector {
	return &Selector{
		SelectedDir:       selectedDir,
		RenameOnCollision: rename,
		Tally:             model.NewTally(),
	}
}

// ClusterResultFrom converts an analyzed file into its stored form.
func ClusterResultFrom(r Result) db.ClusterResult {
	a := r.Assessment
	return db.ClusterResult{
		FileName:        r.FileName(),
		Path:            r.Path,
		Name:            a.Summary.Name,
		LengthBP:        a.Summary.LengthBP,
		Products:        a.Summary.Products,
		CoreGenes:       len(a.Genes.Core),
		AdditionalGenes: len(a.Genes.Additional),
		Verdict:         a.Verdict,
	}
}

func (s *Selector) Consume(ctx context.Context, r Result) error {
	if r.Err != nil {
		logger.Warn("Skipping record", zap.String("file", r.Path), zap.Error(r.Err))
		s.Tally.Skip()
		s.observe("", r.Elapsed)
		return nil
	}

	cr := ClusterResultFrom(r)
	if cr.Verdict.Selected() {
		dest, err := db.CopyRecord(r.Path, s.SelectedDir, s.RenameOnCollision)
		if err != nil {
			return fmt.Errorf("copy selected record: %w", err)
		}
		if dest == "" {
			logger.Warn("Selected record not copied, name already taken", zap.String("file", cr.FileName))
		}
		cr.CopiedTo = dest
	}
	s.Tally.Add(cr.Verdict, cr.Products)

	if s.Store != nil {
		if err := s.Store.SaveClusterResult(ctx, s.RunID, cr); err != nil {
			return err
		}
	}
	s.observe(cr.Verdict, r.Elapsed)

	logger.Debug("Record assessed",
		zap.String("file", cr.FileName),
		zap.String("verdict", string(cr.Verdict)),
		zap.Strings("products", cr.Products))
	return nil
}

func (s *Selector) observe(v model.Verdict, elapsed time.Duration) {
	if s.Metrics != nil {
		s.Metrics.ObserveRecord(v, elapsed)
	}
}
