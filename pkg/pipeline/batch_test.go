package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yumyai/bgcselect/internal/testutil"
	"github.com/yumyai/bgcselect/pkg/db"
	"github.com/yumyai/bgcselect/pkg/model"
	"github.com/yumyai/bgcselect/pkg/render"
)

type countingRecorder struct {
	verdicts []model.Verdict
}

func (c *countingRecorder) ObserveRecord(v model.Verdict, _ time.Duration) {
	c.verdicts = append(c.verdicts, v)
}

func newBatch(t *testing.T) (*Batch, string) {
	t.Helper()
	root := t.TempDir()
	input := filepath.Join(root, "input")

	testutil.WriteRecord(t, input, "main.region001.gbk", testutil.DefaultRecord())
	testutil.WriteRecord(t, input, "second.region001.gbk", testutil.SecondChanceRecord())
	testutil.WriteRecord(t, input, "nested/discarded.region001.gbk", testutil.DiscardedRecord())
	testutil.WriteText(t, input, "broken.region001.gbk", "LOCUS broken\n")

	store, err := db.OpenResultDB(filepath.Join(root, "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := testConfig(input)
	cfg.Workers = 2
	return &Batch{
		Config:            cfg,
		SelectedDir:       filepath.Join(root, "selected"),
		StatsDir:          filepath.Join(root, "stats"),
		ClearSelected:     true,
		RenameOnCollision: true,
		Store:             store,
	}, root
}

func TestBatchExecute(t *testing.T) {
	ctx := context.Background()
	b, root := newBatch(t)
	rec := &countingRecorder{}
	b.Metrics = rec

	// Left over from an earlier run; cleared before selecting.
	testutil.WriteText(t, b.SelectedDir, "stale.gbk", "old")

	rep, err := b.Execute(ctx)
	require.NoError(t, err)

	assert.Equal(t, model.SelectionStats{PassedMain: 1, PassedSecondChance: 1, Discarded: 1, Skipped: 1}, rep.Stats)
	assert.Equal(t, map[string]int{"NRPS+T1PKS": 1, "terpene": 1}, rep.Products)
	assert.Equal(t, 4, rep.Summary.Discovered)
	assert.Len(t, rec.verdicts, 4)
	assert.Equal(t, rep.Stats, b.Progress())

	entries, err := os.ReadDir(b.SelectedDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"main.region001.gbk", "second.region001.gbk"}, names)

	assert.Equal(t, filepath.Join(root, "stats", render.StatsFileName), rep.StatsFile)
	assert.FileExists(t, rep.StatsFile)

	run, err := b.Store.GetRun(ctx, rep.RunID)
	require.NoError(t, err)
	assert.Equal(t, rep.Stats, run.Stats)
	require.NotNil(t, run.FinishedAt)

	results, err := b.Store.ListClusterResults(ctx, rep.RunID, model.VerdictPassedSecondChance)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "second.region001.gbk", results[0].FileName)
	assert.Equal(t, filepath.Join(b.SelectedDir, "second.region001.gbk"), results[0].CopiedTo)
	assert.Equal(t, 5, results[0].AdditionalGenes)
}

func TestBatchKeepsSelectedDirAndRenames(t *testing.T) {
	b, _ := newBatch(t)
	b.ClearSelected = false
	b.StatsDir = ""
	testutil.WriteText(t, b.SelectedDir, "main.region001.gbk", "old")

	rep, err := b.Execute(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rep.StatsFile)

	assert.FileExists(t, filepath.Join(b.SelectedDir, "main.region001.gbk__latest_output"))
	old, err := os.ReadFile(filepath.Join(b.SelectedDir, "main.region001.gbk"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(old))
}

func TestBatchBeginTwice(t *testing.T) {
	b, _ := newBatch(t)
	runID, err := b.Begin(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, runID)

	_, err = b.Begin(context.Background())
	assert.ErrorIs(t, err, ErrBatchStarted)

	rep, err := b.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, runID, rep.RunID)
}
