package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yumyai/bgcselect/pkg/model"

	_ "modernc.org/sqlite"
)

var ErrRunNotFound = errors.New("run not found")

const schema = `
	CREATE TABLE IF NOT EXISTS runs (
		run_id       TEXT PRIMARY KEY,
		input_dir    TEXT NOT NULL,
		thresholds   TEXT NOT NULL,
		started_at   TIMESTAMP NOT NULL,
		finished_at  TIMESTAMP,
		passed_main  INTEGER NOT NULL DEFAULT 0,
		passed_second_chance INTEGER NOT NULL DEFAULT 0,
		discarded    INTEGER NOT NULL DEFAULT 0,
		skipped      INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS cluster_results (
		run_id       TEXT NOT NULL REFERENCES runs(run_id),
		file_name    TEXT NOT NULL,
		path         TEXT NOT NULL,
		name         TEXT,
		length_bp    INTEGER NOT NULL,
		products     TEXT NOT NULL,
		core_genes   INTEGER NOT NULL,
		additional_genes INTEGER NOT NULL,
		verdict      TEXT NOT NULL,
		copied_to    TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_cluster_results_run ON cluster_results(run_id, verdict);
`

// Run is one batch selection over an input directory.
type Run struct {
	RunID      string               `json:"run_id"`
	InputDir   string               `json:"input_dir"`
	Thresholds model.Thresholds     `json:"thresholds"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt *time.Time           `json:"finished_at,omitempty"`
	Stats      model.SelectionStats `json:"stats"`
}

// ClusterResult is the persisted outcome for one record file.
type ClusterResult struct {
	FileName        string        `json:"file_name"`
	Path            string        `json:"path"`
	Name            *string       `json:"name"`
	LengthBP        int           `json:"length_bp"`
	Products        []string      `json:"products"`
	CoreGenes       int           `json:"core_genes"`
	AdditionalGenes int           `json:"additional_genes"`
	Verdict         model.Verdict `json:"verdict"`
	CopiedTo        string        `json:"copied_to,omitempty"`
}

// ResultDB keeps runs and per-cluster verdicts in sqlite.
type ResultDB struct {
	db *sql.DB
}

func OpenResultDB(path string) (*ResultDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open result db %s: %w", path, err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	rdb := &ResultDB{db: db}
	if err := rdb.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return rdb, nil
}

func (r *ResultDB) migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (r *ResultDB) Close() error {
	return r.db.Close()
}

// NewRun registers a run and returns its id.
func (r *ResultDB) NewRun(ctx context.Context, inputDir string, th model.Thresholds) (string, error) {
	thJSON, err := json.Marshal(th)
	if err != nil {
		return "", err
	}

	runID := uuid.New().String()
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, input_dir, thresholds, started_at) VALUES (?, ?, ?, ?)`,
		runID, inputDir, string(thJSON), time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return runID, nil
}

func (r *ResultDB) SaveClusterResult(ctx context.Context, runID string, c ClusterResult) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cluster_results
			(run_id, file_name, path, name, length_bp, products, core_genes, additional_genes, verdict, copied_to)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, c.FileName, c.Path, c.Name, c.LengthBP, model.ProductKey(c.Products),
		c.CoreGenes, c.AdditionalGenes, string(c.Verdict), c.CopiedTo)
	if err != nil {
		return fmt.Errorf("insert cluster result %s: %w", c.FileName, err)
	}
	return nil
}

// FinishRun stores the final counters of a run.
func (r *ResultDB) FinishRun(ctx context.Context, runID string, stats model.SelectionStats) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, passed_main = ?, passed_second_chance = ?, discarded = ?, skipped = ?
		WHERE run_id = ?`,
		time.Now().UTC(), stats.PassedMain, stats.PassedSecondChance, stats.Discarded, stats.Skipped, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRunNotFound
	}
	return nil
}

const runColumns = `run_id, input_dir, thresholds, started_at, finished_at, passed_main, passed_second_chance, discarded, skipped`

func scanRun(row interface{ Scan(...any) error }) (*Run, error) {
	var (
		run      Run
		thJSON   string
		finished sql.NullTime
	)
	if err := row.Scan(&run.RunID, &run.InputDir, &thJSON, &run.StartedAt, &finished,
		&run.Stats.PassedMain, &run.Stats.PassedSecondChance, &run.Stats.Discarded, &run.Stats.Skipped); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(thJSON), &run.Thresholds); err != nil {
		return nil, fmt.Errorf("decode thresholds of run %s: %w", run.RunID, err)
	}
	if finished.Valid {
		run.FinishedAt = &finished.Time
	}
	return &run, nil
}

func (r *ResultDB) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return run, nil
}

// ListRuns returns runs, newest first.
func (r *ResultDB) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListClusterResults returns the results of a run in file-name order. An empty
// verdict returns all of them.
func (r *ResultDB) ListClusterResults(ctx context.Context, runID string, verdict model.Verdict) ([]*ClusterResult, error) {

	stm, err := r.db.PrepareContext(ctx, `
		SELECT file_name, path, name, length_bp, products, core_genes, additional_genes, verdict, copied_to
		FROM cluster_results
		WHERE run_id = ? AND (? = '' OR verdict = ?)
		ORDER BY file_name`)
	if err != nil {
		return nil, err
	}
	defer stm.Close()

	rows, err := stm.QueryContext(ctx, runID, string(verdict), string(verdict))
	if err != nil {
		return nil, fmt.Errorf("list cluster results: %w", err)
	}
	defer rows.Close()

	results := make([]*ClusterResult, 0, 32)
	for rows.Next() {
		var (
			c        ClusterResult
			name     sql.NullString
			products string
			v        string
		)
		if err := rows.Scan(&c.FileName, &c.Path, &name, &c.LengthBP, &products,
			&c.CoreGenes, &c.AdditionalGenes, &v, &c.CopiedTo); err != nil {
			return nil, fmt.Errorf("scan cluster result: %w", err)
		}
		if name.Valid {
			c.Name = &name.String
		}
		c.Products = splitProducts(products)
		c.Verdict = model.Verdict(v)
		results = append(results, &c)
	}
	return results, rows.Err()
}

// ProductCounts returns product statistics of the selected clusters of a run.
func (r *ResultDB) ProductCounts(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT products, COUNT(*) FROM cluster_results
		WHERE run_id = ? AND verdict IN (?, ?)
		GROUP BY products`,
		runID, string(model.VerdictPassedMain), string(model.VerdictPassedSecondChance))
	if err != nil {
		return nil, fmt.Errorf("product counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		counts[key] = n
	}
	return counts, rows.Err()
}

func splitProducts(joined string) []string {
	if joined == "" {
		return []string{}
	}
	return strings.Split(joined, "+")
}
