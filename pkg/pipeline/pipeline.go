package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/yumyai/bgcselect/logger"
	"github.com/yumyai/bgcselect/pkg/db"
	"github.com/yumyai/bgcselect/pkg/model"
	"go.uber.org/zap"
)

// Config controls one scan of an input directory.
type Config struct {
	InputDir                  string
	IgnorePatterns            []string
	Workers                   int // number of worker goroutines (>=1)
	RequireSingleClusterLabel bool
	Thresholds                model.Thresholds
}

// Result is the outcome for one record file. Err is set when the file was
// skipped before analysis; Assessment is then nil.
type Result struct {
	Path       string
	Assessment *model.Assessment
	Err        error
	Elapsed    time.Duration
}

func (r Result) FileName() string {
	return filepath.Base(r.Path)
}

// Consumer receives results one at a time, never concurrently.
type Consumer interface {
	Consume(ctx context.Context, r Result) error
}

type ConsumerFunc func(ctx context.Context, r Result) error

func (f ConsumerFunc) Consume(ctx context.Context, r Result) error {
	return f(ctx, r)
}

// Summary describes the files a scan touched.
type Summary struct {
	Unzipped   int `json:"unzipped"`
	Discovered int `json:"discovered"`
	Processed  int `json:"processed"`
}

// Process reads, checks and assesses a single record file.
func Process(path string, requireLabel bool, th model.Thresholds) Result {
	start := time.Now()
	res := Result{Path: path}

	text, err := db.ReadRecord(path)
	if err == nil {
		err = model.CheckRecord(text, requireLabel)
	}
	if err != nil {
		res.Err = err
		res.Elapsed = time.Since(start)
		return res
	}

	a := model.Assess(text, th)
	res.Assessment = &a
	res.Elapsed = time.Since(start)
	return res
}

// Run unzips and discovers the records of cfg.InputDir, assesses them on
// cfg.Workers goroutines and streams the results to consumer. It returns the
// first consumer error, or the context error when cancelled.
func Run(parent context.Context, cfg Config, consumer Consumer) (Summary, error) {
	var sum Summary

	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return sum, err
	}

	rd, err := db.NewRecordDir(cfg.InputDir, cfg.IgnorePatterns)
	if err != nil {
		return sum, err
	}
	if sum.Unzipped, err = rd.Unzip(); err != nil {
		return sum, fmt.Errorf("unzip input: %w", err)
	}
	paths, err := rd.Discover()
	if err != nil {
		return sum, err
	}
	sum.Discovered = len(paths)
	logger.Info("Records discovered",
		zap.String("input_dir", cfg.InputDir),
		zap.Int("files", len(paths)),
		zap.Int("unzipped", sum.Unzipped))

	// A consumer error stops the workers early.
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	jobs := make(chan string, cfg.Workers*2)
	results := make(chan Result, cfg.Workers*2)

	// Workers
	var wg sync.WaitGroup
	wg.Add(cfg.Workers)
	for w := 0; w < cfg.Workers; w++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case path, ok := <-jobs:
					if !ok {
						return
					}
					res := Process(path, cfg.RequireSingleClusterLabel, cfg.Thresholds)
					select {
					case results <- res:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
	}

	// Collector
	var (
		cerr error
		cwg  sync.WaitGroup
	)
	cwg.Add(1)
	go func() {
		defer cwg.Done()
		for res := range results {
			if cerr != nil {
				continue
			}
			sum.Processed++
			if err := consumer.Consume(ctx, res); err != nil {
				cerr = err
				cancel()
			}
		}
	}()

	// Feed work
feed:
	for _, p := range paths {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- p:
		}
	}

	close(jobs)
	wg.Wait()
	close(results)
	cwg.Wait()

	if cerr != nil {
		return sum, cerr
	}
	return sum, parent.Err()
}
