package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yumyai/bgcselect/internal/config"
	"github.com/yumyai/bgcselect/internal/util"
	"github.com/yumyai/bgcselect/logger"
	"github.com/yumyai/bgcselect/pkg/db"
	"github.com/yumyai/bgcselect/pkg/handler"
	"github.com/yumyai/bgcselect/pkg/middle"
	"github.com/yumyai/bgcselect/pkg/model"
	"github.com/yumyai/bgcselect/pkg/pipeline"
	"github.com/yumyai/bgcselect/pkg/render"
	"github.com/yumyai/bgcselect/pkg/watch"
	"go.uber.org/zap"
)

const VERSION = "0.1.0"

var (
	configPath string
	cfg        *config.Config
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCommand().ExecuteContext(ctx)
	logger.Sync() // Make sure that the buffered is flushed.
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "bgcselect",
		Short:         "Select complete biosynthetic gene clusters from antiSMASH output",
		Version:       VERSION,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Try load env
			dotenvErr := godotenv.Load()
			if dotenvErr != nil && !errors.Is(dotenvErr, os.ErrNotExist) {
				return fmt.Errorf("load .env: %w", dotenvErr)
			}

			var err error
			if cfg, err = config.Load(configPath, cmd.Flags()); err != nil {
				return err
			}

			level, err := logger.ParseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			if err := logger.InitLogger(level); err != nil {
				return err
			}

			if dotenvErr != nil {
				logger.Warn("No .env found, using local environment")
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "config file (YAML)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("data-dir", "./data", "base folder for input, selected, stats and the result db")
	pf.Int("workers", 0, "number of analysis workers (default: number of CPUs)")
	pf.Bool("require-single-cluster-label", true, "skip records without the single-cluster note")

	root.AddCommand(newSelectCommand(), newAnalyzeCommand(), newServeCommand(), newWatchCommand())
	return root
}

func openStore() (*db.ResultDB, error) {
	if err := util.EnsureDir(filepath.Dir(cfg.DBPath)); err != nil {
		return nil, err
	}
	logger.Info("Open database on", zap.String("DB_LOC", cfg.DBPath))
	return db.OpenResultDB(cfg.DBPath)
}

func pipelineConfig() pipeline.Config {
	return pipeline.Config{
		InputDir:                  cfg.InputDir,
		IgnorePatterns:            cfg.IgnorePatterns,
		Workers:                   cfg.Workers,
		RequireSingleClusterLabel: cfg.RequireSingleClusterLabel,
		Thresholds:                cfg.Thresholds,
	}
}

func newSelectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Run one selection over the input directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			b := &pipeline.Batch{
				Config:            pipelineConfig(),
				SelectedDir:       cfg.SelectedDir,
				StatsDir:          cfg.StatsDir,
				ClearSelected:     cfg.ClearSelected,
				RenameOnCollision: cfg.RenameOnCollision,
				GroupProducts:     cfg.GroupProducts,
				Store:             store,
			}
			rep, err := b.Execute(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s\n", rep.RunID)
			fmt.Fprintf(out, "  passed main selection:          %d\n", rep.Stats.PassedMain)
			fmt.Fprintf(out, "  passed second-chance selection: %d\n", rep.Stats.PassedSecondChance)
			fmt.Fprintf(out, "  discarded:                      %d\n", rep.Stats.Discarded)
			fmt.Fprintf(out, "  skipped:                        %d\n", rep.Stats.Skipped)
			if rep.StatsFile != "" {
				fmt.Fprintf(out, "Statistics: %s\n", rep.StatsFile)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.String("input-dir", "", "folder of antiSMASH .gbk files (default: <data-dir>/input)")
	f.String("selected-dir", "", "folder receiving selected files (default: <data-dir>/selected)")
	f.String("stats-dir", "", "folder for the statistics file (default: <data-dir>/stats)")
	f.Bool("clear-selected", true, "empty the selected folder before selecting")
	f.Bool("rename-on-collision", true, "keep both files when a selected name already exists")
	f.Bool("group-products", false, "group product statistics into predefined classes")
	return cmd
}

func newAnalyzeCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze FILE...",
		Short: "Print the verdict of individual record files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Thresholds.Validate(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			if !asJSON {
				fmt.Fprintln(tw, "FILE\tVERDICT\tNAME\tLENGTH\tPRODUCTS\tCORE\tADDITIONAL")
			}

			for _, path := range args {
				res := pipeline.Process(path, cfg.RequireSingleClusterLabel, cfg.Thresholds)
				if res.Err != nil {
					logger.Warn("Skipping record", zap.String("file", path), zap.Error(res.Err))
					if !asJSON {
						fmt.Fprintf(tw, "%s\tskipped: %v\t\t\t\t\t\n", res.FileName(), res.Err)
					}
					continue
				}

				cr := pipeline.ClusterResultFrom(res)
				if asJSON {
					if err := enc.Encode(cr); err != nil {
						return err
					}
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%d\t%d\n",
					cr.FileName, cr.Verdict, res.Assessment.Summary.NameOrEmpty(),
					cr.LengthBP, model.ProductKey(cr.Products),
					cr.CoreGenes, cr.AdditionalGenes)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print one JSON object per file")
	return cmd
}

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			jobs := handler.NewJobManager(ctx)
			app := &handler.AppContext{
				Config:  cfg,
				Store:   store,
				Jobs:    jobs,
				Metrics: middle.NewMetrics(),
			}

			srv := &http.Server{
				Addr:              cfg.Listen,
				Handler:           NewRouter(app),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Server starting", zap.String("version", VERSION), zap.String("listen", cfg.Listen))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("http server: %w", err)
				}
			case <-ctx.Done():
				logger.Info("Shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Error("Shutdown failed", zap.Error(err))
				}
			}

			// Running jobs see the cancelled context and close their runs.
			jobs.Wait()
			return nil
		},
	}

	cmd.Flags().String("listen", "0.0.0.0:8080", "listen address")
	return cmd
}

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Classify record files as they land in the input directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if err := util.EnsureDir(cfg.InputDir); err != nil {
				return err
			}
			if err := util.EnsureDir(cfg.SelectedDir); err != nil {
				return err
			}

			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			runID, err := store.NewRun(ctx, cfg.InputDir, cfg.Thresholds)
			if err != nil {
				return err
			}

			sel := pipeline.NewSelector(cfg.SelectedDir, cfg.RenameOnCollision)
			sel.Store = store
			sel.RunID = runID

			w, err := watch.New(watch.Config{
				Dir:                       cfg.InputDir,
				IgnorePatterns:            cfg.IgnorePatterns,
				Debounce:                  cfg.WatchDebounce,
				RequireSingleClusterLabel: cfg.RequireSingleClusterLabel,
				Thresholds:                cfg.Thresholds,
			}, sel)
			if err != nil {
				return err
			}

			runErr := w.Run(ctx)

			stats := sel.Tally.Stats()
			if err := store.FinishRun(context.WithoutCancel(ctx), runID, stats); err != nil {
				return errors.Join(runErr, err)
			}
			if runErr != nil {
				return runErr
			}

			_, err = render.SaveStatsReport(cfg.StatsDir, render.ReportData{
				RunID:      runID,
				FinishedAt: time.Now(),
				Thresholds: cfg.Thresholds,
				Stats:      stats,
				Products:   sel.Tally.Products(),
				Grouped:    cfg.GroupProducts,
			})
			return err
		},
	}

	f := cmd.Flags()
	f.String("input-dir", "", "folder to watch (default: <data-dir>/input)")
	f.String("selected-dir", "", "folder receiving selected files (default: <data-dir>/selected)")
	f.Duration("watch-debounce", 2*time.Second, "quiet period before a new file is read")
	return cmd
}
