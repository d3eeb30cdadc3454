package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/timmy/folio/internal/app"
	"github.com/timmy/folio/internal/config"
	"github.com/timmy/folio/internal/logger"
	"github.com/timmy/folio/internal/service"
	"github.com/timmy/folio/internal/source/dataset"
)

var (
	configPath string
	verbose    bool

	cfg       *config.Config
	appLogger *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "folio-upload",
	Short: "Bulk upload certificates into the portfolio",
	Long: `folio-upload pushes certificate datasets into the portfolio database.

Each dataset is a directory holding manifest.jsonl and an images/ folder.
Jobs run one at a time: the image is uploaded to object storage, then the
certificate record is saved. Press Ctrl-C once to stop after the current job,
twice to abort immediately.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "info"
		if verbose {
			level = "debug"
		}
		appLogger = logger.New(&logger.Config{
			Level:       level,
			Format:      "text",
			Output:      os.Stderr,
			ServiceName: "folio-upload",
		})
		logger.SetDefaultLogger(appLogger)

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run <dataset>",
	Short: "Upload every certificate in a dataset",
	Long: `Upload every certificate in a dataset.

The argument is a dataset name under upload.dataset_path or a path to a
dataset directory.

Examples:
  folio-upload run aws-2024
  folio-upload run ./exports/coursera`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List datasets available under upload.dataset_path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := dataset.ListDatasets(cfg.Upload.DatasetPath)
		if err != nil {
			return fmt.Errorf("list datasets: %w", err)
		}
		if len(names) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No datasets found in %s\n", cfg.Upload.DatasetPath)
			return nil
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent upload runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stores, err := app.OpenStores(&cfg.Database)
		if err != nil {
			return err
		}
		defer stores.Close()

		runs, err := stores.Runs.List(cmd.Context(), runsLimit)
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		out := cmd.OutOrStdout()
		for _, r := range runs {
			fmt.Fprintf(out, "%s  %-9s  %d/%d processed, %d succeeded, %d failed  started %s\n",
				r.ID, r.Status, r.Processed, r.TotalJobs, r.Succeeded, r.Failed, r.StartedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 10, "number of runs to show")

	rootCmd.AddCommand(runCmd, listCmd, runsCmd)
}

// resolveDataset accepts a dataset name or a directory path.
func resolveDataset(arg, basePath string) string {
	if info, err := os.Stat(arg); err == nil && info.IsDir() {
		return arg
	}
	return filepath.Join(basePath, arg)
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	src := dataset.NewAdapter(resolveDataset(args[0], cfg.Upload.DatasetPath))
	records, err := src.Load(ctx)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}

	stores, err := app.OpenStores(&cfg.Database)
	if err != nil {
		return err
	}
	defer stores.Close()

	uploads, err := app.NewUploadService(ctx, cfg, stores, appLogger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	uploads.OnProgress(func(p service.Progress) {
		fmt.Fprintf(out, "\r[%3d%%] job %d/%d at %3d%%", p.Overall, p.JobIndex+1, p.Total, p.Current)
	})

	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case <-sigs:
		case <-ctx.Done():
			return
		}
		fmt.Fprintln(out, "\nStopping after the current job, press Ctrl-C again to abort")
		_ = uploads.Stop(ctx)

		select {
		case <-sigs:
			cancel()
		case <-ctx.Done():
		}
	}()

	state, err := uploads.Run(ctx, src.Name(), records)
	fmt.Fprintln(out)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Run %s: %d/%d processed, %d succeeded, %d failed\n",
		state.RunID, state.Processed, state.Total, state.Succeeded, state.Failed)
	for _, f := range state.Failures {
		fmt.Fprintf(out, "  #%d %s: %s\n", f.Index+1, f.Name, f.Error)
	}
	if state.Stopped {
		fmt.Fprintln(out, "Run was stopped before all jobs were processed")
	}
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
