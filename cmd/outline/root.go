package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgallion1/docoutline/internal/config"
	"github.com/dgallion1/docoutline/internal/output"
	"github.com/dgallion1/docoutline/internal/pathstore"
	"github.com/dgallion1/docoutline/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	inputDir     string
	outputDir    string
	outputFormat string
	workers      int
	noStats      bool
	validate     bool
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "outline",
	Short: "Infer titles and heading outlines from documents",
	Long: `outline reads every supported document in the input directory and writes
one result file per document plus processing_summary.json to the output directory.

Supported inputs: .pdf, .docx, .html, .htm, .md, .markdown, .txt

Settings default to the environment (INPUT_DIR, OUTPUT_DIR, OUTPUT_FORMAT,
WORKER_COUNT, TITLE_PAGE_WINDOW, ...); flags override them.

Examples:
  outline                                  # /app/input -> /app/output
  outline -i ./docs -o ./out --format yaml
  outline watch -i ./inbox -o ./out        # process files as they arrive`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&inputDir, "input", "i", "", "input directory (default: $INPUT_DIR or /app/input)")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "output directory (default: $OUTPUT_DIR or /app/output)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "", "result format: json or yaml (default: $OUTPUT_FORMAT or json)")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "w", 0, "parallel documents (default: $WORKER_COUNT or 4)")
	rootCmd.PersistentFlags().BoolVar(&noStats, "no-stats", false, "omit font analysis and statistics from results")
	rootCmd.PersistentFlags().BoolVar(&validate, "validate", true, "validate each result against the output schema before writing")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(watchCmd)
}

// env is the resolved configuration shared by the subcommands.
type env struct {
	cfg    config.Config
	log    *slog.Logger
	worker *pipeline.Worker
	writer *output.Writer
	stats  *pipeline.LatencyStats
}

func setup() (*env, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := config.Load()
	if inputDir != "" {
		cfg.InputDir = inputDir
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if outputFormat != "" {
		cfg.OutputFormat = outputFormat
	}
	if workers > 0 {
		cfg.WorkerCount = workers
	}
	if noStats {
		cfg.IncludeStats = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	format, err := output.ParseFormat(cfg.OutputFormat)
	if err != nil {
		return nil, err
	}

	var validator *output.Validator
	if validate {
		if validator, err = output.NewValidator(); err != nil {
			return nil, err
		}
	}

	writer, err := output.NewWriter(cfg.OutputDir, format, validator, log)
	if err != nil {
		return nil, err
	}

	var store pipeline.OutlineStore
	if cfg.PathstoreEnabled() {
		store = pathstore.NewClient(cfg.PathstoreURL, cfg.PathstoreAPIKey)
	}

	stats := pipeline.NewLatencyStats(24 * time.Hour)
	return &env{
		cfg:    cfg,
		log:    log,
		worker: pipeline.NewWorkerFromConfig(cfg, store, stats, log),
		writer: writer,
		stats:  stats,
	}, nil
}

func fail(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
	return err
}
