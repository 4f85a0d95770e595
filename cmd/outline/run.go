package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/dgallion1/docoutline/internal/parser"
	"github.com/dgallion1/docoutline/internal/pipeline"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func runBatch(cmd *cobra.Command) error {
	e, err := setup()
	if err != nil {
		return fail(cmd, err)
	}

	inputs, size, err := scanInputs(e.cfg.InputDir)
	if err != nil {
		return fail(cmd, err)
	}
	if len(inputs) == 0 {
		e.log.Warn("no supported files found", "input_dir", e.cfg.InputDir)
		return nil
	}
	e.log.Info("found files to process",
		"count", len(inputs),
		"size", humanize.Bytes(uint64(size)),
		"workers", e.cfg.WorkerCount,
	)

	summary, _ := pipeline.RunBatch(cmd.Context(), e.worker, inputs, e.cfg.WorkerCount, e.writer.Emit)
	if err := e.writer.WriteSummary(summary); err != nil {
		e.log.Error("failed to write processing summary", "error", err)
	}

	lat := e.stats.Snapshot()
	e.log.Info("completed processing",
		"processed", summary.ProcessedFiles,
		"failed", len(summary.FailedFiles),
		"languages", summary.LanguagesDetected,
		"p50_ms", lat.P50Ms,
		"max_ms", lat.MaxMs,
	)
	return nil
}

// scanInputs lists the supported files directly under dir, sorted by name.
func scanInputs(dir string) ([]pipeline.Input, int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, fmt.Errorf("read input dir: %w", err)
	}

	var inputs []pipeline.Input
	var total int64
	for _, entry := range entries {
		if entry.IsDir() || !parser.IsSupportedExtension(entry.Name()) {
			continue
		}
		if info, err := entry.Info(); err == nil {
			total += info.Size()
		}
		inputs = append(inputs, pipeline.Input{
			Filename: entry.Name(),
			Path:     filepath.Join(dir, entry.Name()),
		})
	}
	sort.Slice(inputs, func(i, j int) bool { return inputs[i].Filename < inputs[j].Filename })
	return inputs, total, nil
}
