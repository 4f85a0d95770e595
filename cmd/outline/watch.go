package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgallion1/docoutline/internal/parser"
	"github.com/dgallion1/docoutline/internal/pipeline"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var settle time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Process documents as they appear in the input directory",
	Long: `Watch processes every supported file already in the input directory, then
keeps running and outlines files as they are created or rewritten. The
processing summary is rewritten after each document.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return fail(cmd, err)
		}
		if err := watch(cmd, e); err != nil {
			return fail(cmd, err)
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().DurationVar(&settle, "settle", 500*time.Millisecond, "quiet period after the last write before a file is processed")
}

func watch(cmd *cobra.Command, e *env) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(e.cfg.InputDir); err != nil {
		return fmt.Errorf("watch %s: %w", e.cfg.InputDir, err)
	}

	// Outcomes are keyed by filename so a rewritten file replaces its row.
	var mu sync.Mutex
	rows := make(map[string]pipeline.FileSummary)
	record := func(out pipeline.Outcome) {
		mu.Lock()
		defer mu.Unlock()
		delete(rows, out.Filename)
		if out.OK() {
			if err := e.writer.Emit(out); err != nil {
				e.log.Error("write output failed", "filename", out.Filename, "error", err)
				return
			}
			rows[out.Filename] = pipeline.SummarizeOutcome(out)
		}
		summary := pipeline.NewSummary()
		for _, fs := range rows {
			summary.Add(fs)
		}
		if err := e.writer.WriteSummary(summary); err != nil {
			e.log.Error("failed to write processing summary", "error", err)
		}
	}

	existing, _, err := scanInputs(e.cfg.InputDir)
	if err != nil {
		return err
	}
	for _, in := range existing {
		record(e.worker.Run(ctx, in))
	}

	queue := make(chan string, 64)
	var timersMu sync.Mutex
	timers := make(map[string]*time.Timer)
	schedule := func(path string) {
		timersMu.Lock()
		defer timersMu.Unlock()
		if t, ok := timers[path]; ok {
			t.Reset(settle)
			return
		}
		timers[path] = time.AfterFunc(settle, func() {
			timersMu.Lock()
			delete(timers, path)
			timersMu.Unlock()
			select {
			case queue <- path:
			case <-ctx.Done():
			}
		})
	}

	var wg sync.WaitGroup
	for range max(e.cfg.WorkerCount, 1) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case path := <-queue:
					record(e.worker.Run(ctx, pipeline.Input{Filename: filepath.Base(path), Path: path}))
				}
			}
		}()
	}

	defer func() {
		cancel()
		wg.Wait()
	}()

	e.log.Info("watching for documents", "input_dir", e.cfg.InputDir, "output_dir", e.cfg.OutputDir)
	for {
		select {
		case <-ctx.Done():
			e.log.Info("stopping watcher")
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !parser.IsSupportedExtension(ev.Name) {
				continue
			}
			e.log.Debug("file event", "path", ev.Name, "op", ev.Op.String())
			schedule(ev.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.log.Warn("watcher error", "error", err)
		}
	}
}
