package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dgallion1/docoutline/internal/config"
	"github.com/dgallion1/docoutline/internal/doctree"
	"github.com/dgallion1/docoutline/internal/langdetect"
	"github.com/dgallion1/docoutline/internal/normalize"
	"github.com/dgallion1/docoutline/internal/outline"
	"github.com/dgallion1/docoutline/internal/parser"
	"github.com/dgallion1/docoutline/internal/pathstore"
	"github.com/google/uuid"
)

// OutlineStore persists outlines and answers content-hash lookups.
type OutlineStore interface {
	LookupHash(ctx context.Context, hash string) (string, bool, error)
	LoadOutline(ctx context.Context, docID string) (*pathstore.StoredOutline, error)
	SaveOutline(ctx context.Context, rec pathstore.StoredOutline) error
}

// Input is one document to outline. Data is used when set, otherwise the
// file at Path is read.
type Input struct {
	Filename string
	Path     string
	Data     []byte
}

// Outcome is the result of processing one document.
type Outcome struct {
	Filename    string
	DocID       string
	ContentHash string
	Pages       int
	Duration    time.Duration
	Result      *outline.Result
	Duplicate   bool

	// Err is nil on success, wraps outline.ErrEmpty for blank documents
	// (Result is still set) and outline.ErrUnreadable when no spans could
	// be read.
	Err error
}

// Empty reports whether the document had no extractable text.
func (o Outcome) Empty() bool {
	return errors.Is(o.Err, outline.ErrEmpty)
}

// OK reports whether the outcome carries an outline.
func (o Outcome) OK() bool {
	return o.Result != nil && (o.Err == nil || o.Empty())
}

// Worker reads a document, infers its outline and optionally stores it.
// A Worker is safe for concurrent use.
type Worker struct {
	engine *outline.Engine
	store  OutlineStore
	stats  *LatencyStats
	opts   parser.Options
	log    *slog.Logger
}

// NewWorker creates a worker. store and stats may be nil.
func NewWorker(engine *outline.Engine, store OutlineStore, stats *LatencyStats, opts parser.Options, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Worker{
		engine: engine,
		store:  store,
		stats:  stats,
		opts:   opts,
		log:    log,
	}
}

// NewWorkerFromConfig wires the engine, language detector and reader options
// from cfg.
func NewWorkerFromConfig(cfg config.Config, store OutlineStore, stats *LatencyStats, log *slog.Logger) *Worker {
	engine := outline.NewEngine(
		outline.NewRules(cfg.Rules()),
		langdetect.NewWhatlang(),
		log,
		cfg.IncludeStats,
	)
	opts := parser.Options{
		FallbackPdftotext: cfg.PDFFallbackPdftotext,
		FlowLinesPerPage:  cfg.FlowLinesPerPage,
	}
	return NewWorker(engine, store, stats, opts, log)
}

// Process runs the pipeline for a queued server job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	job.SetStatus(StatusParsing, "parsing")
	out := w.Run(ctx, Input{Filename: job.Filename, Data: job.FileData()})
	job.Finish(out)
}

// Run outlines a single document. It never panics on bad input; failures are
// reported through Outcome.Err.
func (w *Worker) Run(ctx context.Context, in Input) Outcome {
	start := time.Now()
	log := w.log.With("filename", in.Filename)
	out := Outcome{Filename: in.Filename}

	defer func() {
		out.Duration = time.Since(start)
		if w.stats != nil && out.OK() {
			w.stats.Record(out.Duration)
		}
	}()

	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}

	doc, err := w.read(in)
	if err != nil {
		log.Warn("document unreadable", "error", err)
		out.Err = fmt.Errorf("%w: %w", outline.ErrUnreadable, err)
		return out
	}
	out.Pages = doc.PageCount
	out.ContentHash = ContentHashHex([]byte(contentText(doc)))

	if rec, ok := w.lookupDuplicate(ctx, out.ContentHash, log); ok {
		out.DocID = rec.DocID
		out.Result = rec.Result
		out.Duplicate = true
		return out
	}

	res, err := w.engine.Infer(doc)
	out.Result = res
	out.DocID = uuid.NewString()
	switch {
	case errors.Is(err, outline.ErrEmpty):
		log.Info("document has no extractable text")
		out.Err = err
		return out
	case err != nil:
		out.Err = err
		return out
	}

	log.Info("outline inferred",
		"doc_id", out.DocID,
		"title", res.Title,
		"headings", len(res.Headings),
		"language", res.Language,
		"pages", out.Pages,
	)

	w.save(ctx, out, log)
	return out
}

func (w *Worker) read(in Input) (*doctree.Document, error) {
	p, err := parser.ForFile(in.Filename, w.opts)
	if err != nil {
		return nil, err
	}

	data := in.Data
	if data == nil && in.Path != "" {
		if data, err = os.ReadFile(in.Path); err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
	}

	doc, err := p.Parse(bytes.NewReader(data), in.Filename)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return doc, nil
}

// lookupDuplicate returns the stored record for a content hash seen before.
// Store failures are logged and treated as a miss.
func (w *Worker) lookupDuplicate(ctx context.Context, hash string, log *slog.Logger) (*pathstore.StoredOutline, bool) {
	if w.store == nil {
		return nil, false
	}
	docID, ok, err := w.store.LookupHash(ctx, hash)
	if err != nil {
		log.Warn("dedup check failed, proceeding", "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	rec, err := w.store.LoadOutline(ctx, docID)
	if err != nil || rec == nil || rec.Result == nil {
		log.Warn("hash index points at missing outline", "doc_id", docID, "error", err)
		return nil, false
	}
	log.Info("duplicate document, reusing stored outline", "existing_doc_id", docID)
	return rec, true
}

func (w *Worker) save(ctx context.Context, out Outcome, log *slog.Logger) {
	if w.store == nil {
		return
	}
	err := w.store.SaveOutline(ctx, pathstore.StoredOutline{
		DocID:       out.DocID,
		Filename:    out.Filename,
		ContentHash: out.ContentHash,
		Pages:       out.Pages,
		StoredAt:    time.Now().UTC(),
		Result:      out.Result,
	})
	if err != nil {
		log.Error("store outline failed", "doc_id", out.DocID, "error", err)
	}
}

// contentText flattens normalized span text for hashing.
func contentText(doc *doctree.Document) string {
	var sb strings.Builder
	for _, sp := range doc.Spans {
		t := normalize.Normalize(sp.Text, "")
		if t == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(t)
	}
	return sb.String()
}
