// Package output writes outline results and batch summaries to disk.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docoutline/internal/outline"
	"github.com/dgallion1/docoutline/internal/pipeline"
	"gopkg.in/yaml.v3"
)

// SummaryFile is the name of the batch summary written next to the results.
const SummaryFile = "processing_summary.json"

// Format is a serialization format for result records.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown output format: %s", s)
}

// Encode writes data to w in the given format.
func Encode(w io.Writer, format Format, data any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

// OutputName maps an input filename to its result filename.
func OutputName(filename string, format Format) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "." + string(format)
}

// Writer writes one result file per document into a directory.
type Writer struct {
	dir       string
	format    Format
	validator *Validator
	log       *slog.Logger
}

// NewWriter creates dir if needed. validator may be nil.
func NewWriter(dir string, format Format, validator *Validator, log *slog.Logger) (*Writer, error) {
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Writer{dir: dir, format: format, validator: validator, log: log}, nil
}

// WriteResult validates and writes one result. It returns the written path.
func (w *Writer) WriteResult(filename string, res *outline.Result) (string, error) {
	if w.validator != nil {
		if err := w.validator.Validate(res); err != nil {
			return "", fmt.Errorf("validate %s: %w", filename, err)
		}
	}
	path := filepath.Join(w.dir, OutputName(filename, w.format))
	if err := writeFile(path, w.format, res); err != nil {
		return "", err
	}
	w.log.Info("wrote output", "path", path)
	return path, nil
}

// Emit adapts WriteResult to pipeline.Emitter.
func (w *Writer) Emit(out pipeline.Outcome) error {
	_, err := w.WriteResult(out.Filename, out.Result)
	return err
}

// WriteSummary writes the batch summary as JSON.
func (w *Writer) WriteSummary(s pipeline.Summary) error {
	path := filepath.Join(w.dir, SummaryFile)
	if err := writeFile(path, FormatJSON, s); err != nil {
		return err
	}
	w.log.Info("processing summary saved", "path", path, "processed_files", s.ProcessedFiles)
	return nil
}

// writeFile encodes into a temp file and renames it into place.
func writeFile(path string, format Format, data any) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".docoutline-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, format, data); err != nil {
		tmp.Close()
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
