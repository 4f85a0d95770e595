package pipeline

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
)

// FileSummary is one processed document in a batch summary.
type FileSummary struct {
	Filename      string `json:"filename"`
	Title         string `json:"title"`
	Language      string `json:"language"`
	HeadingsCount int    `json:"headings_count"`
	Pages         int    `json:"pages"`
}

// Summary aggregates a batch. Merge is commutative and associative: the
// file list is kept sorted by filename and languages are a sorted set.
type Summary struct {
	ProcessedFiles    int           `json:"processed_files"`
	Files             []FileSummary `json:"files"`
	LanguagesDetected []string      `json:"languages_detected"`
	FailedFiles       []string      `json:"failed_files,omitempty"`
}

// NewSummary returns an empty summary with non-nil lists.
func NewSummary() Summary {
	return Summary{Files: []FileSummary{}, LanguagesDetected: []string{}}
}

// SummarizeOutcome builds the summary row for a document with an outline.
func SummarizeOutcome(out Outcome) FileSummary {
	fs := FileSummary{Filename: out.Filename, Pages: out.Pages}
	if out.Result != nil {
		fs.Title = out.Result.Title
		fs.Language = out.Result.Language
		fs.HeadingsCount = len(out.Result.Headings)
	}
	if fs.Language == "" {
		fs.Language = "unknown"
	}
	return fs
}

func compareFiles(a, b FileSummary) int {
	return cmp.Or(
		strings.Compare(a.Filename, b.Filename),
		strings.Compare(a.Title, b.Title),
		strings.Compare(a.Language, b.Language),
		cmp.Compare(a.HeadingsCount, b.HeadingsCount),
		cmp.Compare(a.Pages, b.Pages),
	)
}

// Add records one processed file.
func (s *Summary) Add(fs FileSummary) {
	s.Merge(Summary{Files: []FileSummary{fs}, LanguagesDetected: []string{fs.Language}})
}

// AddFailure records a file that produced no outline.
func (s *Summary) AddFailure(filename string) {
	s.Merge(Summary{FailedFiles: []string{filename}})
}

// Merge folds other into s.
func (s *Summary) Merge(other Summary) {
	files := append(slices.Clone(s.Files), other.Files...)
	slices.SortFunc(files, compareFiles)
	if files == nil {
		files = []FileSummary{}
	}
	s.Files = files
	s.ProcessedFiles = len(files)

	langs := append(slices.Clone(s.LanguagesDetected), other.LanguagesDetected...)
	slices.Sort(langs)
	s.LanguagesDetected = slices.Compact(langs)
	if s.LanguagesDetected == nil {
		s.LanguagesDetected = []string{}
	}

	failed := append(slices.Clone(s.FailedFiles), other.FailedFiles...)
	slices.Sort(failed)
	s.FailedFiles = failed
}

// Emitter receives each outcome that carries an outline. Returning an error
// leaves the file out of the summary. It is called from worker goroutines.
type Emitter func(Outcome) error

// RunBatch outlines inputs on n workers. Documents are independent; a
// failing document is recorded and never stops the batch. Each worker builds
// its own partial summary and the partials are merged at the end.
func RunBatch(ctx context.Context, w *Worker, inputs []Input, n int, emit Emitter) (Summary, []Outcome) {
	if n <= 0 {
		n = 1
	}
	n = min(n, max(len(inputs), 1))

	outcomes := make([]Outcome, len(inputs))
	partials := make([]Summary, n)
	next := make(chan int)

	var wg sync.WaitGroup
	for i := range n {
		partials[i] = NewSummary()
		wg.Add(1)
		go func(part *Summary) {
			defer wg.Done()
			for idx := range next {
				out := w.Run(ctx, inputs[idx])
				outcomes[idx] = out

				if !out.OK() {
					w.log.Warn("skipping document", "filename", out.Filename, "error", out.Err)
					part.AddFailure(out.Filename)
					continue
				}
				if emit != nil {
					if err := emit(out); err != nil {
						w.log.Error("write output failed", "filename", out.Filename, "error", err)
						part.AddFailure(out.Filename)
						continue
					}
				}
				part.Add(SummarizeOutcome(out))
			}
		}(&partials[i])
	}

	for i := range inputs {
		next <- i
	}
	close(next)
	wg.Wait()

	total := NewSummary()
	for _, p := range partials {
		total.Merge(p)
	}
	return total, outcomes
}
