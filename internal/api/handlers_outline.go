package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docoutline/internal/outline"
	"github.com/dgallion1/docoutline/internal/parser"
	"github.com/dgallion1/docoutline/internal/pipeline"
	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
)

// outlineResponse is the body for a single processed document.
type outlineResponse struct {
	Filename  string          `json:"filename"`
	DocID     string          `json:"doc_id,omitempty"`
	Duplicate bool            `json:"duplicate,omitempty"`
	Empty     bool            `json:"empty,omitempty"`
	Result    *outline.Result `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
}

func newOutlineResponse(out pipeline.Outcome) outlineResponse {
	resp := outlineResponse{
		Filename:  out.Filename,
		DocID:     out.DocID,
		Duplicate: out.Duplicate,
		Empty:     out.Empty(),
		Result:    out.Result,
	}
	if !out.OK() && out.Err != nil {
		resp.Error = out.Err.Error()
	}
	return resp
}

// handleOutline processes one uploaded document synchronously.
func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	filename, data, code, err := s.readUpload(r)
	if err != nil {
		jsonError(w, err.Error(), code)
		return
	}

	out := s.orchestrator.Worker().Run(r.Context(), pipeline.Input{Filename: filename, Data: data})
	if !out.OK() {
		code := http.StatusInternalServerError
		if errors.Is(out.Err, outline.ErrUnreadable) {
			code = http.StatusUnprocessableEntity
		}
		jsonResponse(w, code, newOutlineResponse(out))
		return
	}
	jsonResponse(w, http.StatusOK, newOutlineResponse(out))
}

// handleSubmitJob queues one uploaded document for asynchronous processing.
func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	filename, data, code, err := s.readUpload(r)
	if err != nil {
		jsonError(w, err.Error(), code)
		return
	}

	job := pipeline.NewJob(filename, data)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	jsonResponse(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"status":   pipeline.StatusQueued,
		"poll_url": fmt.Sprintf("/api/outline/jobs/%s", job.ID),
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	jsonResponse(w, http.StatusOK, job.Snapshot())
}

// handleBatch outlines every uploaded file and returns the batch summary.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	var inputs []pipeline.Input
	var rejected []outlineResponse
	for _, fh := range files {
		filename := sanitizeFilename(fh.Filename)
		data, err := s.readFile(fh, filename)
		if err != nil {
			rejected = append(rejected, outlineResponse{Filename: filename, Error: err.Error()})
			continue
		}
		inputs = append(inputs, pipeline.Input{Filename: filename, Data: data})
	}

	summary, outcomes := pipeline.RunBatch(r.Context(), s.orchestrator.Worker(), inputs, s.cfg.WorkerCount, nil)

	results := make([]outlineResponse, 0, len(outcomes)+len(rejected))
	for _, out := range outcomes {
		results = append(results, newOutlineResponse(out))
	}
	for _, rej := range rejected {
		summary.AddFailure(rej.Filename)
		results = append(results, rej)
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"summary": summary,
		"results": results,
	})
}

// readUpload reads the "file" form field.
func (s *Server) readUpload(r *http.Request) (string, []byte, int, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, http.StatusBadRequest, fmt.Errorf("file is required: %w", err)
	}
	file.Close()

	filename := sanitizeFilename(header.Filename)
	data, err := s.readFile(header, filename)
	if err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, errTooLarge) {
			code = http.StatusRequestEntityTooLarge
		}
		return "", nil, code, err
	}
	return filename, data, http.StatusOK, nil
}

var errTooLarge = errors.New("file exceeds max size")

func (s *Server) readFile(fh *multipart.FileHeader, filename string) ([]byte, error) {
	if !parser.IsSupportedExtension(filename) {
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
	}
	if fh.Size > s.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("%w (%s)", errTooLarge, humanize.Bytes(uint64(s.cfg.MaxUploadBytes)))
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("%w (%s)", errTooLarge, humanize.Bytes(uint64(s.cfg.MaxUploadBytes)))
	}
	return data, nil
}

func jsonResponse(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	jsonResponse(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
