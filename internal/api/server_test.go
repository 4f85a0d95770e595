package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/docoutline/internal/config"
	"github.com/dgallion1/docoutline/internal/outline"
	"github.com/dgallion1/docoutline/internal/parser"
	"github.com/dgallion1/docoutline/internal/pathstore"
	"github.com/dgallion1/docoutline/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

const testKey = "test-key"

const reportMD = "# Annual Report\n\n## Summary\n\nBody text here.\n\n## Results\n\nMore body.\n"

// memStore implements both the worker and the server store interfaces.
type memStore struct {
	mu      sync.Mutex
	records map[string]pathstore.StoredOutline
	hashes  map[string]string
}

func newMemStore() *memStore {
	return &memStore{records: map[string]pathstore.StoredOutline{}, hashes: map[string]string{}}
}

func (m *memStore) LookupHash(ctx context.Context, hash string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.hashes[hash]
	return id, ok, nil
}

func (m *memStore) LoadOutline(ctx context.Context, docID string) (*pathstore.StoredOutline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[docID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *memStore) SaveOutline(ctx context.Context, rec pathstore.StoredOutline) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.DocID] = rec
	m.hashes[rec.ContentHash] = rec.DocID
	return nil
}

func (m *memStore) ListOutlines(ctx context.Context, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id := range m.records {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *memStore) DeleteOutline(ctx context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[docID]; ok {
		delete(m.hashes, rec.ContentHash)
	}
	delete(m.records, docID)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestServer(t *testing.T, withStore bool, maxUpload int64) *Server {
	t.Helper()
	cfg := config.Config{
		DocoutlineAPIKey: testKey,
		WorkerCount:      2,
		MaxQueueSize:     10,
		MaxUploadBytes:   maxUpload,
		JobTTL:           time.Hour,
	}

	stats := pipeline.NewLatencyStats(time.Hour)
	engine := outline.NewEngine(nil, nil, nil, true)

	var store *memStore
	var workerStore pipeline.OutlineStore
	var docStore DocumentStore
	if withStore {
		store = newMemStore()
		workerStore, docStore = store, store
	}

	worker := pipeline.NewWorker(engine, workerStore, stats, parser.Options{}, nil)
	orch := pipeline.NewOrchestrator(cfg, worker, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	orch.Start(ctx)
	t.Cleanup(func() {
		cancel()
		orch.Stop()
	})

	return NewServer(orch, docStore, stats, discardLogger(), cfg)
}

func uploadRequest(t *testing.T, path, field string, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile(field, name)
		if err != nil {
			t.Fatal(err)
		}
		io.WriteString(fw, content)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testKey)
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestHealth_NoAuth(t *testing.T) {
	s := newTestServer(t, false, 1<<20)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t, false, 1<<20)
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	if rec := serve(s, req); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}
	req.Header.Set("Authorization", "Bearer wrong")
	if rec := serve(s, req); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for wrong token, got %d", rec.Code)
	}
}

func TestAuthRejection_JSONBody(t *testing.T) {
	s := newTestServer(t, false, 1<<20)
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := serve(s, req)
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %q", ct)
	}
	var body map[string]string
	decode(t, rec, &body)
	if body["error"] != "invalid api key" {
		t.Errorf("expected invalid api key error, got %v", body)
	}
}

func TestRequestLogger_RecordsRoutePattern(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	r := chi.NewRouter()
	r.Use(RequestLogger(log))
	r.Get("/api/documents/{docID}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		io.WriteString(w, "hello")
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/documents/abc", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["route"] != "/api/documents/{docID}" {
		t.Errorf("expected route pattern, got %v", entry["route"])
	}
	if entry["status"] != float64(http.StatusTeapot) {
		t.Errorf("expected status 418, got %v", entry["status"])
	}
	if entry["size"] != "5 B" {
		t.Errorf("expected size 5 B, got %v", entry["size"])
	}
}

func TestOutline_Sync(t *testing.T) {
	s := newTestServer(t, true, 1<<20)
	rec := serve(s, uploadRequest(t, "/api/outline", "file", map[string]string{"report.md": reportMD}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp outlineResponse
	decode(t, rec, &resp)
	if resp.Result == nil || resp.Result.Title != "Annual Report" || len(resp.Result.Headings) != 2 {
		t.Fatalf("unexpected result %+v", resp.Result)
	}
	if resp.DocID == "" || resp.Duplicate {
		t.Errorf("expected a fresh doc id, got %+v", resp)
	}

	// The stored outline is now retrievable.
	req := httptest.NewRequest(http.MethodGet, "/api/documents/"+resp.DocID, nil)
	req.Header.Set("Authorization", "Bearer "+testKey)
	rec = serve(s, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected stored document, got %d", rec.Code)
	}
	var stored pathstore.StoredOutline
	decode(t, rec, &stored)
	if stored.Filename != "report.md" || stored.Result.Title != "Annual Report" {
		t.Errorf("unexpected stored record %+v", stored)
	}

	// Same content again is answered from the store.
	rec = serve(s, uploadRequest(t, "/api/outline", "file", map[string]string{"again.md": reportMD}))
	var dup outlineResponse
	decode(t, rec, &dup)
	if !dup.Duplicate || dup.DocID != resp.DocID {
		t.Errorf("expected duplicate of %s, got %+v", resp.DocID, dup)
	}
}

func TestOutline_Rejections(t *testing.T) {
	s := newTestServer(t, false, 16)

	rec := serve(s, uploadRequest(t, "/api/outline", "file", map[string]string{"sheet.csv": "a,b"}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unsupported type, got %d", rec.Code)
	}

	rec = serve(s, uploadRequest(t, "/api/outline", "file", map[string]string{"big.txt": reportMD}))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413 for oversize upload, got %d", rec.Code)
	}

	rec = serve(s, uploadRequest(t, "/api/outline", "other", map[string]string{"a.txt": "x"}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without file field, got %d", rec.Code)
	}
}

func TestOutline_EmptyDocument(t *testing.T) {
	s := newTestServer(t, false, 1<<20)
	rec := serve(s, uploadRequest(t, "/api/outline", "file", map[string]string{"blank.txt": "\n \n"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for empty document, got %d", rec.Code)
	}
	var resp outlineResponse
	decode(t, rec, &resp)
	if !resp.Empty || resp.Result == nil || resp.Result.Title != "" {
		t.Errorf("expected empty outline, got %+v", resp)
	}
}

func TestJobs_SubmitAndPoll(t *testing.T) {
	s := newTestServer(t, false, 1<<20)
	rec := serve(s, uploadRequest(t, "/api/outline/jobs", "file", map[string]string{"report.md": reportMD}))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var accepted struct {
		JobID   string `json:"job_id"`
		PollURL string `json:"poll_url"`
	}
	decode(t, rec, &accepted)

	deadline := time.Now().Add(5 * time.Second)
	for {
		req := httptest.NewRequest(http.MethodGet, accepted.PollURL, nil)
		req.Header.Set("Authorization", "Bearer "+testKey)
		rec = serve(s, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 polling job, got %d", rec.Code)
		}
		var snap pipeline.JobSnapshot
		decode(t, rec, &snap)
		if snap.Status.Done() {
			if snap.Status != pipeline.StatusCompleted || snap.Result == nil || snap.Result.Title != "Annual Report" {
				t.Fatalf("unexpected final job state %+v", snap)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job did not finish, last status %q", snap.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/outline/jobs/missing", nil)
	req.Header.Set("Authorization", "Bearer "+testKey)
	if rec := serve(s, req); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown job, got %d", rec.Code)
	}
}

func TestBatch(t *testing.T) {
	s := newTestServer(t, false, 1<<20)
	rec := serve(s, uploadRequest(t, "/api/outline/batch", "files", map[string]string{
		"report.md": reportMD,
		"notes.txt": "just some notes",
		"data.csv":  "a,b",
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Summary pipeline.Summary  `json:"summary"`
		Results []outlineResponse `json:"results"`
	}
	decode(t, rec, &resp)
	if resp.Summary.ProcessedFiles != 2 {
		t.Errorf("expected 2 processed files, got %d", resp.Summary.ProcessedFiles)
	}
	if len(resp.Summary.FailedFiles) != 1 || resp.Summary.FailedFiles[0] != "data.csv" {
		t.Errorf("expected data.csv to fail, got %v", resp.Summary.FailedFiles)
	}
	if len(resp.Results) != 3 {
		t.Errorf("expected 3 per-file results, got %d", len(resp.Results))
	}
}

func TestDocuments_NoStore(t *testing.T) {
	s := newTestServer(t, false, 1<<20)
	req := httptest.NewRequest(http.MethodGet, "/api/documents/abc", nil)
	req.Header.Set("Authorization", "Bearer "+testKey)
	if rec := serve(s, req); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without store, got %d", rec.Code)
	}
}

func TestDocuments_ListDeleteMissing(t *testing.T) {
	s := newTestServer(t, true, 1<<20)
	rec := serve(s, uploadRequest(t, "/api/outline", "file", map[string]string{"report.md": reportMD}))
	var resp outlineResponse
	decode(t, rec, &resp)

	auth := func(req *http.Request) *http.Request {
		req.Header.Set("Authorization", "Bearer "+testKey)
		return req
	}

	rec = serve(s, auth(httptest.NewRequest(http.MethodGet, "/api/documents", nil)))
	var list struct {
		Documents []string `json:"documents"`
	}
	decode(t, rec, &list)
	if len(list.Documents) != 1 || list.Documents[0] != resp.DocID {
		t.Errorf("expected [%s], got %v", resp.DocID, list.Documents)
	}

	rec = serve(s, auth(httptest.NewRequest(http.MethodDelete, "/api/documents/"+resp.DocID, nil)))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 on delete, got %d", rec.Code)
	}

	rec = serve(s, auth(httptest.NewRequest(http.MethodGet, "/api/documents/"+resp.DocID, nil)))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestStats(t *testing.T) {
	s := newTestServer(t, false, 1<<20)
	serve(s, uploadRequest(t, "/api/outline", "file", map[string]string{"report.md": reportMD}))

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("Authorization", "Bearer "+testKey)
	rec := serve(s, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Latency pipeline.StatsSnapshot `json:"latency"`
	}
	decode(t, rec, &resp)
	if resp.Latency.Count != 1 {
		t.Errorf("expected one latency sample, got %d", resp.Latency.Count)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"report.pdf":            "report.pdf",
		"../../etc/passwd":      "passwd",
		`C:\Users\me\notes.txt`: "notes.txt",
		"":                      "unnamed",
		"..":                    "_",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q): expected %q, got %q", in, want, got)
		}
	}
}
