package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"waveline/internal/api"
	"waveline/internal/config"
	"waveline/internal/logging"
	"waveline/internal/queue"
	"waveline/internal/testsupport"
	"waveline/internal/workflow"
)

func newTestDaemon(t *testing.T, opts ...testsupport.ConfigOption) (*Daemon, *config.Config, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, store, logger)
	d, err := New(cfg, store, logger, mgr)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)
	return d, cfg, store
}

func multipartBody(t *testing.T, fields map[string]string, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field %s: %v", key, err)
		}
	}
	if fileName != "" {
		part, err := writer.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("create file part: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write file part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func TestUploadCreatesJobAndFile(t *testing.T) {
	d, cfg, store := newTestDaemon(t)

	body, contentType := multipartBody(t, map[string]string{"job_type": "metadata"}, "clip.mp3", []byte("mp3 bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	d.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp api.UploadResponse
	decodeJSON(t, w, &resp)
	if resp.Job.Type != "metadata" || resp.Job.Status != string(queue.StatusPending) {
		t.Fatalf("unexpected job: %+v", resp.Job)
	}
	if resp.File.OriginalName != "clip.mp3" {
		t.Fatalf("unexpected original name %q", resp.File.OriginalName)
	}
	if resp.File.Filename == "clip.mp3" || filepath.Ext(resp.File.Filename) != ".mp3" {
		t.Fatalf("expected generated .mp3 name, got %q", resp.File.Filename)
	}

	stored := filepath.Join(cfg.Paths.UploadDir, resp.File.Filename)
	if _, err := os.Stat(stored); err != nil {
		t.Fatalf("stored upload missing: %v", err)
	}
	job, err := store.GetJob(context.Background(), resp.Job.ID)
	if err != nil || job == nil {
		t.Fatalf("job not persisted: %v", err)
	}
}

func TestUploadRejectsUnknownJobType(t *testing.T) {
	d, _, _ := newTestDaemon(t)

	body, contentType := multipartBody(t, map[string]string{"job_type": "transcode"}, "clip.mp3", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	d.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var resp api.ErrorResponse
	decodeJSON(t, w, &resp)
	if resp.Error == "" {
		t.Fatal("expected error message")
	}
}

func TestUploadRejectsDisallowedExtension(t *testing.T) {
	d, _, _ := newTestDaemon(t)

	body, contentType := multipartBody(t, map[string]string{"job_type": "metadata"}, "payload.exe", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	d.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestUploadRejectsInvalidParams(t *testing.T) {
	d, _, _ := newTestDaemon(t)

	fields := map[string]string{"job_type": "convert", "params": "{not json"}
	body, contentType := multipartBody(t, fields, "clip.mp3", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	d.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestUploadRejectsOversizedBody(t *testing.T) {
	d, _, _ := newTestDaemon(t, testsupport.WithMaxUploadMiB(1))

	big := bytes.Repeat([]byte("a"), (1<<20)+(1<<19))
	body, contentType := multipartBody(t, map[string]string{"job_type": "metadata"}, "clip.mp3", big)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	d.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
}

func TestUploadReusesExistingAudioFile(t *testing.T) {
	d, cfg, store := newTestDaemon(t)

	path := filepath.Join(cfg.Paths.UploadDir, "seed.mp3")
	testsupport.WriteFile(t, path, 64)
	file := testsupport.NewAudioFile(t, store, "seed.mp3", path)

	fields := map[string]string{
		"job_type":      "analyze",
		"audio_file_id": fmt.Sprintf("%d", file.ID),
	}
	body, contentType := multipartBody(t, fields, "", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	d.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp api.UploadResponse
	decodeJSON(t, w, &resp)
	if resp.File.ID != file.ID {
		t.Fatalf("expected reuse of file %d, got %d", file.ID, resp.File.ID)
	}
	count, err := store.JobCountForAudioFile(context.Background(), file.ID)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected 1 job for reused file, got %d", count)
	}
}

func TestUploadUnknownAudioFileID(t *testing.T) {
	d, _, _ := newTestDaemon(t)

	fields := map[string]string{"job_type": "analyze", "audio_file_id": "4242"}
	body, contentType := multipartBody(t, fields, "", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	d.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestJobEndpoints(t *testing.T) {
	d, cfg, store := newTestDaemon(t)

	path := filepath.Join(cfg.Paths.UploadDir, "seed.mp3")
	testsupport.WriteFile(t, path, 64)
	file := testsupport.NewAudioFile(t, store, "seed.mp3", path)
	job := testsupport.NewJob(t, store, file.ID, queue.JobWaveform)

	w := httptest.NewRecorder()
	d.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/upload/job/%d", job.ID), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("job detail: expected 200, got %d", w.Code)
	}
	var jobResp api.JobResponse
	decodeJSON(t, w, &jobResp)
	if jobResp.Job.ID != job.ID || jobResp.Job.Type != "waveform" {
		t.Fatalf("unexpected job payload: %+v", jobResp.Job)
	}

	w = httptest.NewRecorder()
	d.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/upload/job/999", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing job: expected 404, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	d.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/upload/jobs?status=pending", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("job list: expected 200, got %d", w.Code)
	}
	var listResp api.JobListResponse
	decodeJSON(t, w, &listResp)
	if len(listResp.Jobs) != 1 {
		t.Fatalf("expected 1 pending job, got %d", len(listResp.Jobs))
	}

	w = httptest.NewRecorder()
	d.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/upload/jobs?status=bogus", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad status filter: expected 400, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	d.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/upload/file/%d", file.ID), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("file detail: expected 200, got %d", w.Code)
	}
	var fileResp api.AudioFileResponse
	decodeJSON(t, w, &fileResp)
	if fileResp.File.Filename != "seed.mp3" {
		t.Fatalf("unexpected file payload: %+v", fileResp.File)
	}

	w = httptest.NewRecorder()
	d.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/upload/job/%d", job.ID), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("delete job: expected 200, got %d", w.Code)
	}
	var removeResp api.RemoveJobResponse
	decodeJSON(t, w, &removeResp)
	if !removeResp.Removed || !removeResp.FileRemoved {
		t.Fatalf("expected job and file removal, got %+v", removeResp)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected upload file removed, stat err: %v", err)
	}
}

func TestVisualizationEndpoint(t *testing.T) {
	d, cfg, store := newTestDaemon(t)

	path := filepath.Join(cfg.Paths.UploadDir, "seed.mp3")
	testsupport.WriteFile(t, path, 64)
	file := testsupport.NewAudioFile(t, store, "seed.mp3", path)
	testsupport.NewJob(t, store, file.ID, queue.JobMetadata)
	testsupport.NewJob(t, store, file.ID, queue.JobConvert)

	w := httptest.NewRecorder()
	d.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/upload/jobs/visualization", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp api.VisualizationResponse
	decodeJSON(t, w, &resp)
	if resp.Total != 2 {
		t.Fatalf("expected total 2, got %d", resp.Total)
	}
	if resp.StatusCounts["pending"] != 2 {
		t.Fatalf("expected 2 pending, got %d", resp.StatusCounts["pending"])
	}
	if resp.TypeCounts["convert"] != 1 || resp.TypeCounts["slice"] != 0 {
		t.Fatalf("unexpected type counts: %+v", resp.TypeCounts)
	}
	if len(resp.RecentJobs) != 2 {
		t.Fatalf("expected 2 recent jobs, got %d", len(resp.RecentJobs))
	}
}

func TestBearerAuthProtectsAPI(t *testing.T) {
	d, _, _ := newTestDaemon(t, testsupport.WithAPIToken("secret"))

	w := httptest.NewRecorder()
	d.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/upload/jobs", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/upload/jobs", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	d.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/upload/jobs", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	d.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", w.Code)
	}

	// Health stays reachable without a token.
	w = httptest.NewRecorder()
	d.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected unauthenticated health, got %d", w.Code)
	}
}

func TestDownloadServesStoredFiles(t *testing.T) {
	d, cfg, _ := newTestDaemon(t)

	if err := os.WriteFile(filepath.Join(cfg.Paths.OutputDir, "waveform.png"), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Paths.UploadDir, "a.mp3"), []byte("mp3"), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"waveform.png", "a.mp3"} {
		w := httptest.NewRecorder()
		d.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/"+name, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("download %s: expected 200, got %d", name, w.Code)
		}
	}

	w := httptest.NewRecorder()
	d.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/missing.png", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing file: expected 404, got %d", w.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	d, _, _ := newTestDaemon(t, testsupport.WithStubbedBinaries())

	w := httptest.NewRecorder()
	d.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp api.HealthResponse
	decodeJSON(t, w, &resp)
	if resp.Status != "ok" {
		t.Fatalf("expected ok status, got %q (%s)", resp.Status, w.Body.String())
	}
	if len(resp.Handlers) != len(queue.AllJobTypes()) {
		t.Fatalf("expected %d handler entries, got %d", len(queue.AllJobTypes()), len(resp.Handlers))
	}
	if len(resp.Dependencies) != 2 {
		t.Fatalf("expected 2 dependency entries, got %d", len(resp.Dependencies))
	}
	if !resp.Database.Readable || !resp.Database.IntegrityCheck {
		t.Fatalf("unexpected database health: %+v", resp.Database)
	}
}
