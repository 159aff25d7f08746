package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueprintkit/bioblueprint/internal/config"
	"github.com/blueprintkit/bioblueprint/internal/dataset"
	"github.com/blueprintkit/bioblueprint/internal/model"
	"github.com/blueprintkit/bioblueprint/internal/pipeline"
	"github.com/blueprintkit/bioblueprint/internal/task"
)

// stubRunner records the job it ran and returns a canned result.
type stubRunner struct {
	mu     sync.Mutex
	dirs   []string
	opts   []pipeline.Options
	result *pipeline.Result
	err    error
}

func (r *stubRunner) Analyze(ctx context.Context, dir string, opts pipeline.Options) (*pipeline.Result, error) {
	r.mu.Lock()
	r.dirs = append(r.dirs, dir)
	r.opts = append(r.opts, opts)
	r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return r.result, nil
}

func (r *stubRunner) lastOpts(t *testing.T) pipeline.Options {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.opts)
	return r.opts[len(r.opts)-1]
}

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{
		Port:            3000,
		MaxUploadImages: 3,
		MaxUploadSizeMB: 1,
	}
}

func newTestServer(t *testing.T, runner JobRunner, catalogRoot string) (*Server, *task.Registry) {
	t.Helper()
	registry := task.NewRegistry(time.Minute)
	t.Cleanup(registry.Close)
	srv := New(testServerConfig(), runner, registry, dataset.Catalog{Root: catalogRoot}, t.TempDir())
	return srv, registry
}

func stubResult() *pipeline.Result {
	return &pipeline.Result{
		Blueprint: model.FinalBlueprint{
			"id":             "bp-1",
			"character_name": "quiet_gardener",
		},
	}
}

func multipartBody(t *testing.T, filenames ...string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, name := range filenames {
		part, err := w.CreatePart(map[string][]string{
			"Content-Disposition": {fmt.Sprintf(`form-data; name="images"; filename="%s"`, name)},
			"Content-Type":        {"image/jpeg"},
		})
		require.NoError(t, err)
		_, err = part.Write([]byte("fake image bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func waitForStatus(t *testing.T, registry *task.Registry, id string, want task.Status) *task.Task {
	t.Helper()
	var got *task.Task
	require.Eventually(t, func() bool {
		tk, ok := registry.Get(id)
		if !ok {
			return false
		}
		got = tk
		return tk.Status == want
	}, 2*time.Second, 10*time.Millisecond)
	return got
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, &stubRunner{result: stubResult()}, t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestAnalyzeUpload(t *testing.T) {
	runner := &stubRunner{result: stubResult()}
	srv, registry := newTestServer(t, runner, t.TempDir())

	body, contentType := multipartBody(t, "a.jpg", "b.jpg")
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["taskId"])

	done := waitForStatus(t, registry, resp["taskId"], task.StatusCompleted)
	assert.Equal(t, "quiet_gardener", done.Result.CharacterName())

	// The staged upload directory is removed after processing.
	runner.mu.Lock()
	stagedDir := runner.dirs[0]
	runner.mu.Unlock()
	assert.Eventually(t, func() bool {
		_, err := os.Stat(stagedDir)
		return errors.Is(err, os.ErrNotExist)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAnalyzeNoImages(t *testing.T) {
	srv, _ := newTestServer(t, &stubRunner{result: stubResult()}, t.TempDir())

	body, contentType := multipartBody(t)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No images provided")
}

func TestAnalyzeTooManyImages(t *testing.T) {
	srv, _ := newTestServer(t, &stubRunner{result: stubResult()}, t.TempDir())

	body, contentType := multipartBody(t, "a.jpg", "b.jpg", "c.jpg", "d.jpg")
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "too many images")
}

func TestAnalyzeRejectsContentType(t *testing.T) {
	srv, _ := newTestServer(t, &stubRunner{result: stubResult()}, t.TempDir())

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreatePart(map[string][]string{
		"Content-Disposition": {`form-data; name="images"; filename="doc.pdf"`},
		"Content-Type":        {"application/pdf"},
	})
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported image type")
}

func TestAnalyzeNotMultipart(t *testing.T) {
	srv, _ := newTestServer(t, &stubRunner{result: stubResult()}, t.TempDir())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewBufferString("plain"))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeFailureMarksTask(t *testing.T) {
	runner := &stubRunner{err: errors.New("model unavailable")}
	srv, registry := newTestServer(t, runner, t.TempDir())

	body, contentType := multipartBody(t, "a.jpg")
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	failed := waitForStatus(t, registry, resp["taskId"], task.StatusFailed)
	assert.Contains(t, failed.Error, "model unavailable")
}

func TestGetTaskLifecycle(t *testing.T) {
	runner := &stubRunner{result: stubResult()}
	srv, registry := newTestServer(t, runner, t.TempDir())
	router := srv.Router()

	body, contentType := multipartBody(t, "a.jpg")
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	waitForStatus(t, registry, created["taskId"], task.StatusCompleted)

	req = httptest.NewRequest(http.MethodGet, "/api/task/"+created["taskId"], nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "completed", got["status"])
	result, ok := got["result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "quiet_gardener", result["character_name"])
	assert.NotContains(t, got, "error")
}

func TestGetTaskUnknown(t *testing.T) {
	srv, _ := newTestServer(t, &stubRunner{result: stubResult()}, t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/api/task/does-not-exist", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Task not found")
}

func TestListTasks(t *testing.T) {
	srv, registry := newTestServer(t, &stubRunner{result: stubResult()}, t.TempDir())
	registry.Create()
	registry.Create()

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string][]map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got["tasks"], 2)
}

func TestListDatasets(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "beach-trip")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("x"), 0o644))

	srv, _ := newTestServer(t, &stubRunner{result: stubResult()}, root)

	req := httptest.NewRequest(http.MethodGet, "/api/datasets", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string][]dataset.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got["datasets"], 1)
	assert.Equal(t, "beach-trip", got["datasets"][0].Name)
	assert.Equal(t, 1, got["datasets"][0].ImageCount)
}

func TestListDatasetsEmptyRoot(t *testing.T) {
	srv, _ := newTestServer(t, &stubRunner{result: stubResult()}, filepath.Join(t.TempDir(), "absent"))

	req := httptest.NewRequest(http.MethodGet, "/api/datasets", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"datasets": []}`, rec.Body.String())
}

func TestAnalyzeDataset(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "apartment")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, dataset.WriteMeta(dir, &dataset.Meta{
		Known: model.KnownInfo{Gender: "Female"},
	}))

	runner := &stubRunner{result: stubResult()}
	srv, registry := newTestServer(t, runner, root)

	req := httptest.NewRequest(http.MethodPost, "/api/datasets/apartment/analyze", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	waitForStatus(t, registry, resp["taskId"], task.StatusCompleted)

	opts := runner.lastOpts(t)
	assert.Equal(t, "apartment", opts.Label)
	assert.Equal(t, "Female", opts.Known.Gender)
	assert.Nil(t, opts.Context)
}

func TestAnalyzeDatasetCachesContext(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "apartment")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	result := stubResult()
	result.Context = &model.ContextResult{
		Images: []model.ImageContext{{ImageIndex: 0}},
		Summary: model.ContextSummary{
			DominantSourceType: model.SourceTypeCameraPhoto,
		},
	}
	runner := &stubRunner{result: result}
	srv, registry := newTestServer(t, runner, root)

	req := httptest.NewRequest(http.MethodPost, "/api/datasets/apartment/analyze", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	waitForStatus(t, registry, resp["taskId"], task.StatusCompleted)

	// The freshly detected context lands in the sidecar.
	assert.Eventually(t, func() bool {
		meta, err := dataset.ReadMeta(dir)
		return err == nil && meta.HasContext()
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAnalyzeDatasetUsesCachedContext(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "apartment")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, dataset.WriteMeta(dir, &dataset.Meta{
		Context: &model.ContextResult{
			Images: []model.ImageContext{{ImageIndex: 0}},
		},
	}))

	runner := &stubRunner{result: stubResult()}
	srv, registry := newTestServer(t, runner, root)

	req := httptest.NewRequest(http.MethodPost, "/api/datasets/apartment/analyze", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	waitForStatus(t, registry, resp["taskId"], task.StatusCompleted)

	opts := runner.lastOpts(t)
	require.NotNil(t, opts.Context)
	assert.Len(t, opts.Context.Images, 1)
}

func TestAnalyzeDatasetNotFound(t *testing.T) {
	srv, _ := newTestServer(t, &stubRunner{result: stubResult()}, t.TempDir())

	req := httptest.NewRequest(http.MethodPost, "/api/datasets/missing/analyze", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "dataset not found")
}

func TestStagedUploadFilesWritten(t *testing.T) {
	block := make(chan struct{})
	runner := &blockingRunner{release: block}
	srv, registry := newTestServer(t, runner, t.TempDir())

	body, contentType := multipartBody(t, "a.jpg", "b.jpg")
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	// While the runner is blocked, the staged files are on disk.
	waitForStatus(t, registry, resp["taskId"], task.StatusProcessing)
	dir := runner.dir()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"a.jpg", "b.jpg"}, names)

	data, err := os.ReadFile(filepath.Join(dir, "a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "fake image bytes", string(data))

	close(block)
	waitForStatus(t, registry, resp["taskId"], task.StatusCompleted)
}

// blockingRunner parks until released so tests can observe mid-job state.
type blockingRunner struct {
	mu      sync.Mutex
	d       string
	release chan struct{}
}

func (r *blockingRunner) Analyze(ctx context.Context, dir string, opts pipeline.Options) (*pipeline.Result, error) {
	r.mu.Lock()
	r.d = dir
	r.mu.Unlock()
	<-r.release
	return stubResult(), nil
}

func (r *blockingRunner) dir() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.d
}
