// Package server exposes the analysis pipeline over HTTP: multipart image
// uploads, async task polling, and dataset-backed analysis.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/blueprintkit/bioblueprint/internal/config"
	"github.com/blueprintkit/bioblueprint/internal/dataset"
	"github.com/blueprintkit/bioblueprint/internal/pipeline"
	"github.com/blueprintkit/bioblueprint/internal/preprocess"
	"github.com/blueprintkit/bioblueprint/internal/task"
)

// JobRunner executes one analysis over a directory of raw images. Abstracted
// so handlers can be tested without a live pipeline.
type JobRunner interface {
	Analyze(ctx context.Context, dir string, opts pipeline.Options) (*pipeline.Result, error)
}

// PipelineRunner is the production JobRunner: preprocess the directory, then
// run the full pipeline.
type PipelineRunner struct {
	Pipeline   *pipeline.Pipeline
	Preprocess preprocess.Options
}

func (r *PipelineRunner) Analyze(ctx context.Context, dir string, opts pipeline.Options) (*pipeline.Result, error) {
	images, err := preprocess.Directory(ctx, dir, r.Preprocess)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, eris.New("server: no processable images in upload")
	}
	return r.Pipeline.Run(ctx, images, opts)
}

// Server holds the HTTP surface's dependencies.
type Server struct {
	cfg        config.ServerConfig
	runner     JobRunner
	tasks      *task.Registry
	catalog    dataset.Catalog
	uploadRoot string
}

// New creates a Server. uploadRoot is where multipart uploads are staged;
// each batch gets its own subdirectory, removed after processing.
func New(cfg config.ServerConfig, runner JobRunner, tasks *task.Registry, catalog dataset.Catalog, uploadRoot string) *Server {
	if uploadRoot == "" {
		uploadRoot = "uploads"
	}
	return &Server{
		cfg:        cfg,
		runner:     runner,
		tasks:      tasks,
		catalog:    catalog,
		uploadRoot: uploadRoot,
	}
}

// Router builds the chi router with all routes registered.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/api/analyze", s.handleAnalyze)
	r.Get("/api/task/{id}", s.handleGetTask)
	r.Get("/api/tasks", s.handleListTasks)
	r.Get("/api/datasets", s.handleListDatasets)
	r.Post("/api/datasets/{name}/analyze", s.handleAnalyzeDataset)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// allowedUploadTypes are the content types accepted for uploaded images.
var allowedUploadTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/heic": true,
	"image/webp": true,
}

// handleAnalyze accepts a multipart batch under the "images" field, stages
// it to a per-batch directory, and kicks off async processing. Responds
// immediately with the task id.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	maxFileBytes := int64(s.cfg.MaxUploadSizeMB) << 20
	maxTotal := maxFileBytes * int64(s.cfg.MaxUploadImages)

	r.Body = http.MaxBytesReader(w, r.Body, maxTotal)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "No images provided")
		return
	}
	if len(files) > s.cfg.MaxUploadImages {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("too many images: max %d", s.cfg.MaxUploadImages))
		return
	}

	uploadDir := filepath.Join(s.uploadRoot, uuid.NewString())
	if err := s.stageUpload(uploadDir, files, maxFileBytes); err != nil {
		cleanupDirectory(uploadDir)
		var reqErr *requestError
		if errors.As(err, &reqErr) {
			writeError(w, http.StatusBadRequest, reqErr.msg)
			return
		}
		zap.L().Error("server: failed to stage upload", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	t := s.tasks.Create()
	writeJSON(w, http.StatusOK, map[string]string{"taskId": t.ID})

	go s.processAsync(t.ID, uploadDir, pipeline.Options{Label: t.ID}, true)
}

// handleAnalyzeDataset runs the pipeline over a named dataset. Known info
// and any cached context come from the dataset sidecar; a freshly detected
// context is written back to it.
func (s *Server) handleAnalyzeDataset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	dir, err := s.catalog.Path(name)
	if err != nil {
		writeError(w, http.StatusNotFound, "dataset not found")
		return
	}

	meta, err := dataset.ReadMeta(dir)
	if err != nil {
		zap.L().Error("server: failed to read dataset meta", zap.String("dataset", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read dataset meta")
		return
	}

	opts := pipeline.Options{
		Label: name,
		Known: meta.Known,
	}
	if meta.HasContext() {
		opts.Context = meta.Context
	}

	t := s.tasks.Create()
	writeJSON(w, http.StatusOK, map[string]string{"taskId": t.ID})

	go func() {
		result := s.runJob(t.ID, dir, opts)
		if result != nil && result.Context != nil && !meta.HasContext() {
			if _, err := dataset.UpdateContext(dir, result.Context); err != nil {
				zap.L().Warn("server: failed to cache dataset context",
					zap.String("dataset", name),
					zap.Error(err),
				)
			}
		}
	}()
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, ok := s.tasks.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}

	resp := map[string]any{
		"id":        t.ID,
		"status":    t.Status,
		"createdAt": t.CreatedAt,
	}
	if t.Status == task.StatusCompleted && t.Result != nil {
		resp["result"] = t.Result
	}
	if t.Status == task.StatusFailed && t.Error != "" {
		resp["error"] = t.Error
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks := s.tasks.List()
	out := make([]map[string]any, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, map[string]any{
			"id":        t.ID,
			"status":    t.Status,
			"createdAt": t.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": out})
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	entries, err := s.catalog.List()
	if err != nil {
		zap.L().Error("server: failed to list datasets", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list datasets")
		return
	}
	if entries == nil {
		entries = []dataset.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"datasets": entries})
}

// processAsync runs a job and optionally removes the staged upload
// directory afterwards, on success and failure alike.
func (s *Server) processAsync(taskID, dir string, opts pipeline.Options, cleanup bool) {
	s.runJob(taskID, dir, opts)
	if cleanup {
		cleanupDirectory(dir)
	}
}

// runJob drives one task through the pipeline, updating the registry as it
// goes. Detached from the request context on purpose: the upload response
// has already been sent.
func (s *Server) runJob(taskID, dir string, opts pipeline.Options) *pipeline.Result {
	log := zap.L().With(zap.String("task_id", taskID))

	processing := task.StatusProcessing
	s.tasks.Update(taskID, task.Update{Status: &processing})

	result, err := s.runner.Analyze(context.Background(), dir, opts)
	if err != nil {
		log.Error("server: task failed", zap.Error(err))
		failed := task.StatusFailed
		msg := err.Error()
		s.tasks.Update(taskID, task.Update{Status: &failed, Error: &msg})
		return nil
	}

	completed := task.StatusCompleted
	s.tasks.Update(taskID, task.Update{Status: &completed, Result: result.Blueprint})
	log.Info("server: task completed",
		zap.String("character_name", result.Blueprint.CharacterName()),
	)
	return result
}

// requestError marks staging failures caused by the client's payload.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

// stageUpload writes each uploaded file into dir under its original base
// name, rejecting oversized files and unexpected content types.
func (s *Server) stageUpload(dir string, files []*multipart.FileHeader, maxFileBytes int64) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "server: create upload dir %s", dir)
	}

	for _, fh := range files {
		if maxFileBytes > 0 && fh.Size > maxFileBytes {
			return &requestError{msg: fmt.Sprintf("file too large: %s", fh.Filename)}
		}
		contentType := fh.Header.Get("Content-Type")
		if contentType != "" && !allowedUploadTypes[strings.ToLower(contentType)] {
			return &requestError{msg: fmt.Sprintf("unsupported image type: %s", contentType)}
		}

		if err := saveUploadedFile(fh, filepath.Join(dir, filepath.Base(fh.Filename))); err != nil {
			return err
		}
	}
	return nil
}

func saveUploadedFile(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return eris.Wrapf(err, "server: open uploaded file %s", fh.Filename)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return eris.Wrapf(err, "server: create %s", dst)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return eris.Wrapf(err, "server: write %s", dst)
	}
	return nil
}

func cleanupDirectory(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		zap.L().Warn("server: failed to remove upload dir",
			zap.String("dir", dir),
			zap.Error(err),
		)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Warn("server: failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
