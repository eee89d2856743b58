// Package server exposes the analysis pipeline over HTTP.
//
// POST /analyze accepts an image upload and streams the pipeline event
// protocol as Server-Sent Events: the same JSON records the CLI prints as
// NDJSON, one per `data:` line. Finished reports are persisted when a
// report store is configured and can be fetched back by run ID.
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kolamlabs/kolamscan/pkg/buildinfo"
	"github.com/kolamlabs/kolamscan/pkg/errors"
	"github.com/kolamlabs/kolamscan/pkg/pipeline"
	"github.com/kolamlabs/kolamscan/pkg/report"
)

// maxUploadBytes caps analyze request bodies.
const maxUploadBytes = 32 << 20

// Server handles HTTP requests for the analysis service.
type Server struct {
	runner *pipeline.Runner
	store  *report.MongoStore
	logger *log.Logger
	router chi.Router
}

// New creates a server around the given runner. store may be nil to run
// without persistence.
func New(runner *pipeline.Runner, store *report.MongoStore, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		runner: runner,
		store:  store,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Post("/analyze", s.handleAnalyze)
	r.Get("/reports", s.handleListReports)
	r.Get("/reports/{id}", s.handleGetReport)

	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

// handleAnalyze accepts a multipart upload (field "image") or a raw image
// body and streams analysis events as SSE.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	path, cleanup, err := s.receiveImage(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer cleanup()

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	opts := pipeline.Options{Path: path, Refresh: refresh, Logger: s.logger}

	for ev := range s.runner.Run(r.Context(), opts) {
		data, err := json.Marshal(ev)
		if err != nil {
			s.logger.Error("encode event", "err", err)
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()

		if final, ok := ev.(pipeline.Final); ok && s.store != nil {
			if err := s.store.Save(r.Context(), final.Report); err != nil {
				s.logger.Error("persist report", "run_id", final.Report.RunID, "err", err)
			}
		}
	}
}

// receiveImage materializes the uploaded image as a temp file for the
// pipeline's path-based loader.
func (s *Server) receiveImage(w http.ResponseWriter, r *http.Request) (string, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	var src io.Reader = r.Body
	name := "upload"
	if err := r.ParseMultipartForm(maxUploadBytes); err == nil {
		file, header, err := r.FormFile("image")
		if err != nil {
			return "", nil, fmt.Errorf("missing image field: %w", err)
		}
		src = file
		name = header.Filename
	}

	tmp, err := os.CreateTemp("", "kolamscan-*"+filepath.Ext(name))
	if err != nil {
		return "", nil, fmt.Errorf("stage upload: %w", err)
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("read upload: %w", err)
	}
	tmp.Close()

	cleanup := func() { os.Remove(tmp.Name()) }
	return tmp.Name(), cleanup, nil
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "report store not configured", http.StatusServiceUnavailable)
		return
	}
	id := chi.URLParam(r, "id")
	rep, err := s.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, errors.ErrCodeReportNotFound) {
			http.Error(w, "report not found", http.StatusNotFound)
			return
		}
		s.logger.Error("load report", "id", id, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "report store not configured", http.StatusServiceUnavailable)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	reports, err := s.store.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("list reports", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
