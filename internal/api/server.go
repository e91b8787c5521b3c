package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Lllllllleong/posplitter/internal/models"
	"github.com/Lllllllleong/posplitter/internal/splitter"
)

// Splitter is the part of *splitter.Splitter the server needs.
type Splitter interface {
	Split(ctx context.Context, inputPath, outputDir string, onProgress splitter.ProgressFunc) (*models.SplitReport, error)
}

// Server is the local HTTP API in front of the splitter.
type Server struct {
	router           chi.Router
	splitter         Splitter
	log              *slog.Logger
	defaultOutputDir string
}

// NewServer creates and configures the HTTP server. defaultOutputDir is used
// for requests that do not name an output directory.
func NewServer(sp Splitter, log *slog.Logger, defaultOutputDir string) *Server {
	s := &Server{
		splitter:         sp,
		log:              log,
		defaultOutputDir: defaultOutputDir,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)
	r.Post("/api/split", s.handleSplit)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	var req models.SplitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "could not parse JSON")
		return
	}
	if req.OutputDir == "" {
		req.OutputDir = s.defaultOutputDir
	}
	if req.InputPath == "" || req.OutputDir == "" {
		writeError(w, http.StatusBadRequest, "please select both an input file and an output folder")
		return
	}

	logCtx := s.log.With("requestId", middleware.GetReqID(r.Context()), "inputPath", req.InputPath)
	logCtx.Info("Split requested.", "outputDir", req.OutputDir)

	report, err := s.splitter.Split(r.Context(), req.InputPath, req.OutputDir, nil)
	resp := models.SplitResponse{Status: "success", Report: report}
	code := http.StatusOK
	if err != nil {
		resp.Status = "error"
		resp.Kind = splitter.KindName(err)
		code = statusFor(err)
	}
	writeJSON(w, code, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, splitter.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, splitter.ErrNoMarkers):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
