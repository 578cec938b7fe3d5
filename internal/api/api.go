// Package api is the thin HTTP transport over the analysis pipeline:
// multipart decoding in, report JSON out. All analysis semantics live
// in the pipeline packages.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"featuremap/internal/model"
	"featuremap/internal/pipeline"
	"featuremap/internal/sandbox"
)

// Server handles the analysis routes.
type Server struct {
	engine *pipeline.Engine
	log    *zap.Logger
}

// NewServer wires the engine into an HTTP handler set. logger may be nil.
func NewServer(engine *pipeline.Engine, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{engine: engine, log: logger}
}

// Handler returns the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /api/v1/analyze", s.handleAnalyze(false))
	mux.HandleFunc("POST /api/v1/analyze-with-verification", s.handleAnalyze(true))
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyze(verify bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		description := r.FormValue("problem_description")
		if description == "" {
			writeError(w, http.StatusBadRequest, "problem_description is required")
			return
		}

		file, _, err := r.FormFile("code_zip")
		if err != nil {
			writeError(w, http.StatusBadRequest, "code_zip archive upload is required")
			return
		}
		defer file.Close()

		archive, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "reading upload: "+err.Error())
			return
		}

		var rep model.Report
		var diag pipeline.Diagnostics
		if verify {
			rep, diag, err = s.engine.AnalyzeWithVerification(r.Context(), archive, description)
		} else {
			rep, diag, err = s.engine.Analyze(r.Context(), archive, description)
		}
		if err != nil {
			s.writeAnalysisError(w, err)
			return
		}

		s.log.Info("analysis complete",
			zap.Int("files", diag.Files),
			zap.Int("units", diag.Units),
			zap.Int("unreadable", len(diag.Unreadable)),
			zap.Int("truncated", len(diag.Truncated)),
			zap.Int("partial", len(diag.Partial)),
			zap.Bool("verify", verify))
		writeJSON(w, http.StatusOK, rep)
	}
}

// writeAnalysisError maps the sandbox taxonomy to status codes. Fatal
// errors already carry actionable context without host paths.
func (s *Server) writeAnalysisError(w http.ResponseWriter, err error) {
	var tooLarge *sandbox.ArchiveTooLargeError
	var traversal *sandbox.PathTraversalError
	var unsupported *sandbox.UnsupportedArchiveError

	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, tooLarge.Error())
	case errors.As(err, &traversal):
		writeError(w, http.StatusBadRequest, traversal.Error())
	case errors.As(err, &unsupported):
		writeError(w, http.StatusBadRequest, unsupported.Error())
	default:
		s.log.Error("analysis failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "analysis failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
