package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/einkcast/einkcast/pkg/logging"
	"github.com/einkcast/einkcast/pkg/status"
	"github.com/einkcast/einkcast/pkg/storage"
)

// New builds the HTTP server exposing each job's latest rendered image, a
// health probe, and the most recent outcome per job.
func New(port int, store *storage.FileStore, outcomes *status.MemorySink, logger logging.Logger) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      Handler(store, outcomes, logging.Component(logger, "http")),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Handler builds the route tree.
func Handler(store *storage.FileStore, outcomes *status.MemorySink, logger logging.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/outcomes", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(outcomes.Latest())
	})

	r.Get("/{file}", func(w http.ResponseWriter, req *http.Request) {
		file := chi.URLParam(req, "file")
		if strings.ContainsAny(file, `/\`) || strings.Contains(file, "..") {
			http.NotFound(w, req)
			return
		}
		http.ServeFile(w, req, filepath.Join(store.BasePath(), file))
	})

	return r
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)
			logger.Info().Msgf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
		})
	}
}
