// Package server exposes the dispatch engines over HTTP. The engines stay
// pure; the server owns request decoding, preset resolution and the
// gzip/logging middleware.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/levenlabs/go-lflag"

	"github.com/gridpilot/gridpilot/pkg/engine"
	"github.com/gridpilot/gridpilot/pkg/log"
	"github.com/gridpilot/gridpilot/pkg/profiles"
)

// Server handles the HTTP scoring API.
type Server struct {
	scalar  *engine.ScalarEngine
	batch   *engine.BatchEngine
	presets *profiles.Set

	listenAddr string
	httpServer *http.Server

	// process-level keep-SOC defaults, applied when a request leaves the
	// options zero
	keepTargetKWh float64
	keepWeight    float64
}

// Configured initializes the Server and registers its command-line flags.
func Configured() *Server {
	srv := &Server{
		scalar: engine.NewScalar(),
		batch:  engine.NewBatch(),
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	listenAddr := lflag.String("http-listen", ":"+port, "HTTP server listen address")
	profilesFile := lflag.String("profiles-file", "", "Path to the YAML battery/inverter preset file")
	keepTarget := lflag.String("keep-target-kwh", "0", "Default SOC level the keep metric protects")
	keepWeight := lflag.String("keep-weight", "0", "Default weight of the keep metric in the final cost")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr
		var err error
		if srv.keepTargetKWh, err = strconv.ParseFloat(*keepTarget, 64); err != nil {
			log.Ctx(context.Background()).Error("invalid keep-target-kwh", slog.Any("error", err))
			os.Exit(1)
		}
		if srv.keepWeight, err = strconv.ParseFloat(*keepWeight, 64); err != nil {
			log.Ctx(context.Background()).Error("invalid keep-weight", slog.Any("error", err))
			os.Exit(1)
		}
		if *profilesFile != "" {
			set, err := profiles.Load(*profilesFile)
			if err != nil {
				log.Ctx(context.Background()).Error("failed to load profiles", slog.Any("error", err))
				os.Exit(1)
			}
			srv.presets = set
		}
	})
	return srv
}

func (s *Server) setupHandler() http.Handler {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("POST /api/simulate", s.handleSimulate)
	apiMux.HandleFunc("POST /api/batch", s.handleBatch)
	apiMux.HandleFunc("GET /api/engines", s.handleEngines)
	apiMux.HandleFunc("GET /api/profiles", s.handleProfiles)

	mux := http.NewServeMux()
	mux.Handle("/api/", s.loggingMiddleware(apiMux))
	mux.HandleFunc("/healthz", s.handleHealthz)
	return gziphandler.GzipHandler(mux)
}

// Run starts the HTTP server and blocks until the context is canceled or an
// error occurs, shutting down gracefully in the former case.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.setupHandler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := log.WithAttrs(r.Context(),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path))
		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))
		log.Ctx(ctx).DebugContext(ctx, "request served",
			slog.Duration("duration", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		slog.Warn("failed to write error response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}
