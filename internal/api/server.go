package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/kumarlokesh/sysd/exercises/tst/internal/config"
	"github.com/kumarlokesh/sysd/exercises/tst/internal/store"
)

// maxValueSize bounds the request body of a PUT
const maxValueSize = 1 << 20

// requestIDHeader carries the request id in both directions
const requestIDHeader = "X-Request-ID"

// Server represents the HTTP API server
type Server struct {
	store  store.Store
	server *http.Server
	logger zerolog.Logger

	mu       sync.Mutex
	listener net.Listener
	ready    chan struct{}
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, st store.Store, logger zerolog.Logger) *Server {
	s := &Server{
		store:  st,
		logger: logger.With().Str("component", "api").Logger(),
		ready:  make(chan struct{}),
	}

	r := mux.NewRouter()
	r.UseEncodedPath()
	// dot segments are keys, not path navigation
	r.SkipClean(true)
	r.Use(s.requestID)
	r.Use(s.accessLog)

	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.stats).Methods(http.MethodGet)

	r.HandleFunc("/keys", s.listKeys).Methods(http.MethodGet)
	r.HandleFunc("/keys/{key:.+}", s.putKey).Methods(http.MethodPut)
	r.HandleFunc("/keys/{key:.+}", s.getKey).Methods(http.MethodGet)
	r.HandleFunc("/keys/{key:.+}", s.deleteKey).Methods(http.MethodDelete)

	s.server = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// Handler returns the HTTP handler for the server
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Ready is closed once the server is accepting connections
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the address the server listens on. Before Start it returns
// the configured address.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.server.Addr
}

// Start listens on the configured address and serves requests until
// Shutdown is called.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	close(s.ready)

	s.logger.Info().Str("addr", listener.Addr().String()).Msg("server listening")

	if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down server")
	return s.server.Shutdown(ctx)
}

// requestID tags every request with an id, reusing the caller's when given.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		logger := s.logger.With().Str("request_id", id).Logger()
		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context())))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		zerolog.Ctx(r.Context()).Debug().
			Str("method", r.Method).
			Str("path", r.URL.EscapedPath()).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request handled")
	})
}

// Helper functions for HTTP responses
func (s *Server) respond(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
	}
	s.respond(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrEmptyKey), errors.Is(err, store.ErrKeyTooLong):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// key extracts the unescaped key from the request path.
func key(r *http.Request) (string, error) {
	k, err := url.PathUnescape(mux.Vars(r)["key"])
	if err != nil {
		return "", fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return k, nil
}

var errBadRequest = errors.New("bad request")

// HTTP Handlers
// putKey handles PUT /keys/{key} - store a value
func (s *Server) putKey(w http.ResponseWriter, r *http.Request) {
	k, err := key(r)
	if err != nil {
		s.respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	overwrite := false
	if raw := r.URL.Query().Get("overwrite"); raw != "" {
		overwrite, err = strconv.ParseBool(raw)
		if err != nil {
			s.respond(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid overwrite flag %q", raw)})
			return
		}
	}

	value, err := io.ReadAll(io.LimitReader(r.Body, maxValueSize+1))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("failed to read body: %w", err))
		return
	}
	if len(value) > maxValueSize {
		s.respond(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "value too large"})
		return
	}

	created, err := s.store.Put(r.Context(), k, value, overwrite)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	s.respond(w, status, map[string]interface{}{
		"key":     k,
		"created": created,
	})
}

// getKey handles GET /keys/{key} - return the raw value
func (s *Server) getKey(w http.ResponseWriter, r *http.Request) {
	k, err := key(r)
	if err != nil {
		s.respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	value, err := s.store.Get(r.Context(), k)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(value)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(value)
}

// deleteKey handles DELETE /keys/{key} - remove a key and return its value
func (s *Server) deleteKey(w http.ResponseWriter, r *http.Request) {
	k, err := key(r)
	if err != nil {
		s.respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	old, err := s.store.Delete(r.Context(), k)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.respond(w, http.StatusOK, store.Entry{Key: k, Value: old})
}

// listKeys handles GET /keys?prefix= - list entries under a prefix
func (s *Server) listKeys(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")

	entries, err := s.store.List(r.Context(), prefix)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]interface{}{
		"prefix": prefix,
		"keys":   entries,
	})
}

// stats handles GET /stats
func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.Size(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]int{"size": n})
}

// health handles GET /healthz
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("health check failed")
		s.respond(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}
