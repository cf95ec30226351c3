package mockbackend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"stemdeck/internal/logging"
	"stemdeck/internal/separation"
	"stemdeck/internal/stems"
	"stemdeck/internal/upload"
)

const (
	defaultSteps      = 3
	defaultTTL        = 30 * time.Minute
	defaultRetryAfter = 30 * time.Second
	// etaPerStep is the advertised time per remaining poll.
	etaPerStep = 2 * time.Second
)

// Options configures the mock service.
type Options struct {
	// Bind is the listen address for Start, e.g. 127.0.0.1:8750.
	Bind string
	// Token, when set, is required as a bearer token on every request.
	Token string
	// StemSet selects two or four stems.
	StemSet stems.Set
	// Steps is the number of processing polls before completion.
	Steps int
	// TTL expires jobs; expired jobs answer 404.
	TTL time.Duration
	// MaxActiveJobs rate limits submissions when positive.
	MaxActiveJobs int
	// RetryAfter is advertised on rate-limited responses.
	RetryAfter time.Duration
	// MaxBytes caps uploads and is reported by /upload/constraints.
	MaxBytes int64
	// Store resolves s3:// input paths.
	Store  separation.ObjectStore
	Logger *slog.Logger
	Now    func() time.Time
}

// Server is an in-memory separation service.
type Server struct {
	opts   Options
	logger *slog.Logger
	router *mux.Router

	mu     sync.Mutex
	jobs   map[string]*job
	nextID int

	listener net.Listener
	server   *http.Server
}

// New builds a server. Call Handler for tests or Start to listen.
func New(opts Options) *Server {
	if opts.StemSet == "" {
		opts.StemSet = stems.SetTwo
	}
	if opts.Steps <= 0 {
		opts.Steps = defaultSteps
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.RetryAfter <= 0 {
		opts.RetryAfter = defaultRetryAfter
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = upload.DefaultMaxBytes
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "mock-backend"),
		jobs:   make(map[string]*job),
	}

	router := mux.NewRouter()
	router.Use(s.logRequests)
	if strings.TrimSpace(opts.Token) != "" {
		router.Use(s.requireToken)
	}
	router.HandleFunc("/separate", s.handleSubmit).Methods(http.MethodPost)
	router.HandleFunc("/separate/{id}", s.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/status/{id}", s.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/upload/constraints", s.handleConstraints).Methods(http.MethodGet)
	router.HandleFunc("/assets/{id}/{file}", s.handleAsset).Methods(http.MethodGet)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found", "")
	})
	s.router = router

	s.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler exposes the routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on opts.Bind and serves until ctx is done or Stop is called.
// It returns the bound address.
func (s *Server) Start(ctx context.Context) (string, error) {
	bind := strings.TrimSpace(s.opts.Bind)
	if bind == "" {
		bind = "127.0.0.1:0"
	}
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return "", fmt.Errorf("mock backend listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("mock backend server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	addr := listener.Addr().String()
	s.logger.Info("mock backend listening",
		logging.String("address", addr),
		logging.String("stem_set", string(s.opts.StemSet)),
		logging.Bool("auth", s.opts.Token != ""),
	)
	return addr, nil
}

// Stop shuts the listener down.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") || strings.TrimPrefix(header, "Bearer ") != s.opts.Token {
			writeError(w, http.StatusUnauthorized, "unauthorized", "")
			return
		}
		next.ServeHTTP(w, r)
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

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", rec.status),
			logging.Duration("elapsed", time.Since(started)),
			logging.String(logging.FieldCorrelationID, r.Header.Get("X-Request-ID")),
		)
	})
}

type errorResponse struct {
	Error             string   `json:"error"`
	Code              string   `json:"code,omitempty"`
	RetryAfterSeconds *float64 `json:"retryAfterSeconds,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}
