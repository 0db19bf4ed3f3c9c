// Package server provides the tool registry, prompts and the MCP transports
// (stdio and HTTP server-sent events) that expose them.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"rhdh-mcp/internal/toolerr"
	"rhdh-mcp/internal/upstream"
)

// Version is reported to clients during initialization.
const Version = "0.1.0"

// Config contains server configuration values such as name, port and auth token.
type Config struct {
	Name        string
	Port        int
	Token       string
	TLSCertFile string
	TLSKeyFile  string
}

// Server owns the immutable tool and prompt tables and the transports serving them.
type Server struct {
	cfg      Config
	logger   zerolog.Logger
	tools    *Registry
	prompts  *Prompts
	mcp      *mcp.Server
	router   *chi.Mux
	sessions *sseSessions
}

// New constructs a Server with middleware and routes configured.
func New(cfg Config, tools *Registry, prompts *Prompts, logger zerolog.Logger) (*Server, error) {
	if cfg.Name == "" {
		cfg.Name = "rhdh-mcp"
	}
	if prompts == nil {
		prompts, _ = NewPrompts(logger)
	}
	m, err := newMCPServer(cfg.Name, Version, tools, prompts)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger.With().Str("server", cfg.Name).Logger(),
		tools:    tools,
		prompts:  prompts,
		mcp:      m,
		router:   chi.NewRouter(),
		sessions: &sseSessions{m: make(map[string]*mcp.SSEServerTransport)},
	}
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)

	s.router.Group(func(r chi.Router) {
		r.Use(s.auth)
		r.Get("/sse", s.handleSSE)
		r.With(middleware.Timeout(60*time.Second)).Post("/messages", s.handleMessages)
	})

	s.router.Route("/mcp", func(r chi.Router) {
		r.Use(s.auth)
		r.Use(middleware.Timeout(60 * time.Second))
		r.Get("/tools", s.handleListTools)
		r.Post("/call", s.handleCall)
		r.Get("/prompts", s.handleListPrompts)
		r.Post("/prompts/{name}", s.handleGetPrompt)
	})

	return s, nil
}

// Router exposes the root HTTP handler for the server.
func (s *Server) Router() http.Handler { return s.router }

// MCP exposes the underlying MCP server.
func (s *Server) MCP() *mcp.Server { return s.mcp }

// ServeStdio serves a single session over stdin/stdout until ctx is done or
// the client disconnects.
func (s *Server) ServeStdio(ctx context.Context) error {
	s.logger.Info().Msg("starting stdio server")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// ListenAndServe serves the SSE endpoints on the configured port until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := s.httpServer(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", srv.Addr).Bool("tls", s.cfg.TLSCertFile != "").Msg("starting sse server")
		if s.cfg.TLSCertFile != "" && s.cfg.TLSKeyFile != "" {
			errCh <- srv.ListenAndServeTLS(s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
			return
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// httpServer derives request contexts from ctx so open event streams end
// when ctx is cancelled; Shutdown alone does not cancel them.
func (s *Server) httpServer(ctx context.Context) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Token == "" {
			next.ServeHTTP(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+s.cfg.Token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "tools": s.tools.Names()})
}

// handleSSE opens a session whose event stream is this response. The client
// posts its messages to the endpoint announced in the first event.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	log := s.logger.With().Str("session", id).Logger()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	transport := &mcp.SSEServerTransport{Endpoint: "/messages?sessionid=" + id, Response: w}
	s.sessions.add(id, transport)
	defer s.sessions.remove(id)

	ss, err := s.mcp.Connect(r.Context(), transport, nil)
	if err != nil {
		log.Error().Err(err).Msg("sse session failed to connect")
		return
	}
	log.Info().Msg("sse session opened")

	done := make(chan struct{})
	go func() {
		_ = ss.Wait()
		close(done)
	}()
	select {
	case <-r.Context().Done():
		_ = ss.Close()
		<-done
	case <-done:
	}
	log.Info().Msg("sse session closed")
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("sessionid")
	if id == "" {
		id = r.URL.Query().Get("session_id")
	}
	if id == "" {
		http.Error(w, "missing sessionid", http.StatusBadRequest)
		return
	}
	t, ok := s.sessions.get(id)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	t.ServeHTTP(w, r)
}

func (s *Server) handleListTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": s.tools.List()})
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	var req CallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	res, err := s.tools.Call(r.Context(), req.Name, req.Args)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListPrompts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"prompts": s.prompts.List()})
}

func (s *Server) handleGetPrompt(w http.ResponseWriter, r *http.Request) {
	var args map[string]string
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
	}
	res, err := s.prompts.Get(chi.URLParam(r, "name"), args)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// writeError maps the error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	body := map[string]any{"error": err.Error()}
	status := http.StatusInternalServerError

	var se *upstream.StatusError
	switch {
	case errors.Is(err, toolerr.ErrUnknownTool), errors.Is(err, toolerr.ErrUnknownPrompt):
		status = http.StatusNotFound
	case errors.Is(err, toolerr.ErrMissingArgument), errors.Is(err, toolerr.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, upstream.ErrTimeout):
		status = http.StatusGatewayTimeout
	case errors.As(err, &se):
		status = http.StatusBadGateway
		body["upstreamStatus"] = se.StatusCode
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Debug().
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("duration", time.Since(start)).
					Msg("http request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

type sseSessions struct {
	mu sync.RWMutex
	m  map[string]*mcp.SSEServerTransport
}

func (s *sseSessions) add(id string, t *mcp.SSEServerTransport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[id] = t
}

func (s *sseSessions) get(id string) (*mcp.SSEServerTransport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.m[id]
	return t, ok
}

func (s *sseSessions) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
}
