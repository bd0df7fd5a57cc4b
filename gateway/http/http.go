// Package http serves the RPC API over HTTP. All calls under the app's URL
// prefix are funneled through the single app entry point; the server also
// exposes /healthz and /metrics.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/guyskk/weirb-hrpc/app"
	"github.com/guyskk/weirb-hrpc/errors"
	"github.com/guyskk/weirb-hrpc/gateway"
)

// RequestIDHeader carries the request id end to end.
const RequestIDHeader = "X-Request-ID"

const defaultMaxRequestSize = 1 << 20 // 1MB

// Server is the HTTP transport over one app.
type Server struct {
	app            *app.App
	logger         *slog.Logger
	maxRequestSize int64

	running atomic.Bool
	server  *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithMaxRequestSize caps accepted request bodies in bytes.
func WithMaxRequestSize(limit int64) Option {
	return func(s *Server) { s.maxRequestSize = limit }
}

// NewServer creates the transport over a booted app. Listen address and
// request timeout come from the app's configuration (host, port,
// request_timeout).
func NewServer(a *app.App, opts ...Option) *Server {
	s := &Server{
		app:            a,
		logger:         a.Logger().With("transport", "http"),
		maxRequestSize: defaultMaxRequestSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Addr returns the listen address from configuration.
func (s *Server) Addr() string {
	snap := s.app.Snapshot()
	return fmt.Sprintf("%s:%d", snap.GetString("host", "127.0.0.1"), snap.GetInt("port", 8080))
}

// Routes builds the HTTP mux: every verb and path under the RPC prefix is
// handed to the app entry point (which owns not-found and wrong-verb
// mapping), plus the operational endpoints.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	prefix := s.app.Router().Prefix()
	r.HandleFunc(prefix+"/*", s.handleRPC)
	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", s.app.Metrics().Handler())
	return r
}

// Start listens and serves until the context is canceled or Shutdown is
// called. It blocks like http.Server.ListenAndServe.
func (s *Server) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.NewConfig("http server already running")
	}
	s.server = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.logger.Info("http server listening", "addr", s.server.Addr)
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests within timeout.
func (s *Server) Shutdown(timeout time.Duration) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	id := requestID(r)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxRequestSize))
	if err != nil {
		s.logger.Warn("read request body", "request_id", id, "error", err)
		writeError(w, id, http.StatusRequestEntityTooLarge,
			errors.NewInvalidParams("request body too large or unreadable"))
		return
	}

	req := &gateway.Request{
		Method:     r.Method,
		Path:       r.URL.Path,
		Header:     flattenHeader(r.Header),
		Body:       body,
		RemoteAddr: r.RemoteAddr,
		ID:         id,
	}

	ctx := r.Context()
	timeout := s.app.Snapshot().GetDuration("request_timeout", time.Minute)
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp := s.app.Handle(ctx, req)
	writeResponse(w, id, resp)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	status := s.app.Health().Status()
	code := http.StatusOK
	if status.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}

// requestID extracts the caller's request id or generates one.
func requestID(r *http.Request) string {
	if id := r.Header.Get(RequestIDHeader); id != "" {
		return id
	}
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

func flattenHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for key := range h {
		out[key] = h.Get(key)
	}
	return out
}

func writeResponse(w http.ResponseWriter, id string, resp *gateway.Response) {
	for key, value := range resp.Header {
		w.Header().Set(key, value)
	}
	w.Header().Set(RequestIDHeader, id)
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

func writeError(w http.ResponseWriter, id string, status int, domain *errors.Error) {
	body, err := json.Marshal(domain)
	if err != nil {
		body = nil
	}
	writeResponse(w, id, &gateway.Response{
		Status: status,
		Header: map[string]string{"Content-Type": "application/json"},
		Body:   body,
	})
}
