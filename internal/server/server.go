// Package server exposes the validator's HTTP surface: health and
// metrics, secret issuance for clients, and the administrative receipt
// injection hook.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fairside/validator/internal/core/secret"
	"github.com/fairside/validator/internal/validator"
)

// HealthChecker reports readiness of a dependency.
type HealthChecker func(ctx context.Context) error

// Server provides HTTP endpoints for the validator.
type Server struct {
	secrets *secret.Store
	daemon  *validator.Daemon
	checks  map[string]HealthChecker
	server  *http.Server
}

// NewServer creates the HTTP server.
func NewServer(
	port int,
	secrets *secret.Store,
	daemon *validator.Daemon,
	checks map[string]HealthChecker,
) *Server {
	mux := http.NewServeMux()
	s := &Server{
		secrets: secrets,
		daemon:  daemon,
		checks:  checks,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/secrets", s.handleIssueSecret)
	mux.HandleFunc("/admin/inject", s.handleInject)

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	report := make(map[string]string, len(s.checks)+1)
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			report[name] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			report[name] = "ok"
		}
	}

	watchers := make(map[string]string)
	for _, wt := range s.daemon.Watchers() {
		watchers[wt.GameName()] = string(wt.State())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"checks":   report,
		"watchers": watchers,
	})
}

// handleIssueSecret serves GET/POST /secrets → {secretHash, disposedAt}.
func (s *Server) handleIssueSecret(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	issued := s.secrets.Issue()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(issued)
}

// handleInject accepts a transaction receipt JSON, pushes it into the
// daemon and blocks until the order completes.
func (s *Server) handleInject(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var receipt types.Receipt
	if err := json.NewDecoder(r.Body).Decode(&receipt); err != nil {
		http.Error(w, fmt.Sprintf("invalid receipt: %v", err), http.StatusBadRequest)
		return
	}

	err := s.daemon.InjectAndWait(r.Context(), &receipt)
	if errors.Is(err, validator.ErrNoMatchingWatcher) {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "processed"})
}
