// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

// Package server exposes the latest statistics of a running ping session
// over HTTP
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/DataDog/datadog-mping/common"
	"github.com/DataDog/datadog-mping/log"
	"github.com/DataDog/datadog-mping/result"
)

// statsTTL is how long the stats of a target are served after its last
// report
var statsTTL = 60 * time.Second

// Server is the HTTP server for the ping stats API
type Server struct {
	stats     *ttlcache.Cache[string, result.TargetStats]
	startTime time.Time

	mu      sync.RWMutex
	session *result.Session
	failure *common.PingError
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Uptime    string `json:"uptime"`
	Targets   int    `json:"targets"`
	Error     string `json:"error,omitempty"`
}

// NewServer creates a new HTTP server with an empty stats store
func NewServer() *Server {
	return &Server{
		stats: ttlcache.New[string, result.TargetStats](
			ttlcache.WithTTL[string, result.TargetStats](statsTTL),
		),
		startTime: time.Now(),
	}
}

// SetSession records the session served by GET /session
func (s *Server) SetSession(session *result.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
}

// SetError marks the session as failed; GET /health reports it
func (s *Server) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = common.ClassifyError(err)
}

// Record stores the stats of one target, replacing the previous window
func (s *Server) Record(stats result.TargetStats) {
	s.stats.Set(stats.Target, stats, ttlcache.DefaultTTL)
}

// Consume records every stats received on in until in is closed or ctx is
// done
func (s *Server) Consume(ctx context.Context, in <-chan result.TargetStats) {
	for {
		select {
		case <-ctx.Done():
			return
		case stats, ok := <-in:
			if !ok {
				return
			}
			s.Record(stats)
		}
	}
}

// StatsHandler handles GET /stats requests
func (s *Server) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	target := getStringParam(query, "target", "")
	pretty := getBoolParam(query, "pretty", false)
	minLoss, err := getIntRangeParam(query, "min-loss", 0, 0, 100)
	if err != nil {
		writeError(w, http.StatusBadRequest, &common.PingError{
			Code:    common.ErrCodeInvalidConfig,
			Message: fmt.Sprintf("invalid %s", err),
		})
		return
	}

	s.stats.DeleteExpired()
	if target != "" {
		item := s.stats.Get(target)
		if item == nil {
			writeError(w, http.StatusNotFound, &common.PingError{
				Code:    common.ErrCodeInvalidConfig,
				Message: fmt.Sprintf("no stats for target %s", target),
			})
			return
		}
		writeJSON(w, http.StatusOK, item.Value(), pretty)
		return
	}

	stats := make([]result.TargetStats, 0, s.stats.Len())
	for _, item := range s.stats.Items() {
		st := item.Value()
		if st.LossRate*100 < float64(minLoss) {
			continue
		}
		stats = append(stats, st)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Target < stats[j].Target })
	writeJSON(w, http.StatusOK, stats, pretty)
}

// SessionHandler handles GET /session requests
func (s *Server) SessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.mu.RLock()
	session := s.session
	s.mu.RUnlock()

	if session == nil {
		writeError(w, http.StatusNotFound, &common.PingError{
			Code:    common.ErrCodeUnknown,
			Message: "no session running",
		})
		return
	}
	writeJSON(w, http.StatusOK, session, getBoolParam(r.URL.Query(), "pretty", false))
}

// HealthHandler handles GET and HEAD /health requests
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	failure := s.failure
	s.mu.RUnlock()

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Targets:   s.stats.Len(),
	}
	status := http.StatusOK
	if failure != nil {
		resp.Status = "unhealthy"
		resp.Error = fmt.Sprintf("%s: %s", failure.Code, failure.Message)
		status = http.StatusServiceUnavailable
	}

	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		return
	}
	writeJSON(w, status, resp, false)
}

// Handler returns the routes of the API
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/stats", s.StatsHandler)
	mux.HandleFunc("/session", s.SessionHandler)
	mux.HandleFunc("/health", s.HealthHandler)
	return mux
}

// Start serves the API on addr until ctx is done
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Debugf("HTTP server shutdown: %s", err)
		}
	}()

	log.Debugf("Starting HTTP server on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		log.Debugf("Failed to encode response: %s", err)
	}
}

func writeError(w http.ResponseWriter, status int, err *common.PingError) {
	writeJSON(w, status, common.ErrorResponse{Code: err.Code, Message: err.Message}, false)
}
