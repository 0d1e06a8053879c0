package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/elonfeng/parksync/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server provides a read-only HTTP API over the synced database.
type Server struct {
	store    store.Store
	gatherer prometheus.Gatherer
	port     int
	logger   *slog.Logger
}

// New creates a new HTTP server.
func New(s store.Store, gatherer prometheus.Gatherer, port int, logger *slog.Logger) *Server {
	if port == 0 {
		port = 8080
	}
	return &Server{
		store:    s,
		gatherer: gatherer,
		port:     port,
		logger:   logger,
	}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/v1/parks", s.handleParks)
	mux.HandleFunc("/api/v1/activities", s.handleActivities)
	mux.HandleFunc("/api/v1/amenities", s.handleAmenities)
	mux.HandleFunc("/api/v1/stats", s.handleStats)
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return mux
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("server listening", "addr", srv.Addr)
	return srv.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleParks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	opts := store.ParkListOpts{
		State: r.URL.Query().Get("state"),
		Limit: 100,
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		opts.Limit = n
	}

	parks, err := s.store.ListParks(r.Context(), opts)
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeList(w, parks)
}

func (s *Server) handleActivities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	parkID := r.URL.Query().Get("park_id")
	if parkID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "park_id is required"})
		return
	}

	activities, err := s.store.ListActivities(r.Context(), parkID)
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeList(w, activities)
}

func (s *Server) handleAmenities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	amenities, err := s.store.ListAmenities(r.Context(), store.AmenityListOpts{
		ParkCode: r.URL.Query().Get("park_code"),
	})
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeList(w, amenities)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	counts, err := s.store.Stats(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": counts})
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.logger.Error("request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func writeList[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  items,
		"count": len(items),
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
