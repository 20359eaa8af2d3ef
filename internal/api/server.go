// Package api provides the HTTP API for querying the political map.
// GET endpoints are public (read-only observation).
// Mutating POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talgya/polity/internal/engine"
	"github.com/talgya/polity/internal/geom"
	"github.com/talgya/polity/internal/territory"
	"github.com/talgya/polity/internal/world"
)

const (
	// maxBulkPoints bounds a single bulk on-land query.
	maxBulkPoints = 100000
	// maxBulkBody bounds the bulk request body: room for maxBulkPoints
	// points written with full float precision.
	maxBulkBody = maxBulkPoints*64 + 1024
)

// Server serves the world over HTTP.
type Server struct {
	World    *world.World
	Sim      *engine.Simulation
	Eng      *engine.Engine
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	// BulkLimiter throttles bulk geometry queries per client. Nil means
	// a default of 60 requests per minute.
	BulkLimiter *RateLimiter

	srv *http.Server
}

// Handler builds the routing table.
func (s *Server) Handler() http.Handler {
	bulkLimiter := s.BulkLimiter
	if bulkLimiter == nil {
		bulkLimiter = NewRateLimiter(60, time.Minute)
	}

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/governments", s.handleGovernments)
	mux.HandleFunc("/api/v1/government/", s.handleGovernmentDetail)
	mux.HandleFunc("/api/v1/division/", s.handleDivisionRoutes)
	mux.HandleFunc("/api/v1/water", s.handleWater)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/on_land", s.handleOnLand)
	mux.HandleFunc("/api/v1/on_land/bulk", RateLimitMiddleware(bulkLimiter, s.handleOnLandBulk))
	mux.Handle("/metrics", promhttp.Handler())

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/government", s.adminOnly(s.handleFoundGovernment))
	mux.HandleFunc("/api/v1/establish", s.adminOnly(s.handleEstablish))
	mux.HandleFunc("/api/v1/subdivide", s.adminOnly(s.handleSubdivide))
	mux.HandleFunc("/api/v1/integrate", s.adminOnly(s.handleIntegrate))
	mux.HandleFunc("/api/v1/annex", s.adminOnly(s.handleAnnex))
	mux.HandleFunc("/api/v1/snapshot", s.adminOnly(s.handleSnapshot))

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops the server, waiting for in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS env var to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := s.World.Stats()
	status := map[string]any{
		"name":        "Polity",
		"governments": stats.Governments,
		"divisions":   stats.Divisions,
		"water_area":  stats.WaterArea,
		"last_event":  s.World.Divisions.Chronicle.LastSeq(),
	}
	if s.Eng != nil {
		tick := s.Eng.Tick()
		status["tick"] = tick
		status["sim_time"] = engine.SimTime(tick)
	}
	if s.Sim != nil {
		status["last_saved"] = s.Sim.LastSaved()
	}
	writeJSON(w, status)
}

type territorySummary struct {
	ID           territory.DivisionID `json:"id"`
	Name         string               `json:"name"`
	Subdivisions int                  `json:"subdivisions"`
	Area         float64              `json:"area"` // Whole subtree
}

type governmentSummary struct {
	ID          territory.GovernmentID `json:"id"`
	Name        string                 `json:"name"`
	Territories []territorySummary     `json:"territories"`
	TotalArea   float64                `json:"total_area"`
}

func summarize(g *territory.Government) (governmentSummary, error) {
	out := governmentSummary{ID: g.ID(), Name: g.Name(), Territories: []territorySummary{}}
	for _, d := range g.Territories() {
		joined, err := d.JoinAll()
		if err != nil {
			return out, fmt.Errorf("territory %d: %w", d.ID(), err)
		}
		out.Territories = append(out.Territories, territorySummary{
			ID:           d.ID(),
			Name:         d.Name(),
			Subdivisions: len(d.Subdivisions()),
			Area:         joined.Size(),
		})
		out.TotalArea += joined.Size()
	}
	return out, nil
}

func (s *Server) handleGovernments(w http.ResponseWriter, r *http.Request) {
	govs := s.World.Governments()
	out := make([]governmentSummary, 0, len(govs))
	for _, g := range govs {
		sum, err := summarize(g)
		if err != nil {
			writeError(w, err)
			return
		}
		out = append(out, sum)
	}
	writeJSON(w, out)
}

// handleGovernmentDetail serves GET /api/v1/government/:id.
func (s *Server) handleGovernmentDetail(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(strings.TrimPrefix(r.URL.Path, "/api/v1/government/"))
	if err != nil {
		http.Error(w, "invalid government id", http.StatusBadRequest)
		return
	}
	g, ok := s.World.Government(id)
	if !ok {
		http.Error(w, "government not found", http.StatusNotFound)
		return
	}
	sum, err := summarize(g)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, sum)
}

// handleDivisionRoutes dispatches between division detail
// (GET /api/v1/division/:id) and its subtree (GET /api/v1/division/:id/tree).
func (s *Server) handleDivisionRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/division/"), "/")
	idStr, rest, _ := strings.Cut(path, "/")
	n, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		http.Error(w, "invalid division id", http.StatusBadRequest)
		return
	}
	d, ok := s.World.Divisions.Get(territory.DivisionID(n))
	if !ok {
		http.Error(w, "division not found", http.StatusNotFound)
		return
	}

	switch rest {
	case "":
		s.handleDivisionDetail(w, r, d)
	case "tree":
		s.handleDivisionTree(w, r, d)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleDivisionDetail(w http.ResponseWriter, r *http.Request, d *territory.Division) {
	snap := d.Snapshot()
	joined, err := d.JoinAll()
	if err != nil {
		writeError(w, err)
		return
	}
	resp := map[string]any{
		"division":    snap,
		"own_area":    snap.Area.Size(),
		"joined_area": joined.Size(),
	}
	if r.URL.Query().Get("geometry") == "true" {
		resp["own_geometry"] = json.RawMessage(snap.Area.GeoJSON())
		resp["joined_geometry"] = json.RawMessage(joined.GeoJSON())
	}
	writeJSON(w, resp)
}

func (s *Server) handleDivisionTree(w http.ResponseWriter, r *http.Request, d *territory.Division) {
	snaps, err := d.SnapshotTree()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, snaps)
}

func (s *Server) handleWater(w http.ResponseWriter, r *http.Request) {
	water := s.World.Water()
	w.Header().Set("Content-Type", "application/geo+json")
	fmt.Fprint(w, water.GeoJSON())
}

// handleOnLand serves GET /api/v1/on_land?x=..&y=..
func (s *Server) handleOnLand(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	x, errX := strconv.ParseFloat(q.Get("x"), 64)
	y, errY := strconv.ParseFloat(q.Get("y"), 64)
	p := geom.Pt(x, y)
	if errX != nil || errY != nil || !p.Finite() {
		http.Error(w, "x and y must be finite numbers", http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{
		"x":        x,
		"y":        y,
		"on_land":  s.World.OnLand(p),
		"in_water": s.World.InWater(p),
	})
}

// handleOnLandBulk serves POST /api/v1/on_land/bulk with a JSON array of
// points. The answer is an array of booleans in the same order.
func (s *Server) handleOnLandBulk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Points []geom.Point `json:"points"`
	}
	body := http.MaxBytesReader(w, r.Body, maxBulkBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, fmt.Sprintf("request body over %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if len(req.Points) > maxBulkPoints {
		http.Error(w, fmt.Sprintf("at most %d points per request", maxBulkPoints), http.StatusRequestEntityTooLarge)
		return
	}
	res, err := s.World.OnLandBulk(r.Context(), req.Points)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"on_land": res})
}

// handleEvents serves the political chronicle. Supports limit, since (a
// sequence number) and category filters.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 50
	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	chronicle := s.World.Divisions.Chronicle
	var events []territory.Event
	if since := q.Get("since"); since != "" {
		seq, err := strconv.ParseUint(since, 10, 64)
		if err != nil {
			http.Error(w, "invalid since", http.StatusBadRequest)
			return
		}
		events = chronicle.Since(seq)
	} else {
		events = chronicle.Recent(-1)
	}

	if category := q.Get("category"); category != "" {
		filtered := []territory.Event{}
		for _, e := range events {
			if e.Category == category {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	start := 0
	if len(events) > limit {
		start = len(events) - limit
	}
	if events == nil {
		events = []territory.Event{}
	}
	writeJSON(w, events[start:])
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, territory.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, geom.ErrMalformedGeometry):
		status = http.StatusBadRequest
	case errors.Is(err, territory.ErrDetached):
		status = http.StatusGone
	case errors.Is(err, territory.ErrDepthExceeded):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, territory.ErrOutOfBounds),
		errors.Is(err, territory.ErrNoResidualArea),
		errors.Is(err, territory.ErrSelfTransfer),
		errors.Is(err, territory.ErrNotTopLevel),
		errors.Is(err, territory.ErrCycle),
		errors.Is(err, world.ErrNoLand),
		errors.Is(err, world.ErrOverlap):
		status = http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
