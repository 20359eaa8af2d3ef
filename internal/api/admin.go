package api

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/talgya/polity/internal/geom"
	"github.com/talgya/polity/internal/territory"
)

func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(token), []byte(s.AdminKey)) == 1
}

// adminOnly wraps a handler to require bearer token auth. Only POST is
// accepted.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no WORLDSIM_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// polygonJSON is a polygon in GeoJSON coordinate order: rings of [x, y]
// pairs, exterior first.
type polygonJSON [][][2]float64

func toPolygons(in []polygonJSON) []geom.Polygon {
	out := make([]geom.Polygon, len(in))
	for i, p := range in {
		poly := make(geom.Polygon, len(p))
		for j, ring := range p {
			r := make(geom.Ring, len(ring))
			for k, c := range ring {
				r[k] = geom.Pt(c[0], c[1])
			}
			poly[j] = r
		}
		out[i] = poly
	}
	return out
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return false
	}
	return true
}

// rejected logs a refused mutation and writes the mapped error.
func rejected(w http.ResponseWriter, op string, err error) {
	slog.Warn("admin mutation rejected", "op", op, "error", err)
	writeError(w, err)
}

func (s *Server) handleFoundGovernment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	g := s.World.FoundGovernment(req.Name)
	writeJSONStatus(w, http.StatusCreated, map[string]any{"id": g.ID(), "name": g.Name()})
}

func (s *Server) handleEstablish(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GovernmentID uuid.UUID     `json:"government_id"`
		Name         string        `json:"name"`
		Polygons     []polygonJSON `json:"polygons"`
	}
	if !decode(w, r, &req) {
		return
	}
	g, ok := s.World.Government(req.GovernmentID)
	if !ok {
		http.Error(w, "government not found", http.StatusNotFound)
		return
	}
	d, err := s.World.EstablishTerritory(g, req.Name, toPolygons(req.Polygons))
	if err != nil {
		rejected(w, "establish", err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, d.Snapshot())
}

func (s *Server) handleSubdivide(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DivisionID territory.DivisionID `json:"division_id"`
		Name       string               `json:"name"`
		Polygons   []polygonJSON        `json:"polygons"`
	}
	if !decode(w, r, &req) {
		return
	}
	parent, ok := s.World.Divisions.Get(req.DivisionID)
	if !ok {
		http.Error(w, "division not found", http.StatusNotFound)
		return
	}
	child, err := parent.CreateSubdivision(req.Name, toPolygons(req.Polygons))
	if err != nil {
		rejected(w, "subdivide", err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, child.Snapshot())
}

type transferRequest struct {
	To         uuid.UUID            `json:"to"`
	From       uuid.UUID            `json:"from"`
	DivisionID territory.DivisionID `json:"division_id"`
}

func (s *Server) handleIntegrate(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.World.Integrate(req.To, req.From, req.DivisionID); err != nil {
		rejected(w, "integrate", err)
		return
	}
	d, ok := s.World.Divisions.Get(req.DivisionID)
	if !ok {
		http.Error(w, "division not found", http.StatusNotFound)
		return
	}
	writeJSON(w, d.Snapshot())
}

func (s *Server) handleAnnex(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !decode(w, r, &req) {
		return
	}
	d, err := s.World.Annex(req.To, req.From, req.DivisionID)
	if err != nil {
		rejected(w, "annex", err)
		return
	}
	writeJSON(w, d.Snapshot())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.Sim == nil || s.Sim.Store == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	var tick uint64
	if s.Eng != nil {
		tick = s.Eng.Tick()
	}
	if err := s.Sim.Save(tick); err != nil {
		slog.Error("snapshot save failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"saved": true, "tick": tick})
}
