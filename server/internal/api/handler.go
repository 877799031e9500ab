package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/obsidianstack/singlestat/pkg/types"
	"github.com/obsidianstack/singlestat/server/internal/alerts"
	"github.com/obsidianstack/singlestat/server/internal/store"
)

// AlertSource supplies the alerts served by GET /api/v1/alerts.
// *alerts.Engine satisfies it.
type AlertSource interface {
	Active() []*alerts.Alert
	FiringCount() int
}

// Handler is the HTTP handler for all /api/v1/* endpoints.
// It reads the latest values from the snapshot store and returns JSON responses.
type Handler struct {
	store  *store.Store
	alerts AlertSource
	mux    *http.ServeMux
	now    func() time.Time
}

// New creates a Handler wired to the given snapshot store and alert source
// and registers all routes. as may be nil.
func New(st *store.Store, as AlertSource) http.Handler {
	h := &Handler{store: st, alerts: as, mux: http.NewServeMux(), now: time.Now}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/values", h.listValues)
	h.mux.HandleFunc("/api/v1/values/", h.getValue) // subtree, extracts {id}
	h.mux.HandleFunc("/api/v1/alerts", h.listAlerts)
	h.mux.HandleFunc("/api/v1/snapshot", h.snapshot)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health, the per-state source counts.
func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	entries := h.store.List()
	resp := HealthResponse{SourceCount: len(entries)}
	if h.alerts != nil {
		resp.AlertCount = h.alerts.FiringCount()
	}

	for _, e := range entries {
		switch e.Snapshot.State {
		case "ok":
			resp.OKCount++
		case "no_data":
			resp.NoDataCount++
		default:
			resp.UnknownCount++
		}
	}

	switch {
	case len(entries) == 0:
		resp.State = "unknown"
	case resp.OKCount == len(entries):
		resp.State = "ok"
	default:
		resp.State = "degraded"
	}
	jsonResp(w, http.StatusOK, resp)
}

// listValues returns GET /api/v1/values, every live source.
func (h *Handler) listValues(w http.ResponseWriter, _ *http.Request) {
	jsonResp(w, http.StatusOK, buildValues(h.store, h.now()))
}

// getValue returns GET /api/v1/values/{id}, a single live source.
func (h *Handler) getValue(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/values/")
	if id == "" {
		h.listValues(w, r)
		return
	}

	e, ok := h.store.Get(id)
	if !ok {
		jsonErr(w, http.StatusNotFound, "source not found")
		return
	}
	jsonResp(w, http.StatusOK, toValueResponse(e, h.now()))
}

// listAlerts returns GET /api/v1/alerts, firing and recently resolved alerts.
func (h *Handler) listAlerts(w http.ResponseWriter, _ *http.Request) {
	if h.alerts == nil {
		jsonResp(w, http.StatusOK, []*alerts.Alert{})
		return
	}
	jsonResp(w, http.StatusOK, h.alerts.Active())
}

// snapshot returns GET /api/v1/snapshot, all live sources plus generated_at.
func (h *Handler) snapshot(w http.ResponseWriter, _ *http.Request) {
	jsonResp(w, http.StatusOK, buildSnapshot(h.store, h.now()))
}

// --- helpers ----------------------------------------------------------------

// BuildSnapshot assembles the full snapshot payload from the store. The
// WebSocket hub broadcasts it on every tick.
func BuildSnapshot(st *store.Store) SnapshotResponse {
	return buildSnapshot(st, time.Now())
}

func buildSnapshot(st *store.Store, now time.Time) SnapshotResponse {
	return SnapshotResponse{
		Sources:     buildValues(st, now),
		GeneratedAt: now.UTC().Format(time.RFC3339),
	}
}

func buildValues(st *store.Store, now time.Time) []ValueResponse {
	entries := st.List()
	out := make([]ValueResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toValueResponse(e, now))
	}
	return out
}

// toValueResponse maps a store.Entry to its JSON representation.
func toValueResponse(e store.Entry, now time.Time) ValueResponse {
	snap := e.Snapshot
	resp := ValueResponse{
		SourceID:     snap.SourceID,
		SourceType:   snap.SourceType,
		State:        snap.State,
		Values:       snap.Values,
		Points:       snap.Points,
		Rows:         snap.Rows,
		UptimePct:    snap.UptimePct,
		ErrorMessage: snap.ErrorMessage,
		LastSeen:     e.UpdatedAt.UTC().Format(time.RFC3339),
		Pushes:       e.Pushes,
		Diagnostics:  computeDiagnostics(snap, now),
	}
	if v, ok := snap.First(); ok {
		resp.Value = &v
	}
	if resp.Values == nil {
		resp.Values = []float64{}
	}
	if resp.Points == nil {
		resp.Points = []types.Point{}
	}
	if snap.TimestampUnix > 0 {
		resp.SampleTime = time.Unix(snap.TimestampUnix, 0).UTC().Format(time.RFC3339)
	}
	return resp
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
