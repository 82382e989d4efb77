// Package net exposes the server's HTTP surface: join, diagnostics, the
// realtime websocket and an optional PNG renderer for debugging floors.
package net

import (
	"encoding/json"
	"log"
	nethttp "net/http"
	"strconv"

	"github.com/gorilla/mux"

	"floorcrawl/internal/hub"
	"floorcrawl/internal/render"
	"floorcrawl/internal/telemetry"
)

// HandlerConfig tunes the HTTP surface.
type HandlerConfig struct {
	// ClientDir serves the browser client from / when non-empty.
	ClientDir string
	// DebugEndpoints exposes GET /debug/floor.png when true.
	DebugEndpoints bool
	Logger         telemetry.Logger
}

// NewHandler builds the route table around the hub.
func NewHandler(h *hub.Hub, cfg HandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", handleHealth).Methods(nethttp.MethodGet)
	router.HandleFunc("/diagnostics", handleDiagnostics(h)).Methods(nethttp.MethodGet)
	router.HandleFunc("/join", handleJoin(h)).Methods(nethttp.MethodPost)
	router.HandleFunc("/ws", handleSocket(h, logger)).Methods(nethttp.MethodGet)
	if cfg.DebugEndpoints {
		router.HandleFunc("/debug/floor.png", handleFloorImage(h, logger)).Methods(nethttp.MethodGet)
	}
	if cfg.ClientDir != "" {
		router.PathPrefix("/").Handler(nethttp.FileServer(nethttp.Dir(cfg.ClientDir)))
	}
	return router
}

func handleHealth(w nethttp.ResponseWriter, r *nethttp.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("ok"))
}

func handleDiagnostics(h *hub.Hub) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status string `json:"status"`
			hub.Diagnostics
		}{
			Status:      "ok",
			Diagnostics: h.DiagnosticsSnapshot(),
		}
		writeJSON(w, payload)
	}
}

func handleJoin(h *hub.Hub) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		writeJSON(w, h.Join(r.RemoteAddr))
	}
}

// handleFloorImage rasterizes the session's current floor. The tile query
// parameter overrides the rendered tile edge in pixels.
func handleFloorImage(h *hub.Hub, logger telemetry.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		sessionID := r.URL.Query().Get("id")
		if sessionID == "" {
			httpError(w, "missing id", nethttp.StatusBadRequest)
			return
		}
		var opts render.Options
		if raw := r.URL.Query().Get("tile"); raw != "" {
			tilePixels, err := strconv.Atoi(raw)
			if err != nil || tilePixels <= 0 {
				httpError(w, "invalid tile", nethttp.StatusBadRequest)
				return
			}
			opts.TilePixels = tilePixels
		}

		grid, snap, ok := h.FloorSnapshot(sessionID)
		if !ok {
			httpError(w, "no floor", nethttp.StatusNotFound)
			return
		}

		data, err := render.FloorPNG(buildScene(grid, snap), opts)
		if err != nil {
			logger.Printf("floor render for %s failed: %v", sessionID, err)
			httpError(w, "render failed", nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(data)
	}
}

func writeJSON(w nethttp.ResponseWriter, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
