package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"ambient-light-meter/internal/config"
	"ambient-light-meter/internal/model"
	"ambient-light-meter/internal/service"
	"ambient-light-meter/internal/ws"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	cfg      config.Config
	hub      *ws.Hub
	meter    *service.MeterService
	upgrader websocket.Upgrader
}

type apiError struct {
	Error string `json:"error"`
}

func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":           "ok",
		"sensor_available": h.meter.Available(),
	})
}

// Reading takes a fresh measurement, blocking through any range change.
func (h *Handler) Reading(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	reading, err := h.meter.Measure(r.Context(), service.SourceHTTP)
	if err != nil {
		if errors.Is(err, service.ErrSensorUnavailable) {
			writeErr(w, http.StatusServiceUnavailable, err)
			return
		}
		log.Error().Err(err).Msg("measure over http")
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, reading)
}

func (h *Handler) LatestReading(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	reading := h.meter.Latest()
	if reading == nil {
		writeErr(w, http.StatusNotFound, errors.New("no reading yet"))
		return
	}
	writeJSON(w, http.StatusOK, reading)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	limit := atoiDefault(r.URL.Query().Get("limit"), h.cfg.HistoryLimit)
	readings, err := h.meter.History(r.Context(), limit)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(readings),
		"readings": readings,
	})
}

func (h *Handler) Swatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	reading := h.meter.Latest()
	if reading == nil {
		writeErr(w, http.StatusNotFound, errors.New("no reading yet"))
		return
	}
	size := atoiDefault(r.URL.Query().Get("size"), service.DefaultSwatchSize)
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Reading-ID", reading.ID)
	if err := service.RenderSwatch(w, reading.Compensated.Color(), size); err != nil {
		log.Error().Err(err).Msg("render swatch")
	}
}

func (h *Handler) Ranges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ranges": h.meter.Ranges(),
	})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	stats, err := h.meter.Stats(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, errors.New("websocket requires GET"))
		return
	}
	if !websocket.IsWebSocketUpgrade(r) {
		writeErr(w, http.StatusBadRequest, errors.New("websocket upgrade required"))
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("remote", r.RemoteAddr).Str("uri", r.RequestURI).Msg("ws upgrade failed")
		return
	}
	client := ws.NewClient(h.hub, conn)
	h.hub.Register(client)
	h.hub.BroadcastEvent(model.Event{Type: "ws.client_connected", Payload: map[string]string{"id": uuid.NewString()}, CreatedAt: time.Now().UnixMilli()})
	if latest := h.meter.Latest(); latest != nil {
		h.hub.SendEvent(client, model.Event{Type: "reading.updated", Payload: latest, CreatedAt: time.Now().UnixMilli()})
	}
	go client.WritePump()
	go client.ReadPump()
}

func writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, apiError{Error: err.Error()})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeErr(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func atoiDefault(v string, d int) int {
	v = strings.TrimSpace(v)
	if v == "" {
		return d
	}
	n := 0
	for _, ch := range v {
		if ch < '0' || ch > '9' {
			return d
		}
		n = n*10 + int(ch-'0')
		if n > 1<<20 {
			return d
		}
	}
	if n <= 0 {
		return d
	}
	return n
}
