package api

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"ambient-light-meter/internal/config"
	"ambient-light-meter/internal/service"
	"ambient-light-meter/internal/ws"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ReadingPath is the endpoint that takes a fresh measurement.
const ReadingPath = "/v1/reading"

func NewRouter(cfg config.Config, hub *ws.Hub, meter *service.MeterService) http.Handler {
	h := &Handler{
		cfg:   cfg,
		hub:   hub,
		meter: meter,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.Healthz)
	mux.HandleFunc(ReadingPath, h.Reading)
	mux.HandleFunc("/v1/reading/latest", h.LatestReading)
	mux.HandleFunc("/v1/reading/history", h.History)
	mux.HandleFunc("/v1/reading/swatch.png", h.Swatch)
	mux.HandleFunc("/v1/ranges", h.Ranges)
	mux.HandleFunc("/v1/stats", h.Stats)
	mux.HandleFunc("/v1/ws", h.WebSocket)

	return accessLog(mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("http")
	})
}
