// Package httpapi exposes the command/event bridge and the export service
// over HTTP for the plugin UI. Commands come in as POSTed JSON and return
// their terminal event; unsolicited events stream out over SSE.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"

	"easel/plugin/internal/bridge"
	"easel/plugin/internal/export"
	"easel/plugin/internal/storage"
)

type Server struct {
	bridge   *bridge.Bridge
	exporter *export.Service
	gateway  storage.Gateway
	logger   *slog.Logger
}

func New(b *bridge.Bridge, exporter *export.Service, gateway storage.Gateway, logger *slog.Logger) *Server {
	return &Server{bridge: b, exporter: exporter, gateway: gateway, logger: logger}
}

func (s *Server) Handler(corsOrigin string) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{corsOrigin},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.withLogging(http.HandlerFunc(s.handle)))
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := map[string]any{"storage": map[string]any{"status": "ok"}}
		if err := s.gateway.Ping(ctx); err != nil {
			status = http.StatusServiceUnavailable
			checks["storage"] = map[string]any{"status": "error", "error": err.Error()}
		}
		writeJSON(w, status, map[string]any{"ok": status == http.StatusOK, "checks": checks})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/commands" {
		s.handleCommand(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/events" {
		s.handleEvents(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/host/selection" {
		evt := s.bridge.NotifySelectionChanged(r.Context())
		writeJSON(w, http.StatusOK, evt)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/export" {
		s.handleExport(w, r)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

// handleCommand queues one command and replies with its terminal event.
// Error events are still HTTP 200; the event envelope is the contract and
// the UI switches on its type, not on the status code.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var cmd bridge.Command
	if err := decodeBody(r, &cmd); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body", err.Error())
		return
	}
	evt := s.bridge.Dispatch(r.Context(), cmd)
	writeJSON(w, http.StatusOK, evt)
}

// handleEvents streams broadcast events as SSE until the client goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "STREAM_UNSUPPORTED", "Streaming unsupported", nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	id, events := s.bridge.Subscribe()
	defer s.bridge.Unsubscribe(id)
	s.logger.Info("event stream opened", "subscriber", id)

	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("event stream closed", "subscriber", id)
			return
		case <-s.bridge.Done():
			return
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case evt, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(evt)
			if err != nil {
				s.logger.Warn("encoding event failed", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, data)
			flusher.Flush()
		}
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := export.Request{
		Format:   export.Format(q.Get("format")),
		Delivery: export.Delivery(q.Get("delivery")),
		Filter: export.Filter{
			Query:  q.Get("q"),
			Status: q.Get("status"),
			Tag:    q.Get("tag"),
		},
	}

	doc, decisions, err := s.bridge.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "DOCUMENT_UNAVAILABLE", "Host document unavailable", err.Error())
		return
	}

	result, err := s.exporter.Export(r.Context(), doc, decisions, req)
	switch {
	case errors.Is(err, export.ErrPDFDependencyMissing):
		writeError(w, http.StatusServiceUnavailable, "PDF_UNAVAILABLE", "PDF export dependencies are not installed", nil)
		return
	case errors.Is(err, export.ErrUploadUnavailable):
		writeError(w, http.StatusServiceUnavailable, "UPLOAD_UNAVAILABLE", "Object storage is not configured", nil)
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, "EXPORT_FAILED", err.Error(), nil)
		return
	}

	if req.Delivery == export.DeliveryUpload {
		writeJSON(w, http.StatusOK, map[string]any{"url": result.URL, "filename": result.Filename})
		return
	}

	w.Header().Set("Content-Type", result.MimeType)
	if req.Delivery == export.DeliveryDownload {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(writer, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", writer.status,
			"durationMs", time.Since(started).Milliseconds(),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return fmt.Errorf("empty body")
	}
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}
