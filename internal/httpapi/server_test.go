package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"easel/plugin/internal/bridge"
	"easel/plugin/internal/canvas"
	"easel/plugin/internal/canvas/canvastest"
	"easel/plugin/internal/docwatch"
	"easel/plugin/internal/export"
	"easel/plugin/internal/mirror"
	"easel/plugin/internal/storage"
	"easel/plugin/internal/store"
)

func newTestServer(t *testing.T) (http.Handler, *canvastest.FakeHost) {
	t.Helper()
	host := &canvastest.FakeHost{
		Doc:   canvas.Document{ID: "doc-1", Name: "Mobile App Redesign"},
		User:  canvas.User{ID: "user-1", Name: "Avery"},
		Nodes: map[string]bool{"12:34": true},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gateway := storage.NewMemoryGateway()
	st := store.New(gateway, logger)
	detector := docwatch.New(host, st, logger)
	b := bridge.New(st, detector, host, mirror.New(host, logger), time.Millisecond, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go b.Run(ctx)

	exporter := export.NewService("https://www.figma.com", nil, logger)
	return New(b, exporter, gateway, logger).Handler("*"), host
}

func TestHealth(t *testing.T) {
	handler, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestCommandRoundTrip(t *testing.T) {
	handler, _ := newTestServer(t)

	body := `{"type":"create-decision","decision":{"title":"Use dark mode default","rationale":"Accessibility","context":"Settings redesign"}}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/commands", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var evt bridge.Event
	if err := json.Unmarshal(rec.Body.Bytes(), &evt); err != nil {
		t.Fatalf("decoding event: %v", err)
	}
	if evt.Type != bridge.EvtDecisionCreated {
		t.Fatalf("expected %s, got %s (%s)", bridge.EvtDecisionCreated, evt.Type, evt.Message)
	}
	if evt.Decision == nil || evt.Decision.Author != "Avery" {
		t.Errorf("decision payload incomplete: %+v", evt.Decision)
	}
}

func TestCommandInvalidBody(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/commands", strings.NewReader("{not json")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCommandErrorEventIsStill200(t *testing.T) {
	handler, _ := newTestServer(t)

	body := `{"type":"delete-decision","id":"dec_missing"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/commands", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 envelope, got %d", rec.Code)
	}
	var evt bridge.Event
	if err := json.Unmarshal(rec.Body.Bytes(), &evt); err != nil {
		t.Fatalf("decoding event: %v", err)
	}
	if evt.Type != bridge.EvtError || !strings.Contains(evt.Message, "not found") {
		t.Errorf("expected truthful error event, got %+v", evt)
	}
}

func TestExportMarkdownInline(t *testing.T) {
	handler, _ := newTestServer(t)

	body := `{"type":"create-decision","decision":{"title":"Adopt 8pt grid","rationale":"Consistency","context":"Layout audit"}}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/commands", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("setup create failed: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/export?format=markdown", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "text/markdown" {
		t.Errorf("unexpected content type %q", got)
	}
	md := rec.Body.String()
	if !strings.Contains(md, "# Design Decisions — Mobile App Redesign") || !strings.Contains(md, "## Adopt 8pt grid") {
		t.Errorf("markdown missing content:\n%s", md)
	}
}

func TestExportDownloadSetsDisposition(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/export?format=markdown&delivery=download", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	disposition := rec.Header().Get("Content-Disposition")
	if !strings.HasPrefix(disposition, "attachment;") || !strings.Contains(disposition, ".md") {
		t.Errorf("unexpected disposition %q", disposition)
	}
}

func TestExportUploadUnavailableWithoutObjectStorage(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/export?format=markdown&delivery=upload", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "UPLOAD_UNAVAILABLE") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestReadyReportsStorage(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
