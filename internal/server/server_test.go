package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Mrutyunjaya98Gouda/CyberEye/internal/engine"
	"github.com/Mrutyunjaya98Gouda/CyberEye/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, run ScanRunner) (*Server, *store.SQLite) {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(st, run, logger), st
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateScanReturnsSummary(t *testing.T) {
	var gotReq engine.ScanRequest
	run := func(ctx context.Context, req engine.ScanRequest) (*engine.ScanResult, error) {
		gotReq = req
		return &engine.ScanResult{
			ScanID:  req.ScanID,
			Target:  req.TargetDomain,
			Summary: engine.ScanSummary{Total: 3, Active: 2},
		}, nil
	}
	srv, _ := newTestServer(t, run)

	w := postJSON(t, srv.Router(), "/api/scans", map[string]any{"target_domain": "example.com"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}

	var resp createScanResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ScanID == "" {
		t.Error("expected a scan_id")
	}
	if resp.Summary.Total != 3 || resp.Summary.Active != 2 {
		t.Errorf("summary = %+v", resp.Summary)
	}
	if gotReq.TargetDomain != "example.com" {
		t.Errorf("runner saw target %q", gotReq.TargetDomain)
	}
	if !gotReq.Options.HTTPProbe {
		t.Error("expected default options when none supplied")
	}
}

func TestCreateScanRejectsInvalidTarget(t *testing.T) {
	called := false
	run := func(ctx context.Context, req engine.ScanRequest) (*engine.ScanResult, error) {
		called = true
		return nil, nil
	}
	srv, _ := newTestServer(t, run)

	for _, target := range []string{"", "192.168.1.1", "server.local"} {
		w := postJSON(t, srv.Router(), "/api/scans", map[string]any{"target_domain": target})
		if w.Code != http.StatusBadRequest {
			t.Errorf("target %q: status = %d, want 400", target, w.Code)
		}
	}
	if called {
		t.Error("runner invoked for invalid input")
	}
}

func TestCreateScanHidesInternalErrors(t *testing.T) {
	run := func(ctx context.Context, req engine.ScanRequest) (*engine.ScanResult, error) {
		return nil, errors.New("dial tcp 10.0.0.5:443: connection refused")
	}
	srv, _ := newTestServer(t, run)

	w := postJSON(t, srv.Router(), "/api/scans", map[string]any{"target_domain": "example.com"})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if bytes.Contains(w.Body.Bytes(), []byte("10.0.0.5")) {
		t.Errorf("internal detail leaked: %s", w.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["error"] != genericFailure {
		t.Errorf("error = %q, want %q", resp["error"], genericFailure)
	}
}

func TestGetScanNotFound(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/scans/nope", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetScanStripsFailureDetail(t *testing.T) {
	srv, st := newTestServer(t, nil)
	ctx := context.Background()

	req := engine.ScanRequest{ScanID: "s1", TargetDomain: "example.com", Options: engine.DefaultOptions()}
	if err := st.CreateScan(ctx, req); err != nil {
		t.Fatalf("create scan: %v", err)
	}
	if err := st.MarkRunning(ctx, "s1"); err != nil {
		t.Fatalf("mark running: %v", err)
	}
	if err := st.MarkFailed(ctx, "s1", "panic: index out of range"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "/api/scans/s1", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	if bytes.Contains(w.Body.Bytes(), []byte("index out of range")) {
		t.Errorf("failure detail leaked: %s", w.Body.String())
	}

	var sc store.Scan
	if err := json.Unmarshal(w.Body.Bytes(), &sc); err != nil {
		t.Fatalf("decode scan: %v", err)
	}
	if sc.State != store.StateFailed {
		t.Errorf("state = %q, want %q", sc.State, store.StateFailed)
	}
}

func TestStopScan(t *testing.T) {
	srv, st := newTestServer(t, nil)
	ctx := context.Background()

	req := engine.ScanRequest{ScanID: "s2", TargetDomain: "example.com", Options: engine.DefaultOptions()}
	if err := st.CreateScan(ctx, req); err != nil {
		t.Fatalf("create scan: %v", err)
	}

	w := postJSON(t, srv.Router(), "/api/scans/s2/stop", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}

	stopped, err := st.Stopped(ctx, "s2")
	if err != nil {
		t.Fatalf("stopped: %v", err)
	}
	if !stopped {
		t.Error("stop flag not persisted")
	}

	// A second stop on a finished scan is rejected.
	w = postJSON(t, srv.Router(), "/api/scans/s2/stop", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second stop: status = %d, want 404", w.Code)
	}
}
