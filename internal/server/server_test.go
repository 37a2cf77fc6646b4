package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sales-insight/internal/config"
	"sales-insight/internal/services"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	path := filepath.Join(t.TempDir(), "sales.csv")
	csv := "date,product,amount\n2024-01-05,a,10\n2024-02-05,b,20\n2024-03-05,a,30\n"
	if err := os.WriteFile(path, []byte(csv), 0o600); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	dataset := config.DatasetConfig{CSVFile: path, MaxUploadBytes: 1 << 20, AnalysisTimeout: 5 * time.Second}
	th := &TemplateHandlers{Dashboard: func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("dashboard"))
	}}
	return NewServer(services.NewAnalytics(config.DefaultAnalysis(), logger), dataset, logger, th)
}

func TestServerRoutes(t *testing.T) {
	s := testServer(t)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/api/report", http.StatusOK},
		{http.MethodGet, "/sse/dashboard", http.StatusOK},
		{http.MethodGet, "/nope", http.StatusNotFound},
		{http.MethodGet, "/api/analyze", http.StatusMethodNotAllowed},
		{http.MethodPost, "/api/report", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestGracefulShutdownRunsHooks(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{Server: config.ServerConfig{ShutdownTimeout: time.Second}}
	gs := NewGracefulServer(&http.Server{Addr: "127.0.0.1:0"}, logger, cfg)

	var ran bool
	gs.RegisterShutdownHook(func(ctx context.Context) error {
		ran = true
		return nil
	})
	gs.RegisterShutdownHook(func(ctx context.Context) error {
		return errors.New("flush failed")
	})

	err := gs.Shutdown(context.Background())
	if !ran {
		t.Error("expected first hook to run")
	}
	if err == nil || !strings.Contains(err.Error(), "flush failed") {
		t.Errorf("expected hook error to be returned, got %v", err)
	}
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{Server: config.ServerConfig{ShutdownTimeout: time.Second}}
	gs := NewGracefulServer(&http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}, logger, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gs.ListenAndServe(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
