package main

import (
	"encoding/json"
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

const testCSV = `date,product,customer,region,amount
2024-01-03,Laptop,acme,North,1200
2024-01-19,Mouse,globex,South,40
2024-02-07,Laptop,acme,North,1100
2024-02-21,Monitor,initech,West,300
2024-03-02,Mouse,globex,South,55
2024-03-28,Monitor,acme,West,320
`

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.csv")
	if err := os.WriteFile(path, []byte(testCSV), 0o600); err != nil {
		t.Fatalf("write dataset: %v", err)
	}

	cfg := &config.Config{
		Dataset: config.DatasetConfig{
			CSVFile:         path,
			MaxUploadBytes:  1 << 20,
			AnalysisTimeout: 10 * time.Second,
		},
		Security: config.SecurityConfig{
			EnableCSRF:      true,
			EnableRateLimit: true,
			RateLimitRPS:    1000,
			RateLimitBurst:  1000,
			AllowedOrigins:  []string{"http://localhost:8084"},
			TrustedProxies:  []string{"127.0.0.1"},
		},
		Analysis: config.DefaultAnalysis(),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return newHandler(cfg, services.NewAnalytics(cfg.Analysis, logger), logger)
}

func TestServer_Routes(t *testing.T) {
	handler := newTestHandler(t)

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"dashboard", "GET", "/", http.StatusOK},
		{"health", "GET", "/health", http.StatusOK},
		{"metrics", "GET", "/metrics", http.StatusOK},
		{"report", "GET", "/api/report", http.StatusOK},
		{"sse dashboard", "GET", "/sse/dashboard", http.StatusOK},
		{"unknown", "GET", "/unknown", http.StatusNotFound},
		{"analyze without body", "POST", "/api/analyze", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}

func TestServer_MiddlewareHeaders(t *testing.T) {
	handler := newTestHandler(t)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
}

func TestServer_RejectsCrossSiteUpload(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest("POST", "/api/analyze", strings.NewReader("x"))
	req.Header.Set("Origin", "http://evil.test")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestServer_ReportJSON(t *testing.T) {
	handler := newTestHandler(t)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/report", nil))

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Rows    int      `json:"rows"`
			Columns []string `json:"columns"`
			TopProducts struct {
				Status string `json:"status"`
				Value  []struct {
					Key   string  `json:"key"`
					Value float64 `json:"value"`
				} `json:"value"`
			} `json:"top_products"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if !resp.Success {
		t.Error("expected success")
	}
	if resp.Data.Rows != 6 {
		t.Errorf("rows = %d, want 6", resp.Data.Rows)
	}
	if resp.Data.TopProducts.Status != "ok" || len(resp.Data.TopProducts.Value) == 0 {
		t.Fatalf("top products unavailable: %+v", resp.Data.TopProducts)
	}
	if top := resp.Data.TopProducts.Value[0]; top.Key != "Laptop" || top.Value != 2300 {
		t.Errorf("top product = %+v, want Laptop 2300", top)
	}
}

func TestServer_MetricsRecordsRoutes(t *testing.T) {
	handler := newTestHandler(t)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/health", nil))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	if !strings.Contains(w.Body.String(), `route="GET /health"`) {
		t.Error("expected metrics to include the /health route pattern")
	}
}

func TestDashboardTemplate(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)

	handleDashboard(w, r)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	body := w.Body.String()
	if !strings.Contains(body, appTitle) {
		t.Error("dashboard should contain title")
	}
	if !strings.Contains(body, "@get('/sse/dashboard')") {
		t.Error("dashboard should open the SSE stream on load")
	}
}
