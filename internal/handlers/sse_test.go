package handlers

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"sales-insight/internal/config"
	"sales-insight/internal/services"
	"sales-insight/internal/ui/templates"
)

func createTestSSE(path string) *SSEHandlers {
	analytics := services.NewAnalytics(config.DefaultAnalysis(), testLogger())
	return NewSSEHandlers(analytics, testDataset(path), testLogger())
}

func TestNewSSEHandlers(t *testing.T) {
	analytics := services.NewAnalytics(config.DefaultAnalysis(), testLogger())
	logger := testLogger()

	handlers := NewSSEHandlers(analytics, testDataset("x.csv"), logger)

	if handlers == nil {
		t.Fatal("NewSSEHandlers() returned nil")
	}
	if handlers.analytics != analytics {
		t.Error("NewSSEHandlers() should set analytics field")
	}
	if handlers.logger != logger {
		t.Error("NewSSEHandlers() should set logger field")
	}
}

func TestSSEHandlers_HandleDashboard(t *testing.T) {
	handlers := createTestSSE(writeDataset(t))

	req := httptest.NewRequest(http.MethodGet, "/sse/dashboard", nil)
	rec := httptest.NewRecorder()
	handlers.HandleDashboard(rec, req)

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("expected event stream content type, got %q", ct)
	}

	body := rec.Body.String()
	expected := []string{
		"datastar-patch-elements",
		"datastar-patch-signals",
		`id="` + templates.IDKPICards + `"`,
		`id="` + templates.IDProductZones + `"`,
		`id="` + templates.IDRegionZones + `"`,
		`id="` + templates.IDStrategy + `"`,
		`id="` + templates.IDHealth + `"`,
		`id="` + templates.IDMonthly + `"`,
		"48 rows analysed",
		"Laptop",
	}
	for _, content := range expected {
		if !strings.Contains(body, content) {
			t.Errorf("expected stream to contain %q", content)
		}
	}
}

func TestSSEHandlers_HandleDashboardMissingFile(t *testing.T) {
	handlers := createTestSSE(filepath.Join(t.TempDir(), "missing.csv"))

	req := httptest.NewRequest(http.MethodGet, "/sse/dashboard", nil)
	rec := httptest.NewRecorder()
	handlers.HandleDashboard(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "Analysis failed") {
		t.Errorf("expected failure status in stream, got %q", body)
	}
	if strings.Contains(body, templates.IDKPICards) {
		t.Error("expected no KPI block after a failed analysis")
	}
}
