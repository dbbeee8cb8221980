package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// fakeCatalogState — управляемая заглушка состояния каталога.
type fakeCatalogState struct {
	ready    bool
	degraded bool
}

func (f *fakeCatalogState) IsReady() bool  { return f.ready }
func (f *fakeCatalogState) Degraded() bool { return f.degraded }

// TestHealthLive проверяет liveness probe.
func TestHealthLive(t *testing.T) {
	h := NewHealthHandler(t.TempDir(), &fakeCatalogState{ready: true})

	rec := httptest.NewRecorder()
	h.HealthLive(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался 200, получено %d", rec.Code)
	}
	resp := decode(t, rec.Body)
	if resp["status"] != "ok" || resp["service"] != "hivestore" {
		t.Errorf("ответ: %v", resp)
	}
}

// TestHealthReady_OK проверяет readiness с работающим каталогом.
func TestHealthReady_OK(t *testing.T) {
	h := NewHealthHandler(t.TempDir(), &fakeCatalogState{ready: true})

	rec := httptest.NewRecorder()
	h.HealthReady(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался 200, получено %d", rec.Code)
	}
	resp := decode(t, rec.Body)
	if resp["status"] != "ok" {
		t.Errorf("status: %v", resp["status"])
	}
}

// TestHealthReady_CatalogNotLoaded проверяет readiness до загрузки
// каталога: 503.
func TestHealthReady_CatalogNotLoaded(t *testing.T) {
	h := NewHealthHandler(t.TempDir(), &fakeCatalogState{ready: false})

	rec := httptest.NewRecorder()
	h.HealthReady(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("ожидался 503, получено %d", rec.Code)
	}
	resp := decode(t, rec.Body)
	if resp["status"] != "fail" {
		t.Errorf("status: %v", resp["status"])
	}
}

// TestHealthReady_Degraded проверяет readiness с повреждённым
// журналом: трафик не снимается, статус degraded.
func TestHealthReady_Degraded(t *testing.T) {
	h := NewHealthHandler(t.TempDir(), &fakeCatalogState{ready: true, degraded: true})

	rec := httptest.NewRecorder()
	h.HealthReady(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("degraded не снимает трафик: ожидался 200, получено %d", rec.Code)
	}
	resp := decode(t, rec.Body)
	if resp["status"] != "degraded" {
		t.Errorf("status: %v", resp["status"])
	}
	checks := resp["checks"].(map[string]any)
	if checks["catalog"].(map[string]any)["status"] != "degraded" {
		t.Errorf("checks: %v", checks)
	}
}

// TestHealthReady_UnwritableDataDir проверяет readiness с недоступной
// директорией данных: 503.
func TestHealthReady_UnwritableDataDir(t *testing.T) {
	h := NewHealthHandler("/nonexistent/data/dir", &fakeCatalogState{ready: true})

	rec := httptest.NewRecorder()
	h.HealthReady(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("ожидался 503, получено %d", rec.Code)
	}
}
