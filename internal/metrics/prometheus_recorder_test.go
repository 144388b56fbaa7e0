package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func findFamily(t *testing.T, reg *prom.Registry, name string) *dto.MetricFamily {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric family %s not found", name)
	return nil
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveRequest("GET", "/api/pages", 200, 15*time.Millisecond)
	pr.ObserveRequest("GET", "/api/pages", 200, 25*time.Millisecond)
	pr.IncPresetActivation("classic", ResultSuccess)
	pr.IncRollback(ResultOf(errors.New("boom")))
	pr.IncHomeSeed("ifEmpty", ResultSuccess)
	pr.ObserveLandingAssembly("storefront-home", 3*time.Millisecond)
	pr.AddContentWarnings("UNKNOWN_BLOCK_TYPE", 2)
	pr.AddContentWarnings("UNKNOWN_BLOCK_TYPE", 0)

	requests := findFamily(t, reg, "storefront_http_requests_total")
	if got := requests.GetMetric()[0].GetCounter().GetValue(); got != 2 {
		t.Fatalf("expected 2 requests, got %v", got)
	}
	warnings := findFamily(t, reg, "storefront_content_warnings_total")
	if got := warnings.GetMetric()[0].GetCounter().GetValue(); got != 2 {
		t.Fatalf("expected 2 warnings, got %v", got)
	}
	rollbacks := findFamily(t, reg, "storefront_site_rollbacks_total")
	if got := rollbacks.GetMetric()[0].GetLabel()[0].GetValue(); got != "failed" {
		t.Fatalf("expected failed label, got %q", got)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.IncPresetActivation("bold", ResultSuccess)

	rec := httptest.NewRecorder()
	pr.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `storefront_preset_activations_total{preset="bold",result="success"} 1`) {
		t.Fatalf("metrics output missing activation counter:\n%s", rec.Body.String())
	}
}

func TestNilAndNoopRecordersAreSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.ObserveRequest("GET", "/", 200, time.Millisecond)
	pr.IncRollback(ResultSuccess)

	var r Recorder = NoopRecorder{}
	r.AddContentWarnings("X", 1)
}
