package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRequest(t *testing.T) {
	m := New("tester")

	m.ObserveRequest("/auth/login", http.MethodPost, 200, 5*time.Millisecond)
	m.ObserveRequest("/auth/login", http.MethodPost, 200, 7*time.Millisecond)
	m.ObserveRequest("/auth/login", http.MethodPost, 403, 3*time.Millisecond)

	if got := testutil.ToFloat64(m.requestsTotal.WithLabelValues("/auth/login", "POST", "200")); got != 2 {
		t.Errorf("requests_total{200} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.requestsTotal.WithLabelValues("/auth/login", "POST", "403")); got != 1 {
		t.Errorf("requests_total{403} = %v, want 1", got)
	}
}

func TestObserveRateLimited(t *testing.T) {
	m := New("tester")

	m.ObserveRateLimited("/auth/login")
	m.ObserveRateLimited("/auth/login")

	if got := testutil.ToFloat64(m.rateLimitedTotal.WithLabelValues("/auth/login")); got != 2 {
		t.Errorf("rate_limited_total = %v, want 2", got)
	}
}

func TestHandlerServesExposition(t *testing.T) {
	m := New("tester")
	m.ObserveRequest("/tests/public", http.MethodGet, 200, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "tester_requests_total") {
		t.Error("exposition output is missing tester_requests_total")
	}
}
