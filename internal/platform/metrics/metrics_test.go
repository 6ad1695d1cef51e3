package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObservePersist("create", OutcomeOK)
	m.ObservePersist("create", OutcomeOK)
	m.ObservePersist("update", OutcomeInvalid)
	m.ObserveDetection("items")
	m.ObserveHydrateFailure("target_definition")

	require.Equal(t, 2.0, testutil.ToFloat64(m.persists.WithLabelValues("create", OutcomeOK)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.persists.WithLabelValues("update", OutcomeInvalid)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.detections.WithLabelValues("items")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.hydrateFailures.WithLabelValues("target_definition")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.ObservePersist("create", OutcomeOK)
	m.ObserveDetection("items")
	m.ObserveHydrateFailure("default")

	called := false
	handler := m.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.True(t, called)
}

func TestHandlerExposesRequestDuration(t *testing.T) {
	t.Parallel()

	m := New()
	router := chi.NewRouter()
	router.Use(m.Middleware)
	router.Get("/vouchers/{voucherID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	router.Handle("/metrics", m.Handler())

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/vouchers/v1", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `vouchers_http_request_duration_seconds_count{method="GET",route="/vouchers/{voucherID}",status="202"} 1`)
}
