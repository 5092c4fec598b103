package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestInstrumentHandlerUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(InstrumentHandler)
	r.Get("/applications/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/applications/{id}", "404"))
	for _, id := range []string{"a1", "a2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/applications/"+id, nil))
	}
	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/applications/{id}", "404"))
	assert.Equal(t, 2.0, after-before)
}

func TestObserveGateway(t *testing.T) {
	before := testutil.ToFloat64(gatewayOps.WithLabelValues("list", "error"))
	ObserveGateway("list", time.Now(), errors.New("boom"))
	assert.Equal(t, 1.0, testutil.ToFloat64(gatewayOps.WithLabelValues("list", "error"))-before)
}

func TestRecordImport(t *testing.T) {
	created := testutil.ToFloat64(importRecords.WithLabelValues("created"))
	failed := testutil.ToFloat64(importRecords.WithLabelValues("failed"))
	RecordImport(2, 1)
	assert.Equal(t, 2.0, testutil.ToFloat64(importRecords.WithLabelValues("created"))-created)
	assert.Equal(t, 1.0, testutil.ToFloat64(importRecords.WithLabelValues("failed"))-failed)
}

func TestHandlerServesRegistry(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "app_catalog_http_inflight_requests")
}
