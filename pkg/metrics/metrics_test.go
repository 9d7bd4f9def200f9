package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestStockCounters(t *testing.T) {
	m := New(DefaultConfig("inventory-service"))

	m.RecordStockMovement("USAGE", "leather")
	m.RecordStockMovement("USAGE", "leather")
	m.RecordStockRejection("reserve", "insufficient_stock")
	m.RecordCountAdjustment("LOST")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.StockMovements.WithLabelValues("inventory-service", "USAGE", "leather")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StockRejections.WithLabelValues("inventory-service", "reserve", "insufficient_stock")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CountAdjustments.WithLabelValues("inventory-service", "LOST")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New(DefaultConfig("inventory-service"))
	m.RecordHTTPRequest("GET", "/api/v1/records/:id", 200, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "leathercraft_http_requests_total")
}
