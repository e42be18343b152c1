package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCount(t *testing.T) {
	m := New()

	m.IncPage("grid")
	m.IncPage("grid")
	m.AddItems("summary", 24)
	m.IncError("TimeoutError")
	m.IncFieldMiss("price")
	m.ObserveNavigation(150 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PagesVisited.WithLabelValues("grid")))
	assert.Equal(t, 24.0, testutil.ToFloat64(m.ItemsExtracted.WithLabelValues("summary")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("TimeoutError")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FieldMisses.WithLabelValues("price")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.IncPage("grid")
		m.AddItems("detail", 1)
		m.IncError("NavigationError")
		m.IncFieldMiss("stock")
		m.ObserveNavigation(time.Second)
	})
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.IncPage("detail")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `storefront_pages_visited_total{kind="detail"} 1`)
}
