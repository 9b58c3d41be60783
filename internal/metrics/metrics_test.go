package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_CountersAndHandler(t *testing.T) {
	m := New("travelcrm")
	m.StoreWrites.WithLabelValues("queries", "create").Inc()
	m.StoreWrites.WithLabelValues("queries", "create").Inc()
	m.Transitions.WithLabelValues("promote_lead").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.StoreWrites.WithLabelValues("queries", "create")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("promote_lead")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `travelcrm_store_writes_total{collection="queries",op="create"} 2`)
}

func TestNew_IndependentRegistries(t *testing.T) {
	// a second instance must not panic on duplicate registration
	a := New("travelcrm")
	b := New("travelcrm")
	a.ErrorsCount.WithLabelValues("x").Inc()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ErrorsCount.WithLabelValues("x")))
}
