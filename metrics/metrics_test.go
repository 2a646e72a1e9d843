package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	c := New()

	c.Observe("GET", "list", 200, 10*time.Millisecond)
	c.Observe("GET", "list", 200, 20*time.Millisecond)
	c.Observe("POST", "list", 400, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.RequestsTotal.WithLabelValues("GET", "list", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.RequestsTotal.WithLabelValues("POST", "list", "400")))
}

func TestSeveralCollectors(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}

func TestHandler(t *testing.T) {
	c := New()
	c.Observe("GET", "detail", 404, time.Millisecond)

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(w.Result().Body)
	require.NoError(t, err)
	assert.Equal(t, 200, w.Code)
	assert.Contains(t, string(body), `docrest_requests_total{method="GET",route="detail",status="404"} 1`)
}
