package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAccumulate(t *testing.T) {
	m := New()

	m.PointsAwarded("manual", 10)
	m.PointsAwarded("manual", 5)
	m.TokensMoved("recharge", 100)
	m.RecordHTTPRequest("GET", "/api/users/:userId", "200", 3*time.Millisecond)

	assert.Equal(t, 15.0, testutil.ToFloat64(m.pointsAwarded.WithLabelValues("manual")))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.tokenMoves.WithLabelValues("recharge")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/users/:userId", "200")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.SetRealtimeConnections(3)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "carnival_realtime_connections 3"))
}
