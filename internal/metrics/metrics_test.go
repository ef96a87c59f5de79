package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.Edits.WithLabelValues("add").Inc()
	m.Edits.WithLabelValues("add").Inc()
	m.DecodeFailures.Inc()
	m.Sessions.Set(3)

	require.Equal(t, 2.0, testutil.ToFloat64(m.Edits.WithLabelValues("add")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	out := string(body)
	require.True(t, strings.Contains(out, `changeorder_edits_total{op="add"} 2`), out)
	require.True(t, strings.Contains(out, "changeorder_decode_failures_total 1"), out)
	require.True(t, strings.Contains(out, "changeorder_sessions_active 3"), out)
}

func TestNew_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.FlushErrors.Inc()
	require.Equal(t, 1.0, testutil.ToFloat64(a.FlushErrors))
	require.Equal(t, 0.0, testutil.ToFloat64(b.FlushErrors))
}
