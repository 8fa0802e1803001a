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

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.IntentHandled("add_debt", "fast_path")
	m.IntentHandled("add_debt", "fast_path")
	m.IntentHandled("set_budget", "oracle")
	m.ActionFailed("add_expense")
	m.OverridesExpired(2)
	m.OverridesExpired(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.chatIntents.WithLabelValues("add_debt", "fast_path")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.chatIntents.WithLabelValues("set_budget", "oracle")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.actionFailures.WithLabelValues("add_expense")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.overridesExpired))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IntentHandled("unclear", "oracle")
		m.OracleObserved("classify", "ok", time.Second)
		m.ActionFailed("add_debt")
		m.RequestServed("/api/chat", http.MethodPost, 200, time.Millisecond)
		m.OverridesExpired(1)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.OracleObserved("classify", "ok", 300*time.Millisecond)
	m.RequestServed("/api/chat", http.MethodPost, 200, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "expense_tracker_chat_oracle_duration_seconds_count"))
	assert.True(t, strings.Contains(body, `expense_tracker_http_requests_total{code="200",method="POST",route="/api/chat"} 1`))
}
