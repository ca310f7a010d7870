package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestAnimationsObserver(t *testing.T) {
	var o Animations
	scheduled := testutil.ToFloat64(AnimationsScheduledTotal)
	fired := testutil.ToFloat64(AnimationsFiredTotal.WithLabelValues("counter"))
	cancelled := testutil.ToFloat64(AnimationsCancelledTotal)

	o.TasksScheduled(5)
	o.TaskFired("counter-12")
	o.TaskFired("counter-13")
	o.TasksCancelled(3)

	assert.Equal(t, scheduled+5, testutil.ToFloat64(AnimationsScheduledTotal))
	assert.Equal(t, fired+2, testutil.ToFloat64(AnimationsFiredTotal.WithLabelValues("counter")))
	assert.Equal(t, cancelled+3, testutil.ToFloat64(AnimationsCancelledTotal))
}

func TestSetNarratives(t *testing.T) {
	SetNarratives(42, 3)
	assert.Equal(t, 42.0, testutil.ToFloat64(NarrativesLoaded.WithLabelValues("true")))
	assert.Equal(t, 3.0, testutil.ToFloat64(NarrativesLoaded.WithLabelValues("false")))
}

func TestHandlerExposesCounters(t *testing.T) {
	Upstream("carto", "api_success")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `passages_upstream_events_total{event="api_success",provider="carto"}`), "upstream counter missing")
}
