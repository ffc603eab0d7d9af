package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "github.com/pastibot/companion/internal/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_RecordSignIn(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSignIn("password", ResultSuccess, nil, 120*time.Millisecond)
	c.RecordSignIn("password", ResultError, apperrors.Credential("bad"), 0)
	c.RecordSignIn("password", ResultError, apperrors.Credential("bad"), 0)

	if got := testutil.ToFloat64(c.signIns.WithLabelValues("password", ResultSuccess, "")); got != 1 {
		t.Errorf("success count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.signIns.WithLabelValues("password", ResultError, "credential")); got != 2 {
		t.Errorf("credential error count = %v, want 2", got)
	}
	if n := testutil.CollectAndCount(c.signInLatency); n != 1 {
		t.Errorf("latency series = %d, want 1", n)
	}
}

func TestCollector_LogoutRestoreRobot(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLogout(LogoutUnauthorized)
	c.RecordRestore(ResultError, apperrors.Unauthorized("expired"))
	c.RecordRobotEvent("robotTaskUpdate")

	if got := testutil.ToFloat64(c.logouts.WithLabelValues(LogoutUnauthorized)); got != 1 {
		t.Errorf("logout count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.restores.WithLabelValues(ResultError, "unauthorized")); got != 1 {
		t.Errorf("restore count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.robotEvents.WithLabelValues("robotTaskUpdate")); got != 1 {
		t.Errorf("robot event count = %v, want 1", got)
	}
}

func TestSetupMetricsRoute_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordLogout(LogoutUser)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	SetupMetricsRoute(reg).ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "pastibot_logout_total") {
		t.Error("response should contain pastibot_logout_total")
	}
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	r.RecordSignIn("x", ResultNoop, nil, time.Second)
	r.RecordRestore(ResultNoop, nil)
	r.RecordLogout(LogoutUser)
	r.RecordRobotEvent("e")
}
