package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func passing(context.Context) error { return nil }

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func get(t *testing.T, handler http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

// drive runs the first check of probe n times.
func drive(h *Health, probe Probe, idx, n int) {
	s := h.snapshot(probe)[idx]
	for range n {
		s.run(context.Background())
	}
}

func TestLiveEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		check    CheckFunc
		runs     int
		wantCode int
		wantBody string
	}{
		{"no runs yet", failing("down"), 0, http.StatusOK, `{"status":"ok"}`},
		{"below threshold", failing("down"), 2, http.StatusOK, `{"status":"ok"}`},
		{"at threshold", failing("connection refused"), 3, http.StatusServiceUnavailable,
			`{"status":"unhealthy","checks":{"store":"connection refused"}}`},
		{"passing", passing, 5, http.StatusOK, `{"status":"ok"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(nil)
			h.Add(Liveness, Check{Name: "store", Func: tt.check})
			drive(h, Liveness, 0, tt.runs)

			w := get(t, h.LiveEndpoint)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestLiveEndpoint_NoChecks(t *testing.T) {
	w := get(t, New(nil).LiveEndpoint)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadyEndpoint_Gate(t *testing.T) {
	h := New(nil)
	h.Add(Readiness, Check{Name: "slots", Func: passing})

	w := get(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unhealthy","checks":{"_readiness":"service is not ready"}}`, w.Body.String())

	h.SetReady(true)
	assert.Equal(t, http.StatusOK, get(t, h.ReadyEndpoint).Code)
	assert.True(t, h.IsReady())

	h.SetReady(false)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, h.ReadyEndpoint).Code)
	assert.False(t, h.IsReady())
}

func TestReadyEndpoint_OneFailing(t *testing.T) {
	h := New(nil)
	h.Add(Readiness, Check{Name: "catalog", Func: passing})
	h.Add(Readiness, Check{Name: "slots", Func: failing("redis: connection refused")})
	h.SetReady(true)
	drive(h, Readiness, 1, 3)

	w := get(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unhealthy","checks":{"slots":"redis: connection refused"}}`, w.Body.String())
	assert.False(t, h.IsReady())
}

func TestCheck_CustomThresholds(t *testing.T) {
	down := true
	h := New(nil)
	h.Add(Liveness, Check{
		Name:             "flaky",
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Func: func(context.Context) error {
			if down {
				return errors.New("down")
			}
			return nil
		},
	})
	s := h.snapshot(Liveness)[0]
	ctx := context.Background()

	assert.True(t, s.run(ctx), "one failure flips")
	assert.False(t, s.healthy.Load())
	assert.EqualError(t, s.err(), "down")

	down = false
	assert.False(t, s.run(ctx))
	assert.False(t, s.healthy.Load(), "needs two successes")
	assert.True(t, s.run(ctx))
	assert.True(t, s.healthy.Load())
	assert.NoError(t, s.err())
}

func TestStart_LogsTransitions(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := New(zap.New(core))
	h.Add(Readiness, Check{Name: "slots", Func: PingCheck(stubPinger{err: errors.New("gone")}), FailureThreshold: 1})
	h.SetReady(true)

	h.Start(context.Background(), 10*time.Millisecond)
	defer h.Stop()

	require.Eventually(t, func() bool {
		return logs.FilterMessage("Health check failing").Len() > 0
	}, time.Second, 5*time.Millisecond)
	assert.False(t, h.IsReady())

	entry := logs.FilterMessage("Health check failing").All()[0]
	assert.Equal(t, "readiness", entry.ContextMap()["probe"])
}

func TestStop_Idempotent(t *testing.T) {
	h := New(nil)
	h.Add(Liveness, Check{Name: "goroutines", Func: passing})
	h.Start(context.Background(), 50*time.Millisecond)
	h.Stop()
	h.Stop()
}

func TestConcurrentAccess(t *testing.T) {
	h := New(nil)
	h.Add(Liveness, Check{Name: "a", Func: failing("err")})
	h.Add(Readiness, Check{Name: "b", Func: passing})
	h.SetReady(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Start(ctx, time.Millisecond)

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			for range 100 {
				h.IsReady()
				get(t, h.LiveEndpoint)
				get(t, h.ReadyEndpoint)
			}
		})
	}
	wg.Wait()
	h.Stop()
}

func TestCheckers(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, GoroutineCountCheck(100000)(ctx))
	assert.ErrorContains(t, GoroutineCountCheck(0)(ctx), "exceeds threshold")
	assert.NoError(t, GCMaxPauseCheck(time.Hour)(ctx))

	assert.NoError(t, PingCheck(stubPinger{})(ctx))
	assert.ErrorContains(t, PingCheck(stubPinger{err: errors.New("refused")})(ctx), "ping: refused")
}
