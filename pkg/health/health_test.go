package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// scripted returns the queued results in order and nil once they run out.
type scripted struct {
	mu      sync.Mutex
	results []error
}

func (s *scripted) check(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.results) == 0 {
		return nil
	}
	err := s.results[0]
	s.results = s.results[1:]
	return err
}

func down(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func up(context.Context) error { return nil }

// serve calls the endpoint and decodes the body into status and checks.
func serve(t *testing.T, endpoint http.HandlerFunc) (int, string, map[string]string) {
	t.Helper()

	w := httptest.NewRecorder()
	endpoint(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var status string
	checks := map[string]string{}
	err := jx.DecodeBytes(w.Body.Bytes()).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "status":
			s, err := d.Str()
			status = s
			return err
		case "checks":
			return d.Obj(func(d *jx.Decoder, name string) error {
				msg, err := d.Str()
				checks[name] = msg
				return err
			})
		default:
			return d.Skip()
		}
	})
	require.NoError(t, err)
	return w.Code, status, checks
}

func TestEndpoints(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(h *Health)
		ready      bool
		wantCode   int
		wantStatus string
		wantChecks map[string]string
	}{
		{
			name:       "live without checks",
			setup:      func(*Health) {},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
			wantChecks: map[string]string{},
		},
		{
			name: "live failing below threshold",
			setup: func(h *Health) {
				h.AddLivenessCheck("gc", time.Second, down("pause"))
				h.liveness[0].run(context.Background())
			},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
			wantChecks: map[string]string{},
		},
		{
			name: "live failing at threshold",
			setup: func(h *Health) {
				h.AddLivenessCheck("gc", time.Second, down("pause"), WithThresholds(1, 1))
				h.AddLivenessCheck("goroutines", time.Second, up)
				h.liveness[0].run(context.Background())
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "unhealthy",
			wantChecks: map[string]string{"gc": "pause"},
		},
		{
			name: "ready with healthy postgres",
			setup: func(h *Health) {
				h.AddReadinessCheck("postgres", time.Second, up)
			},
			ready:      true,
			wantCode:   http.StatusOK,
			wantStatus: "ok",
			wantChecks: map[string]string{},
		},
		{
			name: "ready flag unset",
			setup: func(h *Health) {
				h.AddReadinessCheck("postgres", time.Second, up)
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "unhealthy",
			wantChecks: map[string]string{"_readiness": "service is not ready"},
		},
		{
			name: "ready with unreachable redis",
			setup: func(h *Health) {
				h.AddReadinessCheck("postgres", time.Second, up)
				h.AddReadinessCheck("redis", time.Second, PingCheck(pingerFunc(func(context.Context) error {
					return errors.New("connection refused")
				})), WithThresholds(2, 1))
				ctx := context.Background()
				h.readiness[1].run(ctx)
				h.readiness[1].run(ctx)
			},
			ready:      true,
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "unhealthy",
			wantChecks: map[string]string{"redis": "ping: connection refused"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New()
			tt.setup(h)
			h.SetReady(tt.ready)

			endpoint := h.LiveEndpoint
			if len(h.readiness) > 0 {
				endpoint = h.ReadyEndpoint
			}
			code, status, checks := serve(t, endpoint)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantChecks, checks)
		})
	}
}

func TestThresholds(t *testing.T) {
	fail := errors.New("fail")
	tests := []struct {
		name    string
		opts    []CheckOption
		results []error
		healthy []bool
	}{
		{
			name:    "defaults need three failures",
			results: []error{fail, fail, fail, nil},
			healthy: []bool{true, true, false, true},
		},
		{
			name:    "success resets the failure streak",
			results: []error{fail, fail, nil, fail, fail},
			healthy: []bool{true, true, true, true, true},
		},
		{
			name:    "recovery needs two successes",
			opts:    []CheckOption{WithThresholds(1, 2)},
			results: []error{fail, nil, nil},
			healthy: []bool{false, false, true},
		},
		{
			name:    "failure resets the success streak",
			opts:    []CheckOption{WithThresholds(1, 2)},
			results: []error{fail, nil, fail, nil, nil},
			healthy: []bool{false, false, false, false, true},
		},
		{
			name:    "non-positive values keep defaults",
			opts:    []CheckOption{WithThresholds(0, -1)},
			results: []error{fail, fail, fail, nil},
			healthy: []bool{true, true, false, true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &scripted{results: tt.results}
			c := newCheck("dep", time.Second, s.check, tt.opts)
			for i, want := range tt.healthy {
				c.run(context.Background())
				assert.Equal(t, want, c.isHealthy(), "after run %d", i+1)
				if tt.results[i] != nil {
					assert.ErrorIs(t, c.getLastError(), fail)
				} else {
					assert.NoError(t, c.getLastError())
				}
			}
		})
	}
}

func TestIsReady_FollowsReadinessChecks(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, up)
	h.AddReadinessCheck("kafka", time.Second, down("no brokers"), WithThresholds(1, 1))
	assert.False(t, h.IsReady())

	h.SetReady(true)
	assert.True(t, h.IsReady(), "checks start healthy")

	h.readiness[1].run(context.Background())
	assert.False(t, h.IsReady())

	h.readiness[1].fn = up
	h.readiness[1].run(context.Background())
	assert.True(t, h.IsReady())

	h.SetReady(false)
	assert.False(t, h.IsReady())
}

func TestStart_RunsChecksImmediately(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, down("refused"), WithThresholds(1, 1))
	h.SetReady(true)

	// The interval is far longer than the test, so only the initial run can
	// flip the check.
	h.Start(context.Background(), time.Hour)
	defer h.Stop()

	require.Eventually(t, func() bool { return !h.IsReady() }, time.Second, 5*time.Millisecond)
}

func TestStop_Idempotent(t *testing.T) {
	h := New()
	h.Stop()

	var runs sync.WaitGroup
	runs.Add(1)
	var once sync.Once
	h.AddLivenessCheck("tick", time.Second, func(context.Context) error {
		once.Do(runs.Done)
		return nil
	})
	h.Start(context.Background(), 5*time.Millisecond)
	runs.Wait()

	assert.NotPanics(t, func() {
		h.Stop()
		h.Stop()
	})
}

func TestEndpoints_ConcurrentWithChecks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New()
	h.AddLivenessCheck("goroutines", time.Second, down("leak"), WithThresholds(1, 1))
	h.AddReadinessCheck("postgres", time.Second, up)
	h.SetReady(true)
	h.Start(ctx, time.Millisecond)
	defer h.Stop()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				_ = h.IsReady()
				h.LiveEndpoint(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/livez", nil))
				h.ReadyEndpoint(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/readyz", nil))
			}
		}()
	}
	wg.Wait()
}

func TestPingCheck(t *testing.T) {
	refused := errors.New("dial tcp 127.0.0.1:6379: connection refused")
	tests := []struct {
		name    string
		ping    func(ctx context.Context) error
		wantErr error
	}{
		{
			name: "reachable",
			ping: func(context.Context) error { return nil },
		},
		{
			name:    "refused",
			ping:    func(context.Context) error { return refused },
			wantErr: refused,
		},
		{
			name: "hangs past timeout",
			ping: func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
			wantErr: context.DeadlineExceeded,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCheck("dep", 10*time.Millisecond, PingCheck(pingerFunc(tt.ping)), []CheckOption{WithThresholds(1, 1)})
			c.run(context.Background())

			if tt.wantErr == nil {
				assert.NoError(t, c.getLastError())
				assert.True(t, c.isHealthy())
				return
			}
			assert.ErrorIs(t, c.getLastError(), tt.wantErr)
			assert.False(t, c.isHealthy())
		})
	}
}

func TestRuntimeChecks(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, GoroutineCountCheck(1<<20)(ctx))
	assert.ErrorContains(t, GoroutineCountCheck(0)(ctx), "goroutine count")

	assert.NoError(t, GCMaxPauseCheck(time.Hour)(ctx))
}
