package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techizeBuilder/admin-task-manager/pkg/httpserver"
)

func listen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return ln
}

func TestServe_StopsOnCancel(t *testing.T) {
	t.Parallel()

	var hooked atomic.Bool
	srv := httpserver.New(
		httpserver.WithShutdownTimeout(time.Second),
		httpserver.WithStopHook(func(context.Context) { hooked.Store(true) }),
	)
	ln := listen(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx, ln, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
	}()

	var resp *http.Response
	var err error
	for range 50 {
		resp, err = http.Get("http://" + ln.Addr().String())
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.True(t, hooked.Load())
	assert.NoError(t, srv.Shutdown(context.Background()), "repeated shutdown")
}

func TestServe_AlreadyRunning(t *testing.T) {
	t.Parallel()

	srv := httpserver.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ln := listen(t)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln, nil) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String())
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return true
	}, 2*time.Second, 20*time.Millisecond)

	assert.ErrorIs(t, srv.Serve(ctx, listen(t), nil), httpserver.ErrAlreadyRunning)

	cancel()
	require.NoError(t, <-done)
}

func TestRun_InvalidAddr(t *testing.T) {
	t.Parallel()
	err := httpserver.New(httpserver.WithAddr("256.0.0.1:99999")).Run(context.Background(), nil)
	assert.ErrorIs(t, err, httpserver.ErrStart)
}

func TestShutdown_BeforeRun(t *testing.T) {
	t.Parallel()
	assert.NoError(t, httpserver.NewFromConfig(httpserver.Config{Addr: ":0"}).Shutdown(context.Background()))
}

func TestHealth(t *testing.T) {
	t.Parallel()

	decode := func(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
		t.Helper()
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return body
	}

	t.Run("liveness", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		httpserver.Liveness()(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "alive", decode(t, rec)["status"])
	})

	t.Run("ready", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		h := httpserver.Readiness(nil, time.Second, httpserver.Check{Name: "store", Probe: func(context.Context) error { return nil }})
		h(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "ready", body["status"])
		assert.Equal(t, map[string]any{"store": "ok"}, body["checks"])
	})

	t.Run("not ready", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		h := httpserver.Readiness(nil, time.Second,
			httpserver.Check{Name: "store", Probe: func(context.Context) error { return nil }},
			httpserver.Check{Name: "cache", Probe: func(context.Context) error { return errors.New("down") }},
		)
		h(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "not_ready", body["status"])
		assert.Equal(t, map[string]any{"store": "ok", "cache": "failed"}, body["checks"])
	})
}
