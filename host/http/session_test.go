package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/wippyai/noasync/interp"
	"github.com/wippyai/noasync/syntax"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/hello", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "hello")
	})
	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.Copy(w, r.Body)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSessionRequests(t *testing.T) {
	srv := newServer(t)
	s := NewModule(srv.Client(), zaptest.NewLogger(t)).Session(2)
	ctx := context.Background()

	r, err := s.Get(ctx, srv.URL+"/hello")
	require.NoError(t, err)
	assert.Equal(t, 200, r.StatusCode)
	assert.Equal(t, "hello", r.Text)
	assert.Equal(t, "text/plain", r.Headers["Content-Type"])
	assert.True(t, r.Ok())

	r, err = s.Head(ctx, srv.URL+"/hello")
	require.NoError(t, err)
	assert.Equal(t, 200, r.StatusCode)
	assert.Empty(t, r.Text)

	r, err = s.Post(ctx, srv.URL+"/echo", "payload")
	require.NoError(t, err)
	assert.Equal(t, 201, r.StatusCode)
	assert.Equal(t, "payload", r.Text)

	r, err = s.Get(ctx, srv.URL+"/missing")
	require.NoError(t, err)
	assert.Equal(t, 404, r.StatusCode)
	assert.False(t, r.Ok())
}

func TestSessionDefaultLimit(t *testing.T) {
	m := NewModule(nil, nil)
	assert.Equal(t, DefaultLimit, m.Session(0).Limit())
	assert.Equal(t, 3, m.Session(3).Limit())
	assert.Equal(t, Namespace, m.Namespace())
}

func TestTransportErrorsAreWrapped(t *testing.T) {
	srv := newServer(t)
	url := srv.URL + "/hello"
	srv.Close()

	_, err := NewModule(nil, nil).Session(1).Get(context.Background(), url)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GET "+url)
	var urlErr interface{ Timeout() bool }
	assert.True(t, errors.As(err, &urlErr))
}

func TestSessionWaitsForSlotUntilCanceled(t *testing.T) {
	s := NewModule(nil, nil).Session(1)
	s.slots <- struct{}{}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := s.Get(ctx, "http://127.0.0.1:1/")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSessionLimitsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
	}))
	defer srv.Close()

	var out bytes.Buffer
	in := interp.New(interp.WithStdout(&out))
	in.Define(Namespace, interp.NewHostObject(NewModule(srv.Client(), nil)))
	in.Define("url", srv.URL)

	tree, err := syntax.Parse(`
async def fetch(s) {
    r = await s.get(url)
    return r.status_code
}

async def main() {
    s = http.session(2)
    return await gather(fetch(s), fetch(s), fetch(s), fetch(s), fetch(s))
}

print(run(main()))
`, "limit.nas")
	require.NoError(t, err)
	unit, err := interp.Compile(tree, "")
	require.NoError(t, err)
	require.NoError(t, unit.Exec(context.Background(), in, interp.NewNamespace("__main__", "limit.nas")))

	assert.Equal(t, "[200, 200, 200, 200, 200]\n", out.String())
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, int32(2), peak.Load())
}
