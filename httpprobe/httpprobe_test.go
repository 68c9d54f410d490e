package httpprobe_test

import (
	"net"
	"net/http"
	"net/http/httptest"
	"net/http/httptrace"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/amp-labs/amp-wait/httpprobe"
	"github.com/amp-labs/amp-wait/poll"
)

func TestStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}))
	defer server.Close()

	client := httpprobe.New()
	defer client.Close()

	status, err := client.Status(server.URL)(t.Context())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
}

func TestStatus_ServerErrorIsValueNotError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := httpprobe.New()
	defer client.Close()

	status, err := client.Status(server.URL)(t.Context())
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestStatus_UntilBecomesReady(t *testing.T) {
	t.Parallel()

	requests := atomic.NewInt64(0)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if requests.Inc() < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)

			return
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := httpprobe.New()
	defer client.Close()

	status, err := poll.Until(t.Context(), client.Status(server.URL), httpprobe.StatusOK,
		poll.WithTimeout(2*time.Second),
		poll.WithInterval(10*time.Millisecond),
	)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.GreaterOrEqual(t, requests.Load(), int64(3))
}

func TestStatus_ConnectionRefused(t *testing.T) {
	t.Parallel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	refusedURL := "http://" + listener.Addr().String()
	require.NoError(t, listener.Close())

	client := httpprobe.New()
	defer client.Close()

	_, err = client.Status(refusedURL)(t.Context())
	require.Error(t, err)
	assert.ErrorContains(t, err, "probe request failed")
	assert.True(t, httpprobe.Retryable(err))
}

func TestStatus_ConnectionRefusedRetriesUntilTimeout(t *testing.T) {
	t.Parallel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	refusedURL := "http://" + listener.Addr().String()
	require.NoError(t, listener.Close())

	client := httpprobe.New()
	defer client.Close()

	_, err = poll.Until(t.Context(), client.Status(refusedURL), httpprobe.StatusOK,
		poll.WithTimeout(100*time.Millisecond),
		poll.WithInterval(20*time.Millisecond),
		poll.WithRetryable(httpprobe.Retryable),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, poll.ErrTimeout)
}

func TestStatus_InvalidURLAbortsRetries(t *testing.T) {
	t.Parallel()

	client := httpprobe.New()
	defer client.Close()

	// The control character fails request construction, and the permissive
	// classifier must not turn that into a retry loop.
	_, err := poll.Until(t.Context(), client.Status("http://127.0.0.1/\x00"), httpprobe.StatusOK,
		poll.WithTimeout(2*time.Second),
		poll.WithInterval(10*time.Millisecond),
		poll.WithRetryable(httpprobe.Retryable),
	)
	require.Error(t, err)
	assert.NotErrorIs(t, err, poll.ErrTimeout)
	assert.ErrorContains(t, err, "failed to create probe request")
}

func TestStatus_ReusesConnections(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := httpprobe.New()
	defer client.Close()

	reused := atomic.NewBool(false)
	ctx := httptrace.WithClientTrace(t.Context(), &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			if info.Reused {
				reused.Store(true)
			}
		},
	})

	probe := client.Status(server.URL)

	_, err := probe(ctx)
	require.NoError(t, err)

	_, err = probe(ctx)
	require.NoError(t, err)

	assert.True(t, reused.Load(), "second probe should reuse the pooled connection")
}

func TestStatusOK(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   bool
	}{
		{http.StatusOK, true},
		{http.StatusCreated, true},
		{http.StatusNoContent, true},
		{http.StatusMultipleChoices, false},
		{http.StatusNotFound, false},
		{http.StatusServiceUnavailable, false},
		{0, false},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, httpprobe.StatusOK(tc.status), "status %d", tc.status)
	}
}

func TestStatusIs(t *testing.T) {
	t.Parallel()

	pred := httpprobe.StatusIs(http.StatusOK)

	assert.True(t, pred(http.StatusOK))
	assert.False(t, pred(http.StatusAccepted))
	assert.False(t, pred(http.StatusServiceUnavailable))
}

func TestRetryable_NonTransportError(t *testing.T) {
	t.Parallel()

	assert.False(t, httpprobe.Retryable(nil))
	assert.False(t, httpprobe.Retryable(assert.AnError))
}

func TestClose_Idempotent(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := httpprobe.New()
	client.Close()
	client.Close()

	// The client stays usable after Close; it just dials fresh connections.
	status, err := client.Status(server.URL)(t.Context())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)

	var nilClient *httpprobe.Client

	nilClient.Close()
}
