// Package httpprobe probes HTTP endpoints for use with poll.
//
// The client keeps a bounded connection pool and a caching DNS resolver, so
// probing the same endpoint every couple of seconds does not reopen
// connections or re-resolve the host on every attempt. Per-attempt timeouts
// come from the poll loop (poll.WithAttemptTimeout), not from the client.
package httpprobe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/dnscache"

	"github.com/amp-labs/amp-wait/poll"
	"github.com/amp-labs/amp-wait/should"
)

// ErrNoAddresses is returned when DNS resolution yields no usable addresses.
var ErrNoAddresses = errors.New("no addresses resolved for host")

// Connection pooling limits keep repeated probes cheap without exhausting
// sockets when many endpoints are polled at once.
const (
	maxIdleConns        = 100
	maxIdleConnsPerHost = 10
	maxConnsPerHost     = 10
	idleConnTimeout     = 60 * time.Second

	dialTimeout   = 10 * time.Second
	dialKeepAlive = 30 * time.Second

	// maxDrainBytes bounds how much of a response body is read to return the
	// connection to the pool.
	maxDrainBytes = 1 << 20 // 1MB
)

// dnsResolver is shared across all probe clients. Readiness probes hit the
// same hosts over and over; the cache keeps that from turning into a stream
// of DNS lookups.
var dnsResolver = &dnscache.Resolver{}

// Client is an HTTP client tuned for repeated endpoint probing.
type Client struct {
	httpClient *http.Client
}

// New creates a probing client with pooled connections and cached DNS.
func New() *Client {
	return &Client{
		httpClient: &http.Client{
			// No global timeout; each attempt is bounded by its context.
			Transport: newTransport(),
		},
	}
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   dialTimeout,
		KeepAlive: dialKeepAlive,
	}

	return &http.Transport{
		MaxIdleConns:        maxIdleConns,
		MaxIdleConnsPerHost: maxIdleConnsPerHost,
		MaxConnsPerHost:     maxConnsPerHost,
		IdleConnTimeout:     idleConnTimeout,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}

			ips, err := dnsResolver.LookupHost(ctx, host)
			if err != nil {
				return nil, err
			}

			for _, ip := range ips {
				conn, dialErr := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
				if dialErr == nil {
					return conn, nil
				}

				err = dialErr
			}

			if err == nil {
				err = fmt.Errorf("%w: %s", ErrNoAddresses, host)
			}

			return nil, err
		},
	}
}

// Status returns a probe observing the status code of a GET to rawURL. The
// response body is drained and discarded so the connection returns to the
// pool.
//
// Example:
//
//	status, err := poll.Until(ctx, client.Status(healthURL), httpprobe.StatusOK,
//	    poll.WithRetryable(httpprobe.Retryable),
//	)
func (c *Client) Status(rawURL string) poll.Probe[int] {
	return func(ctx context.Context) (int, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			// A URL that cannot form a request will never succeed; no point
			// retrying it even under a permissive classifier.
			return 0, poll.Abort(fmt.Errorf("failed to create probe request: %w", err))
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return 0, fmt.Errorf("probe request failed: %w", err)
		}

		defer should.Close(resp.Body, "failed to close probe response body")

		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

		return resp.StatusCode, nil
	}
}

// Close releases the client's idle connections. The client remains usable;
// later probes open fresh connections.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}

	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}

// StatusOK is satisfied by any 2xx status code.
func StatusOK(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}

// StatusIs builds a predicate for one exact status code.
func StatusIs(want int) poll.Predicate[int] {
	return func(status int) bool {
		return status == want
	}
}

// Retryable reports whether err is a transport-level failure such as a
// refused connection, a DNS miss or a timed-out dial. It is the classifier
// to pass to poll.WithRetryable when the endpoint may not be accepting
// connections yet. Status marks unbuildable requests permanent, so any
// request error reaching the classifier came from the transport.
func Retryable(err error) bool {
	var urlErr *url.Error

	return errors.As(err, &urlErr)
}
