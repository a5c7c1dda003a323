package gh

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	DefaultMaxRetries      = 4
	DefaultInitialInterval = 500 * time.Millisecond
	DefaultMaxInterval     = 10 * time.Second
)

type TransportOptions struct {
	// RequestsPerSecond throttles outgoing requests. Zero disables throttling.
	RequestsPerSecond float64
	Burst             int
	MaxRetries        uint64
	InitialInterval   time.Duration
	MaxInterval       time.Duration
	Base              http.RoundTripper
	WarningBuffer     io.Writer
}

func DefaultTransportOptions() TransportOptions {
	return TransportOptions{
		RequestsPerSecond: 10,
		Burst:             5,
		MaxRetries:        DefaultMaxRetries,
		InitialInterval:   DefaultInitialInterval,
		MaxInterval:       DefaultMaxInterval,
	}
}

// NewHTTPClient returns a client that authenticates with token, throttles
// requests and retries transport failures and 5xx responses with exponential
// backoff. It is shared by the REST and GraphQL clients.
func NewHTTPClient(token string, opts TransportOptions) *http.Client {
	base := opts.Base
	if base == nil {
		base = http.DefaultTransport
	}
	warningBuffer := opts.WarningBuffer
	if warningBuffer == nil {
		warningBuffer = io.Discard
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	retrying := &retryTransport{
		base:          base,
		limiter:       rate.NewLimiter(limit, burst),
		opts:          opts,
		warningBuffer: warningBuffer,
	}
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
			Base:   retrying,
		},
	}
}

var errServerStatus = errors.New("server error status")

type retryTransport struct {
	base          http.RoundTripper
	limiter       *rate.Limiter
	opts          TransportOptions
	warningBuffer io.Writer
}

func (t *retryTransport) newBackOff(req *http.Request) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	if t.opts.InitialInterval > 0 {
		exp.InitialInterval = t.opts.InitialInterval
	}
	if t.opts.MaxInterval > 0 {
		exp.MaxInterval = t.opts.MaxInterval
	}
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, t.opts.MaxRetries), req.Context())
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, err
		}
	}

	var resp *http.Response
	roundTripOp := func() error {
		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			resp = nil
		}
		if err := t.limiter.Wait(req.Context()); err != nil {
			return backoff.Permanent(err)
		}
		attempt := req.Clone(req.Context())
		if body != nil {
			attempt.Body = io.NopCloser(bytes.NewReader(body))
		}
		r, err := t.base.RoundTrip(attempt)
		if err != nil {
			if req.Context().Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		resp = r
		if r.StatusCode >= 500 && r.StatusCode <= 599 {
			return errServerStatus
		}
		return nil
	}
	notifyFunc := func(err error, wait time.Duration) {
		status := ""
		if resp != nil {
			status = fmt.Sprintf(" (status %d)", resp.StatusCode)
		}
		_, _ = fmt.Fprintf(t.warningBuffer, "WARNING: %s %s failed%s: %v, retrying in %s\n", req.Method, req.URL.Path, status, err, wait)
	}

	err := backoff.RetryNotify(roundTripOp, t.newBackOff(req), notifyFunc)
	if err == nil || errors.Is(err, errServerStatus) {
		// the last 5xx response is returned as is for the client to report
		return resp, nil
	}
	return nil, err
}
