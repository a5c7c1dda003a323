package gh

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func testTransportOptions(warnings io.Writer) TransportOptions {
	return TransportOptions{
		MaxRetries:      3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		WarningBuffer:   warnings,
	}
}

func TestTransportRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"query":"q"}` {
			t.Errorf("expected body to be replayed on every attempt, got %q", string(body))
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("expected bearer token, got %q", r.Header.Get("Authorization"))
		}
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, "ok")
	}))
	defer server.Close()

	warnings := &bytes.Buffer{}
	client := NewHTTPClient("secret", testTransportOptions(warnings))
	resp, err := client.Post(server.URL+"/graphql", "application/json", strings.NewReader(`{"query":"q"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
	if strings.Count(warnings.String(), "WARNING:") != 2 {
		t.Errorf("expected 2 retry warnings, got %q", warnings.String())
	}
}

func TestTransportReturnsLastServerError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewHTTPClient("secret", testTransportOptions(io.Discard))
	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "unavailable") {
		t.Errorf("expected the last response body to be readable, got %q", string(body))
	}
	if calls != 4 {
		t.Errorf("expected 1 attempt plus 3 retries, got %d", calls)
	}
}

func TestTransportDoesNotRetryClientErrors(t *testing.T) {
	tt := []int{http.StatusUnauthorized, http.StatusNotFound, http.StatusUnprocessableEntity}

	for _, status := range tt {
		t.Run(http.StatusText(status), func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(status)
			}))
			defer server.Close()

			client := NewHTTPClient("secret", testTransportOptions(io.Discard))
			resp, err := client.Get(server.URL)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != status {
				t.Errorf("expected status %d, got %d", status, resp.StatusCode)
			}
			if calls != 1 {
				t.Errorf("expected a single attempt, got %d", calls)
			}
		})
	}
}

func TestDefaultTransportOptions(t *testing.T) {
	opts := DefaultTransportOptions()
	if opts.MaxRetries != DefaultMaxRetries {
		t.Errorf("expected %d retries, got %d", DefaultMaxRetries, opts.MaxRetries)
	}
	if opts.RequestsPerSecond <= 0 || opts.Burst <= 0 {
		t.Errorf("expected throttling to be enabled by default, got %+v", opts)
	}
}
