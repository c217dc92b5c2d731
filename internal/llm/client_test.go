package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	c := NewClient("test-key", "test-model")
	c.baseURL = ts.URL
	c.retryDelay = 0
	return c
}

func TestCompleteReturnsText(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("api key header: %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("version header missing")
		}
		fmt.Fprint(w, `{"content":[{"text":"hello"}],"usage":{"input_tokens":12,"output_tokens":3}}`)
	})

	got, err := c.Complete(context.Background(), "sys", "prompt", 100)
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello" {
		t.Errorf("completion: %q", got)
	}
}

func TestCompleteRetriesOnOverload(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"content":[{"text":"ok"}]}`)
	})

	got, err := c.Complete(context.Background(), "", "prompt", 100)
	if err != nil {
		t.Fatal(err)
	}
	if got != "ok" {
		t.Errorf("completion: %q", got)
	}
	if calls.Load() != 2 {
		t.Errorf("calls: %d", calls.Load())
	}
}

func TestCompleteDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	})

	if _, err := c.Complete(context.Background(), "", "prompt", 100); err == nil {
		t.Fatal("client error must fail the call")
	}
	if calls.Load() != 1 {
		t.Errorf("calls: %d", calls.Load())
	}
}

func TestCompleteGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	if _, err := c.Complete(context.Background(), "", "prompt", 100); err == nil {
		t.Fatal("persistent overload must fail the call")
	}
	if calls.Load() != maxAttempts {
		t.Errorf("calls: %d, want %d", calls.Load(), maxAttempts)
	}
}
