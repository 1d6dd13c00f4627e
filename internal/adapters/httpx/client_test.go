package httpx_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"reviewpulse/internal/adapters/httpx"
)

func TestClient_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			// two transient failures
			w.WriteHeader(500)
		default:
			w.WriteHeader(200)
			_ = json.NewEncoder(w).Encode(map[string]any{"id": 123.0})
		}
	}))
	defer ts.Close()

	cl := httpx.New(100, 2*time.Second, "") // high RPS for tests
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var got map[string]any
	if err := cl.GetJSON(ctx, ts.URL, &got); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	id, ok := got["id"].(float64)
	if !ok || int(id) != 123 {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if atomic.LoadInt32(&hits) < 3 {
		t.Fatalf("expected at least 3 calls due to retries, got %d", hits)
	}
}

func TestClient_HonorsRetryAfter(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(200)
		_, _ = w.Write([]byte("ok"))
	}))
	defer ts.Close()

	cl := httpx.New(100, 2*time.Second, "")
	start := time.Now()
	b, err := cl.Get(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if string(b) != "ok" {
		t.Fatalf("body: %q", b)
	}
	if d := time.Since(start); d < time.Second {
		t.Fatalf("expected to wait out Retry-After, only waited %v", d)
	}
}

func TestClient_NotFound(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	cl := httpx.New(100, time.Second, "")
	if _, err := cl.Get(context.Background(), ts.URL); !errors.Is(err, httpx.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClient_ContextCancelDuringBackoff(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	cl := httpx.New(100, time.Second, "")
	start := time.Now()
	_, err := cl.Get(ctx, ts.URL)
	if err == nil {
		t.Fatal("expected error")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("cancellation did not cut the backoff sleep short")
	}
}

func TestClient_SendsUserAgentAndForm(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("ua: %q", r.Header.Get("User-Agent"))
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostFormValue("f.req") != "payload" {
			t.Errorf("form: %v", r.PostForm)
		}
		_, _ = w.Write([]byte("done"))
	}))
	defer ts.Close()

	cl := httpx.New(100, time.Second, "test-agent")
	b, err := cl.PostForm(context.Background(), ts.URL, map[string][]string{"f.req": {"payload"}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if string(b) != "done" {
		t.Fatalf("body: %q", b)
	}
}
