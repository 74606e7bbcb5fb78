package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func fastPolicy(attempts int, exponential bool) Policy {
	return Policy{
		Attempts:    attempts,
		Backoff:     5 * time.Millisecond,
		Exponential: exponential,
		MaxBackoff:  50 * time.Millisecond,
	}
}

func TestGetAttachesAuthHeader(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(Options{Token: "secret"})
	if _, err := client.Get(context.Background(), server.URL, nil, fastPolicy(1, false)); err != nil {
		t.Fatalf("Get: %v", err)
	}

	if got != "api-key secret" {
		t.Errorf("expected 'api-key secret', got %q", got)
	}
}

func TestGetRetriesOnServerError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := NewClient(DefaultOptions())
	body, err := client.Get(context.Background(), server.URL, nil, fastPolicy(5, true))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if string(body) != "ok" {
		t.Errorf("expected body 'ok', got %q", body)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestGetFailsFastOnClientError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(DefaultOptions())
	_, err := client.Get(context.Background(), server.URL, nil, fastPolicy(5, false))
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt for 403, got %d", attempts)
	}
}

func TestGetRetriesExhausted(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(DefaultOptions())
	_, err := client.Get(context.Background(), server.URL, nil, fastPolicy(4, false))
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("expected ErrRetriesExhausted, got %v", err)
	}
	if !errors.Is(err, ErrServerError) {
		t.Errorf("expected wrapped ErrServerError, got %v", err)
	}
	if attempts != 4 {
		t.Errorf("expected 4 attempts, got %d", attempts)
	}
}

func TestGetQueryParameters(t *testing.T) {
	var gotBBox, gotSize string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBBox = r.URL.Query().Get("bbox")
		gotSize = r.URL.Query().Get("_page_size")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(DefaultOptions())
	query := map[string][]string{
		"bbox":       {"-1,-2,3,4"},
		"_page_size": {"50"},
	}
	if _, err := client.Get(context.Background(), server.URL, query, fastPolicy(1, false)); err != nil {
		t.Fatalf("Get: %v", err)
	}

	if gotBBox != "-1,-2,3,4" {
		t.Errorf("expected bbox query, got %q", gotBBox)
	}
	if gotSize != "50" {
		t.Errorf("expected _page_size query, got %q", gotSize)
	}
}

func TestPolicyDelay(t *testing.T) {
	constant := Policy{Attempts: 5, Backoff: 10 * time.Second}
	for attempt := 1; attempt <= 4; attempt++ {
		if d := constant.delay(attempt); d != 10*time.Second {
			t.Errorf("constant delay(%d) = %v, want 10s", attempt, d)
		}
	}

	exp := Policy{Attempts: 5, Backoff: 2 * time.Second, Exponential: true, MaxBackoff: 60 * time.Second}
	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}
	for attempt := 1; attempt <= 4; attempt++ {
		if d := exp.delay(attempt); d != want[attempt-1] {
			t.Errorf("exponential delay(%d) = %v, want %v", attempt, d, want[attempt-1])
		}
	}

	capped := Policy{Attempts: 10, Backoff: 2 * time.Second, Exponential: true, MaxBackoff: 5 * time.Second}
	if d := capped.delay(4); d != 5*time.Second {
		t.Errorf("capped delay(4) = %v, want 5s", d)
	}
}

func TestStreamSingleAttempt(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(DefaultOptions())
	_, err := client.Stream(context.Background(), server.URL)
	if !errors.Is(err, ErrServerError) {
		t.Errorf("expected ErrServerError, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", attempts)
	}
}

func TestStreamBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("tile bytes"))
	}))
	defer server.Close()

	client := NewClient(DefaultOptions())
	rc, err := client.Stream(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(body) != "tile bytes" {
		t.Errorf("expected 'tile bytes', got %q", body)
	}
}

func TestGetContextCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	client := NewClient(DefaultOptions())
	policy := Policy{Attempts: 5, Backoff: 10 * time.Second}
	_, err := client.Get(ctx, server.URL, nil, policy)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
