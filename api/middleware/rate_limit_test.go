package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeLimiter struct {
	counts map[string]int64
	err    error
}

func newFakeLimiter() *fakeLimiter {
	return &fakeLimiter{counts: make(map[string]int64)}
}

func (f *fakeLimiter) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.counts[key]++
	return f.counts[key], nil
}

func TestWriteRateLimitBlocksAfterIPLimit(t *testing.T) {
	store := newFakeLimiter()
	policy := NewWriteRateLimitPolicy("pledge", time.Minute, 2, 0)
	handler := WriteRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/pledges", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != http.StatusCreated {
			t.Fatalf("request %d: expected 201 got %d", i+1, resp.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/pledges", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", resp.Code)
	}
}

func TestWriteRateLimitCountsPerUser(t *testing.T) {
	store := newFakeLimiter()
	policy := NewWriteRateLimitPolicy("pledge", time.Minute, 0, 1)
	handler := WriteRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/pledges", nil)
	req = req.WithContext(WithUserID(req.Context(), "user-a"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}

	blocked := httptest.NewRequest(http.MethodPost, "/api/v1/pledges", nil)
	blocked = blocked.WithContext(WithUserID(blocked.Context(), "user-a"))
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, blocked)
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", resp.Code)
	}

	other := httptest.NewRequest(http.MethodPost, "/api/v1/pledges", nil)
	other = other.WithContext(WithUserID(other.Context(), "user-b"))
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, other)
	if resp.Code != http.StatusCreated {
		t.Fatalf("other user should not be throttled, got %d", resp.Code)
	}
}

func TestWriteRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	store := newFakeLimiter()
	policy := NewWriteRateLimitPolicy("pledge", 0, 0, 0)
	handler := WriteRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/pledges", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if len(store.counts) != 0 {
		t.Fatalf("disabled policy should not touch the store")
	}
}
