package ratelimit

import (
	"testing"
	"time"
)

func TestAllowWithinWindow(t *testing.T) {
	limiter := NewLimiter(3, time.Minute)
	defer limiter.Stop()

	for i := 0; i < 3; i++ {
		if !limiter.Allow("acc-1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if limiter.Allow("acc-1") {
		t.Fatal("fourth request should be rejected")
	}

	// Other keys have their own budget.
	if !limiter.Allow("acc-2") {
		t.Fatal("fresh key should be allowed")
	}

	// Unauthenticated requests with no key are never limited here; the
	// middleware falls back to the client address before calling Allow.
	if !limiter.Allow("") {
		t.Fatal("empty key should pass through")
	}
}

func TestAllowWindowSlides(t *testing.T) {
	limiter := NewLimiter(2, 50*time.Millisecond)
	defer limiter.Stop()

	limiter.Allow("acc-1")
	limiter.Allow("acc-1")
	if limiter.Allow("acc-1") {
		t.Fatal("third request should be rejected")
	}

	time.Sleep(60 * time.Millisecond)
	if !limiter.Allow("acc-1") {
		t.Fatal("request after the window should be allowed")
	}
}

func TestAllowStrictSeparateBudget(t *testing.T) {
	limiter := NewLimiter(100, time.Minute)
	defer limiter.Stop()

	// Exhaust the strict login budget without touching the general one.
	for i := 0; i < 2; i++ {
		if !limiter.AllowStrict("login:acc-1", 2, time.Minute) {
			t.Fatalf("strict request %d should be allowed", i+1)
		}
	}
	if limiter.AllowStrict("login:acc-1", 2, time.Minute) {
		t.Fatal("strict budget should be exhausted")
	}
	if !limiter.Allow("acc-1") {
		t.Fatal("general budget must be unaffected by strict rejections")
	}
}
