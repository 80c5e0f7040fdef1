package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestAllowIsPerHost(t *testing.T) {
	dl := NewDomainLimiter(0.001, 1)

	if !dl.Allow("https://a.example.com/1") {
		t.Fatal("first request to a host should be allowed")
	}
	if dl.Allow("https://a.example.com/2") {
		t.Fatal("second request within the burst window should be refused")
	}
	if !dl.Allow("https://b.example.com/1") {
		t.Fatal("a different host has its own bucket")
	}
}

func TestWaitHonoursContext(t *testing.T) {
	dl := NewDomainLimiter(0.001, 1)
	_ = dl.Allow("https://a.example.com/")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := dl.Wait(ctx, "https://a.example.com/"); err == nil {
		t.Fatal("expected Wait to fail once the context cannot be satisfied")
	}
}

func TestHostlessURLIsNotLimited(t *testing.T) {
	dl := NewDomainLimiter(0.001, 1)
	for i := 0; i < 3; i++ {
		if err := dl.Wait(context.Background(), "relative/path"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}
