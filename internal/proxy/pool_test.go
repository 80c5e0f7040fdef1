package proxy

import (
	"reflect"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	got := Parse(" http://a:1, ,socks5://b:2,")
	want := []string{"http://a:1", "socks5://b:2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Parse = %v, want %v", got, want)
	}
	if Parse("") != nil {
		t.Error("empty list should parse to nil")
	}
}

func TestPoolRotation(t *testing.T) {
	pool := NewPool([]string{"p1", "p2", "p3"})
	for _, want := range []string{"p1", "p2", "p3", "p1"} {
		if got := pool.Next(); got != want {
			t.Fatalf("Next = %s, want %s", got, want)
		}
	}
}

func TestPoolSkipsFailed(t *testing.T) {
	now := time.Unix(1000, 0)
	pool := NewPool([]string{"p1", "p2", "p3"})
	pool.now = func() time.Time { return now }

	pool.MarkFailed("p2")
	if got := pool.Next(); got != "p1" {
		t.Fatalf("Next = %s, want p1", got)
	}
	if got := pool.Next(); got != "p3" {
		t.Fatalf("failed proxy not skipped, got %s", got)
	}

	now = now.Add(DefaultCooldown)
	pool.Next() // p1
	if got := pool.Next(); got != "p2" {
		t.Fatalf("proxy should return after cooldown, got %s", got)
	}
}

func TestPoolAllFailed(t *testing.T) {
	now := time.Unix(1000, 0)
	pool := NewPool([]string{"p1", "p2"})
	pool.now = func() time.Time { return now }

	pool.MarkFailed("p2")
	now = now.Add(time.Second)
	pool.MarkFailed("p1")

	if got := pool.Next(); got != "p2" {
		t.Fatalf("expected least recently failed proxy p2, got %s", got)
	}

	pool.MarkHealthy("p1")
	pool.Next()
	if got := pool.Next(); got != "p1" {
		t.Fatalf("healthy proxy should be used, got %s", got)
	}
}

func TestEmptyPool(t *testing.T) {
	pool := NewPool(nil)
	if got := pool.Next(); got != "" {
		t.Errorf("empty pool returned %q", got)
	}
	pool.MarkFailed("")
	if pool.Len() != 0 {
		t.Error("expected empty pool")
	}
}
