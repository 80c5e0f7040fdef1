package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestIsXPath(t *testing.T) {
	tests := []struct {
		selector string
		want     bool
	}{
		{"//a", true},
		{"/html/body", true},
		{"(//img)[1]", true},
		{"./span", true},
		{"a[href]", false},
		{".price-tag", false},
		{"#content", false},
		{"  //div", true},
	}

	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			if got := IsXPath(tt.selector); got != tt.want {
				t.Errorf("IsXPath(%q) = %v, want %v", tt.selector, got, tt.want)
			}
		})
	}
}

func TestEngineError_IsMatchesByCode(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("scrape: %w", NewEngineError(ErrCodeNavigation, "failed to load page", cause))

	if !errors.Is(err, ErrNavigation) {
		t.Error("expected wrapped error to match ErrNavigation")
	}
	if errors.Is(err, ErrBackendInit) {
		t.Error("navigation error must not match ErrBackendInit")
	}
	if !errors.Is(err, cause) {
		t.Error("expected underlying cause to be reachable")
	}
}

func TestEngineError_Retryable(t *testing.T) {
	err := NewEngineError(ErrCodeBackendInit, "launch failed", nil).WithRetry()
	if !Retryable(fmt.Errorf("wrap: %w", err)) {
		t.Error("expected error to be retryable")
	}
	if Retryable(errors.New("plain")) {
		t.Error("plain errors are not retryable")
	}
}

func TestSleep_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := Sleep(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Sleep did not return promptly on cancelled context")
	}
}
