package retry

import (
	"testing"
	"time"
)

func TestBackoffDefaultSequence(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{})

	// 1s, 2s, 4s, ... capped at 60s. No jitter configured, so the
	// sequence is exact.
	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		32 * time.Second,
		60 * time.Second,
		60 * time.Second,
	}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Errorf("Next() #%d = %v, want %v", i+1, got, w)
		}
	}
}

func TestBackoffCustomShape(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     500 * time.Millisecond,
		Growth:       2.0,
	})

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		500 * time.Millisecond,
		500 * time.Millisecond,
	}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Errorf("Next() #%d = %v, want %v", i+1, got, w)
		}
	}
}

func TestBackoffJitter(t *testing.T) {
	// MaxDelay pins the base wait at 1s so every sample draws from
	// the same jitter window.
	b := NewBackoffWithConfig(BackoffConfig{
		InitialDelay: 1 * time.Second,
		MaxDelay:     1 * time.Second,
		Jitter:       DefaultJitter,
	})

	samples := make([]time.Duration, 10)
	for i := range samples {
		samples[i] = b.Next()
	}

	allSame := true
	for i, s := range samples {
		if s < 1*time.Second || s > 1250*time.Millisecond {
			t.Errorf("sample %d = %v, want within [1s, 1.25s]", i, s)
		}
		if s != samples[0] {
			allSame = false
		}
	}
	if allSame {
		t.Error("all jittered waits identical, want variation")
	}
}

func TestBackoffReset(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{})

	for i := 0; i < 5; i++ {
		b.Next()
	}
	if got := b.Attempts(); got != 5 {
		t.Errorf("Attempts() = %d, want 5", got)
	}

	b.Reset()
	if got := b.Attempts(); got != 0 {
		t.Errorf("Attempts() after Reset = %d, want 0", got)
	}
	if got := b.Next(); got != DefaultInitialDelay {
		t.Errorf("Next() after Reset = %v, want %v", got, DefaultInitialDelay)
	}
}
