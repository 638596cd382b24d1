package connection

import (
	"context"
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	t.Run("DefaultSequence", func(t *testing.T) {
		b := NewBackoff(BackoffConfig{})

		expected := []time.Duration{
			1 * time.Second,
			2 * time.Second,
			4 * time.Second,
			8 * time.Second,
			16 * time.Second,
			30 * time.Second,
			30 * time.Second,
		}
		for i, exp := range expected {
			base := b.Current()
			_ = b.Next()
			if base != exp {
				t.Errorf("attempt %d: base = %v, want %v", i, base, exp)
			}
		}
	})

	t.Run("Jitter", func(t *testing.T) {
		b := NewBackoff(BackoffConfig{Initial: time.Second})
		for i := 0; i < 20; i++ {
			b.Reset()
			d := b.Next()
			if d < time.Second || d > 1200*time.Millisecond {
				t.Fatalf("sample %d: %v out of range [1s, 1.2s]", i, d)
			}
		}
	})

	t.Run("NoJitter", func(t *testing.T) {
		b := NewBackoff(BackoffConfig{
			Initial:    100 * time.Millisecond,
			Max:        500 * time.Millisecond,
			Multiplier: 2,
			Jitter:     -1,
		})
		expected := []time.Duration{
			100 * time.Millisecond,
			200 * time.Millisecond,
			400 * time.Millisecond,
			500 * time.Millisecond,
			500 * time.Millisecond,
		}
		for i, exp := range expected {
			if got := b.Next(); got != exp {
				t.Errorf("attempt %d: got %v, want %v", i, got, exp)
			}
		}
		if b.Attempts() != len(expected) {
			t.Errorf("Attempts() = %d, want %d", b.Attempts(), len(expected))
		}
	})

	t.Run("Reset", func(t *testing.T) {
		b := NewBackoff(BackoffConfig{})
		for i := 0; i < 5; i++ {
			b.Next()
		}
		b.Reset()
		if b.Current() != InitialBackoff {
			t.Errorf("Current() = %v after reset, want %v", b.Current(), InitialBackoff)
		}
		if b.Attempts() != 0 {
			t.Errorf("Attempts() = %d after reset, want 0", b.Attempts())
		}
	})

	t.Run("WaitCancelled", func(t *testing.T) {
		b := NewBackoff(BackoffConfig{Initial: time.Hour})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := b.Wait(ctx); err != context.Canceled {
			t.Errorf("Wait() = %v, want context.Canceled", err)
		}
	})
}
