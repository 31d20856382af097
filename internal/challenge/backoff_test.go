package challenge

import (
	"testing"
	"time"
)

func TestRestartPolicy_Delay(t *testing.T) {
	t.Parallel()
	p := DefaultRestartPolicy()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{-1, 100 * time.Millisecond},
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{4, 500 * time.Millisecond},
		{8, 900 * time.Millisecond},
		{9, time.Second},
		{20, time.Second},
	}
	for _, tt := range tests {
		if got := p.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestRestartPolicy_Exhausted(t *testing.T) {
	t.Parallel()
	p := DefaultRestartPolicy()
	if p.Exhausted(7) {
		t.Error("Exhausted(7) = true, want false")
	}
	if !p.Exhausted(8) {
		t.Error("Exhausted(8) = false, want true")
	}
}
