package audio

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestNewBufferValidation(t *testing.T) {
	if _, err := NewBuffer(nil, 8000); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty samples, got %v", err)
	}
	if _, err := NewBuffer([]float64{0.1}, 0); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for zero sample rate, got %v", err)
	}
}

func TestBufferDuration(t *testing.T) {
	buf, err := NewBuffer(make([]float64, 24000), 16000)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}
	if got := buf.Duration(); got != 1500*time.Millisecond {
		t.Errorf("expected duration 1.5s, got %v", got)
	}
	if got := buf.Seconds(); got != 1.5 {
		t.Errorf("expected 1.5 seconds, got %g", got)
	}
}

func TestFromPCM16Downmix(t *testing.T) {
	// Interleaved stereo: L=16384, R=-16384 should average to silence.
	pcm := []int16{16384, -16384, 16384, -16384}
	buf, err := FromPCM16(pcm, 8000, 2)
	if err != nil {
		t.Fatalf("FromPCM16 failed: %v", err)
	}
	if buf.Len() != 2 {
		t.Fatalf("expected 2 mono frames, got %d", buf.Len())
	}
	for i, s := range buf.Samples() {
		if math.Abs(s) > 1e-12 {
			t.Errorf("frame %d: expected downmix to 0, got %g", i, s)
		}
	}
}

func TestFromPCM16UnevenChannels(t *testing.T) {
	if _, err := FromPCM16([]int16{1, 2, 3}, 8000, 2); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for odd stereo sample count, got %v", err)
	}
}
