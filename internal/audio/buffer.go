package audio

import (
	"fmt"
	"time"
)

// ErrInvalidInput reports malformed or empty audio input or bad analysis
// parameters. Wrapped errors carry the offending value.
var ErrInvalidInput = fmt.Errorf("invalid input")

// Buffer holds decoded mono audio samples at a fixed sample rate. Samples
// are normalized to [-1, 1] and immutable once the buffer is built; the
// envelope extractor reads it, nothing writes to it.
type Buffer struct {
	samples    []float64
	sampleRate int
}

// NewBuffer wraps already-decoded float samples. The slice is retained, not
// copied; callers hand over ownership.
func NewBuffer(samples []float64, sampleRate int) (*Buffer, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: empty sample buffer", ErrInvalidInput)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidInput, sampleRate)
	}
	return &Buffer{samples: samples, sampleRate: sampleRate}, nil
}

// FromPCM16 builds a buffer from interleaved 16-bit PCM. Multi-channel
// input is downmixed to mono by averaging each frame before normalizing
// to [-1, 1].
func FromPCM16(pcm []int16, sampleRate, channels int) (*Buffer, error) {
	if len(pcm) == 0 {
		return nil, fmt.Errorf("%w: empty PCM data", ErrInvalidInput)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("%w: channel count must be positive, got %d", ErrInvalidInput, channels)
	}
	if len(pcm)%channels != 0 {
		return nil, fmt.Errorf("%w: %d samples not divisible by %d channels", ErrInvalidInput, len(pcm), channels)
	}

	frames := len(pcm) / channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(pcm[i*channels+c])
		}
		samples[i] = sum / float64(channels) / 32768.0
	}
	return NewBuffer(samples, sampleRate)
}

// Samples returns the underlying sample slice. Treat it as read-only.
func (b *Buffer) Samples() []float64 { return b.samples }

// SampleRate returns the buffer's sample rate in Hz.
func (b *Buffer) SampleRate() int { return b.sampleRate }

// Len returns the number of samples.
func (b *Buffer) Len() int { return len(b.samples) }

// Duration returns the buffer length as wall-clock time.
func (b *Buffer) Duration() time.Duration {
	return time.Duration(float64(len(b.samples)) / float64(b.sampleRate) * float64(time.Second))
}

// Seconds returns the buffer length in seconds.
func (b *Buffer) Seconds() float64 {
	return float64(len(b.samples)) / float64(b.sampleRate)
}
