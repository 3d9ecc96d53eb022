package audio

import (
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Window is one amplitude sample of an envelope: the RMS of the analysis
// window starting at Start, recorded over the hop interval [Start, End).
// Windows are contiguous and non-overlapping; Amplitude is never negative.
type Window struct {
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Amplitude float64 `json:"amplitude"`
}

// Envelope is the amplitude-over-time summary of a buffer, read-only after
// extraction.
type Envelope struct {
	Windows    []Window `json:"windows"`
	SampleRate int      `json:"sample_rate"`
	OverallRMS float64  `json:"overall_rms"`
}

// MeanAmplitude returns the average window amplitude over [start, end).
// Windows that merely touch the range boundary are excluded. Returns 0 when
// no window overlaps the range.
func (e *Envelope) MeanAmplitude(start, end float64) float64 {
	var sum float64
	var count int
	for _, w := range e.Windows {
		if w.End <= start {
			continue
		}
		if w.Start >= end {
			break
		}
		sum += w.Amplitude
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// ExtractorConfig contains envelope extraction parameters.
type ExtractorConfig struct {
	WindowSize    int     // analysis window, samples
	HopSize       int     // hop between windows, samples; HopSize <= WindowSize
	GateThreshold float64 // amplitudes below this clamp to 0; 0 disables the gate
	Workers       int     // parallel reduction workers; 0 means GOMAXPROCS
}

// Validate checks extraction parameters.
func (c *ExtractorConfig) Validate() error {
	if c.WindowSize <= 0 {
		return fmt.Errorf("%w: window size must be positive, got %d", ErrInvalidInput, c.WindowSize)
	}
	if c.HopSize <= 0 {
		return fmt.Errorf("%w: hop size must be positive, got %d", ErrInvalidInput, c.HopSize)
	}
	if c.HopSize > c.WindowSize {
		return fmt.Errorf("%w: hop size %d exceeds window size %d", ErrInvalidInput, c.HopSize, c.WindowSize)
	}
	if c.GateThreshold < 0 {
		return fmt.Errorf("%w: gate threshold must not be negative, got %f", ErrInvalidInput, c.GateThreshold)
	}
	return nil
}

// Extractor computes amplitude envelopes from sample buffers.
type Extractor struct {
	config ExtractorConfig
}

// NewExtractor creates an envelope extractor with validated parameters.
func NewExtractor(config ExtractorConfig) (*Extractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Workers <= 0 {
		config.Workers = runtime.GOMAXPROCS(0)
	}
	return &Extractor{config: config}, nil
}

// windowCount returns the number of hop positions for n samples: one window
// per hop until the analysis window is clipped away entirely.
func (e *Extractor) windowCount(n int) int {
	if n <= e.config.WindowSize {
		return 1
	}
	return (n-e.config.WindowSize+e.config.HopSize-1)/e.config.HopSize + 1
}

// Extract computes the envelope of buf. Each window's amplitude is the RMS
// of samples in [i*hop, i*hop+window), clipped at the buffer end. The sum of
// squares accumulates in float64 regardless of worker count, and window
// boundaries are fixed, so output is deterministic for identical input.
func (e *Extractor) Extract(buf *Buffer) (*Envelope, error) {
	if buf == nil || buf.Len() == 0 {
		return nil, fmt.Errorf("%w: empty sample buffer", ErrInvalidInput)
	}

	samples := buf.Samples()
	rate := float64(buf.SampleRate())
	count := e.windowCount(len(samples))
	windows := make([]Window, count)

	var g errgroup.Group
	g.SetLimit(e.config.Workers)

	// Chunk by window index so each worker writes a disjoint slice region.
	const batch = 256
	for lo := 0; lo < count; lo += batch {
		lo := lo
		hi := lo + batch
		if hi > count {
			hi = count
		}
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				begin := i * e.config.HopSize
				end := begin + e.config.WindowSize
				if end > len(samples) {
					end = len(samples)
				}
				var sumSquares float64
				for _, s := range samples[begin:end] {
					sumSquares += s * s
				}
				amp := math.Sqrt(sumSquares / float64(end-begin))
				if amp < e.config.GateThreshold {
					amp = 0
				}

				hopEnd := begin + e.config.HopSize
				if i == count-1 || hopEnd > len(samples) {
					hopEnd = len(samples)
				}
				windows[i] = Window{
					Start:     float64(begin) / rate,
					End:       float64(hopEnd) / rate,
					Amplitude: amp,
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Envelope{
		Windows:    windows,
		SampleRate: buf.SampleRate(),
		OverallRMS: OverallRMS(buf),
	}, nil
}

// OverallRMS returns the root-mean-square of the whole buffer, the single
// amplitude summary reported alongside analysis results.
func OverallRMS(buf *Buffer) float64 {
	if buf == nil || buf.Len() == 0 {
		return 0
	}
	var sumSquares float64
	for _, s := range buf.Samples() {
		sumSquares += s * s
	}
	return math.Sqrt(sumSquares / float64(buf.Len()))
}
