package audio

import (
	"errors"
	"math"
	"testing"
)

func mustBuffer(t *testing.T, samples []float64, rate int) *Buffer {
	t.Helper()
	buf, err := NewBuffer(samples, rate)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}
	return buf
}

func mustExtractor(t *testing.T, cfg ExtractorConfig) *Extractor {
	t.Helper()
	ex, err := NewExtractor(cfg)
	if err != nil {
		t.Fatalf("NewExtractor failed: %v", err)
	}
	return ex
}

func TestExtractSilentBuffer(t *testing.T) {
	buf := mustBuffer(t, make([]float64, 16000), 16000)
	ex := mustExtractor(t, ExtractorConfig{WindowSize: 400, HopSize: 160})

	env, err := ex.Extract(buf)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	for i, w := range env.Windows {
		if w.Amplitude != 0 {
			t.Errorf("window %d: expected amplitude 0 for silence, got %g", i, w.Amplitude)
		}
	}
	if env.OverallRMS != 0 {
		t.Errorf("expected overall RMS 0 for silence, got %g", env.OverallRMS)
	}
}

func TestExtractSineRMS(t *testing.T) {
	const (
		rate = 16000
		freq = 200.0
		amp  = 0.5
	)
	samples := make([]float64, rate) // one second
	for i := range samples {
		samples[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/rate)
	}
	buf := mustBuffer(t, samples, rate)

	// Window covers whole periods of the sine so the analytic RMS holds.
	ex := mustExtractor(t, ExtractorConfig{WindowSize: rate / 10, HopSize: rate / 10})
	env, err := ex.Extract(buf)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	want := amp / math.Sqrt2
	for i, w := range env.Windows {
		if rel := math.Abs(w.Amplitude-want) / want; rel > 1e-6 {
			t.Errorf("window %d: RMS %g, want %g (rel err %g)", i, w.Amplitude, want, rel)
		}
	}
	if rel := math.Abs(env.OverallRMS-want) / want; rel > 1e-6 {
		t.Errorf("overall RMS %g, want %g", env.OverallRMS, want)
	}
}

func TestExtractMatchesSequentialReference(t *testing.T) {
	samples := make([]float64, 44100*3)
	for i := range samples {
		samples[i] = math.Sin(float64(i)*0.013) * 0.8
	}
	buf := mustBuffer(t, samples, 44100)

	cfg := ExtractorConfig{WindowSize: 1024, HopSize: 441}
	parallel := mustExtractor(t, cfg)
	env, err := parallel.Extract(buf)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	cfg.Workers = 1
	serial := mustExtractor(t, cfg)
	ref, err := serial.Extract(buf)
	if err != nil {
		t.Fatalf("serial Extract failed: %v", err)
	}

	if len(env.Windows) != len(ref.Windows) {
		t.Fatalf("window count mismatch: %d vs %d", len(env.Windows), len(ref.Windows))
	}
	for i := range env.Windows {
		if env.Windows[i] != ref.Windows[i] {
			t.Errorf("window %d differs: parallel %+v, serial %+v", i, env.Windows[i], ref.Windows[i])
		}
	}
}

func TestWindowCount(t *testing.T) {
	tests := []struct {
		name             string
		samples, w, h    int
		expected         int
	}{
		{"exact fit", 1000, 100, 100, 10},
		{"hop half window", 1000, 200, 100, 9},
		{"buffer shorter than window", 50, 100, 100, 1},
		{"buffer equals window", 100, 100, 100, 1},
		{"uneven tail", 1050, 200, 100, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := mustExtractor(t, ExtractorConfig{WindowSize: tt.w, HopSize: tt.h})
			buf := mustBuffer(t, make([]float64, tt.samples), 8000)
			env, err := ex.Extract(buf)
			if err != nil {
				t.Fatalf("Extract failed: %v", err)
			}
			want := tt.expected
			if got := len(env.Windows); got != want {
				t.Errorf("expected %d windows, got %d", want, got)
			}
		})
	}
}

func TestWindowsContiguous(t *testing.T) {
	samples := make([]float64, 12345)
	buf := mustBuffer(t, samples, 8000)
	ex := mustExtractor(t, ExtractorConfig{WindowSize: 512, HopSize: 128})

	env, err := ex.Extract(buf)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if env.Windows[0].Start != 0 {
		t.Errorf("first window starts at %g, want 0", env.Windows[0].Start)
	}
	for i := 1; i < len(env.Windows); i++ {
		if env.Windows[i].Start != env.Windows[i-1].End {
			t.Errorf("gap between window %d and %d: %g != %g",
				i-1, i, env.Windows[i-1].End, env.Windows[i].Start)
		}
	}
	last := env.Windows[len(env.Windows)-1]
	if want := float64(len(samples)) / 8000.0; last.End != want {
		t.Errorf("last window ends at %g, want %g", last.End, want)
	}
}

func TestExtractGateThreshold(t *testing.T) {
	samples := make([]float64, 1600)
	for i := range samples {
		samples[i] = 0.001 // well below the gate
	}
	buf := mustBuffer(t, samples, 16000)
	ex := mustExtractor(t, ExtractorConfig{WindowSize: 160, HopSize: 160, GateThreshold: 0.01})

	env, err := ex.Extract(buf)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	for i, w := range env.Windows {
		if w.Amplitude != 0 {
			t.Errorf("window %d: expected gated amplitude 0, got %g", i, w.Amplitude)
		}
	}
}

func TestExtractorConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  ExtractorConfig
	}{
		{"zero window", ExtractorConfig{WindowSize: 0, HopSize: 1}},
		{"negative window", ExtractorConfig{WindowSize: -4, HopSize: 1}},
		{"zero hop", ExtractorConfig{WindowSize: 100, HopSize: 0}},
		{"hop larger than window", ExtractorConfig{WindowSize: 100, HopSize: 200}},
		{"negative gate", ExtractorConfig{WindowSize: 100, HopSize: 50, GateThreshold: -0.1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewExtractor(tt.cfg); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestMeanAmplitude(t *testing.T) {
	env := &Envelope{Windows: []Window{
		{Start: 0.0, End: 0.1, Amplitude: 0.2},
		{Start: 0.1, End: 0.2, Amplitude: 0.4},
		{Start: 0.2, End: 0.3, Amplitude: 0.6},
	}}

	if got := env.MeanAmplitude(0.0, 0.2); math.Abs(got-0.3) > 1e-12 {
		t.Errorf("MeanAmplitude(0, 0.2) = %g, want 0.3", got)
	}
	if got := env.MeanAmplitude(0.5, 0.9); got != 0 {
		t.Errorf("MeanAmplitude outside range = %g, want 0", got)
	}
}
