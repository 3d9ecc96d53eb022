package analysis

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/RiRi-380/Lipsynctool-beta/internal/audio"
	"github.com/RiRi-380/Lipsynctool-beta/internal/metrics"
	"github.com/RiRi-380/Lipsynctool-beta/internal/phoneme"
	"github.com/RiRi-380/Lipsynctool-beta/internal/segment"
	"github.com/RiRi-380/Lipsynctool-beta/internal/timeline"
)

// Request describes one analysis job. Audio holds either a complete WAV
// file or headerless 16-bit little-endian mono PCM; for raw PCM the
// SampleRate field is required.
type Request struct {
	Audio      []byte
	SampleRate int
	Transcript string
	Profile    string // character profile forwarded to the alignment service
	UseGPU     bool
}

// Result is the output of an analysis job.
type Result struct {
	OverallRMS  float64
	Envelope    *audio.Envelope
	Blocks      []timeline.Block
	Timeline    *timeline.Timeline
	Fingerprint string
	Duration    float64
}

// Analyzer runs the analysis pipeline. The alignment recognizer is
// optional; without one segmentation falls back to proportional timing.
type Analyzer struct {
	extractor  *audio.Extractor
	segmenter  *segment.Segmenter
	recognizer segment.Recognizer
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewAnalyzer wires the pipeline stages together. The recognizer and
// metrics may be nil.
func NewAnalyzer(extractor *audio.Extractor, segmenter *segment.Segmenter, recognizer segment.Recognizer, m *metrics.Metrics, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		extractor:  extractor,
		segmenter:  segmenter,
		recognizer: recognizer,
		metrics:    m,
		logger:     logger,
	}
}

// Analyze runs the full pipeline for one request. Identical requests
// produce identical results, so the fingerprint can key a result cache.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	a.metrics.RecordAnalysisStart()

	result, err := a.analyze(ctx, req)
	if err != nil {
		a.metrics.RecordAnalysisFailure(time.Since(start).Seconds())
		a.logger.Error("analysis failed",
			"error", err,
			"transcript_len", len(req.Transcript))
		return nil, err
	}

	silence := 0
	for _, b := range result.Blocks {
		if b.Unit.IsSilence() {
			silence++
		}
	}
	a.metrics.RecordAnalysisSuccess(time.Since(start).Seconds(), result.Duration,
		len(result.Envelope.Windows), len(result.Blocks), silence)
	a.logger.Info("analysis completed",
		"duration", result.Duration,
		"blocks", len(result.Blocks),
		"overall_rms", result.OverallRMS,
		"fingerprint", result.Fingerprint,
		"elapsed", time.Since(start))
	return result, nil
}

func (a *Analyzer) analyze(ctx context.Context, req Request) (*Result, error) {
	buf, err := a.decode(req)
	if err != nil {
		return nil, err
	}

	env, err := a.extractor.Extract(buf)
	if err != nil {
		return nil, fmt.Errorf("envelope extraction: %w", err)
	}

	units := phoneme.Units(req.Transcript)

	var hints []segment.Hint
	if a.recognizer != nil && req.Transcript != "" {
		hints, err = a.recognizer.Hints(ctx, req.Audio, req.Transcript)
		if err != nil {
			// Alignment is advisory; fall back to proportional timing.
			a.logger.Warn("alignment unavailable, using proportional timing", "error", err)
			hints = nil
		}
	}

	blocks, err := a.segmenter.Segment(units, buf.Seconds(), hints)
	if err != nil {
		return nil, fmt.Errorf("segmentation: %w", err)
	}
	blocks = segment.Annotate(blocks, env)

	tl, err := timeline.New(blocks, env)
	if err != nil {
		return nil, fmt.Errorf("timeline assembly: %w", err)
	}

	return &Result{
		OverallRMS:  env.OverallRMS,
		Envelope:    env,
		Blocks:      blocks,
		Timeline:    tl,
		Fingerprint: Fingerprint(req),
		Duration:    buf.Seconds(),
	}, nil
}

// decode turns the request audio into a normalized mono buffer.
func (a *Analyzer) decode(req Request) (*audio.Buffer, error) {
	if len(req.Audio) == 0 {
		return nil, fmt.Errorf("%w: empty audio payload", audio.ErrInvalidInput)
	}
	if bytes.HasPrefix(req.Audio, []byte("RIFF")) {
		buf, err := audio.DecodeWAVBuffer(req.Audio)
		if err != nil {
			return nil, fmt.Errorf("WAV decode: %w", err)
		}
		return buf, nil
	}

	if req.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: raw PCM requires a sample rate, got %d",
			audio.ErrInvalidInput, req.SampleRate)
	}
	if len(req.Audio)%2 != 0 {
		return nil, fmt.Errorf("%w: raw PCM payload has odd length %d",
			audio.ErrInvalidInput, len(req.Audio))
	}
	pcm := make([]int16, len(req.Audio)/2)
	for i := range pcm {
		pcm[i] = int16(binary.LittleEndian.Uint16(req.Audio[i*2:]))
	}
	return audio.FromPCM16(pcm, req.SampleRate, 1)
}

// Fingerprint returns the SHA-256 digest identifying a request: the audio
// bytes plus every option that affects the result.
func Fingerprint(req Request) string {
	h := sha256.New()
	h.Write(req.Audio)
	h.Write([]byte{0})
	h.Write([]byte(req.Transcript))
	h.Write([]byte{0})
	h.Write([]byte(req.Profile))
	h.Write([]byte{0})
	var rate [4]byte
	binary.LittleEndian.PutUint32(rate[:], uint32(req.SampleRate))
	h.Write(rate[:])
	if req.UseGPU {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
