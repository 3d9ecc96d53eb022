package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the lip-sync engine. A nil
// *Metrics is valid and records nothing, so library code never needs to
// know whether the process exports metrics.
type Metrics struct {
	// Analysis job metrics
	AnalysisRequests  prometheus.Counter
	AnalysisSuccesses prometheus.Counter
	AnalysisFailures  prometheus.Counter
	AnalysisDuration  prometheus.Histogram
	AudioDuration     prometheus.Histogram

	// Envelope metrics
	EnvelopeWindows prometheus.Counter

	// Segmentation metrics
	BlocksGenerated prometheus.Counter
	SilenceBlocks   prometheus.Counter

	// Alignment client metrics
	AlignmentRequests  prometheus.Counter
	AlignmentSuccesses prometheus.Counter
	AlignmentFailures  prometheus.Counter
	AlignmentRetries   prometheus.Counter
	AlignmentDuration  prometheus.Histogram

	// Export metrics
	ExportsGenerated *prometheus.CounterVec
	ExportErrors     *prometheus.CounterVec
	ExportSize       *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics on the default
// registry. Call it once per process.
func NewMetrics() *Metrics {
	return &Metrics{
		AnalysisRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lipsync_analysis_requests_total",
			Help: "Total number of analysis jobs started",
		}),
		AnalysisSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lipsync_analysis_successes_total",
			Help: "Total number of analysis jobs completed",
		}),
		AnalysisFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lipsync_analysis_failures_total",
			Help: "Total number of analysis jobs failed",
		}),
		AnalysisDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "lipsync_analysis_duration_seconds",
			Help:    "Wall-clock duration of analysis jobs",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		}),
		AudioDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "lipsync_audio_duration_seconds",
			Help:    "Duration of analyzed recordings",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4 minutes
		}),

		EnvelopeWindows: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lipsync_envelope_windows_total",
			Help: "Total number of envelope windows computed",
		}),

		BlocksGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lipsync_blocks_generated_total",
			Help: "Total number of phoneme blocks generated",
		}),
		SilenceBlocks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lipsync_silence_blocks_total",
			Help: "Total number of silence blocks generated",
		}),

		AlignmentRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lipsync_alignment_requests_total",
			Help: "Total number of alignment requests sent",
		}),
		AlignmentSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lipsync_alignment_successes_total",
			Help: "Total number of successful alignment requests",
		}),
		AlignmentFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lipsync_alignment_failures_total",
			Help: "Total number of failed alignment requests",
		}),
		AlignmentRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lipsync_alignment_retries_total",
			Help: "Total number of alignment request retries",
		}),
		AlignmentDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "lipsync_alignment_duration_seconds",
			Help:    "Duration of alignment requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),

		ExportsGenerated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lipsync_exports_generated_total",
			Help: "Total number of exports written",
		}, []string{"format"}),
		ExportErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lipsync_export_errors_total",
			Help: "Total number of export failures",
		}, []string{"format"}),
		ExportSize: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lipsync_export_size_bytes",
			Help:    "Size of written exports in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12), // 1KB to ~4MB
		}, []string{"format"}),
	}
}

// RecordAnalysisStart increments the analysis jobs counter.
func (m *Metrics) RecordAnalysisStart() {
	if m == nil {
		return
	}
	m.AnalysisRequests.Inc()
}

// RecordAnalysisSuccess records a completed job with its wall-clock time,
// the recording length and the work it produced.
func (m *Metrics) RecordAnalysisSuccess(durationSeconds, audioSeconds float64, windows, blocks, silenceBlocks int) {
	if m == nil {
		return
	}
	m.AnalysisSuccesses.Inc()
	m.AnalysisDuration.Observe(durationSeconds)
	m.AudioDuration.Observe(audioSeconds)
	m.EnvelopeWindows.Add(float64(windows))
	m.BlocksGenerated.Add(float64(blocks))
	m.SilenceBlocks.Add(float64(silenceBlocks))
}

// RecordAnalysisFailure records a failed job.
func (m *Metrics) RecordAnalysisFailure(durationSeconds float64) {
	if m == nil {
		return
	}
	m.AnalysisFailures.Inc()
	m.AnalysisDuration.Observe(durationSeconds)
}

// RecordAlignmentRequest increments the alignment requests counter.
func (m *Metrics) RecordAlignmentRequest() {
	if m == nil {
		return
	}
	m.AlignmentRequests.Inc()
}

// RecordAlignmentSuccess records a successful alignment round trip.
func (m *Metrics) RecordAlignmentSuccess(durationSeconds float64) {
	if m == nil {
		return
	}
	m.AlignmentSuccesses.Inc()
	m.AlignmentDuration.Observe(durationSeconds)
}

// RecordAlignmentFailure records a failed alignment round trip.
func (m *Metrics) RecordAlignmentFailure(durationSeconds float64) {
	if m == nil {
		return
	}
	m.AlignmentFailures.Inc()
	m.AlignmentDuration.Observe(durationSeconds)
}

// RecordAlignmentRetry increments the retry counter.
func (m *Metrics) RecordAlignmentRetry() {
	if m == nil {
		return
	}
	m.AlignmentRetries.Inc()
}

// RecordExport records a written export of the given format.
func (m *Metrics) RecordExport(format string, sizeBytes int) {
	if m == nil {
		return
	}
	m.ExportsGenerated.WithLabelValues(format).Inc()
	m.ExportSize.WithLabelValues(format).Observe(float64(sizeBytes))
}

// RecordExportError records a failed export of the given format.
func (m *Metrics) RecordExportError(format string) {
	if m == nil {
		return
	}
	m.ExportErrors.WithLabelValues(format).Inc()
}
