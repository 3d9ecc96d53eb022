package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/RiRi-380/Lipsynctool-beta/internal/analysis"
	"github.com/RiRi-380/Lipsynctool-beta/internal/audio"
	"github.com/RiRi-380/Lipsynctool-beta/internal/config"
	"github.com/RiRi-380/Lipsynctool-beta/internal/export"
	"github.com/RiRi-380/Lipsynctool-beta/internal/metrics"
	"github.com/RiRi-380/Lipsynctool-beta/internal/phoneme"
	"github.com/RiRi-380/Lipsynctool-beta/internal/recognizer"
	"github.com/RiRi-380/Lipsynctool-beta/internal/segment"
)

const (
	toolName    = "lipsync"
	toolVersion = "1.0.0"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (built-in defaults when empty)")
	inPath := flag.String("in", "", "Path to the input WAV or raw PCM recording")
	sampleRate := flag.Int("rate", 0, "Sample rate of raw PCM input (0 = WAV input only)")
	text := flag.String("text", "", "Transcript of the recording")
	format := flag.String("format", "json", "Output format: json, vmd or engine")
	outPath := flag.String("out", "", "Path to write the export to")
	profile := flag.String("profile", "", "Character profile forwarded to the alignment service")
	useGPU := flag.Bool("gpu", false, "Request GPU alignment")
	flag.Parse()

	if *inPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "both -in and -out are required")
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	logger := initLogger(cfg.Logging)

	logger.Info("Tool starting",
		slog.String("tool", toolName),
		slog.String("version", toolVersion),
		slog.String("input", *inPath),
		slog.String("format", *format),
	)

	var appMetrics *metrics.Metrics
	if cfg.Metrics.Enabled {
		appMetrics = metrics.NewMetrics()
		go func() {
			logger.Info("Metrics listener started", slog.String("address", cfg.Metrics.Address))
			if err := http.ListenAndServe(cfg.Metrics.Address, promhttp.Handler()); err != nil {
				logger.Error("Metrics listener failed", slog.String("error", err.Error()))
			}
		}()
	}

	extractor, err := audio.NewExtractor(audio.ExtractorConfig{
		WindowSize:    cfg.Audio.WindowSize,
		HopSize:       cfg.Audio.HopSize,
		GateThreshold: cfg.Audio.GateThreshold,
		Workers:       cfg.Audio.Workers,
	})
	if err != nil {
		logger.Error("Failed to create envelope extractor", slog.String("error", err.Error()))
		os.Exit(1)
	}

	segmenter, err := segment.NewSegmenter(segment.Config{
		GapThreshold: cfg.Segmenter.GapThreshold,
		SilenceFloor: cfg.Segmenter.SilenceFloor,
	})
	if err != nil {
		logger.Error("Failed to create segmenter", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var aligner segment.Recognizer
	if cfg.Alignment.Enabled {
		client, err := recognizer.NewClient(recognizer.Config{
			Endpoint:      cfg.Alignment.Endpoint,
			APIKey:        cfg.Alignment.APIKey,
			Timeout:       cfg.Alignment.GetTimeoutDuration(),
			MaxRetries:    cfg.Alignment.MaxRetries,
			MaxConcurrent: cfg.Alignment.MaxConcurrent,
			Model:         cfg.Alignment.Model,
			UseGPU:        *useGPU,
		}, appMetrics)
		if err != nil {
			logger.Error("Failed to create alignment client", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer client.Close()
		aligner = client
		logger.Info("Alignment client initialized", slog.String("endpoint", cfg.Alignment.Endpoint))
	}

	analyzer := analysis.NewAnalyzer(extractor, segmenter, aligner, appMetrics, logger)

	wavData, err := os.ReadFile(*inPath)
	if err != nil {
		logger.Error("Failed to read input file", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := analyzer.Analyze(ctx, analysis.Request{
		Audio:      wavData,
		SampleRate: *sampleRate,
		Transcript: *text,
		Profile:    *profile,
		UseGPU:     *useGPU,
	})
	if err != nil {
		logger.Error("Analysis failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	output, err := encode(cfg, result, *text, *format)
	if err != nil {
		appMetrics.RecordExportError(*format)
		logger.Error("Export failed",
			slog.String("format", *format),
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := os.WriteFile(*outPath, output, 0644); err != nil {
		logger.Error("Failed to write output file", slog.String("error", err.Error()))
		os.Exit(1)
	}
	appMetrics.RecordExport(*format, len(output))

	logger.Info("Export written",
		slog.String("path", *outPath),
		slog.String("format", *format),
		slog.Int("bytes", len(output)),
		slog.Int("blocks", len(result.Blocks)),
	)
}

// encode renders the analysis result in the requested output format.
func encode(cfg *config.Config, result *analysis.Result, transcript, format string) ([]byte, error) {
	switch format {
	case "json":
		doc := export.NewDocument(result.Timeline)
		doc.Transcript = transcript
		doc.Fingerprint = result.Fingerprint
		return doc.Encode()

	case "vmd":
		enc, err := export.NewVMDEncoder(export.VMDConfig{
			ModelName:          cfg.Export.ModelName,
			FPS:                cfg.Export.FPS,
			Morphs:             shapeTable(cfg.Export.Morphs, export.DefaultMorphs),
			CrossfadeThreshold: cfg.Export.CrossfadeThreshold,
			CrossfadeMinWeight: cfg.Export.CrossfadeMinWeight,
			PeakScale:          cfg.Export.PeakScale,
		})
		if err != nil {
			return nil, err
		}
		return enc.Encode(result.Blocks)

	case "engine":
		enc, err := export.NewEngineEncoder(export.EngineConfig{
			FPS:         cfg.Export.FPS,
			Granularity: export.Granularity(cfg.Export.Granularity),
			Flexes:      shapeTable(cfg.Export.Flexes, export.DefaultFlexes),
			PeakScale:   cfg.Export.PeakScale,
		})
		if err != nil {
			return nil, err
		}
		return enc.Encode(result.Blocks)

	default:
		return nil, fmt.Errorf("unknown output format %q, want json, vmd or engine", format)
	}
}

// shapeTable converts a config name table keyed by shape name into the
// encoder form. An empty table selects the encoder default.
func shapeTable(names map[string]string, fallback func() map[phoneme.Shape]string) map[phoneme.Shape]string {
	if len(names) == 0 {
		return fallback()
	}
	table := make(map[phoneme.Shape]string, len(names))
	for name, target := range names {
		table[phoneme.ParseShape(name)] = target
	}
	return table
}

// initLogger creates the structured logger from configuration.
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var output *os.File
	switch cfg.Output {
	case "stdout":
		output = os.Stdout
	case "stderr", "":
		output = os.Stderr
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stderr\n", cfg.Output, err)
			output = os.Stderr
		} else {
			output = file
		}
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
