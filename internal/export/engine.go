package export

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/RiRi-380/Lipsynctool-beta/internal/phoneme"
	"github.com/RiRi-380/Lipsynctool-beta/internal/timeline"
)

// Granularity selects how an engine export samples the timeline.
type Granularity string

const (
	// GranularitySegment emits one record per speech block.
	GranularitySegment Granularity = "segment"
	// GranularityFrame emits one record per animation frame.
	GranularityFrame Granularity = "frame"
)

// DefaultFlexes maps mouth shapes to the vowel flex controllers of
// Source-engine player models.
func DefaultFlexes() map[phoneme.Shape]string {
	return map[phoneme.Shape]string{
		phoneme.ShapeA: "AH",
		phoneme.ShapeI: "EE",
		phoneme.ShapeU: "OO",
		phoneme.ShapeE: "EH",
		phoneme.ShapeO: "OH",
	}
}

// EngineConfig contains game-engine export parameters.
type EngineConfig struct {
	// FPS is the sampling rate for frame granularity and the rate
	// advertised in the metadata header.
	FPS float64
	// Granularity selects segment or frame records.
	Granularity Granularity
	// Flexes maps mouth shapes to engine flex names. Nil selects
	// DefaultFlexes. The closed shape never needs a mapping.
	Flexes map[phoneme.Shape]string
	// PeakScale converts amplitude hints to flex weights, clamped at 1.
	// Zero selects the default of 2.
	PeakScale float64
}

// Validate checks export parameters.
func (c *EngineConfig) Validate() error {
	if c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %f", c.FPS)
	}
	switch c.Granularity {
	case GranularitySegment, GranularityFrame:
	default:
		return fmt.Errorf("unknown granularity %q", c.Granularity)
	}
	if c.PeakScale < 0 {
		return fmt.Errorf("peak scale must not be negative, got %f", c.PeakScale)
	}
	return nil
}

// EngineEncoder writes timelines as the engine JSON dialect: a metadata
// header followed by either per-segment or per-frame flex records.
type EngineEncoder struct {
	config EngineConfig
}

// NewEngineEncoder creates an encoder with validated parameters.
func NewEngineEncoder(config EngineConfig) (*EngineEncoder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Flexes == nil {
		config.Flexes = DefaultFlexes()
	}
	if config.PeakScale == 0 {
		config.PeakScale = 2
	}
	return &EngineEncoder{config: config}, nil
}

type engineMetadata struct {
	Version     string  `json:"version"`
	FPS         float64 `json:"fps"`
	Duration    float64 `json:"duration"`
	Granularity string  `json:"granularity"`
}

type engineSegment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Phoneme string  `json:"phoneme"`
	Flex    string  `json:"flex"`
	Weight  float64 `json:"weight"`
}

type engineFrame struct {
	Frame  int     `json:"frame"`
	Flex   string  `json:"flex"`
	Weight float64 `json:"weight"`
}

type engineDocument struct {
	Metadata engineMetadata  `json:"metadata"`
	Segments []engineSegment `json:"segments,omitempty"`
	Frames   []engineFrame   `json:"frames,omitempty"`
}

// Encode renders the block list as engine JSON. Silence blocks produce no
// records; a speech block whose shape is missing from the flex table fails
// with ErrUnmappedCategory and no output.
func (e *EngineEncoder) Encode(blocks []timeline.Block) ([]byte, error) {
	doc := engineDocument{
		Metadata: engineMetadata{
			Version:     "1.0",
			FPS:         e.config.FPS,
			Granularity: string(e.config.Granularity),
		},
	}
	if len(blocks) > 0 {
		doc.Metadata.Duration = blocks[len(blocks)-1].End
	}

	for _, b := range blocks {
		if b.Shape == phoneme.ShapeClosed {
			continue
		}
		flex, ok := e.config.Flexes[b.Shape]
		if !ok {
			return nil, fmt.Errorf("%w: shape %s of block %q at %.3fs",
				ErrUnmappedCategory, b.Shape, b.Unit.Label, b.Start)
		}

		peak := 1.0
		if b.Amplitude > 0 {
			peak = math.Min(1, e.config.PeakScale*b.Amplitude)
		}

		switch e.config.Granularity {
		case GranularitySegment:
			doc.Segments = append(doc.Segments, engineSegment{
				Start:   b.Start,
				End:     b.End,
				Phoneme: b.Unit.Label,
				Flex:    flex,
				Weight:  peak,
			})
		case GranularityFrame:
			first := int(math.Round(b.Start * e.config.FPS))
			last := int(math.Round(b.End * e.config.FPS))
			mid := (b.Start + b.End) / 2
			half := b.Duration() / 2
			for f := first; f <= last; f++ {
				t := float64(f) / e.config.FPS
				// Triangular ramp peaking at the block midpoint.
				w := peak * (1 - math.Abs(t-mid)/half)
				if w < 0 {
					w = 0
				}
				doc.Frames = append(doc.Frames, engineFrame{Frame: f, Flex: flex, Weight: w})
			}
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode engine document: %w", err)
	}
	return data, nil
}
