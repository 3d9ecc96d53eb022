package segment

import (
	"fmt"
	"sort"

	"github.com/RiRi-380/Lipsynctool-beta/internal/audio"
	"github.com/RiRi-380/Lipsynctool-beta/internal/phoneme"
	"github.com/RiRi-380/Lipsynctool-beta/internal/timeline"
)

// Config contains segmentation parameters.
type Config struct {
	// GapThreshold is the hint gap, in seconds, below which adjacent blocks
	// are joined instead of receiving an explicit silence block.
	GapThreshold float64
	// SilenceFloor is the minimum duration, in seconds, a silence unit is
	// allotted during proportional allocation.
	SilenceFloor float64
}

// Validate checks segmentation parameters.
func (c *Config) Validate() error {
	if c.GapThreshold < 0 {
		return fmt.Errorf("%w: gap threshold must not be negative, got %f", audio.ErrInvalidInput, c.GapThreshold)
	}
	if c.SilenceFloor < 0 {
		return fmt.Errorf("%w: silence floor must not be negative, got %f", audio.ErrInvalidInput, c.SilenceFloor)
	}
	return nil
}

// Segmenter turns transcripts into ordered, contiguous phoneme blocks.
type Segmenter struct {
	config Config
}

// NewSegmenter creates a segmenter with validated parameters.
func NewSegmenter(config Config) (*Segmenter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Segmenter{config: config}, nil
}

// Segment produces a non-overlapping block sequence covering [0, duration)
// with no gaps. When timing hints exist each unit snaps to its hint and any
// gap or overlap is repaired; without hints, durations are allocated
// proportionally to per-label weights. An empty transcript is valid and
// yields a single silence block spanning the whole duration.
func (s *Segmenter) Segment(units []phoneme.Unit, duration float64, hints []Hint) ([]timeline.Block, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("%w: audio duration must be positive, got %f", audio.ErrInvalidInput, duration)
	}
	if len(hints) > 0 {
		return s.fromHints(units, duration, hints), nil
	}
	if len(units) == 0 {
		return []timeline.Block{timeline.NewBlock(phoneme.Silence(), 0, duration)}, nil
	}
	return s.proportional(units, duration), nil
}

// proportional allocates each unit a share of the duration weighted by its
// label's default phonetic length, with silence units held at the floor.
// Boundaries are chained off cumulative weights so the blocks are exactly
// contiguous and the last block ends exactly at duration.
func (s *Segmenter) proportional(units []phoneme.Unit, duration float64) []timeline.Block {
	durs := make([]float64, len(units))
	var totalWeight float64
	for _, u := range units {
		totalWeight += phoneme.DurationWeight(u.Label)
	}
	for i, u := range units {
		durs[i] = duration * phoneme.DurationWeight(u.Label) / totalWeight
	}

	// Raise short silence blocks to the floor and rescale speech to fill
	// the remainder. When the floored silence alone exceeds the recording
	// the whole vector shrinks proportionally instead, so durations always
	// sum exactly to duration.
	if s.config.SilenceFloor > 0 {
		var silenceTotal, speechTotal float64
		for i, u := range units {
			if u.IsSilence() {
				if durs[i] < s.config.SilenceFloor {
					durs[i] = s.config.SilenceFloor
				}
				silenceTotal += durs[i]
			} else {
				speechTotal += durs[i]
			}
		}
		if speechTotal > 0 && silenceTotal < duration {
			scale := (duration - silenceTotal) / speechTotal
			for i, u := range units {
				if !u.IsSilence() {
					durs[i] *= scale
				}
			}
		} else if total := silenceTotal + speechTotal; total > duration {
			scale := duration / total
			for i := range durs {
				durs[i] *= scale
			}
		}
	}

	blocks := make([]timeline.Block, len(units))
	var elapsed float64
	for i, u := range units {
		start := elapsed
		elapsed += durs[i]
		end := elapsed
		if i == len(units)-1 {
			end = duration
		}
		blocks[i] = timeline.NewBlock(u, start, end)
	}
	return blocks
}

// fromHints snaps each unit to its recognizer interval, then repairs the
// sequence: overlaps and sub-threshold gaps move the shared boundary in
// proportion to the neighboring durations, longer gaps become explicit
// silence blocks. The result covers [0, duration) exactly.
func (s *Segmenter) fromHints(units []phoneme.Unit, duration float64, hints []Hint) []timeline.Block {
	type span struct {
		unit       phoneme.Unit
		start, end float64
	}

	spans := make([]span, 0, len(hints))
	for i, h := range hints {
		unit := phoneme.Unit{Surface: h.Surface, Label: h.Label}
		// Hints aligned 1:1 with the transcript may omit surface/label.
		if len(hints) == len(units) {
			if unit.Surface == "" {
				unit.Surface = units[i].Surface
			}
			if unit.Label == "" {
				unit.Label = units[i].Label
			}
		}
		start := clamp(h.Start, 0, duration)
		end := clamp(h.End, 0, duration)
		if end <= start {
			continue // degenerate hint, nothing to place
		}
		spans = append(spans, span{unit: unit, start: start, end: end})
	}
	if len(spans) == 0 {
		return []timeline.Block{timeline.NewBlock(phoneme.Silence(), 0, duration)}
	}

	sort.SliceStable(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	// Resolve overlaps: split the disputed region in proportion to the two
	// blocks' durations so longer blocks give up more.
	for i := 0; i < len(spans)-1; i++ {
		cur, next := &spans[i], &spans[i+1]
		if next.start >= cur.end {
			continue
		}
		dl := cur.end - cur.start
		dr := next.end - next.start
		boundary := cur.end - (cur.end-next.start)*dl/(dl+dr)
		boundary = clamp(boundary, cur.start, next.end)
		cur.end = boundary
		next.start = boundary
	}

	var blocks []timeline.Block
	appendSilence := func(start, end float64) {
		blocks = append(blocks, timeline.NewBlock(phoneme.Silence(), start, end))
	}

	// Leading span: short gaps stretch the first block back to zero.
	if first := &spans[0]; first.start > 0 {
		if first.start < s.config.GapThreshold {
			first.start = 0
		} else {
			appendSilence(0, first.start)
		}
	}

	for i := range spans {
		cur := &spans[i]
		if cur.end > cur.start {
			blocks = append(blocks, timeline.NewBlock(cur.unit, cur.start, cur.end))
		}
		if i == len(spans)-1 {
			break
		}
		next := &spans[i+1]
		gap := next.start - cur.end
		if gap <= 0 {
			continue
		}
		if gap < s.config.GapThreshold && len(blocks) > 0 {
			dl := cur.end - cur.start
			dr := next.end - next.start
			boundary := cur.end + gap*dl/(dl+dr)
			blocks[len(blocks)-1].End = boundary
			next.start = boundary
		} else {
			appendSilence(cur.end, next.start)
		}
	}

	if len(blocks) == 0 {
		return []timeline.Block{timeline.NewBlock(phoneme.Silence(), 0, duration)}
	}

	// Trailing span: same policy against the recording end.
	if last := blocks[len(blocks)-1]; last.End < duration {
		if duration-last.End < s.config.GapThreshold {
			blocks[len(blocks)-1].End = duration
		} else {
			appendSilence(last.End, duration)
		}
	}

	return blocks
}

// Annotate fills each block's amplitude hint with the mean envelope
// amplitude over its interval. Blocks are updated in place and returned
// for chaining.
func Annotate(blocks []timeline.Block, env *audio.Envelope) []timeline.Block {
	if env == nil {
		return blocks
	}
	for i := range blocks {
		blocks[i].Amplitude = env.MeanAmplitude(blocks[i].Start, blocks[i].End)
	}
	return blocks
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
