package export

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"golang.org/x/text/encoding/japanese"

	"github.com/RiRi-380/Lipsynctool-beta/internal/phoneme"
	"github.com/RiRi-380/Lipsynctool-beta/internal/timeline"
)

// VMD binary layout constants. All multi-byte fields are little-endian and
// all text fields are Shift-JIS padded with NUL bytes.
const (
	vmdSignature     = "Vocaloid Motion Data 0002"
	vmdHeaderSize    = 30
	vmdModelNameSize = 20
	vmdMorphNameSize = 15
)

// DefaultMorphs is the standard vowel morph table of MMD models.
func DefaultMorphs() map[phoneme.Shape]string {
	return map[phoneme.Shape]string{
		phoneme.ShapeA: "あ",
		phoneme.ShapeI: "い",
		phoneme.ShapeU: "う",
		phoneme.ShapeE: "え",
		phoneme.ShapeO: "お",
	}
}

// VMDConfig contains motion encoding parameters.
type VMDConfig struct {
	// ModelName is written into the 20-byte model field.
	ModelName string
	// FPS converts block times to frame numbers. MMD plays at 30.
	FPS float64
	// Morphs maps mouth shapes to model morph names. Nil selects
	// DefaultMorphs. The closed shape never needs a mapping.
	Morphs map[phoneme.Shape]string
	// CrossfadeThreshold is the silence length, in seconds, under which a
	// morph fades into the neighbor instead of closing fully.
	CrossfadeThreshold float64
	// CrossfadeMinWeight is the weight held at a crossfading boundary.
	CrossfadeMinWeight float64
	// PeakScale converts a block's amplitude hint into its peak morph
	// weight, clamped at 1. Zero selects the default of 2.
	PeakScale float64
}

// Validate checks encoding parameters.
func (c *VMDConfig) Validate() error {
	if c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %f", c.FPS)
	}
	if c.CrossfadeThreshold < 0 {
		return fmt.Errorf("crossfade threshold must not be negative, got %f", c.CrossfadeThreshold)
	}
	if c.CrossfadeMinWeight < 0 || c.CrossfadeMinWeight > 1 {
		return fmt.Errorf("crossfade weight must be in [0, 1], got %f", c.CrossfadeMinWeight)
	}
	if c.PeakScale < 0 {
		return fmt.Errorf("peak scale must not be negative, got %f", c.PeakScale)
	}
	return nil
}

// VMDEncoder writes timelines as VMD motion files containing only morph
// keyframes; bone, camera, light, self-shadow and IK sections are present
// but empty.
type VMDEncoder struct {
	config VMDConfig
}

// NewVMDEncoder creates an encoder with validated parameters.
func NewVMDEncoder(config VMDConfig) (*VMDEncoder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Morphs == nil {
		config.Morphs = DefaultMorphs()
	}
	if config.PeakScale == 0 {
		config.PeakScale = 2
	}
	return &VMDEncoder{config: config}, nil
}

// morphKey is one morph keyframe before binary encoding.
type morphKey struct {
	name   string
	frame  uint32
	weight float32
}

// Encode renders the block list as VMD bytes. Each speech block becomes a
// linear three-point fade: open at the block start, peak at the midpoint,
// close at the end. When the silence before or after a block is shorter
// than the crossfade threshold the boundary key holds the crossfade weight
// instead of zero. The output is deterministic for identical input.
func (e *VMDEncoder) Encode(blocks []timeline.Block) ([]byte, error) {
	keys, err := e.morphKeys(blocks)
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	if err := writePadded(buf, vmdSignature, vmdHeaderSize, "signature"); err != nil {
		return nil, err
	}
	if err := writePadded(buf, e.config.ModelName, vmdModelNameSize, "model name"); err != nil {
		return nil, err
	}

	// Bone section, always empty.
	if err := binary.Write(buf, binary.LittleEndian, uint32(0)); err != nil {
		return nil, err
	}

	if err := binary.Write(buf, binary.LittleEndian, uint32(len(keys))); err != nil {
		return nil, err
	}
	for _, k := range keys {
		if err := writePadded(buf, k.name, vmdMorphNameSize, "morph name"); err != nil {
			return nil, err
		}
		if err := binary.Write(buf, binary.LittleEndian, k.frame); err != nil {
			return nil, err
		}
		if err := binary.Write(buf, binary.LittleEndian, k.weight); err != nil {
			return nil, err
		}
	}

	// Camera, light, self-shadow and IK sections, all empty.
	for i := 0; i < 4; i++ {
		if err := binary.Write(buf, binary.LittleEndian, uint32(0)); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// morphKeys builds the deduplicated, ordered keyframe list.
func (e *VMDEncoder) morphKeys(blocks []timeline.Block) ([]morphKey, error) {
	type keyID struct {
		name  string
		frame uint32
	}
	merged := make(map[keyID]float32)

	speech := make([]timeline.Block, 0, len(blocks))
	for _, b := range blocks {
		if b.Shape != phoneme.ShapeClosed {
			speech = append(speech, b)
		}
	}

	for i, b := range speech {
		name, ok := e.config.Morphs[b.Shape]
		if !ok {
			return nil, fmt.Errorf("%w: shape %s of block %q at %.3fs",
				ErrUnmappedCategory, b.Shape, b.Unit.Label, b.Start)
		}

		peak := 1.0
		if b.Amplitude > 0 {
			peak = math.Min(1, e.config.PeakScale*b.Amplitude)
		}

		openWeight := 0.0
		if i > 0 && b.Start-speech[i-1].End < e.config.CrossfadeThreshold {
			openWeight = e.config.CrossfadeMinWeight
		}
		closeWeight := 0.0
		if i < len(speech)-1 && speech[i+1].Start-b.End < e.config.CrossfadeThreshold {
			closeWeight = e.config.CrossfadeMinWeight
		}

		mid := b.Start + b.Duration()/2
		points := []struct {
			t float64
			w float64
		}{
			{b.Start, openWeight},
			{mid, peak},
			{b.End, closeWeight},
		}
		for _, p := range points {
			id := keyID{name: name, frame: e.frame(p.t)}
			// Colliding keys keep the louder weight so a peak is never
			// flattened by a neighboring fade key.
			if w, ok := merged[id]; !ok || float32(p.w) > w {
				merged[id] = float32(p.w)
			}
		}
	}

	keys := make([]morphKey, 0, len(merged))
	for id, w := range merged {
		keys = append(keys, morphKey{name: id.name, frame: id.frame, weight: w})
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].frame != keys[j].frame {
			return keys[i].frame < keys[j].frame
		}
		return keys[i].name < keys[j].name
	})
	return keys, nil
}

// frame converts seconds to the nearest frame number.
func (e *VMDEncoder) frame(t float64) uint32 {
	return uint32(math.Round(t * e.config.FPS))
}

// writePadded encodes s as Shift-JIS into a fixed-width NUL-padded field.
func writePadded(buf *bytes.Buffer, s string, size int, field string) error {
	encoded, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return fmt.Errorf("%w: %s %q is not Shift-JIS encodable", ErrEncodingOverflow, field, s)
	}
	if len(encoded) > size {
		return fmt.Errorf("%w: %s %q needs %d bytes, field holds %d",
			ErrEncodingOverflow, field, s, len(encoded), size)
	}
	buf.Write(encoded)
	buf.Write(make([]byte, size-len(encoded)))
	return nil
}
