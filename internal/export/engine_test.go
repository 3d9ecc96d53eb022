package export

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RiRi-380/Lipsynctool-beta/internal/phoneme"
	"github.com/RiRi-380/Lipsynctool-beta/internal/timeline"
)

func TestEngineSegmentExport(t *testing.T) {
	enc, err := NewEngineEncoder(EngineConfig{FPS: 30, Granularity: GranularitySegment})
	require.NoError(t, err)

	blocks := []timeline.Block{
		speechBlock("ko", 0, 0.5, 0.3),
		timeline.NewBlock(phoneme.Silence(), 0.5, 0.8),
		speechBlock("i", 0.8, 1.2, 0.6),
	}
	data, err := enc.Encode(blocks)
	require.NoError(t, err)

	var doc engineDocument
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, "1.0", doc.Metadata.Version)
	assert.Equal(t, 30.0, doc.Metadata.FPS)
	assert.Equal(t, 1.2, doc.Metadata.Duration)
	assert.Equal(t, "segment", doc.Metadata.Granularity)

	require.Len(t, doc.Segments, 2, "silence blocks produce no records")
	assert.Equal(t, "ko", doc.Segments[0].Phoneme)
	assert.Equal(t, "OH", doc.Segments[0].Flex)
	assert.InDelta(t, 0.6, doc.Segments[0].Weight, 1e-12) // min(1, 2*0.3)
	assert.Equal(t, "EE", doc.Segments[1].Flex)
	assert.InDelta(t, 1.0, doc.Segments[1].Weight, 1e-12) // 2*0.6 clamped
	assert.Empty(t, doc.Frames)
}

func TestEngineFrameExport(t *testing.T) {
	enc, err := NewEngineEncoder(EngineConfig{FPS: 10, Granularity: GranularityFrame})
	require.NoError(t, err)

	data, err := enc.Encode([]timeline.Block{speechBlock("a", 0, 1.0, 0.5)})
	require.NoError(t, err)

	var doc engineDocument
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.Frames, 11) // frames 0..10 inclusive

	assert.Equal(t, 0, doc.Frames[0].Frame)
	assert.InDelta(t, 0.0, doc.Frames[0].Weight, 1e-12)
	assert.InDelta(t, 1.0, doc.Frames[5].Weight, 1e-12, "peak at the block midpoint")
	assert.InDelta(t, 0.0, doc.Frames[10].Weight, 1e-12)
	for i := 1; i <= 5; i++ {
		assert.Greater(t, doc.Frames[i].Weight, doc.Frames[i-1].Weight,
			"weight must ramp up to the midpoint")
	}
	assert.Empty(t, doc.Segments)
}

func TestEngineUnmappedShape(t *testing.T) {
	enc, err := NewEngineEncoder(EngineConfig{
		FPS:         30,
		Granularity: GranularitySegment,
		Flexes:      map[phoneme.Shape]string{phoneme.ShapeA: "AH"},
	})
	require.NoError(t, err)

	out, err := enc.Encode([]timeline.Block{speechBlock("u", 0, 1.0, 0.5)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnmappedCategory))
	assert.Nil(t, out, "no partial output on failure")
}

func TestEngineConfigValidation(t *testing.T) {
	bad := []EngineConfig{
		{FPS: 0, Granularity: GranularitySegment},
		{FPS: 30, Granularity: "word"},
		{FPS: 30, Granularity: GranularityFrame, PeakScale: -2},
	}
	for i, cfg := range bad {
		_, err := NewEngineEncoder(cfg)
		assert.Error(t, err, "case %d", i)
	}
}
