package export

import (
	"encoding/json"
	"fmt"

	"github.com/RiRi-380/Lipsynctool-beta/internal/audio"
	"github.com/RiRi-380/Lipsynctool-beta/internal/timeline"
)

// DocumentFormat identifies a save file. DocumentVersion is bumped on any
// change that older readers cannot parse.
const (
	DocumentFormat  = "lipsync-timeline"
	DocumentVersion = 1
)

// Document is the on-disk save format. It carries everything needed to
// reopen an editing session without the source audio: the block list, the
// envelope curve, and the analysis provenance. Encoding and decoding a
// document yields an identical value.
type Document struct {
	Format      string           `json:"format"`
	Version     int              `json:"version"`
	Transcript  string           `json:"transcript,omitempty"`
	Fingerprint string           `json:"fingerprint,omitempty"`
	SampleRate  int              `json:"sample_rate,omitempty"`
	Duration    float64          `json:"duration"`
	Envelope    *audio.Envelope  `json:"envelope,omitempty"`
	Blocks      []timeline.Block `json:"blocks"`
}

// NewDocument snapshots a timeline into a document.
func NewDocument(t *timeline.Timeline) *Document {
	return &Document{
		Format:   DocumentFormat,
		Version:  DocumentVersion,
		Duration: t.Duration(),
		Envelope: t.Envelope(),
		Blocks:   t.Blocks(),
	}
}

// Encode serializes the document as indented JSON.
func (d *Document) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return data, nil
}

// DecodeDocument parses and validates a save file. Unknown formats and
// newer versions are rejected with ErrFormatMismatch rather than read
// partially.
func DecodeDocument(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormatMismatch, err)
	}
	if d.Format != DocumentFormat {
		return nil, fmt.Errorf("%w: format %q, want %q", ErrFormatMismatch, d.Format, DocumentFormat)
	}
	if d.Version < 1 || d.Version > DocumentVersion {
		return nil, fmt.Errorf("%w: version %d, support up to %d", ErrFormatMismatch, d.Version, DocumentVersion)
	}
	return &d, nil
}

// Timeline rebuilds an editable timeline from the document. The block
// invariants are re-checked so a hand-edited save cannot smuggle in an
// overlapping sequence.
func (d *Document) Timeline() (*timeline.Timeline, error) {
	t, err := timeline.New(d.Blocks, d.Envelope)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormatMismatch, err)
	}
	return t, nil
}
