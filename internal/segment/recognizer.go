package segment

import "context"

// Hint is one recognizer-estimated interval for a transcript unit.
type Hint struct {
	Surface    string  `json:"surface"`
	Label      string  `json:"label"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float32 `json:"confidence,omitempty"`
}

// Recognizer provides transcript timing hints for an audio recording. It is
// a capability contract for external speech-recognition or morphological
// analysis providers; the segmenter depends on it by interface only so the
// actual engine can be swapped or mocked in tests.
type Recognizer interface {
	// Hints returns per-unit timing estimates for the given WAV-encoded
	// audio and transcript. An empty slice means the provider produced no
	// usable alignment; the segmenter then falls back to proportional
	// allocation.
	Hints(ctx context.Context, wavData []byte, transcript string) ([]Hint, error)
}
