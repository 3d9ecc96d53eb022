package phoneme

// SilenceLabel is the canonical label for pauses and unvoiced spans.
const SilenceLabel = "sil"

// Unit pairs a lexical surface form with its canonical phoneme label.
// Units are immutable values; build new ones instead of mutating.
type Unit struct {
	Surface string `json:"surface"`
	Label   string `json:"label"`
}

// Silence returns the unit used for pause/silence spans.
func Silence() Unit {
	return Unit{Surface: "", Label: SilenceLabel}
}

// IsSilence reports whether the unit represents a pause rather than speech.
func (u Unit) IsSilence() bool {
	return u.Label == SilenceLabel || u.Label == ""
}

// DurationWeight returns the relative default duration of a phoneme label,
// used when no recognizer timing hints are available. Open-vowel syllables
// are held longer than consonant-dominated ones; the moraic nasal and the
// sokuon are short. Weights are relative, the segmenter normalizes them so
// block durations sum exactly to the audio duration.
func DurationWeight(label string) float64 {
	switch label {
	case "a", "i", "u", "e", "o":
		return 1.0
	case "n", "xtsu":
		return 0.5
	case SilenceLabel, "":
		return 0.4
	}
	// CV syllables sit between a bare vowel and a bare consonant.
	return 0.8
}
