package phoneme

import "fmt"

// Shape is one of the fixed mouth-open states used to drive a face rig.
// The set mirrors the five Japanese vowel mouth positions plus a closed
// mouth used for silence, nasals and anything unmapped.
type Shape int

const (
	ShapeClosed Shape = iota // closed mouth / silence / nasal
	ShapeA
	ShapeI
	ShapeU
	ShapeE
	ShapeO
)

var shapeNames = map[Shape]string{
	ShapeClosed: "closed",
	ShapeA:      "a",
	ShapeI:      "i",
	ShapeU:      "u",
	ShapeE:      "e",
	ShapeO:      "o",
}

// String returns the stable lowercase name used in save files.
func (s Shape) String() string {
	if name, ok := shapeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("shape(%d)", int(s))
}

// ParseShape inverts String. Unknown names map to ShapeClosed, matching
// the lookup fallback used everywhere else.
func ParseShape(name string) Shape {
	for s, n := range shapeNames {
		if n == name {
			return s
		}
	}
	return ShapeClosed
}

// MarshalText implements encoding.TextMarshaler for JSON round-trips.
func (s Shape) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Shape) UnmarshalText(b []byte) error {
	*s = ParseShape(string(b))
	return nil
}

var vowelShapes = map[byte]Shape{
	'a': ShapeA,
	'i': ShapeI,
	'u': ShapeU,
	'e': ShapeE,
	'o': ShapeO,
}

// ShapeForLabel maps a phoneme label to its mouth-shape category. The mouth
// position of a Japanese mora is carried by its trailing vowel, so the last
// vowel letter decides; labels with no vowel (n, xtsu, sil) and labels the
// table does not know fall back to the closed mouth instead of failing.
func ShapeForLabel(label string) Shape {
	switch label {
	case "", SilenceLabel, "n", "xtsu":
		return ShapeClosed
	}
	for i := len(label) - 1; i >= 0; i-- {
		if s, ok := vowelShapes[label[i]]; ok {
			return s
		}
	}
	return ShapeClosed
}
