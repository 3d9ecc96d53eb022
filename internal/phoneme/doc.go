// Package phoneme defines the phonetic vocabulary of the engine: lexical
// units paired with romanized phoneme labels, the closed set of mouth-shape
// categories that drive a face rig, and the kana romanization tables used to
// turn Japanese transcript text into phoneme sequences.
package phoneme
