// Package export serializes timelines into their interchange formats: the
// lossless JSON document used as the save format, the VMD motion binary
// consumed by MikuMikuDance-compatible tooling, and a game-engine JSON
// dialect driven by a caller-supplied flex table.
//
// Every encoder is a pure function of its input; either the full byte
// sequence is returned or an error with no partial output.
package export
