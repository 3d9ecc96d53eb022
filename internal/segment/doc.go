// Package segment maps transcripts onto time-stamped phoneme intervals.
// It reconciles recognizer timing hints into a clean, gap-free block
// sequence, or falls back to weight-proportional allocation when no hints
// exist, and annotates blocks with envelope amplitudes.
package segment
