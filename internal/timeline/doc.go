// Package timeline implements the editable lip-sync document: an ordered,
// non-overlapping sequence of phoneme blocks over a read-only envelope
// curve, mutated only through reversible commands so every edit can be
// undone and redone exactly.
package timeline
