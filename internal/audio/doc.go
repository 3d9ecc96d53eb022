// Package audio handles decoded sample buffers, WAV encoding/decoding, and
// amplitude-envelope extraction. It implements windowed RMS analysis with
// double-precision accumulation and a parallel sum-of-squares reduction for
// long recordings.
package audio
