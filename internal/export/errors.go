package export

import "errors"

var (
	// ErrUnmappedCategory reports a mouth-shape category used by the
	// timeline that has no entry in the target format's name table.
	ErrUnmappedCategory = errors.New("unmapped mouth shape")

	// ErrEncodingOverflow reports a label that does not fit its
	// fixed-width binary field after character encoding.
	ErrEncodingOverflow = errors.New("encoded field overflow")

	// ErrFormatMismatch reports a document that is not a recognizable
	// save file, or one written by an incompatible version.
	ErrFormatMismatch = errors.New("document format mismatch")
)
