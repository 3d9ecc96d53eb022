// Package analysis orchestrates a full lip-sync job: decode the recording,
// extract its amplitude envelope, map the transcript onto timed phoneme
// blocks and assemble the editable timeline seed. The pipeline itself is
// pure; the optional alignment service is the only external dependency.
package analysis
