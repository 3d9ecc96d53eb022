// Package recognizer provides the HTTP client for a forced-alignment
// service. Given a WAV recording and its transcript the service returns
// timed phoneme intervals, which segmentation uses as timing hints.
package recognizer
