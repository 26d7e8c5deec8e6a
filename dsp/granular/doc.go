// Package granular implements a real-time granular engine over a
// continuously recorded stereo delay buffer.
//
// The engine slices buffer history into short overlapping grains, each with
// its own envelope, pitch ratio, constant-power pan placement and optional
// time reversal, and mixes them back with 1/sqrt(n) loudness compensation.
// Grain voices live in a fixed-capacity pool with oldest-first stealing;
// onsets come from a density-driven scheduler with optional timing jitter.
//
// Everything allocates at construction only. The processing path is
// allocation-free, lock-free and does bounded work per sample. Instances are
// not thread-safe: setters and processing must run on one goroutine.
package granular
