// Package effects provides reusable non-I/O DSP effect kernels.
//
// Effects in this package:
//   - GranularDelay: Granular delay with feedback, dry/wet mix and
//     tempo-synchronized position control over the granular engine.
//
// All effects are designed for real-time processing with zero-allocation
// hot paths and support both single-sample and buffer-based processing.
package effects
