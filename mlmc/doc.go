// Package mlmc provides a multi-level Monte Carlo estimation engine.
//
// # Reading Guide
//
// Start with these three files to understand the estimation kernel:
//   - windows.go: the shared sample windows that pair coarse/fine draws
//   - differencer.go: per-level sample sizes and fine-minus-coarse corrections
//   - estimator.go: the pooled expectation and its variance
//
// # Architecture
//
// The hierarchy is an ordered slice of Model implementations, level 0 being
// the coarsest and cheapest. A single continuous stream of draws from an
// InputSource is sliced into overlapping per-level windows so that adjacent
// levels evaluate bit-identical inputs on their shared region; the paired
// difference of those evaluations is an unbiased estimate of the correction
// E[f_l] - E[f_l-1].
//
// allocator.go runs a small pilot to measure per-level cost and variance and
// solves for the asymptotically optimal sample count per level under a
// target standard error. simulator.go wires the pieces into a single Run,
// fanning model evaluation out one goroutine per level.
//
// The mlmc/cache sub-package persists (input, output) pairs across runs so
// that previously evaluated draws are stripped from the work list instead of
// being re-run through an expensive model.
//
// All components are stateless pure functions over their inputs except the
// cache store, which holds an open file handle between Open and Close.
package mlmc
