// Package perf hosts opt-in performance benchmarks for the tick engine and
// the concurrent policy comparison.
//
// The actual benchmarks are behind build tags (`perf`, `perf_large`) so they
// stay out of default test runs, but having this file without tags keeps the
// package discoverable by editors and `go list`.
package perf
