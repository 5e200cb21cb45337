// Package report turns per-target call statistics into a summary with a
// caching recommendation for each target, and renders it as a table, JSON
// or log entries.
//
// The estimated time saved assumes cache hits are free and that every call
// of a target costs the same. It is a heuristic, not a measurement.
package report
