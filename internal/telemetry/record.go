// File: internal/telemetry/record.go

// Package telemetry tracks per-run phase timings, persists them as JSONL,
// and analyzes the accumulated history offline.
package telemetry

// Record is one completed run as written to the timing log: a wall-clock
// timestamp, the cumulative seconds spent in each named phase, and the
// total run duration.
type Record struct {
	TS     float64            `json:"ts"`
	Phases map[string]float64 `json:"phases"`
	Total  float64            `json:"total"`
}
