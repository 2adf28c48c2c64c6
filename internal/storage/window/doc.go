// Package window owns the bounded, time-ordered backing file of sensor
// readings: the rolling window.
//
// The file is delimited text with a fixed header row. Writes go through
// a write-temporary-then-rename path so concurrent readers never see a
// partially written store. Reads are tolerant: a malformed numeric cell
// nulls that channel only, a malformed row is dropped and counted.
package window
