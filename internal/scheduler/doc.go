// Package scheduler runs periodic maintenance jobs on a fixed tick.
// A tick that arrives while the previous pass is still running is
// skipped, one job's failure never stops the others, and Stop waits
// for an in-flight pass within a caller-supplied deadline.
package scheduler
