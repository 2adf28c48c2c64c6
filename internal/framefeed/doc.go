// Package framefeed serves the live motion-JPEG frame feed. Frames
// are composed from a base image with a numbered overlay; the frame
// number comes from a persisted cyclic counter shared by all viewer
// sessions, so concurrent viewers observe a single global sequence.
package framefeed
