// Package storage persists rollover state between restarts.
//
// It currently supports:
//   - The last/next boundary of every rotating target
//   - An append-only history of performed rotations
package storage
