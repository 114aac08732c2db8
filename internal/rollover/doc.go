// Package rollover decides when time-based rotation happens.
//
// Analyze reads the %d{...} layout of a file-naming pattern and returns the
// finest calendar field it displays; that field is the cadence. A layout
// mixing week and day letters therefore rolls daily.
//
// NextRolloverTime is a pure function of its inputs. Zone and week start are
// explicit arguments; nothing is read from process-wide defaults.
//
// State holds the pending boundary of one target. Due is safe to call from
// any number of goroutines without locking; Advance is serialized and runs
// the rotation callback exactly once per boundary. Trigger drives States
// from a cron loop and persists their position.
package rollover
