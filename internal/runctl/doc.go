// Package runctl provides the cooperative pause, resume, and cancel control
// shared by scans and archival copies.
//
// Long-running loops call Checkpoint between units of work. Checkpoint blocks
// while the run is paused and returns ErrCancelled once the run is cancelled
// or its bound context is done. Cancellation is an expected outcome and is
// never reported as a failure.
package runctl
