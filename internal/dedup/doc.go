// Package dedup orchestrates a multi-root scan.
//
// The Orchestrator scans each root concurrently with a shared VisitedSet,
// merges the per-root partitions so content seen in two roots becomes one
// duplicate group, optionally removes everything already known to a baseline
// result, and emits a scanresult.Result. A failing root is logged and left
// out; cancellation yields no result at all.
package dedup
