// Package archive copies one representative of every distinct item in a scan
// result into a date-organized tree.
//
// Duplicate groups are copied first, each through its lexically first path,
// followed by the uniques. Target directories come from a placement pattern
// such as /{year}/{month}/{day}; name collisions are resolved by appending
// _1, _2, ... before the extension so nothing in the target is overwritten.
// Per-item failures are counted and logged while the remaining items carry on.
package archive
