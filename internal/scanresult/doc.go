// Package scanresult holds the outcome of a completed scan: every discovered
// file partitioned into unique items and duplicate groups.
//
// A Result is created once per scan or merge, then persisted, reported,
// copied from, or used as the baseline of a later scan. Storage formats live
// behind the Saver and Loader ports so this package stays format-agnostic.
package scanresult
