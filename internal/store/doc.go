// Package store persists scan results.
//
// Store keeps scan history in a SQLite database under the state directory.
// Writers take an advisory file lock next to the database so two picsift
// processes never interleave a save with a clear. JSONFile reads and writes
// the portable version 2.0 document used by export and import, and still
// accepts version 1.0 documents that predate the metadata block.
//
// Both types satisfy scanresult.Saver and scanresult.Loader. LoadRef picks the
// right one for a user supplied reference: a scan ID, "latest", or a path to
// a JSON file.
package store
