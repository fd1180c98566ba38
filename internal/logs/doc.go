// Package logs reads picsift's daily log files for `picsift logs`.
//
// Tail streams a file with bounded memory, supports a negative offset for
// "last N lines" reads, and polls for new lines in follow mode until the
// caller's context ends. A Match string restricts output to lines containing
// it, which is how the CLI narrows a log to one scan ID.
package logs
