// Package preflight provides readiness checks for the filesystem paths picsift
// writes to.
//
// These checks run in two contexts:
//   - `picsift copy` calls CheckDirectoryAccess and CheckSpace on the archive
//     root before the first file is copied, so a doomed copy never starts.
//   - `picsift config show` calls RunAll to report whether the state and log
//     directories are usable.
package preflight
