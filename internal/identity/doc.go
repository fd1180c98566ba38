// Package identity defines how picsift decides that two image files hold the
// same content.
//
// Each probed file becomes an Identity of one of two variants. Metadata
// identities compare the EXIF capture date and size, or the file name,
// modification time and size when no EXIF date exists. Checksum identities
// compare an MD5 digest of the file contents and size; digests come from a
// shared ChecksumCache so each path is read at most once per scan.
//
// Grouping code never compares identities pairwise. It uses Key, a comparable
// struct derived from a single identity, as a map key, so equal identities
// always hash alike.
package identity
