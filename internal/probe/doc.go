// Package probe turns a candidate path into an identity.Identity.
//
// A Prober decodes only the image header to confirm the file is an image,
// stats it, and reads the EXIF capture date when one exists. Files that are
// not images are skipped silently; any other failure is logged and the file
// is skipped, so one bad file never aborts a scan.
package probe
