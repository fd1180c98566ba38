// Package placement maps an identity to its directory inside a date-organized
// archive, e.g. /2023/12/31.
package placement
