// Command picsift finds duplicate images across folders and archives one copy
// of each distinct image into a date-organized tree.
//
// Typical session:
//
//	picsift scan ~/Pictures /mnt/backup/photos --ext jpg --ext png
//	picsift report
//	picsift copy latest /mnt/archive --pattern '/{year}/{month}'
//
// Scans are kept in a SQLite history under the state directory and can be
// exported to or imported from portable JSON documents. A running scan or
// copy stops on SIGINT/SIGTERM, pauses on SIGUSR1 and resumes on SIGUSR2.
//
// `picsift logs --scan ID --follow` tails the daily log file for one scan.
package main
