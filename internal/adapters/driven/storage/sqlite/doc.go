// Package sqlite provides SQLite-backed persistence for sync cursors, run
// history and the content hash index. The compare-and-swap on the cursor
// status column is the system's run lock.
package sqlite
