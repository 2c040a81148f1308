// Package storage owns the files a run leaves behind.
//
// ValidateAndPersist partitions collected URLs with the validity predicate
// and writes every candidate to the backup file, one per line. The backup
// doubles as a resume point: ReadBackup loads it again for a download-only
// run.
//
// Manager wraps the output directory and finds the artifacts the retrieval
// tool wrote for an item.
//
// All writes go through a temporary file followed by a rename, so a crash
// never leaves a half-written backup.
package storage
