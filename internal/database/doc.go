// Package database provides SQLite-based storage for doctor.
//
// This package implements the ArchiveDB, which stores one summary row per
// parsed consensus per run: the retrieving authority, the document's
// valid-after and fetch timestamps, relay counts, and the known flags and
// consensus parameters as JSON. The archive feeds the history subcommand
// and trend analysis across runs.
//
// Design decision: We use SQLite (via modernc.org/sqlite) because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for one insert per authority per run
// 4. WAL mode provides good concurrent read performance
package database
