// Package ledger provides the append-only store of run outcomes.
//
// Two backends share the Ledger interface:
//   - CSV: the tabular file the sweep tooling has always produced. The header
//     row is written lazily, once, when the file is absent or empty.
//   - SQLite: a durable table for long sweeps, chosen when the ledger path
//     ends in .db, .sqlite or .sqlite3.
//
// # Concurrency
//
// The CSV ledger serializes "check size, maybe write header, append row"
// under an in-process mutex and a file lock next to the ledger, so
// concurrent writers in one process or in several never lose the header or
// interleave rows. Each row is written with a single append.
//
// The SQLite ledger keeps one connection open (single writer) with WAL
// mode and a busy timeout, and each row is one INSERT.
package ledger
