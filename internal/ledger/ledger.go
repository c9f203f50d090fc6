package ledger

import (
	"context"
	"path/filepath"
	"strings"
	"time"
)

// NoResults is the full-key summary recorded when the engine printed none.
const NoResults = "No results found"

// Header is the fixed column set of the tabular ledger.
var Header = []string{
	"Locked Circuit",
	"Prior Circuit",
	"Unroll Factor",
	"Probe Resolution",
	"Execution Time",
	"Full Key Leakage",
	"Partial Key Leakage",
	"key_source",
	"key",
}

// Row is one run's entry.
type Row struct {
	LockedCircuit     string
	PriorCircuit      string
	UnrollFactor      *int
	ProbeResolution   *int
	ExecutionTime     time.Duration
	FullKeyLeakage    string
	PartialKeyLeakage int
	KeySource         string
	Key               string
}

// FoundFullKey reports whether the engine printed a full-key summary.
func (r Row) FoundFullKey() bool {
	return r.FullKeyLeakage != "" && r.FullKeyLeakage != NoResults
}

// Ledger is an append-only store of rows.
type Ledger interface {
	// Append records one row. Safe for concurrent use.
	Append(ctx context.Context, row Row) error
	// Rows returns every recorded row in append order.
	Rows(ctx context.Context) ([]Row, error)
	Close() error
}

// Open opens the ledger at path, choosing the backend by extension.
func Open(path string) (Ledger, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return OpenSQLite(path)
	default:
		return NewCSV(path), nil
	}
}
