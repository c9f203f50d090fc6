package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema
// 1 - Index on runs.locked_circuit for per-circuit summaries
const currentSchemaVersion = 1

// SQLite is a ledger stored in a SQLite database.
type SQLite struct {
	db *sql.DB
}

var _ Ledger = (*SQLite)(nil)

// OpenSQLite creates or opens the database at path and applies the schema.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout, so separate processes appending to the same
//     ledger wait instead of failing
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open ledger database")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "connect to ledger database")
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "apply pragmas")
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "apply schema")
	}

	return &SQLite{db: db}, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append inserts one row.
func (s *SQLite) Append(ctx context.Context, row Row) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(locked_circuit, prior_circuit, unroll_factor, probe_resolution,
		 execution_seconds, full_key_leakage, partial_key_leakage, key_source, key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		row.LockedCircuit,
		row.PriorCircuit,
		nullableInt(row.UnrollFactor),
		nullableInt(row.ProbeResolution),
		row.ExecutionTime.Seconds(),
		row.FullKeyLeakage,
		row.PartialKeyLeakage,
		row.KeySource,
		row.Key,
	)
	if err != nil {
		return errors.Wrap(err, "append ledger row")
	}
	return nil
}

// Rows returns every row ordered by insertion.
func (s *SQLite) Rows(ctx context.Context) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT locked_circuit, prior_circuit, unroll_factor, probe_resolution,
		       execution_seconds, full_key_leakage, partial_key_leakage, key_source, key
		FROM runs
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, errors.Wrap(err, "read ledger")
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			r          Row
			unroll     sql.NullInt64
			resolution sql.NullInt64
			secs       float64
		)
		if err := rows.Scan(
			&r.LockedCircuit,
			&r.PriorCircuit,
			&unroll,
			&resolution,
			&secs,
			&r.FullKeyLeakage,
			&r.PartialKeyLeakage,
			&r.KeySource,
			&r.Key,
		); err != nil {
			return nil, errors.Wrap(err, "scan ledger row")
		}
		r.UnrollFactor = intFromNull(unroll)
		r.ProbeResolution = intFromNull(resolution)
		r.ExecutionTime = time.Duration(secs * float64(time.Second))
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "read ledger")
	}
	return out, nil
}

func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intFromNull(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return errors.Wrapf(err, "execute %q", pragma)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// Idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return errors.Wrap(err, "execute schema")
	}
	if err := runMigrations(db); err != nil {
		return errors.Wrap(err, "run migrations")
	}
	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return errors.Wrap(err, "get user_version")
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return errors.Wrap(err, "set user_version")
	}
	return nil
}

func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_runs_locked_circuit
		ON runs(locked_circuit)
	`)
	if err != nil {
		return errors.Wrap(err, "migrate to v1")
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *SQLite) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return errors.Wrapf(err, "query %s", name)
	}
	if value != expected {
		return errors.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
