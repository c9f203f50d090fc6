package ledger

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenSQLite_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpenSQLite_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	for i := 0; i < 3; i++ {
		s, err := OpenSQLite(path)
		if err != nil {
			t.Fatalf("OpenSQLite() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestOpenSQLite_InvalidPath(t *testing.T) {
	_, err := OpenSQLite("/nonexistent/dir/ledger.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestSQLite_Pragmas(t *testing.T) {
	s := createTestSQLite(t)
	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
}

func TestSQLite_AppendAndRows(t *testing.T) {
	s := createTestSQLite(t)
	ctx := context.Background()

	base := Row{
		LockedCircuit:  "c1908_SLL.bench",
		FullKeyLeakage: NoResults,
		KeySource:      "generated",
		Key:            "0011",
	}
	require.NoError(t, s.Append(ctx, base))
	require.NoError(t, s.Append(ctx, sampleRow(4)))

	rows, err := s.Rows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, base, rows[0])
	assert.Equal(t, sampleRow(4), rows[1])
}

func TestSQLite_ConcurrentAppends(t *testing.T) {
	s := createTestSQLite(t)
	ctx := context.Background()

	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Append(ctx, sampleRow(i)))
		}(i)
	}
	wg.Wait()

	rows, err := s.Rows(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, n)
}

func TestSQLite_RejectsNegativeLeakage(t *testing.T) {
	s := createTestSQLite(t)
	row := sampleRow(1)
	row.PartialKeyLeakage = -1
	assert.Error(t, s.Append(context.Background(), row))
}

func TestSQLite_CloseNilDB(t *testing.T) {
	s := &SQLite{db: nil}
	assert.NoError(t, s.Close())
}
