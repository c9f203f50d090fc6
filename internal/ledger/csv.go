package ledger

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/juju/fslock"
	"github.com/pkg/errors"
)

// CSV is a ledger backed by a comma-separated file.
type CSV struct {
	path string
	mu   sync.Mutex
	lock *fslock.Lock
}

var _ Ledger = (*CSV)(nil)

// NewCSV returns a CSV ledger at path. Nothing is created until the first
// Append.
func NewCSV(path string) *CSV {
	return &CSV{
		path: path,
		lock: fslock.New(path + ".lock"),
	}
}

// Path is the ledger file.
func (c *CSV) Path() string {
	return c.path
}

// Append writes row, preceded by the header if the file is absent or empty.
func (c *CSV) Append(ctx context.Context, row Row) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "append ledger row")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if dir := filepath.Dir(c.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "append ledger row: create directory")
		}
	}

	if err := c.lock.Lock(); err != nil {
		return errors.Wrap(err, "append ledger row: lock")
	}
	defer c.lock.Unlock()

	f, err := os.OpenFile(c.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "append ledger row: open")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errors.Wrap(err, "append ledger row: stat")
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			return errors.Wrap(err, "append ledger row: header")
		}
	}
	if err := w.Write(encodeRecord(row)); err != nil {
		return errors.Wrap(err, "append ledger row: encode")
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(err, "append ledger row: encode")
	}

	// One write per row keeps rows whole even if the process dies mid-sweep.
	if _, err := f.Write(buf.Bytes()); err != nil {
		return errors.Wrap(err, "append ledger row: write")
	}
	if err := f.Sync(); err != nil {
		return errors.Wrap(err, "append ledger row: sync")
	}
	return nil
}

// Rows reads every data row. A missing file has no rows.
func (c *CSV) Rows(ctx context.Context) ([]Row, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.Open(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read ledger")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(Header)

	var rows []Row
	first := true
	for {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "read ledger")
		}
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read ledger")
		}
		if first {
			first = false
			if rec[0] == Header[0] {
				continue
			}
		}
		row, err := decodeRecord(rec)
		if err != nil {
			line, _ := r.FieldPos(0)
			return nil, errors.Wrapf(err, "read ledger line %d", line)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Close is a no-op; every Append opens and closes the file.
func (c *CSV) Close() error {
	return nil
}

func encodeRecord(row Row) []string {
	return []string{
		row.LockedCircuit,
		row.PriorCircuit,
		formatOptional(row.UnrollFactor),
		formatOptional(row.ProbeResolution),
		strconv.FormatFloat(row.ExecutionTime.Seconds(), 'f', -1, 64),
		row.FullKeyLeakage,
		strconv.Itoa(row.PartialKeyLeakage),
		row.KeySource,
		row.Key,
	}
}

func decodeRecord(rec []string) (Row, error) {
	row := Row{
		LockedCircuit:  rec[0],
		PriorCircuit:   rec[1],
		FullKeyLeakage: rec[5],
		KeySource:      rec[7],
		Key:            rec[8],
	}
	var err error
	if row.UnrollFactor, err = parseOptional(rec[2]); err != nil {
		return Row{}, errors.Wrap(err, "unroll factor")
	}
	if row.ProbeResolution, err = parseOptional(rec[3]); err != nil {
		return Row{}, errors.Wrap(err, "probe resolution")
	}
	secs, err := strconv.ParseFloat(rec[4], 64)
	if err != nil {
		return Row{}, errors.Wrap(err, "execution time")
	}
	row.ExecutionTime = time.Duration(secs * float64(time.Second))
	if rec[6] != "" {
		if row.PartialKeyLeakage, err = strconv.Atoi(rec[6]); err != nil {
			return Row{}, errors.Wrap(err, "partial key leakage")
		}
	}
	return row, nil
}

func formatOptional(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func parseOptional(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
