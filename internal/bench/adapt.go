package bench

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"

	"github.com/roach88/probesweep/internal/fsutil"
)

// ErrArityMismatch is returned when a circuit has fewer outputs than the
// names it is asked to expose.
var ErrArityMismatch = errors.New("output arity mismatch")

// RenameInterface copies the circuit at src to dst, renaming its declared
// outputs, in file order, to desired. Every whole-token occurrence of a
// renamed output is substituted; identifiers that merely share a prefix or
// suffix are left alone.
//
// Renaming is positional. When src declares more outputs than desired names,
// only the first len(desired) outputs are renamed. When it declares fewer,
// ErrArityMismatch is returned and dst is not written.
//
// dst may equal src, in which case the file is rewritten in place.
func RenameInterface(src string, desired []string, dst string) error {
	content, err := os.ReadFile(src)
	if err != nil {
		return errors.Wrap(err, "rename interface")
	}

	d, err := Parse(bytes.NewReader(content))
	if err != nil {
		return errors.Wrapf(err, "rename interface %s", src)
	}
	if len(desired) > len(d.Outputs) {
		return errors.Wrapf(ErrArityMismatch,
			"rename interface %s: %d outputs, %d names requested", src, len(d.Outputs), len(desired))
	}

	renames := make(map[string]string, len(desired))
	for i, name := range desired {
		renames[d.Outputs[i]] = name
	}

	lines := strings.SplitAfter(string(content), "\n")
	var buf bytes.Buffer
	buf.Grow(len(content))
	for _, line := range lines {
		buf.WriteString(substituteTokens(line, renames))
	}

	if err := fsutil.WriteFileAtomic(dst, buf.Bytes(), 0o644); err != nil {
		return errors.Wrapf(err, "rename interface %s", src)
	}
	return nil
}

// isSeparator reports whether r delimits identifiers in a .bench line.
func isSeparator(r byte) bool {
	switch r {
	case ' ', '\t', '\r', '\n', '(', ')', ',', '=':
		return true
	}
	return false
}

// substituteTokens replaces each whole identifier found in renames. Each
// token is looked up once, so a rename target is never renamed again.
func substituteTokens(line string, renames map[string]string) string {
	if len(renames) == 0 {
		return line
	}
	var b strings.Builder
	b.Grow(len(line))
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		tok := line[start:end]
		if repl, ok := renames[tok]; ok {
			tok = repl
		}
		b.WriteString(tok)
		start = -1
	}
	for i := 0; i < len(line); i++ {
		if isSeparator(line[i]) {
			flush(i)
			b.WriteByte(line[i])
			continue
		}
		if start < 0 {
			start = i
		}
	}
	flush(len(line))
	return b.String()
}

// Adapter synthesizes widened circuit variants into a cache directory.
type Adapter struct {
	// CacheDir is where duplicated variants are written. When empty, a
	// "modified" directory next to the source file's parent directory is used.
	CacheDir string
}

// DuplicatedPath returns the cache path DuplicateOutputs uses for
// (src, factor). The name carries a short hash of the source's absolute
// path so equally named circuits from different directories never share
// a variant.
func (a *Adapter) DuplicatedPath(src string, factor int) string {
	dir := a.CacheDir
	if dir == "" {
		dir = filepath.Join(filepath.Dir(filepath.Dir(src)), "modified")
	}
	stem := strings.TrimSuffix(filepath.Base(src), ".bench")
	return filepath.Join(dir, fmt.Sprintf("modified_%dx_%s_%s.bench", factor, stem, sourceTag(src)))
}

// sourceTag is 8 hex digits identifying the source path.
func sourceTag(src string) string {
	abs, err := filepath.Abs(src)
	if err != nil {
		abs = filepath.Clean(src)
	}
	return fmt.Sprintf("%08x", uint32(xxhash.Sum64String(abs)))
}

// DuplicateOutputs writes a variant of src in which every output o gains
// factor extra outputs oM1..oM<factor>, each a double inversion of o.
// The original lines are copied unchanged. An existing variant at the cache
// path is reused. Returns the variant's path.
func (a *Adapter) DuplicateOutputs(src string, factor int) (string, error) {
	if factor < 1 {
		return "", errors.Errorf("duplicate outputs %s: factor must be >= 1, got %d", src, factor)
	}

	dst := a.DuplicatedPath(src, factor)
	if fsutil.Exists(dst) {
		return dst, nil
	}

	content, err := os.ReadFile(src)
	if err != nil {
		return "", errors.Wrap(err, "duplicate outputs")
	}
	d, err := Parse(bytes.NewReader(content))
	if err != nil {
		return "", errors.Wrapf(err, "duplicate outputs %s", src)
	}

	var buf bytes.Buffer
	buf.Write(content)
	if len(content) > 0 && content[len(content)-1] != '\n' {
		buf.WriteByte('\n')
	}
	for _, out := range d.Outputs {
		for i := 1; i <= factor; i++ {
			dup := DuplicateName(out, i)
			fmt.Fprintf(&buf, "OUTPUT(%s)\n", dup)
			fmt.Fprintf(&buf, "%s_not = NOT(%s)\n", dup, out)
			fmt.Fprintf(&buf, "%s = NOT(%s_not)\n", dup, dup)
		}
	}

	if err := fsutil.WriteFileAtomic(dst, buf.Bytes(), 0o644); err != nil {
		return "", errors.Wrapf(err, "duplicate outputs %s", src)
	}
	return dst, nil
}

// DuplicateName is the name of the i-th duplicate of output.
func DuplicateName(output string, i int) string {
	return fmt.Sprintf("%sM%d", output, i)
}

// DuplicationFactor returns ceil(required/available), the number of copies
// per output needed to reach required outputs. Returns 0 when available
// already suffices or there is nothing to duplicate.
func DuplicationFactor(required, available int) int {
	if available <= 0 || available >= required {
		return 0
	}
	return (required + available - 1) / available
}
