// Package testutil provides fixtures shared by package tests: a scriptable
// stand-in for the attack engine, circuit builders and deterministic key
// generators.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// FakeEngine describes what a fake engine binary does when invoked as
// "<binary> -f <script>".
type FakeEngine struct {
	Stdout   string
	Stderr   string
	ExitCode int
	// SleepSeconds delays the engine before it prints anything.
	SleepSeconds int
}

// EngineFiles locates a fake engine and what it captured.
type EngineFiles struct {
	Binary string
	// Script is a copy of the last command script the engine received.
	Script string
	// Prior is a copy of the prior circuit named by the script's -s flag.
	Prior string
}

// WriteFakeEngine writes an executable shell script that behaves as e
// describes into a fresh temp directory.
func WriteFakeEngine(t testing.TB, e FakeEngine) EngineFiles {
	t.Helper()
	dir := t.TempDir()
	files := EngineFiles{
		Binary: filepath.Join(dir, "abc"),
		Script: filepath.Join(dir, "captured.abc"),
		Prior:  filepath.Join(dir, "prior.bench"),
	}

	stdout := filepath.Join(dir, "stdout.txt")
	stderr := filepath.Join(dir, "stderr.txt")
	writeFile(t, stdout, e.Stdout, 0o644)
	writeFile(t, stderr, e.Stderr, 0o644)

	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	fmt.Fprintf(&b, "cp \"$2\" %q\n", files.Script)
	b.WriteString("prior=$(sed -n 's/.* -s \\([^ ]*\\).*/\\1/p' \"$2\")\n")
	fmt.Fprintf(&b, "if [ -n \"$prior\" ]; then cp \"$prior\" %q; fi\n", files.Prior)
	if e.SleepSeconds > 0 {
		fmt.Fprintf(&b, "sleep %d\n", e.SleepSeconds)
	}
	fmt.Fprintf(&b, "cat %q\n", stdout)
	fmt.Fprintf(&b, "cat %q >&2\n", stderr)
	fmt.Fprintf(&b, "exit %d\n", e.ExitCode)

	writeFile(t, files.Binary, b.String(), 0o755)
	return files
}

func writeFile(t testing.TB, path, content string, perm os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
