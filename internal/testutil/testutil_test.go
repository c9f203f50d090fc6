package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountingKeys(t *testing.T) {
	var k CountingKeys
	assert.Equal(t, "001", k.Generate(3))
	assert.Equal(t, "010", k.Generate(3))
	assert.Equal(t, "1", k.Generate(1))
	assert.Equal(t, "", k.Generate(0))
	assert.EqualValues(t, 4, k.Issued())
}

func TestCountingKeys_Concurrent(t *testing.T) {
	var k CountingKeys
	var wg sync.WaitGroup
	seen := sync.Map{}
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, dup := seen.LoadOrStore(k.Generate(16), true)
			assert.False(t, dup)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 100, k.Issued())
}

func TestBench(t *testing.T) {
	got := Bench(2, 1, 1)
	assert.Equal(t, "INPUT(G0)\nINPUT(G1)\nINPUT(keyinput0)\nOUTPUT(O0)\nO0 = NOT(G0)\n", got)
}

func TestWriteFakeEngine(t *testing.T) {
	files := WriteFakeEngine(t, FakeEngine{Stdout: "hello\n", Stderr: "oops\n", ExitCode: 3})

	prior := filepath.Join(t.TempDir(), "p.bench")
	require.NoError(t, os.WriteFile(prior, []byte("OUTPUT(x)\n"), 0o644))
	script := filepath.Join(t.TempDir(), "run.abc")
	require.NoError(t, os.WriteFile(script, []byte("read_bench c.bench\nclap -s "+prior+" -u 2\n"), 0o644))

	cmd := exec.Command(files.Binary, "-f", script)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.ExitCode())
	assert.Equal(t, "hello\n", stdout.String())
	assert.Equal(t, "oops\n", stderr.String())

	captured, err := os.ReadFile(files.Script)
	require.NoError(t, err)
	assert.Contains(t, string(captured), "clap -s "+prior)

	copied, err := os.ReadFile(files.Prior)
	require.NoError(t, err)
	assert.Equal(t, "OUTPUT(x)\n", string(copied))
}
