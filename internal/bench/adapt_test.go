package bench

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const priorBench = `INPUT(x0)
OUTPUT(a)
OUTPUT(b)
ab = AND(x0, x0)
a = NOT(ab)
b = BUFF(a)
`

func TestRenameInterface_WholeTokenOnly(t *testing.T) {
	dir := t.TempDir()
	src := writeBench(t, dir, "prior.bench", priorBench)
	dst := filepath.Join(dir, "renamed.bench")

	require.NoError(t, RenameInterface(src, []string{"x", "y"}, dst))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	want := `INPUT(x0)
OUTPUT(x)
OUTPUT(y)
ab = AND(x0, x0)
x = NOT(ab)
y = BUFF(x)
`
	assert.Equal(t, want, string(got))

	// Source untouched.
	orig, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, priorBench, string(orig))
}

func TestRenameInterface_NoChainedRenames(t *testing.T) {
	dir := t.TempDir()
	src := writeBench(t, dir, "p.bench", "OUTPUT(a)\nOUTPUT(b)\nb = NOT(a)\n")
	dst := filepath.Join(dir, "out.bench")

	// a->b and b->c must be applied simultaneously.
	require.NoError(t, RenameInterface(src, []string{"b", "c"}, dst))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "OUTPUT(b)\nOUTPUT(c)\nc = NOT(b)\n", string(got))
}

func TestRenameInterface_FewerNamesRenamesPrefix(t *testing.T) {
	dir := t.TempDir()
	src := writeBench(t, dir, "prior.bench", priorBench)
	dst := filepath.Join(dir, "renamed.bench")

	require.NoError(t, RenameInterface(src, []string{"G1"}, dst))

	d, err := Read(dst)
	require.NoError(t, err)
	assert.Equal(t, []string{"G1", "b"}, d.Outputs)
}

func TestRenameInterface_TooManyNames(t *testing.T) {
	dir := t.TempDir()
	src := writeBench(t, dir, "prior.bench", priorBench)
	dst := filepath.Join(dir, "renamed.bench")

	err := RenameInterface(src, []string{"p", "q", "r"}, dst)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrArityMismatch)
	_, statErr := os.Stat(dst)
	assert.True(t, os.IsNotExist(statErr), "nothing should be written on mismatch")
}

func TestRenameInterface_InPlace(t *testing.T) {
	dir := t.TempDir()
	src := writeBench(t, dir, "prior.bench", priorBench)

	require.NoError(t, RenameInterface(src, []string{"m", "n"}, src))

	d, err := Read(src)
	require.NoError(t, err)
	assert.Equal(t, []string{"m", "n"}, d.Outputs)
}

func TestDuplicateOutputs_CountAndOriginalsPreserved(t *testing.T) {
	dir := t.TempDir()
	src := writeBench(t, dir, filepath.Join("inputs", "b01.bench"), priorBench)
	a := &Adapter{}

	for _, factor := range []int{1, 2, 3} {
		path, err := a.DuplicateOutputs(src, factor)
		require.NoError(t, err)

		d, err := Read(path)
		require.NoError(t, err)
		assert.Len(t, d.Outputs, 2*(factor+1), "factor %d", factor)
		assert.Equal(t, []string{"a", "b"}, d.Outputs[:2])
		assert.Equal(t, DuplicateName("a", 1), d.Outputs[2])
	}
}

func TestDuplicateOutputs_DoubleInversion(t *testing.T) {
	dir := t.TempDir()
	src := writeBench(t, dir, filepath.Join("inputs", "b03.bench"), "INPUT(i)\nOUTPUT(o)\no = NOT(i)")
	a := &Adapter{}

	path, err := a.DuplicateOutputs(src, 1)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "modified"), filepath.Dir(path))
	assert.Regexp(t, `^modified_1x_b03_[0-9a-f]{8}\.bench$`, filepath.Base(path))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	want := "INPUT(i)\nOUTPUT(o)\no = NOT(i)\n" +
		"OUTPUT(oM1)\noM1_not = NOT(o)\noM1 = NOT(oM1_not)\n"
	assert.Equal(t, want, string(got))
}

func TestDuplicateOutputs_CacheDirAndReuse(t *testing.T) {
	dir := t.TempDir()
	src := writeBench(t, dir, "b04.bench", priorBench)
	cache := filepath.Join(dir, "cache")
	a := &Adapter{CacheDir: cache}

	first, err := a.DuplicateOutputs(src, 2)
	require.NoError(t, err)
	assert.Equal(t, a.DuplicatedPath(src, 2), first)
	assert.Equal(t, cache, filepath.Dir(first))

	// Mark the cached file; a second call must reuse it rather than rewrite.
	require.NoError(t, os.WriteFile(first, []byte("OUTPUT(cached)\n"), 0o644))
	second, err := a.DuplicateOutputs(src, 2)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	got, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, "OUTPUT(cached)\n", string(got))
}

func TestDuplicateOutputs_SameNameDifferentSources(t *testing.T) {
	dir := t.TempDir()
	alpha := writeBench(t, dir, filepath.Join("setA", "b01.bench"), "INPUT(i)\nOUTPUT(alpha)\nalpha = NOT(i)\n")
	beta := writeBench(t, dir, filepath.Join("setB", "b01.bench"), "INPUT(i)\nOUTPUT(beta)\nbeta = NOT(i)\n")
	a := &Adapter{}

	first, err := a.DuplicateOutputs(alpha, 3)
	require.NoError(t, err)
	second, err := a.DuplicateOutputs(beta, 3)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
	assert.Equal(t, filepath.Dir(first), filepath.Dir(second))

	d, err := Read(first)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "alphaM1", "alphaM2", "alphaM3"}, d.Outputs)
	d, err = Read(second)
	require.NoError(t, err)
	assert.Equal(t, []string{"beta", "betaM1", "betaM2", "betaM3"}, d.Outputs)
}

func TestDuplicatedPath_Stable(t *testing.T) {
	a := &Adapter{CacheDir: "cache"}
	src := filepath.Join("corpus", "inputs", "b01.bench")
	assert.Equal(t, a.DuplicatedPath(src, 2), a.DuplicatedPath(src, 2))
	assert.NotEqual(t, a.DuplicatedPath(src, 2), a.DuplicatedPath(src, 3))
	assert.NotEqual(t, a.DuplicatedPath(src, 2), a.DuplicatedPath(filepath.Join("corpus", "other", "b01.bench"), 2))
}

func TestDuplicateOutputs_InvalidFactor(t *testing.T) {
	src := writeBench(t, t.TempDir(), "b.bench", priorBench)
	_, err := (&Adapter{}).DuplicateOutputs(src, 0)
	require.Error(t, err)
}

func TestDuplicationFactor(t *testing.T) {
	tests := []struct {
		required, available, want int
	}{
		{3, 1, 3},
		{3, 2, 2},
		{4, 2, 2},
		{3, 3, 0},
		{2, 5, 0},
		{3, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DuplicationFactor(tt.required, tt.available),
			"DuplicationFactor(%d, %d)", tt.required, tt.available)
	}
}
