package walker

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

type recorder struct {
	seqs  []int
	paths []string
}

func (r *recorder) Visit(seq int, path string) {
	r.seqs = append(r.seqs, seq)
	r.paths = append(r.paths, path)
}

func TestWalkVisitsRegularFilesOnly(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "a")
	writeFile(t, filepath.Join(root, "sub", "b.txt"), "b")
	writeFile(t, filepath.Join(root, "sub", "deeper", "c.md"), "c")
	require.NoError(t, os.Symlink(filepath.Join(root, "a.txt"), filepath.Join(root, "link.txt")))

	var rec recorder
	n, err := Walk(context.Background(), []string{root}, &rec)
	require.NoError(t, err)

	assert.Equal(t, 3, n)
	assert.Equal(t, []int{1, 2, 3}, rec.seqs)
	got := append([]string(nil), rec.paths...)
	sort.Strings(got)
	assert.Equal(t, []string{
		filepath.Join(root, "a.txt"),
		filepath.Join(root, "sub", "b.txt"),
		filepath.Join(root, "sub", "deeper", "c.md"),
	}, got)
}

func TestWalkNumbersAcrossRoots(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeFile(t, filepath.Join(first, "one.txt"), "1")
	writeFile(t, filepath.Join(second, "two.txt"), "2")
	writeFile(t, filepath.Join(second, "three.txt"), "3")

	var rec recorder
	n, err := Walk(context.Background(), []string{first, second}, &rec)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []int{1, 2, 3}, rec.seqs)
	assert.Equal(t, filepath.Join(first, "one.txt"), rec.paths[0])
}

func TestWalkSkipsMissingRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "x.txt"), "x")

	var rec recorder
	n, err := Walk(context.Background(), []string{filepath.Join(root, "missing"), root}, &rec)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWalkAcceptsFileRoot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "single.txt")
	writeFile(t, path, "solo")

	var rec recorder
	_, err := Walk(context.Background(), []string{path}, &rec)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, rec.paths)
}

func TestWalkStopsOnCancel(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	_, err := Walk(ctx, []string{root}, VisitorFunc(func(int, string) { calls++ }))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}
