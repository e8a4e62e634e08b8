package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/flatindex/pkg/errors"
)

func run(t *testing.T, args ...string) (stdout string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err = newApp(&out, &errOut).RunContext(context.Background(), append([]string{"flatindex"}, args...))
	return out.String(), err
}

func writeDocs(t *testing.T, docs map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range docs {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	return dir
}

func TestIndexThenSearch(t *testing.T) {
	for _, backend := range []string{"file", "badger"} {
		t.Run(backend, func(t *testing.T) {
			src := writeDocs(t, map[string]string{
				"f1.txt": "The quick Fox",
				"f2.txt": "fox jumps",
			})
			store := filepath.Join(t.TempDir(), "store")

			out, err := run(t, "--backend", backend, "index", store, src)
			require.NoError(t, err)
			assert.Equal(t, "keys: 4\n", out)

			out, err = run(t, "--backend", backend, "search", store, "fox")
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(src, "f1.txt")+"\n"+filepath.Join(src, "f2.txt")+"\n", out)

			out, err = run(t, "--backend", backend, "search", store, "FOX", "jumps")
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(src, "f2.txt")+"\n", out)

			out, err = run(t, "--backend", backend, "search", store, "fox", "cat")
			require.NoError(t, err)
			assert.Empty(t, out)

			out, err = run(t, "--backend", backend, "stats", store)
			require.NoError(t, err)
			assert.Equal(t, "keys: 4\n", out)
		})
	}
}

func TestIndexPrintsProgress(t *testing.T) {
	docs := make(map[string]string)
	for i := 0; i < 5; i++ {
		docs[fmt.Sprintf("d%d.txt", i)] = "word"
	}
	src := writeDocs(t, docs)
	cfgPath := filepath.Join(t.TempDir(), "flatindex.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("indexer:\n  progressEvery: 2\n"), 0o644))

	out, err := run(t, "--config", cfgPath, "index", filepath.Join(t.TempDir(), "store"), src)
	require.NoError(t, err)
	assert.Equal(t, "progress = 2\nprogress = 4\nkeys: 1\n", out)
}

func TestSearchMissingStoreIsEmpty(t *testing.T) {
	out, err := run(t, "search", filepath.Join(t.TempDir(), "fresh"), "anything")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestNoCommandPrintsUsage(t *testing.T) {
	out, err := run(t)
	require.NoError(t, err)
	assert.Contains(t, out, "USAGE:")
	assert.Contains(t, out, "index")
	assert.Contains(t, out, "search")
}

func TestUnknownCommand(t *testing.T) {
	out, err := run(t, "frobnicate", "x")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(out, "Usage: unknown command: frobnicate\n"))
	assert.Contains(t, out, "USAGE:")
}

func TestMissingArguments(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"index without sources", []string{"index", "store"}},
		{"index without anything", []string{"index"}},
		{"search without store", []string{"search"}},
		{"stats without store", []string{"stats"}},
		{"serve with extra args", []string{"serve", "a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			require.Error(t, err)
			assert.True(t, strings.HasPrefix(out, "Usage: flatindex "+tt.args[0]), out)
		})
	}
}

func TestUnknownBackend(t *testing.T) {
	_, err := run(t, "--backend", "tape", "stats", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tape")
}

func TestIndexWritesMetricsTextfile(t *testing.T) {
	src := writeDocs(t, map[string]string{"a.txt": "alpha beta"})
	textfile := filepath.Join(t.TempDir(), "flatindex.prom")
	t.Setenv("FLATINDEX_METRICS_TEXTFILE", textfile)

	_, err := run(t, "index", filepath.Join(t.TempDir(), "store"), src)
	require.NoError(t, err)

	data, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "flatindex_store_keys 2")
}

func TestMixedBackendsAreRefused(t *testing.T) {
	src := writeDocs(t, map[string]string{"a.txt": "quick brown fox"})

	fileStore := filepath.Join(t.TempDir(), "store")
	out, err := run(t, "index", fileStore, src)
	require.NoError(t, err)
	assert.Equal(t, "keys: 3\n", out)

	_, err = run(t, "--backend", "badger", "search", fileStore, "fox")
	assert.ErrorIs(t, err, apperrors.ErrStorageInit)

	out, err = run(t, "stats", fileStore)
	require.NoError(t, err)
	assert.Equal(t, "keys: 3\n", out)

	badgerStore := filepath.Join(t.TempDir(), "kv")
	_, err = run(t, "--backend", "badger", "index", badgerStore, src)
	require.NoError(t, err)

	_, err = run(t, "search", badgerStore, "fox")
	assert.ErrorIs(t, err, apperrors.ErrStorageInit)

	out, err = run(t, "--backend", "badger", "search", badgerStore, "fox")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(src, "a.txt")+"\n", out)
}
