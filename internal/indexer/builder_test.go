package indexer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/flatindex/internal/indexer/postings"
	apperrors "github.com/Adithya-Monish-Kumar-K/flatindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/flatindex/pkg/metrics"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func openStore(t *testing.T) *postings.FileStore {
	t.Helper()
	s, err := postings.Open(filepath.Join(t.TempDir(), "store"))
	require.NoError(t, err)
	return s
}

// failingStore rejects adds for the terms in fail and delegates the rest.
type failingStore struct {
	postings.Store
	fail map[string]bool
}

func (f *failingStore) Add(term, value string) error {
	if f.fail[term] {
		return fmt.Errorf("could not append to %q: %w", term, apperrors.ErrStorageWrite)
	}
	return f.Store.Add(term, value)
}

type brokenSummaryStore struct {
	postings.Store
}

func (brokenSummaryStore) Summarize() (int, error) {
	return 0, fmt.Errorf("listing: %w", apperrors.ErrStorageRead)
}

func TestBuildIndexesEveryToken(t *testing.T) {
	src := t.TempDir()
	f1 := filepath.Join(src, "f1.txt")
	f2 := filepath.Join(src, "f2.txt")
	writeFile(t, f1, "The quick Fox")
	writeFile(t, f2, "fox jumps")

	store := openStore(t)
	summary, err := NewBuilder(store).Build(context.Background(), []string{src})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Documents)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 5, summary.Postings)
	assert.Equal(t, 4, summary.Keys, "the, quick, fox, jumps")
	assert.False(t, summary.FinishedAt.Before(summary.StartedAt))

	fox, err := store.Get("fox")
	require.NoError(t, err)
	assert.Equal(t, []string{f1, f2}, fox.Sorted())
}

func TestBuildKeyCountIgnoresRepetition(t *testing.T) {
	src := t.TempDir()
	for i := 0; i < 5; i++ {
		writeFile(t, filepath.Join(src, fmt.Sprintf("doc%d.txt", i)), "Alpha alpha ALPHA beta, Beta gamma")
	}
	summary, err := NewBuilder(openStore(t)).Build(context.Background(), []string{src})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Keys)
}

func TestBuildReportsProgress(t *testing.T) {
	src := t.TempDir()
	for i := 0; i < 7; i++ {
		writeFile(t, filepath.Join(src, fmt.Sprintf("doc%d.txt", i)), "word")
	}

	var out bytes.Buffer
	_, err := NewBuilder(openStore(t), WithProgress(&out, 3)).Build(context.Background(), []string{src})
	require.NoError(t, err)
	assert.Equal(t, "progress = 3\nprogress = 6\n", out.String())
}

func TestVisitSkipsUnreadableDocument(t *testing.T) {
	store := openStore(t)
	b := NewBuilder(store)

	b.Visit(1, filepath.Join(t.TempDir(), "vanished.txt"))
	b.Visit(2, t.TempDir())

	assert.Equal(t, 2, b.Summary().Documents)
	assert.Equal(t, 2, b.Summary().Skipped)
	keys, err := store.Summarize()
	require.NoError(t, err)
	assert.Zero(t, keys)
}

func TestVisitTreatsInvalidTextAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob.bin")
	require.NoError(t, os.WriteFile(path, []byte{'o', 'k', ' ', 0xff, 0xfe}, 0o644))

	store := openStore(t)
	b := NewBuilder(store)
	b.Visit(1, path)

	assert.Equal(t, 0, b.Summary().Skipped)
	assert.Equal(t, 0, b.Summary().Postings)
	got, err := store.Get("ok")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestVisitContinuesAfterWriteFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	writeFile(t, path, "good bad fine")

	inner := openStore(t)
	m := metrics.New()
	b := NewBuilder(&failingStore{Store: inner, fail: map[string]bool{"bad": true}}, WithMetrics(m))
	b.Visit(1, path)

	assert.Equal(t, 1, b.Summary().WriteWarnings)
	assert.Equal(t, 2, b.Summary().Postings)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PostingWriteFailures))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PostingsAddedTotal))

	for _, term := range []string{"good", "fine"} {
		got, err := inner.Get(term)
		require.NoError(t, err)
		assert.True(t, got.Contains(path), term)
	}
}

func TestBuildFailsWhenSummaryFails(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"), "a")

	_, err := NewBuilder(brokenSummaryStore{Store: openStore(t)}).Build(context.Background(), []string{src})
	assert.ErrorIs(t, err, apperrors.ErrStorageRead)
}

func TestBuildHonoursCancellation(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"), "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewBuilder(openStore(t)).Build(ctx, []string{src})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestBuildRecordsMetrics(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"), "one two")
	writeFile(t, filepath.Join(src, "b.txt"), "two three")

	m := metrics.New()
	_, err := NewBuilder(openStore(t), WithMetrics(m)).Build(context.Background(), []string{src})
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DocumentsVisitedTotal))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.PostingsAddedTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.StoreKeys))
}

func BenchmarkVisit(b *testing.B) {
	src := b.TempDir()
	path := filepath.Join(src, "doc.txt")
	body := strings.Repeat("distributed search analytics platform indexing query processing ", 50)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		b.Fatal(err)
	}
	store, err := postings.Open(filepath.Join(b.TempDir(), "store"))
	if err != nil {
		b.Fatal(err)
	}
	builder := NewBuilder(store)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		builder.Visit(i+1, path)
	}
}
