package indexer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/flatindex/internal/indexer/postings"
	"github.com/Adithya-Monish-Kumar-K/flatindex/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/flatindex/internal/indexer/walker"
	apperrors "github.com/Adithya-Monish-Kumar-K/flatindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/flatindex/pkg/metrics"
)

const DefaultProgressEvery = 100

// Summary describes one index run.
type Summary struct {
	Roots         []string  `json:"roots"`
	Documents     int       `json:"documents"`
	Skipped       int       `json:"skipped"`
	Postings      int       `json:"postings"`
	WriteWarnings int       `json:"write_warnings"`
	Keys          int       `json:"keys"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}

// Builder turns visited documents into postings. It is not safe for
// concurrent use; documents are processed one at a time.
type Builder struct {
	store         postings.Store
	progress      io.Writer
	progressEvery int
	metrics       *metrics.Metrics
	logger        *slog.Logger
	summary       Summary
}

type Option func(*Builder)

// WithProgress writes "progress = N" lines to w every n documents.
func WithProgress(w io.Writer, n int) Option {
	return func(b *Builder) {
		b.progress = w
		if n > 0 {
			b.progressEvery = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Builder) {
		b.metrics = m
	}
}

func NewBuilder(store postings.Store, opts ...Option) *Builder {
	b := &Builder{
		store:         store,
		progress:      io.Discard,
		progressEvery: DefaultProgressEvery,
		logger:        slog.Default().With("component", "index-builder"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

var _ walker.Visitor = (*Builder)(nil)

// Visit indexes one document. Read failures skip the document; posting
// failures are logged and skipped. Neither stops the run.
func (b *Builder) Visit(seq int, path string) {
	if seq%b.progressEvery == 0 {
		fmt.Fprintf(b.progress, "progress = %d\n", seq)
	}
	b.summary.Documents++
	if b.metrics != nil {
		b.metrics.DocumentsVisitedTotal.Inc()
	}

	text, err := readDocument(path)
	if err != nil {
		b.summary.Skipped++
		if b.metrics != nil {
			b.metrics.DocumentsSkippedTotal.Inc()
		}
		b.logger.Debug("document skipped", "path", path, "error", err)
		return
	}

	added := 0
	for token := range tokenizer.Tokenize(text) {
		if token == "" {
			continue
		}
		if err := b.store.Add(token, path); err != nil {
			b.summary.WriteWarnings++
			if b.metrics != nil {
				b.metrics.PostingWriteFailures.Inc()
			}
			b.logger.Warn("could not add posting", "term", token, "path", path, "error", err)
			continue
		}
		added++
	}
	b.summary.Postings += added
	if b.metrics != nil {
		b.metrics.PostingsAddedTotal.Add(float64(added))
	}
	b.logger.Debug("document indexed", "seq", seq, "path", path, "postings", added)
}

// Build walks roots, indexes every regular file and returns the run summary
// including the store's key count. Only cancellation and a failure to
// summarize the store are returned as errors.
func (b *Builder) Build(ctx context.Context, roots []string) (Summary, error) {
	b.summary = Summary{Roots: roots, StartedAt: time.Now().UTC()}
	b.logger.Info("index run started", "roots", roots)

	if _, err := walker.Walk(ctx, roots, b); err != nil {
		return b.summary, fmt.Errorf("walking sources: %w", err)
	}

	keys, err := b.store.Summarize()
	if err != nil {
		return b.summary, fmt.Errorf("summarizing store: %w", err)
	}
	b.summary.Keys = keys
	b.summary.FinishedAt = time.Now().UTC()

	if b.metrics != nil {
		b.metrics.StoreKeys.Set(float64(keys))
		b.metrics.IndexRunSeconds.Set(b.summary.FinishedAt.Sub(b.summary.StartedAt).Seconds())
	}
	b.logger.Info("index run complete",
		"documents", b.summary.Documents,
		"skipped", b.summary.Skipped,
		"postings", b.summary.Postings,
		"write_warnings", b.summary.WriteWarnings,
		"keys", keys,
	)
	return b.summary, nil
}

// Summary returns the counters accumulated so far.
func (b *Builder) Summary() Summary {
	return b.summary
}

// readDocument returns the file's content as text. Content that is not valid
// UTF-8 is treated as empty.
func readDocument(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperrors.ErrDocumentRead, err)
	}
	if !utf8.Valid(data) {
		return "", nil
	}
	return string(data), nil
}
