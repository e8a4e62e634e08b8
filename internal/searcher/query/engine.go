// Package query resolves multi-term AND queries against a posting store.
package query

import (
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/flatindex/internal/indexer/postings"
	"github.com/Adithya-Monish-Kumar-K/flatindex/pkg/metrics"
)

type Engine struct {
	store   postings.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(store postings.Store, m *metrics.Metrics) *Engine {
	return &Engine{
		store:   store,
		metrics: m,
		logger:  slog.Default().With("component", "query-engine"),
	}
}

// Search returns the documents whose postings contain every term. No terms
// means no results. Terms need not be lower-cased; the store normalizes keys.
func (e *Engine) Search(terms []string) (postings.Set, error) {
	if len(terms) == 0 {
		return postings.NewSet(), nil
	}
	result, err := e.lookup(terms[0])
	if err != nil {
		return nil, err
	}
	for _, term := range terms[1:] {
		if len(result) == 0 {
			break
		}
		values, err := e.lookup(term)
		if err != nil {
			return nil, err
		}
		result = result.Intersect(values)
	}
	e.logger.Debug("query executed", "terms", terms, "results", len(result))
	return result, nil
}

func (e *Engine) lookup(term string) (postings.Set, error) {
	values, err := e.store.Get(term)
	if err != nil {
		e.observe("error")
		return nil, fmt.Errorf("searching term %q: %w", term, err)
	}
	if len(values) == 0 {
		e.observe("miss")
	} else {
		e.observe("hit")
	}
	return values, nil
}

func (e *Engine) observe(result string) {
	if e.metrics != nil {
		e.metrics.PostingLookupsTotal.WithLabelValues(result).Inc()
	}
}
