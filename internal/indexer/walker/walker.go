// Package walker enumerates the regular files under a set of root
// directories and hands each one, with a running sequence number, to a
// Visitor.
package walker

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
)

// Visitor is anything that can be handed a (sequence, path) pair.
type Visitor interface {
	Visit(seq int, path string)
}

// VisitorFunc adapts a plain function to Visitor.
type VisitorFunc func(seq int, path string)

func (f VisitorFunc) Visit(seq int, path string) { f(seq, path) }

// Walk visits every regular file under roots in filepath.WalkDir order.
// Symbolic links, directories and special files are not visited. Entries that
// cannot be read are skipped. Sequence numbers start at 1 and count visited
// files across all roots. Walk returns the number of files visited; it stops
// early only when ctx is cancelled.
func Walk(ctx context.Context, roots []string, v Visitor) (int, error) {
	logger := slog.Default().With("component", "walker")
	seq := 0
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				logger.Debug("skipping unreadable entry", "path", path, "error", err)
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			seq++
			v.Visit(seq, path)
			return nil
		})
		if err != nil {
			return seq, err
		}
	}
	return seq, nil
}
