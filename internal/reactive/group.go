package reactive

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RefetchAll refetches queries concurrently and returns the first error.
// A failing query does not cancel the others.
func RefetchAll(ctx context.Context, queries ...*Query) error {
	var g errgroup.Group
	for _, q := range queries {
		g.Go(func() error {
			_, err := q.Refetch(ctx)
			return err
		})
	}
	return g.Wait()
}

// CancelAll cancels every running query and returns how many were running.
func CancelAll(queries ...*Query) int {
	n := 0
	for _, q := range queries {
		if q.Cancel() {
			n++
		}
	}
	return n
}
