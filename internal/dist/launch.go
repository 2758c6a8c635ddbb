package dist

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Launch runs fn once per rank of world, each on its own goroutine. The first
// error cancels the context seen by every other rank and is returned.
func Launch(ctx context.Context, world *World, fn func(ctx context.Context, comm *Comm) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for rank := 0; rank < world.Grid().Size(); rank++ {
		comm := world.Comm(rank)
		g.Go(func() error {
			if err := fn(ctx, comm); err != nil {
				return errors.Wrapf(err, "rank %d", comm.Rank())
			}
			return nil
		})
	}
	return g.Wait()
}

// Run creates a world for size ranks on the most square grid and launches fn.
func Run(ctx context.Context, size int, fn func(ctx context.Context, comm *Comm) error) error {
	grid, err := NewGrid(size)
	if err != nil {
		return err
	}
	return Launch(ctx, NewWorld(grid), fn)
}
