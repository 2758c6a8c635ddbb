// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package layers

import (
	"context"
	"log/slog"

	"github.com/born-ml/born-dist/internal/dist"
	"github.com/born-ml/born-dist/internal/model"
	"github.com/born-ml/born-dist/internal/optim"
	"github.com/born-ml/born-dist/internal/tensor"
)

// Grid is a 2-D process grid.
type Grid = dist.Grid

// World connects the ranks of one grid.
type World = dist.World

// Comm is one rank's handle on a World.
type Comm = dist.Comm

// DistMatrix is a matrix distributed over a grid.
type DistMatrix[T tensor.Float] = dist.DistMatrix[T]

// NewGrid returns the most square grid of size ranks.
func NewGrid(size int) (*Grid, error) { return dist.NewGrid(size) }

// NewGridWithHeight returns a grid with the given number of rows.
func NewGridWithHeight(size, height int) (*Grid, error) { return dist.NewGridWithHeight(size, height) }

// NewWorld creates the communicators of grid.
func NewWorld(grid *Grid) *World { return dist.NewWorld(grid) }

// Launch runs fn once per rank of world; the first error cancels the rest.
func Launch(ctx context.Context, world *World, fn func(ctx context.Context, comm *Comm) error) error {
	return dist.Launch(ctx, world, fn)
}

// Run creates a world of size ranks and launches fn.
func Run(ctx context.Context, size int, fn func(ctx context.Context, comm *Comm) error) error {
	return dist.Run(ctx, size, fn)
}

// WithOptimizer sets the optimizer factory of a model.
func WithOptimizer[T tensor.Float](f optim.Factory[T]) ModelOption[T] { return model.WithOptimizer(f) }

// WithLogger sets the logger of a model.
func WithLogger[T tensor.Float](l *slog.Logger) ModelOption[T] { return model.WithLogger[T](l) }
