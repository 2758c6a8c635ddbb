package dist

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/born-ml/born-dist/internal/tensor"
)

// World is the rendezvous state shared by all ranks of one grid.
type World struct {
	grid *Grid

	mu     sync.Mutex
	points map[string]*rendezvous
}

// NewWorld creates the shared state for a grid.
func NewWorld(grid *Grid) *World {
	return &World{
		grid:   grid,
		points: make(map[string]*rendezvous),
	}
}

// Grid returns the process grid.
func (w *World) Grid() *Grid { return w.grid }

// Comm returns the communicator of one rank.
func (w *World) Comm(rank int) *Comm {
	if rank < 0 || rank >= w.grid.Size() {
		panic(fmt.Sprintf("rank %d out of range for grid %s", rank, w.grid))
	}
	return &Comm{world: w, rank: rank}
}

func (w *World) point(key string, size int) *rendezvous {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.points[key]
	if !ok {
		p = &rendezvous{size: size, cur: newRound(size)}
		w.points[key] = p
	}
	return p
}

// Comm is one rank's handle on the world.
type Comm struct {
	world *World
	rank  int
}

// Rank returns this rank's index in column-major grid order.
func (c *Comm) Rank() int { return c.rank }

// Size returns the number of ranks in the world.
func (c *Comm) Size() int { return c.world.grid.Size() }

// Grid returns the process grid.
func (c *Comm) Grid() *Grid { return c.world.grid }

// IsRoot reports whether this is rank 0.
func (c *Comm) IsRoot() bool { return c.rank == 0 }

// WorldGroup returns the group of all ranks.
func (c *Comm) WorldGroup() *Group {
	return c.DistGroup(VC)
}

// DistGroup returns the group of ranks over which d distributes a dimension,
// ordered by their shift. For STAR the group holds only this rank.
func (c *Comm) DistGroup(d Dist) *Group {
	g := c.world.grid
	var key string
	switch d {
	case MC:
		key = fmt.Sprintf("mc/%d", g.Col(c.rank))
	case MR:
		key = fmt.Sprintf("mr/%d", g.Row(c.rank))
	case VC:
		key = "vc"
	case VR:
		key = "vr"
	default:
		key = fmt.Sprintf("self/%d", c.rank)
	}
	var members []int
	for r := 0; r < g.Size(); r++ {
		if d == STAR && r != c.rank {
			continue
		}
		if d == MC && g.Col(r) != g.Col(c.rank) {
			continue
		}
		if d == MR && g.Row(r) != g.Row(c.rank) {
			continue
		}
		members = append(members, r)
	}
	if d == VR || d == MR {
		sortByShift(g, d, members)
	}
	return c.group(key, members)
}

// RedundantGroup returns the ranks that hold the same local entries as this
// rank for a matrix distributed as d.
func (c *Comm) RedundantGroup(d DistData) *Group {
	g := c.world.grid
	cs, _ := g.shift(d.ColDist, c.rank)
	rs, _ := g.shift(d.RowDist, c.rank)
	var members []int
	for r := 0; r < g.Size(); r++ {
		ocs, _ := g.shift(d.ColDist, r)
		ors, _ := g.shift(d.RowDist, r)
		if ocs == cs && ors == rs {
			members = append(members, r)
		}
	}
	return c.group(fmt.Sprintf("red/%s/%d/%d", d, cs, rs), members)
}

func (c *Comm) group(key string, members []int) *Group {
	index := -1
	for i, r := range members {
		if r == c.rank {
			index = i
		}
	}
	return &Group{world: c.world, key: key, members: members, index: index}
}

func sortByShift(g *Grid, d Dist, ranks []int) {
	for i := 1; i < len(ranks); i++ {
		for j := i; j > 0; j-- {
			a, _ := g.shift(d, ranks[j-1])
			b, _ := g.shift(d, ranks[j])
			if a <= b {
				break
			}
			ranks[j-1], ranks[j] = ranks[j], ranks[j-1]
		}
	}
}

// Group is an ordered set of ranks taking part in a collective, seen from
// one member.
type Group struct {
	world   *World
	key     string
	members []int
	index   int
}

// Size returns the number of members.
func (g *Group) Size() int { return len(g.members) }

// Index returns this rank's position in the group.
func (g *Group) Index() int { return g.index }

// Members returns the world ranks of the group in member order.
func (g *Group) Members() []int { return g.members }

// round is one generation of a rendezvous. Slots are read only after done
// is closed and never written again.
type round struct {
	slots []any
	done  chan struct{}
}

func newRound(size int) *round {
	return &round{slots: make([]any, size), done: make(chan struct{})}
}

type rendezvous struct {
	mu      sync.Mutex
	size    int
	arrived int
	cur     *round
}

func (r *rendezvous) exchange(ctx context.Context, index int, v any) ([]any, error) {
	r.mu.Lock()
	rd := r.cur
	rd.slots[index] = v
	r.arrived++
	if r.arrived == r.size {
		r.arrived = 0
		r.cur = newRound(r.size)
		close(rd.done)
	}
	r.mu.Unlock()

	select {
	case <-rd.done:
		return rd.slots, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// exchange deposits v and returns every member's deposit in member order.
func exchange[V any](ctx context.Context, g *Group, v V) ([]V, error) {
	if g.Size() == 1 {
		return []V{v}, nil
	}
	slots, err := g.world.point(g.key, g.Size()).exchange(ctx, g.index, v)
	if err != nil {
		return nil, errors.Wrapf(err, "collective on %s", g.key)
	}
	out := make([]V, len(slots))
	for i, s := range slots {
		out[i] = s.(V)
	}
	return out, nil
}

// ReduceOp selects the reduction applied by AllReduce.
type ReduceOp int

// Supported reductions.
const (
	Sum ReduceOp = iota
	Max
)

// AllReduce replaces data with the element-wise reduction of every member's
// data. Members are combined in member order, so all members get bit-identical
// results.
func AllReduce[T tensor.Float](ctx context.Context, g *Group, data []T, op ReduceOp) error {
	if g.Size() == 1 {
		return nil
	}
	parts, err := exchange(ctx, g, append([]T(nil), data...))
	if err != nil {
		return err
	}
	for i, p := range parts {
		if len(p) != len(data) {
			return errors.Errorf("allreduce on %s: member %d sent %d values, expected %d", g.key, i, len(p), len(data))
		}
	}
	for k := range data {
		acc := parts[0][k]
		for _, p := range parts[1:] {
			switch op {
			case Max:
				acc = max(acc, p[k])
			default:
				acc += p[k]
			}
		}
		data[k] = acc
	}
	return nil
}

// Broadcast copies the data of the member at position root into data on
// every member.
func Broadcast[T tensor.Float](ctx context.Context, g *Group, root int, data []T) error {
	if g.Size() == 1 {
		return nil
	}
	var mine []T
	if g.index == root {
		mine = append([]T(nil), data...)
	}
	parts, err := exchange(ctx, g, mine)
	if err != nil {
		return err
	}
	copy(data, parts[root])
	return nil
}

// AllGather returns a copy of every member's data in member order.
func AllGather[T tensor.Float](ctx context.Context, g *Group, data []T) ([][]T, error) {
	return exchange(ctx, g, append([]T(nil), data...))
}

// Barrier blocks until every member has reached it.
func Barrier(ctx context.Context, g *Group) error {
	_, err := exchange(ctx, g, struct{}{})
	return err
}
