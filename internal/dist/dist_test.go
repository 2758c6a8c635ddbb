package dist

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGrid(t *testing.T) {
	tests := []struct {
		size          int
		height, width int
	}{
		{1, 1, 1},
		{2, 1, 2},
		{4, 2, 2},
		{6, 2, 3},
		{7, 1, 7},
		{12, 3, 4},
	}
	for _, tt := range tests {
		g, err := NewGrid(tt.size)
		require.NoError(t, err)
		assert.Equal(t, tt.height, g.Height(), "size %d", tt.size)
		assert.Equal(t, tt.width, g.Width(), "size %d", tt.size)
	}

	_, err := NewGrid(0)
	assert.Error(t, err)
	_, err = NewGridWithHeight(6, 4)
	assert.Error(t, err)
}

func TestGridColumnMajor(t *testing.T) {
	g, err := NewGridWithHeight(6, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, g.Row(3))
	assert.Equal(t, 1, g.Col(3))
	assert.Equal(t, 0, g.Row(4))
	assert.Equal(t, 2, g.Col(4))
	assert.Equal(t, "2x3", g.String())
}

func TestLocalLength(t *testing.T) {
	assert.Equal(t, 0, LocalLength(0, 0, 1))
	assert.Equal(t, 5, LocalLength(5, 0, 1))
	assert.Equal(t, 3, LocalLength(5, 0, 2))
	assert.Equal(t, 2, LocalLength(5, 1, 2))
	assert.Equal(t, 0, LocalLength(2, 3, 4))
}

func TestMatrixColumnView(t *testing.T) {
	m := NewMatrix[float64](2, 3)
	require.NoError(t, m.SetFromContiguous([]float64{1, 2, 3, 4, 5, 6}))
	v := m.ColumnView(1, 2)
	assert.Equal(t, []float64{3, 4}, v.Column(0))
	v.Set(1, 1, 60)
	assert.Equal(t, 60.0, m.At(1, 2))
	v.Zero()
	assert.Equal(t, []float64{1, 2, 0, 0, 0, 0}, m.Contiguous())
}

func fillGlobal(m *DistMatrix[float64]) {
	for j := 0; j < m.LocalWidth(); j++ {
		for i := 0; i < m.LocalHeight(); i++ {
			gi, gj := m.GlobalRow(i), m.GlobalCol(j)
			m.Local().Set(i, j, float64(gi*100+gj))
		}
	}
}

func TestAllReduce(t *testing.T) {
	err := Run(context.Background(), 4, func(ctx context.Context, comm *Comm) error {
		data := []float64{float64(comm.Rank()), 1}
		if err := AllReduce(ctx, comm.WorldGroup(), data, Sum); err != nil {
			return err
		}
		assert.Equal(t, []float64{6, 4}, data)

		data = []float64{float64(comm.Rank())}
		if err := AllReduce(ctx, comm.WorldGroup(), data, Max); err != nil {
			return err
		}
		assert.Equal(t, []float64{3}, data)
		return nil
	})
	require.NoError(t, err)
}

func TestGroups(t *testing.T) {
	var mu sync.Mutex
	members := map[int][]int{}
	err := Run(context.Background(), 4, func(_ context.Context, comm *Comm) error {
		mc := comm.DistGroup(MC)
		mr := comm.DistGroup(MR)
		red := comm.RedundantGroup(DistData{STAR, MR})
		mu.Lock()
		defer mu.Unlock()
		members[comm.Rank()] = append(append(append([]int{}, mc.Members()...), mr.Members()...), red.Members()...)
		return nil
	})
	require.NoError(t, err)
	// 2x2 grid: rank 1 is row 1 col 0, rank 2 is row 0 col 1.
	assert.Equal(t, []int{0, 1, 1, 3, 0, 1}, members[1])
	assert.Equal(t, []int{2, 3, 0, 2, 2, 3}, members[2])
}

func TestBroadcastAndBarrier(t *testing.T) {
	err := Run(context.Background(), 3, func(ctx context.Context, comm *Comm) error {
		data := []float32{0, 0}
		if comm.Rank() == 2 {
			data = []float32{7, 8}
		}
		if err := Broadcast(ctx, comm.WorldGroup(), 2, data); err != nil {
			return err
		}
		assert.Equal(t, []float32{7, 8}, data)
		return Barrier(ctx, comm.WorldGroup())
	})
	require.NoError(t, err)
}

func TestCopyRedistributes(t *testing.T) {
	pairs := []struct{ from, to DistData }{
		{DistData{STAR, VC}, DistData{MC, MR}},
		{DistData{MC, MR}, DistData{STAR, VC}},
		{DistData{MC, MR}, DistData{STAR, MR}},
		{DistData{STAR, STAR}, DistData{VC, STAR}},
		{DistData{VR, STAR}, DistData{STAR, STAR}},
	}
	for _, p := range pairs {
		t.Run(p.from.String()+"->"+p.to.String(), func(t *testing.T) {
			err := Run(context.Background(), 4, func(ctx context.Context, comm *Comm) error {
				src := NewDistMatrix[float64](comm, p.from)
				src.Resize(5, 7)
				fillGlobal(src)
				dst := NewDistMatrix[float64](comm, p.to)
				if err := Copy(ctx, dst, src); err != nil {
					return err
				}
				assert.Equal(t, 5, dst.Height())
				assert.Equal(t, 7, dst.Width())
				for j := 0; j < dst.LocalWidth(); j++ {
					for i := 0; i < dst.LocalHeight(); i++ {
						assert.Equal(t, float64(dst.GlobalRow(i)*100+dst.GlobalCol(j)), dst.Local().At(i, j))
					}
				}
				return nil
			})
			require.NoError(t, err)
		})
	}
}

func TestViewColumns(t *testing.T) {
	err := Run(context.Background(), 4, func(ctx context.Context, comm *Comm) error {
		m := NewDistMatrix[float64](comm, DistData{STAR, VC})
		m.Resize(2, 10)
		fillGlobal(m)
		v, err := m.ViewColumns(3, 5)
		if err != nil {
			return err
		}
		assert.True(t, v.IsView())
		for j := 0; j < v.LocalWidth(); j++ {
			assert.Equal(t, float64(v.GlobalCol(j)+3), v.Local().At(0, j))
		}

		full, err := GatherGlobal(ctx, v)
		if err != nil {
			return err
		}
		for j := 0; j < 5; j++ {
			assert.Equal(t, float64(100+j+3), full.At(1, j))
		}

		v.Zero()
		full, err = GatherGlobal(ctx, m)
		if err != nil {
			return err
		}
		assert.Equal(t, 2.0, full.At(0, 2))
		assert.Equal(t, 0.0, full.At(0, 3))
		assert.Equal(t, 0.0, full.At(0, 7))
		assert.Equal(t, 8.0, full.At(0, 8))
		return nil
	})
	require.NoError(t, err)
}

func TestAllReduceRedundant(t *testing.T) {
	err := Run(context.Background(), 4, func(ctx context.Context, comm *Comm) error {
		m := NewDistMatrix[float64](comm, DistData{STAR, MR})
		m.Resize(1, 4)
		for j := 0; j < m.LocalWidth(); j++ {
			m.Local().Set(0, j, 1)
		}
		if err := AllReduceRedundant(ctx, m, Sum); err != nil {
			return err
		}
		for j := 0; j < m.LocalWidth(); j++ {
			assert.Equal(t, 2.0, m.Local().At(0, j))
		}
		return nil
	})
	require.NoError(t, err)
}

func TestLaunchCancelsOnError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := Run(ctx, 3, func(ctx context.Context, comm *Comm) error {
		if comm.Rank() == 1 {
			return assert.AnError
		}
		return Barrier(ctx, comm.WorldGroup())
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rank 1")
}

func TestCollectiveErrorsKeepCauseAndStack(t *testing.T) {
	grid, err := NewGrid(2)
	require.NoError(t, err)
	comm := NewWorld(grid).Comm(0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = Barrier(ctx, comm.WorldGroup())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "collective on vc")
	assert.Contains(t, fmt.Sprintf("%+v", err), "comm.go")

	_, err = NewGrid(0)
	assert.Contains(t, fmt.Sprintf("%+v", err), "grid.go")
}

func TestDistMatrixClone(t *testing.T) {
	grid, err := NewGrid(1)
	require.NoError(t, err)
	m := NewDistMatrix[float64](NewWorld(grid).Comm(0), DistData{ColDist: STAR, RowDist: VC})
	m.Resize(2, 3)
	for j := 0; j < 3; j++ {
		m.Local().Set(0, j, float64(j))
		m.Local().Set(1, j, float64(10+j))
	}
	v, err := m.ViewColumns(1, 2)
	require.NoError(t, err)

	c := v.Clone()
	assert.False(t, c.IsView())
	assert.Equal(t, v.Dist(), c.Dist())
	assert.Equal(t, []float64{1, 11, 2, 12}, c.Local().Contiguous())

	c.Local().Set(0, 0, -1)
	assert.Equal(t, 1.0, m.Local().At(0, 1), "clone owns its storage")
}
