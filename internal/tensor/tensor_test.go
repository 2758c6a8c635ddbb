package tensor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShape_NumElements(t *testing.T) {
	assert.Equal(t, 1, Shape{}.NumElements())
	assert.Equal(t, 60, Shape{3, 4, 5}.NumElements())
}

func TestShape_Validate(t *testing.T) {
	require.NoError(t, Shape{2, 3}.Validate())
	assert.Error(t, Shape{}.Validate())
	assert.Error(t, Shape{2, 0}.Validate())
}

func TestShape_AppendDoesNotAlias(t *testing.T) {
	base := make(Shape, 2, 8)
	base[0], base[1] = 4, 5
	a := base.Append(3)
	b := base.Append(7)
	assert.Equal(t, Shape{4, 5, 3}, a)
	assert.Equal(t, Shape{4, 5, 7}, b)
	assert.Equal(t, "4x5x3", a.String())
}

func TestEpsilon(t *testing.T) {
	assert.Equal(t, float32(math.Pow(2, -23)), Epsilon[float32]())
	assert.Equal(t, math.Pow(2, -52), Epsilon[float64]())
}

func TestParse(t *testing.T) {
	dt, err := ParseDataType("double")
	require.NoError(t, err)
	assert.Equal(t, Float64, dt)
	assert.Equal(t, Float32, DataTypeOf[float32]())

	dev, err := ParseDevice("GPU")
	require.NoError(t, err)
	assert.Equal(t, GPU, dev)

	_, err = ParseLayout("pipeline")
	assert.Error(t, err)
}

func TestIndex(t *testing.T) {
	tests := []struct {
		x    float64
		n    int
		want int
		ok   bool
	}{
		{0, 5, 0, true},
		{2.9, 5, 2, true},
		{4.999, 5, 4, true},
		{5, 5, 0, false},
		{-0.5, 5, 0, false},
		{math.NaN(), 5, 0, false},
		{math.Inf(1), 5, 0, false},
	}
	for _, tt := range tests {
		got, ok := Index(tt.x, tt.n)
		assert.Equal(t, tt.ok, ok, "x=%v", tt.x)
		assert.Equal(t, tt.want, got, "x=%v", tt.x)
	}
}

func TestLogExpFloat32(t *testing.T) {
	assert.Equal(t, float32(math.Log(0.5)), Log[float32](0.5))
	assert.InDelta(t, math.E, float64(Exp[float32](1)), 1e-6)
}
