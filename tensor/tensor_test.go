package tensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/born-dist/tensor"
)

func TestFacade(t *testing.T) {
	dt, err := tensor.ParseDataType("double")
	require.NoError(t, err)
	assert.Equal(t, tensor.Float64, dt)
	assert.Equal(t, tensor.Float32, tensor.DataTypeOf[float32]())

	d, err := tensor.ParseDevice("GPU")
	require.NoError(t, err)
	assert.Equal(t, tensor.GPU, d)

	l, err := tensor.ParseLayout("model_parallel")
	require.NoError(t, err)
	assert.Equal(t, tensor.ModelParallel, l)

	assert.Equal(t, 6, tensor.Shape{2, 3}.NumElements())
	assert.Equal(t, float32(1.1920929e-07), tensor.Epsilon[float32]())
}
