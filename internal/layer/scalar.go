package layer

import (
	"math"
	"sync/atomic"
	"unsafe"

	"github.com/born-ml/born-dist/internal/tensor"
)

// scalarOps holds the kind-specific primitives of T, selected once when a
// layer is constructed.
type scalarOps[T tensor.Float] struct {
	eps       T
	atomicAdd func(p *T, v T)
}

func opsFor[T tensor.Float]() scalarOps[T] {
	ops := scalarOps[T]{eps: tensor.Epsilon[T]()}
	switch tensor.DataTypeOf[T]() {
	case tensor.Float32:
		ops.atomicAdd = func(p *T, v T) {
			//nolint:gosec // T is float32 here
			atomicAddFloat32((*float32)(unsafe.Pointer(p)), float32(v))
		}
	default:
		ops.atomicAdd = func(p *T, v T) {
			//nolint:gosec // T is float64 here
			atomicAddFloat64((*float64)(unsafe.Pointer(p)), float64(v))
		}
	}
	return ops
}

func atomicAddFloat32(p *float32, v float32) {
	//nolint:gosec // same size and alignment
	u := (*uint32)(unsafe.Pointer(p))
	for {
		old := atomic.LoadUint32(u)
		next := math.Float32bits(math.Float32frombits(old) + v)
		if atomic.CompareAndSwapUint32(u, old, next) {
			return
		}
	}
}

func atomicAddFloat64(p *float64, v float64) {
	//nolint:gosec // same size and alignment
	u := (*uint64)(unsafe.Pointer(p))
	for {
		old := atomic.LoadUint64(u)
		next := math.Float64bits(math.Float64frombits(old) + v)
		if atomic.CompareAndSwapUint64(u, old, next) {
			return
		}
	}
}
