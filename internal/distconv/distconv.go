// Package distconv is the tensor-parallel backend. Tensors are partitioned
// by sample into contiguous blocks, one per rank, and each block is stored
// sample-major. Kernels work on a rank's block without communication.
//
// The backend is compiled in unless the nodistconv build tag is set, and is
// switched on at run time with BORN_DISTCONV=1.
package distconv

import (
	"os"
	"sync/atomic"
)

var enabled atomic.Bool

func init() {
	enabled.Store(os.Getenv("BORN_DISTCONV") == "1")
}

// Enabled reports whether layers should use the distconv backend.
func Enabled() bool {
	return compiled && enabled.Load()
}

// Compiled reports whether the backend is part of this build.
func Compiled() bool { return compiled }

// SetEnabled switches the backend on or off and returns the previous
// setting. It has no effect on builds without the backend.
func SetEnabled(on bool) bool {
	return enabled.Swap(on)
}
