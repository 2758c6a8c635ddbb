// Package webgpu runs the layer kernels on a GPU through WebGPU, using
// go-webgpu (github.com/go-webgpu/webgpu) for zero-CGO bindings. Only
// float32 data is supported.
//
// The native backend is built on Windows, where wgpu_native ships with the
// bindings. Elsewhere New returns ErrUnavailable and layers placed on the GPU
// fail at setup.
package webgpu

import (
	"errors"
	"sync"
)

// ErrUnavailable is returned when no WebGPU device can be used.
var ErrUnavailable = errors.New("webgpu: backend not available")

var (
	defaultOnce    sync.Once
	defaultBackend *Backend
	defaultErr     error
)

// Default returns the process-wide backend, creating it on first use.
func Default() (*Backend, error) {
	defaultOnce.Do(func() {
		defaultBackend, defaultErr = New()
	})
	return defaultBackend, defaultErr
}

// Available reports whether the process-wide backend can be created.
func Available() bool {
	_, err := Default()
	return err == nil
}
