// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu exposes the accelerator backend used by GPU layers.
//
// The backend is built on go-webgpu for Windows; on other platforms New
// returns ErrUnavailable and GPU layers fail setup unless the distconv path
// applies.
//
// Example:
//
//	if !webgpu.Available() {
//	    device = tensor.CPU
//	}
package webgpu

import (
	internalwebgpu "github.com/born-ml/born-dist/internal/backend/webgpu"
)

// Backend holds a WebGPU device and its compiled kernels.
type Backend = internalwebgpu.Backend

// ErrUnavailable is returned when no WebGPU adapter can be opened.
var ErrUnavailable = internalwebgpu.ErrUnavailable

// New opens a WebGPU device. Call Release when done.
func New() (*Backend, error) { return internalwebgpu.New() }

// Default returns the process-wide backend shared by all layers.
func Default() (*Backend, error) { return internalwebgpu.Default() }

// Available reports whether the process-wide backend could be opened.
func Available() bool { return internalwebgpu.Available() }
