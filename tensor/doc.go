// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor exposes the numeric kinds, shapes and placement enums of
// the born-dist layer core.
//
// # Overview
//
// Layers are generic over [Float], so every layer exists once per numeric
// kind. [Shape] describes per-sample dimensions; the mini-batch is always
// the last, implicit, dimension. [Device] picks CPU or accelerator kernels
// and [Layout] picks the matrix distribution of a layer's activations.
//
// # Basic Usage
//
//	dims := tensor.Shape{3, 32}          // 3 classes at 32 positions
//	dt, _ := tensor.ParseDataType("float")
//	eps := tensor.Epsilon[float32]()     // clamp used by the loss layers
//	layout, _ := tensor.ParseLayout("model_parallel")
package tensor
