// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/born-dist/internal/tensor"
)

// Float is the set of numeric kinds layers can be instantiated with.
type Float = tensor.Float

// DataType is the runtime name of a numeric kind.
type DataType = tensor.DataType

// Numeric kinds.
const (
	Float32 = tensor.Float32
	Float64 = tensor.Float64
)

// Shape is a list of per-sample dimensions.
type Shape = tensor.Shape

// Device selects where kernels run.
type Device = tensor.Device

// Compute devices.
const (
	CPU = tensor.CPU
	GPU = tensor.GPU
)

// Layout selects how activations are distributed over the process grid.
type Layout = tensor.Layout

// Parallel layouts.
const (
	DataParallel  = tensor.DataParallel
	ModelParallel = tensor.ModelParallel
)

// ParseDataType parses "float32" ("float") or "float64" ("double").
func ParseDataType(s string) (DataType, error) { return tensor.ParseDataType(s) }

// ParseDevice parses "cpu" or "gpu".
func ParseDevice(s string) (Device, error) { return tensor.ParseDevice(s) }

// ParseLayout parses "data_parallel" or "model_parallel".
func ParseLayout(s string) (Layout, error) { return tensor.ParseLayout(s) }

// DataTypeOf returns the DataType of T.
func DataTypeOf[T Float]() DataType { return tensor.DataTypeOf[T]() }

// Epsilon returns the machine epsilon of T.
func Epsilon[T Float]() T { return tensor.Epsilon[T]() }
