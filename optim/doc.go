// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides the optimizers that update layer weights.
//
// Optimizers own a gradient buffer with the distribution of the weights they
// serve. Layers accumulate into the buffer during backpropagation; Step
// sums the buffer over ranks holding the same entries and applies the
// update.
//
// # Usage
//
//	factory, err := optim.NewFactory[float32](optim.Config{Kind: "adam", LR: 1e-3})
//	if err != nil {
//	    return err
//	}
//	m := layers.NewModel(comm, layers.WithOptimizer(factory))
//
// Supported kinds are "sgd" (with optional momentum) and "adam".
package optim
