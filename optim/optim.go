// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"github.com/born-ml/born-dist/internal/optim"
	"github.com/born-ml/born-dist/internal/tensor"
)

// Config selects and configures an optimizer.
type Config = optim.Config

// Factory creates one optimizer per weights.
type Factory[T tensor.Float] = optim.Factory[T]

// NewFactory returns a factory for the optimizer named by cfg.Kind.
func NewFactory[T tensor.Float](cfg Config) (Factory[T], error) {
	return optim.NewFactory[T](cfg)
}

// SGD is stochastic gradient descent with optional momentum.
type SGD[T tensor.Float] = optim.SGD[T]

// SGDConfig configures SGD.
type SGDConfig = optim.SGDConfig

// NewSGD creates an SGD optimizer.
func NewSGD[T tensor.Float](config SGDConfig) *SGD[T] { return optim.NewSGD[T](config) }

// Adam is the Adam optimizer with bias correction.
type Adam[T tensor.Float] = optim.Adam[T]

// AdamConfig configures Adam.
type AdamConfig = optim.AdamConfig

// NewAdam creates an Adam optimizer.
func NewAdam[T tensor.Float](config AdamConfig) *Adam[T] { return optim.NewAdam[T](config) }
