// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package layers provides distributed neural-network layers.
//
// # Overview
//
// Every rank of an SPMD program builds the same layers in the same order.
// A layer is set up in two steps, SetupDims then SetupData, after which
// FPCompute and BPCompute may run any number of times.
//
// Available layers:
//   - Embedding: index lookup into a replicated dictionary
//   - CrossEntropy: per-sample loss against a distribution or class labels
//   - Softmax: per-sample normalization
//
// # Basic Usage
//
//	err := layers.Run(ctx, 4, func(ctx context.Context, comm *layers.Comm) error {
//	    m := layers.NewModel[float32](comm)
//	    emb, err := layers.NewEmbedding(m, "embed", tensor.DataParallel, tensor.CPU,
//	        layers.EmbeddingConfig{NumEmbeddings: 1000, EmbeddingDim: 64, PaddingIdx: -1})
//	    if err != nil {
//	        return err
//	    }
//	    emb.SetInputDims(0, tensor.Shape{16})
//	    if err := emb.SetupDims(); err != nil {
//	        return err
//	    }
//	    return emb.SetupData(32)
//	})
//
// # Distconv
//
// With BORN_DISTCONV=1 a GPU data-parallel cross-entropy layer runs on the
// sample-partitioned distconv path. Results match the regular path bit for
// bit.
package layers
