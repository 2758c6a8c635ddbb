// Package serialization reads and writes weight checkpoints in SafeTensors
// format, the layout used by HuggingFace models:
//
//	[8 bytes: header size (uint64 LE)]
//	[header: JSON object, tensor name -> {dtype, shape, data_offsets}]
//	[tensor data: raw little-endian bytes, tensors in name order]
//
// The writer stores a SHA-256 of the data section under the "sha256"
// metadata key; the reader verifies it when present.
//
// Example usage:
//
//	err := serialization.WriteSafeTensors(w, map[string]serialization.Tensor{
//	    "embedding_weights": serialization.FromFloats(values, []int{vocab, dim}),
//	}, map[string]string{"format": "born-dist"})
//
//	tensors, meta, err := serialization.ReadSafeTensors(r)
//	values, err := serialization.ToFloats[float32](tensors["embedding_weights"])
package serialization
