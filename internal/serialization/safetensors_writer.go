package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/born-ml/born-dist/internal/tensor"
)

// ChecksumKey is the metadata key holding the data section SHA-256.
const ChecksumKey = "sha256"

// Tensor is one named entry of a SafeTensors file.
type Tensor struct {
	DType string // "F32" or "F64"
	Shape []int
	Data  []byte // little-endian values
}

// SafeTensorHeader represents a tensor in the SafeTensors header.
type SafeTensorHeader struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// FromFloats encodes values with the given shape.
func FromFloats[T tensor.Float](values []T, shape []int) Tensor {
	dt := tensor.DataTypeOf[T]()
	data := make([]byte, len(values)*dt.Size())
	for i, v := range values {
		switch dt {
		case tensor.Float64:
			binary.LittleEndian.PutUint64(data[i*8:], math.Float64bits(float64(v)))
		default:
			binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(float32(v)))
		}
	}
	return Tensor{DType: dtypeToSafeTensors(dt), Shape: append([]int(nil), shape...), Data: data}
}

// WriteSafeTensors writes tensors in SafeTensors format.
//
// Tensors are written in alphabetical order by name.
func WriteSafeTensors(w io.Writer, tensors map[string]Tensor, metadata map[string]string) error {
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		names = append(names, name)
	}
	sort.Strings(names)

	header := make(map[string]any, len(names)+1)
	var body bytes.Buffer
	var offset int64
	for _, name := range names {
		t := tensors[name]
		shape := make([]int64, len(t.Shape))
		for i, d := range t.Shape {
			shape[i] = int64(d)
		}
		size := int64(len(t.Data))
		header[name] = SafeTensorHeader{
			DType:       t.DType,
			Shape:       shape,
			DataOffsets: [2]int64{offset, offset + size},
		}
		body.Write(t.Data)
		offset += size
	}

	meta := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = v
	}
	meta[ChecksumKey] = ComputeChecksum(body.Bytes())
	header["__metadata__"] = meta

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := w.Write(body.Bytes()); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}
	return nil
}

// dtypeToSafeTensors converts tensor.DataType to SafeTensors dtype string.
func dtypeToSafeTensors(dt tensor.DataType) string {
	switch dt {
	case tensor.Float64:
		return "F64"
	default:
		return "F32"
	}
}
