package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/born-ml/born-dist/internal/tensor"
)

// ReadSafeTensors reads every tensor and the metadata of a SafeTensors
// stream, validating offsets and the checksum when one is stored.
func ReadSafeTensors(r io.Reader) (map[string]Tensor, map[string]string, error) {
	var headerSize uint64
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, nil, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > MaxHeaderSize {
		return nil, nil, ErrHeaderTooLarge
	}
	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(headerJSON, &raw); err != nil {
		return nil, nil, fmt.Errorf("failed to parse header: %w", err)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read tensor data: %w", err)
	}

	var metadata map[string]string
	headers := make(map[string]SafeTensorHeader, len(raw))
	metas := make([]TensorMeta, 0, len(raw))
	for name, msg := range raw {
		if name == "__metadata__" {
			if err := json.Unmarshal(msg, &metadata); err != nil {
				return nil, nil, fmt.Errorf("failed to parse metadata: %w", err)
			}
			continue
		}
		if err := ValidateTensorName(name); err != nil {
			return nil, nil, err
		}
		var h SafeTensorHeader
		if err := json.Unmarshal(msg, &h); err != nil {
			return nil, nil, fmt.Errorf("tensor %q: %w", name, err)
		}
		headers[name] = h
		metas = append(metas, TensorMeta{Name: name, Offset: h.DataOffsets[0], Size: h.DataOffsets[1] - h.DataOffsets[0]})
	}
	if err := ValidateTensorOffsets(metas, int64(len(body))); err != nil {
		return nil, nil, err
	}
	if sum, ok := metadata[ChecksumKey]; ok {
		if err := ValidateChecksum(body, sum); err != nil {
			return nil, nil, err
		}
	}

	tensors := make(map[string]Tensor, len(headers))
	for name, h := range headers {
		shape := make([]int, len(h.Shape))
		for i, d := range h.Shape {
			shape[i] = int(d)
		}
		data := body[h.DataOffsets[0]:h.DataOffsets[1]]
		tensors[name] = Tensor{DType: h.DType, Shape: shape, Data: append([]byte(nil), data...)}
	}
	return tensors, metadata, nil
}

// ToFloats decodes t into values of kind T, converting between F32 and F64.
func ToFloats[T tensor.Float](t Tensor) ([]T, error) {
	switch t.DType {
	case "F32":
		out := make([]T, len(t.Data)/4)
		for i := range out {
			out[i] = T(math.Float32frombits(binary.LittleEndian.Uint32(t.Data[i*4:])))
		}
		return out, nil
	case "F64":
		out := make([]T, len(t.Data)/8)
		for i := range out {
			out[i] = T(math.Float64frombits(binary.LittleEndian.Uint64(t.Data[i*8:])))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDType, t.DType)
	}
}

// NumElements returns the product of the shape.
func (t Tensor) NumElements() int {
	return tensor.Shape(t.Shape).NumElements()
}
