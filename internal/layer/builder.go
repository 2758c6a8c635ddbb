package layer

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/born-dist/internal/model"
	"github.com/born-ml/born-dist/internal/tensor"
)

// Description is the serializable configuration of a layer. Fields that do
// not apply to a layer type are left at their zero value.
type Description struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	DataType string `yaml:"datatype,omitempty"`
	Layout   string `yaml:"layout,omitempty"`
	Device   string `yaml:"device,omitempty"`

	// Embedding.
	NumEmbeddings int    `yaml:"num_embeddings,omitempty"`
	EmbeddingDim  int    `yaml:"embedding_dim,omitempty"`
	PaddingIdx    *int   `yaml:"padding_idx,omitempty"`
	Seed          uint64 `yaml:"seed,omitempty"`

	// Cross entropy.
	UseLabels bool `yaml:"use_labels,omitempty"`
}

func (d Description) errorf(format string, args ...any) error {
	return errors.WithStack(&SetupError{Layer: d.Name, Type: d.Type, Msg: fmt.Sprintf(format, args...)})
}

func (b *Base[T]) describe() Description {
	return Description{
		Name:     b.name,
		Type:     b.typ,
		DataType: b.DataType().String(),
		Layout:   b.layout.String(),
		Device:   strings.ToLower(b.device.String()),
	}
}

// ModelDescription is the list of layer descriptions in a YAML model file.
type ModelDescription struct {
	Layers []Description `yaml:"layers"`
}

// DecodeDescriptions reads a YAML model description. Unknown fields are
// rejected.
func DecodeDescriptions(r io.Reader) ([]Description, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var md ModelDescription
	if err := dec.Decode(&md); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "decode layer descriptions")
	}
	return md.Layers, nil
}

// EncodeDescriptions writes descriptions in the format DecodeDescriptions
// reads.
func EncodeDescriptions(w io.Writer, descs []Description) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(ModelDescription{Layers: descs}); err != nil {
		return errors.Wrap(err, "encode layer descriptions")
	}
	return enc.Close()
}

// Build constructs the layer described by d in m.
func Build[T tensor.Float](d Description, m *model.Model[T]) (Layer[T], error) {
	dt, err := tensor.ParseDataType(d.DataType)
	if err != nil {
		return nil, d.errorf("%v", err)
	}
	if d.DataType != "" && dt != m.DataType() {
		return nil, d.errorf("datatype %s does not match model datatype %s", dt, m.DataType())
	}
	layout, err := tensor.ParseLayout(d.Layout)
	if err != nil {
		return nil, d.errorf("%v", err)
	}
	device, err := tensor.ParseDevice(d.Device)
	if err != nil {
		return nil, d.errorf("%v", err)
	}

	switch d.Type {
	case EmbeddingType:
		padding := -1
		if d.PaddingIdx != nil {
			padding = *d.PaddingIdx
		}
		l, err := NewEmbedding(m, d.Name, layout, device, EmbeddingConfig{
			NumEmbeddings: d.NumEmbeddings,
			EmbeddingDim:  d.EmbeddingDim,
			PaddingIdx:    padding,
			Seed:          d.Seed,
		})
		if err != nil {
			return nil, err
		}
		return l, nil
	case CrossEntropyType:
		l, err := NewCrossEntropy(m, d.Name, layout, device, d.UseLabels)
		if err != nil {
			return nil, err
		}
		return l, nil
	case SoftmaxType:
		l, err := NewSoftmax(m, d.Name, layout, device)
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, d.errorf("unknown layer type")
	}
}

// BuildAll constructs every described layer in order.
func BuildAll[T tensor.Float](descs []Description, m *model.Model[T]) ([]Layer[T], error) {
	layers := make([]Layer[T], 0, len(descs))
	for _, d := range descs {
		l, err := Build(d, m)
		if err != nil {
			return nil, err
		}
		layers = append(layers, l)
	}
	return layers, nil
}
