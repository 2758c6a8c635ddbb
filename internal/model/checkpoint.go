package model

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/born-ml/born-dist/internal/dist"
	"github.com/born-ml/born-dist/internal/serialization"
	"github.com/born-ml/born-dist/internal/tensor"
)

// SaveWeights gathers every weights and writes them to path as SafeTensors
// from rank 0. Entries are stored in [width..., height...] row-major order,
// which is the column-major matrix layout. All ranks must call SaveWeights.
func (m *Model[T]) SaveWeights(ctx context.Context, path string) error {
	entries := make(map[string]serialization.Tensor, len(m.weights))
	for _, w := range m.weights {
		full, err := dist.GatherGlobal(ctx, w.ValuesSharded())
		if err != nil {
			return errors.Wrapf(err, "gather %q", w.Name())
		}
		shape := append(w.WidthDims().Clone(), w.HeightDims()...)
		entries[w.Name()] = serialization.FromFloats(full.Contiguous(), shape)
	}

	if m.comm.IsRoot() {
		if err := writeFile(path, entries, m.DataType()); err != nil {
			return err
		}
		m.logger.Info("weights saved", "path", path, "count", len(entries))
	}
	return dist.Barrier(ctx, m.comm.WorldGroup())
}

func writeFile(path string, entries map[string]serialization.Tensor, dt tensor.DataType) error {
	//nolint:gosec // G304: checkpoint path comes from the caller
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return errors.Wrap(err, "create checkpoint")
	}
	meta := map[string]string{"format": "born-dist", "datatype": dt.String()}
	if err := serialization.WriteSafeTensors(f, entries, meta); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "write checkpoint")
	}
	return errors.Wrap(f.Close(), "close checkpoint")
}

// LoadWeights reads path on every rank and fills the local shard of each
// registered weights. Weights must already be set up with matching shapes.
func (m *Model[T]) LoadWeights(path string) error {
	//nolint:gosec // G304: checkpoint path comes from the caller
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return errors.Wrap(err, "open checkpoint")
	}
	defer func() { _ = f.Close() }()

	entries, _, err := serialization.ReadSafeTensors(f)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}
	for _, w := range m.weights {
		entry, ok := entries[w.Name()]
		if !ok {
			return errors.Errorf("checkpoint has no weights %q", w.Name())
		}
		values := w.ValuesSharded()
		if values == nil || entry.NumElements() != values.Height()*values.Width() {
			return errors.Errorf("weights %q: checkpoint shape %v does not match", w.Name(), entry.Shape)
		}
		data, err := serialization.ToFloats[T](entry)
		if err != nil {
			return errors.Wrapf(err, "weights %q", w.Name())
		}
		full := dist.NewMatrix[T](values.Height(), values.Width())
		if err := full.SetFromContiguous(data); err != nil {
			return errors.Wrapf(err, "weights %q", w.Name())
		}
		local := values.Local()
		for j := 0; j < local.Width(); j++ {
			gj := values.GlobalCol(j)
			for i := 0; i < local.Height(); i++ {
				local.Set(i, j, full.At(values.GlobalRow(i), gj))
			}
		}
	}
	m.logger.Debug("weights loaded", "path", path)
	return nil
}
