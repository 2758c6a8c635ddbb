package main

import (
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/born-ml/born-dist/internal/dist"
	"github.com/born-ml/born-dist/internal/layer"
	"github.com/born-ml/born-dist/internal/model"
	"github.com/born-ml/born-dist/internal/tensor"
)

// describe builds every layer of a YAML model description on a single rank
// and prints the descriptions the layers report, with defaults filled in.
func describe(args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return errors.New("usage: describe <model.yaml>")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()

	descs, err := layer.DecodeDescriptions(f)
	if err != nil {
		return err
	}
	if len(descs) == 0 {
		return errors.Errorf("%s describes no layers", args[0])
	}
	dt, err := tensor.ParseDataType(descs[0].DataType)
	if err != nil {
		return err
	}
	grid, err := dist.NewGrid(1)
	if err != nil {
		return err
	}
	comm := dist.NewWorld(grid).Comm(0)
	if dt == tensor.Float64 {
		return describeAs(model.New[float64](comm), descs, stdout)
	}
	return describeAs(model.New[float32](comm), descs, stdout)
}

func describeAs[T tensor.Float](m *model.Model[T], descs []layer.Description, stdout io.Writer) error {
	layers, err := layer.BuildAll(descs, m)
	if err != nil {
		return err
	}
	out := make([]layer.Description, len(layers))
	for i, l := range layers {
		out[i] = l.Description()
	}
	return layer.EncodeDescriptions(stdout, out)
}
