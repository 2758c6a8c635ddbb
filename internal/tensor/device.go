package tensor

import (
	"fmt"
	"strings"
)

// Device represents where a layer's kernels run.
type Device int

// Supported compute devices.
const (
	CPU Device = iota
	GPU
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	case GPU:
		return "GPU"
	default:
		return "Unknown"
	}
}

// ParseDevice accepts "cpu" and "gpu" in any case.
func ParseDevice(s string) (Device, error) {
	switch strings.ToLower(s) {
	case "", "cpu":
		return CPU, nil
	case "gpu":
		return GPU, nil
	default:
		return 0, fmt.Errorf("unsupported device %q", s)
	}
}

// Layout is the parallelization scheme of a layer's activations.
type Layout int

const (
	// DataParallel distributes samples across all ranks; every rank holds
	// complete feature vectors for its samples.
	DataParallel Layout = iota
	// ModelParallel distributes both features and samples over the 2-D grid.
	ModelParallel
)

// String returns the layout name used in layer descriptions.
func (l Layout) String() string {
	switch l {
	case DataParallel:
		return "data_parallel"
	case ModelParallel:
		return "model_parallel"
	default:
		return "unknown"
	}
}

// ParseLayout accepts the names returned by Layout.String.
func ParseLayout(s string) (Layout, error) {
	switch s {
	case "", "data_parallel":
		return DataParallel, nil
	case "model_parallel":
		return ModelParallel, nil
	default:
		return 0, fmt.Errorf("unsupported layout %q", s)
	}
}
